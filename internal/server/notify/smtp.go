package notify

import (
	"bytes"
	"context"
	"fmt"
	"mime"
	"mime/multipart"
	"net"
	"net/mail"
	"net/smtp"
	"net/textproto"
	"strconv"
	"time"
)

// sendMail is smtp.SendMail, which upgrades to STARTTLS when the server offers it.
var sendMail = smtp.SendMail

// SMTPGateway submits mail to a relay with PLAIN auth.
type SMTPGateway struct {
	addr     string
	host     string
	from     mail.Address
	username string
	password string
}

func NewSMTPGateway(cfg Config) *SMTPGateway {
	return &SMTPGateway{
		addr:     net.JoinHostPort(cfg.SMTPHost, strconv.Itoa(cfg.SMTPPort)),
		host:     cfg.SMTPHost,
		from:     mail.Address{Name: cfg.FromName, Address: cfg.From},
		username: cfg.SMTPUsername,
		password: cfg.SMTPPassword,
	}
}

func (g *SMTPGateway) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	body, err := buildMIME(g.from, msg, time.Now())
	if err != nil {
		return fmt.Errorf("build message: %w", err)
	}

	var auth smtp.Auth
	if g.username != "" {
		auth = smtp.PlainAuth("", g.username, g.password, g.host)
	}

	if err := sendMail(g.addr, auth, g.from.Address, []string{msg.To}, body); err != nil {
		return fmt.Errorf("smtp send to %s: %w", g.addr, err)
	}
	return nil
}

// buildMIME renders msg as multipart/alternative with a text and an HTML part.
func buildMIME(from mail.Address, msg Message, now time.Time) ([]byte, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	fmt.Fprintf(&buf, "From: %s\r\n", from.String())
	fmt.Fprintf(&buf, "To: %s\r\n", (&mail.Address{Address: msg.To}).String())
	fmt.Fprintf(&buf, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", msg.Subject))
	fmt.Fprintf(&buf, "Date: %s\r\n", now.Format(time.RFC1123Z))
	fmt.Fprintf(&buf, "MIME-Version: 1.0\r\n")
	fmt.Fprintf(&buf, "Content-Type: multipart/alternative; boundary=%q\r\n\r\n", mw.Boundary())

	parts := []struct {
		contentType string
		body        string
	}{
		{"text/plain; charset=utf-8", msg.Text},
		{"text/html; charset=utf-8", msg.HTML},
	}
	for _, p := range parts {
		w, err := mw.CreatePart(textproto.MIMEHeader{
			"Content-Type":              {p.contentType},
			"Content-Transfer-Encoding": {"8bit"},
		})
		if err != nil {
			return nil, err
		}
		if _, err := w.Write([]byte(p.body)); err != nil {
			return nil, err
		}
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
