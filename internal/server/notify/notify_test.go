package notify

import (
	"bytes"
	"context"
	"errors"
	"io"
	"mime"
	"mime/multipart"
	"net/mail"
	"net/smtp"
	"strings"
	"testing"
	"time"

	"github.com/sendgrid/rest"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/siatlite/casedesk/internal/logging"
)

func discardLogger() logging.Logger {
	return logging.NewJSONLogger(io.Discard, "debug")
}

func TestNew_SelectsProvider(t *testing.T) {
	l := discardLogger()

	g, err := New(Config{}, l)
	require.NoError(t, err)
	assert.IsType(t, &LogGateway{}, g)

	g, err = New(Config{Provider: ProviderSMTP, SMTPHost: "mail.example", SMTPPort: 587}, l)
	require.NoError(t, err)
	assert.IsType(t, &SMTPGateway{}, g)

	g, err = New(Config{Provider: ProviderSMTP}, l)
	require.NoError(t, err)
	assert.IsType(t, &LogGateway{}, g, "missing host degrades to simulation")

	g, err = New(Config{Provider: ProviderSendGrid, SendGridAPIKey: "SG.x"}, l)
	require.NoError(t, err)
	assert.IsType(t, &SendGridGateway{}, g)

	g, err = New(Config{Provider: ProviderSendGrid}, l)
	require.NoError(t, err)
	assert.IsType(t, &LogGateway{}, g)

	_, err = New(Config{Provider: "fax"}, l)
	assert.Error(t, err)
}

func TestLogGateway_Send(t *testing.T) {
	var buf bytes.Buffer
	g := NewLogGateway(logging.NewJSONLogger(&buf, "info"))

	require.NoError(t, g.Send(context.Background(), Message{To: "a@example.com", Subject: "Hi", Text: "secret-link"}))
	assert.Contains(t, buf.String(), "a@example.com")
	assert.NotContains(t, buf.String(), "secret-link", "bodies are logged at debug only")
}

func TestConfirmationMessage(t *testing.T) {
	link := "https://cases.example/confirm?token=abc&x=<y>"
	msg, err := ConfirmationMessage("a@example.com", "Ana", link, 24*time.Hour)
	require.NoError(t, err)

	assert.Equal(t, "a@example.com", msg.To)
	assert.Equal(t, "Confirm your account", msg.Subject)
	assert.Contains(t, msg.Text, link)
	assert.Contains(t, msg.Text, "Hello Ana,")
	assert.Contains(t, msg.Text, "24 hours")
	assert.Contains(t, msg.HTML, "Hello Ana,")
	assert.NotContains(t, msg.HTML, "<y>", "link is escaped in html")
}

func TestResetMessage(t *testing.T) {
	msg, err := ResetMessage("a@example.com", "https://cases.example/reset?token=t", 30*time.Minute)
	require.NoError(t, err)

	assert.Equal(t, "Password reset", msg.Subject)
	assert.Contains(t, msg.Text, "https://cases.example/reset?token=t")
	assert.Contains(t, msg.Text, "30 minutes")
	assert.Contains(t, msg.HTML, `href="https://cases.example/reset?token=t"`)
}

func TestHumanizeTTL(t *testing.T) {
	assert.Equal(t, "1 hour", humanizeTTL(time.Hour))
	assert.Equal(t, "24 hours", humanizeTTL(24*time.Hour))
	assert.Equal(t, "1 minute", humanizeTTL(time.Minute))
	assert.Equal(t, "90 minutes", humanizeTTL(90*time.Minute))
	assert.Equal(t, "45s", humanizeTTL(45*time.Second))
}

func TestBuildMIME(t *testing.T) {
	from := mail.Address{Name: "Case Desk", Address: "desk@example.com"}
	raw, err := buildMIME(from, Message{To: "a@example.com", Subject: "Şubiect", Text: "plain", HTML: "<b>rich</b>"}, time.Now())
	require.NoError(t, err)

	m, err := mail.ReadMessage(bytes.NewReader(raw))
	require.NoError(t, err)

	subject, err := new(mime.WordDecoder).DecodeHeader(m.Header.Get("Subject"))
	require.NoError(t, err)
	assert.Equal(t, "Şubiect", subject)

	mediaType, params, err := mime.ParseMediaType(m.Header.Get("Content-Type"))
	require.NoError(t, err)
	assert.Equal(t, "multipart/alternative", mediaType)

	mr := multipart.NewReader(m.Body, params["boundary"])
	var bodies []string
	for {
		p, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		b, err := io.ReadAll(p)
		require.NoError(t, err)
		bodies = append(bodies, p.Header.Get("Content-Type")+"|"+string(b))
	}
	assert.Equal(t, []string{"text/plain; charset=utf-8|plain", "text/html; charset=utf-8|<b>rich</b>"}, bodies)
}

func TestSMTPGateway_Send(t *testing.T) {
	orig := sendMail
	t.Cleanup(func() { sendMail = orig })

	var (
		gotAddr string
		gotFrom string
		gotTo   []string
		gotAuth smtp.Auth
		gotMsg  []byte
	)
	sendMail = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotAuth, gotFrom, gotTo, gotMsg = addr, a, from, to, msg
		return nil
	}

	g := NewSMTPGateway(Config{From: "desk@example.com", SMTPHost: "mail.example", SMTPPort: 587, SMTPUsername: "u", SMTPPassword: "p"})
	require.NoError(t, g.Send(context.Background(), Message{To: "a@example.com", Subject: "S", Text: "t", HTML: "h"}))

	assert.Equal(t, "mail.example:587", gotAddr)
	assert.Equal(t, "desk@example.com", gotFrom)
	assert.Equal(t, []string{"a@example.com"}, gotTo)
	assert.NotNil(t, gotAuth)
	assert.True(t, strings.Contains(string(gotMsg), "Subject: S"))
}

func TestSMTPGateway_SendError(t *testing.T) {
	orig := sendMail
	t.Cleanup(func() { sendMail = orig })
	sendMail = func(string, smtp.Auth, string, []string, []byte) error { return errors.New("421 try later") }

	g := NewSMTPGateway(Config{From: "desk@example.com", SMTPHost: "mail.example", SMTPPort: 25})
	err := g.Send(context.Background(), Message{To: "a@example.com"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "421 try later")
}

func TestSMTPGateway_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	g := NewSMTPGateway(Config{SMTPHost: "mail.example", SMTPPort: 25})
	assert.ErrorIs(t, g.Send(ctx, Message{To: "a@example.com"}), context.Canceled)
}

type fakeSendGrid struct {
	resp *rest.Response
	err  error
	got  *sgmail.SGMailV3
}

func (f *fakeSendGrid) SendWithContext(ctx context.Context, m *sgmail.SGMailV3) (*rest.Response, error) {
	f.got = m
	return f.resp, f.err
}

func TestSendGridGateway_Send(t *testing.T) {
	fake := &fakeSendGrid{resp: &rest.Response{StatusCode: 202}}
	g := &SendGridGateway{client: fake, from: sgmail.NewEmail("Case Desk", "desk@example.com")}

	require.NoError(t, g.Send(context.Background(), Message{To: "a@example.com", Subject: "S", Text: "t", HTML: "h"}))
	require.NotNil(t, fake.got)
	assert.Equal(t, "S", fake.got.Subject)
	require.Len(t, fake.got.Personalizations, 1)
	assert.Equal(t, "a@example.com", fake.got.Personalizations[0].To[0].Address)
}

func TestSendGridGateway_Errors(t *testing.T) {
	g := &SendGridGateway{client: &fakeSendGrid{resp: &rest.Response{StatusCode: 401, Body: "unauthorized"}}, from: sgmail.NewEmail("", "desk@example.com")}
	err := g.Send(context.Background(), Message{To: "a@example.com"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")

	g = &SendGridGateway{client: &fakeSendGrid{err: errors.New("dial tcp")}, from: sgmail.NewEmail("", "desk@example.com")}
	assert.Error(t, g.Send(context.Background(), Message{To: "a@example.com"}))
}
