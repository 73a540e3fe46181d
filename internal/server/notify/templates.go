package notify

import (
	"bytes"
	"fmt"
	"html/template"
	"time"
)

var (
	confirmHTML = template.Must(template.New("confirm").Parse(`<!DOCTYPE html>
<html><body>
<p>Hello{{if .Name}} {{.Name}}{{end}},</p>
<p>An account was created for you in the accident records system. Confirm your e-mail address to activate it:</p>
<p><a href="{{.Link}}">Confirm my account</a></p>
<p>The link is valid for {{.TTL}} and can be used once.</p>
<p>If you did not expect this message, ignore it.</p>
</body></html>`))

	resetHTML = template.Must(template.New("reset").Parse(`<!DOCTYPE html>
<html><body>
<p>A password reset was requested for your account.</p>
<p><a href="{{.Link}}">Choose a new password</a></p>
<p>The link is valid for {{.TTL}} and can be used once. Requesting another reset invalidates it.</p>
<p>If you did not request a reset, ignore this message; your password stays unchanged.</p>
</body></html>`))
)

type templateData struct {
	Name string
	Link string
	TTL  string
}

// ConfirmationMessage renders the account confirmation e-mail.
func ConfirmationMessage(to, name, link string, ttl time.Duration) (Message, error) {
	data := templateData{Name: name, Link: link, TTL: humanizeTTL(ttl)}

	html, err := render(confirmHTML, data)
	if err != nil {
		return Message{}, err
	}

	greeting := "Hello,"
	if name != "" {
		greeting = "Hello " + name + ","
	}
	text := fmt.Sprintf("%s\n\nConfirm your e-mail address to activate your account:\n%s\n\nThe link is valid for %s and can be used once.\n",
		greeting, link, data.TTL)

	return Message{To: to, Subject: "Confirm your account", HTML: html, Text: text}, nil
}

// ResetMessage renders the password reset e-mail.
func ResetMessage(to, link string, ttl time.Duration) (Message, error) {
	data := templateData{Link: link, TTL: humanizeTTL(ttl)}

	html, err := render(resetHTML, data)
	if err != nil {
		return Message{}, err
	}

	text := fmt.Sprintf("A password reset was requested for your account.\n\nChoose a new password:\n%s\n\nThe link is valid for %s and can be used once.\n",
		link, data.TTL)

	return Message{To: to, Subject: "Password reset", HTML: html, Text: text}, nil
}

func render(t *template.Template, data templateData) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render %s: %w", t.Name(), err)
	}
	return buf.String(), nil
}

func humanizeTTL(d time.Duration) string {
	switch {
	case d >= time.Hour && d%time.Hour == 0:
		if d == time.Hour {
			return "1 hour"
		}
		return fmt.Sprintf("%d hours", d/time.Hour)
	case d >= time.Minute && d%time.Minute == 0:
		if d == time.Minute {
			return "1 minute"
		}
		return fmt.Sprintf("%d minutes", d/time.Minute)
	default:
		return d.String()
	}
}
