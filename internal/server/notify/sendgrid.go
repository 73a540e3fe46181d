package notify

import (
	"context"
	"fmt"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

type sendGridClient interface {
	SendWithContext(ctx context.Context, email *mail.SGMailV3) (*rest.Response, error)
}

// SendGridGateway delivers through the SendGrid v3 mail API.
type SendGridGateway struct {
	client sendGridClient
	from   *mail.Email
}

func NewSendGridGateway(cfg Config) *SendGridGateway {
	return &SendGridGateway{
		client: sendgrid.NewSendClient(cfg.SendGridAPIKey),
		from:   mail.NewEmail(cfg.FromName, cfg.From),
	}
}

func (g *SendGridGateway) Send(ctx context.Context, msg Message) error {
	m := mail.NewSingleEmail(g.from, msg.Subject, mail.NewEmail("", msg.To), msg.Text, msg.HTML)

	resp, err := g.client.SendWithContext(ctx, m)
	if err != nil {
		return fmt.Errorf("sendgrid send: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("sendgrid send: status %d: %s", resp.StatusCode, resp.Body)
	}
	return nil
}
