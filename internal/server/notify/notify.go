// Package notify delivers the account e-mails of the identity flows through
// a pluggable Gateway.
package notify

import (
	"context"
	"fmt"

	"github.com/siatlite/casedesk/internal/logging"
)

// Message is a rendered e-mail with HTML and plain-text bodies.
type Message struct {
	To      string
	Subject string
	HTML    string
	Text    string
}

// Gateway sends a message. A nil error means the provider accepted it.
type Gateway interface {
	Send(ctx context.Context, msg Message) error
}

// Provider names accepted by New.
const (
	ProviderLog      = "log"
	ProviderSMTP     = "smtp"
	ProviderSendGrid = "sendgrid"
)

// Config selects and configures a provider.
type Config struct {
	Provider       string
	From           string
	FromName       string
	SMTPHost       string
	SMTPPort       int
	SMTPUsername   string
	SMTPPassword   string
	SendGridAPIKey string
}

// New builds the gateway named by cfg.Provider. A provider that lacks its
// credentials degrades to the log gateway.
func New(cfg Config, logger logging.Logger) (Gateway, error) {
	switch cfg.Provider {
	case "", ProviderLog:
		return NewLogGateway(logger), nil
	case ProviderSMTP:
		if cfg.SMTPHost == "" {
			logger.Warn(context.Background(), "smtp host not configured, mail delivery is simulated")
			return NewLogGateway(logger), nil
		}
		return NewSMTPGateway(cfg), nil
	case ProviderSendGrid:
		if cfg.SendGridAPIKey == "" {
			logger.Warn(context.Background(), "sendgrid api key not configured, mail delivery is simulated")
			return NewLogGateway(logger), nil
		}
		return NewSendGridGateway(cfg), nil
	default:
		return nil, fmt.Errorf("unknown notify provider %q", cfg.Provider)
	}
}
