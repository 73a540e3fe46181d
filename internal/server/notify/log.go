package notify

import (
	"context"

	"github.com/siatlite/casedesk/internal/logging"
)

// LogGateway only logs what would have been sent.
type LogGateway struct {
	logger logging.Logger
}

func NewLogGateway(logger logging.Logger) *LogGateway {
	return &LogGateway{logger: logger.With("module", "notify", "provider", ProviderLog)}
}

func (g *LogGateway) Send(ctx context.Context, msg Message) error {
	g.logger.Info(ctx, "mail simulated", "to", msg.To, "subject", msg.Subject)
	g.logger.Debug(ctx, "mail body", "to", msg.To, "text", msg.Text)
	return nil
}
