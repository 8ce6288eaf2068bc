package notify

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Sender delivers a message to one recipient and returns a delivery
// identifier. Transport is out of scope; failures are per-recipient
// and never fatal to the operation that triggered the send.
type Sender interface {
	Send(ctx context.Context, to, subject, body string) (string, error)
}

// LogSender is the stub transport: it records the send in the log and
// succeeds. Real deployments swap in an actual mail or SMS gateway.
type LogSender struct {
	from   string
	logger *zap.Logger
}

// NewLogSender builds the stub sender.
func NewLogSender(from string, logger *zap.Logger) *LogSender {
	return &LogSender{from: from, logger: logger}
}

// Send logs the message and returns a synthetic delivery id.
func (s *LogSender) Send(_ context.Context, to, subject, _ string) (string, error) {
	deliveryID := uuid.NewString()
	s.logger.Info("notification dispatched",
		zap.String("from", s.from),
		zap.String("to", to),
		zap.String("subject", subject),
		zap.String("delivery_id", deliveryID))
	return deliveryID, nil
}
