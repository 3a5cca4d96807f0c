// Package sender delivers verification codes by SMS.
package sender

import (
	"context"
	"log/slog"

	"placeclaim/pkg/platform/privacy"
)

//go:generate mockgen -source=sender.go -destination=mocks/mocks.go -package=mocks Sender

// Sender delivers one SMS. Implementations report provider failures; callers
// decide whether they matter.
type Sender interface {
	SendSMS(ctx context.Context, to, message string) error
}

// LogSender writes messages to the log instead of sending them. It is the
// default for local runs.
type LogSender struct {
	logger *slog.Logger
}

func NewLogSender(logger *slog.Logger) *LogSender {
	return &LogSender{logger: logger}
}

func (s *LogSender) SendSMS(ctx context.Context, to, message string) error {
	s.logger.InfoContext(ctx, "sms (log provider)",
		"to", privacy.MaskPhone(to),
		"message", message,
	)
	return nil
}
