// Package mailer holds Mailer implementations for the notification worker.
package mailer

import (
	"context"

	"github.com/Zhima-Mochi/minishop-chapa/internal/application/notification"
	"github.com/Zhima-Mochi/minishop-chapa/internal/observability"
	"github.com/Zhima-Mochi/minishop-chapa/internal/observability/logctx"
)

// LogMailer writes messages to the log instead of delivering them.
type LogMailer struct {
	log         observability.Logger
	includeBody bool
}

func NewLogMailer(logger observability.Logger, includeBody bool) *LogMailer {
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &LogMailer{log: logger.With(observability.F("component", "mailer")), includeBody: includeBody}
}

func (m *LogMailer) Send(ctx context.Context, msg notification.Message) error {
	fields := []observability.Field{
		observability.F("to", msg.To),
		observability.F("subject", msg.Subject),
		observability.F("body_bytes", len(msg.Body)),
	}
	if m.includeBody {
		fields = append(fields, observability.F("body", msg.Body))
	}
	logctx.FromOr(ctx, m.log).Info("email_sent", fields...)
	return nil
}
