package notifications

import (
	"context"
	"log/slog"
)

// LogMailer writes mail to the log instead of sending it. Used in dev when
// no provider key is configured.
type LogMailer struct {
	log *slog.Logger
}

func NewLogMailer(log *slog.Logger) *LogMailer {
	return &LogMailer{log: log}
}

func (m *LogMailer) Send(ctx context.Context, to, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.log.InfoContext(ctx, "mail.console",
		"to", to,
		"subject", subject,
		"body", body,
	)
	return nil
}
