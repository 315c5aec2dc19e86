package notification

import (
	"context"
	"log/slog"

	"acmauth/internal/domain/service"
)

// logNotifier writes outbound messages to the log instead of delivering them.
// It is the default for local runs, where the confirm and reset links are read
// from the console.
type logNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier creates a Notifier that only logs messages.
func NewLogNotifier(logger *slog.Logger) service.Notifier {
	return &logNotifier{logger: logger}
}

func (n *logNotifier) Send(ctx context.Context, msg service.Message) error {
	n.logger.InfoContext(ctx, "[LogNotifier] Outbound mail",
		slog.String("to", msg.To),
		slog.String("subject", msg.Subject),
		slog.String("body", msg.Body),
	)

	return nil
}
