package notification

import (
	"context"
	"log/slog"
	"time"

	"acmauth/internal/domain/service"

	"github.com/sethvargo/go-retry"
)

const (
	defaultMaxRetries   = 3
	defaultRetryBackoff = 200 * time.Millisecond
)

type retryingNotifier struct {
	next       service.Notifier
	maxRetries uint64
	backoff    time.Duration
	logger     *slog.Logger
}

// NewRetryingNotifier wraps next so that failed sends are retried with
// exponential backoff. The last error is returned once retries run out.
func NewRetryingNotifier(next service.Notifier, maxRetries uint64, backoff time.Duration, logger *slog.Logger) service.Notifier {
	if backoff <= 0 {
		backoff = defaultRetryBackoff
	}

	return &retryingNotifier{
		next:       next,
		maxRetries: maxRetries,
		backoff:    backoff,
		logger:     logger,
	}
}

func (n *retryingNotifier) Send(ctx context.Context, msg service.Message) error {
	attempt := 0
	b := retry.WithMaxRetries(n.maxRetries, retry.NewExponential(n.backoff))

	return retry.Do(ctx, b, func(ctx context.Context) error {
		attempt++
		err := n.next.Send(ctx, msg)
		if err == nil {
			return nil
		}

		n.logger.WarnContext(ctx, "Notification attempt failed",
			slog.Int("attempt", attempt),
			slog.String("to", msg.To),
			slog.Any("error", err),
		)

		return retry.RetryableError(err)
	})
}
