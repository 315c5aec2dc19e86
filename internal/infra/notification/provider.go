// Package notification provides the outbound mail implementations of service.Notifier.
package notification

import (
	"log/slog"

	"acmauth/config"
	"acmauth/internal/domain/service"

	"github.com/pkg/errors"
)

// NewNotifier creates the Notifier selected by configuration, wrapped with retries.
func NewNotifier(cfg *config.Config, logger *slog.Logger) (service.Notifier, error) {
	mailCfg := cfg.Mail
	if mailCfg == nil || mailCfg.Provider == "" {
		logger.Info("Mail not configured, using log notifier")

		return NewLogNotifier(logger), nil
	}

	var notifier service.Notifier

	switch mailCfg.Provider {
	case config.MailProviderLog:
		logger.Info("Using log notifier")

		notifier = NewLogNotifier(logger)

	case config.MailProviderSMTP:
		var err error
		notifier, err = NewSMTPNotifier(mailCfg, logger)
		if err != nil {
			return nil, errors.Wrap(err, "failed to create smtp notifier")
		}
		logger.Info("Using SMTP notifier",
			slog.String("host", mailCfg.Host),
			slog.Int("port", mailCfg.Port),
		)

	default:
		return nil, errors.Errorf("unknown mail provider: %s", mailCfg.Provider)
	}

	maxRetries := mailCfg.MaxRetries
	if maxRetries == 0 {
		maxRetries = defaultMaxRetries
	}

	return NewRetryingNotifier(notifier, maxRetries, mailCfg.RetryBackoff, logger), nil
}
