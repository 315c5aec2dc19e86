package notification

import (
	"context"
	"log/slog"

	"acmauth/config"
	"acmauth/internal/domain/service"

	"github.com/pkg/errors"
	"gopkg.in/gomail.v2"
)

// mailSender is the part of gomail.Dialer the notifier depends on.
type mailSender interface {
	DialAndSend(m ...*gomail.Message) error
}

type smtpNotifier struct {
	from   string
	sender mailSender
	logger *slog.Logger
}

// NewSMTPNotifier creates a Notifier that delivers plain-text mail through an SMTP relay.
func NewSMTPNotifier(cfg *config.MailConfig, logger *slog.Logger) (service.Notifier, error) {
	if cfg == nil || cfg.Host == "" || cfg.Port == 0 {
		return nil, errors.New("mail host and port are required for the smtp provider")
	}
	if cfg.From == "" {
		return nil, errors.New("mail sender address is required for the smtp provider")
	}

	return &smtpNotifier{
		from:   cfg.From,
		sender: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		logger: logger,
	}, nil
}

func (n *smtpNotifier) Send(ctx context.Context, msg service.Message) error {
	if msg.To == "" {
		return errors.New("recipient address is empty")
	}
	// gomail has no context support, so cancellation is only honored before dialing.
	if err := ctx.Err(); err != nil {
		return errors.Wrap(err, "mail send cancelled")
	}

	m := gomail.NewMessage()
	m.SetHeader("From", n.from)
	m.SetHeader("To", msg.To)
	m.SetHeader("Subject", msg.Subject)
	if msg.ReplyTo != "" {
		m.SetHeader("Reply-To", msg.ReplyTo)
	}
	m.SetBody("text/plain", msg.Body)

	if err := n.sender.DialAndSend(m); err != nil {
		return errors.Wrapf(err, "failed to send mail to %s", msg.To)
	}

	n.logger.DebugContext(ctx, "Mail sent",
		slog.String("to", msg.To),
		slog.String("subject", msg.Subject),
	)

	return nil
}
