package notification

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"acmauth/config"
	"acmauth/internal/domain/service"
	mockSvc "acmauth/internal/mocks/service"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gopkg.in/gomail.v2"
)

var discardLogger = slog.New(slog.DiscardHandler)

type fakeSender struct {
	sent []*gomail.Message
	err  error
}

func (f *fakeSender) DialAndSend(m ...*gomail.Message) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, m...)

	return nil
}

func TestSMTPNotifier_Send(t *testing.T) {
	sender := &fakeSender{}
	n := &smtpNotifier{from: "noreply@example.com", sender: sender, logger: discardLogger}

	err := n.Send(context.Background(), service.Message{
		To:      "ada@example.com",
		Subject: "Confirm your account",
		Body:    "http://localhost/users/confirm/abc",
	})
	require.NoError(t, err)
	require.Len(t, sender.sent, 1)

	msg := sender.sent[0]
	assert.Equal(t, []string{"noreply@example.com"}, msg.GetHeader("From"))
	assert.Equal(t, []string{"ada@example.com"}, msg.GetHeader("To"))
	assert.Equal(t, []string{"Confirm your account"}, msg.GetHeader("Subject"))
}

func TestSMTPNotifier_Send_ToSenderAddress(t *testing.T) {
	sender := &fakeSender{}
	n := &smtpNotifier{from: "acm@example.com", sender: sender, logger: discardLogger}

	err := n.Send(context.Background(), service.Message{
		To:      "acm@example.com",
		Subject: "ACM Question",
		Body:    "Sender: Ada",
		ReplyTo: "ada@example.com",
	})
	require.NoError(t, err)
	require.Len(t, sender.sent, 1)
	assert.Equal(t, []string{"acm@example.com"}, sender.sent[0].GetHeader("To"))
	assert.Equal(t, []string{"ada@example.com"}, sender.sent[0].GetHeader("Reply-To"))
}

func TestSMTPNotifier_Send_Errors(t *testing.T) {
	sender := &fakeSender{err: errors.New("connection refused")}
	n := &smtpNotifier{from: "noreply@example.com", sender: sender, logger: discardLogger}

	t.Run("driver failure", func(t *testing.T) {
		err := n.Send(context.Background(), service.Message{To: "ada@example.com"})
		assert.ErrorContains(t, err, "connection refused")
	})

	t.Run("empty recipient", func(t *testing.T) {
		err := n.Send(context.Background(), service.Message{})
		assert.Error(t, err)
	})

	t.Run("cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		err := n.Send(ctx, service.Message{To: "ada@example.com"})
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestRetryingNotifier_RecoversAfterFailures(t *testing.T) {
	next := mockSvc.NewMockNotifier(t)
	msg := service.Message{To: "ada@example.com", Subject: "s", Body: "b"}

	next.EXPECT().Send(mock.Anything, msg).Return(errors.New("temporary")).Times(2)
	next.EXPECT().Send(mock.Anything, msg).Return(nil).Times(1)

	n := NewRetryingNotifier(next, 3, time.Millisecond, discardLogger)
	assert.NoError(t, n.Send(context.Background(), msg))
}

func TestRetryingNotifier_GivesUp(t *testing.T) {
	next := mockSvc.NewMockNotifier(t)
	msg := service.Message{To: "ada@example.com"}
	sendErr := errors.New("smtp down")

	// One initial attempt plus two retries.
	next.EXPECT().Send(mock.Anything, msg).Return(sendErr).Times(3)

	n := NewRetryingNotifier(next, 2, time.Millisecond, discardLogger)
	err := n.Send(context.Background(), msg)
	assert.ErrorIs(t, err, sendErr)
}

func TestNewNotifier(t *testing.T) {
	tests := []struct {
		name    string
		mail    *config.MailConfig
		wantErr bool
	}{
		{name: "not configured", mail: nil},
		{name: "log provider", mail: &config.MailConfig{Provider: config.MailProviderLog}},
		{name: "smtp provider", mail: &config.MailConfig{Provider: config.MailProviderSMTP, From: "a@b.c", Host: "localhost", Port: 25}},
		{name: "smtp without host", mail: &config.MailConfig{Provider: config.MailProviderSMTP, From: "a@b.c"}, wantErr: true},
		{name: "unknown provider", mail: &config.MailConfig{Provider: "carrier-pigeon"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, err := NewNotifier(&config.Config{Mail: tt.mail}, discardLogger)
			if tt.wantErr {
				assert.Error(t, err)

				return
			}
			require.NoError(t, err)
			assert.NotNil(t, n)
		})
	}
}

func TestLogNotifier_Send(t *testing.T) {
	n := NewLogNotifier(discardLogger)
	assert.NoError(t, n.Send(context.Background(), service.Message{To: "ada@example.com"}))
}
