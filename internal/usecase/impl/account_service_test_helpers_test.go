package impl

import (
	"log/slog"
	"testing"
	"time"

	"acmauth/config"
	"acmauth/internal/infra/auth"
	"acmauth/internal/infra/persistence/memory"
	mockSvc "acmauth/internal/mocks/service"
	"acmauth/internal/usecase"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// accountServiceFixtures holds all test dependencies for account service tests.
type accountServiceFixtures struct {
	service  usecase.AccountUsecase
	impl     *accountService
	repo     *memory.AccountRepository
	notifier *mockSvc.MockNotifier
	clock    *testClock
}

type testClock struct {
	now time.Time
}

func (c *testClock) Now() time.Time { return c.now }

func (c *testClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestConfig() *config.Config {
	cfg := &config.Config{
		Auth: &config.AuthConfig{
			Hasher:                config.HasherBcrypt,
			ResetTokenTTL:         3 * time.Hour,
			SessionTTL:            7 * 24 * time.Hour,
			CollapseLoginNotFound: true,
			SendConfirmationEmail: true,
			BaseURL:               "http://acm.test",
		},
		Mail: &config.MailConfig{From: "acm@acm.test"},
	}
	cfg.SecretKey.Session = "test-session-secret"

	return cfg
}

func createTestAccountService(t *testing.T, mutate ...func(*config.AuthConfig)) accountServiceFixtures {
	t.Helper()

	cfg := newTestConfig()
	for _, fn := range mutate {
		fn(cfg.Auth)
	}

	tokens, err := auth.NewJWTService(cfg)
	require.NoError(t, err)

	repo := memory.NewAccountRepository()
	notifier := mockSvc.NewMockNotifier(t)
	clock := &testClock{now: time.Now()}

	svc := NewAccountService(AccountServiceParams{
		AccountRepo: repo,
		Hasher:      auth.NewBcryptHasherWithCost(bcrypt.MinCost),
		Tokens:      tokens,
		Notifier:    notifier,
		Config:      cfg,
		Logger:      slog.New(slog.DiscardHandler),
	})
	impl := svc.(*accountService)
	impl.now = clock.Now

	return accountServiceFixtures{
		service:  svc,
		impl:     impl,
		repo:     repo,
		notifier: notifier,
		clock:    clock,
	}
}
