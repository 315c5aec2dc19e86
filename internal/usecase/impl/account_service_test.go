package impl

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"acmauth/config"
	"acmauth/internal/domain/entity"
	domainerrors "acmauth/internal/domain/errors"
	"acmauth/internal/domain/repository"
	"acmauth/internal/domain/service"
	"acmauth/internal/usecase"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const (
	testEmail    = "ada@example.com"
	testPassword = "password"
)

func (f accountServiceFixtures) allowNotifications() {
	f.notifier.EXPECT().Send(mock.Anything, mock.Anything).Return(nil).Maybe()
}

// registerVerified registers testEmail and confirms it.
func (f accountServiceFixtures) registerVerified(t *testing.T, ctx context.Context) *entity.Account {
	t.Helper()

	out, err := f.service.Register(ctx, &usecase.RegisterInput{Email: testEmail, Password: testPassword})
	require.NoError(t, err)

	account, err := f.service.ConfirmToken(ctx, out.Account.ConfirmEmailToken)
	require.NoError(t, err)

	return account
}

func TestAccountService_Register_Success(t *testing.T) {
	f := createTestAccountService(t)
	ctx := context.Background()

	var sent service.Message
	f.notifier.EXPECT().Send(mock.Anything, mock.Anything).
		Run(func(_ context.Context, msg service.Message) { sent = msg }).
		Return(nil).Times(1)

	out, err := f.service.Register(ctx, &usecase.RegisterInput{
		Email:    "  Ada@Example.COM ",
		Password: testPassword,
		Profile:  entity.Profile{FirstName: "Ada", LastName: "Lovelace", Classification: "senior"},
	})
	require.NoError(t, err)
	require.NoError(t, out.NotifyErr)

	account := out.Account
	assert.Equal(t, testEmail, account.Email)
	assert.False(t, account.Verified)
	assert.Len(t, account.ConfirmEmailToken, 40)
	assert.NotEmpty(t, account.PasswordHash)
	assert.NotEqual(t, testPassword, account.PasswordHash)
	assert.Equal(t, "Ada", account.Profile.FirstName)

	assert.Equal(t, testEmail, sent.To)
	assert.Contains(t, sent.Body, "http://acm.test/users/confirm/"+account.ConfirmEmailToken)
}

func TestAccountService_Register_Duplicate(t *testing.T) {
	f := createTestAccountService(t)
	f.allowNotifications()
	ctx := context.Background()

	_, err := f.service.Register(ctx, &usecase.RegisterInput{Email: testEmail, Password: testPassword})
	require.NoError(t, err)

	_, err = f.service.Register(ctx, &usecase.RegisterInput{Email: "ADA@example.com", Password: "other"})
	require.Error(t, err)
	assert.ErrorIs(t, err, domainerrors.ErrDuplicateAccount)
}

func TestAccountService_Register_InvalidInput(t *testing.T) {
	tests := []struct {
		name     string
		minLen   int
		email    string
		password string
	}{
		{name: "empty password", email: testEmail, password: ""},
		{name: "empty email", email: "  ", password: testPassword},
		{name: "too short", minLen: 12, email: testEmail, password: "short"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := createTestAccountService(t, func(a *config.AuthConfig) { a.MinPasswordLength = tt.minLen })

			_, err := f.service.Register(context.Background(), &usecase.RegisterInput{Email: tt.email, Password: tt.password})
			assert.ErrorIs(t, err, domainerrors.ErrInvalidInput)
		})
	}
}

func TestAccountService_Register_NotifierFailure(t *testing.T) {
	f := createTestAccountService(t)
	ctx := context.Background()

	f.notifier.EXPECT().Send(mock.Anything, mock.Anything).Return(errors.New("smtp down")).Times(1)

	out, err := f.service.Register(ctx, &usecase.RegisterInput{Email: testEmail, Password: testPassword})
	require.NoError(t, err, "a notifier failure must not fail registration")
	require.Error(t, out.NotifyErr)
	assert.Contains(t, out.NotifyErr.Error(), "smtp down")

	stored, err := f.repo.FindByEmail(ctx, testEmail)
	require.NoError(t, err)
	assert.Equal(t, out.Account.ID, stored.ID)
}

func TestAccountService_Register_WithoutConfirmationEmail(t *testing.T) {
	f := createTestAccountService(t, func(a *config.AuthConfig) { a.SendConfirmationEmail = false })

	out, err := f.service.Register(context.Background(), &usecase.RegisterInput{Email: testEmail, Password: testPassword})
	require.NoError(t, err)
	assert.NotEmpty(t, out.Account.ConfirmEmailToken)
	f.notifier.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)
}

func TestAccountService_Register_Concurrent(t *testing.T) {
	f := createTestAccountService(t)
	f.allowNotifications()
	ctx := context.Background()

	const workers = 20
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		dupes     int
		others    []error
	)
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.service.Register(ctx, &usecase.RegisterInput{Email: testEmail, Password: testPassword})

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.Is(err, domainerrors.ErrDuplicateAccount):
				dupes++
			default:
				others = append(others, err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	assert.Equal(t, workers-1, dupes)
	assert.Empty(t, others)
}

func TestAccountService_Login_UnverifiedBlocked(t *testing.T) {
	f := createTestAccountService(t)
	f.allowNotifications()
	ctx := context.Background()

	_, err := f.service.Register(ctx, &usecase.RegisterInput{Email: testEmail, Password: testPassword})
	require.NoError(t, err)

	_, err = f.service.Login(ctx, &usecase.LoginInput{Email: testEmail, Password: testPassword})
	assert.ErrorIs(t, err, domainerrors.ErrUserNotVerified)

	// Regardless of password correctness.
	_, err = f.service.Login(ctx, &usecase.LoginInput{Email: testEmail, Password: "wrong"})
	assert.ErrorIs(t, err, domainerrors.ErrUserNotVerified)
}

func TestAccountService_ConfirmToken(t *testing.T) {
	f := createTestAccountService(t)
	f.allowNotifications()
	ctx := context.Background()

	out, err := f.service.Register(ctx, &usecase.RegisterInput{Email: testEmail, Password: testPassword})
	require.NoError(t, err)
	token := out.Account.ConfirmEmailToken

	account, err := f.service.ConfirmToken(ctx, token)
	require.NoError(t, err)
	assert.True(t, account.Verified)
	assert.Empty(t, account.ConfirmEmailToken)

	_, err = f.service.ConfirmToken(ctx, token)
	assert.ErrorIs(t, err, domainerrors.ErrNotFound)

	_, err = f.service.ConfirmToken(ctx, "")
	assert.ErrorIs(t, err, domainerrors.ErrNotFound)

	_, err = f.service.ConfirmToken(ctx, "bogus")
	assert.ErrorIs(t, err, domainerrors.ErrNotFound)
}

func TestAccountService_Login(t *testing.T) {
	f := createTestAccountService(t)
	f.allowNotifications()
	ctx := context.Background()
	registered := f.registerVerified(t, ctx)

	_, err := f.service.Login(ctx, &usecase.LoginInput{Email: testEmail, Password: "wrong"})
	assert.ErrorIs(t, err, domainerrors.ErrInvalidLogin)

	out, err := f.service.Login(ctx, &usecase.LoginInput{Email: "ADA@example.com", Password: testPassword})
	require.NoError(t, err)
	assert.NotEmpty(t, out.Token)
	require.NotNil(t, out.User)
	assert.Equal(t, registered.ID, out.User.ID)

	body, err := json.Marshal(out.User)
	require.NoError(t, err)
	assert.NotContains(t, string(body), "password")
	assert.NotContains(t, string(body), registered.PasswordHash)

	assert.Equal(t, f.clock.Now().Add(7*24*time.Hour), out.ExpiresAt)

	snapshot, err := f.service.VerifySession(ctx, out.Token)
	require.NoError(t, err)
	assert.Equal(t, registered.ID, snapshot.ID)
	assert.Equal(t, testEmail, snapshot.Email)
}

func TestAccountService_Login_UnknownEmail(t *testing.T) {
	t.Run("collapsed", func(t *testing.T) {
		f := createTestAccountService(t)

		_, err := f.service.Login(context.Background(), &usecase.LoginInput{Email: "nobody@example.com", Password: testPassword})
		assert.ErrorIs(t, err, domainerrors.ErrInvalidLogin)
		assert.NotErrorIs(t, err, domainerrors.ErrNotFound)
	})

	t.Run("distinct", func(t *testing.T) {
		f := createTestAccountService(t, func(a *config.AuthConfig) { a.CollapseLoginNotFound = false })

		_, err := f.service.Login(context.Background(), &usecase.LoginInput{Email: "nobody@example.com", Password: testPassword})
		assert.ErrorIs(t, err, domainerrors.ErrNotFound)
	})
}

func TestAccountService_ForgotLogin(t *testing.T) {
	f := createTestAccountService(t)
	ctx := context.Background()
	f.notifier.EXPECT().Send(mock.Anything, mock.MatchedBy(func(msg service.Message) bool {
		return msg.Subject == "Confirm your ACM account"
	})).Return(nil).Times(1)
	f.registerVerified(t, ctx)

	_, err := f.service.ForgotLogin(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, domainerrors.ErrNotFound)

	var sent service.Message
	f.notifier.EXPECT().Send(mock.Anything, mock.MatchedBy(func(msg service.Message) bool {
		return msg.Subject == "ACM password reset"
	})).Run(func(_ context.Context, msg service.Message) { sent = msg }).Return(nil).Times(1)

	out, err := f.service.ForgotLogin(ctx, testEmail)
	require.NoError(t, err)
	require.NoError(t, out.NotifyErr)
	assert.NotEmpty(t, out.Account.ResetPasswordToken)
	require.NotNil(t, out.Account.ResetPasswordExpires)
	assert.WithinDuration(t, f.clock.Now().Add(3*time.Hour), *out.Account.ResetPasswordExpires, time.Second)
	assert.True(t, out.Account.Verified)
	assert.Contains(t, sent.Body, "http://acm.test/users/reset/"+out.Account.ResetPasswordToken)
}

func TestAccountService_ForgotLogin_NotifierFailure(t *testing.T) {
	f := createTestAccountService(t, func(a *config.AuthConfig) { a.SendConfirmationEmail = false })
	ctx := context.Background()
	f.registerVerified(t, ctx)

	f.notifier.EXPECT().Send(mock.Anything, mock.Anything).Return(errors.New("smtp down")).Times(1)

	out, err := f.service.ForgotLogin(ctx, testEmail)
	require.NoError(t, err)
	assert.Error(t, out.NotifyErr)

	// The token is durable even though the mail never went out.
	_, err = f.service.ResetToken(ctx, out.Account.ResetPasswordToken)
	assert.NoError(t, err)
}

func TestAccountService_ResetToken(t *testing.T) {
	f := createTestAccountService(t)
	f.allowNotifications()
	ctx := context.Background()
	f.registerVerified(t, ctx)

	_, err := f.service.ResetToken(ctx, "")
	assert.ErrorIs(t, err, domainerrors.ErrMissingToken)

	_, err = f.service.ResetToken(ctx, "bogus")
	assert.ErrorIs(t, err, domainerrors.ErrNotFound)

	out, err := f.service.ForgotLogin(ctx, testEmail)
	require.NoError(t, err)
	token := out.Account.ResetPasswordToken

	account, err := f.service.ResetToken(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, out.Account.ID, account.ID)

	// Validation does not consume the token.
	_, err = f.service.ResetToken(ctx, token)
	require.NoError(t, err)

	f.clock.Advance(3 * time.Hour)
	_, err = f.service.ResetToken(ctx, token)
	assert.ErrorIs(t, err, domainerrors.ErrNotFound, "a token is expired at its expiry instant")
}

func TestAccountService_Reset_MismatchDoesNotMutate(t *testing.T) {
	f := createTestAccountService(t)
	f.allowNotifications()
	ctx := context.Background()
	f.registerVerified(t, ctx)

	out, err := f.service.ForgotLogin(ctx, testEmail)
	require.NoError(t, err)
	before, err := f.repo.FindByEmail(ctx, testEmail)
	require.NoError(t, err)

	_, err = f.service.Reset(ctx, &usecase.ResetInput{
		Token:           out.Account.ResetPasswordToken,
		Password:        "a",
		ConfirmPassword: "b",
	})
	assert.ErrorIs(t, err, domainerrors.ErrInvalidInput)

	after, err := f.repo.FindByEmail(ctx, testEmail)
	require.NoError(t, err)
	assert.Equal(t, before.PasswordHash, after.PasswordHash)
	assert.Equal(t, before.ResetPasswordToken, after.ResetPasswordToken)
	assert.Equal(t, before.ResetPasswordExpires, after.ResetPasswordExpires)
}

func TestAccountService_Reset_InvalidToken(t *testing.T) {
	f := createTestAccountService(t)
	f.allowNotifications()
	ctx := context.Background()
	f.registerVerified(t, ctx)

	_, err := f.service.Reset(ctx, &usecase.ResetInput{Token: "", Password: "new", ConfirmPassword: "new"})
	assert.ErrorIs(t, err, domainerrors.ErrMissingToken)

	_, err = f.service.Reset(ctx, &usecase.ResetInput{Token: "bogus", Password: "new", ConfirmPassword: "new"})
	assert.ErrorIs(t, err, domainerrors.ErrNotFound)

	out, err := f.service.ForgotLogin(ctx, testEmail)
	require.NoError(t, err)

	f.clock.Advance(4 * time.Hour)
	_, err = f.service.Reset(ctx, &usecase.ResetInput{Token: out.Account.ResetPasswordToken, Password: "new", ConfirmPassword: "new"})
	assert.ErrorIs(t, err, domainerrors.ErrNotFound)
}

func TestAccountService_RoundTrip(t *testing.T) {
	f := createTestAccountService(t)
	ctx := context.Background()

	var subjects []string
	f.notifier.EXPECT().Send(mock.Anything, mock.Anything).
		Run(func(_ context.Context, msg service.Message) { subjects = append(subjects, msg.Subject) }).
		Return(nil)

	f.registerVerified(t, ctx)

	_, err := f.service.Login(ctx, &usecase.LoginInput{Email: testEmail, Password: testPassword})
	require.NoError(t, err)

	forgot, err := f.service.ForgotLogin(ctx, testEmail)
	require.NoError(t, err)
	token := forgot.Account.ResetPasswordToken

	resetOut, err := f.service.Reset(ctx, &usecase.ResetInput{Token: token, Password: "new-password", ConfirmPassword: "new-password"})
	require.NoError(t, err)
	assert.NoError(t, resetOut.NotifyErr)

	_, err = f.service.Login(ctx, &usecase.LoginInput{Email: testEmail, Password: "new-password"})
	require.NoError(t, err)

	_, err = f.service.Login(ctx, &usecase.LoginInput{Email: testEmail, Password: testPassword})
	assert.ErrorIs(t, err, domainerrors.ErrInvalidLogin)

	// The reset token is single-use.
	_, err = f.service.Reset(ctx, &usecase.ResetInput{Token: token, Password: "again", ConfirmPassword: "again"})
	assert.ErrorIs(t, err, domainerrors.ErrNotFound)

	stored, err := f.repo.FindByEmail(ctx, testEmail)
	require.NoError(t, err)
	assert.Empty(t, stored.ResetPasswordToken)
	assert.Nil(t, stored.ResetPasswordExpires)

	assert.Equal(t, []string{
		"Confirm your ACM account",
		"ACM password reset",
		"Your password has been changed",
	}, subjects)
}

func TestAccountService_Reset_NotifierFailure(t *testing.T) {
	f := createTestAccountService(t, func(a *config.AuthConfig) { a.SendConfirmationEmail = false })
	ctx := context.Background()
	f.registerVerified(t, ctx)

	f.notifier.EXPECT().Send(mock.Anything, mock.Anything).Return(nil).Times(1)
	forgot, err := f.service.ForgotLogin(ctx, testEmail)
	require.NoError(t, err)

	f.notifier.EXPECT().Send(mock.Anything, mock.Anything).Return(errors.New("smtp down")).Times(1)
	out, err := f.service.Reset(ctx, &usecase.ResetInput{
		Token:           forgot.Account.ResetPasswordToken,
		Password:        "new-password",
		ConfirmPassword: "new-password",
	})
	require.NoError(t, err)
	assert.Error(t, out.NotifyErr)

	// The password change stands.
	_, err = f.service.Login(ctx, &usecase.LoginInput{Email: testEmail, Password: "new-password"})
	assert.NoError(t, err)
}

func TestAccountService_VerifyUser(t *testing.T) {
	tests := []struct {
		name          string
		checksExpiry  bool
		advance       time.Duration
		token         string
		wantErr       error
		wantUpdatedPW bool
	}{
		{name: "bogus token", token: "bogus", wantErr: domainerrors.ErrNotFound},
		{name: "valid token", wantUpdatedPW: true},
		{name: "expired token ignored by default", advance: 4 * time.Hour, wantUpdatedPW: true},
		{name: "expired token rejected when strict", checksExpiry: true, advance: 4 * time.Hour, wantErr: domainerrors.ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := createTestAccountService(t, func(a *config.AuthConfig) { a.VerifyUserChecksExpiry = tt.checksExpiry })
			f.allowNotifications()
			ctx := context.Background()
			f.registerVerified(t, ctx)

			forgot, err := f.service.ForgotLogin(ctx, testEmail)
			require.NoError(t, err)
			f.clock.Advance(tt.advance)

			token := tt.token
			if token == "" {
				token = forgot.Account.ResetPasswordToken
			}

			account, err := f.service.VerifyUser(ctx, &usecase.VerifyUserInput{Token: token, Password: "verified-pw"})
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)

				return
			}
			require.NoError(t, err)
			assert.Empty(t, account.ResetPasswordToken)

			_, err = f.service.Login(ctx, &usecase.LoginInput{Email: testEmail, Password: "verified-pw"})
			assert.NoError(t, err)
		})
	}
}

func TestAccountService_VerifySession_Invalid(t *testing.T) {
	f := createTestAccountService(t)

	_, err := f.service.VerifySession(context.Background(), "not-a-token")
	assert.ErrorIs(t, err, domainerrors.ErrInvalidToken)
}

func TestAccountService_GetProfile(t *testing.T) {
	f := createTestAccountService(t)
	f.allowNotifications()
	ctx := context.Background()
	registered := f.registerVerified(t, ctx)

	profile, err := f.service.GetProfile(ctx, testEmail)
	require.NoError(t, err)
	assert.Equal(t, registered.ID, profile.ID)
	assert.True(t, profile.Verified)

	_, err = f.service.GetProfile(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, domainerrors.ErrNotFound)
}

// failingRepository returns a raw driver error from every lookup.
type failingRepository struct {
	repository.AccountRepository
}

func (failingRepository) FindByEmail(context.Context, string) (*entity.Account, error) {
	return nil, errors.New("connection reset by peer")
}

func TestAccountService_StoreFailureIsInternal(t *testing.T) {
	f := createTestAccountService(t)
	f.impl.accountRepo = failingRepository{}
	ctx := context.Background()

	_, err := f.service.Login(ctx, &usecase.LoginInput{Email: testEmail, Password: testPassword})
	require.Error(t, err)
	assert.Equal(t, domainerrors.ErrInternalError, domainerrors.KindOf(err))
	assert.Contains(t, err.Error(), "connection reset by peer")

	_, err = f.service.Register(ctx, &usecase.RegisterInput{Email: testEmail, Password: testPassword})
	assert.Equal(t, domainerrors.ErrInternalError, domainerrors.KindOf(err))
}

// countingHasher records how many password comparisons were made.
type countingHasher struct {
	service.PasswordHasher
	mu     sync.Mutex
	checks int
}

func (h *countingHasher) Check(password, hash string) bool {
	h.mu.Lock()
	h.checks++
	h.mu.Unlock()

	return h.PasswordHasher.Check(password, hash)
}

func TestAccountService_Login_UnknownEmailComparesPassword(t *testing.T) {
	tests := []struct {
		name     string
		collapse bool
		wantErr  error
	}{
		{name: "collapsed", collapse: true, wantErr: domainerrors.ErrInvalidLogin},
		{name: "distinct", collapse: false, wantErr: domainerrors.ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := createTestAccountService(t, func(a *config.AuthConfig) { a.CollapseLoginNotFound = tt.collapse })
			f.allowNotifications()
			hasher := &countingHasher{PasswordHasher: f.impl.hasher}
			f.impl.hasher = hasher
			ctx := context.Background()
			f.registerVerified(t, ctx)

			_, err := f.service.Login(ctx, &usecase.LoginInput{Email: testEmail, Password: "wrong"})
			require.ErrorIs(t, err, domainerrors.ErrInvalidLogin)
			assert.Equal(t, 1, hasher.checks)

			_, err = f.service.Login(ctx, &usecase.LoginInput{Email: "nobody@example.com", Password: testPassword})
			require.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, 2, hasher.checks, "an unknown email must cost one comparison too")
			assert.NotEmpty(t, f.impl.dummyHash)
		})
	}
}

func TestAccountService_ContactUs(t *testing.T) {
	f := createTestAccountService(t)
	ctx := context.Background()

	var sent service.Message
	f.notifier.EXPECT().Send(mock.Anything, mock.Anything).
		Run(func(_ context.Context, msg service.Message) { sent = msg }).
		Return(nil).Times(1)

	err := f.service.ContactUs(ctx, &usecase.ContactInput{Name: " Ada ", Email: "Ada@Example.com", Message: "When is the next meeting?"})
	require.NoError(t, err)
	assert.Equal(t, "acm@acm.test", sent.To)
	assert.Equal(t, "ACM Question", sent.Subject)
	assert.Equal(t, "ada@example.com", sent.ReplyTo)
	assert.Contains(t, sent.Body, "Sender: Ada <ada@example.com>")
	assert.Contains(t, sent.Body, "When is the next meeting?")
}

func TestAccountService_ContactUs_Errors(t *testing.T) {
	t.Run("invalid input", func(t *testing.T) {
		f := createTestAccountService(t)

		err := f.service.ContactUs(context.Background(), &usecase.ContactInput{Message: "hi"})
		assert.ErrorIs(t, err, domainerrors.ErrInvalidInput)

		err = f.service.ContactUs(context.Background(), &usecase.ContactInput{Name: "Ada", Message: "  "})
		assert.ErrorIs(t, err, domainerrors.ErrInvalidInput)
	})

	t.Run("notifier failure", func(t *testing.T) {
		f := createTestAccountService(t)
		f.notifier.EXPECT().Send(mock.Anything, mock.Anything).Return(errors.New("smtp down")).Times(1)

		err := f.service.ContactUs(context.Background(), &usecase.ContactInput{Name: "Ada", Message: "hi"})
		assert.ErrorIs(t, err, domainerrors.ErrInternalError)
		assert.ErrorContains(t, err, "smtp down")
	})

	t.Run("no contact address", func(t *testing.T) {
		f := createTestAccountService(t)
		f.impl.policy.contactAddress = ""

		err := f.service.ContactUs(context.Background(), &usecase.ContactInput{Name: "Ada", Message: "hi"})
		assert.ErrorIs(t, err, domainerrors.ErrInternalError)
	})
}
