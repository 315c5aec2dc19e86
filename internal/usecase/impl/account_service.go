// Package impl contains the implementation of the application's business logic.
package impl

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"acmauth/config"
	deliverycontext "acmauth/internal/delivery/context"
	"acmauth/internal/domain/entity"
	domainerrors "acmauth/internal/domain/errors"
	"acmauth/internal/domain/repository"
	"acmauth/internal/domain/service"
	"acmauth/internal/usecase"

	"github.com/pkg/errors"
	"go.uber.org/fx"
)

const defaultResetTokenTTL = 3 * time.Hour

// unknownAccountPassword is hashed once and checked against on logins for
// unknown emails, so both failure paths cost one hash comparison.
const unknownAccountPassword = "acmauth-unknown-account"

// accountPolicy holds the configurable account rules.
type accountPolicy struct {
	minPasswordLength      int
	resetTokenTTL          time.Duration
	collapseLoginNotFound  bool
	verifyUserChecksExpiry bool
	sendConfirmationEmail  bool
	baseURL                string
	contactAddress         string
}

// accountService implements the AccountUsecase interface.
type accountService struct {
	accountRepo repository.AccountRepository
	hasher      service.PasswordHasher
	tokens      service.TokenIssuer
	notifier    service.Notifier
	policy      accountPolicy
	now         func() time.Time
	logger      *slog.Logger

	dummyHashOnce sync.Once
	dummyHash     string
}

// AccountServiceParams holds dependencies for AccountService, injected by Fx.
type AccountServiceParams struct {
	fx.In

	AccountRepo repository.AccountRepository
	Hasher      service.PasswordHasher
	Tokens      service.TokenIssuer
	Notifier    service.Notifier
	Config      *config.Config
	Logger      *slog.Logger
}

// NewAccountService is the constructor for accountService. It receives all dependencies as interfaces.
func NewAccountService(params AccountServiceParams) usecase.AccountUsecase {
	policy := accountPolicy{
		resetTokenTTL:         defaultResetTokenTTL,
		collapseLoginNotFound: true,
		sendConfirmationEmail: true,
	}
	if params.Config != nil && params.Config.Auth != nil {
		authCfg := params.Config.Auth
		policy.minPasswordLength = authCfg.MinPasswordLength
		policy.collapseLoginNotFound = authCfg.CollapseLoginNotFound
		policy.verifyUserChecksExpiry = authCfg.VerifyUserChecksExpiry
		policy.sendConfirmationEmail = authCfg.SendConfirmationEmail
		policy.baseURL = authCfg.BaseURL
		if authCfg.ResetTokenTTL > 0 {
			policy.resetTokenTTL = authCfg.ResetTokenTTL
		}
	}
	if params.Config != nil && params.Config.Mail != nil {
		policy.contactAddress = params.Config.Mail.ContactAddress
		if policy.contactAddress == "" {
			policy.contactAddress = params.Config.Mail.From
		}
	}

	return &accountService{
		accountRepo: params.AccountRepo,
		hasher:      params.Hasher,
		tokens:      params.Tokens,
		notifier:    params.Notifier,
		policy:      policy,
		now:         time.Now,
		logger:      params.Logger,
	}
}

// log returns a request-scoped logger if available, otherwise falls back to the service's logger.
func (srv *accountService) log(ctx context.Context) *slog.Logger {
	return deliverycontext.GetLoggerOrDefault(ctx, srv.logger)
}

// Register creates an unverified account with a fresh confirm token.
func (srv *accountService) Register(ctx context.Context, input *usecase.RegisterInput) (*usecase.RegisterOutput, error) {
	email := entity.NormalizeEmail(input.Email)
	if email == "" {
		return nil, domainerrors.ErrInvalidInput.WithDetails("email is required")
	}
	if err := srv.validatePassword(input.Password); err != nil {
		srv.log(ctx).Warn("Password validation failed during registration", slog.String("email", email))

		return nil, err
	}

	// Fast path to skip hashing for known addresses. The store's unique index
	// still decides concurrent registrations.
	if _, err := srv.accountRepo.FindByEmail(ctx, email); err == nil {
		return nil, domainerrors.ErrDuplicateAccount.WrapMessage("email already registered")
	} else if !errors.Is(err, domainerrors.ErrNotFound) {
		return nil, domainerrors.Internal(err, "failed to look up account")
	}

	hash, err := srv.hasher.Hash(input.Password)
	if err != nil {
		srv.log(ctx).Error("Failed to hash password during registration", slog.Any("error", err))

		return nil, domainerrors.Internal(err, "failed to hash password")
	}

	confirmToken, err := srv.tokens.RandomToken()
	if err != nil {
		return nil, domainerrors.Internal(err, "failed to generate confirm token")
	}

	account := &entity.Account{
		Email:             email,
		PasswordHash:      hash,
		Verified:          false,
		ConfirmEmailToken: confirmToken,
		Profile:           input.Profile,
	}
	if err := srv.accountRepo.Create(ctx, account); err != nil {
		if errors.Is(err, domainerrors.ErrDuplicateAccount) {
			srv.log(ctx).Warn("Registration rejected, email already exists", slog.String("email", email))
		}

		return nil, domainerrors.Internal(err, "failed to create account")
	}

	srv.log(ctx).Info("Account registered", slog.Any("accountID", account.ID))

	output := &usecase.RegisterOutput{Account: account}
	if srv.policy.sendConfirmationEmail {
		output.NotifyErr = srv.notify(ctx, srv.confirmEmailMessage(account))
	}

	return output, nil
}

// ConfirmToken verifies the account holding token. The token is single-use.
func (srv *accountService) ConfirmToken(ctx context.Context, token string) (*entity.Account, error) {
	if token == "" {
		return nil, domainerrors.ErrNotFound.WrapMessage("confirm token is empty")
	}

	account, err := srv.accountRepo.ConfirmEmail(ctx, token)
	if err != nil {
		return nil, domainerrors.Internal(err, "failed to confirm account")
	}

	srv.log(ctx).Info("Account verified", slog.Any("accountID", account.ID))

	return account, nil
}

// Login checks the credentials of a verified account and issues a session token.
func (srv *accountService) Login(ctx context.Context, input *usecase.LoginInput) (*usecase.LoginOutput, error) {
	email := entity.NormalizeEmail(input.Email)
	srv.log(ctx).Debug("Starting login", slog.String("email", email))

	account, err := srv.accountRepo.FindByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, domainerrors.ErrNotFound) {
			return nil, domainerrors.Internal(err, "failed to find account")
		}

		srv.checkUnknownAccount(ctx, input.Password)
		srv.log(ctx).Warn("Login failed", slog.String("email", email), slog.String("reason", "unknown email"))

		if srv.policy.collapseLoginNotFound {
			return nil, domainerrors.ErrInvalidLogin.WrapMessage("login failed")
		}

		return nil, errors.WithMessage(err, "login failed")
	}

	// Unverified accounts are blocked before the password is even checked.
	if !account.Verified {
		return nil, domainerrors.ErrUserNotVerified.WrapMessage("login failed")
	}

	if !srv.hasher.Check(input.Password, account.PasswordHash) {
		srv.log(ctx).Warn("Login failed", slog.String("email", email), slog.String("reason", "password mismatch"))

		return nil, domainerrors.ErrInvalidLogin.WrapMessage("login failed")
	}

	token, err := srv.tokens.SignSession(account.Snapshot())
	if err != nil {
		return nil, domainerrors.Internal(err, "failed to sign session")
	}

	srv.log(ctx).Debug("Login successful", slog.Any("accountID", account.ID))

	return &usecase.LoginOutput{
		Token:     token,
		ExpiresAt: srv.now().Add(srv.tokens.SessionTTL()),
		User:      account.Sanitized(),
	}, nil
}

// ForgotLogin issues a time-boxed reset token and mails the reset link.
func (srv *accountService) ForgotLogin(ctx context.Context, email string) (*usecase.ForgotLoginOutput, error) {
	email = entity.NormalizeEmail(email)

	if email == "" {
		return nil, domainerrors.ErrNotFound.WrapMessage("email is empty")
	}

	token, err := srv.tokens.RandomToken()
	if err != nil {
		return nil, domainerrors.Internal(err, "failed to generate reset token")
	}

	// Unknown emails surface as NotFound from the store.
	account, err := srv.accountRepo.IssueResetToken(ctx, email, token, srv.now().Add(srv.policy.resetTokenTTL))
	if err != nil {
		return nil, domainerrors.Internal(err, "failed to issue reset token")
	}

	srv.log(ctx).Info("Password reset requested", slog.Any("accountID", account.ID))

	return &usecase.ForgotLoginOutput{
		Account:   account,
		NotifyErr: srv.notify(ctx, srv.resetLinkMessage(account)),
	}, nil
}

// ResetToken validates a reset token without consuming it.
func (srv *accountService) ResetToken(ctx context.Context, token string) (*entity.Account, error) {
	if token == "" {
		return nil, domainerrors.ErrMissingToken.WrapMessage("reset token is required")
	}

	account, err := srv.accountRepo.FindByResetToken(ctx, token, srv.now(), true)
	if err != nil {
		return nil, domainerrors.Internal(err, "failed to find reset token")
	}

	return account, nil
}

// Reset redeems a reset token for a new password.
func (srv *accountService) Reset(ctx context.Context, input *usecase.ResetInput) (*usecase.ResetOutput, error) {
	// Checked before any lookup so a mismatch never mutates the account.
	if input.Password != input.ConfirmPassword {
		return nil, domainerrors.ErrInvalidInput.WithDetails("password and confirm password must match")
	}
	if err := srv.validatePassword(input.Password); err != nil {
		return nil, err
	}

	// Reject invalid or expired tokens before paying for a hash.
	if _, err := srv.ResetToken(ctx, input.Token); err != nil {
		return nil, err
	}

	hash, err := srv.hasher.Hash(input.Password)
	if err != nil {
		return nil, domainerrors.Internal(err, "failed to hash password")
	}

	account, err := srv.accountRepo.ResetPassword(ctx, input.Token, hash, srv.now(), true)
	if err != nil {
		return nil, domainerrors.Internal(err, "failed to reset password")
	}

	srv.log(ctx).Info("Password reset", slog.Any("accountID", account.ID))

	return &usecase.ResetOutput{
		NotifyErr: srv.notify(ctx, passwordChangedMessage(account)),
	}, nil
}

// VerifyUser sets a new password on the account holding the reset token.
// Expiry is only enforced when the verifyUserChecksExpiry policy is on.
func (srv *accountService) VerifyUser(ctx context.Context, input *usecase.VerifyUserInput) (*entity.Account, error) {
	if err := srv.validatePassword(input.Password); err != nil {
		return nil, err
	}

	now := srv.now()
	requireUnexpired := srv.policy.verifyUserChecksExpiry

	if _, err := srv.accountRepo.FindByResetToken(ctx, input.Token, now, requireUnexpired); err != nil {
		return nil, domainerrors.Internal(err, "failed to find reset token")
	}

	hash, err := srv.hasher.Hash(input.Password)
	if err != nil {
		return nil, domainerrors.Internal(err, "failed to hash password")
	}

	account, err := srv.accountRepo.ResetPassword(ctx, input.Token, hash, now, requireUnexpired)
	if err != nil {
		return nil, domainerrors.Internal(err, "failed to update account")
	}

	return account, nil
}

// VerifySession validates a session token.
func (srv *accountService) VerifySession(ctx context.Context, token string) (*entity.SessionSnapshot, error) {
	snapshot, err := srv.tokens.VerifySession(token)
	if err != nil {
		if domainerrors.KindOf(err) == nil {
			return nil, errors.Wrap(domainerrors.ErrInvalidToken, err.Error())
		}

		return nil, err
	}

	return snapshot, nil
}

// GetProfile returns the sanitized account for email.
func (srv *accountService) GetProfile(ctx context.Context, email string) (*entity.PublicAccount, error) {
	account, err := srv.accountRepo.FindByEmail(ctx, entity.NormalizeEmail(email))
	if err != nil {
		return nil, domainerrors.Internal(err, "failed to find account")
	}

	return account.Sanitized(), nil
}

// ContactUs mails a contact-form message to the contact address. Unlike the
// account notifications, a delivery failure fails the operation.
func (srv *accountService) ContactUs(ctx context.Context, input *usecase.ContactInput) error {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return domainerrors.ErrInvalidInput.WithDetails("name is required")
	}
	if strings.TrimSpace(input.Message) == "" {
		return domainerrors.ErrInvalidInput.WithDetails("message is required")
	}
	if srv.policy.contactAddress == "" {
		return domainerrors.Internal(errors.New("no contact address configured"), "failed to send contact message")
	}

	msg := srv.contactMessage(name, entity.NormalizeEmail(input.Email), input.Message)
	if err := srv.notifier.Send(ctx, msg); err != nil {
		srv.log(ctx).Error("Failed to send contact message", slog.Any("error", err))

		return domainerrors.Internal(err, "failed to send contact message")
	}

	srv.log(ctx).Info("Contact message sent", slog.String("name", name))

	return nil
}

// checkUnknownAccount spends the same work on an unknown email as a password
// comparison against a real account would.
func (srv *accountService) checkUnknownAccount(ctx context.Context, password string) {
	srv.dummyHashOnce.Do(func() {
		hash, err := srv.hasher.Hash(unknownAccountPassword)
		if err != nil {
			srv.log(ctx).Warn("Failed to prepare unknown-account hash", slog.Any("error", err))

			return
		}
		srv.dummyHash = hash
	})

	srv.hasher.Check(password, srv.dummyHash)
}

func (srv *accountService) validatePassword(password string) error {
	if password == "" {
		return domainerrors.ErrInvalidInput.WithDetails("password is required")
	}
	if srv.policy.minPasswordLength > 0 && len(password) < srv.policy.minPasswordLength {
		return domainerrors.ErrInvalidInput.WithDetails("password is too short")
	}

	return nil
}

// notify sends msg after the state change has committed. A failure is logged
// and handed back for the output's NotifyErr.
func (srv *accountService) notify(ctx context.Context, msg service.Message) error {
	if err := srv.notifier.Send(ctx, msg); err != nil {
		srv.log(ctx).Warn("Failed to send notification",
			slog.String("to", msg.To),
			slog.String("subject", msg.Subject),
			slog.Any("error", err),
		)

		return errors.Wrap(err, "failed to send notification")
	}

	return nil
}
