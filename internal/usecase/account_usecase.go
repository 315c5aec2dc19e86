// Package usecase contains the application-specific business rules.
// It orchestrates the domain layer to perform tasks.
package usecase

import (
	"context"
	"time"

	"acmauth/internal/domain/entity"
)

// --- Input DTOs ---

// RegisterInput defines the data required to register a new account.
type RegisterInput struct {
	Email    string
	Password string
	Profile  entity.Profile
}

// LoginInput defines the credentials for a login attempt.
type LoginInput struct {
	Email    string
	Password string
}

// ResetInput defines the data required to redeem a password-reset token.
type ResetInput struct {
	Token           string
	Password        string
	ConfirmPassword string
}

// VerifyUserInput defines the data for a token-authorized password update.
type VerifyUserInput struct {
	Token    string
	Password string
}

// ContactInput is a message left through the public contact form.
type ContactInput struct {
	Name    string
	Email   string
	Message string
}

// --- Output DTOs ---
//
// NotifyErr is set when the state change succeeded but the outbound mail did
// not go out. It never turns a successful operation into a failure.

// RegisterOutput returns the newly created account. The account still carries
// its password hash and confirm token; callers expose only Sanitized().
type RegisterOutput struct {
	Account   *entity.Account
	NotifyErr error
}

// LoginOutput returns the session token, its expiry and the sanitized account.
type LoginOutput struct {
	Token     string
	ExpiresAt time.Time
	User      *entity.PublicAccount
}

// ForgotLoginOutput returns the account with its freshly issued reset token.
type ForgotLoginOutput struct {
	Account   *entity.Account
	NotifyErr error
}

// ResetOutput reports the outcome of a password reset.
type ResetOutput struct {
	NotifyErr error
}

// AccountUsecase defines the account lifecycle operations.
// This is the contract that the delivery layer (e.g., API handlers) will depend on.
type AccountUsecase interface {
	Register(ctx context.Context, input *RegisterInput) (*RegisterOutput, error)
	ConfirmToken(ctx context.Context, token string) (*entity.Account, error)
	Login(ctx context.Context, input *LoginInput) (*LoginOutput, error)
	ForgotLogin(ctx context.Context, email string) (*ForgotLoginOutput, error)
	ResetToken(ctx context.Context, token string) (*entity.Account, error)
	Reset(ctx context.Context, input *ResetInput) (*ResetOutput, error)
	VerifyUser(ctx context.Context, input *VerifyUserInput) (*entity.Account, error)

	// VerifySession validates a session token and returns the identity it carries.
	VerifySession(ctx context.Context, token string) (*entity.SessionSnapshot, error)
	// GetProfile returns the sanitized account for a normalized email.
	GetProfile(ctx context.Context, email string) (*entity.PublicAccount, error)
	// ContactUs forwards a contact-form message to the configured contact address.
	ContactUs(ctx context.Context, input *ContactInput) error
}
