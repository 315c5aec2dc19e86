// Package repository defines the interfaces for the persistence layer.
// These interfaces act as a contract between the domain/application layers and the infrastructure layer.
package repository

import (
	"context"
	"time"

	"acmauth/internal/domain/entity"
)

// AccountRepository defines the persistence operations for accounts.
//
// Lookups that match nothing return an error matching domainerrors.ErrNotFound.
// Create returns an error matching domainerrors.ErrDuplicateAccount when the
// normalized email is already taken; uniqueness is enforced by the store itself.
type AccountRepository interface {
	// FindByEmail retrieves an account by its normalized email.
	FindByEmail(ctx context.Context, email string) (*entity.Account, error)

	// FindByConfirmToken retrieves the account holding the given confirm-email token.
	FindByConfirmToken(ctx context.Context, token string) (*entity.Account, error)

	// FindByResetToken retrieves the account holding the given reset token.
	// When requireUnexpired is set, accounts whose reset expiry is not after now are ignored.
	FindByResetToken(ctx context.Context, token string, now time.Time, requireUnexpired bool) (*entity.Account, error)

	// Create inserts a new account and fills in its ID and timestamps.
	Create(ctx context.Context, account *entity.Account) error

	// Update overwrites the mutable fields of an existing account.
	Update(ctx context.Context, account *entity.Account) error

	// IssueResetToken sets the reset token and its expiry on the account with the
	// given email without touching any other column.
	IssueResetToken(ctx context.Context, email, token string, expires time.Time) (*entity.Account, error)

	// ConfirmEmail atomically marks the account holding token as verified and
	// clears the token. Two concurrent calls with the same token cannot both succeed.
	ConfirmEmail(ctx context.Context, token string) (*entity.Account, error)

	// ResetPassword atomically replaces the password hash of the account holding the
	// reset token and clears the token with its expiry. When requireUnexpired is set,
	// a token whose expiry is not after now does not match.
	ResetPassword(ctx context.Context, token, passwordHash string, now time.Time, requireUnexpired bool) (*entity.Account, error)
}
