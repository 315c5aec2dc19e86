// Package memory provides an in-process AccountRepository, used for local runs
// without a database and as the store behind service tests.
package memory

import (
	"context"
	"sync"
	"time"

	"acmauth/internal/domain/entity"
	domainerrors "acmauth/internal/domain/errors"
	"acmauth/internal/domain/repository"

	"github.com/google/uuid"
)

// AccountRepository keeps accounts in a map keyed by ID. Every method holds the
// mutex for its whole find-and-mutate sequence, which gives Create its unique
// email check and the token operations their compare-and-clear semantics.
type AccountRepository struct {
	mu       sync.RWMutex
	accounts map[uuid.UUID]*entity.Account
	byEmail  map[string]uuid.UUID
	now      func() time.Time
}

var _ repository.AccountRepository = (*AccountRepository)(nil)

// NewAccountRepository creates an empty in-memory account store.
func NewAccountRepository() *AccountRepository {
	return &AccountRepository{
		accounts: make(map[uuid.UUID]*entity.Account),
		byEmail:  make(map[string]uuid.UUID),
		now:      time.Now,
	}
}

// FindByEmail retrieves an account by its normalized email.
func (s *AccountRepository) FindByEmail(_ context.Context, email string) (*entity.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byEmail[email]
	if !ok {
		return nil, domainerrors.ErrNotFound.WrapMessage("account not found")
	}

	return clone(s.accounts[id]), nil
}

// FindByConfirmToken retrieves the account holding the given confirm-email token.
func (s *AccountRepository) FindByConfirmToken(_ context.Context, token string) (*entity.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	account := s.findLocked(func(a *entity.Account) bool {
		return token != "" && a.ConfirmEmailToken == token
	})
	if account == nil {
		return nil, domainerrors.ErrNotFound.WrapMessage("confirm token not found")
	}

	return clone(account), nil
}

// FindByResetToken retrieves the account holding the given reset token.
func (s *AccountRepository) FindByResetToken(_ context.Context, token string, now time.Time, requireUnexpired bool) (*entity.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	account := s.findLocked(func(a *entity.Account) bool {
		if token == "" || a.ResetPasswordToken != token {
			return false
		}

		return !requireUnexpired || a.HasPendingReset(now)
	})
	if account == nil {
		return nil, domainerrors.ErrNotFound.WrapMessage("reset token not found or expired")
	}

	return clone(account), nil
}

// Create inserts a new account, failing when the email is already taken.
func (s *AccountRepository) Create(_ context.Context, account *entity.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byEmail[account.Email]; exists {
		return domainerrors.ErrDuplicateAccount.WrapMessage("email already exists")
	}

	if account.ID == uuid.Nil {
		id, err := uuid.NewV7()
		if err != nil {
			return domainerrors.Internal(err, "failed to generate account id")
		}
		account.ID = id
	}
	now := s.now()
	account.CreatedAt = now
	account.UpdatedAt = now

	s.accounts[account.ID] = clone(account)
	s.byEmail[account.Email] = account.ID

	return nil
}

// Update overwrites the mutable fields of an existing account.
func (s *AccountRepository) Update(_ context.Context, account *entity.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.accounts[account.ID]
	if !ok {
		return domainerrors.ErrNotFound.WrapMessage("account not found")
	}

	updated := clone(account)
	// Email is immutable after creation.
	updated.Email = existing.Email
	updated.CreatedAt = existing.CreatedAt
	updated.UpdatedAt = s.now()
	s.accounts[account.ID] = updated
	account.UpdatedAt = updated.UpdatedAt

	return nil
}

// IssueResetToken sets the reset token and its expiry on the account with email.
func (s *AccountRepository) IssueResetToken(_ context.Context, email, token string, expires time.Time) (*entity.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.byEmail[email]
	if !ok {
		return nil, domainerrors.ErrNotFound.WrapMessage("account not found")
	}

	account := s.accounts[id]
	account.ResetPasswordToken = token
	account.ResetPasswordExpires = &expires
	account.UpdatedAt = s.now()

	return clone(account), nil
}

// ConfirmEmail marks the account holding token as verified and clears the token.
func (s *AccountRepository) ConfirmEmail(_ context.Context, token string) (*entity.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	account := s.findLocked(func(a *entity.Account) bool {
		return token != "" && a.ConfirmEmailToken == token
	})
	if account == nil {
		return nil, domainerrors.ErrNotFound.WrapMessage("confirm token not found")
	}

	account.Verified = true
	account.ConfirmEmailToken = ""
	account.UpdatedAt = s.now()

	return clone(account), nil
}

// ResetPassword replaces the password hash of the account holding the reset
// token and clears the token with its expiry.
func (s *AccountRepository) ResetPassword(_ context.Context, token, passwordHash string, now time.Time, requireUnexpired bool) (*entity.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	account := s.findLocked(func(a *entity.Account) bool {
		if token == "" || a.ResetPasswordToken != token {
			return false
		}

		return !requireUnexpired || a.HasPendingReset(now)
	})
	if account == nil {
		return nil, domainerrors.ErrNotFound.WrapMessage("reset token not found or expired")
	}

	account.PasswordHash = passwordHash
	account.ClearReset()
	account.UpdatedAt = s.now()

	return clone(account), nil
}

// findLocked returns the stored account matching fn. Callers must hold s.mu.
func (s *AccountRepository) findLocked(fn func(*entity.Account) bool) *entity.Account {
	for _, account := range s.accounts {
		if fn(account) {
			return account
		}
	}

	return nil
}

// clone copies the account so callers never alias stored state.
func clone(a *entity.Account) *entity.Account {
	if a == nil {
		return nil
	}

	c := *a
	if a.ResetPasswordExpires != nil {
		expires := *a.ResetPasswordExpires
		c.ResetPasswordExpires = &expires
	}

	return &c
}
