// Package entity contains the core business objects of the project,
// each representing a unique, identifiable concept within the domain.
package entity

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Account is the central entity: one registered person, keyed by normalized email.
type Account struct {
	ID                   uuid.UUID  // Assigned by the store on insert.
	Email                string     // Normalized login identifier; immutable after creation.
	PasswordHash         string     // Output of the PasswordHasher, never the plaintext.
	Verified             bool       // Set exactly once by a successful email confirmation.
	ConfirmEmailToken    string     // Issued at registration, cleared on confirmation.
	ResetPasswordToken   string     // Empty unless a password reset is pending.
	ResetPasswordExpires *time.Time // The reset token is valid only while now is before this instant.
	Profile              Profile    // Stored and returned, never validated here.
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// Profile holds the caller-supplied descriptive fields of an account.
type Profile struct {
	FirstName      string `json:"firstName"`
	LastName       string `json:"lastName"`
	Classification string `json:"classification"`
}

// NormalizeEmail trims surrounding whitespace and lower-cases the address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// HasPendingReset reports whether a reset token is set and still valid at now.
func (a *Account) HasPendingReset(now time.Time) bool {
	return a.ResetPasswordToken != "" && a.ResetPasswordExpires != nil && now.Before(*a.ResetPasswordExpires)
}

// ClearReset drops the reset token together with its expiry.
func (a *Account) ClearReset() {
	a.ResetPasswordToken = ""
	a.ResetPasswordExpires = nil
}

// Sanitized returns a copy that is safe to hand to callers: no password hash
// and no outstanding capability tokens.
func (a *Account) Sanitized() *PublicAccount {
	if a == nil {
		return nil
	}

	return &PublicAccount{
		ID:        a.ID,
		Email:     a.Email,
		Verified:  a.Verified,
		Profile:   a.Profile,
		CreatedAt: a.CreatedAt,
		UpdatedAt: a.UpdatedAt,
	}
}

// Snapshot returns the account view embedded into session tokens.
func (a *Account) Snapshot() SessionSnapshot {
	return SessionSnapshot{
		ID:       a.ID,
		Email:    a.Email,
		Verified: a.Verified,
		Profile:  a.Profile,
	}
}

// PublicAccount is the externally visible shape of an Account.
type PublicAccount struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	Verified  bool      `json:"verified"`
	Profile   Profile   `json:"profile"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// SessionSnapshot is the serializable identity carried inside a session token.
type SessionSnapshot struct {
	ID       uuid.UUID `json:"id"`
	Email    string    `json:"email"`
	Verified bool      `json:"verified"`
	Profile  Profile   `json:"profile"`
}
