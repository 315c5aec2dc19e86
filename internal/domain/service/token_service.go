package service

import (
	"time"

	"acmauth/internal/domain/entity"

	"github.com/golang-jwt/jwt/v5"
)

// SessionClaims defines the custom claims carried by a session token.
type SessionClaims struct {
	Data entity.SessionSnapshot `json:"data"`
	jwt.RegisteredClaims
}

// TokenIssuer defines the interface for opaque capability tokens and signed sessions.
type TokenIssuer interface {
	// RandomToken returns a fresh, unguessable, hex-encoded token.
	RandomToken() (string, error)

	// SignSession embeds the snapshot into a signed token that expires after the session TTL.
	SignSession(snapshot entity.SessionSnapshot) (string, error)

	// VerifySession checks signature and expiry and returns the embedded snapshot.
	// Failures match domainerrors.ErrInvalidToken.
	VerifySession(token string) (*entity.SessionSnapshot, error)

	// SessionTTL returns the configured lifetime of session tokens.
	SessionTTL() time.Duration
}
