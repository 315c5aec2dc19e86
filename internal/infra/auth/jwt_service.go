// Package auth provides concrete implementations for authentication-related domain services.
package auth

import (
	"crypto/rand"
	"encoding/hex"
	"strings"
	"time"

	"acmauth/config"
	"acmauth/internal/domain/entity"
	domainerrors "acmauth/internal/domain/errors"
	"acmauth/internal/domain/service"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
)

const (
	// randomTokenBytes yields 160 bits of entropy, 40 hex characters.
	randomTokenBytes  = 20
	defaultSessionTTL = 7 * 24 * time.Hour
	sessionIssuer     = "acmauth"
)

// jwtService is a concrete implementation of the TokenIssuer interface using the JWT standard.
type jwtService struct {
	sessionSecret []byte        // Secret key for signing session tokens.
	sessionTTL    time.Duration // Time-to-live for session tokens.
	now           func() time.Time
}

// NewJWTService is the constructor for jwtService.
// It takes configuration values to create a new token issuer instance.
func NewJWTService(cfg *config.Config) (service.TokenIssuer, error) {
	if cfg.SecretKey.Session == "" {
		return nil, errors.New("session secret must be provided")
	}

	ttl := defaultSessionTTL
	if cfg.Auth != nil && cfg.Auth.SessionTTL > 0 {
		ttl = cfg.Auth.SessionTTL
	}

	return &jwtService{
		sessionSecret: []byte(cfg.SecretKey.Session),
		sessionTTL:    ttl,
		now:           time.Now,
	}, nil
}

// RandomToken returns a hex-encoded token read from crypto/rand.
func (s *jwtService) RandomToken() (string, error) {
	buf := make([]byte, randomTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", errors.Wrap(err, "failed to read random bytes")
	}

	return hex.EncodeToString(buf), nil
}

// SignSession creates an HS256 token carrying the account snapshot.
func (s *jwtService) SignSession(snapshot entity.SessionSnapshot) (string, error) {
	issuedAt := s.now()
	claims := service.SessionClaims{
		Data: snapshot,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    sessionIssuer,
			Subject:   snapshot.ID.String(),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(s.sessionTTL)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.sessionSecret)
	if err != nil {
		return "", errors.Wrap(err, "failed to sign session token")
	}

	return signed, nil
}

// VerifySession checks the token signature and expiry and returns the embedded snapshot.
// Tokens may carry a "JWT " or "Bearer " scheme prefix.
func (s *jwtService) VerifySession(tokenString string) (*entity.SessionSnapshot, error) {
	tokenString = stripScheme(tokenString)
	if tokenString == "" {
		return nil, domainerrors.ErrInvalidToken.WrapMessage("empty session token")
	}

	claims := &service.SessionClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		return s.sessionSecret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuer(sessionIssuer),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, errors.Wrap(domainerrors.ErrInvalidToken, err.Error())
	}
	if !token.Valid {
		return nil, domainerrors.ErrInvalidToken.WrapMessage("session token is not valid")
	}

	return &claims.Data, nil
}

// SessionTTL returns the configured duration for session tokens.
func (s *jwtService) SessionTTL() time.Duration {
	return s.sessionTTL
}

func stripScheme(token string) string {
	token = strings.TrimSpace(token)
	for _, scheme := range []string{"JWT ", "Bearer "} {
		if len(token) >= len(scheme) && strings.EqualFold(token[:len(scheme)], scheme) {
			return strings.TrimSpace(token[len(scheme):])
		}
	}

	return token
}
