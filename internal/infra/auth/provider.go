package auth

import (
	"acmauth/config"
	"acmauth/internal/domain/service"
)

// NewPasswordHasher selects the hashing algorithm named by auth.hasher.
func NewPasswordHasher(cfg *config.Config) service.PasswordHasher {
	if cfg.Auth == nil {
		return NewBcryptHasher()
	}

	switch cfg.Auth.Hasher {
	case config.HasherArgon2id:
		return NewArgon2Hasher()
	default:
		if cfg.Auth.BcryptCost > 0 {
			return NewBcryptHasherWithCost(cfg.Auth.BcryptCost)
		}

		return NewBcryptHasher()
	}
}
