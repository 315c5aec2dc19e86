package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"

	domainerrors "acmauth/internal/domain/errors"
	"acmauth/internal/domain/service"

	"github.com/pkg/errors"
	"golang.org/x/crypto/argon2"
)

// Upper bounds accepted from an encoded hash. Memory is in KiB.
const (
	argon2MaxMemory     = 1 << 20
	argon2MaxIterations = 100
	argon2MaxKeyLength  = 1024
)

// argon2Hasher implements PasswordHasher with argon2id and PHC-style encoded hashes:
//
//	$argon2id$v=19$m=65536,t=3,p=2$<salt>$<key>
type argon2Hasher struct {
	memory      uint32
	iterations  uint32
	parallelism uint8
	saltLength  uint32
	keyLength   uint32
}

// NewArgon2Hasher creates an argon2id hasher with the recommended interactive parameters.
func NewArgon2Hasher() service.PasswordHasher {
	return &argon2Hasher{
		memory:      64 * 1024,
		iterations:  3,
		parallelism: 2,
		saltLength:  16,
		keyLength:   32,
	}
}

// Hash derives an argon2id key with a fresh random salt.
func (h *argon2Hasher) Hash(password string) (string, error) {
	if password == "" {
		return "", domainerrors.ErrInvalidInput.WithDetails("password must not be empty")
	}

	salt := make([]byte, h.saltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", errors.Wrap(err, "failed to generate salt")
	}

	key := argon2.IDKey([]byte(password), salt, h.iterations, h.memory, h.parallelism, h.keyLength)

	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, h.memory, h.iterations, h.parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

// Check re-derives the key with the parameters stored in hash and compares in constant time.
func (h *argon2Hasher) Check(password, hash string) bool {
	parts := strings.Split(hash, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return false
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil || version != argon2.Version {
		return false
	}

	var memory, iterations uint32
	var parallelism uint8
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &iterations, &parallelism); err != nil {
		return false
	}
	if memory == 0 || iterations == 0 || parallelism == 0 {
		return false
	}
	// Parameters come from stored data; refuse ones that would exhaust the host.
	if memory > argon2MaxMemory || iterations > argon2MaxIterations {
		return false
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return false
	}

	key, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil || len(key) == 0 || len(key) > argon2MaxKeyLength {
		return false
	}

	derived := argon2.IDKey([]byte(password), salt, iterations, memory, parallelism, uint32(len(key)))

	return subtle.ConstantTimeCompare(key, derived) == 1
}
