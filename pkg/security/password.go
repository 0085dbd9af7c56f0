package security

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/crypto/argon2"

	"github.com/dermafill/storefront-backend/pkg/config"
)

const (
	hashPrefix        = "$argon2id$"
	MinPasswordLength = 8
)

var (
	// ErrInvalidHash signals a malformed Argon2id hash string.
	ErrInvalidHash = errors.New("invalid argon2id hash")
	// ErrWeakPassword is returned when a password fails the registration policy.
	ErrWeakPassword = fmt.Errorf("password must be at least %d characters and mix letters with digits", MinPasswordLength)
)

// Hasher produces and checks Argon2id hashes with fixed parameters.
type Hasher struct {
	memory      uint32
	iterations  uint32
	parallelism uint8
	saltLen     uint32
	keyLen      uint32
}

// NewHasher clamps the configured parameters into safe bounds.
func NewHasher(cfg config.PasswordConfig) *Hasher {
	return &Hasher{
		memory:      uint32(clamp(cfg.ArgonMemoryKB, 8, 512*1024)),
		iterations:  uint32(clamp(cfg.ArgonTime, 1, 10)),
		parallelism: uint8(clamp(cfg.ArgonParallelism, 1, 255)),
		saltLen:     uint32(clamp(cfg.ArgonSaltLen, 8, 64)),
		keyLen:      uint32(clamp(cfg.ArgonKeyLen, 16, 64)),
	}
}

// Hash returns the PHC-formatted Argon2id hash of password.
func (h *Hasher) Hash(password string) (string, error) {
	if password == "" {
		return "", errors.New("password cannot be empty")
	}

	salt := make([]byte, h.saltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}
	key := argon2.IDKey([]byte(password), salt, h.iterations, h.memory, h.parallelism, h.keyLen)

	return fmt.Sprintf("%sv=%d$m=%d,t=%d,p=%d$%s$%s",
		hashPrefix, argon2.Version, h.memory, h.iterations, h.parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

// Verify reports whether password matches encoded. The parameters embedded in
// encoded win over the hasher's own so older hashes keep verifying.
func (h *Hasher) Verify(password, encoded string) (bool, error) {
	parsed, err := parseHash(encoded)
	if err != nil {
		return false, err
	}
	key := argon2.IDKey([]byte(password), parsed.salt, parsed.iterations, parsed.memory, parsed.parallelism, uint32(len(parsed.key)))
	return subtle.ConstantTimeCompare(parsed.key, key) == 1, nil
}

// CheckStrength enforces the registration password policy.
func CheckStrength(password string) error {
	if len([]rune(password)) < MinPasswordLength {
		return ErrWeakPassword
	}
	var letter, digit bool
	for _, r := range password {
		switch {
		case unicode.IsLetter(r):
			letter = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	if !letter || !digit {
		return ErrWeakPassword
	}
	return nil
}

type parsedHash struct {
	memory      uint32
	iterations  uint32
	parallelism uint8
	salt        []byte
	key         []byte
}

func parseHash(encoded string) (parsedHash, error) {
	if !strings.HasPrefix(encoded, hashPrefix) {
		return parsedHash{}, ErrInvalidHash
	}
	parts := strings.Split(strings.TrimPrefix(encoded, hashPrefix), "$")
	if len(parts) != 4 {
		return parsedHash{}, ErrInvalidHash
	}

	var version int
	if _, err := fmt.Sscanf(parts[0], "v=%d", &version); err != nil || version != argon2.Version {
		return parsedHash{}, ErrInvalidHash
	}

	var out parsedHash
	if _, err := fmt.Sscanf(parts[1], "m=%d,t=%d,p=%d", &out.memory, &out.iterations, &out.parallelism); err != nil {
		return parsedHash{}, ErrInvalidHash
	}

	var err error
	if out.salt, err = base64.RawStdEncoding.DecodeString(parts[2]); err != nil || len(out.salt) == 0 {
		return parsedHash{}, ErrInvalidHash
	}
	if out.key, err = base64.RawStdEncoding.DecodeString(parts[3]); err != nil || len(out.key) == 0 {
		return parsedHash{}, ErrInvalidHash
	}
	return out, nil
}

func clamp(value, lo, hi int) int {
	if value < lo {
		return lo
	}
	if value > hi {
		return hi
	}
	return value
}
