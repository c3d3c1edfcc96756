package security

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"

	"github.com/tastebudhq/storefront-backend/pkg/config"
)

// ErrInvalidHash signals a malformed Argon2id hash string.
var ErrInvalidHash = errors.New("invalid argon2id hash")

// hashSettings are embedded into every encoded hash so verification works
// even after the configured parameters change.
type hashSettings struct {
	memory      uint32
	time        uint32
	parallelism uint8
	saltLen     uint32
	keyLen      uint32
}

func settingsFromConfig(cfg config.PasswordConfig) hashSettings {
	return hashSettings{
		memory:      clamp(cfg.ArgonMemoryKB, 8, 512*1024),
		time:        clamp(cfg.ArgonTime, 1, 10),
		parallelism: uint8(clamp(cfg.ArgonParallelism, 1, 255)),
		saltLen:     clamp(cfg.ArgonSaltLen, 8, 64),
		keyLen:      clamp(cfg.ArgonKeyLen, 16, 64),
	}
}

// HashPassword derives an Argon2id hash in the standard PHC string format.
func HashPassword(password string, cfg config.PasswordConfig) (string, error) {
	if password == "" {
		return "", errors.New("password cannot be empty")
	}

	settings := settingsFromConfig(cfg)
	salt := make([]byte, settings.saltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}

	key := argon2.IDKey([]byte(password), salt, settings.time, settings.memory, settings.parallelism, settings.keyLen)
	return fmt.Sprintf(
		"$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		settings.memory,
		settings.time,
		settings.parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

// VerifyPassword reports whether the password matches the encoded hash.
func VerifyPassword(password, encoded string) (bool, error) {
	settings, salt, want, err := parseHash(encoded)
	if err != nil {
		return false, err
	}
	got := argon2.IDKey([]byte(password), salt, settings.time, settings.memory, settings.parallelism, settings.keyLen)
	return subtle.ConstantTimeCompare(want, got) == 1, nil
}

func parseHash(encoded string) (hashSettings, []byte, []byte, error) {
	var (
		version         int
		settings        hashSettings
		saltB64, keyB64 string
	)
	n, err := fmt.Sscanf(
		encoded,
		"$argon2id$v=%d$m=%d,t=%d,p=%d$%s",
		&version, &settings.memory, &settings.time, &settings.parallelism, &saltB64,
	)
	if err != nil || n != 5 {
		return hashSettings{}, nil, nil, ErrInvalidHash
	}

	// the final Sscanf verb swallows both trailing segments
	i := strings.IndexByte(saltB64, '$')
	if i < 0 {
		return hashSettings{}, nil, nil, ErrInvalidHash
	}
	keyB64 = saltB64[i+1:]
	saltB64 = saltB64[:i]

	salt, err := base64.RawStdEncoding.DecodeString(saltB64)
	if err != nil {
		return hashSettings{}, nil, nil, ErrInvalidHash
	}
	key, err := base64.RawStdEncoding.DecodeString(keyB64)
	if err != nil {
		return hashSettings{}, nil, nil, ErrInvalidHash
	}

	settings.saltLen = uint32(len(salt))
	settings.keyLen = uint32(len(key))
	return settings, salt, key, nil
}

func clamp(value, min, max int) uint32 {
	if value < min {
		value = min
	}
	if value > max {
		value = max
	}
	return uint32(value)
}
