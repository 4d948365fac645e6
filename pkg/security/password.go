// Package security implements credential hashing with Argon2id.
package security

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"

	"github.com/fieldops-io/assettrack-backend/pkg/config"
)

// ErrInvalidHash signals a malformed Argon2id hash string.
var ErrInvalidHash = fmt.Errorf("invalid argon2id hash")

// argonCosts are embedded in each hash string so stored hashes remain
// verifiable after the configured costs change.
type argonCosts struct {
	memory      uint32
	time        uint32
	parallelism uint8
	saltLen     uint32
	keyLen      uint32
}

func (c argonCosts) derive(password string, salt []byte) []byte {
	return argon2.IDKey([]byte(password), salt, c.time, c.memory, c.parallelism, c.keyLen)
}

// HashPassword derives an Argon2id hash in the standard
// $argon2id$v=19$m=..,t=..,p=..$salt$hash encoding.
func HashPassword(password string, cfg config.PasswordConfig) (string, error) {
	if password == "" {
		return "", fmt.Errorf("password cannot be empty")
	}

	costs := costsFromConfig(cfg)
	salt := make([]byte, costs.saltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}
	key := costs.derive(password, salt)

	return fmt.Sprintf("$argon2id$v=19$m=%d,t=%d,p=%d$%s$%s",
		costs.memory, costs.time, costs.parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

// VerifyPassword reports whether password matches the encoded hash using a
// constant-time comparison.
func VerifyPassword(password, encoded string) (bool, error) {
	costs, salt, want, err := parseHash(encoded)
	if err != nil {
		return false, err
	}
	got := costs.derive(password, salt)
	return subtle.ConstantTimeCompare(want, got) == 1, nil
}

func costsFromConfig(cfg config.PasswordConfig) argonCosts {
	return argonCosts{
		memory:      clamp(cfg.ArgonMemoryKB, 8, 512*1024),
		time:        clamp(cfg.ArgonTime, 1, 10),
		parallelism: uint8(clamp(cfg.ArgonParallelism, 1, 255)),
		saltLen:     clamp(cfg.ArgonSaltLen, 8, 64),
		keyLen:      clamp(cfg.ArgonKeyLen, 16, 64),
	}
}

// parseHash splits a PHC-encoded hash into its cost parameters, salt, and
// derived key. The salt and key lengths come from the decoded bytes, not the
// current config.
func parseHash(encoded string) (argonCosts, []byte, []byte, error) {
	fields := strings.Split(encoded, "$")
	if len(fields) != 6 || fields[1] != "argon2id" {
		return argonCosts{}, nil, nil, ErrInvalidHash
	}

	var costs argonCosts
	if _, err := fmt.Sscanf(fields[3], "m=%d,t=%d,p=%d", &costs.memory, &costs.time, &costs.parallelism); err != nil {
		return argonCosts{}, nil, nil, ErrInvalidHash
	}

	salt, saltErr := base64.RawStdEncoding.DecodeString(fields[4])
	key, keyErr := base64.RawStdEncoding.DecodeString(fields[5])
	if saltErr != nil || keyErr != nil {
		return argonCosts{}, nil, nil, ErrInvalidHash
	}

	costs.saltLen = uint32(len(salt))
	costs.keyLen = uint32(len(key))
	return costs, salt, key, nil
}

func clamp(value, floor, ceil int) uint32 {
	switch {
	case value < floor:
		return uint32(floor)
	case value > ceil:
		return uint32(ceil)
	default:
		return uint32(value)
	}
}
