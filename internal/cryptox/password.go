// Package cryptox hashes and verifies user directory secrets.
//
// Two encodings are accepted when verifying:
//
//	$argon2id$v=19$m=65536,t=1,p=4$<salt b64>$<key b64>   (produced by HashPassword)
//	$2a$10$...                                          (bcrypt, legacy imports)
package cryptox

import (
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/sessionkeeper/internal/common"
	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/bcrypt"
)

var (
	// ErrInvalidHash is returned for malformed or out-of-bounds encoded hashes.
	ErrInvalidHash = errors.New("invalid password hash")

	// ErrUnsupportedHash is returned when the hash prefix names an unknown scheme.
	ErrUnsupportedHash = errors.New("unsupported password hash")
)

const argon2Version = 19

// Argon2idParams are the cost parameters encoded into every argon2id hash.
type Argon2idParams struct {
	MemoryKiB   uint32
	Iterations  uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// DefaultArgon2idParams are the costs used for newly hashed directory passwords.
func DefaultArgon2idParams() Argon2idParams {
	return Argon2idParams{
		MemoryKiB:   64 * 1024,
		Iterations:  1,
		Parallelism: 4,
		SaltLength:  16,
		KeyLength:   32,
	}
}

// HashPassword encodes password as an argon2id PHC string.
func HashPassword(password []byte, p Argon2idParams) (string, error) {
	if len(password) == 0 {
		return "", errors.New("empty password")
	}

	salt := common.GenerateRandByteArray(int(p.SaltLength))
	key := argon2.IDKey(password, salt, p.Iterations, p.MemoryKiB, p.Parallelism, p.KeyLength)

	b64 := base64.RawStdEncoding
	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2Version, p.MemoryKiB, p.Iterations, p.Parallelism,
		b64.EncodeToString(salt), b64.EncodeToString(key)), nil
}

// VerifyPassword reports whether password matches encoded. A mismatch is
// (false, nil); malformed input is (false, ErrInvalidHash|ErrUnsupportedHash).
func VerifyPassword(encoded string, password []byte) (bool, error) {
	switch {
	case strings.HasPrefix(encoded, "$argon2id$"):
		return verifyArgon2id(encoded, password)
	case strings.HasPrefix(encoded, "$2a$"), strings.HasPrefix(encoded, "$2b$"), strings.HasPrefix(encoded, "$2y$"):
		err := bcrypt.CompareHashAndPassword([]byte(encoded), password)
		if err == nil {
			return true, nil
		}
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return false, nil
		}
		return false, fmt.Errorf("%w: %v", ErrInvalidHash, err)
	default:
		return false, ErrUnsupportedHash
	}
}

// dummyHash is verified against when an account does not exist, so a
// missing account costs as much as a wrong password.
var dummyHash = func() string {
	h, _ := HashPassword([]byte("sessionkeeper-dummy"), DefaultArgon2idParams())
	return h
}()

// BurnVerify performs a throw-away verification with default cost.
func BurnVerify(password []byte) {
	_, _ = verifyArgon2id(dummyHash, password)
}

func verifyArgon2id(encoded string, password []byte) (bool, error) {
	p, salt, expected, err := decodeArgon2id(encoded)
	if err != nil {
		return false, err
	}

	limits := DefaultArgon2idParams()
	if p.MemoryKiB > limits.MemoryKiB*4 || p.Iterations > limits.Iterations*8 || p.Parallelism > limits.Parallelism*4 {
		return false, ErrInvalidHash
	}

	key := argon2.IDKey(password, salt, p.Iterations, p.MemoryKiB, p.Parallelism, uint32(len(expected)))
	return subtle.ConstantTimeCompare(key, expected) == 1, nil
}

func decodeArgon2id(encoded string) (Argon2idParams, []byte, []byte, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[0] != "" || parts[1] != "argon2id" || parts[2] != "v=19" {
		return Argon2idParams{}, nil, nil, ErrInvalidHash
	}

	var mem, it, par uint32
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &mem, &it, &par); err != nil {
		return Argon2idParams{}, nil, nil, ErrInvalidHash
	}
	if mem == 0 || it == 0 || par == 0 || par > 255 {
		return Argon2idParams{}, nil, nil, ErrInvalidHash
	}

	b64 := base64.RawStdEncoding
	salt, err := b64.DecodeString(parts[4])
	if err != nil || len(salt) < 8 || len(salt) > 64 {
		return Argon2idParams{}, nil, nil, ErrInvalidHash
	}
	key, err := b64.DecodeString(parts[5])
	if err != nil || len(key) < 16 || len(key) > 128 {
		return Argon2idParams{}, nil, nil, ErrInvalidHash
	}

	return Argon2idParams{
		MemoryKiB:   mem,
		Iterations:  it,
		Parallelism: uint8(par),
		SaltLength:  uint32(len(salt)),
		KeyLength:   uint32(len(key)),
	}, salt, key, nil
}
