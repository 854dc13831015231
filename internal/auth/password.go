// Package auth holds credential handling: password digests and the signed
// bearer tokens that carry a user's identity between requests.
package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/bcrypt"
)

// PasswordHasher turns a plaintext password into a storable digest and
// checks a plaintext against a stored digest.
type PasswordHasher interface {
	Hash(plain string) (string, error)
	Verify(plain, digest string) bool
}

// NewPasswordHasher returns the hasher named by kind ("argon2id" or "bcrypt").
func NewPasswordHasher(kind string, bcryptCost int) (PasswordHasher, error) {
	switch strings.ToLower(kind) {
	case "", "argon2id":
		return NewArgon2Hasher(), nil
	case "bcrypt":
		if bcryptCost < bcrypt.MinCost || bcryptCost > bcrypt.MaxCost {
			return nil, fmt.Errorf("bcrypt cost %d out of range [%d,%d]", bcryptCost, bcrypt.MinCost, bcrypt.MaxCost)
		}
		return BcryptHasher{Cost: bcryptCost}, nil
	default:
		return nil, fmt.Errorf("unknown password hasher %q", kind)
	}
}

// Argon2Hasher derives digests with argon2id and a random per-password salt.
// Digests use the PHC string format:
//
//	$argon2id$v=19$m=65536,t=1,p=4$<salt>$<key>
type Argon2Hasher struct {
	Time    uint32
	Memory  uint32 // KiB
	Threads uint8
	KeyLen  uint32
	SaltLen int
}

func NewArgon2Hasher() Argon2Hasher {
	return Argon2Hasher{Time: 1, Memory: 64 * 1024, Threads: 4, KeyLen: 32, SaltLen: 16}
}

func (h Argon2Hasher) Hash(plain string) (string, error) {
	salt := make([]byte, h.SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("read salt: %w", err)
	}
	key := argon2.IDKey([]byte(plain), salt, h.Time, h.Memory, h.Threads, h.KeyLen)
	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, h.Memory, h.Time, h.Threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key)), nil
}

func (h Argon2Hasher) Verify(plain, digest string) bool { return VerifyPassword(plain, digest) }

// ErrPasswordTooLong is returned by BcryptHasher for passwords over the
// 72-byte bcrypt input limit.
var ErrPasswordTooLong = errors.New("password exceeds 72 bytes")

// BcryptHasher derives digests with bcrypt at the given cost.
type BcryptHasher struct {
	Cost int
}

func (h BcryptHasher) Hash(plain string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(plain), h.Cost)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return "", ErrPasswordTooLong
	}
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (h BcryptHasher) Verify(plain, digest string) bool { return VerifyPassword(plain, digest) }

// VerifyPassword checks plain against any supported digest format, whichever
// hasher produced it: argon2id PHC strings, bcrypt hashes and the unsalted
// base64 SHA-256 digests of imported legacy accounts. Malformed digests never
// match.
func VerifyPassword(plain, digest string) bool {
	switch {
	case strings.HasPrefix(digest, "$argon2id$"):
		ok, err := verifyArgon2(plain, digest)
		return err == nil && ok
	case strings.HasPrefix(digest, "$2a$"), strings.HasPrefix(digest, "$2b$"), strings.HasPrefix(digest, "$2y$"):
		return bcrypt.CompareHashAndPassword([]byte(digest), []byte(plain)) == nil
	case len(digest) == base64.StdEncoding.EncodedLen(sha256.Size):
		want, err := base64.StdEncoding.DecodeString(digest)
		if err != nil {
			return false
		}
		sum := sha256.Sum256([]byte(plain))
		return subtle.ConstantTimeCompare(sum[:], want) == 1
	default:
		return false
	}
}

var errMalformedDigest = errors.New("malformed argon2id digest")

func verifyArgon2(plain, digest string) (bool, error) {
	// "", "argon2id", "v=19", "m=..,t=..,p=..", salt, key
	parts := strings.Split(digest, "$")
	if len(parts) != 6 {
		return false, errMalformedDigest
	}
	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil || version != argon2.Version {
		return false, errMalformedDigest
	}
	var (
		memory, time uint32
		threads      uint8
	)
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &time, &threads); err != nil {
		return false, errMalformedDigest
	}
	if memory == 0 || time == 0 || threads == 0 {
		return false, errMalformedDigest
	}
	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil || len(salt) == 0 {
		return false, errMalformedDigest
	}
	want, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil || len(want) == 0 {
		return false, errMalformedDigest
	}
	got := argon2.IDKey([]byte(plain), salt, time, memory, threads, uint32(len(want)))
	return subtle.ConstantTimeCompare(got, want) == 1, nil
}
