package auth

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// PasswordHasher is the one-way hash used for account passwords and client
// secrets.
type PasswordHasher interface {
	Hash(plaintext string) (string, error)
	// Compare reports whether plaintext matches the stored hash. The
	// comparison cost must not depend on where the inputs diverge.
	Compare(plaintext, hash string) bool
}

// BcryptHasher implements PasswordHasher with bcrypt.
type BcryptHasher struct {
	Cost int
}

// NewBcryptHasher returns a hasher with the given cost factor, falling back
// to bcrypt.DefaultCost when cost is out of range.
func NewBcryptHasher(cost int) BcryptHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return BcryptHasher{Cost: cost}
}

func (h BcryptHasher) Hash(plaintext string) (string, error) {
	if len(plaintext) == 0 {
		return "", errors.New("password is empty")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), h.Cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func (h BcryptHasher) Compare(plaintext, hash string) bool {
	if hash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext)) == nil
}

// timingDummyHash is a well-formed bcrypt hash compared against when no
// user exists, so unknown-email and wrong-password login attempts take
// equivalent time.
const timingDummyHash = "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"

// CompareDummy burns one comparison without revealing anything.
func CompareDummy(h PasswordHasher, plaintext string) {
	_ = h.Compare(plaintext, timingDummyHash)
}
