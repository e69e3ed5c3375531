package auth

import (
	"crypto/sha256"
	"encoding/hex"
)

// TokenHasher produces the deterministic digest under which opaque bearer
// tokens and codes are stored and looked up. It is not used for password
// verification.
type TokenHasher interface {
	Hash(plaintext string) string
}

// SHA256TokenHasher hashes tokens with SHA-256, hex encoded.
type SHA256TokenHasher struct{}

func (SHA256TokenHasher) Hash(plaintext string) string {
	sum := sha256.Sum256([]byte(plaintext))
	return hex.EncodeToString(sum[:])
}
