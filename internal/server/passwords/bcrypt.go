// Package passwords hashes and verifies user passwords with bcrypt.
package passwords

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// Hasher hashes plaintext passwords and checks candidates against digests.
type Hasher interface {
	Hash(plaintext string) (string, error)
	// Verify reports whether plaintext matches digest. A mismatch is not an error.
	Verify(plaintext, digest string) bool
}

// BcryptHasher is the bcrypt Hasher.
type BcryptHasher struct {
	cost int
}

func NewBcryptHasher(cost int) *BcryptHasher {
	return &BcryptHasher{cost: cost}
}

func (h *BcryptHasher) Hash(plaintext string) (string, error) {
	digest, err := bcrypt.GenerateFromPassword([]byte(plaintext), h.cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(digest), nil
}

func (h *BcryptHasher) Verify(plaintext, digest string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(digest), []byte(plaintext))
	return err == nil
}

// DummyDigest returns a digest no password is expected to match. Login runs
// Verify against it for unknown emails so both paths cost one bcrypt compare.
func (h *BcryptHasher) DummyDigest() string {
	digest, err := bcrypt.GenerateFromPassword([]byte("eventhub-dummy-password"), h.cost)
	if err != nil {
		panic(fmt.Errorf("generate dummy digest: %w", err))
	}
	return string(digest)
}
