// Package credentials is the credential issuer: it generates one-time
// plaintext secrets and hashes them for storage.
//
// Plaintext leaves this package exactly once, in the value returned by
// Generate; it is never logged and never persisted. Only the bcrypt hash
// is stored on the User document.
package credentials

import (
	"crypto/rand"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// SecretLength is the length of generated passwords.
const SecretLength = 12

// Secrets exclude ambiguous characters (0/O, 1/l/I) since they are read
// out of an email and typed once.
const alphabet = "abcdefghijkmnpqrstuvwxyzABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// Issuer generates and hashes one-time account secrets.
type Issuer struct {
	cost int
}

// New returns an Issuer using the given bcrypt cost; zero or negative
// means bcrypt.DefaultCost.
func New(cost int) *Issuer {
	if cost <= 0 {
		cost = bcrypt.DefaultCost
	}
	return &Issuer{cost: cost}
}

// Generate returns a fresh random plaintext secret.
func (i *Issuer) Generate() (string, error) {
	buf := make([]byte, SecretLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate secret: %w", err)
	}
	for n, b := range buf {
		buf[n] = alphabet[int(b)%len(alphabet)]
	}
	return string(buf), nil
}

// Hash returns the bcrypt hash to store for a plaintext secret.
func (i *Issuer) Hash(plaintext string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(plaintext), i.cost)
	if err != nil {
		return "", fmt.Errorf("hash secret: %w", err)
	}
	return string(h), nil
}

// Verify reports whether plaintext matches a stored hash.
func (i *Issuer) Verify(hash, plaintext string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext)) == nil
}
