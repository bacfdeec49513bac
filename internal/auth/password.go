package auth

import (
	"errors"
	"fmt"

	"github.com/pilab-dev/betwiz-oauth/client"
	"golang.org/x/crypto/bcrypt"
)

var (
	// ErrEmptySecret is returned by Hash for a zero-length client secret.
	ErrEmptySecret = errors.New("client secret is empty")
	// ErrSecretNotHashed means the stored secret is not a bcrypt hash, which
	// usually points at clients seeded without --hash while the server runs
	// with bcrypt verification.
	ErrSecretNotHashed = errors.New("stored client secret is not a bcrypt hash")
)

// BcryptPasswordHasher hashes client secrets with bcrypt and verifies
// presented secrets against stored hashes.
type BcryptPasswordHasher struct {
	Cost int
}

// NewBcryptPasswordHasher creates a new BcryptPasswordHasher.
// Default cost is bcrypt.DefaultCost if cost <= 0.
func NewBcryptPasswordHasher(cost int) *BcryptPasswordHasher {
	if cost <= 0 {
		cost = bcrypt.DefaultCost
	}
	return &BcryptPasswordHasher{Cost: cost}
}

// IsHashed reports whether s already is a bcrypt hash.
func IsHashed(s string) bool {
	_, err := bcrypt.Cost([]byte(s))
	return err == nil
}

// Hash generates a bcrypt hash for the given secret. Seed files may carry
// pre-hashed secrets; those are returned unchanged so they are never hashed twice.
func (h *BcryptPasswordHasher) Hash(secret string) (string, error) {
	if secret == "" {
		return "", ErrEmptySecret
	}
	if IsHashed(secret) {
		return secret, nil
	}

	hashedBytes, err := bcrypt.GenerateFromPassword([]byte(secret), h.Cost)
	if err != nil {
		return "", fmt.Errorf("bcrypt hash generation failed: %w", err)
	}
	return string(hashedBytes), nil
}

// Verify checks a presented secret against the stored hash. A mismatch
// wraps client.ErrInvalidClientCredentials; a stored value that is not a
// bcrypt hash yields ErrSecretNotHashed.
func (h *BcryptPasswordHasher) Verify(hashedSecret, secret string) error {
	if !IsHashed(hashedSecret) {
		return ErrSecretNotHashed
	}

	err := bcrypt.CompareHashAndPassword([]byte(hashedSecret), []byte(secret))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return fmt.Errorf("%w: %w", client.ErrInvalidClientCredentials, err)
	}
	return err
}

var _ client.SecretVerifier = (*BcryptPasswordHasher)(nil)
