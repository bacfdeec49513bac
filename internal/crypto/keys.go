package crypto

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// TokenBytes is the entropy, in bytes, of every opaque credential the server
// issues: authorization codes, access tokens and refresh tokens.
const TokenBytes = 32

// GenerateOpaqueToken returns TokenBytes of crypto/rand output, hex encoded.
func GenerateOpaqueToken() (string, error) {
	b := make([]byte, TokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}

	return hex.EncodeToString(b), nil
}
