package crypto

import (
	"crypto/sha256"
	"encoding/hex"
)

// HashToken hashes a token string so that credentials are never stored or
// used as lookup keys in clear.
func HashToken(token string) string {
	hasher := sha256.New()
	hasher.Write([]byte(token))
	hashedBytes := hasher.Sum(nil)
	return hex.EncodeToString(hashedBytes)
}
