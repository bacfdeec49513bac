package services

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"

	"github.com/pilab-dev/betwiz-oauth/domain"
)

// S256Challenge derives the S256 code_challenge for a verifier:
// base64url without padding of SHA-256(verifier).
func S256Challenge(verifier string) string {
	sum := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

// VerifyPKCE checks a code_verifier against the stored challenge using the
// stored method. Unknown methods never verify.
func VerifyPKCE(method, challenge, verifier string) bool {
	if challenge == "" || verifier == "" {
		return false
	}

	var computed string
	switch method {
	case domain.CodeChallengeMethodS256:
		computed = S256Challenge(verifier)
	case domain.CodeChallengeMethodPlain:
		computed = verifier
	default:
		return false
	}

	return subtle.ConstantTimeCompare([]byte(computed), []byte(challenge)) == 1
}
