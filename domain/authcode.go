package domain

import "time"

// Code challenge methods accepted at the authorization endpoint.
const (
	CodeChallengeMethodS256  = "S256"
	CodeChallengeMethodPlain = "plain"
)

// AuthCodeTTL is how long an authorization code stays redeemable.
const AuthCodeTTL = 10 * time.Minute

// AuthCode represents an OAuth 2.0 authorization code.
type AuthCode struct {
	Code        string    `bson:"code"         json:"code"`         // Opaque single-use code
	ClientID    string    `bson:"client_id"    json:"client_id"`    // Client application ID
	UserID      string    `bson:"user_id"      json:"user_id"`      // User who authorized the request
	RedirectURI string    `bson:"redirect_uri" json:"redirect_uri"` // Echo of the redirect_uri at issuance
	Scope       []string  `bson:"scope"        json:"scope"`        // Granted scopes
	ExpiresAt   time.Time `bson:"expires_at"   json:"expires_at"`   // Expiration timestamp
	CreatedAt   time.Time `bson:"created_at"   json:"created_at"`   // Creation timestamp

	CodeChallenge       string `bson:"code_challenge"        json:"code_challenge"`
	CodeChallengeMethod string `bson:"code_challenge_method" json:"code_challenge_method"`
}

// IsExpired reports whether the code can no longer be redeemed at the given instant.
func (c *AuthCode) IsExpired(now time.Time) bool {
	return now.After(c.ExpiresAt)
}
