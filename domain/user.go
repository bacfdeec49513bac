package domain

import "time"

// User is the identity record owned by the user service. The OAuth server
// only reads its identity fields and maintains the refresh token pair.
type User struct {
	ID        string `bson:"_id,omitempty"`
	Email     string `bson:"email"`
	FirstName string `bson:"firstname,omitempty"`
	LastName  string `bson:"lastname,omitempty"`

	// RefreshTokenHash is the SHA-256 hex digest of the user's single valid
	// refresh token. Empty when none has been issued or it was revoked.
	RefreshTokenHash      string     `bson:"refreshToken,omitempty"`
	RefreshTokenExpiresAt *time.Time `bson:"refreshTokenExpiresAt,omitempty"`

	CreatedAt time.Time `bson:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt"`
}

// HasValidRefreshToken reports whether tokenHash is the user's current,
// unexpired refresh token.
func (u *User) HasValidRefreshToken(tokenHash string, now time.Time) bool {
	if u.RefreshTokenHash == "" || u.RefreshTokenHash != tokenHash {
		return false
	}

	return u.RefreshTokenExpiresAt != nil && u.RefreshTokenExpiresAt.After(now)
}
