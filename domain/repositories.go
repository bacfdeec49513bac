package domain

import (
	"context"
	"time"
)

// AuthCodeRepository stores short-lived, single-use authorization codes.
type AuthCodeRepository interface {
	// SaveAuthCode persists a new code. It returns ErrAuthCodeExists when the
	// code value collides with a stored one and ErrAuthCodeExpired when the
	// code is already past its expiry.
	SaveAuthCode(ctx context.Context, code *AuthCode) error

	// GetAuthCode returns a stored, unexpired code or ErrAuthCodeNotFound.
	GetAuthCode(ctx context.Context, code string) (*AuthCode, error)

	// DeleteAuthCode removes a code. Deleting a missing code is not an error.
	DeleteAuthCode(ctx context.Context, code string) error

	// ConsumeAuthCode atomically removes the code and returns it, expired or
	// not. Of two concurrent callers at most one receives the record.
	ConsumeAuthCode(ctx context.Context, code string) (*AuthCode, error)

	// DeleteExpiredAuthCodes purges expired codes and reports how many went.
	DeleteExpiredAuthCodes(ctx context.Context) (int64, error)
}

// UserRepository exposes the parts of the user record the OAuth server needs.
type UserRepository interface {
	GetUserByID(ctx context.Context, id string) (*User, error)

	// FindUserByRefreshToken finds the user whose stored refresh token hash
	// equals tokenHash and has not expired at now.
	FindUserByRefreshToken(ctx context.Context, tokenHash string, now time.Time) (*User, error)

	// SetRefreshToken overwrites the user's refresh token unconditionally.
	SetRefreshToken(ctx context.Context, userID, tokenHash string, expiresAt time.Time) error

	// RotateRefreshToken replaces the refresh token only while the stored hash
	// still equals oldHash. Otherwise it returns ErrRefreshTokenMismatch.
	RotateRefreshToken(ctx context.Context, userID, oldHash, newHash string, expiresAt time.Time) error

	// ClearRefreshToken removes the refresh token pair if the stored hash
	// equals tokenHash and reports whether anything was cleared.
	ClearRefreshToken(ctx context.Context, userID, tokenHash string) (bool, error)
}
