package domain

import "errors"

var (
	ErrClientNotFound       = errors.New("client not found")
	ErrAuthCodeNotFound     = errors.New("authorization code not found")
	ErrAuthCodeExists       = errors.New("authorization code already exists")
	ErrAuthCodeExpired      = errors.New("authorization code expired before it was stored")
	ErrUserNotFound         = errors.New("user not found")
	ErrRefreshTokenMismatch = errors.New("refresh token changed concurrently")
)
