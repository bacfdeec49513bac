package middleware

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pilab-dev/betwiz-oauth/domain"
)

var (
	// ErrNoCredentials means the request carried no bearer token.
	ErrNoCredentials = errors.New("no session credentials")
	// ErrInvalidSession covers malformed, expired or badly signed tokens and
	// tokens naming an unknown user.
	ErrInvalidSession = errors.New("invalid session")
)

// SessionClaims are the claims of the HS256 session JWT minted by the user
// service at login. The user id travels in the "id" claim.
type SessionClaims struct {
	ID string `json:"id"`
	jwt.RegisteredClaims
}

// SessionAuthenticator resolves the resource owner from a session JWT.
type SessionAuthenticator struct {
	secret []byte
	users  domain.UserRepository
}

// NewSessionAuthenticator creates a new SessionAuthenticator.
func NewSessionAuthenticator(secret string, users domain.UserRepository) *SessionAuthenticator {
	return &SessionAuthenticator{
		secret: []byte(secret),
		users:  users,
	}
}

// Authenticate validates the Authorization header value and loads the user.
// Errors other than ErrNoCredentials and ErrInvalidSession come from the
// user store.
func (a *SessionAuthenticator) Authenticate(ctx context.Context, authHeader string) (*domain.User, error) {
	if authHeader == "" {
		return nil, ErrNoCredentials
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return nil, ErrInvalidSession
	}

	userID, err := a.ParseToken(parts[1])
	if err != nil {
		return nil, err
	}

	user, err := a.users.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, ErrInvalidSession
		}
		return nil, fmt.Errorf("failed to load session user: %w", err)
	}

	return user, nil
}

// ParseToken verifies the JWT signature and expiry and returns the user id.
func (a *SessionAuthenticator) ParseToken(tokenString string) (string, error) {
	var claims SessionClaims

	_, err := jwt.ParseWithClaims(tokenString, &claims, func(_ *jwt.Token) (interface{}, error) {
		return a.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidSession, err)
	}

	if claims.ID == "" {
		return "", fmt.Errorf("%w: missing id claim", ErrInvalidSession)
	}

	return claims.ID, nil
}

// IssueToken mints a session token for userID, the same shape the user
// service issues. Used by the CLI and tests.
func (a *SessionAuthenticator) IssueToken(userID string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := SessionClaims{
		ID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}
