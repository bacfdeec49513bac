package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// OAuth2Error represents a standardized OAuth 2.0 error
type OAuth2Error struct {
	Code        string `json:"error"`
	Description string `json:"error_description,omitempty"`
	URI         string `json:"error_uri,omitempty"`

	// Status is the HTTP status the error is rendered with.
	Status int `json:"-"`
}

func (e *OAuth2Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Description)
}

// HTTPStatus returns the status to render, falling back to 400.
func (e *OAuth2Error) HTTPStatus() int {
	if e.Status == 0 {
		return http.StatusBadRequest
	}

	return e.Status
}

// Standard OAuth2 error codes
const (
	InvalidRequest       = "invalid_request"
	InvalidClient        = "invalid_client"
	InvalidRedirectURI   = "invalid_redirect_uri"
	InvalidScope         = "invalid_scope"
	InvalidGrant         = "invalid_grant"
	UnsupportedGrantType = "unsupported_grant_type"
	Unauthorized         = "unauthorized"
	ServerError          = "server_error"
)

// Common error constructors
func NewInvalidRequest(description string) *OAuth2Error {
	return &OAuth2Error{
		Code:        InvalidRequest,
		Description: description,
		Status:      http.StatusBadRequest,
	}
}

// NewInvalidClient is used by the authorization endpoint, where an unknown
// client is a plain request error.
func NewInvalidClient(description string) *OAuth2Error {
	return &OAuth2Error{
		Code:        InvalidClient,
		Description: description,
		Status:      http.StatusBadRequest,
	}
}

// NewUnauthenticatedClient is the token endpoint's failed client authentication.
func NewUnauthenticatedClient(description string) *OAuth2Error {
	return &OAuth2Error{
		Code:        InvalidClient,
		Description: description,
		Status:      http.StatusUnauthorized,
	}
}

func NewInvalidRedirectURI(description string) *OAuth2Error {
	return &OAuth2Error{
		Code:        InvalidRedirectURI,
		Description: description,
		Status:      http.StatusBadRequest,
	}
}

func NewInvalidScope(description string) *OAuth2Error {
	return &OAuth2Error{
		Code:        InvalidScope,
		Description: description,
		Status:      http.StatusBadRequest,
	}
}

func NewInvalidGrant(description string) *OAuth2Error {
	return &OAuth2Error{
		Code:        InvalidGrant,
		Description: description,
		Status:      http.StatusBadRequest,
	}
}

func NewUnsupportedGrantType() *OAuth2Error {
	return &OAuth2Error{
		Code:        UnsupportedGrantType,
		Description: "grant_type must be 'authorization_code' or 'refresh_token'",
		Status:      http.StatusBadRequest,
	}
}

func NewUnauthorized(description string) *OAuth2Error {
	return &OAuth2Error{
		Code:        Unauthorized,
		Description: description,
		Status:      http.StatusUnauthorized,
	}
}

func NewServerError(description string) *OAuth2Error {
	return &OAuth2Error{
		Code:        ServerError,
		Description: description,
		Status:      http.StatusInternalServerError,
	}
}

// AsOAuth2Error unwraps err into an *OAuth2Error if it carries one.
func AsOAuth2Error(err error) (*OAuth2Error, bool) {
	var oauthErr *OAuth2Error
	if stderrors.As(err, &oauthErr) {
		return oauthErr, true
	}

	return nil, false
}

// IsCode reports whether err is an OAuth2Error with the given code.
func IsCode(err error, code string) bool {
	oauthErr, ok := AsOAuth2Error(err)
	return ok && oauthErr.Code == code
}
