package middleware

import (
	"errors"

	"github.com/labstack/echo/v4"
	"github.com/pilab-dev/betwiz-oauth/domain"
	serrors "github.com/pilab-dev/betwiz-oauth/errors"
	"github.com/rs/zerolog/log"
)

// LoadSession attaches the session user to the request context when the
// request carries a valid bearer token, and otherwise lets it through
// anonymously.
func LoadSession(auth *SessionAuthenticator) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := c.Request().Context()

			user, err := auth.Authenticate(ctx, c.Request().Header.Get(echo.HeaderAuthorization))
			switch {
			case err == nil:
				c.SetRequest(c.Request().WithContext(domain.ContextWithUser(ctx, user)))
			case errors.Is(err, ErrNoCredentials), errors.Is(err, ErrInvalidSession):
				log.Debug().Err(err).Msg("Continuing without session")
			default:
				log.Error().Err(err).Msg("Failed to resolve session")
				e := serrors.NewServerError("Failed to resolve session")
				return c.JSON(e.HTTPStatus(), e)
			}

			return next(c)
		}
	}
}

// RequireSession rejects requests without a valid session with 401
// unauthorized.
func RequireSession(auth *SessionAuthenticator) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := c.Request().Context()

			user, err := auth.Authenticate(ctx, c.Request().Header.Get(echo.HeaderAuthorization))
			if err != nil {
				e := SessionError(err)
				return c.JSON(e.HTTPStatus(), e)
			}

			c.SetRequest(c.Request().WithContext(domain.ContextWithUser(ctx, user)))

			return next(c)
		}
	}
}

// SessionError maps an Authenticate failure to the error a protected
// endpoint responds with.
func SessionError(err error) *serrors.OAuth2Error {
	switch {
	case errors.Is(err, ErrNoCredentials):
		return serrors.NewUnauthorized("Not authorized, no token")
	case errors.Is(err, ErrInvalidSession):
		return serrors.NewUnauthorized("Not authorized, token failed")
	default:
		log.Error().Err(err).Msg("Failed to resolve session")
		return serrors.NewServerError("Failed to resolve session")
	}
}

// SessionUser returns the user attached by LoadSession or RequireSession.
func SessionUser(c echo.Context) (*domain.User, bool) {
	return domain.UserFromContext(c.Request().Context())
}
