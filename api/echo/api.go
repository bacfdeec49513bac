//nolint:varnamelen
package echo

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pilab-dev/betwiz-oauth/api"
	"github.com/pilab-dev/betwiz-oauth/errors"
	"github.com/pilab-dev/betwiz-oauth/middleware"
	"github.com/pilab-dev/betwiz-oauth/services"
	"github.com/rs/zerolog/log"
)

// HealthCheck reports the health of one dependency.
type HealthCheck func(ctx context.Context) error

// Options holds the optional parts of the API.
type Options struct {
	// LoginURL is where unauthenticated GET /oauth/authorize requests go.
	LoginURL string
	// Metrics serves GET /metrics when set.
	Metrics http.Handler
	// HealthChecks are run by GET /healthz, keyed by dependency name.
	HealthChecks map[string]HealthCheck
}

// OAuth2API struct to hold dependencies.
type OAuth2API struct {
	service  *services.OAuthService
	sessions *middleware.SessionAuthenticator
	opts     Options
}

// NewOAuth2API initializes the OAuth2 API.
func NewOAuth2API(
	service *services.OAuthService,
	sessions *middleware.SessionAuthenticator,
	opts Options,
) *OAuth2API {
	return &OAuth2API{
		service:  service,
		sessions: sessions,
		opts:     opts,
	}
}

// RegisterRoutes registers the OAuth2 routes.
func (oa *OAuth2API) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/oauth")
	g.GET("/authorize", oa.AuthorizeHandler, middleware.LoadSession(oa.sessions))
	g.POST("/authorize", oa.AuthorizePostHandler)
	g.POST("/token", oa.TokenHandler)
	g.POST("/revoke", oa.RevokeHandler, middleware.RequireSession(oa.sessions))

	e.GET("/healthz", oa.HealthHandler)
	if oa.opts.Metrics != nil {
		e.GET("/metrics", echo.WrapHandler(oa.opts.Metrics))
	}
}

// renderError writes an OAuth error with its status. Anything else is
// logged and reported as server_error.
func renderError(c echo.Context, err error) error {
	if oauthErr, ok := errors.AsOAuth2Error(err); ok {
		return c.JSON(oauthErr.HTTPStatus(), oauthErr)
	}

	log.Error().Err(err).Str("path", c.Path()).Msg("Unexpected error")
	serverErr := errors.NewServerError("Internal server error")

	return c.JSON(serverErr.HTTPStatus(), serverErr)
}

// AuthorizeHandler handles interactive authorization requests. Without a
// session the user is sent to the login page, which brings them back here
// with all original parameters once they are signed in.
func (oa *OAuth2API) AuthorizeHandler(c echo.Context) error {
	var req api.AuthorizeRequest
	if err := (&echo.DefaultBinder{}).BindQueryParams(c, &req); err != nil {
		return c.JSON(http.StatusBadRequest, errors.NewInvalidRequest("Malformed authorization request"))
	}

	ctx := c.Request().Context()

	cli, err := oa.service.ValidateAuthorizeRequest(ctx, &req)
	if err != nil {
		return renderError(c, err)
	}

	user, ok := middleware.SessionUser(c)
	if !ok {
		loginURL, err := oa.loginRedirect(c.QueryParams())
		if err != nil {
			return renderError(c, err)
		}
		return c.Redirect(http.StatusFound, loginURL)
	}

	redirectURL, err := oa.service.IssueAuthCode(ctx, cli, &req, user.ID)
	if err != nil {
		return renderError(c, err)
	}

	return c.Redirect(http.StatusFound, redirectURL)
}

// AuthorizePostHandler is the non-interactive variant for callers that
// already hold a session. It returns the redirect target instead of
// following it. A missing, malformed or expired session token is a 401,
// reported after the request parameters are validated.
func (oa *OAuth2API) AuthorizePostHandler(c echo.Context) error {
	var req api.AuthorizeRequest
	binder := &echo.DefaultBinder{}
	if err := binder.BindQueryParams(c, &req); err != nil {
		return c.JSON(http.StatusBadRequest, errors.NewInvalidRequest("Malformed authorization request"))
	}
	if err := binder.BindBody(c, &req); err != nil {
		return c.JSON(http.StatusBadRequest, errors.NewInvalidRequest("Malformed authorization request"))
	}

	ctx := c.Request().Context()

	cli, err := oa.service.ValidateAuthorizeRequest(ctx, &req)
	if err != nil {
		return renderError(c, err)
	}

	// The session is checked only once the request itself is valid.
	user, err := oa.sessions.Authenticate(ctx, c.Request().Header.Get(echo.HeaderAuthorization))
	if err != nil {
		return renderError(c, middleware.SessionError(err))
	}

	redirectURL, err := oa.service.IssueAuthCode(ctx, cli, &req, user.ID)
	if err != nil {
		return renderError(c, err)
	}

	return c.JSON(http.StatusOK, api.AuthorizeResponse{RedirectURI: redirectURL})
}

func (oa *OAuth2API) loginRedirect(params url.Values) (string, error) {
	loginURL, err := url.Parse(oa.opts.LoginURL)
	if err != nil {
		return "", errors.NewServerError("Login URL is not configured correctly")
	}

	query := loginURL.Query()
	query.Set("oauth_redirect", "true")
	for key, values := range params {
		for _, v := range values {
			query.Add(key, v)
		}
	}
	loginURL.RawQuery = query.Encode()

	return loginURL.String(), nil
}

// TokenHandler handles the authorization_code and refresh_token grants.
// Client credentials come from the body, or from HTTP Basic when the body
// has none.
func (oa *OAuth2API) TokenHandler(c echo.Context) error {
	var req api.TokenRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errors.NewInvalidRequest("Malformed token request"))
	}

	if req.ClientID == "" && req.ClientSecret == "" {
		if id, secret, ok := c.Request().BasicAuth(); ok {
			req.ClientID = unescapeCredential(id)
			req.ClientSecret = unescapeCredential(secret)
		}
	}

	resp, err := oa.service.Token(c.Request().Context(), &req)
	if err != nil {
		return renderError(c, err)
	}

	c.Response().Header().Set("Cache-Control", "no-store")
	c.Response().Header().Set("Pragma", "no-cache")

	return c.JSON(http.StatusOK, resp)
}

// unescapeCredential undoes the form encoding RFC 6749 applies to Basic
// credentials, keeping the raw value when it is not valid encoding.
func unescapeCredential(s string) string {
	if v, err := url.QueryUnescape(s); err == nil {
		return v
	}

	return s
}

// RevokeHandler clears the session user's refresh token when it matches.
func (oa *OAuth2API) RevokeHandler(c echo.Context) error {
	var req api.RevokeRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errors.NewInvalidRequest("Malformed revoke request"))
	}

	user, ok := middleware.SessionUser(c)
	if !ok {
		return renderError(c, errors.NewUnauthorized("Not authorized, no token"))
	}

	if err := oa.service.Revoke(c.Request().Context(), user, req.Token); err != nil {
		return renderError(c, err)
	}

	return c.JSON(http.StatusOK, api.MessageResponse{Message: "Token revoked successfully"})
}

// HealthHandler runs the configured health checks.
func (oa *OAuth2API) HealthHandler(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 3*time.Second)
	defer cancel()

	resp := api.HealthResponse{Status: "ok"}
	status := http.StatusOK

	if len(oa.opts.HealthChecks) > 0 {
		resp.Checks = make(map[string]string, len(oa.opts.HealthChecks))
	}
	for name, check := range oa.opts.HealthChecks {
		if err := check(ctx); err != nil {
			log.Warn().Err(err).Str("check", name).Msg("Health check failed")
			resp.Checks[name] = "down"
			resp.Status = "degraded"
			status = http.StatusServiceUnavailable
			continue
		}
		resp.Checks[name] = "up"
	}

	return c.JSON(status, resp)
}
