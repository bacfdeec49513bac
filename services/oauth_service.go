package services

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/pilab-dev/betwiz-oauth/api"
	"github.com/pilab-dev/betwiz-oauth/internal/audit"
	"github.com/pilab-dev/betwiz-oauth/client"
	"github.com/pilab-dev/betwiz-oauth/domain"
	serrors "github.com/pilab-dev/betwiz-oauth/errors"
	"github.com/pilab-dev/betwiz-oauth/internal/crypto"
	"github.com/pilab-dev/betwiz-oauth/internal/metrics"
	applog "github.com/pilab-dev/betwiz-oauth/log"
	"github.com/pilab-dev/betwiz-oauth/tracing"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	// RefreshTokenLifetime is how long an issued refresh token stays valid.
	RefreshTokenLifetime = 90 * 24 * time.Hour

	// DefaultRefreshScope is advertised by refresh_token grant responses.
	DefaultRefreshScope = "betting_events:read betting_events:subscribe"

	// maxCodeAttempts bounds code regeneration after a storage collision.
	maxCodeAttempts = 3
)

// OAuthService implements the authorization code + PKCE and refresh token
// flows. All protocol failures are returned as *serrors.OAuth2Error.
type OAuthService struct {
	clients      *client.ClientService
	codes        domain.AuthCodeRepository
	users        domain.UserRepository
	logger       applog.Logger
	metrics      *metrics.Metrics
	audit        *audit.Logger
	refreshScope string
	now          func() time.Time
	newToken     func() (string, error)
}

// Option configures an OAuthService.
type Option func(*OAuthService)

// WithMetrics records protocol outcomes on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *OAuthService) { s.metrics = m }
}

// WithAuditLogger writes an audit event for every issued code, token
// response and revocation.
func WithAuditLogger(l *audit.Logger) Option {
	return func(s *OAuthService) { s.audit = l }
}

// WithRefreshScope overrides the scope reported for refresh_token grants.
func WithRefreshScope(scope string) Option {
	return func(s *OAuthService) {
		if scope != "" {
			s.refreshScope = scope
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *OAuthService) { s.now = now }
}

// WithTokenGenerator replaces the generator used for codes and tokens.
func WithTokenGenerator(gen func() (string, error)) Option {
	return func(s *OAuthService) { s.newToken = gen }
}

// NewOAuthService creates a new instance of the OAuthService.
func NewOAuthService(
	clients *client.ClientService,
	codes domain.AuthCodeRepository,
	users domain.UserRepository,
	logger applog.Logger,
	opts ...Option,
) *OAuthService {
	s := &OAuthService{
		clients:      clients,
		codes:        codes,
		users:        users,
		logger:       logger,
		refreshScope: DefaultRefreshScope,
		now:          time.Now,
		newToken:     crypto.GenerateOpaqueToken,
	}
	for _, opt := range opts {
		opt(s)
	}

	return s
}

func (s *OAuthService) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return tracing.Tracer().Start(ctx, "OAuthService."+name)
}

// fail records an OAuth error on the span and the failure counter.
func (s *OAuthService) fail(span trace.Span, err *serrors.OAuth2Error) error {
	span.SetStatus(codes.Error, err.Code)
	span.SetAttributes(attribute.String("oauth.error", err.Code))
	s.metrics.GrantFailed(err.Code)

	return err
}

// ValidateAuthorizeRequest checks the request parameters and resolves the
// client and redirect URI. It does not look at the session. An omitted
// code_challenge_method is defaulted to S256 on req.
func (s *OAuthService) ValidateAuthorizeRequest(ctx context.Context, req *api.AuthorizeRequest) (*domain.Client, error) {
	ctx, span := s.startSpan(ctx, "ValidateAuthorizeRequest")
	defer span.End()

	if req.ClientID == "" || req.RedirectURI == "" || req.CodeChallenge == "" {
		return nil, s.fail(span, serrors.NewInvalidRequest("Missing required parameters: client_id, redirect_uri, code_challenge"))
	}

	if req.ResponseType != "code" {
		return nil, s.fail(span, serrors.NewInvalidRequest("response_type must be 'code'"))
	}

	switch req.CodeChallengeMethod {
	case "":
		req.CodeChallengeMethod = domain.CodeChallengeMethodS256
	case domain.CodeChallengeMethodS256, domain.CodeChallengeMethodPlain:
	default:
		return nil, s.fail(span, serrors.NewInvalidRequest("code_challenge_method must be 'S256' or 'plain'"))
	}

	span.SetAttributes(attribute.String("oauth.client_id", req.ClientID))

	cli, err := s.clients.FindActiveClient(ctx, req.ClientID)
	if err != nil {
		if errors.Is(err, domain.ErrClientNotFound) {
			return nil, s.fail(span, serrors.NewInvalidClient("Invalid client_id"))
		}
		s.logger.Error(ctx, "Failed to look up client", err, applog.Fields{"client_id": req.ClientID})
		return nil, s.fail(span, serrors.NewServerError("Failed to look up client"))
	}

	if err := s.clients.ValidateRedirectURI(cli, req.RedirectURI); err != nil {
		return nil, s.fail(span, serrors.NewInvalidRedirectURI("Invalid redirect_uri"))
	}

	return cli, nil
}

// IssueAuthCode grants scopes, stores a fresh code for userID and returns
// the redirect URL carrying code and state.
func (s *OAuthService) IssueAuthCode(ctx context.Context, cli *domain.Client, req *api.AuthorizeRequest, userID string) (string, error) {
	ctx, span := s.startSpan(ctx, "IssueAuthCode")
	defer span.End()

	scopes, err := s.clients.GrantScopes(cli, client.ParseScope(req.Scope))
	if err != nil {
		return "", s.fail(span, serrors.NewInvalidScope("Invalid scope"))
	}

	redirectURL, err := url.Parse(req.RedirectURI)
	if err != nil {
		return "", s.fail(span, serrors.NewInvalidRedirectURI("Malformed redirect_uri"))
	}

	method := req.CodeChallengeMethod
	if method == "" {
		method = domain.CodeChallengeMethodS256
	}

	var authCode *domain.AuthCode
	for attempt := 1; ; attempt++ {
		code, err := s.newToken()
		if err != nil {
			s.logger.Error(ctx, "Failed to generate authorization code", err)
			return "", s.fail(span, serrors.NewServerError("Failed to generate authorization code"))
		}

		now := s.now().UTC()
		authCode = &domain.AuthCode{
			Code:                code,
			ClientID:            cli.ID,
			UserID:              userID,
			RedirectURI:         req.RedirectURI,
			Scope:               scopes,
			CodeChallenge:       req.CodeChallenge,
			CodeChallengeMethod: method,
			CreatedAt:           now,
			ExpiresAt:           now.Add(domain.AuthCodeTTL),
		}

		err = s.codes.SaveAuthCode(ctx, authCode)
		if err == nil {
			break
		}
		if errors.Is(err, domain.ErrAuthCodeExists) && attempt < maxCodeAttempts {
			s.logger.Warn(ctx, "Authorization code collision, regenerating", applog.Fields{"attempt": attempt})
			continue
		}

		s.logger.Error(ctx, "Failed to save authorization code", err, applog.Fields{"client_id": cli.ID})
		return "", s.fail(span, serrors.NewServerError("Failed to create authorization code"))
	}

	query := redirectURL.Query()
	query.Set("code", authCode.Code)
	if req.State != "" {
		query.Set("state", req.State)
	}
	redirectURL.RawQuery = query.Encode()

	s.metrics.CodeIssued()
	s.audit.Log(ctx, audit.Event{
		Action:   audit.ActionCodeIssued,
		ClientID: cli.ID,
		UserID:   userID,
		Details:  "scope=" + strings.Join(scopes, " "),
		Success:  true,
	})
	s.logger.Info(ctx, "Authorization code issued", applog.Fields{
		"client_id": cli.ID,
		"user_id":   userID,
		"scope":     strings.Join(scopes, " "),
	})

	return redirectURL.String(), nil
}

// Token authenticates the client and dispatches on grant_type.
func (s *OAuthService) Token(ctx context.Context, req *api.TokenRequest) (*api.TokenResponse, error) {
	ctx, span := s.startSpan(ctx, "Token")
	defer span.End()

	span.SetAttributes(attribute.String("oauth.grant_type", req.GrantType))

	if req.GrantType != api.GrantTypeAuthorizationCode && req.GrantType != api.GrantTypeRefreshToken {
		return nil, s.fail(span, serrors.NewUnsupportedGrantType())
	}

	cli, err := s.clients.AuthenticateClient(ctx, req.ClientID, req.ClientSecret)
	if err != nil {
		if !errors.Is(err, client.ErrInvalidClientCredentials) && !errors.Is(err, domain.ErrClientNotFound) {
			s.logger.Error(ctx, "Failed to authenticate client", err, applog.Fields{"client_id": req.ClientID})
		}
		return nil, s.fail(span, serrors.NewUnauthenticatedClient("Invalid client credentials"))
	}

	var resp *api.TokenResponse
	if req.GrantType == api.GrantTypeAuthorizationCode {
		resp, err = s.exchangeAuthorizationCode(ctx, cli, req)
	} else {
		resp, err = s.refresh(ctx, req)
	}
	if err != nil {
		s.audit.Log(ctx, audit.Event{
			Action:    audit.ActionTokenRefused,
			ClientID:  cli.ID,
			GrantType: req.GrantType,
			Err:       err,
		})
		if oauthErr, ok := serrors.AsOAuth2Error(err); ok {
			return nil, s.fail(span, oauthErr)
		}
		return nil, err
	}

	s.metrics.TokenGranted(req.GrantType)
	s.audit.Log(ctx, audit.Event{
		Action:    audit.ActionTokenGranted,
		ClientID:  cli.ID,
		UserID:    resp.UserID,
		GrantType: req.GrantType,
		Success:   true,
	})

	return resp, nil
}

func (s *OAuthService) exchangeAuthorizationCode(ctx context.Context, cli *domain.Client, req *api.TokenRequest) (*api.TokenResponse, error) {
	if req.Code == "" || req.RedirectURI == "" || req.CodeVerifier == "" {
		return nil, serrors.NewInvalidRequest("Missing required parameters: code, redirect_uri, code_verifier")
	}

	// Consuming first makes every code single use, whatever happens next.
	authCode, err := s.codes.ConsumeAuthCode(ctx, req.Code)
	if err != nil {
		if errors.Is(err, domain.ErrAuthCodeNotFound) {
			return nil, serrors.NewInvalidGrant("Invalid authorization code. It may have already been used or expired.")
		}
		s.logger.Error(ctx, "Failed to consume authorization code", err)
		return nil, serrors.NewServerError("Failed to redeem authorization code")
	}

	if authCode.IsExpired(s.now()) {
		return nil, serrors.NewInvalidGrant("Authorization code has expired")
	}

	if authCode.ClientID != cli.ID {
		s.logger.Warn(ctx, "Authorization code presented by another client", applog.Fields{
			"client_id":        cli.ID,
			"issued_client_id": authCode.ClientID,
		})
		return nil, serrors.NewInvalidGrant("Authorization code was not issued to this client")
	}

	if authCode.RedirectURI != req.RedirectURI {
		return nil, serrors.NewInvalidGrant("Invalid redirect_uri")
	}

	if !VerifyPKCE(authCode.CodeChallengeMethod, authCode.CodeChallenge, req.CodeVerifier) {
		return nil, serrors.NewInvalidGrant("Invalid code_verifier")
	}

	user, err := s.users.GetUserByID(ctx, authCode.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, serrors.NewInvalidGrant("User not found")
		}
		s.logger.Error(ctx, "Failed to load user", err, applog.Fields{"user_id": authCode.UserID})
		return nil, serrors.NewServerError("Failed to load user")
	}

	accessToken, refreshToken, err := s.newTokenPair()
	if err != nil {
		s.logger.Error(ctx, "Failed to generate tokens", err)
		return nil, serrors.NewServerError("Failed to generate tokens")
	}

	expiresAt := s.now().UTC().Add(RefreshTokenLifetime)
	if err := s.users.SetRefreshToken(ctx, user.ID, crypto.HashToken(refreshToken), expiresAt); err != nil {
		s.logger.Error(ctx, "Failed to store refresh token", err, applog.Fields{"user_id": user.ID})
		return nil, serrors.NewServerError("Failed to store refresh token")
	}

	s.logger.Info(ctx, "Authorization code redeemed", applog.Fields{"client_id": cli.ID, "user_id": user.ID})

	return &api.TokenResponse{
		AccessToken:  accessToken,
		TokenType:    api.TokenTypeBearer,
		ExpiresIn:    api.AccessTokenLifetime,
		RefreshToken: refreshToken,
		Scope:        strings.Join(authCode.Scope, " "),
		UserID:       user.ID,
	}, nil
}

func (s *OAuthService) refresh(ctx context.Context, req *api.TokenRequest) (*api.TokenResponse, error) {
	if req.RefreshToken == "" {
		return nil, serrors.NewInvalidRequest("Missing refresh_token")
	}

	oldHash := crypto.HashToken(req.RefreshToken)
	user, err := s.users.FindUserByRefreshToken(ctx, oldHash, s.now())
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, serrors.NewInvalidGrant("Invalid or expired refresh_token")
		}
		s.logger.Error(ctx, "Failed to look up refresh token", err)
		return nil, serrors.NewServerError("Failed to look up refresh token")
	}

	accessToken, refreshToken, err := s.newTokenPair()
	if err != nil {
		s.logger.Error(ctx, "Failed to generate tokens", err)
		return nil, serrors.NewServerError("Failed to generate tokens")
	}

	expiresAt := s.now().UTC().Add(RefreshTokenLifetime)
	err = s.users.RotateRefreshToken(ctx, user.ID, oldHash, crypto.HashToken(refreshToken), expiresAt)
	if err != nil {
		if errors.Is(err, domain.ErrRefreshTokenMismatch) {
			// Another request rotated this token first.
			return nil, serrors.NewInvalidGrant("Invalid or expired refresh_token")
		}
		s.logger.Error(ctx, "Failed to rotate refresh token", err, applog.Fields{"user_id": user.ID})
		return nil, serrors.NewServerError("Failed to rotate refresh token")
	}

	s.logger.Debug(ctx, "Refresh token rotated", applog.Fields{"user_id": user.ID})

	return &api.TokenResponse{
		AccessToken:  accessToken,
		TokenType:    api.TokenTypeBearer,
		ExpiresIn:    api.AccessTokenLifetime,
		RefreshToken: refreshToken,
		Scope:        s.refreshScope,
	}, nil
}

// Revoke clears the user's refresh token when token is the one on record.
// Any other token is silently ignored.
func (s *OAuthService) Revoke(ctx context.Context, user *domain.User, token string) error {
	ctx, span := s.startSpan(ctx, "Revoke")
	defer span.End()

	if token == "" {
		return s.fail(span, serrors.NewInvalidRequest("Missing token"))
	}

	cleared, err := s.users.ClearRefreshToken(ctx, user.ID, crypto.HashToken(token))
	if err != nil {
		s.logger.Error(ctx, "Failed to revoke refresh token", err, applog.Fields{"user_id": user.ID})
		return fmt.Errorf("failed to revoke refresh token: %w", err)
	}

	if cleared {
		s.metrics.TokenRevoked()
		s.audit.Log(ctx, audit.Event{Action: audit.ActionTokenRevoked, UserID: user.ID, Success: true})
		s.logger.Info(ctx, "Refresh token revoked", applog.Fields{"user_id": user.ID})
	}

	return nil
}

func (s *OAuthService) newTokenPair() (string, string, error) {
	accessToken, err := s.newToken()
	if err != nil {
		return "", "", err
	}

	refreshToken, err := s.newToken()
	if err != nil {
		return "", "", err
	}

	return accessToken, refreshToken, nil
}
