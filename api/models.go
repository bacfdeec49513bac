package api

const (
	GrantTypeAuthorizationCode = "authorization_code"
	GrantTypeRefreshToken      = "refresh_token"

	TokenTypeBearer = "Bearer"

	// AccessTokenLifetime is the advertised access token lifetime in seconds.
	AccessTokenLifetime = 3600
)

// TokenResponse represents an OAuth 2.0 token response. UserID is only set
// for the authorization_code grant.
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
	RefreshToken string `json:"refresh_token,omitempty"`
	Scope        string `json:"scope,omitempty"`
	UserID       string `json:"user_id,omitempty"`
}

// AuthorizeResponse is returned by the non-interactive authorize endpoint.
//
//nolint:tagliatelle
type AuthorizeResponse struct {
	RedirectURI string `json:"redirect_uri"`
}

// MessageResponse carries a plain acknowledgement.
type MessageResponse struct {
	Message string `json:"message"`
}

// HealthResponse is returned by GET /healthz.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// AuthorizeRequest carries the authorization endpoint parameters, read
// from the query string and, for POST, the body.
type AuthorizeRequest struct {
	ResponseType        string `query:"response_type" form:"response_type" json:"response_type"`
	ClientID            string `query:"client_id" form:"client_id" json:"client_id"`
	RedirectURI         string `query:"redirect_uri" form:"redirect_uri" json:"redirect_uri"`
	Scope               string `query:"scope" form:"scope" json:"scope"`
	State               string `query:"state" form:"state" json:"state"`
	CodeChallenge       string `query:"code_challenge" form:"code_challenge" json:"code_challenge"`
	CodeChallengeMethod string `query:"code_challenge_method" form:"code_challenge_method" json:"code_challenge_method"`
}

// TokenRequest is the token endpoint body, JSON or form encoded.
type TokenRequest struct {
	GrantType    string `form:"grant_type" json:"grant_type"`
	Code         string `form:"code" json:"code"`
	RedirectURI  string `form:"redirect_uri" json:"redirect_uri"`
	ClientID     string `form:"client_id" json:"client_id"`
	ClientSecret string `form:"client_secret" json:"client_secret"`
	CodeVerifier string `form:"code_verifier" json:"code_verifier"`
	RefreshToken string `form:"refresh_token" json:"refresh_token"`
}

// RevokeRequest is the revocation endpoint body.
type RevokeRequest struct {
	Token string `form:"token" json:"token"`
}
