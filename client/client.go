package client

import (
	"context"
	"crypto/subtle"
	"errors"
	"strings"

	"github.com/pilab-dev/betwiz-oauth/domain"
)

var (
	ErrInvalidClientCredentials = errors.New("invalid client credentials")
	ErrInvalidRedirectURI       = errors.New("invalid redirect URI for client")
	ErrInvalidScope             = errors.New("none of the requested scopes are allowed for client")
)

// SecretVerifier checks a presented client secret against the stored one.
type SecretVerifier interface {
	Verify(stored, presented string) error
}

// PlainSecretVerifier compares secrets stored in clear, in constant time.
type PlainSecretVerifier struct{}

// Verify implements SecretVerifier.
func (PlainSecretVerifier) Verify(stored, presented string) error {
	if stored == "" || subtle.ConstantTimeCompare([]byte(stored), []byte(presented)) != 1 {
		return ErrInvalidClientCredentials
	}

	return nil
}

// ClientService is the client registry used by the OAuth endpoints.
type ClientService struct {
	store    domain.ClientRepository
	verifier SecretVerifier
}

// NewClientService creates a new ClientService instance. A nil verifier
// falls back to PlainSecretVerifier.
func NewClientService(store domain.ClientRepository, verifier SecretVerifier) *ClientService {
	if verifier == nil {
		verifier = PlainSecretVerifier{}
	}

	return &ClientService{
		store:    store,
		verifier: verifier,
	}
}

// FindActiveClient retrieves an active client by ID.
func (s *ClientService) FindActiveClient(ctx context.Context, clientID string) (*domain.Client, error) {
	if clientID == "" {
		return nil, domain.ErrClientNotFound
	}

	return s.store.FindActiveClient(ctx, clientID)
}

// ValidateRedirectURI checks that redirectURI is registered verbatim for the client.
func (s *ClientService) ValidateRedirectURI(cli *domain.Client, redirectURI string) error {
	if !cli.HasRedirectURI(redirectURI) {
		return ErrInvalidRedirectURI
	}

	return nil
}

// GrantScopes intersects the requested scopes with the client's allow-list.
// An empty request grants the full allow-list; a non-empty request with an
// empty intersection is rejected.
func (s *ClientService) GrantScopes(cli *domain.Client, requested []string) ([]string, error) {
	if len(requested) == 0 {
		granted := make([]string, len(cli.AllowedScopes))
		copy(granted, cli.AllowedScopes)

		return granted, nil
	}

	allowedScopes := make(map[string]bool, len(cli.AllowedScopes))
	for _, scope := range cli.AllowedScopes {
		allowedScopes[scope] = true
	}

	granted := make([]string, 0, len(requested))
	seen := make(map[string]bool, len(requested))
	for _, scope := range requested {
		if allowedScopes[scope] && !seen[scope] {
			granted = append(granted, scope)
			seen[scope] = true
		}
	}

	if len(granted) == 0 {
		return nil, ErrInvalidScope
	}

	return granted, nil
}

// AuthenticateClient validates client credentials and returns the client if valid.
func (s *ClientService) AuthenticateClient(ctx context.Context, clientID, clientSecret string) (*domain.Client, error) {
	cli, err := s.FindActiveClient(ctx, clientID)
	if err != nil {
		return nil, err
	}

	if err := s.verifier.Verify(cli.Secret, clientSecret); err != nil {
		return nil, ErrInvalidClientCredentials
	}

	return cli, nil
}

// ParseScope splits a space-delimited scope parameter, dropping empty entries.
func ParseScope(scope string) []string {
	return strings.Fields(scope)
}
