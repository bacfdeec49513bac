package client_test

import (
	"context"
	"testing"

	"github.com/pilab-dev/betwiz-oauth/client"
	"github.com/pilab-dev/betwiz-oauth/domain"
	"github.com/pilab-dev/betwiz-oauth/internal/auth"
	"github.com/pilab-dev/betwiz-oauth/internal/memstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newTestService(t *testing.T, verifier client.SecretVerifier, clients ...*domain.Client) *client.ClientService {
	t.Helper()
	return client.NewClientService(memstore.NewInMemoryClientStore(clients...), verifier)
}

func TestClientService_FindActiveClient(t *testing.T) {
	svc := newTestService(t, nil,
		&domain.Client{ID: "active", IsActive: true},
		&domain.Client{ID: "disabled", IsActive: false},
	)
	ctx := context.Background()

	cli, err := svc.FindActiveClient(ctx, "active")
	require.NoError(t, err)
	assert.Equal(t, "active", cli.ID)

	_, err = svc.FindActiveClient(ctx, "disabled")
	assert.ErrorIs(t, err, domain.ErrClientNotFound)

	_, err = svc.FindActiveClient(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrClientNotFound)

	_, err = svc.FindActiveClient(ctx, "")
	assert.ErrorIs(t, err, domain.ErrClientNotFound)
}

func TestClientService_ValidateRedirectURI(t *testing.T) {
	svc := newTestService(t, nil)
	cli := &domain.Client{RedirectURIs: []string{"https://app/cb", "https://app/other?x=1"}}

	assert.NoError(t, svc.ValidateRedirectURI(cli, "https://app/cb"))
	assert.NoError(t, svc.ValidateRedirectURI(cli, "https://app/other?x=1"))

	for _, uri := range []string{
		"https://app/cb/",
		"https://app/cb?evil=1",
		"https://app/c",
		"HTTPS://app/cb",
		"",
	} {
		assert.ErrorIs(t, svc.ValidateRedirectURI(cli, uri), client.ErrInvalidRedirectURI, uri)
	}
}

func TestClientService_GrantScopes(t *testing.T) {
	svc := newTestService(t, nil)
	cli := &domain.Client{AllowedScopes: []string{"b", "c"}}

	tests := []struct {
		name      string
		requested []string
		want      []string
		wantErr   error
	}{
		{name: "intersection", requested: []string{"a", "b"}, want: []string{"b"}},
		{name: "disjoint", requested: []string{"x"}, wantErr: client.ErrInvalidScope},
		{name: "nothing requested", requested: nil, want: []string{"b", "c"}},
		{name: "duplicates collapsed", requested: []string{"c", "b", "c"}, want: []string{"c", "b"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := svc.GrantScopes(cli, tt.requested)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestClientService_GrantScopes_DoesNotAliasAllowList(t *testing.T) {
	svc := newTestService(t, nil)
	cli := &domain.Client{AllowedScopes: []string{"read"}}

	granted, err := svc.GrantScopes(cli, nil)
	require.NoError(t, err)
	granted[0] = "admin"

	assert.Equal(t, []string{"read"}, cli.AllowedScopes)
}

func TestClientService_AuthenticateClient_Plain(t *testing.T) {
	svc := newTestService(t, nil, &domain.Client{ID: "C1", Secret: "s3cret", IsActive: true})
	ctx := context.Background()

	cli, err := svc.AuthenticateClient(ctx, "C1", "s3cret")
	require.NoError(t, err)
	assert.Equal(t, "C1", cli.ID)

	_, err = svc.AuthenticateClient(ctx, "C1", "wrong")
	assert.ErrorIs(t, err, client.ErrInvalidClientCredentials)

	_, err = svc.AuthenticateClient(ctx, "C1", "")
	assert.ErrorIs(t, err, client.ErrInvalidClientCredentials)

	_, err = svc.AuthenticateClient(ctx, "C2", "s3cret")
	assert.ErrorIs(t, err, domain.ErrClientNotFound)
}

func TestClientService_AuthenticateClient_Bcrypt(t *testing.T) {
	hasher := auth.NewBcryptPasswordHasher(bcrypt.MinCost)
	hashed, err := hasher.Hash("s3cret")
	require.NoError(t, err)

	svc := newTestService(t, hasher, &domain.Client{ID: "C1", Secret: hashed, IsActive: true})
	ctx := context.Background()

	_, err = svc.AuthenticateClient(ctx, "C1", "s3cret")
	assert.NoError(t, err)

	_, err = svc.AuthenticateClient(ctx, "C1", hashed)
	assert.ErrorIs(t, err, client.ErrInvalidClientCredentials)
}

func TestPlainSecretVerifier_EmptyStoredSecret(t *testing.T) {
	assert.Error(t, client.PlainSecretVerifier{}.Verify("", ""))
}

func TestParseScope(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, client.ParseScope("  a   b "))
	assert.Empty(t, client.ParseScope(""))
}
