package seed

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/pilab-dev/betwiz-oauth/client"
	"github.com/pilab-dev/betwiz-oauth/internal/auth"
	"github.com/pilab-dev/betwiz-oauth/internal/memstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const seedYAML = `
clients:
  - client_id: C1
    client_secret: S1
    client_name: Betting app
    redirect_uris: ["https://app/cb"]
    allowed_scopes: [read, write]
  - client_name: Generated
    redirect_uris: ["https://gen/cb"]
    allowed_scopes: [read]
    is_active: false
`

func TestLoadClients(t *testing.T) {
	specs, err := LoadClients(strings.NewReader(seedYAML))
	require.NoError(t, err)
	require.Len(t, specs, 2)
	assert.Equal(t, "C1", specs[0].ID)
	assert.Equal(t, []string{"read", "write"}, specs[0].AllowedScopes)
	assert.Nil(t, specs[0].IsActive)
	require.NotNil(t, specs[1].IsActive)
	assert.False(t, *specs[1].IsActive)
}

func TestLoadClients_Invalid(t *testing.T) {
	tests := map[string]string{
		"empty":            "",
		"unknown key":      "clients:\n  - client_id: C1\n    redirect_uris: [x]\n    colour: red\n",
		"no redirect uris": "clients:\n  - client_id: C1\n",
		"duplicate id":     "clients:\n  - client_id: C1\n    redirect_uris: [x]\n  - client_id: C1\n    redirect_uris: [y]\n",
	}

	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := LoadClients(strings.NewReader(doc))
			assert.Error(t, err)
		})
	}
}

func TestApply(t *testing.T) {
	ctx := context.Background()
	specs, err := LoadClients(strings.NewReader(seedYAML))
	require.NoError(t, err)

	store := memstore.NewInMemoryClientStore()
	results, err := Apply(ctx, store, specs, nil)
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, "C1", results[0].ClientID)
	assert.False(t, results[0].GeneratedSecret)
	assert.Empty(t, results[0].Secret)

	assert.True(t, results[1].GeneratedID)
	_, err = uuid.Parse(results[1].ClientID)
	assert.NoError(t, err)
	assert.True(t, results[1].GeneratedSecret)
	assert.Len(t, results[1].Secret, 64)

	cli, err := store.FindActiveClient(ctx, "C1")
	require.NoError(t, err)
	assert.Equal(t, "S1", cli.Secret)
	assert.True(t, cli.IsActive)

	_, err = store.FindActiveClient(ctx, results[1].ClientID)
	assert.Error(t, err, "is_active: false is honoured")
}

func TestApply_HashedSecrets(t *testing.T) {
	ctx := context.Background()
	specs, err := LoadClients(strings.NewReader(seedYAML))
	require.NoError(t, err)

	hasher := auth.NewBcryptPasswordHasher(bcrypt.MinCost)
	store := memstore.NewInMemoryClientStore()
	_, err = Apply(ctx, store, specs[:1], hasher)
	require.NoError(t, err)

	stored, err := store.FindActiveClient(ctx, "C1")
	require.NoError(t, err)
	assert.NotEqual(t, "S1", stored.Secret)

	svc := client.NewClientService(store, hasher)
	_, err = svc.AuthenticateClient(ctx, "C1", "S1")
	assert.NoError(t, err)
	_, err = svc.AuthenticateClient(ctx, "C1", "wrong")
	assert.ErrorIs(t, err, client.ErrInvalidClientCredentials)
}
