package cmd

import (
	"bytes"
	"strings"
	"testing"

	"github.com/pilab-dev/betwiz-oauth/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionMint(t *testing.T) {
	t.Setenv("BETWIZ_JWT_SECRET", "cli-secret")

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"session", "mint", "--user", "u-42", "--ttl", "1h"})
	require.NoError(t, rootCmd.Execute())

	userID, err := middleware.NewSessionAuthenticator("cli-secret", nil).ParseToken(strings.TrimSpace(out.String()))
	require.NoError(t, err)
	assert.Equal(t, "u-42", userID)
}
