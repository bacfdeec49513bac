package server

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/pilab-dev/betwiz-oauth/api/echo"
	"github.com/pilab-dev/betwiz-oauth/cache"
	"github.com/pilab-dev/betwiz-oauth/client"
	"github.com/pilab-dev/betwiz-oauth/config"
	"github.com/pilab-dev/betwiz-oauth/internal/memstore"
	"github.com/pilab-dev/betwiz-oauth/log"
	"github.com/pilab-dev/betwiz-oauth/middleware"
	"github.com/pilab-dev/betwiz-oauth/services"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRouter_LogsRequests(t *testing.T) {
	codes := cache.NewMemoryAuthCodeStore()
	t.Cleanup(func() { _ = codes.Close() })

	users := memstore.NewInMemoryUserStore()
	svc := services.NewOAuthService(client.NewClientService(memstore.NewInMemoryClientStore(), nil), codes, users, log.NewNopLogger())
	oauthAPI := echo.NewOAuth2API(svc, middleware.NewSessionAuthenticator("secret", users), echo.Options{})

	var buf bytes.Buffer
	cfg := &config.ServerConfig{HTTPAddr: ":0", OtelServiceName: "betwiz-oauth-test"}
	router := NewRouter(cfg, log.NewZerologAdapterWithWriter(&buf, zerolog.InfoLevel), oauthAPI)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, buf.String(), `"path":"/healthz"`)
	assert.Contains(t, buf.String(), `"status":200`)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nowhere", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	srv := NewHTTPServer(cfg, log.NewNopLogger(), oauthAPI)
	assert.Equal(t, ":0", srv.Addr)
}
