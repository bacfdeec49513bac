package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Counters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.CodeIssued()
	m.TokenGranted("authorization_code")
	m.TokenGranted("authorization_code")
	m.GrantFailed("invalid_grant")
	m.TokenRevoked()
	m.CodesSwept(3)
	m.CodesSwept(0)

	assert.InDelta(t, 1, testutil.ToFloat64(m.CodesIssuedTotal), 0)
	assert.InDelta(t, 2, testutil.ToFloat64(m.TokenGrantsTotal.WithLabelValues("authorization_code")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.GrantFailuresTotal.WithLabelValues("invalid_grant")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.RevocationsTotal), 0)
	assert.InDelta(t, 3, testutil.ToFloat64(m.CodesSweptTotal), 0)

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.Len(t, families, 5)
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.CodeIssued()
		m.TokenGranted("refresh_token")
		m.GrantFailed("invalid_client")
		m.TokenRevoked()
		m.CodesSwept(1)
	})
}
