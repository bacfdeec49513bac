package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
)

// Metrics holds the authorization server counters. A nil *Metrics is valid
// and records nothing, which keeps tests free of registry setup.
type Metrics struct {
	CodesIssuedTotal   prometheus.Counter
	TokenGrantsTotal   *prometheus.CounterVec
	GrantFailuresTotal *prometheus.CounterVec
	RevocationsTotal   prometheus.Counter
	CodesSweptTotal    prometheus.Counter
}

// New creates the counters and registers them with reg when it is not nil.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		CodesIssuedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "betwiz_oauth_codes_issued_total",
			Help: "Total number of authorization codes issued.",
		}),
		TokenGrantsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "betwiz_oauth_token_grants_total",
			Help: "Total number of successful token grants by grant type.",
		}, []string{"grant_type"}),
		GrantFailuresTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "betwiz_oauth_grant_failures_total",
			Help: "Total number of failed authorize and token requests by OAuth error code.",
		}, []string{"error"}),
		RevocationsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "betwiz_oauth_revocations_total",
			Help: "Total number of refresh tokens revoked.",
		}),
		CodesSweptTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "betwiz_oauth_codes_swept_total",
			Help: "Total number of expired authorization codes removed by the sweeper.",
		}),
	}

	if reg == nil {
		return m
	}

	for _, c := range []prometheus.Collector{
		m.CodesIssuedTotal,
		m.TokenGrantsTotal,
		m.GrantFailuresTotal,
		m.RevocationsTotal,
		m.CodesSweptTotal,
	} {
		if err := reg.Register(c); err != nil {
			log.Warn().Err(err).Msg("Failed to register metric")
		}
	}
	log.Info().Msg("Custom Prometheus metrics registered.")

	return m
}

func (m *Metrics) CodeIssued() {
	if m != nil {
		m.CodesIssuedTotal.Inc()
	}
}

func (m *Metrics) TokenGranted(grantType string) {
	if m != nil {
		m.TokenGrantsTotal.WithLabelValues(grantType).Inc()
	}
}

func (m *Metrics) GrantFailed(code string) {
	if m != nil {
		m.GrantFailuresTotal.WithLabelValues(code).Inc()
	}
}

func (m *Metrics) TokenRevoked() {
	if m != nil {
		m.RevocationsTotal.Inc()
	}
}

func (m *Metrics) CodesSwept(n int64) {
	if m != nil && n > 0 {
		m.CodesSweptTotal.Add(float64(n))
	}
}
