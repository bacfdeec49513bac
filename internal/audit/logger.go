package audit

import (
	"context"
	"io"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"
)

// Actions recorded by the OAuth service.
const (
	ActionCodeIssued   = "authorization_code.issued"
	ActionTokenGranted = "token.granted"
	ActionTokenRefused = "token.refused"
	ActionTokenRevoked = "refresh_token.revoked"
)

// Event represents an audit log event.
type Event struct {
	Action    string
	ClientID  string
	UserID    string
	GrantType string
	Details   string
	Success   bool
	Err       error
}

// Logger writes one JSON line per event. A nil *Logger drops events.
type Logger struct {
	logger zerolog.Logger
	now    func() time.Time
}

// New returns a Logger writing to w under the given service name.
func New(w io.Writer, service string) *Logger {
	return &Logger{
		logger: zerolog.New(w).With().Str("service", service).Str("log", "audit").Logger(),
		now:    time.Now,
	}
}

// Log records an audit event. Never include secrets, codes or tokens in
// Details.
func (l *Logger) Log(ctx context.Context, event Event) {
	if l == nil {
		return
	}

	entry := l.logger.Log().
		Time("timestamp", l.now().UTC()).
		Str("action", event.Action).
		Bool("success", event.Success)

	if event.ClientID != "" {
		entry = entry.Str("client_id", event.ClientID)
	}
	if event.UserID != "" {
		entry = entry.Str("user_id", event.UserID)
	}
	if event.GrantType != "" {
		entry = entry.Str("grant_type", event.GrantType)
	}
	if event.Details != "" {
		entry = entry.Str("details", event.Details)
	}
	if event.Err != nil {
		entry = entry.Str("error", event.Err.Error())
	}
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		entry = entry.Str("trace_id", sc.TraceID().String())
	}

	entry.Send()
}
