package services

import (
	"context"
	"time"

	"github.com/pilab-dev/betwiz-oauth/domain"
	"github.com/pilab-dev/betwiz-oauth/internal/metrics"
	applog "github.com/pilab-dev/betwiz-oauth/log"
)

// Sweeper periodically purges expired authorization codes from stores that
// have no native expiry.
type Sweeper struct {
	codes    domain.AuthCodeRepository
	interval time.Duration
	logger   applog.Logger
	metrics  *metrics.Metrics
}

func NewSweeper(codes domain.AuthCodeRepository, interval time.Duration, logger applog.Logger, m *metrics.Metrics) *Sweeper {
	return &Sweeper{
		codes:    codes,
		interval: interval,
		logger:   logger,
		metrics:  m,
	}
}

// Run sweeps every interval until ctx is cancelled. A non-positive interval
// disables sweeping and Run returns immediately.
func (s *Sweeper) Run(ctx context.Context) {
	if s.interval <= 0 {
		s.logger.Info(ctx, "Sweep interval is not positive, expired code sweeper disabled")
		return
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.SweepOnce(ctx)
		}
	}
}

// SweepOnce runs a single purge and returns the number of removed codes.
func (s *Sweeper) SweepOnce(ctx context.Context) int64 {
	n, err := s.codes.DeleteExpiredAuthCodes(ctx)
	if err != nil {
		s.logger.Error(ctx, "Failed to delete expired authorization codes", err)
		return 0
	}

	s.metrics.CodesSwept(n)
	if n > 0 {
		s.logger.Debug(ctx, "Expired authorization codes swept", applog.Fields{"count": n})
	}

	return n
}
