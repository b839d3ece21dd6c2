package service

import (
	"context"
	"log"
	"time"
)

// Retention windows for terminal rows.  Used OTPs and revoked tokens are
// kept briefly as an audit trail before the sweeper removes them.
const (
	usedOtpRetention     = time.Hour
	staleWindowRetention = 2 * time.Hour
	revokedTokenGrace    = 24 * time.Hour
)

// Cleanup store contracts: each repository exposes one stale-row delete.
type OtpCleanupStore interface {
	DeleteStale(ctx context.Context, usedBefore time.Time) (int64, error)
}
type RateLimitCleanupStore interface {
	DeleteStale(ctx context.Context, before time.Time) (int64, error)
}
type TokenCleanupStore interface {
	DeleteStale(ctx context.Context, revokedBefore time.Time) (int64, error)
}

// CleanupResult reports how many rows one sweep removed.
type CleanupResult struct {
	OtpsDeleted       int64
	RateLimitsDeleted int64
	TokensDeleted     int64
}

// CleanupService purges rows that reached a terminal state: expired or
// used OTPs, closed rate-limit windows and expired or long-revoked
// refresh tokens.  Every delete matches only terminal rows, so sweeps are
// idempotent and safe to run alongside live traffic.
type CleanupService struct {
	otps   OtpCleanupStore
	limits RateLimitCleanupStore
	tokens TokenCleanupStore
}

func NewCleanupService(otps OtpCleanupStore, limits RateLimitCleanupStore, tokens TokenCleanupStore) *CleanupService {
	return &CleanupService{otps: otps, limits: limits, tokens: tokens}
}

// Run executes a single sweep and returns the counts removed.
func (s *CleanupService) Run(ctx context.Context) (CleanupResult, error) {
	now := time.Now().UTC()
	var res CleanupResult
	var err error

	if res.OtpsDeleted, err = s.otps.DeleteStale(ctx, now.Add(-usedOtpRetention)); err != nil {
		return res, err
	}
	if res.RateLimitsDeleted, err = s.limits.DeleteStale(ctx, now.Add(-staleWindowRetention)); err != nil {
		return res, err
	}
	if res.TokensDeleted, err = s.tokens.DeleteStale(ctx, now.Add(-revokedTokenGrace)); err != nil {
		return res, err
	}
	return res, nil
}

// Start sweeps once per interval until the context is cancelled.  Run it
// on its own goroutine; failures are logged, never fatal.
func (s *CleanupService) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sweepCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
			res, err := s.Run(sweepCtx)
			cancel()
			if err != nil {
				log.Printf("cleanup: sweep failed: %v", err)
				continue
			}
			log.Printf("cleanup: removed otps=%d rate_limits=%d tokens=%d",
				res.OtpsDeleted, res.RateLimitsDeleted, res.TokensDeleted)
		}
	}
}
