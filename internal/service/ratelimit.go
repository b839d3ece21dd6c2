package service

import (
	"context"
	"database/sql"
	"errors"
	"math"
	"time"

	"github.com/learnhub/learning-platform/internal/model"
	"github.com/learnhub/learning-platform/internal/repository"
)

// RateLimitRule configures one action type: at most Max requests per
// rolling Window.
type RateLimitRule struct {
	Window time.Duration
	Max    int
}

// DefaultRateLimits mirrors the product limits: 5 OTP requests and 10
// verify attempts per email per hour, 20 requests per IP per minute.
func DefaultRateLimits() map[string]RateLimitRule {
	return map[string]RateLimitRule{
		model.RateLimitOtpRequest: {Window: time.Hour, Max: 5},
		model.RateLimitOtpVerify:  {Window: time.Hour, Max: 10},
		model.RateLimitIPRequest:  {Window: time.Minute, Max: 20},
	}
}

// RateLimitStore is the storage contract for counter rows.  All mutations
// must be single atomic statements; the limiter never read-modify-writes.
type RateLimitStore interface {
	Get(ctx context.Context, identifier, typ string) (model.RateLimit, error)
	Create(ctx context.Context, identifier, typ string, windowStart time.Time) error
	ConditionalIncrement(ctx context.Context, id uint64, max int, windowStart time.Time) (bool, error)
	ResetWindow(ctx context.Context, id uint64, oldWindowStart, newWindowStart time.Time) (bool, error)
	Count(ctx context.Context, id uint64) (int, error)
	Delete(ctx context.Context, identifier, typ string) error
}

// RateLimitResult reports one limiter decision.
type RateLimitResult struct {
	Allowed     bool
	Remaining   int
	RetryAfter  *time.Time
	WaitSeconds int
}

// RateLimiter enforces per-identifier fixed windows on top of a
// RateLimitStore.  Correctness under concurrent callers comes entirely
// from the store's conditional primitives: a request that loses a race on
// the same key re-reads and retries at most once, or is rejected.
type RateLimiter struct {
	store RateLimitStore
	rules map[string]RateLimitRule
}

// NewRateLimiter builds a limiter.  A nil rules map selects the defaults.
func NewRateLimiter(store RateLimitStore, rules map[string]RateLimitRule) *RateLimiter {
	if rules == nil {
		rules = DefaultRateLimits()
	}
	return &RateLimiter{store: store, rules: rules}
}

var errUnknownRateLimitType = errors.New("unknown rate limit type")

// Check consumes one slot for (identifier, typ), opening or resetting the
// window as needed.  Timestamps are truncated to milliseconds so the
// window_start equality guard survives the round trip through DATETIME(3).
func (l *RateLimiter) Check(ctx context.Context, identifier, typ string) (RateLimitResult, error) {
	rule, ok := l.rules[typ]
	if !ok {
		return RateLimitResult{}, errUnknownRateLimitType
	}
	now := time.Now().UTC().Truncate(time.Millisecond)

	rl, err := l.store.Get(ctx, identifier, typ)
	if err == sql.ErrNoRows {
		err = l.store.Create(ctx, identifier, typ, now)
		if err == nil {
			return RateLimitResult{Allowed: true, Remaining: rule.Max - 1}, nil
		}
		if err != repository.ErrDuplicate {
			return RateLimitResult{}, err
		}
		// Lost the creation race; apply window logic to the winner's row.
		if rl, err = l.store.Get(ctx, identifier, typ); err != nil {
			return RateLimitResult{}, err
		}
	} else if err != nil {
		return RateLimitResult{}, err
	}

	if now.Sub(rl.WindowStart) >= rule.Window {
		ok, err := l.store.ResetWindow(ctx, rl.ID, rl.WindowStart, now)
		if err != nil {
			return RateLimitResult{}, err
		}
		if ok {
			return RateLimitResult{Allowed: true, Remaining: rule.Max - 1}, nil
		}
		// A concurrent request reset the window first; count against it.
		if rl, err = l.store.Get(ctx, identifier, typ); err != nil {
			return RateLimitResult{}, err
		}
	}

	return l.consume(ctx, rl, rule, now)
}

// consume attempts the conditional increment against an open window.
func (l *RateLimiter) consume(ctx context.Context, rl model.RateLimit, rule RateLimitRule, now time.Time) (RateLimitResult, error) {
	if rl.Count >= rule.Max {
		return denied(rl.WindowStart, rule.Window, now), nil
	}
	ok, err := l.store.ConditionalIncrement(ctx, rl.ID, rule.Max, rl.WindowStart)
	if err != nil {
		return RateLimitResult{}, err
	}
	if !ok {
		// Zero rows touched: a concurrent request filled the window (or
		// reset it) between our read and the update.
		return denied(rl.WindowStart, rule.Window, now), nil
	}
	count, err := l.store.Count(ctx, rl.ID)
	if err != nil {
		return RateLimitResult{}, err
	}
	remaining := rule.Max - count
	if remaining < 0 {
		remaining = 0
	}
	return RateLimitResult{Allowed: true, Remaining: remaining}, nil
}

// Status reports the current state for (identifier, typ) without
// consuming a slot.
func (l *RateLimiter) Status(ctx context.Context, identifier, typ string) (RateLimitResult, error) {
	rule, ok := l.rules[typ]
	if !ok {
		return RateLimitResult{}, errUnknownRateLimitType
	}
	now := time.Now().UTC()

	rl, err := l.store.Get(ctx, identifier, typ)
	if err == sql.ErrNoRows {
		return RateLimitResult{Allowed: true, Remaining: rule.Max}, nil
	}
	if err != nil {
		return RateLimitResult{}, err
	}
	if now.Sub(rl.WindowStart) >= rule.Window {
		return RateLimitResult{Allowed: true, Remaining: rule.Max}, nil
	}
	if rl.Count >= rule.Max {
		return denied(rl.WindowStart, rule.Window, now), nil
	}
	return RateLimitResult{Allowed: true, Remaining: rule.Max - rl.Count}, nil
}

// Reset clears the counter for an identifier unconditionally (admin use).
func (l *RateLimiter) Reset(ctx context.Context, identifier, typ string) error {
	return l.store.Delete(ctx, identifier, typ)
}

func denied(windowStart time.Time, window time.Duration, now time.Time) RateLimitResult {
	retryAfter := windowStart.Add(window)
	wait := int(math.Ceil(retryAfter.Sub(now).Seconds()))
	if wait < 0 {
		wait = 0
	}
	return RateLimitResult{Allowed: false, Remaining: 0, RetryAfter: &retryAfter, WaitSeconds: wait}
}
