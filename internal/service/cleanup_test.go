package service

import (
	"context"
	"errors"
	"testing"
	"time"
)

type cutoffRecorder struct {
	cutoff  time.Time
	deleted int64
	err     error
}

func (c *cutoffRecorder) DeleteStale(ctx context.Context, before time.Time) (int64, error) {
	c.cutoff = before
	return c.deleted, c.err
}

func TestCleanupRunUsesRetentionCutoffs(t *testing.T) {
	otps := &cutoffRecorder{deleted: 3}
	limits := &cutoffRecorder{deleted: 2}
	tokens := &cutoffRecorder{deleted: 1}
	svc := NewCleanupService(otps, limits, tokens)

	before := time.Now().UTC()
	res, err := svc.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	after := time.Now().UTC()

	if res.OtpsDeleted != 3 || res.RateLimitsDeleted != 2 || res.TokensDeleted != 1 {
		t.Errorf("result = %+v", res)
	}

	checkCutoff := func(name string, got time.Time, retention time.Duration) {
		t.Helper()
		lo := before.Add(-retention)
		hi := after.Add(-retention)
		if got.Before(lo) || got.After(hi) {
			t.Errorf("%s cutoff %v outside [%v, %v]", name, got, lo, hi)
		}
	}
	checkCutoff("otp", otps.cutoff, time.Hour)
	checkCutoff("rate-limit", limits.cutoff, 2*time.Hour)
	checkCutoff("token", tokens.cutoff, 24*time.Hour)
}

func TestCleanupRunStopsOnError(t *testing.T) {
	otps := &cutoffRecorder{err: errors.New("table lock timeout")}
	limits := &cutoffRecorder{}
	tokens := &cutoffRecorder{}
	svc := NewCleanupService(otps, limits, tokens)

	if _, err := svc.Run(context.Background()); err == nil {
		t.Fatal("store failure should surface")
	}
	if !limits.cutoff.IsZero() || !tokens.cutoff.IsZero() {
		t.Error("later sweeps should not run after a failure")
	}
}
