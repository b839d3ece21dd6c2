package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/learnhub/learning-platform/internal/model"
)

// RateLimitRepo persists fixed-window counters, one row per
// (identifier, type).  Every mutation is a single conditional statement;
// the limiter in internal/service relies on that for correctness under
// concurrent callers hitting the same key.
type RateLimitRepo struct{ DB *sql.DB }

func NewRateLimitRepo(db *sql.DB) *RateLimitRepo { return &RateLimitRepo{DB: db} }

// Get loads the counter row for (identifier, type).  sql.ErrNoRows when
// no window has been opened yet.
func (r *RateLimitRepo) Get(ctx context.Context, identifier, typ string) (model.RateLimit, error) {
	var rl model.RateLimit
	err := r.DB.QueryRowContext(ctx,
		`SELECT id, identifier, type, count, window_start
		 FROM rate_limits WHERE identifier=? AND type=? LIMIT 1`,
		identifier, typ).Scan(&rl.ID, &rl.Identifier, &rl.Type, &rl.Count, &rl.WindowStart)
	return rl, err
}

// Create opens a new window with count=1.  Returns ErrDuplicate if a
// concurrent request created the row first.
func (r *RateLimitRepo) Create(ctx context.Context, identifier, typ string, windowStart time.Time) error {
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO rate_limits (identifier, type, count, window_start) VALUES (?,?,1,?)",
		identifier, typ, windowStart)
	if isDuplicate(err) {
		return ErrDuplicate
	}
	return err
}

// ConditionalIncrement bumps the counter only while it is below max and
// the window has not been reset since it was read.  A false return means
// a concurrent request won the race.
func (r *RateLimitRepo) ConditionalIncrement(ctx context.Context, id uint64, max int, windowStart time.Time) (bool, error) {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE rate_limits SET count=count+1 WHERE id=? AND count < ? AND window_start=?",
		id, max, windowStart)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// ResetWindow restarts an expired window with count=1, guarded by the old
// window_start so only one of several racing requests performs the reset.
func (r *RateLimitRepo) ResetWindow(ctx context.Context, id uint64, oldWindowStart, newWindowStart time.Time) (bool, error) {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE rate_limits SET count=1, window_start=? WHERE id=? AND window_start=?",
		newWindowStart, id, oldWindowStart)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// Count re-reads the current counter value after a successful increment.
func (r *RateLimitRepo) Count(ctx context.Context, id uint64) (int, error) {
	var count int
	err := r.DB.QueryRowContext(ctx,
		"SELECT count FROM rate_limits WHERE id=?", id).Scan(&count)
	return count, err
}

// Delete clears the counter for an identifier unconditionally (admin reset).
func (r *RateLimitRepo) Delete(ctx context.Context, identifier, typ string) error {
	_, err := r.DB.ExecContext(ctx,
		"DELETE FROM rate_limits WHERE identifier=? AND type=?", identifier, typ)
	return err
}

// DeleteStale removes counters whose window opened before the cutoff.
func (r *RateLimitRepo) DeleteStale(ctx context.Context, before time.Time) (int64, error) {
	res, err := r.DB.ExecContext(ctx,
		"DELETE FROM rate_limits WHERE window_start < ?", before)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
