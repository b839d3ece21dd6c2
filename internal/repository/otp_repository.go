package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/learnhub/learning-platform/internal/model"
)

// OtpRepo persists one-time password records (only the HMAC digest of a
// code is ever stored).
type OtpRepo struct{ DB *sql.DB }

func NewOtpRepo(db *sql.DB) *OtpRepo { return &OtpRepo{DB: db} }

// Create inserts a new OTP record.
func (r *OtpRepo) Create(ctx context.Context, rec *model.OtpRecord) error {
	res, err := r.DB.ExecContext(ctx,
		`INSERT INTO otp_records (email, otp_hash, expires_at, ip_address, user_agent)
		 VALUES (?,?,?,?,?)`,
		rec.Email, rec.OtpHash, rec.ExpiresAt, nullStr(rec.IPAddress), nullStr(rec.UserAgent))
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	rec.ID = uint64(id)
	return nil
}

// LatestUnused returns the newest unused record for an email regardless of
// expiry.  The resend cooldown is measured against this row.
func (r *OtpRepo) LatestUnused(ctx context.Context, email string) (model.OtpRecord, error) {
	return r.scanOne(r.DB.QueryRowContext(ctx,
		`SELECT id, email, otp_hash, expires_at, attempts, used, ip_address, user_agent, created_at
		 FROM otp_records WHERE email=? AND used=0
		 ORDER BY created_at DESC, id DESC LIMIT 1`, email))
}

// LatestActive returns the newest unused, unexpired record for an email.
// This is the only row a verify attempt is measured against.
func (r *OtpRepo) LatestActive(ctx context.Context, email string) (model.OtpRecord, error) {
	return r.scanOne(r.DB.QueryRowContext(ctx,
		`SELECT id, email, otp_hash, expires_at, attempts, used, ip_address, user_agent, created_at
		 FROM otp_records WHERE email=? AND used=0 AND expires_at > UTC_TIMESTAMP()
		 ORDER BY created_at DESC, id DESC LIMIT 1`, email))
}

// MarkUsed burns a record so it can never verify again.
func (r *OtpRepo) MarkUsed(ctx context.Context, id uint64) error {
	_, err := r.DB.ExecContext(ctx, "UPDATE otp_records SET used=1 WHERE id=?", id)
	return err
}

// IncrementAttempts bumps the wrong-code counter and returns the new value.
func (r *OtpRepo) IncrementAttempts(ctx context.Context, id uint64) (int, error) {
	if _, err := r.DB.ExecContext(ctx,
		"UPDATE otp_records SET attempts=attempts+1 WHERE id=?", id); err != nil {
		return 0, err
	}
	var attempts int
	err := r.DB.QueryRowContext(ctx,
		"SELECT attempts FROM otp_records WHERE id=?", id).Scan(&attempts)
	return attempts, err
}

// DeleteStaleForEmail removes expired or already-used records for one email.
// Runs on every OTP request so each address carries at most one live code.
func (r *OtpRepo) DeleteStaleForEmail(ctx context.Context, email string) (int64, error) {
	res, err := r.DB.ExecContext(ctx,
		"DELETE FROM otp_records WHERE email=? AND (expires_at < UTC_TIMESTAMP() OR used=1)", email)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// DeleteStale removes expired records and used records older than the
// given cutoff.  Called by the hourly sweeper.
func (r *OtpRepo) DeleteStale(ctx context.Context, usedBefore time.Time) (int64, error) {
	res, err := r.DB.ExecContext(ctx,
		`DELETE FROM otp_records
		 WHERE expires_at < UTC_TIMESTAMP() OR (used=1 AND created_at < ?)`, usedBefore)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *OtpRepo) scanOne(row *sql.Row) (model.OtpRecord, error) {
	var (
		rec    model.OtpRecord
		ip, ua sql.NullString
	)
	err := row.Scan(&rec.ID, &rec.Email, &rec.OtpHash, &rec.ExpiresAt,
		&rec.Attempts, &rec.Used, &ip, &ua, &rec.CreatedAt)
	rec.IPAddress = ip.String
	rec.UserAgent = ua.String
	return rec, err
}

func nullStr(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
