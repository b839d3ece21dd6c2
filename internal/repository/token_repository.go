package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/learnhub/learning-platform/internal/model"
)

// TokenRepo persists refresh tokens.  Rows are keyed by the SHA-256 hash
// of the raw token; family_id ties rotations of one login together.
type TokenRepo struct{ DB *sql.DB }

func NewTokenRepo(db *sql.DB) *TokenRepo { return &TokenRepo{DB: db} }

// Create inserts a refresh token row.
func (r *TokenRepo) Create(ctx context.Context, t *model.RefreshToken) error {
	res, err := r.DB.ExecContext(ctx,
		`INSERT INTO refresh_tokens (token_hash, user_id, family_id, expires_at, device_name, ip_address)
		 VALUES (?,?,?,?,?,?)`,
		t.TokenHash, t.UserID, t.FamilyID, t.ExpiresAt, nullStr(t.DeviceName), nullStr(t.IPAddress))
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	t.ID = uint64(id)
	return nil
}

// GetByHash loads a token row by its hash.  sql.ErrNoRows when unknown.
func (r *TokenRepo) GetByHash(ctx context.Context, tokenHash string) (model.RefreshToken, error) {
	var (
		t          model.RefreshToken
		revokedAt  sql.NullTime
		lastUsedAt sql.NullTime
		replacedBy sql.NullString
		device, ip sql.NullString
	)
	err := r.DB.QueryRowContext(ctx,
		`SELECT id, token_hash, user_id, family_id, expires_at, revoked_at, replaced_by,
		        device_name, ip_address, created_at, last_used_at
		 FROM refresh_tokens WHERE token_hash=? LIMIT 1`, tokenHash).
		Scan(&t.ID, &t.TokenHash, &t.UserID, &t.FamilyID, &t.ExpiresAt, &revokedAt,
			&replacedBy, &device, &ip, &t.CreatedAt, &lastUsedAt)
	if err != nil {
		return model.RefreshToken{}, err
	}
	if revokedAt.Valid {
		t.RevokedAt = &revokedAt.Time
	}
	if lastUsedAt.Valid {
		t.LastUsedAt = &lastUsedAt.Time
	}
	t.ReplacedBy = replacedBy.String
	t.DeviceName = device.String
	t.IPAddress = ip.String
	return t, nil
}

// MarkReplaced revokes the old token of a rotation and records its
// successor's hash.  The guard only touches a row that is still current,
// so of two concurrent rotations exactly one gets RowsAffected=1; the
// loser sees 0 and must retract its successor.  A row with replaced_by
// set that is presented again is treated as stolen.
func (r *TokenRepo) MarkReplaced(ctx context.Context, id uint64, newHash string) (int64, error) {
	res, err := r.DB.ExecContext(ctx,
		`UPDATE refresh_tokens SET revoked_at=UTC_TIMESTAMP(), replaced_by=?
		 WHERE id=? AND replaced_by IS NULL AND revoked_at IS NULL`,
		newHash, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// RevokeByHash marks one token revoked.  No-op on already-revoked rows.
func (r *TokenRepo) RevokeByHash(ctx context.Context, tokenHash string) (int64, error) {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE refresh_tokens SET revoked_at=UTC_TIMESTAMP() WHERE token_hash=? AND revoked_at IS NULL",
		tokenHash)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// RevokeFamily revokes every live token sharing a family.
func (r *TokenRepo) RevokeFamily(ctx context.Context, familyID string) (int64, error) {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE refresh_tokens SET revoked_at=UTC_TIMESTAMP() WHERE family_id=? AND revoked_at IS NULL",
		familyID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// RevokeAllForUser revokes all of a user's live tokens.
func (r *TokenRepo) RevokeAllForUser(ctx context.Context, userID uint64) (int64, error) {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE refresh_tokens SET revoked_at=UTC_TIMESTAMP() WHERE user_id=? AND revoked_at IS NULL",
		userID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// RevokeAllExceptFamily revokes all of a user's live tokens outside one
// family ("sign out everywhere else").
func (r *TokenRepo) RevokeAllExceptFamily(ctx context.Context, userID uint64, familyID string) (int64, error) {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE refresh_tokens SET revoked_at=UTC_TIMESTAMP() WHERE user_id=? AND revoked_at IS NULL AND family_id<>?",
		userID, familyID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// SessionsForUser returns the current token of every live family, newest
// activity first.  Rotated-out rows (replaced_by set) never appear.
func (r *TokenRepo) SessionsForUser(ctx context.Context, userID uint64) ([]model.RefreshToken, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT id, family_id, device_name, ip_address, created_at, last_used_at
		 FROM refresh_tokens
		 WHERE user_id=? AND revoked_at IS NULL AND replaced_by IS NULL AND expires_at > UTC_TIMESTAMP()
		 ORDER BY COALESCE(last_used_at, created_at) DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.RefreshToken
	for rows.Next() {
		var (
			t          model.RefreshToken
			device, ip sql.NullString
			lastUsed   sql.NullTime
		)
		if err := rows.Scan(&t.ID, &t.FamilyID, &device, &ip, &t.CreatedAt, &lastUsed); err != nil {
			return nil, err
		}
		t.UserID = userID
		t.DeviceName = device.String
		t.IPAddress = ip.String
		if lastUsed.Valid {
			t.LastUsedAt = &lastUsed.Time
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// FamilyBelongsToUser reports whether any token of a family is owned by
// the user.  Guards session revocation against guessed family IDs.
func (r *TokenRepo) FamilyBelongsToUser(ctx context.Context, familyID string, userID uint64) (bool, error) {
	var one int
	err := r.DB.QueryRowContext(ctx,
		"SELECT 1 FROM refresh_tokens WHERE family_id=? AND user_id=? LIMIT 1",
		familyID, userID).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// TouchLastUsed stamps a token's last activity time.
func (r *TokenRepo) TouchLastUsed(ctx context.Context, tokenHash string) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE refresh_tokens SET last_used_at=UTC_TIMESTAMP() WHERE token_hash=?", tokenHash)
	return err
}

// DeleteStale removes expired tokens and tokens revoked before the cutoff.
// Recently revoked rows are kept for the audit trail.
func (r *TokenRepo) DeleteStale(ctx context.Context, revokedBefore time.Time) (int64, error) {
	res, err := r.DB.ExecContext(ctx,
		"DELETE FROM refresh_tokens WHERE expires_at < UTC_TIMESTAMP() OR revoked_at < ?",
		revokedBefore)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
