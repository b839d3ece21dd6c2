package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/learnhub/learning-platform/internal/model"
)

// InterestRepo serves the onboarding interest catalog and each user's
// selections.
type InterestRepo struct{ DB *sql.DB }

func NewInterestRepo(db *sql.DB) *InterestRepo { return &InterestRepo{DB: db} }

// All returns every selectable interest, alphabetically.
func (r *InterestRepo) All(ctx context.Context) ([]model.Interest, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT id, name FROM interests ORDER BY name ASC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Interest
	for rows.Next() {
		var in model.Interest
		if err := rows.Scan(&in.ID, &in.Name); err != nil {
			return nil, err
		}
		out = append(out, in)
	}
	return out, rows.Err()
}

// CountExisting returns how many of the given IDs exist, for validating a
// selection before saving it.
func (r *InterestRepo) CountExisting(ctx context.Context, ids []uint64) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	query := "SELECT COUNT(*) FROM interests WHERE id IN (?" +
		strings.Repeat(",?", len(ids)-1) + ")"
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	var count int
	err := r.DB.QueryRowContext(ctx, query, args...).Scan(&count)
	return count, err
}

// ReplaceForUser swaps a user's interest selection in one transaction so a
// re-submission from onboarding fully replaces the previous choice.
func (r *InterestRepo) ReplaceForUser(ctx context.Context, userID uint64, interestIDs []uint64) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		"DELETE FROM user_interests WHERE user_id=?", userID); err != nil {
		return err
	}
	for _, id := range interestIDs {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO user_interests (user_id, interest_id, weight) VALUES (?,?,1.0)",
			userID, id); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// ForUser returns a user's saved interests with their names resolved.
func (r *InterestRepo) ForUser(ctx context.Context, userID uint64) ([]model.UserInterest, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT ui.id, ui.user_id, ui.interest_id, ui.weight, i.id, i.name
		 FROM user_interests ui JOIN interests i ON i.id = ui.interest_id
		 WHERE ui.user_id=? ORDER BY i.name ASC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.UserInterest
	for rows.Next() {
		var ui model.UserInterest
		if err := rows.Scan(&ui.ID, &ui.UserID, &ui.InterestID, &ui.Weight,
			&ui.Interest.ID, &ui.Interest.Name); err != nil {
			return nil, err
		}
		out = append(out, ui)
	}
	return out, rows.Err()
}

// CountForUser reports how many interests a user has saved.  A non-zero
// count means onboarding is complete.
func (r *InterestRepo) CountForUser(ctx context.Context, userID uint64) (int, error) {
	var count int
	err := r.DB.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM user_interests WHERE user_id=?", userID).Scan(&count)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	return count, err
}
