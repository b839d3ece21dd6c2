package repository

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/learnhub/learning-platform/internal/model"
)

// AuditRepo appends to the 'audit_logs' table.  Nothing in this service
// ever updates or deletes audit rows.
type AuditRepo struct{ DB *sql.DB }

func NewAuditRepo(db *sql.DB) *AuditRepo { return &AuditRepo{DB: db} }

// Insert appends one audit entry.  Metadata is stored as JSON when present.
func (r *AuditRepo) Insert(ctx context.Context, entry model.AuditLog) error {
	var meta any
	if len(entry.Metadata) > 0 {
		b, err := json.Marshal(entry.Metadata)
		if err != nil {
			return err
		}
		meta = string(b)
	}
	var userID any
	if entry.UserID != nil {
		userID = *entry.UserID
	}
	_, err := r.DB.ExecContext(ctx,
		`INSERT INTO audit_logs (user_id, email, action, ip_address, user_agent, metadata)
		 VALUES (?,?,?,?,?,?)`,
		userID, entry.Email, entry.Action, nullStr(entry.IPAddress), nullStr(entry.UserAgent), meta)
	return err
}
