package model

import "time"

// Audit actions recorded by the auth flow.  The table is append-only.
const (
	AuditOtpRequested  = "OTP_REQUESTED"
	AuditOtpFailed     = "OTP_FAILED"
	AuditLoginSuccess  = "LOGIN_SUCCESS"
	AuditSignupSuccess = "SIGNUP_SUCCESS"
	AuditLogout        = "LOGOUT"
)

// AuditLog mirrors the 'audit_logs' table.
type AuditLog struct {
	ID        uint64
	UserID    *uint64
	Email     string
	Action    string
	IPAddress string
	UserAgent string
	Metadata  map[string]any
	CreatedAt time.Time
}
