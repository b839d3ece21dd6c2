package model

import "time"

// Rate limit action types.  One counter row exists per (identifier, type).
const (
	RateLimitOtpRequest = "otp_request"
	RateLimitOtpVerify  = "otp_verify"
	RateLimitIPRequest  = "ip_request"
)

// RateLimit mirrors the 'rate_limits' table: a fixed-window counter keyed
// by identifier (email or IP) and action type.  Count is only ever moved
// by conditional SQL updates so concurrent callers cannot push it past the
// configured maximum.
type RateLimit struct {
	ID          uint64
	Identifier  string
	Type        string
	Count       int
	WindowStart time.Time
}
