package model

import "time"

// OtpRecord mirrors the 'otp_records' table.  Only the HMAC digest of the
// code is stored; the raw code exists only in the email sent to the user.
// Lookups always take the most recent unused, unexpired record per email.
type OtpRecord struct {
	ID        uint64
	Email     string
	OtpHash   string
	ExpiresAt time.Time
	Attempts  int
	Used      bool
	IPAddress string
	UserAgent string
	CreatedAt time.Time
}
