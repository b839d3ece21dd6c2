package model

import "time"

// User mirrors the 'users' table.  Accounts are created implicitly the
// first time an email completes OTP verification; there is no password.
type User struct {
	ID        uint64    `json:"id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"createdAt"`
}
