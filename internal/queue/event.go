// Package queue defines the auth event payloads exchanged over the
// message broker and the publisher/consumer that move them.
package queue

// AuthEvent is published when a sign-in flow reaches a terminal outcome
// (login, signup, logout).  It carries enough for downstream consumers to
// log or alert without querying the primary database.
type AuthEvent struct {
	Action     string `json:"action"` // LOGIN_SUCCESS | SIGNUP_SUCCESS | LOGOUT
	UserID     uint64 `json:"user_id"`
	Email      string `json:"email"`
	DeviceName string `json:"device_name,omitempty"`
	IPAddress  string `json:"ip_address,omitempty"`
	OccurredAt string `json:"occurred_at"`
}
