package model

import "time"

// RefreshToken mirrors the 'refresh_tokens' table.  A row stores only the
// SHA-256 hash of the opaque token.  FamilyID ties together every token in
// one login lineage across rotations; at most one row per family has
// ReplacedBy empty and RevokedAt unset.
type RefreshToken struct {
	ID         uint64
	TokenHash  string
	UserID     uint64
	FamilyID   string
	ExpiresAt  time.Time
	RevokedAt  *time.Time
	ReplacedBy string
	DeviceName string
	IPAddress  string
	CreatedAt  time.Time
	LastUsedAt *time.Time
}

// Session is the user-facing view of one token family: the current
// (non-rotated-out) token plus device metadata.
type Session struct {
	ID         uint64     `json:"id"`
	FamilyID   string     `json:"familyId"`
	DeviceName string     `json:"deviceName"`
	IPAddress  string     `json:"ipAddress"`
	CreatedAt  time.Time  `json:"createdAt"`
	LastUsedAt *time.Time `json:"lastUsedAt"`
	IsCurrent  bool       `json:"isCurrent"`
}
