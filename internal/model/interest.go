package model

// Interest mirrors the 'interests' table: a topic a user can follow
// during onboarding.
type Interest struct {
	ID   uint64 `json:"id"`
	Name string `json:"name"`
}

// UserInterest mirrors the 'user_interests' table.  Weight is reserved for
// recommendation scoring and defaults to 1.0.
type UserInterest struct {
	ID         uint64   `json:"id"`
	UserID     uint64   `json:"userId"`
	InterestID uint64   `json:"interestId"`
	Weight     float64  `json:"weight"`
	Interest   Interest `json:"interest"`
}
