package model

import "time"

// PointsEntry is one loyalty-points grant. Entries expire individually;
// the expiry batch job revokes entries whose expires_at has passed.
type PointsEntry struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Points    int       `json:"points"`
	Reason    string    `json:"reason"`
	Status    string    `json:"status"`
	EarnedOn  time.Time `json:"earned_on"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Points entry status constants
const (
	PointsStatusActive  = "active"
	PointsStatusSpent   = "spent"
	PointsStatusRevoked = "revoked"
)
