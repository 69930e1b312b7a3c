package model

import "time"

// Event represents a scheduled community event. The scheduling subsystem
// only needs its identity, timing, and audience; the rest of the record
// lives with the event features.
type Event struct {
	ID             string     `json:"id"`
	Title          string     `json:"title"`
	Description    *string    `json:"description,omitempty"`
	StartTime      time.Time  `json:"start_time"`
	EndTime        *time.Time `json:"end_time,omitempty"`
	TargetAudience string     `json:"target_audience"`
	Status         string     `json:"status"`
	CreatedOn      time.Time  `json:"created_on"`
	UpdatedOn      time.Time  `json:"updated_on"`
}

// Event status constants
const (
	EventStatusDraft     = "draft"
	EventStatusPublished = "published"
	EventStatusOngoing   = "ongoing"
	EventStatusEnded     = "ended"
	EventStatusCancelled = "cancelled"
)

// Event audience constants
const (
	AudienceAll     = "all"
	AudienceMembers = "members"
	AudienceVIP     = "vip"
)

// ValidEventStatus reports whether s is a known event status.
func ValidEventStatus(s string) bool {
	switch s {
	case EventStatusDraft, EventStatusPublished, EventStatusOngoing,
		EventStatusEnded, EventStatusCancelled:
		return true
	}
	return false
}
