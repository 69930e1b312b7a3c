package model

import "time"

// Notification is a single deliverable message. Exactly one of UserID or
// Audience addresses it: UserID for a direct message, Audience for a
// fan-out to an event audience.
type Notification struct {
	ID        string            `json:"id"`
	UserID    string            `json:"user_id,omitempty"`
	Audience  string            `json:"audience,omitempty"`
	Title     string            `json:"title"`
	Body      string            `json:"body"`
	Data      map[string]string `json:"data,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}

// EventNotification is the payload for event-related reminders.
type EventNotification struct {
	EventID   string    `json:"event_id"`
	Title     string    `json:"title"`
	StartTime time.Time `json:"start_time"`
	Audience  string    `json:"audience"`
}
