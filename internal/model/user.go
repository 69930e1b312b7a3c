package model

import "time"

// User is the slice of the account record this subsystem reads: enough
// to address notifications and page digest recipients.
type User struct {
	ID          string    `json:"id"`
	Email       string    `json:"email"`
	DisplayName string    `json:"display_name"`
	DigestOptIn bool      `json:"digest_opt_in"`
	CreatedOn   time.Time `json:"created_on"`
}
