package domain

import "time"

// User is an applicant. It is created once, at registration, and never updated.
type User struct {
	ID         int64     `json:"id"`
	ExternalID string    `json:"external_id"`
	Name       string    `json:"name"`
	NationalID string    `json:"national_id"`
	CreatedAt  time.Time `json:"created_at"`
}
