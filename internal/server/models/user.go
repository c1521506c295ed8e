package models

import "time"

// User is a row of the backup users table. ID is assigned by the identity
// provider and never changes; Email is mutable.
type User struct {
	ID        string     `json:"id"`
	Email     string     `json:"email"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}
