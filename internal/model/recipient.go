package model

import "github.com/google/uuid"

// Recipient is a person who can receive notifications.
type Recipient struct {
	ID    uuid.UUID `json:"id" db:"id"`
	Name  string    `json:"name" db:"name"`
	Email string    `json:"email" db:"email"`
}
