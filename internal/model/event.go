package model

import (
	"time"

	"github.com/google/uuid"
)

// Event is the append-only log record of a published occurrence. Only Error
// changes after creation.
type Event struct {
	ID            uuid.UUID  `json:"id" db:"id"`
	EventType     string     `json:"event_type" db:"event_type"`
	Payload       JSONMap    `json:"payload" db:"payload"`
	Error         *string    `json:"error,omitempty" db:"error"`
	ParentEventID *uuid.UUID `json:"parent_event_id,omitempty" db:"parent_event_id"`
	CreatedAt     time.Time  `json:"created_at" db:"created_at"`
	DeleteAt      time.Time  `json:"delete_at" db:"delete_at"`
}

// SweepResult counts rows removed by one retention sweep.
type SweepResult struct {
	InAppNotifications int64     `json:"in_app_notifications"`
	EmailNotifications int64     `json:"email_notifications"`
	Events             int64     `json:"events"`
	Cutoff             time.Time `json:"cutoff"`
}
