package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// NotificationTemplate holds the title and body patterns for one
// (channel, event type) pair.
type NotificationTemplate struct {
	ID              uuid.UUID      `json:"id" db:"id"`
	Channel         Channel        `json:"channel" db:"channel"`
	EventType       string         `json:"event_type" db:"event_type"`
	TitlePattern    string         `json:"title_pattern" db:"title_pattern"`
	BodyPattern     string         `json:"body_pattern" db:"body_pattern"`
	PermittedParams pq.StringArray `json:"permitted_params" db:"permitted_params"`
	CreatedAt       time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at" db:"updated_at"`
}

type TemplateRequest struct {
	TitlePattern    string   `json:"title_pattern" validate:"required,max=255" binding:"required"`
	BodyPattern     string   `json:"body_pattern" validate:"required" binding:"required"`
	PermittedParams []string `json:"permitted_params" validate:"dive,required,max=64"`
}
