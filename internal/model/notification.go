package model

import (
	"time"

	"github.com/google/uuid"
)

type Channel string

const (
	ChannelInApp Channel = "in_app"
	ChannelEmail Channel = "email"
)

func (c Channel) Valid() bool {
	return c == ChannelInApp || c == ChannelEmail
}

// Fallback content used when a template is absent or cannot be rendered.
const (
	FallbackTitle = "Notification"
	FallbackBody  = "There was an error processing this notification."
)

// InAppNotification is shown in the recipient's inbox. ReadAt is set if and
// only if IsRead is true.
type InAppNotification struct {
	ID          uuid.UUID  `json:"id" db:"id"`
	EventID     uuid.UUID  `json:"event_id" db:"event_id"`
	RecipientID uuid.UUID  `json:"recipient_id" db:"recipient_id"`
	Title       string     `json:"title" db:"title"`
	Message     string     `json:"message" db:"message"`
	IsRead      bool       `json:"is_read" db:"is_read"`
	ReadAt      *time.Time `json:"read_at,omitempty" db:"read_at"`
	DeleteAt    time.Time  `json:"delete_at" db:"delete_at"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
}

// MarkRead flips the notification to read, keeping the first read time.
func (n *InAppNotification) MarkRead(at time.Time) {
	if n.IsRead {
		return
	}
	n.IsRead = true
	n.ReadAt = &at
}

// EmailNotification is the historical record of an email send. Immutable.
type EmailNotification struct {
	ID          uuid.UUID `json:"id" db:"id"`
	EventID     uuid.UUID `json:"event_id" db:"event_id"`
	RecipientID uuid.UUID `json:"recipient_id" db:"recipient_id"`
	Title       string    `json:"title" db:"title"`
	Body        string    `json:"body" db:"body"`
	SentAt      time.Time `json:"sent_at" db:"sent_at"`
	DeleteAt    time.Time `json:"delete_at" db:"delete_at"`
}

type NotificationFilter struct {
	RecipientID uuid.UUID
	UnreadOnly  bool
	Pagination
}
