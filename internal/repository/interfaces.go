package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/engagement-hub/internal/model"
)

var (
	// ErrNotFound is returned by lookups that match no row.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists is returned when a notification for the same event,
	// recipient and channel is already recorded.
	ErrAlreadyExists = errors.New("already exists")
)

// All repository interfaces in one file
type (
	// EventRepository persists the event log.
	EventRepository interface {
		Create(ctx context.Context, event *model.Event) error
		Get(ctx context.Context, id uuid.UUID) (*model.Event, error)
		// SetError records the aggregated listener error once dispatch completes.
		SetError(ctx context.Context, id uuid.UUID, message *string) error
		// AppendError adds a failure reported later by a worker.
		AppendError(ctx context.Context, id uuid.UUID, message string) error
		// DeleteExpired removes events past their deadline that no longer own
		// live notifications.
		DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error)
	}

	NotificationRepository interface {
		// CreateInApp and CreateEmail store at most one record per event and
		// recipient, returning ErrAlreadyExists for a repeat.
		CreateInApp(ctx context.Context, n *model.InAppNotification) error
		CreateEmail(ctx context.Context, n *model.EmailNotification) error
		GetInApp(ctx context.Context, id uuid.UUID) (*model.InAppNotification, error)
		ListInApp(ctx context.Context, filter model.NotificationFilter) ([]*model.InAppNotification, error)
		ListEmail(ctx context.Context, recipientID uuid.UUID) ([]*model.EmailNotification, error)
		CountUnread(ctx context.Context, recipientID uuid.UUID) (int64, error)
		// MarkRead sets is_read/read_at for a notification owned by recipientID.
		MarkRead(ctx context.Context, id, recipientID uuid.UUID, at time.Time) (*model.InAppNotification, error)
		DeleteExpiredInApp(ctx context.Context, cutoff time.Time) (int64, error)
		DeleteExpiredEmail(ctx context.Context, cutoff time.Time) (int64, error)
	}

	TemplateRepository interface {
		Get(ctx context.Context, channel model.Channel, eventType string) (*model.NotificationTemplate, error)
		Upsert(ctx context.Context, tmpl *model.NotificationTemplate) error
		List(ctx context.Context, channel model.Channel) ([]*model.NotificationTemplate, error)
	}

	PreferenceRepository interface {
		// GetOrCreate returns the recipient's preference, atomically inserting
		// the default when none exists.
		GetOrCreate(ctx context.Context, recipientID uuid.UUID, def model.ChannelSetting) (*model.NotificationPreference, error)
		Update(ctx context.Context, pref *model.NotificationPreference) error
	}

	// RecipientDirectory resolves people and role holders owned by the wider
	// platform.
	RecipientDirectory interface {
		Get(ctx context.Context, id uuid.UUID) (*model.Recipient, error)
		ProductManagers(ctx context.Context, productID uuid.UUID) ([]uuid.UUID, error)
		OrganisationManagers(ctx context.Context, organisationID uuid.UUID) ([]uuid.UUID, error)
	}
)
