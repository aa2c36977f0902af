package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/engagement-hub/internal/model"
	"github.com/jwalitptl/engagement-hub/internal/repository"
)

type eventRepository struct {
	BaseRepository
}

func NewEventRepository(base BaseRepository) repository.EventRepository {
	return &eventRepository{base}
}

func (r *eventRepository) Create(ctx context.Context, event *model.Event) error {
	if event == nil {
		return fmt.Errorf("event cannot be nil")
	}
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	query := `
		INSERT INTO events (
			id, event_type, payload, error, parent_event_id, created_at, delete_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7
		)
	`
	_, err := r.db.ExecContext(ctx, query,
		event.ID,
		event.EventType,
		event.Payload,
		event.Error,
		event.ParentEventID,
		event.CreatedAt,
		event.DeleteAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create event: %w", err)
	}
	return nil
}

func (r *eventRepository) Get(ctx context.Context, id uuid.UUID) (*model.Event, error) {
	query := `
		SELECT id, event_type, payload, error, parent_event_id, created_at, delete_at
		FROM events
		WHERE id = $1
	`
	var event model.Event
	if err := r.db.GetContext(ctx, &event, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("event %s: %w", id, repository.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get event: %w", err)
	}
	return &event, nil
}

func (r *eventRepository) SetError(ctx context.Context, id uuid.UUID, message *string) error {
	query := `UPDATE events SET error = $1 WHERE id = $2`
	if _, err := r.db.ExecContext(ctx, query, message, id); err != nil {
		return fmt.Errorf("failed to set event error: %w", err)
	}
	return nil
}

func (r *eventRepository) AppendError(ctx context.Context, id uuid.UUID, message string) error {
	query := `
		UPDATE events
		SET error = CASE
			WHEN error IS NULL OR error = '' THEN $1
			ELSE error || '; ' || $1
		END
		WHERE id = $2
	`
	if _, err := r.db.ExecContext(ctx, query, message, id); err != nil {
		return fmt.Errorf("failed to append event error: %w", err)
	}
	return nil
}

func (r *eventRepository) DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `
		DELETE FROM events e
		WHERE e.delete_at < $1
		AND NOT EXISTS (
			SELECT 1 FROM in_app_notifications n WHERE n.event_id = e.id AND n.delete_at >= $1
		)
		AND NOT EXISTS (
			SELECT 1 FROM email_notifications m WHERE m.event_id = e.id AND m.delete_at >= $1
		)
	`
	result, err := r.db.ExecContext(ctx, query, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired events: %w", err)
	}
	return result.RowsAffected()
}
