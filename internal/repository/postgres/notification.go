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

type notificationRepository struct {
	BaseRepository
}

func NewNotificationRepository(base BaseRepository) repository.NotificationRepository {
	return &notificationRepository{base}
}

const inAppColumns = `id, event_id, recipient_id, title, message, is_read, read_at, delete_at, created_at`

func (r *notificationRepository) CreateInApp(ctx context.Context, n *model.InAppNotification) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	query := `
		INSERT INTO in_app_notifications (` + inAppColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (event_id, recipient_id) DO NOTHING
	`
	result, err := r.db.ExecContext(ctx, query,
		n.ID, n.EventID, n.RecipientID, n.Title, n.Message, n.IsRead, n.ReadAt, n.DeleteAt, n.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create in-app notification: %w", err)
	}
	return inserted(result, "in-app", n.EventID, n.RecipientID)
}

func (r *notificationRepository) CreateEmail(ctx context.Context, n *model.EmailNotification) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	query := `
		INSERT INTO email_notifications (id, event_id, recipient_id, title, body, sent_at, delete_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (event_id, recipient_id) DO NOTHING
	`
	result, err := r.db.ExecContext(ctx, query,
		n.ID, n.EventID, n.RecipientID, n.Title, n.Body, n.SentAt, n.DeleteAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create email notification: %w", err)
	}
	return inserted(result, "email", n.EventID, n.RecipientID)
}

// inserted maps a skipped ON CONFLICT insert to ErrAlreadyExists.
func inserted(result sql.Result, channel string, eventID, recipientID uuid.UUID) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s notification for event %s and recipient %s: %w",
			channel, eventID, recipientID, repository.ErrAlreadyExists)
	}
	return nil
}

func (r *notificationRepository) GetInApp(ctx context.Context, id uuid.UUID) (*model.InAppNotification, error) {
	query := `SELECT ` + inAppColumns + ` FROM in_app_notifications WHERE id = $1`
	var n model.InAppNotification
	if err := r.db.GetContext(ctx, &n, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("notification %s: %w", id, repository.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get notification: %w", err)
	}
	return &n, nil
}

func (r *notificationRepository) ListInApp(ctx context.Context, filter model.NotificationFilter) ([]*model.InAppNotification, error) {
	page := filter.Pagination.Normalize()
	query := `SELECT ` + inAppColumns + ` FROM in_app_notifications WHERE recipient_id = $1`
	if filter.UnreadOnly {
		query += ` AND is_read = FALSE`
	}
	query += ` ORDER BY created_at DESC LIMIT $2 OFFSET $3`

	var out []*model.InAppNotification
	if err := r.db.SelectContext(ctx, &out, query, filter.RecipientID, page.Limit, page.Offset); err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	return out, nil
}

func (r *notificationRepository) ListEmail(ctx context.Context, recipientID uuid.UUID) ([]*model.EmailNotification, error) {
	query := `
		SELECT id, event_id, recipient_id, title, body, sent_at, delete_at
		FROM email_notifications
		WHERE recipient_id = $1
		ORDER BY sent_at DESC
	`
	var out []*model.EmailNotification
	if err := r.db.SelectContext(ctx, &out, query, recipientID); err != nil {
		return nil, fmt.Errorf("failed to list email notifications: %w", err)
	}
	return out, nil
}

func (r *notificationRepository) CountUnread(ctx context.Context, recipientID uuid.UUID) (int64, error) {
	var n int64
	query := `SELECT COUNT(*) FROM in_app_notifications WHERE recipient_id = $1 AND is_read = FALSE`
	if err := r.db.GetContext(ctx, &n, query, recipientID); err != nil {
		return 0, fmt.Errorf("failed to count unread notifications: %w", err)
	}
	return n, nil
}

func (r *notificationRepository) MarkRead(ctx context.Context, id, recipientID uuid.UUID, at time.Time) (*model.InAppNotification, error) {
	// COALESCE keeps the first read time on repeated calls.
	query := `
		UPDATE in_app_notifications
		SET is_read = TRUE, read_at = COALESCE(read_at, $1)
		WHERE id = $2 AND recipient_id = $3
		RETURNING ` + inAppColumns

	var n model.InAppNotification
	if err := r.db.GetContext(ctx, &n, query, at, id, recipientID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("notification %s: %w", id, repository.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to mark notification read: %w", err)
	}
	return &n, nil
}

func (r *notificationRepository) DeleteExpiredInApp(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM in_app_notifications WHERE delete_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired in-app notifications: %w", err)
	}
	return result.RowsAffected()
}

func (r *notificationRepository) DeleteExpiredEmail(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM email_notifications WHERE delete_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired email notifications: %w", err)
	}
	return result.RowsAffected()
}
