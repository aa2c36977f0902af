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

type preferenceRepository struct {
	BaseRepository
}

func NewPreferenceRepository(base BaseRepository) repository.PreferenceRepository {
	return &preferenceRepository{base}
}

// GetOrCreate is a single upsert so concurrent first-time callers converge on
// one row. The no-op DO UPDATE makes RETURNING yield the existing row.
func (r *preferenceRepository) GetOrCreate(ctx context.Context, recipientID uuid.UUID, def model.ChannelSetting) (*model.NotificationPreference, error) {
	now := time.Now()
	query := `
		INSERT INTO notification_preferences (recipient_id, channel_setting, created_at, updated_at)
		VALUES ($1, $2, $3, $3)
		ON CONFLICT (recipient_id) DO UPDATE SET recipient_id = EXCLUDED.recipient_id
		RETURNING recipient_id, channel_setting, created_at, updated_at
	`
	var pref model.NotificationPreference
	if err := r.db.GetContext(ctx, &pref, query, recipientID, def, now); err != nil {
		return nil, fmt.Errorf("failed to get or create preference: %w", err)
	}
	return &pref, nil
}

func (r *preferenceRepository) Update(ctx context.Context, pref *model.NotificationPreference) error {
	pref.UpdatedAt = time.Now()
	query := `
		UPDATE notification_preferences
		SET channel_setting = $1, updated_at = $2
		WHERE recipient_id = $3
		RETURNING created_at
	`
	if err := r.db.GetContext(ctx, &pref.CreatedAt, query, pref.ChannelSetting, pref.UpdatedAt, pref.RecipientID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("preference for %s: %w", pref.RecipientID, repository.ErrNotFound)
		}
		return fmt.Errorf("failed to update preference: %w", err)
	}
	return nil
}
