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

type templateRepository struct {
	BaseRepository
}

func NewTemplateRepository(base BaseRepository) repository.TemplateRepository {
	return &templateRepository{base}
}

const templateColumns = `id, channel, event_type, title_pattern, body_pattern, permitted_params, created_at, updated_at`

func (r *templateRepository) Get(ctx context.Context, channel model.Channel, eventType string) (*model.NotificationTemplate, error) {
	query := `SELECT ` + templateColumns + ` FROM notification_templates WHERE channel = $1 AND event_type = $2`
	var tmpl model.NotificationTemplate
	if err := r.db.GetContext(ctx, &tmpl, query, channel, eventType); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s template for %s: %w", channel, eventType, repository.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get template: %w", err)
	}
	return &tmpl, nil
}

// Upsert relies on the unique (channel, event_type) constraint.
func (r *templateRepository) Upsert(ctx context.Context, tmpl *model.NotificationTemplate) error {
	now := time.Now()
	if tmpl.ID == uuid.Nil {
		tmpl.ID = uuid.New()
	}
	if tmpl.CreatedAt.IsZero() {
		tmpl.CreatedAt = now
	}
	tmpl.UpdatedAt = now

	query := `
		INSERT INTO notification_templates (` + templateColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (channel, event_type) DO UPDATE SET
			title_pattern = EXCLUDED.title_pattern,
			body_pattern = EXCLUDED.body_pattern,
			permitted_params = EXCLUDED.permitted_params,
			updated_at = EXCLUDED.updated_at
		RETURNING id, created_at
	`
	row := r.db.QueryRowxContext(ctx, query,
		tmpl.ID, tmpl.Channel, tmpl.EventType, tmpl.TitlePattern, tmpl.BodyPattern,
		tmpl.PermittedParams, tmpl.CreatedAt, tmpl.UpdatedAt,
	)
	if err := row.Scan(&tmpl.ID, &tmpl.CreatedAt); err != nil {
		return fmt.Errorf("failed to upsert template: %w", err)
	}
	return nil
}

func (r *templateRepository) List(ctx context.Context, channel model.Channel) ([]*model.NotificationTemplate, error) {
	query := `SELECT ` + templateColumns + ` FROM notification_templates`
	var args []interface{}
	if channel != "" {
		query += ` WHERE channel = $1`
		args = append(args, channel)
	}
	query += ` ORDER BY event_type, channel`

	var out []*model.NotificationTemplate
	if err := r.db.SelectContext(ctx, &out, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list templates: %w", err)
	}
	return out, nil
}
