package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/jwalitptl/engagement-hub/internal/model"
	"github.com/jwalitptl/engagement-hub/internal/repository"
)

// directoryRepository reads people and role assignments from the platform's
// tables. It never writes.
type directoryRepository struct {
	BaseRepository
}

func NewRecipientDirectory(base BaseRepository) repository.RecipientDirectory {
	return &directoryRepository{base}
}

func (r *directoryRepository) Get(ctx context.Context, id uuid.UUID) (*model.Recipient, error) {
	query := `SELECT id, name, email FROM people WHERE id = $1`
	var rec model.Recipient
	if err := r.db.GetContext(ctx, &rec, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("person %s: %w", id, repository.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get person: %w", err)
	}
	return &rec, nil
}

func (r *directoryRepository) ProductManagers(ctx context.Context, productID uuid.UUID) ([]uuid.UUID, error) {
	query := `
		SELECT DISTINCT person_id
		FROM product_role_assignments
		WHERE product_id = $1 AND role IN ('admin', 'manager')
	`
	var ids []uuid.UUID
	if err := r.db.SelectContext(ctx, &ids, query, productID); err != nil {
		return nil, fmt.Errorf("failed to list product managers: %w", err)
	}
	return ids, nil
}

func (r *directoryRepository) OrganisationManagers(ctx context.Context, organisationID uuid.UUID) ([]uuid.UUID, error) {
	query := `
		SELECT DISTINCT person_id
		FROM organisation_person_roles
		WHERE organisation_id = $1 AND role IN ('owner', 'manager')
	`
	var ids []uuid.UUID
	if err := r.db.SelectContext(ctx, &ids, query, organisationID); err != nil {
		return nil, fmt.Errorf("failed to list organisation managers: %w", err)
	}
	return ids, nil
}
