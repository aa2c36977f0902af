package postgres

import (
	"context"

	"github.com/jmoiron/sqlx"
)

// BaseRepository holds the connection shared by the event hub repositories.
type BaseRepository struct {
	db *sqlx.DB
}

func NewBaseRepository(db *sqlx.DB) BaseRepository {
	return BaseRepository{db: db}
}

// Ping is used as the readiness check for the database.
func (r BaseRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r BaseRepository) Close() error {
	return r.db.Close()
}
