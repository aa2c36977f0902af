// Package storage opens the repositories selected by database.driver.
package storage

import (
	"context"

	"github.com/jwalitptl/engagement-hub/internal/config"
	"github.com/jwalitptl/engagement-hub/internal/repository"
	"github.com/jwalitptl/engagement-hub/internal/repository/memory"
	"github.com/jwalitptl/engagement-hub/internal/repository/postgres"
)

type Repositories struct {
	Events        repository.EventRepository
	Notifications repository.NotificationRepository
	Templates     repository.TemplateRepository
	Preferences   repository.PreferenceRepository
	Directory     repository.RecipientDirectory

	db *postgres.BaseRepository
}

// Open connects to postgres, or builds an empty in-memory store for the
// memory driver.
func Open(cfg config.DatabaseConfig) (*Repositories, error) {
	if cfg.Driver == config.DriverMemory {
		return FromStore(memory.NewStore()), nil
	}

	db, err := postgres.NewDB(cfg.ToPostgresConfig())
	if err != nil {
		return nil, err
	}
	base := postgres.NewBaseRepository(db)
	return &Repositories{
		Events:        postgres.NewEventRepository(base),
		Notifications: postgres.NewNotificationRepository(base),
		Templates:     postgres.NewTemplateRepository(base),
		Preferences:   postgres.NewPreferenceRepository(base),
		Directory:     postgres.NewRecipientDirectory(base),
		db:            &base,
	}, nil
}

func FromStore(store *memory.Store) *Repositories {
	return &Repositories{
		Events:        store.Events(),
		Notifications: store.Notifications(),
		Templates:     store.Templates(),
		Preferences:   store.Preferences(),
		Directory:     store.Directory(),
	}
}

// Ping reports database reachability. The memory store is always reachable.
func (r *Repositories) Ping(ctx context.Context) error {
	if r.db == nil {
		return nil
	}
	return r.db.Ping(ctx)
}

func (r *Repositories) Close() error {
	if r.db == nil {
		return nil
	}
	return r.db.Close()
}
