// Package cached wraps repositories with in-process read-through caches.
package cached

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/jwalitptl/engagement-hub/internal/model"
	"github.com/jwalitptl/engagement-hub/internal/repository"
)

// TemplateConfig controls how long looked-up templates are kept.
type TemplateConfig struct {
	CacheDuration   time.Duration
	CleanupInterval time.Duration
}

func DefaultTemplateConfig() TemplateConfig {
	return TemplateConfig{
		CacheDuration:   5 * time.Minute,
		CleanupInterval: 10 * time.Minute,
	}
}

// missing marks a cached lookup that found no template.
type missing struct{}

type templateRepository struct {
	next  repository.TemplateRepository
	cache *cache.Cache
}

// NewTemplateRepository caches Get results, including misses. Upsert through
// this wrapper evicts the affected key.
func NewTemplateRepository(next repository.TemplateRepository, config TemplateConfig) repository.TemplateRepository {
	return &templateRepository{
		next:  next,
		cache: cache.New(config.CacheDuration, config.CleanupInterval),
	}
}

func templateKey(channel model.Channel, eventType string) string {
	return string(channel) + ":" + eventType
}

func (r *templateRepository) Get(ctx context.Context, channel model.Channel, eventType string) (*model.NotificationTemplate, error) {
	key := templateKey(channel, eventType)
	if v, found := r.cache.Get(key); found {
		switch t := v.(type) {
		case missing:
			return nil, fmt.Errorf("%s template for %s: %w", channel, eventType, repository.ErrNotFound)
		case *model.NotificationTemplate:
			cp := *t
			return &cp, nil
		}
	}

	tmpl, err := r.next.Get(ctx, channel, eventType)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			r.cache.Set(key, missing{}, cache.DefaultExpiration)
		}
		return nil, err
	}
	cp := *tmpl
	r.cache.Set(key, &cp, cache.DefaultExpiration)
	return tmpl, nil
}

func (r *templateRepository) Upsert(ctx context.Context, tmpl *model.NotificationTemplate) error {
	if err := r.next.Upsert(ctx, tmpl); err != nil {
		return err
	}
	r.cache.Delete(templateKey(tmpl.Channel, tmpl.EventType))
	return nil
}

func (r *templateRepository) List(ctx context.Context, channel model.Channel) ([]*model.NotificationTemplate, error) {
	return r.next.List(ctx, channel)
}
