package cached

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/engagement-hub/internal/model"
	"github.com/jwalitptl/engagement-hub/internal/repository"
	"github.com/jwalitptl/engagement-hub/internal/repository/memory"
)

type countingRepo struct {
	repository.TemplateRepository
	gets int
}

func (c *countingRepo) Get(ctx context.Context, channel model.Channel, eventType string) (*model.NotificationTemplate, error) {
	c.gets++
	return c.TemplateRepository.Get(ctx, channel, eventType)
}

func TestTemplateCacheReadThrough(t *testing.T) {
	ctx := context.Background()
	inner := &countingRepo{TemplateRepository: memory.NewStore().Templates()}
	repo := NewTemplateRepository(inner, DefaultTemplateConfig())

	_, err := repo.Get(ctx, model.ChannelInApp, "product.created")
	assert.ErrorIs(t, err, repository.ErrNotFound)
	_, err = repo.Get(ctx, model.ChannelInApp, "product.created")
	assert.ErrorIs(t, err, repository.ErrNotFound)
	assert.Equal(t, 1, inner.gets)

	require.NoError(t, repo.Upsert(ctx, &model.NotificationTemplate{
		Channel: model.ChannelInApp, EventType: "product.created", TitlePattern: "New: {name}", BodyPattern: "b",
	}))

	got, err := repo.Get(ctx, model.ChannelInApp, "product.created")
	require.NoError(t, err)
	assert.Equal(t, "New: {name}", got.TitlePattern)
	assert.Equal(t, 2, inner.gets)

	got.TitlePattern = "mutated"
	again, err := repo.Get(ctx, model.ChannelInApp, "product.created")
	require.NoError(t, err)
	assert.Equal(t, "New: {name}", again.TitlePattern)
	assert.Equal(t, 2, inner.gets)
}
