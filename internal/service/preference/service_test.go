package preference

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/engagement-hub/internal/model"
	"github.com/jwalitptl/engagement-hub/internal/repository/memory"
	apperrors "github.com/jwalitptl/engagement-hub/pkg/errors"
	"github.com/jwalitptl/engagement-hub/pkg/validator"
)

func TestGetDefaultsToBoth(t *testing.T) {
	svc := NewService(memory.NewStore().Preferences(), validator.New())
	recipient := uuid.New()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = svc.Get(context.Background(), recipient)
		}()
	}
	wg.Wait()

	pref, err := svc.Get(context.Background(), recipient)
	require.NoError(t, err)
	assert.Equal(t, model.ChannelSettingBoth, pref.ChannelSetting)
}

func TestUpdate(t *testing.T) {
	svc := NewService(memory.NewStore().Preferences(), validator.New())
	recipient := uuid.New()

	pref, err := svc.Update(context.Background(), recipient, &model.PreferenceRequest{ChannelSetting: model.ChannelSettingInApp})
	require.NoError(t, err)
	assert.Equal(t, model.ChannelSettingInApp, pref.ChannelSetting)

	_, err = svc.Update(context.Background(), recipient, &model.PreferenceRequest{ChannelSetting: "apps"})
	assert.True(t, apperrors.HasCode(err, apperrors.ErrValidation))

	pref, err = svc.Get(context.Background(), recipient)
	require.NoError(t, err)
	assert.Equal(t, model.ChannelSettingInApp, pref.ChannelSetting)
}
