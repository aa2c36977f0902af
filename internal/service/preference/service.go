package preference

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/jwalitptl/engagement-hub/internal/model"
	"github.com/jwalitptl/engagement-hub/internal/repository"
	apperrors "github.com/jwalitptl/engagement-hub/pkg/errors"
	"github.com/jwalitptl/engagement-hub/pkg/validator"
)

type Service struct {
	repo      repository.PreferenceRepository
	validator validator.Validator
}

func NewService(repo repository.PreferenceRepository, v validator.Validator) *Service {
	return &Service{repo: repo, validator: v}
}

// Get returns the recipient's preference, creating the default on first use.
func (s *Service) Get(ctx context.Context, recipientID uuid.UUID) (*model.NotificationPreference, error) {
	pref, err := s.repo.GetOrCreate(ctx, recipientID, model.DefaultChannelSetting)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	return pref, nil
}

func (s *Service) Update(ctx context.Context, recipientID uuid.UUID, req *model.PreferenceRequest) (*model.NotificationPreference, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, apperrors.NewValidation("invalid preference", err)
	}

	pref, err := s.Get(ctx, recipientID)
	if err != nil {
		return nil, err
	}
	pref.ChannelSetting = req.ChannelSetting
	if err := s.repo.Update(ctx, pref); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NotFound("preference", err)
		}
		return nil, apperrors.Internal(fmt.Errorf("failed to update preference: %w", err))
	}
	return pref, nil
}
