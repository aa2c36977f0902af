package template

import (
	"context"
	"errors"
	"fmt"

	"github.com/jwalitptl/engagement-hub/internal/model"
	"github.com/jwalitptl/engagement-hub/internal/repository"
	apperrors "github.com/jwalitptl/engagement-hub/pkg/errors"
	"github.com/jwalitptl/engagement-hub/pkg/event"
	"github.com/jwalitptl/engagement-hub/pkg/logger"
	pattern "github.com/jwalitptl/engagement-hub/pkg/template"
	"github.com/jwalitptl/engagement-hub/pkg/validator"
)

// Service manages notification templates. Patterns are checked against
// their permitted params before anything is stored.
type Service struct {
	repo      repository.TemplateRepository
	validator validator.Validator
	logger    *logger.Logger
}

func NewService(repo repository.TemplateRepository, v validator.Validator, log *logger.Logger) *Service {
	if log == nil {
		log = logger.Nop()
	}
	return &Service{repo: repo, validator: v, logger: log}
}

// Upsert creates or replaces the template for (channel, eventType).
func (s *Service) Upsert(ctx context.Context, channel model.Channel, eventType string, req *model.TemplateRequest) (*model.NotificationTemplate, error) {
	et, err := s.key(channel, eventType)
	if err != nil {
		return nil, err
	}
	if err := s.validator.Validate(req); err != nil {
		return nil, apperrors.NewValidation("invalid template", err)
	}

	params := dedupe(req.PermittedParams)
	if err := pattern.Validate("title", req.TitlePattern, params); err != nil {
		return nil, apperrors.NewValidation("invalid template", err)
	}
	if err := pattern.Validate("body", req.BodyPattern, params); err != nil {
		return nil, apperrors.NewValidation("invalid template", err)
	}

	tmpl := &model.NotificationTemplate{
		Channel:         channel,
		EventType:       et.String(),
		TitlePattern:    req.TitlePattern,
		BodyPattern:     req.BodyPattern,
		PermittedParams: params,
	}
	if err := s.repo.Upsert(ctx, tmpl); err != nil {
		return nil, apperrors.Internal(fmt.Errorf("failed to save template: %w", err))
	}

	s.logger.Info("Template saved", "channel", string(channel), "event_type", et.String(), "template_id", tmpl.ID.String())
	return tmpl, nil
}

func (s *Service) Get(ctx context.Context, channel model.Channel, eventType string) (*model.NotificationTemplate, error) {
	et, err := s.key(channel, eventType)
	if err != nil {
		return nil, err
	}
	tmpl, err := s.repo.Get(ctx, channel, et.String())
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NotFound("template", err)
		}
		return nil, apperrors.Internal(err)
	}
	return tmpl, nil
}

// List returns every template, or those of one channel when channel is set.
func (s *Service) List(ctx context.Context, channel model.Channel) ([]*model.NotificationTemplate, error) {
	if channel != "" && !channel.Valid() {
		return nil, apperrors.BadRequest(fmt.Sprintf("unknown channel %q", channel), nil)
	}
	out, err := s.repo.List(ctx, channel)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	return out, nil
}

func (s *Service) key(channel model.Channel, eventType string) (event.EventType, error) {
	if !channel.Valid() {
		return "", apperrors.BadRequest(fmt.Sprintf("unknown channel %q", channel), nil)
	}
	et, err := event.ParseType(eventType)
	if err != nil {
		return "", apperrors.BadRequest("unknown event type", err)
	}
	return et, nil
}

func dedupe(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, p := range in {
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}
