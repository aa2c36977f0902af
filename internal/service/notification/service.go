package notification

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/engagement-hub/internal/email"
	"github.com/jwalitptl/engagement-hub/internal/model"
	"github.com/jwalitptl/engagement-hub/internal/repository"
	apperrors "github.com/jwalitptl/engagement-hub/pkg/errors"
	"github.com/jwalitptl/engagement-hub/pkg/event"
	"github.com/jwalitptl/engagement-hub/pkg/logger"
	"github.com/jwalitptl/engagement-hub/pkg/metrics"
	pattern "github.com/jwalitptl/engagement-hub/pkg/template"
)

const defaultNotificationTTL = 72 * time.Hour

// ListenerPrefix prefixes the registered name of every notification listener.
const ListenerPrefix = "notification."

var ErrNoEventContext = errors.New("notification listener requires an originating event id")

type Config struct {
	NotificationTTL time.Duration
}

// Registrar is implemented by the event bus.
type Registrar interface {
	RegisterListener(eventType event.EventType, l event.Listener) error
}

type Service struct {
	notifications repository.NotificationRepository
	templates     repository.TemplateRepository
	preferences   repository.PreferenceRepository
	directory     repository.RecipientDirectory
	mailer        email.Service
	logger        *logger.Logger
	metrics       *metrics.Metrics
	config        Config
	now           func() time.Time
}

func NewService(
	notifications repository.NotificationRepository,
	templates repository.TemplateRepository,
	preferences repository.PreferenceRepository,
	directory repository.RecipientDirectory,
	mailer email.Service,
	log *logger.Logger,
	m *metrics.Metrics,
	config Config,
) *Service {
	if config.NotificationTTL <= 0 {
		config.NotificationTTL = defaultNotificationTTL
	}
	if log == nil {
		log = logger.Nop()
	}
	if m == nil {
		m = metrics.Nop()
	}
	if mailer == nil {
		mailer = email.NewNoopService(log)
	}
	return &Service{
		notifications: notifications,
		templates:     templates,
		preferences:   preferences,
		directory:     directory,
		mailer:        mailer,
		logger:        log,
		metrics:       m,
		config:        config,
		now:           time.Now,
	}
}

// RegisterHandlers binds one named listener per notifying event type in
// registry and, when bus is set, subscribes it there too. The worker process
// passes a nil bus since it only resolves names.
func (s *Service) RegisterHandlers(registry *event.ListenerRegistry, bus Registrar) error {
	for _, et := range event.Types() {
		if _, ok := rules[et]; !ok {
			continue
		}
		l, err := registry.Register(ListenerPrefix+et.String(), s.Handle)
		if err != nil {
			return err
		}
		if bus == nil {
			continue
		}
		if err := bus.RegisterListener(et, l); err != nil {
			return fmt.Errorf("failed to subscribe %s: %w", l.Name(), err)
		}
	}
	return nil
}

// Handle turns one event into notifications for every recipient it
// concerns. A failure for one recipient does not stop the others; all
// failures are returned together. Re-running Handle for the same event
// only fills in the records that are still missing.
func (s *Service) Handle(ctx context.Context, eventType event.EventType, payload event.Payload) error {
	eventID, ok := event.EventIDFromContext(ctx)
	if !ok {
		return ErrNoEventContext
	}

	recipients, err := resolveRecipients(ctx, s.directory, eventType, payload)
	if err != nil {
		return fmt.Errorf("failed to resolve recipients: %w", err)
	}

	log := s.logger.WithFields(map[string]interface{}{
		"event_id":   eventID.String(),
		"event_type": eventType.String(),
	})
	if len(recipients) == 0 {
		log.Debug("No recipients for event")
		return nil
	}

	params := payload.Params()
	var errs []error
	for _, recipientID := range recipients {
		if err := s.notify(ctx, log, eventID, eventType, recipientID, params); err != nil {
			errs = append(errs, fmt.Errorf("recipient %s: %w", recipientID, err))
		}
	}
	return errors.Join(errs...)
}

func (s *Service) notify(ctx context.Context, log *logger.Logger, eventID uuid.UUID, eventType event.EventType, recipientID uuid.UUID, params map[string]string) error {
	pref, err := s.preferences.GetOrCreate(ctx, recipientID, model.DefaultChannelSetting)
	if err != nil {
		return fmt.Errorf("failed to load preference: %w", err)
	}

	now := s.now()
	deleteAt := now.Add(s.config.NotificationTTL)

	if pref.ChannelSetting.Includes(model.ChannelInApp) {
		title, body := s.render(ctx, log, model.ChannelInApp, eventType, params)
		n := &model.InAppNotification{
			ID:          uuid.New(),
			EventID:     eventID,
			RecipientID: recipientID,
			Title:       title,
			Message:     body,
			DeleteAt:    deleteAt,
			CreatedAt:   now,
		}
		switch err := s.notifications.CreateInApp(ctx, n); {
		case errors.Is(err, repository.ErrAlreadyExists):
			log.Debug("In-app notification already recorded", "recipient_id", recipientID.String())
		case err != nil:
			return fmt.Errorf("failed to create in-app notification: %w", err)
		default:
			s.metrics.NotificationsCreated.WithLabelValues(string(model.ChannelInApp)).Inc()
		}
	}

	if pref.ChannelSetting.Includes(model.ChannelEmail) {
		title, body := s.render(ctx, log, model.ChannelEmail, eventType, params)
		n := &model.EmailNotification{
			ID:          uuid.New(),
			EventID:     eventID,
			RecipientID: recipientID,
			Title:       title,
			Body:        body,
			SentAt:      now,
			DeleteAt:    deleteAt,
		}
		switch err := s.notifications.CreateEmail(ctx, n); {
		case errors.Is(err, repository.ErrAlreadyExists):
			// Already sent by an earlier attempt for this event.
			log.Debug("Email notification already recorded", "recipient_id", recipientID.String())
		case err != nil:
			return fmt.Errorf("failed to create email notification: %w", err)
		default:
			s.metrics.NotificationsCreated.WithLabelValues(string(model.ChannelEmail)).Inc()
			s.deliver(ctx, log, n)
		}
	}
	return nil
}

// deliver sends an already recorded email. Failures are logged and counted
// only.
func (s *Service) deliver(ctx context.Context, log *logger.Logger, n *model.EmailNotification) {
	recipient, err := s.directory.Get(ctx, n.RecipientID)
	if err != nil || recipient.Email == "" {
		s.metrics.EmailDeliveries.WithLabelValues("skipped").Inc()
		log.Warn("No email address for recipient", "recipient_id", n.RecipientID.String())
		return
	}
	if err := s.mailer.Send(ctx, recipient.Email, n.Title, n.Body); err != nil {
		s.metrics.EmailDeliveries.WithLabelValues("failed").Inc()
		log.Error(err, "Email delivery failed", "recipient_id", n.RecipientID.String(), "notification_id", n.ID.String())
		return
	}
	s.metrics.EmailDeliveries.WithLabelValues("sent").Inc()
}

// render fills the channel template for eventType. Title and body fall back
// independently; a missing template falls back for both.
func (s *Service) render(ctx context.Context, log *logger.Logger, channel model.Channel, eventType event.EventType, params map[string]string) (string, string) {
	tmpl, err := s.templates.Get(ctx, channel, eventType.String())
	if err != nil {
		reason := "missing_template"
		if !errors.Is(err, repository.ErrNotFound) {
			reason = "template_error"
			log.Error(err, "Failed to load template", "channel", string(channel))
		} else {
			log.Warn("No template, using fallback content", "channel", string(channel))
		}
		s.metrics.RenderFallbacks.WithLabelValues(string(channel), reason).Inc()
		return model.FallbackTitle, model.FallbackBody
	}

	allowed := make(map[string]string, len(tmpl.PermittedParams))
	for _, p := range tmpl.PermittedParams {
		if v, ok := params[p]; ok {
			allowed[p] = v
		}
	}

	title := s.renderField(log, channel, "title", tmpl.TitlePattern, allowed, model.FallbackTitle)
	body := s.renderField(log, channel, "body", tmpl.BodyPattern, allowed, model.FallbackBody)
	return title, body
}

func (s *Service) renderField(log *logger.Logger, channel model.Channel, field, p string, params map[string]string, fallback string) string {
	out, err := pattern.Render(p, params)
	if err == nil {
		return out
	}

	reason := "invalid_pattern"
	var rerr *pattern.RenderError
	if errors.As(err, &rerr) {
		reason = "missing_param"
	}
	s.metrics.RenderFallbacks.WithLabelValues(string(channel), reason).Inc()
	log.Warn("Template render failed, using fallback content",
		"channel", string(channel),
		"field", field,
		"error", err.Error())
	return fallback
}

// List returns the recipient's in-app notifications, newest first.
func (s *Service) List(ctx context.Context, filter model.NotificationFilter) ([]*model.InAppNotification, error) {
	out, err := s.notifications.ListInApp(ctx, filter)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	return out, nil
}

func (s *Service) ListEmail(ctx context.Context, recipientID uuid.UUID) ([]*model.EmailNotification, error) {
	out, err := s.notifications.ListEmail(ctx, recipientID)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	return out, nil
}

func (s *Service) UnreadCount(ctx context.Context, recipientID uuid.UUID) (int64, error) {
	n, err := s.notifications.CountUnread(ctx, recipientID)
	if err != nil {
		return 0, apperrors.Internal(err)
	}
	return n, nil
}

// MarkRead marks a notification owned by recipientID as read. Repeated calls
// keep the first read time.
func (s *Service) MarkRead(ctx context.Context, id, recipientID uuid.UUID) (*model.InAppNotification, error) {
	n, err := s.notifications.MarkRead(ctx, id, recipientID, s.now())
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NotFound("notification", err)
		}
		return nil, apperrors.Internal(err)
	}
	return n, nil
}
