// Package memory holds map-backed repositories for tests and the
// single-process "memory" database driver.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/engagement-hub/internal/model"
	"github.com/jwalitptl/engagement-hub/internal/repository"
)

// Store backs every repository with one lock so the event sweep can see
// notifications consistently.
type Store struct {
	mu           sync.RWMutex
	events       map[uuid.UUID]*model.Event
	inApp        map[uuid.UUID]*model.InAppNotification
	email        map[uuid.UUID]*model.EmailNotification
	templates    map[templateKey]*model.NotificationTemplate
	preferences  map[uuid.UUID]*model.NotificationPreference
	people       map[uuid.UUID]*model.Recipient
	productRoles map[uuid.UUID][]uuid.UUID
	orgRoles     map[uuid.UUID][]uuid.UUID
}

type templateKey struct {
	channel   model.Channel
	eventType string
}

func NewStore() *Store {
	return &Store{
		events:       make(map[uuid.UUID]*model.Event),
		inApp:        make(map[uuid.UUID]*model.InAppNotification),
		email:        make(map[uuid.UUID]*model.EmailNotification),
		templates:    make(map[templateKey]*model.NotificationTemplate),
		preferences:  make(map[uuid.UUID]*model.NotificationPreference),
		people:       make(map[uuid.UUID]*model.Recipient),
		productRoles: make(map[uuid.UUID][]uuid.UUID),
		orgRoles:     make(map[uuid.UUID][]uuid.UUID),
	}
}

func (s *Store) Events() repository.EventRepository { return eventRepo{s} }
func (s *Store) Notifications() repository.NotificationRepository { return notificationRepo{s} }
func (s *Store) Templates() repository.TemplateRepository { return templateRepo{s} }
func (s *Store) Preferences() repository.PreferenceRepository { return preferenceRepo{s} }
func (s *Store) Directory() repository.RecipientDirectory { return directoryRepo{s} }

// AddPerson seeds the directory.
func (s *Store) AddPerson(r model.Recipient) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := r
	s.people[r.ID] = &cp
}

// AddProductManager grants personID a managing role on productID.
func (s *Store) AddProductManager(productID, personID uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.productRoles[productID] = append(s.productRoles[productID], personID)
}

// AddOrganisationManager grants personID a managing role on organisationID.
func (s *Store) AddOrganisationManager(organisationID, personID uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orgRoles[organisationID] = append(s.orgRoles[organisationID], personID)
}

type eventRepo struct{ s *Store }

func (r eventRepo) Create(_ context.Context, event *model.Event) error {
	if event == nil {
		return fmt.Errorf("event cannot be nil")
	}
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.events[event.ID]; ok {
		return fmt.Errorf("event %s already exists", event.ID)
	}
	cp := *event
	r.s.events[event.ID] = &cp
	return nil
}

func (r eventRepo) Get(_ context.Context, id uuid.UUID) (*model.Event, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	e, ok := r.s.events[id]
	if !ok {
		return nil, fmt.Errorf("event %s: %w", id, repository.ErrNotFound)
	}
	cp := *e
	return &cp, nil
}

func (r eventRepo) SetError(_ context.Context, id uuid.UUID, message *string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	e, ok := r.s.events[id]
	if !ok {
		return fmt.Errorf("event %s: %w", id, repository.ErrNotFound)
	}
	if message == nil {
		e.Error = nil
		return nil
	}
	msg := *message
	e.Error = &msg
	return nil
}

func (r eventRepo) AppendError(_ context.Context, id uuid.UUID, message string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	e, ok := r.s.events[id]
	if !ok {
		return fmt.Errorf("event %s: %w", id, repository.ErrNotFound)
	}
	if e.Error == nil || *e.Error == "" {
		e.Error = &message
		return nil
	}
	joined := *e.Error + "; " + message
	e.Error = &joined
	return nil
}

func (r eventRepo) DeleteExpired(_ context.Context, cutoff time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	live := make(map[uuid.UUID]bool)
	for _, n := range r.s.inApp {
		if !n.DeleteAt.Before(cutoff) {
			live[n.EventID] = true
		}
	}
	for _, n := range r.s.email {
		if !n.DeleteAt.Before(cutoff) {
			live[n.EventID] = true
		}
	}

	var deleted int64
	for id, e := range r.s.events {
		if !e.DeleteAt.Before(cutoff) || live[id] {
			continue
		}
		delete(r.s.events, id)
		deleted++
		r.s.cascade(id)
	}
	return deleted, nil
}

// cascade mirrors the foreign keys: notifications go with their event and
// children lose their parent link.
func (s *Store) cascade(eventID uuid.UUID) {
	for id, n := range s.inApp {
		if n.EventID == eventID {
			delete(s.inApp, id)
		}
	}
	for id, n := range s.email {
		if n.EventID == eventID {
			delete(s.email, id)
		}
	}
	for _, e := range s.events {
		if e.ParentEventID != nil && *e.ParentEventID == eventID {
			e.ParentEventID = nil
		}
	}
}

type notificationRepo struct{ s *Store }

func (r notificationRepo) CreateInApp(_ context.Context, n *model.InAppNotification) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.events[n.EventID]; !ok {
		return fmt.Errorf("event %s: %w", n.EventID, repository.ErrNotFound)
	}
	for _, existing := range r.s.inApp {
		if existing.EventID == n.EventID && existing.RecipientID == n.RecipientID {
			return fmt.Errorf("in-app notification for event %s: %w", n.EventID, repository.ErrAlreadyExists)
		}
	}
	cp := *n
	r.s.inApp[n.ID] = &cp
	return nil
}

func (r notificationRepo) CreateEmail(_ context.Context, n *model.EmailNotification) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.events[n.EventID]; !ok {
		return fmt.Errorf("event %s: %w", n.EventID, repository.ErrNotFound)
	}
	for _, existing := range r.s.email {
		if existing.EventID == n.EventID && existing.RecipientID == n.RecipientID {
			return fmt.Errorf("email notification for event %s: %w", n.EventID, repository.ErrAlreadyExists)
		}
	}
	cp := *n
	r.s.email[n.ID] = &cp
	return nil
}

func (r notificationRepo) GetInApp(_ context.Context, id uuid.UUID) (*model.InAppNotification, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	n, ok := r.s.inApp[id]
	if !ok {
		return nil, fmt.Errorf("notification %s: %w", id, repository.ErrNotFound)
	}
	cp := *n
	return &cp, nil
}

func (r notificationRepo) ListInApp(_ context.Context, filter model.NotificationFilter) ([]*model.InAppNotification, error) {
	page := filter.Pagination.Normalize()
	r.s.mu.RLock()
	var all []*model.InAppNotification
	for _, n := range r.s.inApp {
		if n.RecipientID != filter.RecipientID || (filter.UnreadOnly && n.IsRead) {
			continue
		}
		cp := *n
		all = append(all, &cp)
	}
	r.s.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })
	if page.Offset >= len(all) {
		return nil, nil
	}
	end := page.Offset + page.Limit
	if end > len(all) {
		end = len(all)
	}
	return all[page.Offset:end], nil
}

func (r notificationRepo) ListEmail(_ context.Context, recipientID uuid.UUID) ([]*model.EmailNotification, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []*model.EmailNotification
	for _, n := range r.s.email {
		if n.RecipientID == recipientID {
			cp := *n
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SentAt.After(out[j].SentAt) })
	return out, nil
}

func (r notificationRepo) CountUnread(_ context.Context, recipientID uuid.UUID) (int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var n int64
	for _, x := range r.s.inApp {
		if x.RecipientID == recipientID && !x.IsRead {
			n++
		}
	}
	return n, nil
}

func (r notificationRepo) MarkRead(_ context.Context, id, recipientID uuid.UUID, at time.Time) (*model.InAppNotification, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	n, ok := r.s.inApp[id]
	if !ok || n.RecipientID != recipientID {
		return nil, fmt.Errorf("notification %s: %w", id, repository.ErrNotFound)
	}
	n.MarkRead(at)
	cp := *n
	return &cp, nil
}

func (r notificationRepo) DeleteExpiredInApp(_ context.Context, cutoff time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var deleted int64
	for id, n := range r.s.inApp {
		if n.DeleteAt.Before(cutoff) {
			delete(r.s.inApp, id)
			deleted++
		}
	}
	return deleted, nil
}

func (r notificationRepo) DeleteExpiredEmail(_ context.Context, cutoff time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var deleted int64
	for id, n := range r.s.email {
		if n.DeleteAt.Before(cutoff) {
			delete(r.s.email, id)
			deleted++
		}
	}
	return deleted, nil
}

type templateRepo struct{ s *Store }

func (r templateRepo) Get(_ context.Context, channel model.Channel, eventType string) (*model.NotificationTemplate, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	t, ok := r.s.templates[templateKey{channel, eventType}]
	if !ok {
		return nil, fmt.Errorf("%s template for %s: %w", channel, eventType, repository.ErrNotFound)
	}
	cp := *t
	return &cp, nil
}

func (r templateRepo) Upsert(_ context.Context, tmpl *model.NotificationTemplate) error {
	now := time.Now()
	key := templateKey{tmpl.Channel, tmpl.EventType}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if existing, ok := r.s.templates[key]; ok {
		tmpl.ID = existing.ID
		tmpl.CreatedAt = existing.CreatedAt
	} else {
		if tmpl.ID == uuid.Nil {
			tmpl.ID = uuid.New()
		}
		tmpl.CreatedAt = now
	}
	tmpl.UpdatedAt = now
	cp := *tmpl
	cp.PermittedParams = append([]string(nil), tmpl.PermittedParams...)
	r.s.templates[key] = &cp
	return nil
}

func (r templateRepo) List(_ context.Context, channel model.Channel) ([]*model.NotificationTemplate, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []*model.NotificationTemplate
	for k, t := range r.s.templates {
		if channel != "" && k.channel != channel {
			continue
		}
		cp := *t
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].EventType != out[j].EventType {
			return out[i].EventType < out[j].EventType
		}
		return out[i].Channel < out[j].Channel
	})
	return out, nil
}

type preferenceRepo struct{ s *Store }

func (r preferenceRepo) GetOrCreate(_ context.Context, recipientID uuid.UUID, def model.ChannelSetting) (*model.NotificationPreference, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.preferences[recipientID]
	if !ok {
		now := time.Now()
		p = &model.NotificationPreference{RecipientID: recipientID, ChannelSetting: def, CreatedAt: now, UpdatedAt: now}
		r.s.preferences[recipientID] = p
	}
	cp := *p
	return &cp, nil
}

func (r preferenceRepo) Update(_ context.Context, pref *model.NotificationPreference) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.preferences[pref.RecipientID]
	if !ok {
		return fmt.Errorf("preference for %s: %w", pref.RecipientID, repository.ErrNotFound)
	}
	p.ChannelSetting = pref.ChannelSetting
	p.UpdatedAt = time.Now()
	pref.CreatedAt, pref.UpdatedAt = p.CreatedAt, p.UpdatedAt
	return nil
}

type directoryRepo struct{ s *Store }

func (r directoryRepo) Get(_ context.Context, id uuid.UUID) (*model.Recipient, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	p, ok := r.s.people[id]
	if !ok {
		return nil, fmt.Errorf("person %s: %w", id, repository.ErrNotFound)
	}
	cp := *p
	return &cp, nil
}

func (r directoryRepo) ProductManagers(_ context.Context, productID uuid.UUID) ([]uuid.UUID, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return append([]uuid.UUID(nil), r.s.productRoles[productID]...), nil
}

func (r directoryRepo) OrganisationManagers(_ context.Context, organisationID uuid.UUID) ([]uuid.UUID, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return append([]uuid.UUID(nil), r.s.orgRoles[organisationID]...), nil
}
