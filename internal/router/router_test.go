package router

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/engagement-hub/internal/dispatch"
	eventHandler "github.com/jwalitptl/engagement-hub/internal/handler/event"
	"github.com/jwalitptl/engagement-hub/internal/handler/health"
	notificationHandler "github.com/jwalitptl/engagement-hub/internal/handler/notification"
	preferenceHandler "github.com/jwalitptl/engagement-hub/internal/handler/preference"
	promHandler "github.com/jwalitptl/engagement-hub/internal/handler/prometheus"
	templateHandler "github.com/jwalitptl/engagement-hub/internal/handler/template"
	"github.com/jwalitptl/engagement-hub/internal/middleware"
	"github.com/jwalitptl/engagement-hub/internal/model"
	"github.com/jwalitptl/engagement-hub/internal/repository/memory"
	"github.com/jwalitptl/engagement-hub/internal/service/eventbus"
	"github.com/jwalitptl/engagement-hub/internal/service/notification"
	"github.com/jwalitptl/engagement-hub/internal/service/preference"
	templateService "github.com/jwalitptl/engagement-hub/internal/service/template"
	"github.com/jwalitptl/engagement-hub/pkg/auth"
	"github.com/jwalitptl/engagement-hub/pkg/event"
	"github.com/jwalitptl/engagement-hub/pkg/logger"
	"github.com/jwalitptl/engagement-hub/pkg/metrics"
	"github.com/jwalitptl/engagement-hub/pkg/validator"
)

type apiResponse struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func (r apiResponse) IsSuccess() bool {
	return r.Status == "success"
}

type testServer struct {
	engine *gin.Engine
	store  *memory.Store
	tokens *auth.TokenManager
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := memory.NewStore()
	registry := prometheus.NewRegistry()
	m := metrics.New("test", registry)
	log := logger.Nop()

	listeners := event.NewListenerRegistry()
	bus := eventbus.NewBus(store.Events(), dispatch.NewSyncBackend(listeners, log, m), log, m, eventbus.Config{})
	notifier := notification.NewService(
		store.Notifications(), store.Templates(), store.Preferences(), store.Directory(),
		nil, log, m, notification.Config{},
	)
	require.NoError(t, notifier.RegisterHandlers(listeners, bus))

	tokens, err := auth.NewTokenManager("secret", "test", time.Hour)
	require.NoError(t, err)

	v := validator.New()
	r := NewRouter(
		middleware.NewAuthMiddleware(tokens),
		Handlers{
			Health:       health.NewHandler(nil),
			Events:       eventHandler.NewHandler(bus, store.Events()),
			Templates:    templateHandler.NewHandler(templateService.NewService(store.Templates(), v, log)),
			Notification: notificationHandler.NewHandler(notifier),
			Preference:   preferenceHandler.NewHandler(preference.NewService(store.Preferences(), v)),
		},
		promHandler.New(registry),
		log,
		RouterConfig{CORSConfig: middleware.DefaultCORSConfig()},
	)
	r.Setup()

	return &testServer{engine: r.Engine(), store: store, tokens: tokens}
}

func (s *testServer) token(t *testing.T, id uuid.UUID, role string) string {
	t.Helper()
	tok, err := s.tokens.GenerateToken(id, role)
	require.NoError(t, err)
	return tok
}

func (s *testServer) makeRequest(t *testing.T, method, path string, body interface{}, token string) (int, apiResponse) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)

	var resp apiResponse
	if w.Body.Len() > 0 && w.Header().Get("Content-Type") != "" {
		_ = json.Unmarshal(w.Body.Bytes(), &resp)
	}
	return w.Code, resp
}

func TestNotificationFlow(t *testing.T) {
	s := newTestServer(t)
	operator := s.token(t, uuid.New(), auth.RoleOperator)

	creator := uuid.New()
	s.store.AddPerson(model.Recipient{ID: creator, Name: "Ada", Email: "ada@example.com"})
	creatorToken := s.token(t, creator, "")

	status, resp := s.makeRequest(t, http.MethodPut, "/api/v1/templates/in_app/product.created", map[string]interface{}{
		"title_pattern":    "New Product: {name}",
		"body_pattern":     "{name} is live",
		"permitted_params": []string{"name"},
	}, operator)
	require.Equal(t, http.StatusOK, status, resp.Message)

	status, resp = s.makeRequest(t, http.MethodPut, "/api/v1/preferences", map[string]interface{}{
		"channel_setting": "in_app",
	}, creatorToken)
	require.Equal(t, http.StatusOK, status, resp.Message)

	status, resp = s.makeRequest(t, http.MethodPost, "/api/v1/events", map[string]interface{}{
		"event_type": "product.created",
		"payload": map[string]interface{}{
			"person_id": creator.String(),
			"name":      "Rocket",
		},
	}, operator)
	require.Equal(t, http.StatusAccepted, status, resp.Message)

	var result struct {
		EventID  uuid.UUID `json:"event_id"`
		Outcomes []struct {
			Listener string `json:"listener"`
			Token    string `json:"token"`
			Error    string `json:"error"`
		} `json:"outcomes"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &result))
	require.Len(t, result.Outcomes, 1)
	assert.Equal(t, notification.ListenerPrefix+"product.created", result.Outcomes[0].Listener)
	assert.Equal(t, event.SyncToken, result.Outcomes[0].Token)
	assert.Empty(t, result.Outcomes[0].Error)

	status, resp = s.makeRequest(t, http.MethodGet, "/api/v1/notifications/unread-count", nil, creatorToken)
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"unread":1}`, string(resp.Data))

	status, resp = s.makeRequest(t, http.MethodGet, "/api/v1/notifications", nil, creatorToken)
	require.Equal(t, http.StatusOK, status)
	var inbox []model.InAppNotification
	require.NoError(t, json.Unmarshal(resp.Data, &inbox))
	require.Len(t, inbox, 1)
	assert.Equal(t, "New Product: Rocket", inbox[0].Title)
	assert.Equal(t, "Rocket is live", inbox[0].Message)
	assert.Equal(t, result.EventID, inbox[0].EventID)

	status, _ = s.makeRequest(t, http.MethodGet, "/api/v1/notifications/email", nil, creatorToken)
	require.Equal(t, http.StatusOK, status)

	// Another recipient cannot mark it read.
	status, _ = s.makeRequest(t, http.MethodPost, fmt.Sprintf("/api/v1/notifications/%s/read", inbox[0].ID), nil, s.token(t, uuid.New(), ""))
	assert.Equal(t, http.StatusNotFound, status)

	status, resp = s.makeRequest(t, http.MethodPost, fmt.Sprintf("/api/v1/notifications/%s/read", inbox[0].ID), nil, creatorToken)
	require.Equal(t, http.StatusOK, status)
	var read model.InAppNotification
	require.NoError(t, json.Unmarshal(resp.Data, &read))
	assert.True(t, read.IsRead)
	assert.NotNil(t, read.ReadAt)

	status, resp = s.makeRequest(t, http.MethodGet, "/api/v1/notifications?unread=true", nil, creatorToken)
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `[]`, string(resp.Data))

	status, resp = s.makeRequest(t, http.MethodGet, "/api/v1/events/"+result.EventID.String(), nil, operator)
	require.Equal(t, http.StatusOK, status)
	var evt model.Event
	require.NoError(t, json.Unmarshal(resp.Data, &evt))
	assert.Nil(t, evt.Error)
}

func TestPublishRejectsUnknownType(t *testing.T) {
	s := newTestServer(t)
	operator := s.token(t, uuid.New(), auth.RoleOperator)

	status, resp := s.makeRequest(t, http.MethodPost, "/api/v1/events", map[string]interface{}{
		"event_type": "product.deleted",
	}, operator)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.False(t, resp.IsSuccess())
}

func TestOperatorRoutesRequireRole(t *testing.T) {
	s := newTestServer(t)
	user := s.token(t, uuid.New(), "")

	status, _ := s.makeRequest(t, http.MethodPost, "/api/v1/events", map[string]interface{}{
		"event_type": "product.created",
	}, user)
	assert.Equal(t, http.StatusForbidden, status)

	status, _ = s.makeRequest(t, http.MethodGet, "/api/v1/templates", nil, user)
	assert.Equal(t, http.StatusForbidden, status)

	status, _ = s.makeRequest(t, http.MethodGet, "/api/v1/notifications", nil, "")
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestTemplateValidation(t *testing.T) {
	s := newTestServer(t)
	operator := s.token(t, uuid.New(), auth.RoleOperator)

	status, resp := s.makeRequest(t, http.MethodPut, "/api/v1/templates/email/work.approved", map[string]interface{}{
		"title_pattern":    "Approved {bounty}",
		"body_pattern":     "Nice",
		"permitted_params": []string{"name"},
	}, operator)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, resp.Message, "bounty")

	status, _ = s.makeRequest(t, http.MethodPut, "/api/v1/templates/sms/work.approved", map[string]interface{}{
		"title_pattern": "x",
		"body_pattern":  "y",
	}, operator)
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = s.makeRequest(t, http.MethodGet, "/api/v1/templates/email/work.approved", nil, operator)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestEventTypesListing(t *testing.T) {
	s := newTestServer(t)
	operator := s.token(t, uuid.New(), auth.RoleOperator)

	status, resp := s.makeRequest(t, http.MethodGet, "/api/v1/events/types", nil, operator)
	require.Equal(t, http.StatusOK, status)

	var body struct {
		RegistryVersion int `json:"registry_version"`
		Types           []struct {
			Type      string   `json:"type"`
			Listeners []string `json:"listeners"`
		} `json:"types"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &body))
	assert.Equal(t, event.RegistryVersion, body.RegistryVersion)
	assert.Len(t, body.Types, len(event.Types()))
	for _, et := range body.Types {
		assert.Equal(t, []string{notification.ListenerPrefix + et.Type}, et.Listeners)
	}
}

func TestHealthAndMetrics(t *testing.T) {
	s := newTestServer(t)

	status, _ := s.makeRequest(t, http.MethodGet, "/health/live", nil, "")
	assert.Equal(t, http.StatusOK, status)
	status, _ = s.makeRequest(t, http.MethodGet, "/health/ready", nil, "")
	assert.Equal(t, http.StatusOK, status)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "http_requests_total")
}
