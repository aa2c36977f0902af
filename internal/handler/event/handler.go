package event

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jwalitptl/engagement-hub/internal/handler"
	"github.com/jwalitptl/engagement-hub/internal/repository"
	"github.com/jwalitptl/engagement-hub/internal/service/eventbus"
	apperrors "github.com/jwalitptl/engagement-hub/pkg/errors"
	events "github.com/jwalitptl/engagement-hub/pkg/event"
)

// Publisher is implemented by *eventbus.Bus.
type Publisher interface {
	Publish(ctx context.Context, eventType events.EventType, payload events.Payload) (*eventbus.DispatchResult, error)
	Listeners(eventType events.EventType) []string
}

type Handler struct {
	bus    Publisher
	events repository.EventRepository
}

func NewHandler(bus Publisher, eventRepo repository.EventRepository) *Handler {
	return &Handler{bus: bus, events: eventRepo}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	group := r.Group("/events")
	{
		group.POST("", h.Publish)
		group.GET("/types", h.ListTypes)
		group.GET("/:id", h.GetEvent)
	}
}

type publishRequest struct {
	EventType string                 `json:"event_type" binding:"required"`
	Payload   map[string]interface{} `json:"payload"`
}

type typeInfo struct {
	Type        string   `json:"type"`
	Since       int      `json:"since"`
	Description string   `json:"description"`
	Listeners   []string `json:"listeners"`
}

// Publish logs and dispatches an event. Listener failures are part of the
// 202 response body; only an unknown type or a storage failure is an error.
func (h *Handler) Publish(c *gin.Context) {
	var req publishRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	eventType, err := events.ParseType(req.EventType)
	if err != nil {
		_ = c.Error(apperrors.BadRequest("unknown event type", err))
		return
	}

	result, err := h.bus.Publish(c.Request.Context(), eventType, events.Payload(req.Payload))
	if err != nil {
		if errors.Is(err, events.ErrUnknownEventType) {
			_ = c.Error(apperrors.BadRequest("unknown event type", err))
			return
		}
		_ = c.Error(apperrors.Internal(err))
		return
	}

	c.JSON(http.StatusAccepted, handler.NewSuccessResponse(result))
}

func (h *Handler) ListTypes(c *gin.Context) {
	types := events.Types()
	out := make([]typeInfo, 0, len(types))
	for _, t := range types {
		info, _ := events.Lookup(t)
		listeners := h.bus.Listeners(t)
		if listeners == nil {
			listeners = []string{}
		}
		out = append(out, typeInfo{
			Type:        t.String(),
			Since:       info.Since,
			Description: info.Description,
			Listeners:   listeners,
		})
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(gin.H{
		"registry_version": events.RegistryVersion,
		"types":            out,
	}))
}

func (h *Handler) GetEvent(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid event ID"))
		return
	}

	evt, err := h.events.Get(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			_ = c.Error(apperrors.NotFound("event", err))
			return
		}
		_ = c.Error(apperrors.Internal(err))
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(evt))
}

