package notification

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jwalitptl/engagement-hub/internal/handler"
	"github.com/jwalitptl/engagement-hub/internal/model"
	notificationService "github.com/jwalitptl/engagement-hub/internal/service/notification"
)

// Handler serves the authenticated recipient's own inbox.
type Handler struct {
	service *notificationService.Service
}

func NewHandler(service *notificationService.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	notifications := r.Group("/notifications")
	{
		notifications.GET("", h.ListNotifications)
		notifications.GET("/unread-count", h.UnreadCount)
		notifications.GET("/email", h.ListEmail)
		notifications.POST("/:id/read", h.MarkRead)
	}
}

func (h *Handler) ListNotifications(c *gin.Context) {
	recipientID, ok := handler.RecipientID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("missing recipient"))
		return
	}

	unreadOnly, _ := strconv.ParseBool(c.Query("unread"))
	out, err := h.service.List(c.Request.Context(), model.NotificationFilter{
		RecipientID: recipientID,
		UnreadOnly:  unreadOnly,
		Pagination:  handler.Pagination(c),
	})
	if err != nil {
		_ = c.Error(err)
		return
	}
	if out == nil {
		out = []*model.InAppNotification{}
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(out))
}

func (h *Handler) UnreadCount(c *gin.Context) {
	recipientID, ok := handler.RecipientID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("missing recipient"))
		return
	}

	n, err := h.service.UnreadCount(c.Request.Context(), recipientID)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(gin.H{"unread": n}))
}

func (h *Handler) ListEmail(c *gin.Context) {
	recipientID, ok := handler.RecipientID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("missing recipient"))
		return
	}

	out, err := h.service.ListEmail(c.Request.Context(), recipientID)
	if err != nil {
		_ = c.Error(err)
		return
	}
	if out == nil {
		out = []*model.EmailNotification{}
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(out))
}

func (h *Handler) MarkRead(c *gin.Context) {
	recipientID, ok := handler.RecipientID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("missing recipient"))
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid notification ID"))
		return
	}

	n, err := h.service.MarkRead(c.Request.Context(), id, recipientID)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(n))
}
