package preference

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/engagement-hub/internal/handler"
	"github.com/jwalitptl/engagement-hub/internal/model"
	preferenceService "github.com/jwalitptl/engagement-hub/internal/service/preference"
)

type Handler struct {
	service *preferenceService.Service
}

func NewHandler(service *preferenceService.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	preferences := r.Group("/preferences")
	{
		preferences.GET("", h.GetPreference)
		preferences.PUT("", h.UpdatePreference)
	}
}

func (h *Handler) GetPreference(c *gin.Context) {
	recipientID, ok := handler.RecipientID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("missing recipient"))
		return
	}

	pref, err := h.service.Get(c.Request.Context(), recipientID)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(pref))
}

func (h *Handler) UpdatePreference(c *gin.Context) {
	recipientID, ok := handler.RecipientID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("missing recipient"))
		return
	}

	var req model.PreferenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	pref, err := h.service.Update(c.Request.Context(), recipientID, &req)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(pref))
}
