package template

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/engagement-hub/internal/handler"
	"github.com/jwalitptl/engagement-hub/internal/model"
	templateService "github.com/jwalitptl/engagement-hub/internal/service/template"
)

type Handler struct {
	service *templateService.Service
}

func NewHandler(service *templateService.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	templates := r.Group("/templates")
	{
		templates.GET("", h.ListTemplates)
		templates.GET("/:channel/:event_type", h.GetTemplate)
		templates.PUT("/:channel/:event_type", h.UpsertTemplate)
	}
}

func (h *Handler) UpsertTemplate(c *gin.Context) {
	var req model.TemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	tmpl, err := h.service.Upsert(c.Request.Context(), model.Channel(c.Param("channel")), c.Param("event_type"), &req)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(tmpl))
}

func (h *Handler) GetTemplate(c *gin.Context) {
	tmpl, err := h.service.Get(c.Request.Context(), model.Channel(c.Param("channel")), c.Param("event_type"))
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(tmpl))
}

func (h *Handler) ListTemplates(c *gin.Context) {
	templates, err := h.service.List(c.Request.Context(), model.Channel(c.Query("channel")))
	if err != nil {
		_ = c.Error(err)
		return
	}
	if templates == nil {
		templates = []*model.NotificationTemplate{}
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(templates))
}
