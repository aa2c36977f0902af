package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jwalitptl/engagement-hub/internal/model"
)

// Context keys set by the auth middleware.
const (
	ContextRecipientID = "recipient_id"
	ContextRole        = "role"
)

type Response struct {
	Status  string      `json:"status"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

func NewSuccessResponse(data interface{}) *Response {
	return &Response{
		Status: "success",
		Data:   data,
	}
}

func NewErrorResponse(message string) *Response {
	return &Response{
		Status:  "error",
		Message: message,
	}
}

// RecipientID returns the authenticated recipient.
func RecipientID(c *gin.Context) (uuid.UUID, bool) {
	v, ok := c.Get(ContextRecipientID)
	if !ok {
		return uuid.Nil, false
	}
	id, ok := v.(uuid.UUID)
	return id, ok
}

// Pagination reads limit and offset query parameters, ignoring malformed
// values.
func Pagination(c *gin.Context) model.Pagination {
	var p model.Pagination
	if v, err := strconv.Atoi(c.Query("limit")); err == nil {
		p.Limit = v
	}
	if v, err := strconv.Atoi(c.Query("offset")); err == nil {
		p.Offset = v
	}
	return p.Normalize()
}
