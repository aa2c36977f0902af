package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/engagement-hub/internal/handler"
	apperrors "github.com/jwalitptl/engagement-hub/pkg/errors"
	"github.com/jwalitptl/engagement-hub/pkg/logger"
)

// ErrorHandler renders the last error attached with c.Error. AppErrors pick
// the status; anything else is a 500 with a generic message.
func ErrorHandler(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}

		requestID := c.GetString(ContextRequestID)
		for _, e := range c.Errors {
			log.Error(e.Err, "Request error",
				"request_id", requestID,
				"path", c.Request.URL.Path,
				"method", c.Request.Method)
		}

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last().Err
		status := http.StatusInternalServerError
		message := "internal server error"

		var appErr *apperrors.AppError
		if errors.As(lastErr, &appErr) {
			status = appErr.StatusCode()
			message = appErr.Message
			if status < http.StatusInternalServerError && appErr.Err != nil {
				message = appErr.Error()
			}
		}

		c.JSON(status, handler.NewErrorResponse(message))
	}
}
