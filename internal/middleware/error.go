package middleware

import (
	"github.com/gin-gonic/gin"
)

// ErrorResponse is used for failures raised by the middleware chain itself,
// where a non-200 status is meaningful to proxies and clients alike.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	TraceID string `json:"trace_id,omitempty"`
}

func abortWithStatus(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, ErrorResponse{
		Success: false,
		Message: message,
		TraceID: c.GetString(ContextRequestID),
	})
}
