package httputil

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/clinic-api/pkg/errors"
)

// Business outcomes are always reported with HTTP 200 and a success flag.
// Clients branch on `success`, never on the status code.

// RespondWithSuccess writes {success: true, message?, ...payload}.
func RespondWithSuccess(c *gin.Context, message string, payload gin.H) {
	body := gin.H{"success": true}
	if message != "" {
		body["message"] = message
	}
	for k, v := range payload {
		body[k] = v
	}
	c.JSON(http.StatusOK, body)
}

// RespondWithData writes {success: true, key: value}.
func RespondWithData(c *gin.Context, key string, value interface{}) {
	RespondWithSuccess(c, "", gin.H{key: value})
}

// RespondWithMessage writes {success: false, message}.
func RespondWithMessage(c *gin.Context, message string) {
	c.JSON(http.StatusOK, gin.H{"success": false, "message": message})
}

// RespondWithError renders err as {success: false, message, ...fields}.
// Errors that are not *errors.AppError are logged and replaced by a generic
// message.
func RespondWithError(c *gin.Context, err error) {
	appErr, ok := errors.As(err)
	if !ok {
		appErr = errors.NewInternal(err)
	}

	if appErr.Code == errors.ErrInternal || appErr.Code == errors.ErrDependency {
		log.Error().
			Err(err).
			Str("kind", appErr.Code.String()).
			Str("path", c.FullPath()).
			Str("request_id", c.GetString("request_id")).
			Msg("request failed")
	}

	body := gin.H{"success": false, "message": appErr.Message}
	for k, v := range appErr.Fields {
		body[k] = v
	}
	_ = c.Error(err)
	c.JSON(http.StatusOK, body)
}

// Abort writes a failure and stops the handler chain.
func Abort(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusOK, gin.H{"success": false, "message": message})
}
