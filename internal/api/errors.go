package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"codingclub/internal/club"
)

const (
	msgNotFound   = "Not found."
	msgForbidden  = "You do not have permission to perform this action."
	msgInternal   = "Internal server error"
	msgBadJSON    = "JSON parse error"
	msgNoMeeting  = "Meeting not found"
	msgBadLogin   = "Invalid credentials"
	msgNoAccount  = "No active account found with the given credentials"
	msgBadRefresh = "Token is invalid or expired"
)

// respondError maps domain errors to status codes. Unexpected errors are
// logged and reported without detail.
func (h *handler) respondError(c *gin.Context, err error) {
	var ve *club.ValidationError
	switch {
	case errors.As(err, &ve):
		if ve.Detail != "" {
			c.JSON(http.StatusBadRequest, gin.H{"detail": ve.Detail})
			return
		}
		c.JSON(http.StatusBadRequest, ve.Fields)
	case errors.Is(err, club.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"detail": msgForbidden})
	case errors.Is(err, club.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"detail": msgNotFound})
	default:
		h.log.Error("request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.String("request_id", c.GetString("request_id")),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"detail": msgInternal})
	}
}
