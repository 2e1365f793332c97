package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"aidfinder-backend/internal/apperr"
	"aidfinder-backend/internal/reservation"
)

func statusFor(err error) int {
	switch {
	case errors.Is(err, apperr.ErrInvalidFilter), errors.Is(err, apperr.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, apperr.ErrResourceNotFound),
		errors.Is(err, apperr.ErrRequestNotFound),
		errors.Is(err, apperr.ErrOrganizationNotFound),
		errors.Is(err, apperr.ErrSubscriptionNotFound):
		return http.StatusNotFound
	case errors.Is(err, apperr.ErrInvalidTransition):
		return http.StatusConflict
	case errors.Is(err, apperr.ErrStorageUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// writeError maps err onto a status code and the {"error","message"} body.
// Internal errors are logged and their text withheld from the client.
func (h *Handler) writeError(c *gin.Context, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		h.log.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
		msg = "internal error"
	}
	if reservation.IsRetryable(err) {
		c.Header("Retry-After", "1")
	}
	c.AbortWithStatusJSON(status, gin.H{"error": apperr.Kind(err), "message": msg})
}

func (h *Handler) badInput(c *gin.Context, format string, args ...any) {
	h.writeError(c, fmt.Errorf("%w: %s", apperr.ErrInvalidInput, fmt.Sprintf(format, args...)))
}

// pathID parses the named path parameter as a UUID. A malformed ID cannot
// name an existing row, so it is reported with notFound.
func (h *Handler) pathID(c *gin.Context, name string, notFound error) (uuid.UUID, bool) {
	raw := c.Param(name)
	id, err := uuid.Parse(raw)
	if err != nil {
		h.writeError(c, fmt.Errorf("%w: %q", notFound, raw))
		return uuid.Nil, false
	}
	return id, true
}
