package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"aidfinder-backend/internal/apperr"
	"aidfinder-backend/internal/model"
)

type submitRequestBody struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
	Notes string `json:"notes"`
}

// SubmitRequest handles POST /api/resources/:id/requests.
func (h *Handler) SubmitRequest(c *gin.Context) {
	resourceID, ok := h.pathID(c, "id", apperr.ErrResourceNotFound)
	if !ok {
		return
	}

	var body submitRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		h.badInput(c, "invalid request body: %v", err)
		return
	}

	req, err := h.coordinator.SubmitRequest(c.Request.Context(), resourceID, body.Name, body.Phone, body.Notes)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, req)
}

// ListRequests handles GET /api/resources/:id/requests.
func (h *Handler) ListRequests(c *gin.Context) {
	resourceID, ok := h.pathID(c, "id", apperr.ErrResourceNotFound)
	if !ok {
		return
	}

	requests, err := h.coordinator.ListRequestsForResource(c.Request.Context(), resourceID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, requests)
}

type updateStatusBody struct {
	Status string `json:"status" binding:"required"`
}

// UpdateRequestStatus handles PATCH /api/requests/:id.
func (h *Handler) UpdateRequestStatus(c *gin.Context) {
	requestID, ok := h.pathID(c, "id", apperr.ErrRequestNotFound)
	if !ok {
		return
	}

	var body updateStatusBody
	if err := c.ShouldBindJSON(&body); err != nil {
		h.badInput(c, "status is required")
		return
	}

	req, err := h.coordinator.UpdateStatus(c.Request.Context(), requestID, model.RequestStatus(body.Status))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, req)
}

// ReleaseRequest handles POST /api/requests/:id/release.
func (h *Handler) ReleaseRequest(c *gin.Context) {
	requestID, ok := h.pathID(c, "id", apperr.ErrRequestNotFound)
	if !ok {
		return
	}

	req, err := h.coordinator.ReleaseRequest(c.Request.Context(), requestID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, req)
}
