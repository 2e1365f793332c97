package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// GetCategoryCounts handles GET /api/analytics/categories.
func (h *Handler) GetCategoryCounts(c *gin.Context) {
	counts, err := h.analytics.CountsByCategory(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, counts)
}

// GetRequestStats handles GET /api/analytics/requests.
func (h *Handler) GetRequestStats(c *gin.Context) {
	stats, err := h.analytics.RequestStatusStats(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// GetCityCounts handles GET /api/analytics/cities.
func (h *Handler) GetCityCounts(c *gin.Context) {
	counts, err := h.analytics.CountsByCity(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, counts)
}
