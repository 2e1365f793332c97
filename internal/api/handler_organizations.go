package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"aidfinder-backend/internal/model"
)

// ListOrganizations handles GET /api/organizations.
func (h *Handler) ListOrganizations(c *gin.Context) {
	orgs, err := h.catalog.ListOrganizations(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, orgs)
}

type createOrganizationRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Website     string `json:"website"`
	Phone       string `json:"phone"`
}

// CreateOrganization handles POST /api/organizations.
func (h *Handler) CreateOrganization(c *gin.Context) {
	var req createOrganizationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badInput(c, "invalid request body: %v", err)
		return
	}

	org := model.Organization{
		Name:        req.Name,
		Description: req.Description,
		Website:     req.Website,
		Phone:       req.Phone,
	}
	if err := h.catalog.CreateOrganization(c.Request.Context(), &org); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, org)
}
