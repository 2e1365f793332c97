package api

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"aidfinder-backend/internal/apperr"
	"aidfinder-backend/internal/catalog"
	"aidfinder-backend/internal/geo"
	"aidfinder-backend/internal/model"
)

// SearchResources handles GET /api/resources.
func (h *Handler) SearchResources(c *gin.Context) {
	filter, err := parseFilter(c)
	if err != nil {
		h.writeError(c, err)
		return
	}

	results, err := h.catalog.Search(c.Request.Context(), filter)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, results)
}

func parseFilter(c *gin.Context) (catalog.Filter, error) {
	f := catalog.Filter{
		Category: c.Query("category"),
		Keyword:  c.Query("q"),
		City:     c.Query("city"),
	}

	for _, raw := range c.QueryArray("org_id") {
		for _, part := range strings.Split(raw, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			id, err := uuid.Parse(part)
			if err != nil {
				return f, fmt.Errorf("%w: org_id %q is not a valid id", apperr.ErrInvalidFilter, part)
			}
			f.OrganizationIDs = append(f.OrganizationIDs, id)
		}
	}

	latRaw, hasLat := c.GetQuery("lat")
	lngRaw, hasLng := c.GetQuery("lng")
	if hasLat || hasLng {
		if !hasLat || !hasLng {
			return f, fmt.Errorf("%w: lat and lng must be given together", apperr.ErrInvalidFilter)
		}
		lat, err := strconv.ParseFloat(latRaw, 64)
		if err != nil {
			return f, fmt.Errorf("%w: lat %q is not a number", apperr.ErrInvalidFilter, latRaw)
		}
		lng, err := strconv.ParseFloat(lngRaw, 64)
		if err != nil {
			return f, fmt.Errorf("%w: lng %q is not a number", apperr.ErrInvalidFilter, lngRaw)
		}
		f.Origin = &geo.Point{Lat: lat, Lng: lng}
	}

	if raw, ok := c.GetQuery("max_distance"); ok {
		d, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return f, fmt.Errorf("%w: max_distance %q is not a number", apperr.ErrInvalidFilter, raw)
		}
		f.MaxDistanceMiles = &d
	}
	return f, nil
}

type createResourceRequest struct {
	OrgID             *uuid.UUID `json:"org_id"`
	Name              string     `json:"name"`
	Category          string     `json:"category"`
	Description       string     `json:"description"`
	Address           string     `json:"address"`
	City              string     `json:"city"`
	State             string     `json:"state"`
	Zip               string     `json:"zip"`
	Phone             string     `json:"phone"`
	Website           string     `json:"website"`
	Lat               *float64   `json:"lat"`
	Lng               *float64   `json:"lng"`
	CapacityTotal     int        `json:"capacity_total"`
	CapacityAvailable *int       `json:"capacity_available"`
}

// CreateResource handles POST /api/resources.
func (h *Handler) CreateResource(c *gin.Context) {
	var req createResourceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badInput(c, "invalid request body: %v", err)
		return
	}

	res := model.Resource{
		OrgID:             req.OrgID,
		Name:              req.Name,
		Category:          model.Category(req.Category),
		Description:       req.Description,
		Address:           req.Address,
		City:              req.City,
		State:             req.State,
		Zip:               req.Zip,
		Phone:             req.Phone,
		Website:           req.Website,
		Lat:               req.Lat,
		Lng:               req.Lng,
		CapacityTotal:     req.CapacityTotal,
		CapacityAvailable: req.CapacityAvailable,
	}
	if err := h.catalog.CreateResource(c.Request.Context(), &res); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

// GetResource handles GET /api/resources/:id.
func (h *Handler) GetResource(c *gin.Context) {
	id, ok := h.pathID(c, "id", apperr.ErrResourceNotFound)
	if !ok {
		return
	}

	res, err := h.catalog.GetResource(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

type restockRequest struct {
	Count int `json:"count"`
}

// RestockResource handles POST /api/resources/:id/restock. An empty body
// restocks one slot.
func (h *Handler) RestockResource(c *gin.Context) {
	id, ok := h.pathID(c, "id", apperr.ErrResourceNotFound)
	if !ok {
		return
	}

	req := restockRequest{Count: 1}
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			h.badInput(c, "invalid request body: %v", err)
			return
		}
	}

	res, err := h.coordinator.Restock(c.Request.Context(), id, req.Count)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}
