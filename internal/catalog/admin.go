package catalog

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"aidfinder-backend/internal/apperr"
	"aidfinder-backend/internal/geo"
	"aidfinder-backend/internal/model"
)

// CreateOrganization validates and stores a new organization.
func (c *Catalog) CreateOrganization(ctx context.Context, org *model.Organization) error {
	org.Name = strings.TrimSpace(org.Name)
	if org.Name == "" {
		return fmt.Errorf("%w: organization name is required", apperr.ErrInvalidInput)
	}
	if err := c.store.CreateOrganization(ctx, org); err != nil {
		return err
	}
	c.log.Info("organization created", zap.Stringer("org_id", org.ID), zap.String("name", org.Name))
	return nil
}

// CreateResource validates and stores a new resource. A nil CapacityAvailable
// on a resource with CapacityTotal > 0 starts fully available.
func (c *Catalog) CreateResource(ctx context.Context, r *model.Resource) error {
	if err := normalizeResource(r); err != nil {
		return err
	}
	if r.OrgID != nil {
		if _, err := c.store.GetOrganization(ctx, *r.OrgID); err != nil {
			return err
		}
	}
	if err := c.store.CreateResource(ctx, r); err != nil {
		return err
	}
	c.log.Info("resource created", zap.Stringer("resource_id", r.ID), zap.String("name", r.Name),
		zap.String("category", string(r.Category)))
	return nil
}

func normalizeResource(r *model.Resource) error {
	r.Name = strings.TrimSpace(r.Name)
	if r.Name == "" {
		return fmt.Errorf("%w: resource name is required", apperr.ErrInvalidInput)
	}

	if r.Category == "" {
		r.Category = model.CategoryOther
	}
	cat, ok := model.ParseCategory(string(r.Category))
	if !ok {
		return fmt.Errorf("%w: unknown category %q", apperr.ErrInvalidInput, r.Category)
	}
	r.Category = cat

	if (r.Lat == nil) != (r.Lng == nil) {
		return fmt.Errorf("%w: lat and lng must be given together", apperr.ErrInvalidInput)
	}
	if r.HasCoordinates() && !geo.Valid(geo.Point{Lat: *r.Lat, Lng: *r.Lng}) {
		return fmt.Errorf("%w: coordinates out of range", apperr.ErrInvalidInput)
	}

	if r.CapacityTotal < 0 {
		return fmt.Errorf("%w: capacity_total must be non-negative", apperr.ErrInvalidInput)
	}
	if r.CapacityAvailable == nil && r.CapacityTotal > 0 {
		avail := r.CapacityTotal
		r.CapacityAvailable = &avail
	}
	if r.CapacityAvailable != nil && (*r.CapacityAvailable < 0 || *r.CapacityAvailable > r.CapacityTotal) {
		return fmt.Errorf("%w: capacity_available must be between 0 and capacity_total", apperr.ErrInvalidInput)
	}
	return nil
}

// EnsureResource validates r and creates it unless a resource with the same
// name and owner exists. It reports whether a row was created.
func (c *Catalog) EnsureResource(ctx context.Context, r *model.Resource) (bool, error) {
	if err := normalizeResource(r); err != nil {
		return false, err
	}
	return c.store.EnsureResource(ctx, r)
}
