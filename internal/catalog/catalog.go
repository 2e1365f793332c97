// Package catalog implements resource search and the admin paths that add
// organizations and resources to the directory.
package catalog

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"aidfinder-backend/internal/apperr"
	"aidfinder-backend/internal/geo"
	"aidfinder-backend/internal/model"
	"aidfinder-backend/internal/store"
)

// Filter selects resources. Origin and MaxDistanceMiles must be set together.
type Filter struct {
	Category         string
	OrganizationIDs  []uuid.UUID
	Keyword          string
	City             string
	Origin           *geo.Point
	MaxDistanceMiles *float64
}

// Result is a resource annotated with its distance from the filter origin.
// DistanceMiles is nil when the filter has no distance constraint.
type Result struct {
	model.Resource
	DistanceMiles *float64 `json:"distance_miles,omitempty"`
}

// Catalog is the read side of the resource directory.
type Catalog struct {
	store store.Store
	log   *zap.Logger
}

// New creates a Catalog over s.
func New(s store.Store, log *zap.Logger) *Catalog {
	return &Catalog{store: s, log: log}
}

// Search returns the resources matching f. With a distance constraint the
// results are ordered by ascending distance; otherwise by catalog order.
func (c *Catalog) Search(ctx context.Context, f Filter) ([]Result, error) {
	query, err := f.toQuery()
	if err != nil {
		return nil, err
	}
	if query.Category == "" && strings.TrimSpace(f.Category) != "" {
		// No resource can carry a category outside the known set.
		return []Result{}, nil
	}

	resources, err := c.store.QueryResources(ctx, query)
	if err != nil {
		return nil, err
	}

	if f.Origin == nil {
		results := make([]Result, len(resources))
		for i, r := range resources {
			results[i] = Result{Resource: r}
		}
		return results, nil
	}

	type candidate struct {
		resource model.Resource
		miles    float64
	}
	candidates := make([]candidate, 0, len(resources))
	for _, r := range resources {
		if !r.HasCoordinates() {
			continue
		}
		d := geo.DistanceMiles(*f.Origin, geo.Point{Lat: *r.Lat, Lng: *r.Lng})
		if d > *f.MaxDistanceMiles {
			continue
		}
		candidates = append(candidates, candidate{resource: r, miles: d})
	}
	// Order on the exact distance; rounding is for display only.
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].miles < candidates[j].miles
	})

	results := make([]Result, len(candidates))
	for i, cand := range candidates {
		rounded := geo.Round2(cand.miles)
		results[i] = Result{Resource: cand.resource, DistanceMiles: &rounded}
	}

	c.log.Debug("distance search",
		zap.Float64("lat", f.Origin.Lat), zap.Float64("lng", f.Origin.Lng),
		zap.Float64("max_miles", *f.MaxDistanceMiles),
		zap.Int("candidates", len(resources)), zap.Int("matched", len(results)))
	return results, nil
}

// toQuery validates f. An unknown category is not an error; it leaves
// Category empty and Search answers with no results.
func (f Filter) toQuery() (store.ResourceQuery, error) {
	var q store.ResourceQuery

	if cat, ok := model.ParseCategory(f.Category); ok {
		q.Category = cat
	}

	if (f.Origin == nil) != (f.MaxDistanceMiles == nil) {
		return q, fmt.Errorf("%w: origin and max distance must be given together", apperr.ErrInvalidFilter)
	}
	if f.Origin != nil {
		if !geo.Valid(*f.Origin) {
			return q, fmt.Errorf("%w: origin is not a valid coordinate", apperr.ErrInvalidFilter)
		}
		d := *f.MaxDistanceMiles
		if math.IsNaN(d) || math.IsInf(d, 0) || d < 0 {
			return q, fmt.Errorf("%w: max distance must be a non-negative number", apperr.ErrInvalidFilter)
		}
		q.RequireCoordinates = true
	}

	q.OrganizationIDs = f.OrganizationIDs
	q.Keyword = strings.TrimSpace(f.Keyword)
	q.City = strings.TrimSpace(f.City)
	return q, nil
}

// GetResource returns one resource by id.
func (c *Catalog) GetResource(ctx context.Context, id uuid.UUID) (*model.Resource, error) {
	return c.store.GetResource(ctx, id)
}

// ListOrganizations returns every organization by name.
func (c *Catalog) ListOrganizations(ctx context.Context) ([]model.Organization, error) {
	return c.store.ListOrganizations(ctx)
}
