// Package analytics derives read-only counts over the catalog and ledger.
// Reads are snapshots and may lag concurrent writers.
package analytics

import (
	"context"

	"aidfinder-backend/internal/model"
	"aidfinder-backend/internal/store"
)

// TotalKey is the key holding the sum of all status counts.
const TotalKey = "total"

// UnspecifiedCity keys resources that have no city.
const UnspecifiedCity = "unspecified"

// Aggregator computes category and status counts.
type Aggregator struct {
	store store.Store
}

// New creates an Aggregator over s.
func New(s store.Store) *Aggregator {
	return &Aggregator{store: s}
}

// CountsByCategory returns the number of resources per category. Every known
// category is present, zero when empty.
func (a *Aggregator) CountsByCategory(ctx context.Context) (map[string]int64, error) {
	counts, err := a.store.CountResourcesByCategory(ctx)
	if err != nil {
		return nil, err
	}

	out := make(map[string]int64, len(model.Categories))
	for _, c := range model.Categories {
		out[string(c)] = 0
	}
	for c, n := range counts {
		out[string(c)] += n
	}
	return out, nil
}

// RequestStatusStats returns the number of requests per status plus TotalKey.
func (a *Aggregator) RequestStatusStats(ctx context.Context) (map[string]int64, error) {
	counts, err := a.store.CountRequestsByStatus(ctx)
	if err != nil {
		return nil, err
	}

	out := make(map[string]int64, len(model.Statuses)+1)
	for _, s := range model.Statuses {
		out[string(s)] = 0
	}
	var total int64
	for s, n := range counts {
		out[string(s)] += n
		total += n
	}
	out[TotalKey] = total
	return out, nil
}

// CountsByCity returns the number of resources per city. Resources without a
// city are counted under UnspecifiedCity.
func (a *Aggregator) CountsByCity(ctx context.Context) (map[string]int64, error) {
	counts, err := a.store.CountResourcesByCity(ctx)
	if err != nil {
		return nil, err
	}

	out := make(map[string]int64, len(counts))
	for city, n := range counts {
		if city == "" {
			city = UnspecifiedCity
		}
		out[city] += n
	}
	return out, nil
}
