package store

import (
	"context"
	"strings"

	"aidfinder-backend/internal/model"
)

func (s *gormStore) CountResourcesByCategory(ctx context.Context) (map[model.Category]int64, error) {
	db, ctx, cancel := s.conn(ctx)
	defer cancel()

	var rows []struct {
		Category string
		Total    int64
	}
	if err := db.Model(&model.Resource{}).
		Select("category AS category, COUNT(*) AS total").
		Group("category").
		Scan(&rows).Error; err != nil {
		return nil, translate(ctx, err)
	}

	counts := make(map[model.Category]int64, len(rows))
	for _, r := range rows {
		counts[model.Category(r.Category)] += r.Total
	}
	return counts, nil
}

func (s *gormStore) CountRequestsByStatus(ctx context.Context) (map[model.RequestStatus]int64, error) {
	db, ctx, cancel := s.conn(ctx)
	defer cancel()

	var rows []struct {
		Status string
		Total  int64
	}
	if err := db.Model(&model.Request{}).
		Select("status AS status, COUNT(*) AS total").
		Group("status").
		Scan(&rows).Error; err != nil {
		return nil, translate(ctx, err)
	}

	counts := make(map[model.RequestStatus]int64, len(rows))
	for _, r := range rows {
		counts[model.RequestStatus(r.Status)] += r.Total
	}
	return counts, nil
}

// CountResourcesByCity groups resources by their trimmed city; resources
// without one are counted under "".
func (s *gormStore) CountResourcesByCity(ctx context.Context) (map[string]int64, error) {
	db, ctx, cancel := s.conn(ctx)
	defer cancel()

	var rows []struct {
		City  string
		Total int64
	}
	if err := db.Model(&model.Resource{}).
		Select("COALESCE(city, '') AS city, COUNT(*) AS total").
		Group("COALESCE(city, '')").
		Scan(&rows).Error; err != nil {
		return nil, translate(ctx, err)
	}

	counts := make(map[string]int64, len(rows))
	for _, r := range rows {
		counts[strings.TrimSpace(r.City)] += r.Total
	}
	return counts, nil
}
