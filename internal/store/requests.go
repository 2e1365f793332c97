package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"aidfinder-backend/internal/apperr"
	"aidfinder-backend/internal/model"
)

func (s *gormStore) InsertRequest(ctx context.Context, req *model.Request) error {
	db, ctx, cancel := s.conn(ctx)
	defer cancel()
	if err := db.Create(req).Error; err != nil {
		return translate(ctx, fmt.Errorf("failed to insert request for resource %s: %w", req.ResourceID, err))
	}
	return nil
}

func (s *gormStore) GetRequest(ctx context.Context, id uuid.UUID) (*model.Request, error) {
	db, ctx, cancel := s.conn(ctx)
	defer cancel()
	var req model.Request
	if err := db.First(&req, "id = ?", id).Error; err != nil {
		return nil, notFound(ctx, err, apperr.ErrRequestNotFound, id)
	}
	return &req, nil
}

// CompareAndSetStatus moves a request to status to only while it is still in
// status from.
func (s *gormStore) CompareAndSetStatus(ctx context.Context, id uuid.UUID, from, to model.RequestStatus) (bool, error) {
	db, ctx, cancel := s.conn(ctx)
	defer cancel()

	res := db.Model(&model.Request{}).
		Where("id = ? AND status = ?", id, from).
		Updates(map[string]any{"status": to, "updated_at": time.Now().UTC()})
	if res.Error != nil {
		return false, translate(ctx, fmt.Errorf("status update for request %s failed: %w", id, res.Error))
	}
	return res.RowsAffected == 1, nil
}

// ClearReserved drops the slot marker of a request, reporting whether it was set.
func (s *gormStore) ClearReserved(ctx context.Context, id uuid.UUID) (bool, error) {
	db, ctx, cancel := s.conn(ctx)
	defer cancel()

	res := db.Model(&model.Request{}).
		Where("id = ? AND reserved = ?", id, true).
		Updates(map[string]any{"reserved": false, "updated_at": time.Now().UTC()})
	if res.Error != nil {
		return false, translate(ctx, fmt.Errorf("release of request %s failed: %w", id, res.Error))
	}
	return res.RowsAffected == 1, nil
}

func (s *gormStore) ListRequestsByResource(ctx context.Context, resourceID uuid.UUID) ([]model.Request, error) {
	db, ctx, cancel := s.conn(ctx)
	defer cancel()
	requests := []model.Request{}
	if err := db.Where("resource_id = ?", resourceID).
		Order("created_at ASC").Order("id ASC").
		Find(&requests).Error; err != nil {
		return nil, translate(ctx, err)
	}
	return requests, nil
}
