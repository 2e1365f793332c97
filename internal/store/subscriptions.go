package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"aidfinder-backend/internal/apperr"
	"aidfinder-backend/internal/model"
)

// ReplaceSubscription upserts sub and replaces its resource set.
func (s *gormStore) ReplaceSubscription(ctx context.Context, sub *model.PushSubscription, resourceIDs []uuid.UUID) error {
	return s.Transaction(ctx, func(txs Store) error {
		tx := txs.DB()
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "endpoint"}},
			DoUpdates: clause.AssignmentColumns([]string{"p256dh", "auth"}),
		}).Create(sub).Error; err != nil {
			return err
		}

		resourceIDs = dedupe(resourceIDs)
		resources := []model.Resource{}
		if len(resourceIDs) > 0 {
			if err := tx.Where("id IN ?", resourceIDs).Find(&resources).Error; err != nil {
				return err
			}
			if len(resources) != len(resourceIDs) {
				return fmt.Errorf("%w: subscription references unknown resources", apperr.ErrResourceNotFound)
			}
		}

		return tx.Model(sub).Association("Resources").Replace(&resources)
	})
}

func (s *gormStore) GetSubscription(ctx context.Context, endpoint string) (*model.PushSubscription, error) {
	db, ctx, cancel := s.conn(ctx)
	defer cancel()
	var sub model.PushSubscription
	if err := db.Preload("Resources").First(&sub, "endpoint = ?", endpoint).Error; err != nil {
		return nil, notFound(ctx, err, apperr.ErrSubscriptionNotFound, endpoint)
	}
	return &sub, nil
}

func (s *gormStore) DeleteSubscription(ctx context.Context, endpoint string) error {
	return s.Transaction(ctx, func(txs Store) error {
		tx := txs.DB()
		sub := model.PushSubscription{Endpoint: endpoint}
		if err := tx.Model(&sub).Association("Resources").Clear(); err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		return tx.Delete(&sub).Error
	})
}

// SubscriptionsForResource lists subscriptions watching resourceID.
func (s *gormStore) SubscriptionsForResource(ctx context.Context, resourceID uuid.UUID) ([]model.PushSubscription, error) {
	db, ctx, cancel := s.conn(ctx)
	defer cancel()
	var subs []model.PushSubscription
	err := db.
		Joins("JOIN subscription_resource_mapping srm ON srm.push_subscription_endpoint = push_subscriptions.endpoint").
		Where("srm.resource_id = ?", resourceID).
		Find(&subs).Error
	if err != nil {
		return nil, translate(ctx, err)
	}
	return subs, nil
}

func dedupe(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := ids[:0:0]
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
