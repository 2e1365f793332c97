package store

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"aidfinder-backend/internal/apperr"
	"aidfinder-backend/internal/model"
)

// Store defines the interface for all database operations. It is the single
// owned handle for catalog and ledger state.
type Store interface {
	DB() *gorm.DB
	// Transaction runs fn against a Store bound to one database transaction.
	// fn's error rolls everything back.
	Transaction(ctx context.Context, fn func(tx Store) error) error

	CreateOrganization(ctx context.Context, org *model.Organization) error
	GetOrganization(ctx context.Context, id uuid.UUID) (*model.Organization, error)
	ListOrganizations(ctx context.Context) ([]model.Organization, error)
	UpsertOrganizations(ctx context.Context, orgs []model.Organization) (map[string]model.Organization, error)

	CreateResource(ctx context.Context, r *model.Resource) error
	GetResource(ctx context.Context, id uuid.UUID) (*model.Resource, error)
	QueryResources(ctx context.Context, q ResourceQuery) ([]model.Resource, error)
	CompareAndDecrement(ctx context.Context, id uuid.UUID, expected int) (bool, error)
	Restock(ctx context.Context, id uuid.UUID, n int) (bool, error)
	EnsureResource(ctx context.Context, r *model.Resource) (bool, error)

	InsertRequest(ctx context.Context, req *model.Request) error
	GetRequest(ctx context.Context, id uuid.UUID) (*model.Request, error)
	CompareAndSetStatus(ctx context.Context, id uuid.UUID, from, to model.RequestStatus) (bool, error)
	ClearReserved(ctx context.Context, id uuid.UUID) (bool, error)
	ListRequestsByResource(ctx context.Context, resourceID uuid.UUID) ([]model.Request, error)

	CountResourcesByCategory(ctx context.Context) (map[model.Category]int64, error)
	CountRequestsByStatus(ctx context.Context) (map[model.RequestStatus]int64, error)
	CountResourcesByCity(ctx context.Context) (map[string]int64, error)

	ReplaceSubscription(ctx context.Context, sub *model.PushSubscription, resourceIDs []uuid.UUID) error
	GetSubscription(ctx context.Context, endpoint string) (*model.PushSubscription, error)
	DeleteSubscription(ctx context.Context, endpoint string) error
	SubscriptionsForResource(ctx context.Context, resourceID uuid.UUID) ([]model.PushSubscription, error)
}

// gormStore implements the Store interface using GORM.
type gormStore struct {
	db      *gorm.DB
	timeout time.Duration
	inTx    bool
}

// NewGormStore creates a new GORM-backed store. Each call is bounded by
// timeout; zero disables the bound.
func NewGormStore(db *gorm.DB, timeout time.Duration) Store {
	return &gormStore{db: db, timeout: timeout}
}

func (s *gormStore) DB() *gorm.DB {
	return s.db
}

func (s *gormStore) Transaction(ctx context.Context, fn func(tx Store) error) error {
	if s.inTx {
		return fn(s)
	}
	ctx, cancel := s.bound(ctx)
	defer cancel()

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormStore{db: tx, timeout: s.timeout, inTx: true})
	})
	return translate(ctx, err)
}

// conn returns a session for one call and the cancel func for its deadline.
// Inside a transaction the transaction's own deadline applies.
func (s *gormStore) conn(ctx context.Context) (*gorm.DB, context.Context, context.CancelFunc) {
	if s.inTx {
		return s.db, ctx, func() {}
	}
	ctx, cancel := s.bound(ctx)
	return s.db.WithContext(ctx), ctx, cancel
}

func (s *gormStore) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.timeout)
}

// translate maps driver and deadline failures to apperr.ErrStorageUnavailable.
// Errors that already carry a taxonomy kind pass through untouched.
func translate(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	if apperr.Kind(err) != "Internal" {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(ctx.Err(), context.DeadlineExceeded) ||
		errors.Is(err, driver.ErrBadConn) ||
		errors.Is(err, sql.ErrConnDone) {
		return fmt.Errorf("%w: %w", apperr.ErrStorageUnavailable, err)
	}
	return err
}

// notFound maps gorm.ErrRecordNotFound to kind, leaving other errors to translate.
func notFound(ctx context.Context, err error, kind error, id any) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%w: %v", kind, id)
	}
	return translate(ctx, err)
}
