// Package reservation owns every write to request state and resource
// capacity: submission, status transitions, restock and slot release.
package reservation

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"aidfinder-backend/internal/apperr"
	"aidfinder-backend/internal/model"
	"aidfinder-backend/internal/store"
)

// Notifier is told about each newly recorded request.
type Notifier interface {
	Dispatch(resourceID uuid.UUID)
}

// Coordinator submits requests against resources without overcommitting
// capacity.
type Coordinator struct {
	store      store.Store
	maxRetries int
	notifier   Notifier
	log        *zap.Logger
}

// New creates a Coordinator. maxRetries bounds how many times a lost
// compare-and-decrement is retried; notifier may be nil.
func New(s store.Store, maxRetries int, notifier Notifier, log *zap.Logger) *Coordinator {
	if maxRetries < 0 {
		maxRetries = 0
	}
	return &Coordinator{store: s, maxRetries: maxRetries, notifier: notifier, log: log}
}

// SubmitRequest records a pending request and, when the resource has a free
// slot, takes it in the same transaction. A request against an exhausted
// resource is still recorded, without a slot.
func (c *Coordinator) SubmitRequest(ctx context.Context, resourceID uuid.UUID, name, phone, notes string) (*model.Request, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: requester name is required", apperr.ErrInvalidInput)
	}

	var (
		req     *model.Request
		outcome string
	)
	err := c.store.Transaction(ctx, func(tx store.Store) error {
		res, err := tx.GetResource(ctx, resourceID)
		if err != nil {
			return err
		}

		var reserved bool
		reserved, outcome, err = c.reserveSlot(ctx, tx, res)
		if err != nil {
			return err
		}

		req = &model.Request{
			ResourceID:     res.ID,
			RequesterName:  name,
			RequesterPhone: strings.TrimSpace(phone),
			RequesterNotes: notes,
			Status:         model.StatusPending,
			Reserved:       reserved,
		}
		return tx.InsertRequest(ctx, req)
	})
	if err != nil {
		return nil, err
	}

	submissions.WithLabelValues(outcome).Inc()
	c.log.Info("request submitted",
		zap.Stringer("request_id", req.ID),
		zap.Stringer("resource_id", req.ResourceID),
		zap.String("outcome", outcome))

	if c.notifier != nil {
		c.notifier.Dispatch(req.ResourceID)
	}
	return req, nil
}

// reserveSlot runs the compare-and-decrement loop inside tx. It never fails
// because of contention: once the retry budget is spent the request is
// treated as arriving at an exhausted resource.
func (c *Coordinator) reserveSlot(ctx context.Context, tx store.Store, res *model.Resource) (bool, string, error) {
	if !res.TracksCapacity() {
		return false, outcomeUntracked, nil
	}

	expected := *res.CapacityAvailable
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if expected <= 0 {
			return false, outcomeExhausted, nil
		}

		ok, err := tx.CompareAndDecrement(ctx, res.ID, expected)
		if err != nil {
			return false, "", err
		}
		if ok {
			return true, outcomeReserved, nil
		}

		decrementConflicts.Inc()
		current, err := tx.GetResource(ctx, res.ID)
		if err != nil {
			return false, "", err
		}
		if !current.TracksCapacity() {
			return false, outcomeUntracked, nil
		}
		expected = *current.CapacityAvailable
	}

	c.log.Warn("recording request without a slot",
		zap.Stringer("resource_id", res.ID),
		zap.Int("attempts", c.maxRetries+1),
		zap.Error(apperr.ErrCapacityRaceExceeded))
	return false, outcomeRaceExceeded, nil
}

// UpdateStatus moves a request along the lifecycle. Capacity is not touched;
// see ReleaseRequest.
func (c *Coordinator) UpdateStatus(ctx context.Context, requestID uuid.UUID, status model.RequestStatus) (*model.Request, error) {
	to, ok := model.ParseStatus(string(status))
	if !ok {
		return nil, fmt.Errorf("%w: unknown status %q", apperr.ErrInvalidInput, status)
	}

	// One re-read covers a writer that changed the status between our read
	// and the conditional update.
	for attempt := 0; attempt < 2; attempt++ {
		req, err := c.store.GetRequest(ctx, requestID)
		if err != nil {
			return nil, err
		}
		if !model.CanTransition(req.Status, to) {
			return nil, fmt.Errorf("%w: %s -> %s", apperr.ErrInvalidTransition, req.Status, to)
		}

		ok, err := c.store.CompareAndSetStatus(ctx, requestID, req.Status, to)
		if err != nil {
			return nil, err
		}
		if ok {
			statusTransitions.WithLabelValues(string(to)).Inc()
			c.log.Info("request status changed",
				zap.Stringer("request_id", requestID),
				zap.String("from", string(req.Status)),
				zap.String("to", string(to)))
			return c.store.GetRequest(ctx, requestID)
		}
	}
	return nil, fmt.Errorf("%w: request %s changed concurrently", apperr.ErrInvalidTransition, requestID)
}

// ListRequestsForResource returns the resource's requests, oldest first.
func (c *Coordinator) ListRequestsForResource(ctx context.Context, resourceID uuid.UUID) ([]model.Request, error) {
	if _, err := c.store.GetResource(ctx, resourceID); err != nil {
		return nil, err
	}
	return c.store.ListRequestsByResource(ctx, resourceID)
}

// Restock returns n slots to a resource, capped at its total capacity.
func (c *Coordinator) Restock(ctx context.Context, resourceID uuid.UUID, n int) (*model.Resource, error) {
	if n < 1 {
		return nil, fmt.Errorf("%w: restock count must be at least 1", apperr.ErrInvalidInput)
	}

	var res *model.Resource
	err := c.store.Transaction(ctx, func(tx store.Store) error {
		if _, err := tx.GetResource(ctx, resourceID); err != nil {
			return err
		}
		if _, err := tx.Restock(ctx, resourceID, n); err != nil {
			return err
		}
		var err error
		res, err = tx.GetResource(ctx, resourceID)
		return err
	})
	if err != nil {
		return nil, err
	}

	c.log.Info("resource restocked", zap.Stringer("resource_id", resourceID), zap.Int("count", n))
	return res, nil
}

// ReleaseRequest gives back the slot held by a denied or cancelled request.
// Releasing a request that holds no slot is a no-op.
func (c *Coordinator) ReleaseRequest(ctx context.Context, requestID uuid.UUID) (*model.Request, error) {
	var req *model.Request
	err := c.store.Transaction(ctx, func(tx store.Store) error {
		var err error
		req, err = tx.GetRequest(ctx, requestID)
		if err != nil {
			return err
		}
		if req.Status != model.StatusDenied && req.Status != model.StatusCancelled {
			return fmt.Errorf("%w: cannot release a %s request", apperr.ErrInvalidTransition, req.Status)
		}

		cleared, err := tx.ClearReserved(ctx, requestID)
		if err != nil || !cleared {
			return err
		}
		if _, err := tx.Restock(ctx, req.ResourceID, 1); err != nil {
			return err
		}
		req.Reserved = false
		c.log.Info("request slot released",
			zap.Stringer("request_id", requestID),
			zap.Stringer("resource_id", req.ResourceID))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return req, nil
}

// IsRetryable reports whether err is transient and the caller may retry.
func IsRetryable(err error) bool {
	return errors.Is(err, apperr.ErrStorageUnavailable)
}
