package notification

import (
	"context"
	"fmt"
	"net/http"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"aidfinder-backend/internal/model"
	"aidfinder-backend/internal/store"
)

// NotificationSender defines the interface for sending a web push notification.
type NotificationSender interface {
	Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error)
}

// WebPushSender is a real implementation of NotificationSender using the webpush library.
type WebPushSender struct{}

// Send sends a notification using the webpush library.
func (s *WebPushSender) Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
	return webpush.SendNotification(payload, sub, options)
}

// WorkerPool tells subscribed staff about new requests against their resources.
type WorkerPool struct {
	size    int
	jobs    chan uuid.UUID
	store   store.Store
	webpush *webpush.Options
	sender  NotificationSender
	log     *zap.Logger
}

// NewWorkerPool creates a new worker pool.
func NewWorkerPool(size, queueSize int, s store.Store, webpushOptions *webpush.Options, log *zap.Logger) *WorkerPool {
	return &WorkerPool{
		size:    size,
		jobs:    make(chan uuid.UUID, queueSize),
		store:   s,
		webpush: webpushOptions,
		sender:  &WebPushSender{}, // Use the real sender by default
		log:     log,
	}
}

// Start launches the worker goroutines.
func (wp *WorkerPool) Start(ctx context.Context) {
	for i := 0; i < wp.size; i++ {
		go wp.worker(ctx, i)
	}
}

func (wp *WorkerPool) worker(ctx context.Context, id int) {
	wp.log.Debug("notification worker started", zap.Int("worker", id))
	for {
		select {
		case resourceID := <-wp.jobs:
			wp.notifyResource(ctx, resourceID)
		case <-ctx.Done():
			wp.log.Debug("notification worker shutting down", zap.Int("worker", id))
			return
		}
	}
}

// Dispatch queues a notification for resourceID. It never blocks: when the
// queue is full the notification is dropped.
func (wp *WorkerPool) Dispatch(resourceID uuid.UUID) {
	select {
	case wp.jobs <- resourceID:
	default:
		wp.log.Warn("notification queue full, dropping", zap.Stringer("resource_id", resourceID))
	}
}

func (wp *WorkerPool) notifyResource(ctx context.Context, resourceID uuid.UUID) {
	subscriptions, err := wp.store.SubscriptionsForResource(ctx, resourceID)
	if err != nil {
		wp.log.Error("fetching subscriptions failed", zap.Stringer("resource_id", resourceID), zap.Error(err))
		return
	}
	if len(subscriptions) == 0 {
		return
	}

	label := resourceID.String()
	if r, err := wp.store.GetResource(ctx, resourceID); err != nil {
		wp.log.Warn("resource lookup failed", zap.Stringer("resource_id", resourceID), zap.Error(err))
	} else if r.Name != "" {
		label = r.Name
	}

	wp.log.Info("sending notifications", zap.Int("count", len(subscriptions)), zap.String("resource", label))
	message := fmt.Sprintf("New request for %s", label)
	for _, sub := range subscriptions {
		wp.sendNotification(ctx, sub, []byte(message))
	}
}

func (wp *WorkerPool) sendNotification(ctx context.Context, sub model.PushSubscription, payload []byte) {
	wpSub := &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256DH,
			Auth:   sub.Auth,
		},
	}

	resp, err := wp.sender.Send(payload, wpSub, wp.webpush)
	if err != nil {
		wp.log.Warn("push send failed", zap.String("endpoint", sub.Endpoint), zap.Error(err))
		return
	}
	defer resp.Body.Close()

	// Handle expired subscriptions
	if resp.StatusCode == http.StatusGone {
		wp.log.Info("subscription expired, deleting", zap.String("endpoint", sub.Endpoint))
		if err := wp.store.DeleteSubscription(ctx, sub.Endpoint); err != nil {
			wp.log.Error("deleting expired subscription failed", zap.String("endpoint", sub.Endpoint), zap.Error(err))
		}
	}
}
