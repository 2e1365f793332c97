package api

import (
	"github.com/SherClockHolmes/webpush-go"
	"go.uber.org/zap"

	"aidfinder-backend/internal/analytics"
	"aidfinder-backend/internal/catalog"
	"aidfinder-backend/internal/reservation"
	"aidfinder-backend/internal/store"
)

// Handler holds shared dependencies for API handlers.
type Handler struct {
	store       store.Store
	catalog     *catalog.Catalog
	coordinator *reservation.Coordinator
	analytics   *analytics.Aggregator
	webpush     *webpush.Options
	log         *zap.Logger
}

// Deps bundles what the router needs to serve the API.
type Deps struct {
	Store       store.Store
	Catalog     *catalog.Catalog
	Coordinator *reservation.Coordinator
	Analytics   *analytics.Aggregator
	WebPush     *webpush.Options
	Log         *zap.Logger
}

// NewHandler creates a new API handler.
func NewHandler(d Deps) *Handler {
	log := d.Log
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{
		store:       d.Store,
		catalog:     d.Catalog,
		coordinator: d.Coordinator,
		analytics:   d.Analytics,
		webpush:     d.WebPush,
		log:         log,
	}
}
