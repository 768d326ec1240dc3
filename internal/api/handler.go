package api

import (
	"github.com/SherClockHolmes/webpush-go"

	"battery-rental-backend/internal/lending"
	"battery-rental-backend/internal/livesync"
	"battery-rental-backend/internal/store"
)

// Handler holds shared dependencies for API handlers.
type Handler struct {
	store   store.Store
	engine  *livesync.Engine
	lending *lending.Service
	webpush *webpush.Options
}

// NewHandler creates a new API handler.
func NewHandler(s store.Store, engine *livesync.Engine, lendSvc *lending.Service, webpushOptions *webpush.Options) *Handler {
	return &Handler{
		store:   s,
		engine:  engine,
		lending: lendSvc,
		webpush: webpushOptions,
	}
}
