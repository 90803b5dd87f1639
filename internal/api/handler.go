package api

import (
	"context"

	"aasx-facility-backend/internal/gateway"
	"aasx-facility-backend/internal/store"
)

// Synchronizer runs full hierarchy synchronizations.
type Synchronizer interface {
	RunOnce(ctx context.Context) (*store.SyncReport, error)
	Running() bool
	LastReport() *store.SyncReport
}

// GatewayBoard reports edge gateway connectivity.
type GatewayBoard interface {
	CheckAll(ctx context.Context) error
	Statuses(ctx context.Context) ([]gateway.GatewayStatus, error)
}

// FileConverter produces and removes AAS/AASX files.
type FileConverter interface {
	CreateAAS(ctx context.Context, path, linkName string) error
	CreateAASX(ctx context.Context, path string) error
	DeleteFiles(ctx context.Context, paths []string) error
}

// Handler holds shared dependencies for API handlers.
type Handler struct {
	store     store.Store
	syncer    Synchronizer
	gateways  GatewayBoard
	converter FileConverter
}

// NewHandler creates a new API handler.
func NewHandler(s store.Store, syncer Synchronizer, gateways GatewayBoard, converter FileConverter) *Handler {
	return &Handler{
		store:     s,
		syncer:    syncer,
		gateways:  gateways,
		converter: converter,
	}
}
