package store

import (
	"context"
	"sync"

	"gorm.io/gorm"

	"aasx-facility-backend/internal/model"
)

// Store defines the interface for all hierarchy operations.
type Store interface {
	Reconcile(ctx context.Context, level Level, row SourceRow) (Outcome, error)
	SyncMapping(ctx context.Context, row model.LegacyMeasurementMapping) (Outcome, error)
	SynchronizeAll(ctx context.Context, progress ProgressFunc) (*SyncReport, error)

	DeleteSensors(ctx context.Context, ids []int64) (*DeleteResult, error)
	DeleteFacilities(ctx context.Context, ids []int64) (*DeleteResult, error)
	DeleteFacilityGroups(ctx context.Context, ids []int64) (*DeleteResult, error)
	DeleteFactories(ctx context.Context, ids []int64, companyID int64) (*DeleteResult, error)

	CreateFactory(ctx context.Context, companyID int64, name string) (int64, error)
	CreateFacilityGroup(ctx context.Context, factoryID int64, name string) (int64, error)
	CreateFacility(ctx context.Context, groupID int64, name string) (int64, error)
	CreateSensor(ctx context.Context, facilityID int64, name string) (int64, error)

	ListFactories(ctx context.Context, companyID int64) ([]model.Factory, error)
	ListFacilityGroups(ctx context.Context, factoryID int64) ([]model.FacilityGroup, error)
	ListFacilities(ctx context.Context, groupID int64) ([]model.Facility, error)
	ListSensors(ctx context.Context, facilityID int64) ([]model.Sensor, error)
	Tree(ctx context.Context, companyID int64) ([]FactoryNode, error)
	ListEdgeGateways(ctx context.Context) ([]model.EdgeGateway, error)
}

// gormStore implements the Store interface using GORM.
type gormStore struct {
	db *gorm.DB
	// mu serializes write transactions: key allocation is MAX+1 and is only
	// safe while a single writer holds the transaction open.
	mu sync.Mutex
}

// NewGormStore creates a new GORM-backed store.
func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

// inTx runs fn in one transaction: commit when fn returns nil, roll back
// otherwise. The caller's cancellation is detached so an operation that has
// started always ends in commit or rollback, never half-way.
func inTx[T any](ctx context.Context, s *gormStore, fn func(tx *gorm.DB) (T, error)) (T, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out T
	err := s.db.WithContext(context.WithoutCancel(ctx)).Transaction(func(tx *gorm.DB) error {
		v, err := fn(tx)
		if err != nil {
			return err
		}
		out = v
		return nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return out, nil
}

// afterCommit holds side effects (metrics, log lines) recorded inside a
// transaction. They run only once the transaction has committed.
type afterCommit []func()

func (a *afterCommit) add(fn func()) {
	*a = append(*a, fn)
}

func (a afterCommit) run() {
	for _, fn := range a {
		fn()
	}
}
