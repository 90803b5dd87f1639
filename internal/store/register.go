package store

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"gorm.io/gorm"

	"aasx-facility-backend/internal/model"
)

func (s *gormStore) CreateFactory(ctx context.Context, companyID int64, name string) (int64, error) {
	return s.create(ctx, LevelFactory, companyID, name)
}

func (s *gormStore) CreateFacilityGroup(ctx context.Context, factoryID int64, name string) (int64, error) {
	return s.create(ctx, LevelFacilityGroup, factoryID, name)
}

func (s *gormStore) CreateFacility(ctx context.Context, groupID int64, name string) (int64, error) {
	return s.create(ctx, LevelFacility, groupID, name)
}

func (s *gormStore) CreateSensor(ctx context.Context, facilityID int64, name string) (int64, error) {
	return s.create(ctx, LevelSensor, facilityID, name)
}

// create registers a locally owned row. Factories hang off a company, which
// is not a table here, so only the lower levels check their parent.
func (s *gormStore) create(ctx context.Context, level Level, parentID int64, name string) (int64, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return 0, ErrInvalidName
	}

	id, err := inTx(ctx, s, func(tx *gorm.DB) (int64, error) {
		if level != LevelFactory {
			parent, err := findNode(tx, level-1, parentID)
			if err != nil {
				return 0, err
			}
			if parent == nil {
				return 0, fmt.Errorf("%w: %s %d", ErrParentNotFound, level-1, parentID)
			}
		}

		id, err := nextID(tx, level)
		if err != nil {
			return 0, err
		}
		n := node{ID: id, ParentID: parentID, Name: name, Protection: model.Local}
		if err := insertNode(tx, level, n, time.Now().UTC()); err != nil {
			return 0, err
		}
		return id, nil
	})
	if err != nil {
		return 0, fmt.Errorf("create %s: %w", level, err)
	}

	log.Printf("Created %s %d %q under %d", level, id, name, parentID)
	return id, nil
}
