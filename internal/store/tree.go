package store

import (
	"context"
	"fmt"

	"aasx-facility-backend/internal/model"
)

func (s *gormStore) ListFactories(ctx context.Context, companyID int64) ([]model.Factory, error) {
	var factories []model.Factory
	if err := s.db.WithContext(ctx).Where("company_id = ?", companyID).Order("id").Find(&factories).Error; err != nil {
		return nil, fmt.Errorf("failed to list factories of company %d: %w", companyID, err)
	}
	return factories, nil
}

func (s *gormStore) ListFacilityGroups(ctx context.Context, factoryID int64) ([]model.FacilityGroup, error) {
	var groups []model.FacilityGroup
	if err := s.db.WithContext(ctx).Where("factory_id = ?", factoryID).Order("id").Find(&groups).Error; err != nil {
		return nil, fmt.Errorf("failed to list groups of factory %d: %w", factoryID, err)
	}
	return groups, nil
}

func (s *gormStore) ListFacilities(ctx context.Context, groupID int64) ([]model.Facility, error) {
	var facilities []model.Facility
	if err := s.db.WithContext(ctx).Where("group_id = ?", groupID).Order("id").Find(&facilities).Error; err != nil {
		return nil, fmt.Errorf("failed to list facilities of group %d: %w", groupID, err)
	}
	return facilities, nil
}

func (s *gormStore) ListSensors(ctx context.Context, facilityID int64) ([]model.Sensor, error) {
	var sensors []model.Sensor
	if err := s.db.WithContext(ctx).Where("facility_id = ?", facilityID).Order("id").Find(&sensors).Error; err != nil {
		return nil, fmt.Errorf("failed to list sensors of facility %d: %w", facilityID, err)
	}
	return sensors, nil
}

// Tree returns the full hierarchy of a company. It reads one level at a
// time and stitches the levels together in memory.
func (s *gormStore) Tree(ctx context.Context, companyID int64) ([]FactoryNode, error) {
	db := s.db.WithContext(ctx)

	var factories []model.Factory
	if err := db.Where("company_id = ?", companyID).Order("id").Find(&factories).Error; err != nil {
		return nil, fmt.Errorf("failed to read factories: %w", err)
	}
	if len(factories) == 0 {
		return []FactoryNode{}, nil
	}
	factoryIDs := make([]int64, len(factories))
	for i, f := range factories {
		factoryIDs[i] = f.ID
	}

	var groups []model.FacilityGroup
	if err := db.Where("factory_id IN ?", factoryIDs).Order("id").Find(&groups).Error; err != nil {
		return nil, fmt.Errorf("failed to read facility groups: %w", err)
	}
	groupIDs := make([]int64, len(groups))
	for i, g := range groups {
		groupIDs[i] = g.ID
	}

	var facilities []model.Facility
	if len(groupIDs) > 0 {
		if err := db.Where("group_id IN ?", groupIDs).Order("id").Find(&facilities).Error; err != nil {
			return nil, fmt.Errorf("failed to read facilities: %w", err)
		}
	}
	facilityIDs := make([]int64, len(facilities))
	for i, f := range facilities {
		facilityIDs[i] = f.ID
	}

	var sensors []model.Sensor
	if len(facilityIDs) > 0 {
		if err := db.Where("facility_id IN ?", facilityIDs).Order("id").Find(&sensors).Error; err != nil {
			return nil, fmt.Errorf("failed to read sensors: %w", err)
		}
	}

	sensorsOf := make(map[int64][]SensorNode)
	for _, sn := range sensors {
		sensorsOf[sn.FacilityID] = append(sensorsOf[sn.FacilityID], SensorNode{ID: sn.ID, Name: sn.Name, Protection: sn.Protection})
	}
	facilitiesOf := make(map[int64][]FacilityNode)
	for _, f := range facilities {
		facilitiesOf[f.GroupID] = append(facilitiesOf[f.GroupID], FacilityNode{
			ID: f.ID, Name: f.Name, Protection: f.Protection, Sensors: orEmpty(sensorsOf[f.ID]),
		})
	}
	groupsOf := make(map[int64][]FacilityGroupNode)
	for _, g := range groups {
		groupsOf[g.FactoryID] = append(groupsOf[g.FactoryID], FacilityGroupNode{
			ID: g.ID, Name: g.Name, Protection: g.Protection, Facilities: orEmpty(facilitiesOf[g.ID]),
		})
	}

	tree := make([]FactoryNode, 0, len(factories))
	for _, f := range factories {
		tree = append(tree, FactoryNode{
			ID: f.ID, CompanyID: f.CompanyID, Name: f.Name, Protection: f.Protection, Groups: orEmpty(groupsOf[f.ID]),
		})
	}
	return tree, nil
}

func orEmpty[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

func (s *gormStore) ListEdgeGateways(ctx context.Context) ([]model.EdgeGateway, error) {
	var gateways []model.EdgeGateway
	if err := s.db.WithContext(ctx).Order("id").Find(&gateways).Error; err != nil {
		return nil, fmt.Errorf("failed to list edge gateways: %w", err)
	}
	return gateways, nil
}
