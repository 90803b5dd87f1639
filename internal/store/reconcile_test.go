package store

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"aasx-facility-backend/internal/model"
)

func TestReconcile(t *testing.T) {
	ctx := context.Background()

	testCases := []struct {
		name     string
		existing []any
		level    Level
		row      SourceRow
		expected Outcome
		verify   func(t *testing.T, gormDB *gorm.DB)
	}{
		{
			name:     "absent row is inserted as protected",
			level:    LevelFactory,
			row:      SourceRow{ID: 3, ParentID: 42, Name: "Plant North"},
			expected: OutcomeInserted,
			verify: func(t *testing.T, gormDB *gorm.DB) {
				var f model.Factory
				require.NoError(t, gormDB.First(&f, 3).Error)
				assert.Equal(t, int64(42), f.CompanyID)
				assert.Equal(t, "Plant North", f.Name)
				assert.True(t, f.Protection.IsProtected())
			},
		},
		{
			name:     "same name is a no-op",
			existing: []any{&model.FacilityGroup{ID: 7, FactoryID: 1, Name: "Line 1", Protection: model.Local}},
			level:    LevelFacilityGroup,
			row:      SourceRow{ID: 7, ParentID: 2, Name: "Line 1"},
			expected: OutcomeUnchanged,
			verify: func(t *testing.T, gormDB *gorm.DB) {
				var g model.FacilityGroup
				require.NoError(t, gormDB.First(&g, 7).Error)
				assert.Equal(t, int64(1), g.FactoryID, "parent is not rewritten on a name match")
				assert.False(t, g.Protection.IsProtected(), "protection is not rewritten on a name match")
			},
		},
		{
			name: "name change re-keys the existing row and keeps its children",
			existing: []any{
				&model.FacilityGroup{ID: 10, FactoryID: 1, Name: "Line"},
				&model.Facility{ID: 1, GroupID: 10, Name: "A", Protection: model.Local},
				&model.Sensor{ID: 11, FacilityID: 1, Name: "S1"},
				&model.Sensor{ID: 12, FacilityID: 1, Name: "S2"},
			},
			level:    LevelFacility,
			row:      SourceRow{ID: 1, ParentID: 10, Name: "B"},
			expected: OutcomeRekeyed,
			verify: func(t *testing.T, gormDB *gorm.DB) {
				var facilities []model.Facility
				require.NoError(t, gormDB.Order("id").Find(&facilities).Error)
				require.Len(t, facilities, 2)

				assert.Equal(t, int64(1), facilities[0].ID)
				assert.Equal(t, "B", facilities[0].Name)
				assert.True(t, facilities[0].Protection.IsProtected())

				assert.Equal(t, int64(2), facilities[1].ID)
				assert.Equal(t, "A", facilities[1].Name)
				assert.False(t, facilities[1].Protection.IsProtected(), "re-keyed row keeps its protection")

				var sensors []model.Sensor
				require.NoError(t, gormDB.Order("id").Find(&sensors).Error)
				require.Len(t, sensors, 2)
				for _, s := range sensors {
					assert.Equal(t, int64(2), s.FacilityID)
				}
			},
		},
		{
			name: "re-keyed factory carries its groups and bases",
			existing: []any{
				&model.Factory{ID: 5, CompanyID: 1, Name: "Old", Protection: model.Protected},
				&model.FacilityGroup{ID: 20, FactoryID: 5, Name: "G"},
				&model.Base{ID: 1, FactoryID: 5, Name: "export"},
				&model.LegacyFactory{ID: 8, CompanyID: 1, Name: "Other"},
			},
			level:    LevelFactory,
			row:      SourceRow{ID: 5, ParentID: 1, Name: "New"},
			expected: OutcomeRekeyed,
			verify: func(t *testing.T, gormDB *gorm.DB) {
				var moved model.Factory
				require.NoError(t, gormDB.First(&moved, 9).Error, "new key skips past the legacy range")
				assert.Equal(t, "Old", moved.Name)

				var g model.FacilityGroup
				require.NoError(t, gormDB.First(&g, 20).Error)
				assert.Equal(t, int64(9), g.FactoryID)

				var b model.Base
				require.NoError(t, gormDB.First(&b, 1).Error)
				assert.Equal(t, int64(9), b.FactoryID)
			},
		},
		{
			name: "re-keyed sensor carries its base membership",
			existing: []any{
				&model.Facility{ID: 1, GroupID: 1, Name: "Press"},
				&model.Sensor{ID: 3, FacilityID: 1, Name: "temp"},
				&model.BaseSensor{BaseID: 1, SensorID: 3},
			},
			level:    LevelSensor,
			row:      SourceRow{ID: 3, ParentID: 1, Name: "pressure"},
			expected: OutcomeRekeyed,
			verify: func(t *testing.T, gormDB *gorm.DB) {
				var members []model.BaseSensor
				require.NoError(t, gormDB.Find(&members).Error)
				require.Len(t, members, 1)
				assert.Equal(t, int64(4), members[0].SensorID)
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			s, gormDB := newTestStore(t)
			seed(t, gormDB, tc.existing...)

			outcome, err := s.Reconcile(ctx, tc.level, tc.row)
			require.NoError(t, err)
			assert.Equal(t, tc.expected, outcome)
			tc.verify(t, gormDB)
		})
	}
}

func TestReconcile_UnknownLevel(t *testing.T) {
	s, _ := newTestStore(t)
	_, err := s.Reconcile(context.Background(), Level(-1), SourceRow{ID: 1, Name: "x"})
	assert.ErrorIs(t, err, ErrUnknownLevel)
}

func TestReconcile_MissingParent(t *testing.T) {
	ctx := context.Background()

	testCases := []struct {
		name     string
		existing []any
		level    Level
		row      SourceRow
		verify   func(t *testing.T, gormDB *gorm.DB)
	}{
		{
			name:  "group under a missing factory",
			level: LevelFacilityGroup,
			row:   SourceRow{ID: 4, ParentID: 999, Name: "Line X"},
			verify: func(t *testing.T, gormDB *gorm.DB) {
				var n int64
				require.NoError(t, gormDB.Model(&model.FacilityGroup{}).Count(&n).Error)
				assert.Zero(t, n)
			},
		},
		{
			name:  "facility under a missing group",
			level: LevelFacility,
			row:   SourceRow{ID: 5, ParentID: 999, Name: "Orphan"},
			verify: func(t *testing.T, gormDB *gorm.DB) {
				var n int64
				require.NoError(t, gormDB.Model(&model.Facility{}).Count(&n).Error)
				assert.Zero(t, n)
			},
		},
		{
			name:  "sensor under a missing facility",
			level: LevelSensor,
			row:   SourceRow{ID: 6, ParentID: 999, Name: "temp"},
			verify: func(t *testing.T, gormDB *gorm.DB) {
				var n int64
				require.NoError(t, gormDB.Model(&model.Sensor{}).Count(&n).Error)
				assert.Zero(t, n)
			},
		},
		{
			name: "rename under a missing parent leaves the existing row alone",
			existing: []any{
				&model.Facility{ID: 1, GroupID: 10, Name: "A", Protection: model.Local},
				&model.Sensor{ID: 11, FacilityID: 1, Name: "S1"},
			},
			level: LevelFacility,
			row:   SourceRow{ID: 1, ParentID: 999, Name: "B"},
			verify: func(t *testing.T, gormDB *gorm.DB) {
				var facilities []model.Facility
				require.NoError(t, gormDB.Find(&facilities).Error)
				require.Len(t, facilities, 1)
				assert.Equal(t, "A", facilities[0].Name)

				var sensor model.Sensor
				require.NoError(t, gormDB.First(&sensor, 11).Error)
				assert.Equal(t, int64(1), sensor.FacilityID)
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			s, gormDB := newTestStore(t)
			seed(t, gormDB, tc.existing...)

			outcome, err := s.Reconcile(ctx, tc.level, tc.row)
			assert.ErrorIs(t, err, ErrParentNotFound)
			assert.Equal(t, OutcomeUnchanged, outcome)
			tc.verify(t, gormDB)
		})
	}
}

func seedLegacyHierarchy(t *testing.T, gormDB *gorm.DB) {
	seed(t, gormDB,
		&model.LegacyFactory{ID: 1, CompanyID: 100, Name: "Plant"},
		&model.LegacyFacilityGroup{ID: 10, FactoryID: 1, Name: "Line A"},
		&model.LegacyFacility{ID: 50, GroupID: 10, Name: "Press"},
		&model.LegacySensor{ID: 101, FacilityID: 50, Name: "Temperature"},
		&model.LegacySensor{ID: 102, FacilityID: 50, Name: "Vibration"},
	)
}

func TestSynchronizeAll_Idempotent(t *testing.T) {
	ctx := context.Background()
	s, gormDB := newTestStore(t)
	seedLegacyHierarchy(t, gormDB)

	var checkpoints []int
	var labels []string
	progress := func(percent int, label string) {
		checkpoints = append(checkpoints, percent)
		labels = append(labels, label)
	}

	first, err := s.SynchronizeAll(ctx, progress)
	require.NoError(t, err)
	assert.NotEmpty(t, first.RunID)
	assert.Equal(t, []int{20, 40, 60, 80, 100}, checkpoints)
	assert.Equal(t, []string{"factories", "facility groups", "facilities", "sensors", "complete"}, labels)
	assert.Equal(t, 1, first.Levels["factory"].Inserted)
	assert.Equal(t, 2, first.Levels["sensor"].Inserted)

	second, err := s.SynchronizeAll(ctx, nil)
	require.NoError(t, err)
	for _, level := range Levels {
		counts := second.Levels[level.String()]
		assert.Zero(t, counts.Inserted, level.String())
		assert.Zero(t, counts.Rekeyed, level.String())
	}
	assert.NotEqual(t, first.RunID, second.RunID)

	var sensorCount int64
	require.NoError(t, gormDB.Model(&model.Sensor{}).Count(&sensorCount).Error)
	assert.Equal(t, int64(2), sensorCount)
}

func TestSynchronizeAll_RenamedSourceRow(t *testing.T) {
	ctx := context.Background()
	s, gormDB := newTestStore(t)
	seedLegacyHierarchy(t, gormDB)

	_, err := s.SynchronizeAll(ctx, nil)
	require.NoError(t, err)

	// The source reuses facility key 50 for a different machine.
	require.NoError(t, gormDB.Model(&model.LegacyFacility{}).Where("id = ?", 50).Update("name", "Lathe").Error)

	report, err := s.SynchronizeAll(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Levels["facility"].Rekeyed)

	var press model.Facility
	require.NoError(t, gormDB.Where("name = ?", "Press").First(&press).Error)
	assert.Equal(t, int64(51), press.ID)

	// Sensors were moved with the old facility before the sensor level ran,
	// so re-reconciling them by key leaves them under the moved facility.
	var sensors []model.Sensor
	require.NoError(t, gormDB.Order("id").Find(&sensors).Error)
	require.Len(t, sensors, 2)
	for _, sn := range sensors {
		assert.Equal(t, int64(51), sn.FacilityID)
	}
}

func TestSynchronizeAll_SkipsRowsWithoutParent(t *testing.T) {
	ctx := context.Background()
	s, gormDB := newTestStore(t)
	seedLegacyHierarchy(t, gormDB)
	seed(t, gormDB,
		&model.LegacyFacility{ID: 60, GroupID: 999, Name: "Orphan"},
		&model.LegacySensor{ID: 103, FacilityID: 60, Name: "Pressure"},
	)

	report, err := s.SynchronizeAll(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, LevelCounts{Inserted: 1, Skipped: 1}, report.Levels["facility"])
	assert.Equal(t, LevelCounts{Inserted: 2, Skipped: 1}, report.Levels["sensor"])

	var facilityIDs []int64
	require.NoError(t, gormDB.Model(&model.Facility{}).Order("id").Pluck("id", &facilityIDs).Error)
	assert.Equal(t, []int64{50}, facilityIDs)

	var sensorIDs []int64
	require.NoError(t, gormDB.Model(&model.Sensor{}).Order("id").Pluck("id", &sensorIDs).Error)
	assert.Equal(t, []int64{101, 102}, sensorIDs)
}

// rekeyCount reads facility_rekeys_total for one level from the default registry.
func rekeyCount(t *testing.T, level string) float64 {
	t.Helper()
	families, err := prometheus.DefaultGatherer.Gather()
	require.NoError(t, err)
	for _, f := range families {
		if f.GetName() != "facility_rekeys_total" {
			continue
		}
		for _, m := range f.GetMetric() {
			for _, l := range m.GetLabel() {
				if l.GetName() == "level" && l.GetValue() == level {
					return m.GetCounter().GetValue()
				}
			}
		}
	}
	return 0
}

func TestSynchronizeAll_RolledBackRunRecordsNoRekeys(t *testing.T) {
	ctx := context.Background()
	s, gormDB := newTestStore(t)
	seedLegacyHierarchy(t, gormDB)

	_, err := s.SynchronizeAll(ctx, nil)
	require.NoError(t, err)

	require.NoError(t, gormDB.Model(&model.LegacyFacility{}).Where("id = ?", 50).Update("name", "Lathe").Error)
	// Fails the run after the facility level has been re-keyed.
	require.NoError(t, gormDB.Migrator().DropTable(&model.LegacyMeasurementMapping{}))

	before := rekeyCount(t, "facility")
	_, err = s.SynchronizeAll(ctx, nil)
	require.Error(t, err)
	assert.Equal(t, before, rekeyCount(t, "facility"))

	var facilities []model.Facility
	require.NoError(t, gormDB.Find(&facilities).Error)
	require.Len(t, facilities, 1)
	assert.Equal(t, "Press", facilities[0].Name)

	require.NoError(t, gormDB.Migrator().CreateTable(&model.LegacyMeasurementMapping{}))
	_, err = s.SynchronizeAll(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, before+1, rekeyCount(t, "facility"))
}
