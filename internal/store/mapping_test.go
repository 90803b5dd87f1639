package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"aasx-facility-backend/internal/model"
)

var t0 = time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)

func rawReadings(channelID int64, values ...float64) []any {
	rows := make([]any, len(values))
	for i, v := range values {
		rows[i] = &model.LegacySensorReading{ChannelID: channelID, RawValue: v, RecordedAt: t0.Add(time.Duration(i) * time.Minute)}
	}
	return rows
}

func readingsOf(t *testing.T, gormDB *gorm.DB, channelID int64) []float64 {
	t.Helper()
	var rows []model.SensorReading
	require.NoError(t, gormDB.Where("channel_id = ?", channelID).Order("recorded_at").Find(&rows).Error)
	values := make([]float64, len(rows))
	for i, r := range rows {
		values[i] = r.Value
	}
	return values
}

func TestSyncMapping(t *testing.T) {
	source := model.LegacyMeasurementMapping{
		ChannelID: 1, FactoryName: "Plant", GroupName: "Line", FacilityName: "Press", SensorName: "Temp",
		Unit: "C", ScaleExpression: "/10",
	}

	testCases := []struct {
		name     string
		existing []any
		src      model.LegacyMeasurementMapping
		expected Outcome
		verify   func(t *testing.T, gormDB *gorm.DB)
	}{
		{
			name:     "new channel copies all readings scaled",
			existing: rawReadings(1, 215, 220.5),
			src:      source,
			expected: OutcomeInserted,
			verify: func(t *testing.T, gormDB *gorm.DB) {
				assert.Equal(t, []float64{21.5, 22.05}, readingsOf(t, gormDB, 1))
			},
		},
		{
			name: "same target only copies readings past the watermark",
			existing: append([]any{
				&model.MeasurementMapping{ChannelID: 1, FactoryName: "Plant", GroupName: "Line", FacilityName: "Press", SensorName: "Temp", Unit: "C", ScaleExpression: "/10"},
				&model.SensorReading{ChannelID: 1, Value: 21.5, RecordedAt: t0},
			}, rawReadings(1, 215, 230)...),
			src:      source,
			expected: OutcomeUnchanged,
			verify: func(t *testing.T, gormDB *gorm.DB) {
				assert.Equal(t, []float64{21.5, 23}, readingsOf(t, gormDB, 1))
			},
		},
		{
			name: "changed unit is updated in place",
			existing: []any{
				&model.MeasurementMapping{ChannelID: 1, FactoryName: "Plant", GroupName: "Line", FacilityName: "Press", SensorName: "Temp", Unit: "F", ScaleExpression: ""},
			},
			src:      source,
			expected: OutcomeUpdated,
			verify: func(t *testing.T, gormDB *gorm.DB) {
				var m model.MeasurementMapping
				require.NoError(t, gormDB.First(&m, "channel_id = ?", 1).Error)
				assert.Equal(t, "C", m.Unit)
				assert.Equal(t, "/10", m.ScaleExpression)
			},
		},
		{
			name: "different target moves the old mapping and its history aside",
			existing: append([]any{
				&model.MeasurementMapping{ChannelID: 1, FactoryName: "Plant", GroupName: "Line", FacilityName: "Press", SensorName: "Vibration"},
				&model.SensorReading{ChannelID: 1, Value: 0.7, RecordedAt: t0},
				&model.LegacyMeasurementMapping{ChannelID: 3, SensorName: "other"},
			}, rawReadings(1, 1, 250)...),
			src:      source,
			expected: OutcomeRekeyed,
			verify: func(t *testing.T, gormDB *gorm.DB) {
				var moved model.MeasurementMapping
				require.NoError(t, gormDB.First(&moved, "channel_id = ?", 4).Error)
				assert.Equal(t, "Vibration", moved.SensorName)
				assert.Equal(t, []float64{0.7}, readingsOf(t, gormDB, 4))

				var current model.MeasurementMapping
				require.NoError(t, gormDB.First(&current, "channel_id = ?", 1).Error)
				assert.Equal(t, "Temp", current.SensorName)
				assert.Equal(t, []float64{25}, readingsOf(t, gormDB, 1))
			},
		},
		{
			name:     "malformed scale copies unscaled",
			existing: rawReadings(1, 12.346),
			src: model.LegacyMeasurementMapping{
				ChannelID: 1, FactoryName: "Plant", GroupName: "Line", FacilityName: "Press", SensorName: "Temp",
				ScaleExpression: "*abc",
			},
			expected: OutcomeInserted,
			verify: func(t *testing.T, gormDB *gorm.DB) {
				assert.Equal(t, []float64{12.35}, readingsOf(t, gormDB, 1))
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			s, gormDB := newTestStore(t)
			seed(t, gormDB, tc.existing...)

			outcome, err := s.SyncMapping(context.Background(), tc.src)
			require.NoError(t, err)
			assert.Equal(t, tc.expected, outcome)
			tc.verify(t, gormDB)
		})
	}
}

func TestSynchronizeAll_Mappings(t *testing.T) {
	ctx := context.Background()
	s, gormDB := newTestStore(t)
	seedLegacyHierarchy(t, gormDB)
	seed(t, gormDB, &model.LegacyMeasurementMapping{
		ChannelID: 9, FactoryName: "Plant", GroupName: "Line A", FacilityName: "Press", SensorName: "Temperature",
		Unit: "kPa", ScaleExpression: "*2",
	})
	seed(t, gormDB, rawReadings(9, 1.5, 2)...)

	report, err := s.SynchronizeAll(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Mappings.Inserted)
	assert.Equal(t, 2, report.ReadingsCopied)

	report, err = s.SynchronizeAll(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Mappings.Unchanged)
	assert.Zero(t, report.ReadingsCopied)
	assert.Equal(t, []float64{3, 4}, readingsOf(t, gormDB, 9))
}
