package store

import (
	"context"
	"fmt"
	"log"
	"time"

	"gorm.io/gorm"

	"aasx-facility-backend/internal/metrics"
	"aasx-facility-backend/internal/model"
	"aasx-facility-backend/internal/parse"
)

const readingBatchSize = 500

// SyncMapping merges one legacy measurement mapping and copies its readings
// in its own transaction.
func (s *gormStore) SyncMapping(ctx context.Context, row model.LegacyMeasurementMapping) (Outcome, error) {
	var effects afterCommit
	outcome, err := inTx(ctx, s, func(tx *gorm.DB) (Outcome, error) {
		outcome, _, err := syncMappingRow(tx, row, time.Now().UTC(), &effects)
		return outcome, err
	})
	if err != nil {
		return OutcomeUnchanged, err
	}
	effects.run()
	return outcome, nil
}

// syncMappingRow applies the reconciler's collision policy to a channel.
// A channel whose sensor path changed is moved aside together with the
// readings already converted under it; the source mapping then takes the
// original channel id. In every case raw readings newer than the newest
// converted one are copied under the resolved channel.
func syncMappingRow(tx *gorm.DB, src model.LegacyMeasurementMapping, now time.Time, effects *afterCommit) (Outcome, int, error) {
	scale, err := parse.ParseScale(src.ScaleExpression)
	if err != nil {
		log.Printf("Warning: channel %d: %v; copying readings unscaled", src.ChannelID, err)
	}

	incoming := model.MeasurementMapping{
		ChannelID:       src.ChannelID,
		FactoryName:     src.FactoryName,
		GroupName:       src.GroupName,
		FacilityName:    src.FacilityName,
		SensorName:      src.SensorName,
		Unit:            src.Unit,
		ScaleExpression: src.ScaleExpression,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	var found []model.MeasurementMapping
	if err := tx.Where("channel_id = ?", src.ChannelID).Limit(1).Find(&found).Error; err != nil {
		return OutcomeUnchanged, 0, fmt.Errorf("failed to read mapping %d: %w", src.ChannelID, err)
	}

	if len(found) == 0 {
		if err := tx.Create(&incoming).Error; err != nil {
			return OutcomeUnchanged, 0, fmt.Errorf("failed to insert mapping %d: %w", src.ChannelID, err)
		}
		copied, err := copyReadings(tx, src.ChannelID, time.Time{}, scale)
		return OutcomeInserted, copied, err
	}

	existing := found[0]
	watermark, err := latestReading(tx, src.ChannelID)
	if err != nil {
		return OutcomeUnchanged, 0, err
	}

	if existing.SameTarget(incoming) {
		outcome := OutcomeUnchanged
		if existing.Unit != incoming.Unit || existing.ScaleExpression != incoming.ScaleExpression {
			if err := tx.Model(&model.MeasurementMapping{}).
				Where("channel_id = ?", src.ChannelID).
				Updates(map[string]any{"unit": incoming.Unit, "scale_expression": incoming.ScaleExpression}).Error; err != nil {
				return OutcomeUnchanged, 0, fmt.Errorf("failed to update mapping %d: %w", src.ChannelID, err)
			}
			outcome = OutcomeUpdated
		}
		copied, err := copyReadings(tx, src.ChannelID, watermark, scale)
		return outcome, copied, err
	}

	newID, err := nextKey(tx, "channel_id", "measurement_mappings", "legacy_measurement_mappings")
	if err != nil {
		return OutcomeUnchanged, 0, err
	}
	if err := tx.Model(&model.MeasurementMapping{}).
		Where("channel_id = ?", src.ChannelID).
		Update("channel_id", newID).Error; err != nil {
		return OutcomeUnchanged, 0, fmt.Errorf("failed to re-key mapping %d to %d: %w", src.ChannelID, newID, err)
	}
	if err := tx.Model(&model.SensorReading{}).
		Where("channel_id = ?", src.ChannelID).
		Update("channel_id", newID).Error; err != nil {
		return OutcomeUnchanged, 0, fmt.Errorf("failed to move readings of channel %d to %d: %w", src.ChannelID, newID, err)
	}
	if err := tx.Create(&incoming).Error; err != nil {
		return OutcomeUnchanged, 0, fmt.Errorf("failed to insert mapping %d: %w", src.ChannelID, err)
	}

	effects.add(func() {
		log.Printf("Reconcile: channel %d now maps %s/%s/%s/%s; previous mapping moved to channel %d",
			src.ChannelID, src.FactoryName, src.GroupName, src.FacilityName, src.SensorName, newID)
		metrics.Rekeyed("channel")
	})

	copied, err := copyReadings(tx, src.ChannelID, watermark, scale)
	return OutcomeRekeyed, copied, err
}

// latestReading returns the timestamp of the newest converted reading of a
// channel, or the zero time when there is none.
func latestReading(tx *gorm.DB, channelID int64) (time.Time, error) {
	var last []model.SensorReading
	if err := tx.Where("channel_id = ?", channelID).Order("recorded_at DESC").Limit(1).Find(&last).Error; err != nil {
		return time.Time{}, fmt.Errorf("failed to read latest reading of channel %d: %w", channelID, err)
	}
	if len(last) == 0 {
		return time.Time{}, nil
	}
	return last[0].RecordedAt, nil
}

// copyReadings converts raw readings recorded after since into channelID.
func copyReadings(tx *gorm.DB, channelID int64, since time.Time, scale parse.Scale) (int, error) {
	var raw []model.LegacySensorReading
	q := tx.Where("channel_id = ?", channelID)
	if !since.IsZero() {
		q = q.Where("recorded_at > ?", since)
	}
	if err := q.Order("recorded_at").Find(&raw).Error; err != nil {
		return 0, fmt.Errorf("failed to read raw readings of channel %d: %w", channelID, err)
	}
	if len(raw) == 0 {
		return 0, nil
	}

	readings := make([]model.SensorReading, 0, len(raw))
	for _, r := range raw {
		readings = append(readings, model.SensorReading{
			ChannelID:  channelID,
			Value:      scale.ApplyRounded(r.RawValue),
			RecordedAt: r.RecordedAt,
		})
	}
	if err := tx.CreateInBatches(&readings, readingBatchSize).Error; err != nil {
		return 0, fmt.Errorf("failed to copy readings of channel %d: %w", channelID, err)
	}
	return len(readings), nil
}
