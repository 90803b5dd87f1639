package store

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"aasx-facility-backend/internal/metrics"
	"aasx-facility-backend/internal/model"
)

// Reconcile merges one source row into the mirror table of its level in its
// own transaction. A row below Factory whose parent is not mirrored yet is
// rejected with ErrParentNotFound.
func (s *gormStore) Reconcile(ctx context.Context, level Level, row SourceRow) (Outcome, error) {
	if !level.valid() {
		return OutcomeUnchanged, fmt.Errorf("%w: %d", ErrUnknownLevel, int(level))
	}
	var effects afterCommit
	outcome, err := inTx(ctx, s, func(tx *gorm.DB) (Outcome, error) {
		return reconcileRow(tx, level, row, time.Now().UTC(), &effects)
	})
	if err != nil {
		return OutcomeUnchanged, err
	}
	effects.run()
	return outcome, nil
}

// reconcileRow applies the collision policy for one source row:
//   - absent: insert as protected, parent carried over verbatim
//   - same name: nothing to do
//   - different name: the key now denotes another object, so the existing
//     row and every reference to it move to a fresh key and the source row
//     takes the original key.
//
// Nothing is written when the parent of a non-factory row is missing.
func reconcileRow(tx *gorm.DB, level Level, row SourceRow, now time.Time, effects *afterCommit) (Outcome, error) {
	existing, err := findNode(tx, level, row.ID)
	if err != nil {
		return OutcomeUnchanged, err
	}
	if existing != nil && existing.Name == row.Name {
		return OutcomeUnchanged, nil
	}

	if level != LevelFactory {
		parent, err := findNode(tx, level-1, row.ParentID)
		if err != nil {
			return OutcomeUnchanged, err
		}
		if parent == nil {
			return OutcomeUnchanged, fmt.Errorf("%w: %s %d references %s %d", ErrParentNotFound, level, row.ID, level-1, row.ParentID)
		}
	}

	incoming := node{ID: row.ID, ParentID: row.ParentID, Name: row.Name, Protection: model.Protected}

	if existing == nil {
		if err := insertNode(tx, level, incoming, now); err != nil {
			return OutcomeUnchanged, err
		}
		return OutcomeInserted, nil
	}

	newID, err := nextID(tx, level)
	if err != nil {
		return OutcomeUnchanged, err
	}
	if err := rekey(tx, level, row.ID, newID, now); err != nil {
		return OutcomeUnchanged, err
	}
	if err := insertNode(tx, level, incoming, now); err != nil {
		return OutcomeUnchanged, err
	}

	previous := existing.Name
	effects.add(func() {
		log.Printf("Reconcile: %s %d is now %q; existing %q moved to key %d", level, row.ID, row.Name, previous, newID)
		metrics.Rekeyed(level.String())
	})
	return OutcomeRekeyed, nil
}

// rekey moves a mirror row to newID and rewrites every column that
// referenced the old key. Protection is left as it was.
func rekey(tx *gorm.DB, level Level, oldID, newID int64, now time.Time) error {
	spec, err := specFor(level)
	if err != nil {
		return err
	}

	res := tx.Exec(fmt.Sprintf("UPDATE %s SET id = ?, updated_at = ? WHERE id = ?", spec.table), newID, now, oldID)
	if res.Error != nil {
		return fmt.Errorf("failed to re-key %s %d to %d: %w", level, oldID, newID, res.Error)
	}
	if res.RowsAffected != 1 {
		return fmt.Errorf("failed to re-key %s %d: %d rows affected", level, oldID, res.RowsAffected)
	}

	for _, ref := range spec.refs {
		q := fmt.Sprintf("UPDATE %s SET %s = ? WHERE %s = ?", ref.table, ref.column, ref.column)
		if err := tx.Exec(q, newID, oldID).Error; err != nil {
			return fmt.Errorf("failed to migrate %s.%s from %d to %d: %w", ref.table, ref.column, oldID, newID, err)
		}
	}
	return nil
}

func loadSourceRows(tx *gorm.DB, level Level) ([]SourceRow, error) {
	spec, err := specFor(level)
	if err != nil {
		return nil, err
	}
	var rows []SourceRow
	q := fmt.Sprintf("SELECT id, %s AS parent_id, name FROM %s ORDER BY id", spec.parentColumn, spec.legacyTable)
	if err := tx.Raw(q).Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", spec.legacyTable, err)
	}
	return rows, nil
}

// SynchronizeAll reconciles every legacy row, parents before children, then
// every measurement mapping, all in one transaction.
func (s *gormStore) SynchronizeAll(ctx context.Context, progress ProgressFunc) (*SyncReport, error) {
	report := &SyncReport{
		RunID:     uuid.NewString(),
		StartedAt: time.Now().UTC(),
		Levels:    make(map[string]LevelCounts, len(Levels)),
	}
	log.Printf("Sync %s: starting full hierarchy synchronization", report.RunID)

	var effects afterCommit
	_, err := inTx(ctx, s, func(tx *gorm.DB) (struct{}, error) {
		now := time.Now().UTC()
		for i, level := range Levels {
			rows, err := loadSourceRows(tx, level)
			if err != nil {
				return struct{}{}, err
			}
			var counts LevelCounts
			for _, row := range rows {
				outcome, err := reconcileRow(tx, level, row, now, &effects)
				if errors.Is(err, ErrParentNotFound) {
					log.Printf("Warning: Sync %s: skipping %s %d %q: parent %s %d is not mirrored",
						report.RunID, level, row.ID, row.Name, level-1, row.ParentID)
					outcome, err = OutcomeSkipped, nil
				}
				if err != nil {
					return struct{}{}, fmt.Errorf("reconcile %s %d: %w", level, row.ID, err)
				}
				counts.add(outcome)
			}
			report.Levels[level.String()] = counts
			log.Printf("Sync %s: %s inserted=%d unchanged=%d rekeyed=%d",
				report.RunID, level, counts.Inserted, counts.Unchanged, counts.Rekeyed)
			progress.report((i+1)*20, level.Noun(2))
		}

		var sources []model.LegacyMeasurementMapping
		if err := tx.Order("channel_id").Find(&sources).Error; err != nil {
			return struct{}{}, fmt.Errorf("failed to read legacy measurement mappings: %w", err)
		}
		for _, src := range sources {
			outcome, copied, err := syncMappingRow(tx, src, now, &effects)
			if err != nil {
				return struct{}{}, fmt.Errorf("sync channel %d: %w", src.ChannelID, err)
			}
			report.Mappings.add(outcome)
			report.ReadingsCopied += copied
		}
		return struct{}{}, nil
	})

	report.FinishedAt = time.Now().UTC()
	metrics.ObserveSync(err, report.FinishedAt.Sub(report.StartedAt))
	if err != nil {
		log.Printf("Sync %s: failed, all changes rolled back: %v", report.RunID, err)
		return nil, fmt.Errorf("synchronize hierarchy: %w", err)
	}
	effects.run()

	log.Printf("Sync %s: finished in %s, %d readings copied", report.RunID,
		report.FinishedAt.Sub(report.StartedAt).Round(time.Millisecond), report.ReadingsCopied)
	progress.report(100, "complete")
	return report, nil
}
