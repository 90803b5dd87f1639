package store

import (
	"context"
	"fmt"
	"log"
	"strings"

	"gorm.io/gorm"

	"aasx-facility-backend/internal/metrics"
)

func (s *gormStore) DeleteSensors(ctx context.Context, ids []int64) (*DeleteResult, error) {
	return s.deleteCascading(ctx, LevelSensor, ids, nil)
}

func (s *gormStore) DeleteFacilities(ctx context.Context, ids []int64) (*DeleteResult, error) {
	return s.deleteCascading(ctx, LevelFacility, ids, nil)
}

func (s *gormStore) DeleteFacilityGroups(ctx context.Context, ids []int64) (*DeleteResult, error) {
	return s.deleteCascading(ctx, LevelFacilityGroup, ids, nil)
}

// DeleteFactories deletes factories owned by companyID; ids of other
// companies are ignored.
func (s *gormStore) DeleteFactories(ctx context.Context, ids []int64, companyID int64) (*DeleteResult, error) {
	return s.deleteCascading(ctx, LevelFactory, ids, &companyID)
}

// deleteCascading validates, deletes and walks upward in one transaction.
// Any protected target or protected descendant rejects the whole batch
// before anything is written.
func (s *gormStore) deleteCascading(ctx context.Context, level Level, ids []int64, companyID *int64) (*DeleteResult, error) {
	ids = uniqueIDs(ids)

	var effects afterCommit
	result, err := inTx(ctx, s, func(tx *gorm.DB) (*DeleteResult, error) {
		result := &DeleteResult{Level: level.String(), level: level}
		if len(ids) == 0 {
			result.Success = true
			return result, nil
		}

		targets, err := nodesByID(tx, level, ids)
		if err != nil {
			return nil, err
		}
		if companyID != nil {
			targets = ownedBy(targets, *companyID)
		}
		if len(targets) == 0 {
			result.Success = true
			return result, nil
		}

		descendants, err := collectDescendants(tx, level, nodeIDs(targets))
		if err != nil {
			return nil, err
		}

		for _, t := range targets {
			if t.Protection.IsProtected() {
				result.ProtectedCount++
				result.ProtectedNames = append(result.ProtectedNames, t.Name)
			}
		}
		for child := level + 1; child <= LevelSensor; child++ {
			for _, d := range descendants[child] {
				if d.Protection.IsProtected() {
					result.BlockingDescendants = append(result.BlockingDescendants, d.Name)
				}
			}
		}
		if result.ProtectedCount > 0 || len(result.BlockingDescendants) > 0 {
			effects.add(func() { metrics.DeleteRejected(level.String()) })
			return result, nil
		}

		for child := LevelSensor; child > level; child-- {
			removed := descendants[child]
			if len(removed) == 0 {
				continue
			}
			if err := deleteNodes(tx, child, nodeIDs(removed)); err != nil {
				return nil, err
			}
			if result.RemovedDescendants == nil {
				result.RemovedDescendants = make(map[string]int)
			}
			result.RemovedDescendants[child.String()] = len(removed)
			effects.add(deletedCounter(child, "descendant", len(removed)))
		}

		if err := deleteNodes(tx, level, nodeIDs(targets)); err != nil {
			return nil, err
		}
		result.DeletedCount = len(targets)
		result.DeletedNames = nodeNames(targets)
		effects.add(deletedCounter(level, "requested", len(targets)))

		if level != LevelFactory {
			if err := cascadeUp(tx, level-1, parentIDs(targets), result, &effects); err != nil {
				return nil, err
			}
		}

		result.Success = true
		return result, nil
	})
	if err != nil {
		return nil, fmt.Errorf("delete %s: %w", level.Noun(2), err)
	}
	effects.run()

	result.Message = result.Summary()
	log.Printf("Delete %s %v: %s", level.Noun(len(ids)), ids, strings.ReplaceAll(result.Message, "\n", "; "))
	return result, nil
}

// collectDescendants returns every row below the given ids, keyed by level.
func collectDescendants(tx *gorm.DB, level Level, ids []int64) (map[Level][]node, error) {
	out := make(map[Level][]node)
	for current := level; current < LevelSensor && len(ids) > 0; current++ {
		children, err := childrenOf(tx, current, ids)
		if err != nil {
			return nil, err
		}
		out[current+1] = children
		ids = nodeIDs(children)
	}
	return out, nil
}

// cascadeUp removes now-empty local parents one level at a time, starting
// at level, until a level removes nothing or the root has been handled.
func cascadeUp(tx *gorm.DB, level Level, parents []int64, result *DeleteResult, effects *afterCommit) error {
	for ; level >= LevelFactory && len(parents) > 0; level-- {
		candidates, err := nodesByID(tx, level, parents)
		if err != nil {
			return err
		}

		var empty []node
		for _, p := range candidates {
			if p.Protection.IsProtected() {
				continue
			}
			n, err := countChildren(tx, level, p.ID)
			if err != nil {
				return err
			}
			if n == 0 {
				empty = append(empty, p)
			}
		}
		if len(empty) == 0 {
			return nil
		}

		if err := deleteNodes(tx, level, nodeIDs(empty)); err != nil {
			return err
		}
		result.addAutoDeleted(level, nodeNames(empty))
		effects.add(deletedCounter(level, "cascade", len(empty)))

		parents = parentIDs(empty)
	}
	return nil
}

func deletedCounter(level Level, reason string, n int) func() {
	return func() { metrics.Deleted(level.String(), reason, n) }
}

func ownedBy(factories []node, companyID int64) []node {
	owned := factories[:0]
	for _, f := range factories {
		if f.ParentID == companyID {
			owned = append(owned, f)
		}
	}
	return owned
}

func (r *DeleteResult) addAutoDeleted(level Level, names []string) {
	switch level {
	case LevelFacility:
		r.AutoDeletedFacilities = append(r.AutoDeletedFacilities, names...)
	case LevelFacilityGroup:
		r.AutoDeletedGroups = append(r.AutoDeletedGroups, names...)
	case LevelFactory:
		r.AutoDeletedFactories = append(r.AutoDeletedFactories, names...)
	}
}

// Summary renders the multi-line message shown to the operator.
func (r *DeleteResult) Summary() string {
	if !r.Success {
		var b strings.Builder
		b.WriteString("Nothing was deleted.")
		if r.ProtectedCount > 0 {
			fmt.Fprintf(&b, "\n%d protected %s cannot be deleted: %s",
				r.ProtectedCount, r.level.Noun(r.ProtectedCount), strings.Join(r.ProtectedNames, ", "))
		}
		if len(r.BlockingDescendants) > 0 {
			fmt.Fprintf(&b, "\nProtected records below the selection: %s", strings.Join(r.BlockingDescendants, ", "))
		}
		return b.String()
	}

	if r.DeletedCount == 0 {
		return fmt.Sprintf("No %s to delete.", r.level.Noun(2))
	}

	lines := []string{fmt.Sprintf("%d %s deleted: %s", r.DeletedCount, r.level.Noun(r.DeletedCount), strings.Join(r.DeletedNames, ", "))}
	if len(r.RemovedDescendants) > 0 {
		var parts []string
		for child := LevelFacilityGroup; child <= LevelSensor; child++ {
			if n := r.RemovedDescendants[child.String()]; n > 0 {
				parts = append(parts, fmt.Sprintf("%d %s", n, child.Noun(n)))
			}
		}
		lines = append(lines, "Removed with them: "+strings.Join(parts, ", "))
	}
	if len(r.AutoDeletedFacilities) > 0 {
		lines = append(lines, "Empty facilities removed: "+strings.Join(r.AutoDeletedFacilities, ", "))
	}
	if len(r.AutoDeletedGroups) > 0 {
		lines = append(lines, "Empty facility groups removed: "+strings.Join(r.AutoDeletedGroups, ", "))
	}
	if len(r.AutoDeletedFactories) > 0 {
		lines = append(lines, "Empty factories removed: "+strings.Join(r.AutoDeletedFactories, ", "))
	}
	return strings.Join(lines, "\n")
}
