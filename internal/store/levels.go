package store

import (
	"fmt"
	"time"

	"gorm.io/gorm"

	"aasx-facility-backend/internal/model"
)

// reference is a foreign-key column pointing at a level's key.
type reference struct {
	table  string
	column string
}

type levelSpec struct {
	table        string
	legacyTable  string
	parentColumn string
	// refs are rewritten when a row of this level is re-keyed.
	refs []reference
}

var levelSpecs = map[Level]levelSpec{
	LevelFactory: {
		table:        "factories",
		legacyTable:  "legacy_factories",
		parentColumn: "company_id",
		refs: []reference{
			{table: "facility_groups", column: "factory_id"},
			{table: "bases", column: "factory_id"},
		},
	},
	LevelFacilityGroup: {
		table:        "facility_groups",
		legacyTable:  "legacy_facility_groups",
		parentColumn: "factory_id",
		refs:         []reference{{table: "facilities", column: "group_id"}},
	},
	LevelFacility: {
		table:        "facilities",
		legacyTable:  "legacy_facilities",
		parentColumn: "group_id",
		refs:         []reference{{table: "sensors", column: "facility_id"}},
	},
	LevelSensor: {
		table:        "sensors",
		legacyTable:  "legacy_sensors",
		parentColumn: "facility_id",
		refs:         []reference{{table: "base_sensors", column: "sensor_id"}},
	},
}

func specFor(level Level) (levelSpec, error) {
	spec, ok := levelSpecs[level]
	if !ok {
		return levelSpec{}, fmt.Errorf("%w: %d", ErrUnknownLevel, int(level))
	}
	return spec, nil
}

// node is the level-independent view of a mirror row.
type node struct {
	ID         int64
	ParentID   int64
	Name       string
	Protection model.Protection
}

// nextID allocates the next free key for a level. It must run inside the
// transaction that consumes the key; MAX+1 is only safe while that
// transaction holds the write lock.
func nextID(tx *gorm.DB, level Level) (int64, error) {
	spec, err := specFor(level)
	if err != nil {
		return 0, err
	}
	return nextKey(tx, "id", spec.table, spec.legacyTable)
}

// nextKey returns one past the largest key found in any of the tables.
// Legacy tables are included so locally allocated keys stay out of the
// range the source system hands out.
func nextKey(tx *gorm.DB, column string, tables ...string) (int64, error) {
	var highest int64
	for _, table := range tables {
		var max int64
		q := fmt.Sprintf("SELECT COALESCE(MAX(%s), 0) FROM %s", column, table)
		if err := tx.Raw(q).Scan(&max).Error; err != nil {
			return 0, fmt.Errorf("failed to read max %s from %s: %w", column, table, err)
		}
		if max > highest {
			highest = max
		}
	}
	return highest + 1, nil
}

// fetchNodes reads mirror rows of a level matching the condition.
func fetchNodes(tx *gorm.DB, level Level, where string, args ...any) ([]node, error) {
	spec, err := specFor(level)
	if err != nil {
		return nil, err
	}
	q := fmt.Sprintf("SELECT id, %s AS parent_id, name, protection FROM %s WHERE %s ORDER BY id",
		spec.parentColumn, spec.table, where)
	var nodes []node
	if err := tx.Raw(q, args...).Scan(&nodes).Error; err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", spec.table, err)
	}
	return nodes, nil
}

func nodesByID(tx *gorm.DB, level Level, ids []int64) ([]node, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	return fetchNodes(tx, level, "id IN ?", ids)
}

func findNode(tx *gorm.DB, level Level, id int64) (*node, error) {
	nodes, err := fetchNodes(tx, level, "id = ?", id)
	if err != nil {
		return nil, err
	}
	if len(nodes) == 0 {
		return nil, nil
	}
	return &nodes[0], nil
}

// childrenOf reads the rows of the level below whose parent is in parentIDs.
func childrenOf(tx *gorm.DB, level Level, parentIDs []int64) ([]node, error) {
	if level == LevelSensor || len(parentIDs) == 0 {
		return nil, nil
	}
	child := level + 1
	return fetchNodes(tx, child, levelSpecs[child].parentColumn+" IN ?", parentIDs)
}

func countChildren(tx *gorm.DB, level Level, id int64) (int64, error) {
	if level == LevelSensor {
		return 0, nil
	}
	child := levelSpecs[level+1]
	var n int64
	q := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE %s = ?", child.table, child.parentColumn)
	if err := tx.Raw(q, id).Scan(&n).Error; err != nil {
		return 0, fmt.Errorf("failed to count children in %s: %w", child.table, err)
	}
	return n, nil
}

func insertNode(tx *gorm.DB, level Level, n node, now time.Time) error {
	spec, err := specFor(level)
	if err != nil {
		return err
	}
	q := fmt.Sprintf("INSERT INTO %s (id, %s, name, protection, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)",
		spec.table, spec.parentColumn)
	if err := tx.Exec(q, n.ID, n.ParentID, n.Name, n.Protection, now, now).Error; err != nil {
		return fmt.Errorf("failed to insert %s %d: %w", level, n.ID, err)
	}
	return nil
}

// deleteNodes removes rows of a level together with the side-table rows
// that reference them.
func deleteNodes(tx *gorm.DB, level Level, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	spec, err := specFor(level)
	if err != nil {
		return err
	}

	switch level {
	case LevelSensor:
		if err := tx.Exec("DELETE FROM base_sensors WHERE sensor_id IN ?", ids).Error; err != nil {
			return fmt.Errorf("failed to delete base memberships: %w", err)
		}
	case LevelFactory:
		if err := tx.Exec("DELETE FROM base_sensors WHERE base_id IN (SELECT id FROM bases WHERE factory_id IN ?)", ids).Error; err != nil {
			return fmt.Errorf("failed to delete base memberships: %w", err)
		}
		if err := tx.Exec("DELETE FROM bases WHERE factory_id IN ?", ids).Error; err != nil {
			return fmt.Errorf("failed to delete bases: %w", err)
		}
	}

	if err := tx.Exec(fmt.Sprintf("DELETE FROM %s WHERE id IN ?", spec.table), ids).Error; err != nil {
		return fmt.Errorf("failed to delete from %s: %w", spec.table, err)
	}
	return nil
}

func nodeIDs(nodes []node) []int64 {
	ids := make([]int64, len(nodes))
	for i, n := range nodes {
		ids[i] = n.ID
	}
	return ids
}

func nodeNames(nodes []node) []string {
	names := make([]string, len(nodes))
	for i, n := range nodes {
		names[i] = n.Name
	}
	return names
}

func parentIDs(nodes []node) []int64 {
	ids := make([]int64, 0, len(nodes))
	for _, n := range nodes {
		ids = append(ids, n.ParentID)
	}
	return uniqueIDs(ids)
}

// uniqueIDs drops duplicates, keeping first-seen order.
func uniqueIDs(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
