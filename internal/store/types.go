package store

import (
	"fmt"
	"time"

	"aasx-facility-backend/internal/model"
)

// Level is one of the four hierarchy levels, ordered root first.
type Level int

const (
	LevelFactory Level = iota
	LevelFacilityGroup
	LevelFacility
	LevelSensor
)

// Levels lists the hierarchy levels in parent-to-child order.
var Levels = []Level{LevelFactory, LevelFacilityGroup, LevelFacility, LevelSensor}

func (l Level) String() string {
	switch l {
	case LevelFactory:
		return "factory"
	case LevelFacilityGroup:
		return "facility_group"
	case LevelFacility:
		return "facility"
	case LevelSensor:
		return "sensor"
	default:
		return fmt.Sprintf("level(%d)", int(l))
	}
}

// Noun returns the human-readable name of the level for n records.
func (l Level) Noun(n int) string {
	singular, plural := "record", "records"
	switch l {
	case LevelFactory:
		singular, plural = "factory", "factories"
	case LevelFacilityGroup:
		singular, plural = "facility group", "facility groups"
	case LevelFacility:
		singular, plural = "facility", "facilities"
	case LevelSensor:
		singular, plural = "sensor", "sensors"
	}
	if n == 1 {
		return singular
	}
	return plural
}

func (l Level) valid() bool {
	return l >= LevelFactory && l <= LevelSensor
}

// SourceRow is one row of a legacy source table. ParentID is the company id
// for factories and the parent node id for every other level.
type SourceRow struct {
	ID       int64
	ParentID int64
	Name     string
}

// Outcome is the result of reconciling one source row.
type Outcome int

const (
	OutcomeUnchanged Outcome = iota
	OutcomeInserted
	OutcomeRekeyed
	OutcomeUpdated
	// OutcomeSkipped marks a source row whose parent is missing from the mirror.
	OutcomeSkipped
)

func (o Outcome) String() string {
	switch o {
	case OutcomeInserted:
		return "inserted"
	case OutcomeRekeyed:
		return "rekeyed"
	case OutcomeUpdated:
		return "updated"
	case OutcomeSkipped:
		return "skipped"
	default:
		return "unchanged"
	}
}

// LevelCounts tallies reconciliation outcomes for one level.
type LevelCounts struct {
	Inserted  int `json:"inserted"`
	Unchanged int `json:"unchanged"`
	Rekeyed   int `json:"rekeyed"`
	Updated   int `json:"updated,omitempty"`
	Skipped   int `json:"skipped,omitempty"`
}

func (c *LevelCounts) add(o Outcome) {
	switch o {
	case OutcomeInserted:
		c.Inserted++
	case OutcomeRekeyed:
		c.Rekeyed++
	case OutcomeUpdated:
		c.Updated++
	case OutcomeSkipped:
		c.Skipped++
	default:
		c.Unchanged++
	}
}

// SyncReport summarizes a full synchronization run.
type SyncReport struct {
	RunID          string                 `json:"runId"`
	StartedAt      time.Time              `json:"startedAt"`
	FinishedAt     time.Time              `json:"finishedAt"`
	Levels         map[string]LevelCounts `json:"levels"`
	Mappings       LevelCounts            `json:"mappings"`
	ReadingsCopied int                    `json:"readingsCopied"`
}

// ProgressFunc receives coarse progress of a synchronization run. It is
// called synchronously between levels, never concurrently.
type ProgressFunc func(percent int, label string)

func (f ProgressFunc) report(percent int, label string) {
	if f != nil {
		f(percent, label)
	}
}

// DeleteResult is the user-facing outcome of a delete request. A rejected
// request has Success=false and nothing was deleted.
type DeleteResult struct {
	Success        bool     `json:"success"`
	Message        string   `json:"message"`
	Level          string   `json:"level"`
	DeletedCount   int      `json:"deletedCount"`
	DeletedNames   []string `json:"deletedNames,omitempty"`
	ProtectedCount int      `json:"protectedCount"`
	ProtectedNames []string `json:"protectedNames,omitempty"`
	// BlockingDescendants names protected records below the requested ones.
	BlockingDescendants []string       `json:"blockingDescendants,omitempty"`
	RemovedDescendants  map[string]int `json:"removedDescendants,omitempty"`

	AutoDeletedFacilities []string `json:"autoDeletedFacilities,omitempty"`
	AutoDeletedGroups     []string `json:"autoDeletedGroups,omitempty"`
	AutoDeletedFactories  []string `json:"autoDeletedFactories,omitempty"`

	level Level
}

// SensorNode and the other *Node types form the console tree.
type SensorNode struct {
	ID         int64            `json:"id"`
	Name       string           `json:"name"`
	Protection model.Protection `json:"protection"`
}

type FacilityNode struct {
	ID         int64            `json:"id"`
	Name       string           `json:"name"`
	Protection model.Protection `json:"protection"`
	Sensors    []SensorNode     `json:"sensors"`
}

type FacilityGroupNode struct {
	ID         int64            `json:"id"`
	Name       string           `json:"name"`
	Protection model.Protection `json:"protection"`
	Facilities []FacilityNode   `json:"facilities"`
}

type FactoryNode struct {
	ID         int64               `json:"id"`
	CompanyID  int64               `json:"companyId"`
	Name       string              `json:"name"`
	Protection model.Protection    `json:"protection"`
	Groups     []FacilityGroupNode `json:"groups"`
}
