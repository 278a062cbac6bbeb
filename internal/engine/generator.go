// Package engine turns task definitions into dated assignments and resolves
// the opt-in claim workflow for single-type tasks. It keeps no state of its
// own: every operation is one bounded transaction against the store, so any
// number of callers and server instances can run it concurrently.
package engine

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/ferncreek/chorewheel/internal/model"
	"github.com/ferncreek/chorewheel/internal/store"
)

// MaxWindowDays bounds the per-call work of Generate.
const MaxWindowDays = 365

type Generator struct {
	tasks       *store.TaskStore
	assignments *store.AssignmentStore
	logger      *slog.Logger
}

func NewGenerator(ts *store.TaskStore, as *store.AssignmentStore, logger *slog.Logger) *Generator {
	return &Generator{tasks: ts, assignments: as, logger: logger}
}

// Generate materializes assignments for every active dated-rule task in the
// household over [start, start+days). The window is computed purely, then
// persisted in a single all-or-nothing transaction; rows that already exist
// are skipped, so re-running an overlapping window changes nothing.
//
// Single-type tasks never appear here — their one open slot is created at
// activation, not per date.
func (g *Generator) Generate(householdID int64, start time.Time, days int) (int, error) {
	if days < 1 || days > MaxWindowDays {
		return 0, fmt.Errorf("%w: days must be between 1 and %d", ErrInvalid, MaxWindowDays)
	}

	tasks, err := g.tasks.ListActiveByHousehold(householdID)
	if err != nil {
		return 0, err
	}

	start = civilDate(start)
	var rows []model.Assignment
	for _, t := range tasks {
		if !t.Rule.Dated() {
			continue
		}
		for i := 0; i < days; i++ {
			date := start.AddDate(0, 0, i)
			if !t.Rule.IsDue(date) {
				continue
			}
			a := model.Assignment{
				HouseholdID: householdID,
				TaskID:      t.ID,
				Date:        &date,
			}
			if childID, ok := t.Rule.Assignee(date); ok {
				a.ChildID = &childID
			}
			rows = append(rows, a)
		}
	}

	created, err := g.assignments.InsertWindow(rows)
	if err != nil {
		return 0, err
	}

	g.logger.Info("generated assignments",
		"household_id", householdID,
		"start", start.Format("2006-01-02"),
		"days", days,
		"due", len(rows),
		"created", created,
	)
	return created, nil
}

// civilDate strips the time-of-day, keeping the caller's zone.
func civilDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
