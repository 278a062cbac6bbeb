package engine

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ferncreek/chorewheel/internal/model"
	"github.com/ferncreek/chorewheel/internal/rule"
	"github.com/ferncreek/chorewheel/internal/store"
)

// Reassigner handles parent-driven overrides outside the generated
// rotation: repointing a pending assignment at a different child, and
// inserting one-off manual assignments.
type Reassigner struct {
	tasks       *store.TaskStore
	assignments *store.AssignmentStore
	children    *store.ChildStore
	logger      *slog.Logger
}

func NewReassigner(ts *store.TaskStore, as *store.AssignmentStore, cs *store.ChildStore, logger *slog.Logger) *Reassigner {
	return &Reassigner{tasks: ts, assignments: as, children: cs, logger: logger}
}

// Reassign overwrites an assignment's child, bypassing rotation fairness
// and claim exclusivity. Refused once a completion exists. Rotation for
// future dates is computed independently, so an override never ripples
// forward.
func (r *Reassigner) Reassign(assignmentID, newChildID int64) error {
	a, err := r.assignments.GetByID(assignmentID)
	if err != nil {
		return err
	}
	if a == nil {
		return fmt.Errorf("%w: assignment %d", ErrNotFound, assignmentID)
	}

	child, err := r.children.GetByID(newChildID)
	if err != nil {
		return err
	}
	if child == nil || child.HouseholdID != a.HouseholdID {
		return fmt.Errorf("%w: child %d", ErrNotFound, newChildID)
	}

	done, err := r.assignments.HasCompletion(assignmentID)
	if err != nil {
		return err
	}
	if done {
		return ErrCompleted
	}

	if err := r.assignments.SetChild(assignmentID, &newChildID); err != nil {
		return err
	}
	r.logger.Info("assignment reassigned", "assignment_id", assignmentID, "child_id", newChildID)
	return nil
}

// CreateManual inserts a dated assignment outside the generation pass,
// still bound by the one-per-(task, date) invariant: a duplicate is
// ErrAlreadyExists, not an overwrite. Single-type tasks have no dates to
// insert under; their failed slots are rescued with Reassign instead.
func (r *Reassigner) CreateManual(taskID int64, childID *int64, date time.Time) (*model.Assignment, error) {
	task, err := r.tasks.GetByID(taskID)
	if err != nil {
		return nil, err
	}
	if task == nil {
		return nil, fmt.Errorf("%w: task %d", ErrNotFound, taskID)
	}
	if task.Rule.Type == rule.TypeSingle {
		return nil, fmt.Errorf("%w: single-type tasks take no dated assignments", ErrInvalid)
	}

	if childID != nil {
		child, err := r.children.GetByID(*childID)
		if err != nil {
			return nil, err
		}
		if child == nil || child.HouseholdID != task.HouseholdID {
			return nil, fmt.Errorf("%w: child %d", ErrNotFound, *childID)
		}
	}

	a, err := r.assignments.CreateManual(task.HouseholdID, taskID, childID, date)
	if errors.Is(err, store.ErrDuplicate) {
		return nil, ErrAlreadyExists
	}
	if err != nil {
		return nil, err
	}
	r.logger.Info("manual assignment created", "task_id", taskID, "date", date.Format("2006-01-02"))
	return a, nil
}

// Complete records a completion for an assignment, snapshotting the task's
// points. The completion row is what flips status to completed; recording a
// second one is refused.
func (r *Reassigner) Complete(assignmentID int64, childID *int64) (*model.Completion, error) {
	a, err := r.assignments.GetByID(assignmentID)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, fmt.Errorf("%w: assignment %d", ErrNotFound, assignmentID)
	}

	done, err := r.assignments.HasCompletion(assignmentID)
	if err != nil {
		return nil, err
	}
	if done {
		return nil, ErrCompleted
	}

	task, err := r.tasks.GetByID(a.TaskID)
	if err != nil {
		return nil, err
	}
	points := 0
	if task != nil {
		points = task.Points
	}

	by := childID
	if by == nil {
		by = a.ChildID
	}
	return r.assignments.CreateCompletion(a.HouseholdID, assignmentID, by, points)
}
