package engine

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/ferncreek/chorewheel/internal/model"
	"github.com/ferncreek/chorewheel/internal/rule"
	"github.com/ferncreek/chorewheel/internal/store"
)

// Pool governs the opt-in workflow for single-type tasks: a snapshotted
// candidate set, latest-wins accept/decline responses, and an exclusive
// claim taken by a conditional write on the assignment row. No locks beyond
// that write: two children racing to accept resolve to exactly one winner.
type Pool struct {
	tasks       *store.TaskStore
	assignments *store.AssignmentStore
	children    *store.ChildStore
	logger      *slog.Logger
}

func NewPool(ts *store.TaskStore, as *store.AssignmentStore, cs *store.ChildStore, logger *slog.Logger) *Pool {
	return &Pool{tasks: ts, assignments: as, children: cs, logger: logger}
}

// SnapshotCandidates resolves the pool for a new single-type task: the
// explicitly assigned children, or the household's full roster when none
// are listed. Called once at task creation; the result is frozen.
func (p *Pool) SnapshotCandidates(householdID int64, assigned []int64) ([]int64, error) {
	if len(assigned) > 0 {
		for _, id := range assigned {
			c, err := p.children.GetByID(id)
			if err != nil {
				return nil, err
			}
			if c == nil || c.HouseholdID != householdID {
				return nil, fmt.Errorf("%w: child %d", ErrNotFound, id)
			}
		}
		return assigned, nil
	}

	roster, err := p.children.ListByHousehold(householdID)
	if err != nil {
		return nil, err
	}
	ids := make([]int64, 0, len(roster))
	for _, c := range roster {
		ids = append(ids, c.ID)
	}
	return ids, nil
}

// Respond is the accept/decline entry point. A decline from the current
// claimant releases the claim first, so the task becomes claimable again.
func (p *Pool) Respond(taskID, childID int64, response string, now time.Time) error {
	switch response {
	case model.ResponseAccepted:
		return p.Accept(taskID, childID, now)
	case model.ResponseDeclined:
		return p.Decline(taskID, childID, now)
	default:
		return fmt.Errorf("%w: response must be %q or %q", ErrInvalid, model.ResponseAccepted, model.ResponseDeclined)
	}
}

// Accept claims the task for childID. Exactly one of any set of concurrent
// accepts succeeds; the rest get ErrAlreadyClaimed. Accepting a slot the
// child already holds is a no-op success. Accepts are refused once the
// deadline has passed (expiry is terminal) or a completion exists.
func (p *Pool) Accept(taskID, childID int64, now time.Time) error {
	task, slot, err := p.openTask(taskID, childID)
	if err != nil {
		return err
	}
	if task.Deadline != nil && task.Deadline.Before(now) {
		return ErrExpired
	}

	claimed, err := p.assignments.Claim(slot.ID, childID)
	if err != nil {
		return err
	}
	if !claimed {
		current, err := p.assignments.GetByID(slot.ID)
		if err != nil {
			return err
		}
		if current == nil || current.ChildID == nil || *current.ChildID != childID {
			return ErrAlreadyClaimed
		}
		// Already ours; fall through and refresh the response row.
	} else {
		p.logger.Info("task claimed", "task_id", taskID, "child_id", childID)
	}

	return p.tasks.UpsertResponse(taskID, childID, task.HouseholdID, model.ResponseAccepted, now)
}

// Decline records a declined response, latest wins. It never fails while
// the task is open; from the current claimant it doubles as a withdrawal.
func (p *Pool) Decline(taskID, childID int64, now time.Time) error {
	task, slot, err := p.openTask(taskID, childID)
	if err != nil {
		return err
	}

	if slot.ChildID != nil && *slot.ChildID == childID {
		if _, err := p.assignments.Release(slot.ID, childID); err != nil {
			return err
		}
		p.logger.Info("claim released", "task_id", taskID, "child_id", childID)
	}

	return p.tasks.UpsertResponse(taskID, childID, task.HouseholdID, model.ResponseDeclined, now)
}

// Withdraw reverts a previous accept, clearing the claim so the task is
// claimable again. Unlike Decline it leaves no declined response behind and
// it fails when the child doesn't actually hold the claim.
func (p *Pool) Withdraw(taskID, childID int64) error {
	_, slot, err := p.openTask(taskID, childID)
	if err != nil {
		return err
	}

	released, err := p.assignments.Release(slot.ID, childID)
	if err != nil {
		return err
	}
	if !released {
		return ErrNotClaimant
	}
	p.logger.Info("claim withdrawn", "task_id", taskID, "child_id", childID)
	return nil
}

// openTask loads the task and its claim slot and runs the shared guards:
// the task must be single-type, the child a snapshotted candidate, and no
// completion recorded yet.
func (p *Pool) openTask(taskID, childID int64) (*model.Task, *model.Assignment, error) {
	task, err := p.tasks.GetByID(taskID)
	if err != nil {
		return nil, nil, err
	}
	if task == nil {
		return nil, nil, fmt.Errorf("%w: task %d", ErrNotFound, taskID)
	}
	if task.Rule.Type != rule.TypeSingle {
		return nil, nil, fmt.Errorf("%w: task %d is not a single-type task", ErrInvalid, taskID)
	}

	ok, err := p.tasks.IsCandidate(taskID, childID)
	if err != nil {
		return nil, nil, err
	}
	if !ok {
		return nil, nil, ErrNotCandidate
	}

	slot, err := p.assignments.OpenSlotByTask(taskID)
	if err != nil {
		return nil, nil, err
	}
	if slot == nil {
		return nil, nil, fmt.Errorf("%w: task %d has no claim slot", ErrNotFound, taskID)
	}

	done, err := p.assignments.HasCompletion(slot.ID)
	if err != nil {
		return nil, nil, err
	}
	if done {
		return nil, nil, ErrCompleted
	}

	return task, slot, nil
}
