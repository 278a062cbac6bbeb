package engine

import (
	"time"

	"github.com/ferncreek/chorewheel/internal/model"
	"github.com/ferncreek/chorewheel/internal/rule"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusOverdue   Status = "overdue"
	StatusExpired   Status = "expired"
	StatusFailed    Status = "failed"
)

// Resolve derives an assignment's lifecycle state from stored facts and an
// explicit now. It reads no clock and mutates nothing, so historical data
// replays exactly.
//
// Precedence: completed (a completion row is the sole path there) beats
// everything; for unclaimed single tasks, a passed deadline beats failed
// regardless of how many candidates responded. Overdue and failed are not
// terminal — manual reassignment or a late acceptance can still land on
// completed. Completed and expired are.
func Resolve(task model.Task, a model.Assignment, completed bool, candidates []model.Candidate, responses []model.Response, now time.Time) Status {
	if completed {
		return StatusCompleted
	}

	if task.Rule.Type == rule.TypeSingle {
		if a.ChildID == nil {
			if task.Deadline != nil && task.Deadline.Before(now) {
				return StatusExpired
			}
			if allDeclined(candidates, responses) {
				return StatusFailed
			}
		}
		return StatusPending
	}

	if a.Date != nil && a.Date.Before(civilDate(now)) {
		return StatusOverdue
	}
	return StatusPending
}

// allDeclined reports whether every snapshotted candidate's latest response
// is a decline. An empty pool can't fail.
func allDeclined(candidates []model.Candidate, responses []model.Response) bool {
	if len(candidates) == 0 {
		return false
	}
	latest := make(map[int64]string, len(responses))
	for _, r := range responses {
		latest[r.ChildID] = r.Response
	}
	for _, c := range candidates {
		if latest[c.ChildID] != model.ResponseDeclined {
			return false
		}
	}
	return true
}
