package engine

import (
	"fmt"
	"time"

	"github.com/ferncreek/chorewheel/internal/model"
	"github.com/ferncreek/chorewheel/internal/rule"
	"github.com/ferncreek/chorewheel/internal/store"
)

// MaxViewDays bounds a read window.
const MaxViewDays = 30

// Filters narrows a View call. Zero values mean "don't filter".
type Filters struct {
	Date    *time.Time
	Days    int
	Status  Status
	ChildID *int64
}

// AssignmentView is an assignment joined with its task and derived status.
// Candidate and decline counts are filled for single-type tasks.
type AssignmentView struct {
	model.Assignment
	TaskName       string `json:"task_name"`
	Points         int    `json:"points"`
	Status         Status `json:"status"`
	CandidateCount int    `json:"candidate_count,omitempty"`
	DeclineCount   int    `json:"decline_count,omitempty"`
}

type Viewer struct {
	tasks       *store.TaskStore
	assignments *store.AssignmentStore
}

func NewViewer(ts *store.TaskStore, as *store.AssignmentStore) *Viewer {
	return &Viewer{tasks: ts, assignments: as}
}

// View returns a household's assignments with status derived against the
// given now. Read-only: derivation never writes back.
func (v *Viewer) View(householdID int64, f Filters, now time.Time) ([]AssignmentView, error) {
	days := f.Days
	if days == 0 {
		days = 1
	}
	if days < 1 || days > MaxViewDays {
		return nil, fmt.Errorf("%w: days must be between 1 and %d", ErrInvalid, MaxViewDays)
	}

	var start, end *time.Time
	if f.Date != nil {
		s := civilDate(*f.Date)
		e := s.AddDate(0, 0, days)
		start, end = &s, &e
	}

	assignments, err := v.assignments.List(householdID, start, end)
	if err != nil {
		return nil, err
	}

	tasks, err := v.tasks.ListByHousehold(householdID)
	if err != nil {
		return nil, err
	}
	taskByID := make(map[int64]model.Task, len(tasks))
	for _, t := range tasks {
		taskByID[t.ID] = t
	}

	completed, err := v.assignments.CompletedSet(householdID)
	if err != nil {
		return nil, err
	}

	views := make([]AssignmentView, 0, len(assignments))
	for _, a := range assignments {
		task, ok := taskByID[a.TaskID]
		if !ok {
			continue
		}

		var candidates []model.Candidate
		var responses []model.Response
		if task.Rule.Type == rule.TypeSingle {
			candidates, err = v.tasks.ListCandidates(task.ID)
			if err != nil {
				return nil, err
			}
			responses, err = v.tasks.ListResponses(task.ID)
			if err != nil {
				return nil, err
			}
		}

		status := Resolve(task, a, completed[a.ID], candidates, responses, now)
		if f.Status != "" && status != f.Status {
			continue
		}
		if f.ChildID != nil && (a.ChildID == nil || *a.ChildID != *f.ChildID) {
			continue
		}

		view := AssignmentView{
			Assignment: a,
			TaskName:   task.Name,
			Points:     task.Points,
			Status:     status,
		}
		if task.Rule.Type == rule.TypeSingle {
			view.CandidateCount = len(candidates)
			for _, r := range responses {
				if r.Response == model.ResponseDeclined {
					view.DeclineCount++
				}
			}
		}
		views = append(views, view)
	}
	return views, nil
}
