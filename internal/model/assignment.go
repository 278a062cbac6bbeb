package model

import "time"

// Assignment is one concrete occurrence of a task owed by (at most) one
// child on a date, or — for single-type tasks — the one open claim slot,
// which has a nil Date and a nil ChildID until somebody's accept wins.
// Assignments are never deleted, only transitioned.
type Assignment struct {
	ID          int64      `json:"id"`
	HouseholdID int64      `json:"household_id"`
	TaskID      int64      `json:"task_id"`
	ChildID     *int64     `json:"child_id"`
	Date        *time.Time `json:"date,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// Candidate marks a child as eligible to claim a single-type task. The pool
// is snapshotted once at activation and never re-derived, even if the
// household roster changes later.
type Candidate struct {
	TaskID      int64 `json:"task_id"`
	ChildID     int64 `json:"child_id"`
	HouseholdID int64 `json:"household_id"`
}

const (
	ResponseAccepted = "accepted"
	ResponseDeclined = "declined"
)

// Response is a child's current accept/decline stance on a single-type
// task. One row per (task, child), overwritten latest-wins on re-response.
type Response struct {
	TaskID      int64     `json:"task_id"`
	ChildID     int64     `json:"child_id"`
	HouseholdID int64     `json:"household_id"`
	Response    string    `json:"response"`
	RespondedAt time.Time `json:"responded_at"`
}

// Completion is append-only; its existence for an assignment is the sole
// trigger for completed status. PointsEarned snapshots the task's points at
// completion time.
type Completion struct {
	ID           int64     `json:"id"`
	HouseholdID  int64     `json:"household_id"`
	AssignmentID int64     `json:"assignment_id"`
	ChildID      *int64    `json:"child_id"`
	CompletedAt  time.Time `json:"completed_at"`
	PointsEarned int       `json:"points_earned"`
}
