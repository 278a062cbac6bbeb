package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ferncreek/chorewheel/internal/model"
)

// ErrDuplicate is returned when an insert would violate the one-assignment-
// per-(task, date) invariant.
var ErrDuplicate = errors.New("assignment already exists for this task and date")

type AssignmentStore struct {
	db *sql.DB
}

func NewAssignmentStore(db *sql.DB) *AssignmentStore {
	return &AssignmentStore{db: db}
}

const assignmentCols = `id, household_id, task_id, child_id, date, created_at`

func scanAssignment(scanner interface{ Scan(...any) error }) (*model.Assignment, error) {
	var a model.Assignment
	var childID sql.NullInt64
	var date sql.NullString

	err := scanner.Scan(&a.ID, &a.HouseholdID, &a.TaskID, &childID, &date, &a.CreatedAt)
	if err != nil {
		return nil, err
	}

	if childID.Valid {
		a.ChildID = &childID.Int64
	}
	if date.Valid {
		d, err := parseDate(date.String)
		if err != nil {
			return nil, fmt.Errorf("parse assignment date: %w", err)
		}
		a.Date = &d
	}
	return &a, nil
}

func (s *AssignmentStore) GetByID(id int64) (*model.Assignment, error) {
	row := s.db.QueryRow(`SELECT `+assignmentCols+` FROM assignments WHERE id = ?`, id)
	a, err := scanAssignment(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get assignment: %w", err)
	}
	return a, nil
}

// OpenSlotByTask returns the single-type claim slot (the date-less row) for
// a task, claimed or not.
func (s *AssignmentStore) OpenSlotByTask(taskID int64) (*model.Assignment, error) {
	row := s.db.QueryRow(
		`SELECT `+assignmentCols+` FROM assignments WHERE task_id = ? AND date IS NULL`,
		taskID,
	)
	a, err := scanAssignment(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get open slot: %w", err)
	}
	return a, nil
}

// InsertWindow persists one generation window. The whole batch commits or
// none of it does; rows that already exist for their (task, date) are left
// untouched, so overlapping windows re-run cleanly. Returns the number of
// rows actually inserted.
func (s *AssignmentStore) InsertWindow(rows []model.Assignment) (int, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	created := 0
	for _, a := range rows {
		var childID sql.NullInt64
		if a.ChildID != nil {
			childID = sql.NullInt64{Int64: *a.ChildID, Valid: true}
		}
		result, err := tx.Exec(
			`INSERT INTO assignments (household_id, task_id, child_id, date) VALUES (?, ?, ?, ?)
			 ON CONFLICT (task_id, date) DO NOTHING`,
			a.HouseholdID, a.TaskID, childID, formatDate(*a.Date),
		)
		if err != nil {
			return 0, fmt.Errorf("insert assignment: %w", err)
		}
		n, err := result.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("rows affected: %w", err)
		}
		created += int(n)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return created, nil
}

// CreateManual inserts a dated assignment outside the generation pass.
// A second assignment for the same (task, date) is ErrDuplicate, never a
// silent overwrite.
func (s *AssignmentStore) CreateManual(householdID, taskID int64, childID *int64, date time.Time) (*model.Assignment, error) {
	var cID sql.NullInt64
	if childID != nil {
		cID = sql.NullInt64{Int64: *childID, Valid: true}
	}

	result, err := s.db.Exec(
		`INSERT INTO assignments (household_id, task_id, child_id, date) VALUES (?, ?, ?, ?)`,
		householdID, taskID, cID, formatDate(date),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return nil, ErrDuplicate
		}
		return nil, fmt.Errorf("insert manual assignment: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

// Claim atomically takes the slot for childID. It succeeds only when
// child_id is currently NULL — the conditional write is the whole locking
// story for racing accepts.
func (s *AssignmentStore) Claim(assignmentID, childID int64) (bool, error) {
	result, err := s.db.Exec(
		`UPDATE assignments SET child_id = ? WHERE id = ? AND child_id IS NULL`,
		childID, assignmentID,
	)
	if err != nil {
		return false, fmt.Errorf("claim assignment: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

// Release clears the claim, but only when childID currently holds it.
func (s *AssignmentStore) Release(assignmentID, childID int64) (bool, error) {
	result, err := s.db.Exec(
		`UPDATE assignments SET child_id = NULL WHERE id = ? AND child_id = ?`,
		assignmentID, childID,
	)
	if err != nil {
		return false, fmt.Errorf("release assignment: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

// SetChild overwrites the assignee unconditionally. Manual override path;
// the claim discipline is deliberately bypassed here.
func (s *AssignmentStore) SetChild(assignmentID int64, childID *int64) error {
	var cID sql.NullInt64
	if childID != nil {
		cID = sql.NullInt64{Int64: *childID, Valid: true}
	}
	_, err := s.db.Exec(`UPDATE assignments SET child_id = ? WHERE id = ?`, cID, assignmentID)
	if err != nil {
		return fmt.Errorf("set child: %w", err)
	}
	return nil
}

// List returns a household's assignments. When start/end are set, dated
// rows are bounded to [start, end); date-less single-task slots are always
// included.
func (s *AssignmentStore) List(householdID int64, start, end *time.Time) ([]model.Assignment, error) {
	query := `SELECT ` + assignmentCols + ` FROM assignments WHERE household_id = ?`
	args := []any{householdID}
	if start != nil && end != nil {
		query += ` AND (date IS NULL OR (date >= ? AND date < ?))`
		args = append(args, formatDate(*start), formatDate(*end))
	}
	query += ` ORDER BY date IS NULL, date ASC, id ASC`

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list assignments: %w", err)
	}
	defer rows.Close()

	var assignments []model.Assignment
	for rows.Next() {
		a, err := scanAssignment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan assignment: %w", err)
		}
		assignments = append(assignments, *a)
	}
	return assignments, rows.Err()
}

// CountForTask reports how many assignments exist for a task. Used by tests
// and idempotence checks.
func (s *AssignmentStore) CountForTask(taskID int64) (int, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM assignments WHERE task_id = ?`, taskID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count assignments: %w", err)
	}
	return n, nil
}

// --- Completion methods ---

const completionCols = `id, household_id, assignment_id, child_id, completed_at, points_earned`

func scanCompletion(scanner interface{ Scan(...any) error }) (*model.Completion, error) {
	var c model.Completion
	var childID sql.NullInt64

	err := scanner.Scan(&c.ID, &c.HouseholdID, &c.AssignmentID, &childID, &c.CompletedAt, &c.PointsEarned)
	if err != nil {
		return nil, err
	}
	if childID.Valid {
		c.ChildID = &childID.Int64
	}
	return &c, nil
}

func (s *AssignmentStore) CreateCompletion(householdID, assignmentID int64, childID *int64, pointsEarned int) (*model.Completion, error) {
	var cID sql.NullInt64
	if childID != nil {
		cID = sql.NullInt64{Int64: *childID, Valid: true}
	}

	result, err := s.db.Exec(
		`INSERT INTO completions (household_id, assignment_id, child_id, points_earned) VALUES (?, ?, ?, ?)`,
		householdID, assignmentID, cID, pointsEarned,
	)
	if err != nil {
		return nil, fmt.Errorf("insert completion: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	row := s.db.QueryRow(`SELECT `+completionCols+` FROM completions WHERE id = ?`, id)
	return scanCompletion(row)
}

func (s *AssignmentStore) HasCompletion(assignmentID int64) (bool, error) {
	var n int
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM completions WHERE assignment_id = ?`,
		assignmentID,
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("check completion: %w", err)
	}
	return n > 0, nil
}

// CompletedSet returns the IDs of a household's assignments that have at
// least one completion.
func (s *AssignmentStore) CompletedSet(householdID int64) (map[int64]bool, error) {
	rows, err := s.db.Query(
		`SELECT DISTINCT assignment_id FROM completions WHERE household_id = ?`,
		householdID,
	)
	if err != nil {
		return nil, fmt.Errorf("list completed ids: %w", err)
	}
	defer rows.Close()

	set := make(map[int64]bool)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan completed id: %w", err)
		}
		set[id] = true
	}
	return set, rows.Err()
}
