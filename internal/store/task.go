package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/ferncreek/chorewheel/internal/model"
	"github.com/ferncreek/chorewheel/internal/rule"
)

type TaskStore struct {
	db *sql.DB
}

func NewTaskStore(db *sql.DB) *TaskStore {
	return &TaskStore{db: db}
}

const taskCols = `id, household_id, name, points, rule_type, rule_config, deadline, active, created_at, updated_at`

func scanTask(scanner interface{ Scan(...any) error }) (*model.Task, error) {
	var t model.Task
	var ruleType, ruleConfig string
	var deadline sql.NullTime

	err := scanner.Scan(
		&t.ID, &t.HouseholdID, &t.Name, &t.Points,
		&ruleType, &ruleConfig, &deadline, &t.Active,
		&t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	r, err := rule.Parse(ruleType, []byte(ruleConfig))
	if err != nil {
		return nil, fmt.Errorf("task %d: %w", t.ID, err)
	}
	t.Rule = r
	t.RuleType = r.Type
	if deadline.Valid {
		t.Deadline = &deadline.Time
	}
	return &t, nil
}

// Create inserts a task. For an active single-type task it also creates the
// open claim slot and snapshots the candidate pool, all in one transaction
// so a task is never observable without its slot.
func (s *TaskStore) Create(householdID int64, name string, points int, r rule.Rule, deadline *time.Time, active bool, candidateIDs []int64) (*model.Task, error) {
	config, err := r.MarshalConfig()
	if err != nil {
		return nil, fmt.Errorf("marshal rule config: %w", err)
	}

	var dl sql.NullTime
	if deadline != nil {
		dl = sql.NullTime{Time: *deadline, Valid: true}
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.Exec(
		`INSERT INTO tasks (household_id, name, points, rule_type, rule_config, deadline, active) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		householdID, name, points, string(r.Type), string(config), dl, active,
	)
	if err != nil {
		return nil, fmt.Errorf("insert task: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	if r.Type == rule.TypeSingle && active {
		if _, err := tx.Exec(
			`INSERT INTO assignments (household_id, task_id, child_id, date) VALUES (?, ?, NULL, NULL)`,
			householdID, id,
		); err != nil {
			return nil, fmt.Errorf("insert open slot: %w", err)
		}
		for _, childID := range candidateIDs {
			if _, err := tx.Exec(
				`INSERT INTO candidates (task_id, child_id, household_id) VALUES (?, ?, ?)`,
				id, childID, householdID,
			); err != nil {
				return nil, fmt.Errorf("insert candidate: %w", err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return s.GetByID(id)
}

func (s *TaskStore) GetByID(id int64) (*model.Task, error) {
	row := s.db.QueryRow(`SELECT `+taskCols+` FROM tasks WHERE id = ?`, id)
	t, err := scanTask(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get task: %w", err)
	}
	return t, nil
}

func (s *TaskStore) ListByHousehold(householdID int64) ([]model.Task, error) {
	return s.list(`SELECT `+taskCols+` FROM tasks WHERE household_id = ? ORDER BY name ASC`, householdID)
}

func (s *TaskStore) ListActiveByHousehold(householdID int64) ([]model.Task, error) {
	return s.list(`SELECT `+taskCols+` FROM tasks WHERE household_id = ? AND active = 1 ORDER BY name ASC`, householdID)
}

func (s *TaskStore) list(query string, args ...any) ([]model.Task, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []model.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, *t)
	}
	return tasks, rows.Err()
}

// Update changes the editable fields. The rule is fixed at creation: the
// candidate snapshot and generated history both hang off it.
func (s *TaskStore) Update(id int64, name string, points int, deadline *time.Time) (*model.Task, error) {
	var dl sql.NullTime
	if deadline != nil {
		dl = sql.NullTime{Time: *deadline, Valid: true}
	}
	_, err := s.db.Exec(
		`UPDATE tasks SET name = ?, points = ?, deadline = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		name, points, dl, id,
	)
	if err != nil {
		return nil, fmt.Errorf("update task: %w", err)
	}
	return s.GetByID(id)
}

// SetActive toggles generation. Deactivation never deletes anything.
// Activating a single-type task ensures its claim slot exists and, when no
// pool was snapshotted yet (the task was created inactive), snapshots the
// candidates now: the rule's assigned children, or the household's current
// roster when none are listed. An existing snapshot is left as-is.
func (s *TaskStore) SetActive(id int64, active bool) (*model.Task, error) {
	t, err := s.GetByID(id)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(
		`UPDATE tasks SET active = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		active, id,
	); err != nil {
		return nil, fmt.Errorf("set active: %w", err)
	}

	if active && t.Rule.Type == rule.TypeSingle {
		if _, err := tx.Exec(
			`INSERT INTO assignments (household_id, task_id, child_id, date) VALUES (?, ?, NULL, NULL)
			 ON CONFLICT (task_id) WHERE date IS NULL DO NOTHING`,
			t.HouseholdID, id,
		); err != nil {
			return nil, fmt.Errorf("restore open slot: %w", err)
		}

		var n int
		if err := tx.QueryRow(
			`SELECT COUNT(*) FROM candidates WHERE task_id = ?`, id,
		).Scan(&n); err != nil {
			return nil, fmt.Errorf("count candidates: %w", err)
		}
		if n == 0 {
			if len(t.Rule.AssignedChildren) > 0 {
				for _, childID := range t.Rule.AssignedChildren {
					if _, err := tx.Exec(
						`INSERT INTO candidates (task_id, child_id, household_id) VALUES (?, ?, ?)`,
						id, childID, t.HouseholdID,
					); err != nil {
						return nil, fmt.Errorf("insert candidate: %w", err)
					}
				}
			} else {
				if _, err := tx.Exec(
					`INSERT INTO candidates (task_id, child_id, household_id)
					 SELECT ?, id, household_id FROM children WHERE household_id = ?`,
					id, t.HouseholdID,
				); err != nil {
					return nil, fmt.Errorf("snapshot candidates: %w", err)
				}
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return s.GetByID(id)
}

// --- Candidate methods ---

func (s *TaskStore) ListCandidates(taskID int64) ([]model.Candidate, error) {
	rows, err := s.db.Query(
		`SELECT task_id, child_id, household_id FROM candidates WHERE task_id = ? ORDER BY child_id`,
		taskID,
	)
	if err != nil {
		return nil, fmt.Errorf("list candidates: %w", err)
	}
	defer rows.Close()

	var candidates []model.Candidate
	for rows.Next() {
		var c model.Candidate
		if err := rows.Scan(&c.TaskID, &c.ChildID, &c.HouseholdID); err != nil {
			return nil, fmt.Errorf("scan candidate: %w", err)
		}
		candidates = append(candidates, c)
	}
	return candidates, rows.Err()
}

func (s *TaskStore) IsCandidate(taskID, childID int64) (bool, error) {
	var n int
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM candidates WHERE task_id = ? AND child_id = ?`,
		taskID, childID,
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("check candidate: %w", err)
	}
	return n > 0, nil
}

// --- Response methods ---

// UpsertResponse records a child's current stance, latest wins.
func (s *TaskStore) UpsertResponse(taskID, childID, householdID int64, response string, at time.Time) error {
	_, err := s.db.Exec(
		`INSERT INTO responses (task_id, child_id, household_id, response, responded_at) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (task_id, child_id) DO UPDATE SET response = excluded.response, responded_at = excluded.responded_at`,
		taskID, childID, householdID, response, at.UTC(),
	)
	if err != nil {
		return fmt.Errorf("upsert response: %w", err)
	}
	return nil
}

func (s *TaskStore) ListResponses(taskID int64) ([]model.Response, error) {
	rows, err := s.db.Query(
		`SELECT task_id, child_id, household_id, response, responded_at FROM responses WHERE task_id = ? ORDER BY child_id`,
		taskID,
	)
	if err != nil {
		return nil, fmt.Errorf("list responses: %w", err)
	}
	defer rows.Close()

	var responses []model.Response
	for rows.Next() {
		var r model.Response
		if err := rows.Scan(&r.TaskID, &r.ChildID, &r.HouseholdID, &r.Response, &r.RespondedAt); err != nil {
			return nil, fmt.Errorf("scan response: %w", err)
		}
		responses = append(responses, r)
	}
	return responses, rows.Err()
}
