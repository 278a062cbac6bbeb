package engine

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/ferncreek/chorewheel/internal/database"
	"github.com/ferncreek/chorewheel/internal/rule"
	"github.com/ferncreek/chorewheel/internal/store"
)

// 2026-03-02 is a Monday.
var monday = time.Date(2026, time.March, 2, 0, 0, 0, 0, time.UTC)

type testEnv struct {
	households  *store.HouseholdStore
	children    *store.ChildStore
	tasks       *store.TaskStore
	assignments *store.AssignmentStore

	generator  *Generator
	pool       *Pool
	viewer     *Viewer
	reassigner *Reassigner

	householdID int64
	childIDs    []int64
}

// setupEnv opens an in-memory database and seeds one household with three
// children.
func setupEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	env := &testEnv{
		households:  store.NewHouseholdStore(db),
		children:    store.NewChildStore(db),
		tasks:       store.NewTaskStore(db),
		assignments: store.NewAssignmentStore(db),
	}
	env.generator = NewGenerator(env.tasks, env.assignments, logger)
	env.pool = NewPool(env.tasks, env.assignments, env.children, logger)
	env.viewer = NewViewer(env.tasks, env.assignments)
	env.reassigner = NewReassigner(env.tasks, env.assignments, env.children, logger)

	household, err := env.households.Create("Fernwood")
	if err != nil {
		t.Fatalf("create household: %v", err)
	}
	env.householdID = household.ID

	for _, name := range []string{"Ada", "Ben", "Cleo"} {
		child, err := env.children.Create(household.ID, name, "#3B82F6", "")
		if err != nil {
			t.Fatalf("create child %s: %v", name, err)
		}
		env.childIDs = append(env.childIDs, child.ID)
	}
	return env
}

// mustRule parses a rule config or fails the test.
func mustRule(t *testing.T, ruleType, config string) rule.Rule {
	t.Helper()
	r, err := rule.Parse(ruleType, []byte(config))
	if err != nil {
		t.Fatalf("parse rule %s %s: %v", ruleType, config, err)
	}
	return r
}

// createTask inserts an active task and returns its ID.
func (env *testEnv) createTask(t *testing.T, name string, points int, r rule.Rule, deadline *time.Time, candidates []int64) int64 {
	t.Helper()
	task, err := env.tasks.Create(env.householdID, name, points, r, deadline, true, candidates)
	if err != nil {
		t.Fatalf("create task %s: %v", name, err)
	}
	return task.ID
}
