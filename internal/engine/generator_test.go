package engine

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestGenerateDaily(t *testing.T) {
	env := setupEnv(t)
	ada := env.childIDs[0]
	taskID := env.createTask(t, "Feed the cat", 5,
		mustRule(t, "daily", fmt.Sprintf(`{"assigned_children":[%d]}`, ada)), nil, nil)

	created, err := env.generator.Generate(env.householdID, monday, 5)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if created != 5 {
		t.Fatalf("created = %d, want 5", created)
	}

	assignments, err := env.assignments.List(env.householdID, nil, nil)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(assignments) != 5 {
		t.Fatalf("got %d assignments, want 5", len(assignments))
	}
	for i, a := range assignments {
		want := monday.AddDate(0, 0, i)
		if a.Date == nil || !a.Date.Equal(want) {
			t.Errorf("assignment %d date = %v, want %s", i, a.Date, want.Format("2006-01-02"))
		}
		if a.ChildID == nil || *a.ChildID != ada {
			t.Errorf("assignment %d child = %v, want %d", i, a.ChildID, ada)
		}
		if a.TaskID != taskID {
			t.Errorf("assignment %d task = %d, want %d", i, a.TaskID, taskID)
		}
	}
}

func TestGenerateRepeating(t *testing.T) {
	env := setupEnv(t)
	// Mon, Wed, Fri
	env.createTask(t, "Take out trash", 3, mustRule(t, "repeating", `{"repeat_days":[1,3,5]}`), nil, nil)

	created, err := env.generator.Generate(env.householdID, monday, 7)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if created != 3 {
		t.Fatalf("created = %d, want 3", created)
	}

	assignments, _ := env.assignments.List(env.householdID, nil, nil)
	wantDays := []time.Weekday{time.Monday, time.Wednesday, time.Friday}
	if len(assignments) != 3 {
		t.Fatalf("got %d assignments, want 3", len(assignments))
	}
	for i, a := range assignments {
		if a.Date.Weekday() != wantDays[i] {
			t.Errorf("assignment %d on %s, want %s", i, a.Date.Weekday(), wantDays[i])
		}
		if a.ChildID != nil {
			t.Errorf("assignment %d should be unassigned, got child %d", i, *a.ChildID)
		}
	}
}

func TestGenerateWeeklyRotationAlternates(t *testing.T) {
	env := setupEnv(t)
	ada, ben := env.childIDs[0], env.childIDs[1]
	env.createTask(t, "Set the table", 2,
		mustRule(t, "weekly_rotation", fmt.Sprintf(`{"rotation_type":"alternating","assigned_children":[%d,%d]}`, ada, ben)),
		nil, nil)

	if _, err := env.generator.Generate(env.householdID, monday, 7); err != nil {
		t.Fatalf("generate: %v", err)
	}

	assignments, _ := env.assignments.List(env.householdID, nil, nil)
	if len(assignments) != 7 {
		t.Fatalf("got %d assignments, want 7", len(assignments))
	}
	for i := 1; i < 7; i++ {
		if *assignments[i].ChildID == *assignments[i-1].ChildID {
			t.Errorf("days %d and %d assigned to the same child %d", i-1, i, *assignments[i].ChildID)
		}
	}
}

func TestGenerateIdempotent(t *testing.T) {
	env := setupEnv(t)
	ada := env.childIDs[0]
	env.createTask(t, "Feed the cat", 5,
		mustRule(t, "daily", fmt.Sprintf(`{"assigned_children":[%d]}`, ada)), nil, nil)

	if _, err := env.generator.Generate(env.householdID, monday, 7); err != nil {
		t.Fatalf("first generate: %v", err)
	}
	before, _ := env.assignments.List(env.householdID, nil, nil)

	// Fully overlapping re-run creates nothing and changes nothing.
	created, err := env.generator.Generate(env.householdID, monday, 7)
	if err != nil {
		t.Fatalf("second generate: %v", err)
	}
	if created != 0 {
		t.Errorf("second run created %d rows, want 0", created)
	}

	after, _ := env.assignments.List(env.householdID, nil, nil)
	if len(after) != len(before) {
		t.Fatalf("row count changed: %d -> %d", len(before), len(after))
	}
	for i := range before {
		if before[i].ID != after[i].ID || !before[i].Date.Equal(*after[i].Date) ||
			(before[i].ChildID == nil) != (after[i].ChildID == nil) {
			t.Errorf("row %d mutated: %+v -> %+v", i, before[i], after[i])
		}
	}
}

func TestGeneratePartialOverlapExtends(t *testing.T) {
	env := setupEnv(t)
	env.createTask(t, "Feed the cat", 5, mustRule(t, "daily", ``), nil, nil)

	if _, err := env.generator.Generate(env.householdID, monday, 7); err != nil {
		t.Fatalf("generate: %v", err)
	}
	created, err := env.generator.Generate(env.householdID, monday.AddDate(0, 0, 5), 7)
	if err != nil {
		t.Fatalf("overlapping generate: %v", err)
	}
	if created != 5 {
		t.Errorf("created = %d, want 5 (two days overlapped)", created)
	}
}

func TestGeneratePreservesOverrides(t *testing.T) {
	env := setupEnv(t)
	ada, ben := env.childIDs[0], env.childIDs[1]
	env.createTask(t, "Feed the cat", 5,
		mustRule(t, "daily", fmt.Sprintf(`{"assigned_children":[%d]}`, ada)), nil, nil)

	if _, err := env.generator.Generate(env.householdID, monday, 3); err != nil {
		t.Fatalf("generate: %v", err)
	}
	assignments, _ := env.assignments.List(env.householdID, nil, nil)
	if err := env.reassigner.Reassign(assignments[0].ID, ben); err != nil {
		t.Fatalf("reassign: %v", err)
	}

	// Re-running the window must not put the rotation's answer back.
	if _, err := env.generator.Generate(env.householdID, monday, 3); err != nil {
		t.Fatalf("regenerate: %v", err)
	}
	a, _ := env.assignments.GetByID(assignments[0].ID)
	if a.ChildID == nil || *a.ChildID != ben {
		t.Errorf("override lost: child = %v, want %d", a.ChildID, ben)
	}
}

func TestGenerateWindowBounds(t *testing.T) {
	env := setupEnv(t)
	for _, days := range []int{0, -1, 366} {
		_, err := env.generator.Generate(env.householdID, monday, days)
		if !errors.Is(err, ErrInvalid) {
			t.Errorf("days=%d: err = %v, want ErrInvalid", days, err)
		}
	}
}

func TestGenerateSkipsInactiveTasks(t *testing.T) {
	env := setupEnv(t)
	task, err := env.tasks.Create(env.householdID, "Paused chore", 1, mustRule(t, "daily", ``), nil, false, nil)
	if err != nil {
		t.Fatalf("create task: %v", err)
	}

	created, err := env.generator.Generate(env.householdID, monday, 7)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if created != 0 {
		t.Errorf("created = %d for inactive task, want 0", created)
	}

	// Activation resumes generation without backfilling anything by itself.
	if _, err := env.tasks.SetActive(task.ID, true); err != nil {
		t.Fatalf("activate: %v", err)
	}
	created, _ = env.generator.Generate(env.householdID, monday, 7)
	if created != 7 {
		t.Errorf("created = %d after activation, want 7", created)
	}
}

func TestGenerateSkipsSingleTasks(t *testing.T) {
	env := setupEnv(t)
	env.createTask(t, "Wash the car", 20, mustRule(t, "single", ``), nil, env.childIDs)

	created, err := env.generator.Generate(env.householdID, monday, 7)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if created != 0 {
		t.Errorf("created = %d, want 0 — single tasks are not date-iterated", created)
	}

	// The one open slot came from activation, not from the window.
	assignments, _ := env.assignments.List(env.householdID, nil, nil)
	if len(assignments) != 1 {
		t.Fatalf("got %d assignments, want 1 open slot", len(assignments))
	}
	if assignments[0].Date != nil || assignments[0].ChildID != nil {
		t.Errorf("open slot should be dateless and unclaimed: %+v", assignments[0])
	}
}
