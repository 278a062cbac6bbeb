package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/ferncreek/chorewheel/internal/engine"
	"github.com/ferncreek/chorewheel/internal/model"
	"github.com/ferncreek/chorewheel/internal/rule"
	"github.com/ferncreek/chorewheel/internal/store"
	"github.com/ferncreek/chorewheel/internal/websocket"
)

type TaskHandler struct {
	tasks      *store.TaskStore
	households *store.HouseholdStore
	pool       *engine.Pool
	hub        *websocket.Hub
	logger     *slog.Logger
}

func NewTaskHandler(ts *store.TaskStore, hs *store.HouseholdStore, pool *engine.Pool, hub *websocket.Hub, logger *slog.Logger) *TaskHandler {
	return &TaskHandler{tasks: ts, households: hs, pool: pool, hub: hub, logger: logger}
}

type taskRequest struct {
	HouseholdID int64           `json:"household_id"`
	Name        string          `json:"name"`
	Points      int             `json:"points"`
	RuleType    string          `json:"rule_type"`
	Rule        json.RawMessage `json:"rule"`
	Deadline    *time.Time      `json:"deadline"`
	Active      *bool           `json:"active"`
}

func (h *TaskHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req taskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name is required"})
		return
	}

	parsed, err := rule.Parse(req.RuleType, req.Rule)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	household, err := h.households.GetByID(req.HouseholdID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get household"})
		return
	}
	if household == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "household not found"})
		return
	}

	active := true
	if req.Active != nil {
		active = *req.Active
	}

	var candidateIDs []int64
	if parsed.Type == rule.TypeSingle && active {
		candidateIDs, err = h.pool.SnapshotCandidates(req.HouseholdID, parsed.AssignedChildren)
		if err != nil {
			status, msg := errStatus(err)
			writeJSON(w, status, map[string]string{"error": msg})
			return
		}
	}

	task, err := h.tasks.Create(req.HouseholdID, req.Name, req.Points, parsed, req.Deadline, active, candidateIDs)
	if err != nil {
		h.logger.Error("create task", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to create task"})
		return
	}

	h.hub.Broadcast(websocket.NewEvent("task", "created", task.ID))
	writeJSON(w, http.StatusCreated, task)
}

func (h *TaskHandler) List(w http.ResponseWriter, r *http.Request) {
	householdID, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}
	tasks, err := h.tasks.ListByHousehold(householdID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list tasks"})
		return
	}
	if tasks == nil {
		tasks = []model.Task{}
	}
	writeJSON(w, http.StatusOK, tasks)
}

func (h *TaskHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	existing, err := h.tasks.GetByID(id)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get task"})
		return
	}
	if existing == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "task not found"})
		return
	}

	var req struct {
		Name     string     `json:"name"`
		Points   int        `json:"points"`
		Deadline *time.Time `json:"deadline"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name is required"})
		return
	}

	task, err := h.tasks.Update(id, req.Name, req.Points, req.Deadline)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to update task"})
		return
	}

	h.hub.Broadcast(websocket.NewEvent("task", "updated", id))
	writeJSON(w, http.StatusOK, task)
}

func (h *TaskHandler) Activate(w http.ResponseWriter, r *http.Request) {
	h.setActive(w, r, true)
}

func (h *TaskHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
	h.setActive(w, r, false)
}

func (h *TaskHandler) setActive(w http.ResponseWriter, r *http.Request, active bool) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	task, err := h.tasks.SetActive(id, active)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to update task"})
		return
	}
	if task == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "task not found"})
		return
	}

	action := "deactivated"
	if active {
		action = "activated"
	}
	h.hub.Broadcast(websocket.NewEvent("task", action, id))
	writeJSON(w, http.StatusOK, task)
}
