package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/ferncreek/chorewheel/internal/engine"
	"github.com/ferncreek/chorewheel/internal/websocket"
)

type AssignmentHandler struct {
	generator  *engine.Generator
	viewer     *engine.Viewer
	pool       *engine.Pool
	reassigner *engine.Reassigner
	hub        *websocket.Hub
	logger     *slog.Logger
}

func NewAssignmentHandler(g *engine.Generator, v *engine.Viewer, p *engine.Pool, re *engine.Reassigner, hub *websocket.Hub, logger *slog.Logger) *AssignmentHandler {
	return &AssignmentHandler{generator: g, viewer: v, pool: p, reassigner: re, hub: hub, logger: logger}
}

// errStatus maps engine errors onto HTTP status codes. Conflicts (lost
// claim races, duplicate manual assignments, completed-assignment guards)
// are 409 so callers can tell them from plain failures.
func errStatus(err error) (int, string) {
	switch {
	case errors.Is(err, engine.ErrNotFound):
		return http.StatusNotFound, err.Error()
	case errors.Is(err, engine.ErrInvalid):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, engine.ErrNotCandidate):
		return http.StatusForbidden, err.Error()
	case errors.Is(err, engine.ErrAlreadyClaimed),
		errors.Is(err, engine.ErrAlreadyExists),
		errors.Is(err, engine.ErrCompleted),
		errors.Is(err, engine.ErrExpired),
		errors.Is(err, engine.ErrNotClaimant):
		return http.StatusConflict, err.Error()
	default:
		return http.StatusInternalServerError, "internal error"
	}
}

func (h *AssignmentHandler) Generate(w http.ResponseWriter, r *http.Request) {
	householdID, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	var req struct {
		Start string `json:"start"`
		Days  int    `json:"days"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	start, err := time.Parse("2006-01-02", req.Start)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "start must be a date (YYYY-MM-DD)"})
		return
	}

	created, err := h.generator.Generate(householdID, start, req.Days)
	if err != nil {
		h.logger.Error("generate", "household_id", householdID, "error", err)
		status, msg := errStatus(err)
		writeJSON(w, status, map[string]string{"error": msg})
		return
	}

	if created > 0 {
		h.hub.Broadcast(websocket.NewEvent("assignment", "generated", householdID))
	}
	writeJSON(w, http.StatusOK, map[string]int{"created": created})
}

func (h *AssignmentHandler) View(w http.ResponseWriter, r *http.Request) {
	householdID, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	var f engine.Filters
	q := r.URL.Query()
	if v := q.Get("date"); v != "" {
		d, err := time.Parse("2006-01-02", v)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "date must be YYYY-MM-DD"})
			return
		}
		f.Date = &d
	}
	if v := q.Get("days"); v != "" {
		days, err := strconv.Atoi(v)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "days must be an integer"})
			return
		}
		f.Days = days
	}
	if v := q.Get("status"); v != "" {
		f.Status = engine.Status(v)
	}
	if v := q.Get("child_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "child_id must be an integer"})
			return
		}
		f.ChildID = &id
	}

	views, err := h.viewer.View(householdID, f, time.Now())
	if err != nil {
		status, msg := errStatus(err)
		writeJSON(w, status, map[string]string{"error": msg})
		return
	}
	if views == nil {
		views = []engine.AssignmentView{}
	}
	writeJSON(w, http.StatusOK, views)
}

func (h *AssignmentHandler) Respond(w http.ResponseWriter, r *http.Request) {
	taskID, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	var req struct {
		ChildID  int64  `json:"child_id"`
		Response string `json:"response"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	if err := h.pool.Respond(taskID, req.ChildID, req.Response, time.Now()); err != nil {
		status, msg := errStatus(err)
		writeJSON(w, status, map[string]string{"error": msg})
		return
	}

	h.hub.Broadcast(websocket.NewEvent("task", "responded", taskID))
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *AssignmentHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	taskID, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	var req struct {
		ChildID int64 `json:"child_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	if err := h.pool.Withdraw(taskID, req.ChildID); err != nil {
		status, msg := errStatus(err)
		writeJSON(w, status, map[string]string{"error": msg})
		return
	}

	h.hub.Broadcast(websocket.NewEvent("task", "withdrawn", taskID))
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *AssignmentHandler) Reassign(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	var req struct {
		ChildID int64 `json:"child_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	if err := h.reassigner.Reassign(id, req.ChildID); err != nil {
		status, msg := errStatus(err)
		writeJSON(w, status, map[string]string{"error": msg})
		return
	}

	h.hub.Broadcast(websocket.NewEvent("assignment", "reassigned", id))
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *AssignmentHandler) CreateManual(w http.ResponseWriter, r *http.Request) {
	var req struct {
		TaskID  int64  `json:"task_id"`
		ChildID *int64 `json:"child_id"`
		Date    string `json:"date"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "date must be a date (YYYY-MM-DD)"})
		return
	}

	a, err := h.reassigner.CreateManual(req.TaskID, req.ChildID, date)
	if err != nil {
		status, msg := errStatus(err)
		writeJSON(w, status, map[string]string{"error": msg})
		return
	}

	h.hub.Broadcast(websocket.NewEvent("assignment", "created", a.ID))
	writeJSON(w, http.StatusCreated, a)
}

func (h *AssignmentHandler) Complete(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	// The body is optional: an empty one means credit the assignee.
	var req struct {
		ChildID *int64 `json:"child_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && err != io.EOF {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	completion, err := h.reassigner.Complete(id, req.ChildID)
	if err != nil {
		status, msg := errStatus(err)
		writeJSON(w, status, map[string]string{"error": msg})
		return
	}

	h.hub.Broadcast(websocket.NewEvent("assignment", "completed", id))
	writeJSON(w, http.StatusCreated, completion)
}
