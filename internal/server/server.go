package server

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/ferncreek/chorewheel/internal/engine"
	"github.com/ferncreek/chorewheel/internal/handler"
	"github.com/ferncreek/chorewheel/internal/middleware"
	"github.com/ferncreek/chorewheel/internal/store"
	ws "github.com/ferncreek/chorewheel/internal/websocket"
)

type Server struct {
	db          *sql.DB
	hub         *ws.Hub
	householdH  *handler.HouseholdHandler
	taskH       *handler.TaskHandler
	assignmentH *handler.AssignmentHandler
	rateLimiter *middleware.RateLimiter
	logger      *slog.Logger
}

func New(db *sql.DB, logger *slog.Logger) *Server {
	hub := ws.NewHub(logger.With("component", "websocket"))

	householdStore := store.NewHouseholdStore(db)
	childStore := store.NewChildStore(db)
	taskStore := store.NewTaskStore(db)
	assignmentStore := store.NewAssignmentStore(db)

	engineLogger := logger.With("component", "engine")
	generator := engine.NewGenerator(taskStore, assignmentStore, engineLogger)
	pool := engine.NewPool(taskStore, assignmentStore, childStore, engineLogger)
	viewer := engine.NewViewer(taskStore, assignmentStore)
	reassigner := engine.NewReassigner(taskStore, assignmentStore, childStore, engineLogger)

	return &Server{
		db:          db,
		hub:         hub,
		householdH:  handler.NewHouseholdHandler(householdStore, childStore, hub, logger.With("component", "household")),
		taskH:       handler.NewTaskHandler(taskStore, householdStore, pool, hub, logger.With("component", "task")),
		assignmentH: handler.NewAssignmentHandler(generator, viewer, pool, reassigner, hub, logger.With("component", "assignment")),
		rateLimiter: middleware.NewRateLimiter(),
		logger:      logger,
	}
}

// RateLimiter returns the rate limiter for periodic cleanup.
func (s *Server) RateLimiter() *middleware.RateLimiter {
	return s.rateLimiter
}

func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.healthHandler)

	// Households and roster
	mux.HandleFunc("POST /api/households", s.householdH.Create)
	mux.HandleFunc("GET /api/households/{id}", s.householdH.Get)
	mux.HandleFunc("PUT /api/households/{id}", s.householdH.Rename)
	mux.HandleFunc("GET /api/households/{id}/children", s.householdH.ListChildren)
	mux.HandleFunc("POST /api/households/{id}/children", s.householdH.CreateChild)
	mux.HandleFunc("PUT /api/children/{id}", s.householdH.UpdateChild)
	mux.HandleFunc("DELETE /api/children/{id}", s.householdH.DeleteChild)
	mux.HandleFunc("POST /api/children/{id}/pin", s.householdH.SetPIN)
	mux.HandleFunc("DELETE /api/children/{id}/pin", s.householdH.ClearPIN)
	mux.HandleFunc("POST /api/children/{id}/pin/verify", s.householdH.VerifyPIN)

	// Tasks
	mux.HandleFunc("POST /api/tasks", s.taskH.Create)
	mux.HandleFunc("GET /api/households/{id}/tasks", s.taskH.List)
	mux.HandleFunc("PUT /api/tasks/{id}", s.taskH.Update)
	mux.HandleFunc("POST /api/tasks/{id}/activate", s.taskH.Activate)
	mux.HandleFunc("POST /api/tasks/{id}/deactivate", s.taskH.Deactivate)

	// Assignments
	mux.HandleFunc("POST /api/households/{id}/assignments/generate", s.assignmentH.Generate)
	mux.HandleFunc("GET /api/households/{id}/assignments", s.assignmentH.View)
	mux.HandleFunc("POST /api/assignments/manual", s.assignmentH.CreateManual)
	mux.HandleFunc("POST /api/assignments/{id}/reassign", s.assignmentH.Reassign)
	mux.HandleFunc("POST /api/assignments/{id}/complete", s.assignmentH.Complete)

	// Claim workflow — rate-limited, children mash buttons
	mux.Handle("POST /api/tasks/{id}/respond", s.rateLimited(s.assignmentH.Respond))
	mux.Handle("POST /api/tasks/{id}/withdraw", s.rateLimited(s.assignmentH.Withdraw))

	// WebSocket
	mux.HandleFunc("GET /ws", ws.Handler(s.hub, s.logger.With("component", "websocket")))

	return middleware.RequestLogger(s.logger.With("component", "http"))(mux)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) rateLimited(h http.HandlerFunc) http.Handler {
	return middleware.RateLimit(s.rateLimiter, middleware.RealIP, 30, time.Minute)(h)
}
