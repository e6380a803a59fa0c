// Package api exposes the read-only query layer over derived workflow
// state. Handlers never mutate anything; during startup replay readers may
// briefly observe missing workflow rows, which is reported as a normal 404.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	apphttp "github.com/clearstream/workflow-indexer/pkg/app/http"
	"github.com/clearstream/workflow-indexer/pkg/db"
	"github.com/clearstream/workflow-indexer/pkg/workflow"
)

// Store is the read-only subset of database operations the query layer needs.
type Store interface {
	ListWorkflowStates(ctx context.Context, limit, offset int) ([]*workflow.State, error)
	GetWorkflowState(ctx context.Context, workflowID string) (*workflow.State, error)
	ListEventsByWorkflow(ctx context.Context, workflowID string) ([]workflow.Event, error)
	CountWorkflowsByStatus(ctx context.Context) (map[workflow.Status]int64, error)
	CountEvents(ctx context.Context) (int64, error)
	CountWorkflows(ctx context.Context) (int64, error)
	GetSystemState(ctx context.Context) (*db.SystemState, error)
}

// Server holds the query-layer dependencies.
type Server struct {
	store  Store
	logger *zap.Logger
	ready  func() bool
}

// NewServer creates the query layer. ready reports whether the startup
// replay barrier has been passed; until then /ready returns 503.
func NewServer(store Store, logger *zap.Logger, ready func() bool) *Server {
	return &Server{store: store, logger: logger, ready: ready}
}

// Router builds the chi router with the standard middleware stack.
func (s *Server) Router(metricsEnabled bool) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	r.Get("/ready", func(w http.ResponseWriter, r *http.Request) {
		if !s.ready() {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte("NOT_READY"))
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("READY"))
	})

	if metricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/workflows", apphttp.HandleError(s.listWorkflows))
		r.Get("/workflows/{id}", apphttp.HandleError(s.getWorkflow))
		r.Get("/stats", apphttp.HandleError(s.getStats))
		r.Get("/progress", apphttp.HandleError(s.getProgress))
	})

	return r
}
