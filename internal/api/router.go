// Package api exposes the batch runner, the queue worker and job
// administration over HTTP.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/alexanderksmi/doffin-hunter/internal/evaluate"
	"github.com/alexanderksmi/doffin-hunter/internal/queue"
	"github.com/alexanderksmi/doffin-hunter/internal/store"
)

// BatchRunner runs batch evaluations.
type BatchRunner interface {
	RunBatch(ctx context.Context, orgID string, mode evaluate.Mode) (*evaluate.BatchResult, error)
	RunAll(ctx context.Context, mode evaluate.Mode) (*evaluate.RunAllResult, error)
}

// WorkerRunner drains the job queue for one invocation.
type WorkerRunner interface {
	Run(ctx context.Context) (queue.RunSummary, error)
}

// Pinger reports storage health.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps are the collaborators the router dispatches to.
type Deps struct {
	Runner BatchRunner
	Worker WorkerRunner
	Jobs   store.JobStore
	Health Pinger

	// MaxRetries is the retry budget of jobs enqueued over HTTP unless the
	// request sets its own.
	MaxRetries int
	// AllowedOrigins for CORS; empty allows any origin.
	AllowedOrigins []string
}

type server struct {
	deps     Deps
	now      func() time.Time
	evaluate *validator
	enqueue  *validator
}

// NewRouter builds the HTTP handler.
func NewRouter(deps Deps) http.Handler {
	s := &server{
		deps:     deps,
		now:      func() time.Time { return time.Now().UTC() },
		evaluate: mustValidator(evaluateSchema),
		enqueue:  mustValidator(enqueueSchema),
	}

	origins := deps.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.Post("/evaluate", s.handleEvaluate)
	r.Post("/worker", s.handleWorker)

	r.Route("/jobs", func(r chi.Router) {
		r.Post("/", s.handleEnqueue)
		r.Get("/", s.handleListJobs)
		r.Get("/{id}", s.handleGetJob)
		r.Post("/{id}/requeue", s.handleRequeue)
	})

	return r
}
