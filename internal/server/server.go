// Package server wires the task API handlers into an HTTP server.
package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/ajithabhiram/Kaiburr-task2/internal/server/handlers"
	"github.com/ajithabhiram/Kaiburr-task2/internal/server/middleware"
)

// Server is the HTTP server for the task API.
type Server struct {
	httpServer *http.Server
}

// Config carries the server settings.
type Config struct {
	Addr         string
	ExecuteRate  float64
	ExecuteBurst int
}

// New creates a new task API server.
func New(cfg Config, store handlers.Storer, exec handlers.Executor, metricsHandler http.Handler, log *slog.Logger) *Server {
	h := handlers.New(store, exec)
	limitMW := middleware.RateLimit(cfg.ExecuteRate, cfg.ExecuteBurst)

	mux := http.NewServeMux()

	mux.HandleFunc("PUT /tasks", h.PutTask)
	mux.HandleFunc("GET /tasks", h.GetTasks)
	mux.HandleFunc("GET /tasks/search", h.SearchTasks)
	mux.HandleFunc("GET /tasks/{id}", h.GetTask)
	mux.HandleFunc("DELETE /tasks/{id}", h.DeleteTask)

	// Execution launches provision cluster resources, so they are rate limited.
	mux.Handle("PUT /tasks/{id}/executions", limitMW(http.HandlerFunc(h.RunTaskExecution)))

	mux.HandleFunc("GET /healthz", h.Healthz)
	mux.HandleFunc("GET /readyz", h.Readyz)

	if metricsHandler != nil {
		mux.Handle("GET /metrics", metricsHandler)
	}

	root := middleware.RequestID(middleware.Logging(log)(mux))

	return &Server{
		httpServer: &http.Server{
			Addr:        cfg.Addr,
			Handler:     root,
			ReadTimeout: 10 * time.Second,
			// Execution requests block until the sandbox terminates, so the
			// write timeout must sit above the execution deadline.
			WriteTimeout: 120 * time.Second,
		},
	}
}

// Run starts the HTTP server. It blocks until the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	serverErr := make(chan error, 1)

	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		return err
	case <-ctx.Done():
		shutDownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		return s.Shutdown(shutDownCtx)
	}
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
