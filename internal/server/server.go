// Package server exposes a storage.Provider over HTTP so several clients can
// share one backend.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"golang.org/x/time/rate"

	"github.com/julianstephens/tally/internal/logger"
	"github.com/julianstephens/tally/internal/storage"
)

// Options configure the HTTP surface.
type Options struct {
	// AllowedOrigins for CORS. Defaults to any origin.
	AllowedOrigins []string
	// AuthRate and AuthBurst limit /auth requests per client IP.
	AuthRate  rate.Limit
	AuthBurst int
}

// Server routes HTTP requests to a backend.
type Server struct {
	backend storage.Provider
	router  chi.Router
	limiter *ipLimiter
}

// New builds the router for backend.
func New(backend storage.Provider, opts Options) *Server {
	if len(opts.AllowedOrigins) == 0 {
		opts.AllowedOrigins = []string{"*"}
	}
	if opts.AuthRate == 0 {
		opts.AuthRate = rate.Limit(5)
	}
	if opts.AuthBurst == 0 {
		opts.AuthBurst = 10
	}

	s := &Server{
		backend: backend,
		limiter: newIPLimiter(opts.AuthRate, opts.AuthBurst),
	}

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(requestLogger)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: opts.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	r.Route("/auth/v1", func(r chi.Router) {
		r.Use(s.limiter.middleware)
		r.Post("/signup", s.handleSignUp)
		r.Post("/token", s.handleToken)
		r.Post("/authorize", s.handleAuthorize)
		r.Post("/logout", s.handleLogout)
		r.With(s.bearerAuth).Get("/user", s.handleUser)
	})

	r.Route("/rest/v1", func(r chi.Router) {
		r.Use(s.bearerAuth)
		r.Route("/habits", func(r chi.Router) {
			r.Get("/", s.handleListHabits)
			r.Post("/", s.handleInsertHabit)
			r.Get("/{id}", s.handleGetHabit)
			r.Patch("/{id}", s.handleUpdateHabit)
			r.Delete("/{id}", s.handleDeleteHabit)
		})
		r.Put("/profiles", s.handleUpsertProfile)
		r.Get("/habit_logs", s.handleListHabitLogs)
		r.Post("/habit_logs", s.handleInsertHabitLog)
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	s.router = r
	return s
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves on addr until ctx is canceled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ErrorLog:          logger.StandardLog(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Server starting", "addr", addr, "backend", s.backend.Location())
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		logger.Info("Server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
