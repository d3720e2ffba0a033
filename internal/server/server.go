package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"projector/internal/domain"
	"projector/internal/reconciler"
	"projector/pkg/logging"
)

// Sweeper runs and reports full sweeps.
type Sweeper interface {
	SyncAll(ctx context.Context, kinds ...reconciler.Kind) (reconciler.Report, error)
	Statuses() []reconciler.KindStatus
	LastReport() (reconciler.Report, bool)
	IsRunning() bool
}

// RepositoryLister provides the patterns priorities are resolved against.
type RepositoryLister interface {
	ListRepositories(ctx context.Context) ([]domain.Repository, error)
}

// Server is the status API HTTP server.
type Server struct {
	sweeper      Sweeper
	repositories RepositoryLister
	metrics      http.Handler

	router     chi.Router
	httpServer *http.Server

	// sweepCtx bounds sweeps started through the API.
	sweepCtx    context.Context
	sweepCancel context.CancelFunc
	sweeps      sync.WaitGroup
}

// New builds the router. metrics may be nil, in which case /metrics is not
// served.
func New(sweeper Sweeper, repositories RepositoryLister, metrics http.Handler) *Server {
	s := &Server{
		sweeper:      sweeper,
		repositories: repositories,
		metrics:      metrics,
	}
	s.sweepCtx, s.sweepCancel = context.WithCancel(context.Background())

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(LoggingMiddleware)

	r.Get("/healthz", s.handleHealth)
	r.Get("/status", s.handleStatus)
	r.Post("/sync", s.handleSync)
	r.Get("/priorities", s.handlePriorities)
	if metrics != nil {
		r.Method(http.MethodGet, "/metrics", metrics)
	}

	s.router = r
	return s
}

// Handler returns the HTTP handler of the API.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start listens on address and serves in the background.
func (s *Server) Start(address string) error {
	ln, err := net.Listen("tcp", address)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", address, err)
	}

	s.httpServer = &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Error("Server", err, "Status API stopped unexpectedly")
		}
	}()

	logging.Info("Server", "Status API listening on %s", ln.Addr())
	return nil
}

// Shutdown stops accepting requests, cancels sweeps started through the API
// and waits for them.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	if s.httpServer != nil {
		err = s.httpServer.Shutdown(ctx)
	}
	s.sweepCancel()

	done := make(chan struct{})
	go func() {
		s.sweeps.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		return errors.Join(err, ctx.Err())
	}
	return err
}

// LoggingMiddleware logs HTTP requests
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		logging.Debug("Server", "HTTP %s %s %d %s %s",
			r.Method,
			r.URL.Path,
			ww.Status(),
			time.Since(start),
			middleware.GetReqID(r.Context()),
		)
	})
}
