package server

import (
	"context"
	"net/http"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/tripcrew/store"
	"github.com/effective-security/tripcrew/travel"
	"github.com/effective-security/xlog"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/tripcrew", "server")

// Headers
const (
	HeaderRunID     = "X-Run-ID"
	HeaderRequestID = "X-Request-ID"
)

const (
	// DefaultListen is the default listen address
	DefaultListen = ":8000"
	// DefaultShutdownTimeout bounds the graceful shutdown
	DefaultShutdownTimeout = 30 * time.Second

	maxBodySize = 1 << 20
)

// Service is the travel planning service exposed over HTTP.
// orchestrator.Service implements it.
type Service interface {
	GenerateItinerary(ctx context.Context, req *travel.ItineraryRequest) (*travel.ItineraryResult, error)
	ResearchMarket(ctx context.Context, req *travel.ResearchRequest) (*travel.MarketResearchResult, error)
	Run(ctx context.Context, id string) (*store.Run, error)
	Runs(ctx context.Context, limit int) ([]*store.Run, error)
}

// Config of the HTTP server
type Config struct {
	Listen          string        `json:"listen" yaml:"listen"`
	ShutdownTimeout time.Duration `json:"shutdown_timeout" yaml:"shutdown_timeout"`
}

// Server is the HTTP server
type Server struct {
	cfg     Config
	svc     Service
	handler http.Handler
}

// New returns the Server
func New(cfg *Config, svc Service) *Server {
	s := &Server{
		svc: svc,
	}
	if cfg != nil {
		s.cfg = *cfg
	}
	if s.cfg.Listen == "" {
		s.cfg.Listen = DefaultListen
	}
	if s.cfg.ShutdownTimeout <= 0 {
		s.cfg.ShutdownTimeout = DefaultShutdownTimeout
	}
	s.handler = s.routes()
	return s
}

// Handler returns the HTTP handler of the Server
func (s *Server) Handler() http.Handler {
	return s.handler
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(chimw.RealIP)
	r.Use(requestLogger)
	r.Use(chimw.Recoverer)

	r.Get("/health", s.health)
	r.Post("/generate", s.generate)
	r.Post("/research", s.research)
	r.Get("/runs", s.listRuns)
	r.Get("/runs/{id}", s.getRun)

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	return otelhttp.NewHandler(r, "tripcrew",
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return r.Method + " " + r.URL.Path
		}),
	)
}

// ListenAndServe serves HTTP until ctx is done
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Listen,
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.KV(xlog.INFO, "status", "listening", "addr", s.cfg.Listen)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return errors.Wrap(err, "failed to serve")
	case <-ctx.Done():
	}

	logger.KV(xlog.INFO, "status", "shutting_down")
	sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		return errors.Wrap(err, "failed to shutdown")
	}
	return nil
}
