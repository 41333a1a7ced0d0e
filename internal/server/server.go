package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"golang.org/x/time/rate"

	"codeberg.org/snonux/studycards/internal/image"
	"codeberg.org/snonux/studycards/internal/remote"
)

// Backend is what the server serves: the collaborator operations plus OCR
// only extraction and counter reset. Both llm.Client and remote.HTTPClient
// satisfy it.
type Backend interface {
	remote.Client
	ExtractText(ctx context.Context, img *image.Upload) (*remote.Extraction, error)
	ResetStatistics(ctx context.Context) error
}

// Options configures a Server
type Options struct {
	Addr           string
	RequestsPerSec float64  // 0 disables rate limiting
	Burst          int      // defaults to twice the rate
	AllowedOrigins []string // CORS origins for browser front ends
	Logger         *slog.Logger
}

// DefaultOptions returns the options used by `studycards serve`
func DefaultOptions() *Options {
	return &Options{
		Addr:           "localhost:8000",
		RequestsPerSec: 5,
		AllowedOrigins: []string{"http://localhost:5173", "http://localhost:3000"},
	}
}

// Server is the collaborator HTTP service
type Server struct {
	backend  Backend
	opts     Options
	limiter  *rate.Limiter
	validate *validator.Validate
	logger   *slog.Logger
	router   chi.Router
}

// New creates a server for backend
func New(backend Backend, opts *Options) *Server {
	if opts == nil {
		opts = DefaultOptions()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		backend:  backend,
		opts:     *opts,
		validate: validator.New(),
		logger:   logger,
	}
	if opts.RequestsPerSec > 0 {
		burst := opts.Burst
		if burst <= 0 {
			burst = int(opts.RequestsPerSec * 2)
			if burst < 1 {
				burst = 1
			}
		}
		s.limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSec), burst)
	}
	s.router = s.routes()
	return s
}

// Handler returns the root handler
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)
	r.Use(s.cors)

	r.Get("/health", s.handleHealth)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(s.rateLimit)

		r.Post("/flashcards/text", s.handleGenerateText)
		r.Post("/ocr/extract", s.handleExtract)
		r.Post("/ocr/extract-and-generate", s.handleGenerateImage)
		r.Post("/tts/generate-and-download", s.handleSpeech)
		r.Get("/stats/", s.handleStats)
		r.Post("/stats/reset", s.handleStatsReset)
	})
	return r
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.opts.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("collaborator server listening", "addr", s.opts.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.logger.Info("shutting down collaborator server")
		return srv.Shutdown(shutdownCtx)
	}
}
