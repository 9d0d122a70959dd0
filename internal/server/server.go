package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/omriShneor/project_gochi/internal/pet"
)

// Responder answers one user message
type Responder interface {
	Respond(ctx context.Context, in pet.Input) (pet.Output, error)
}

// CalendarStatus reports whether calendar credentials are usable
type CalendarStatus interface {
	IsAuthenticated() bool
}

type Server struct {
	brain     Responder
	calendar  CalendarStatus
	modelName string
	logger    zerolog.Logger
	httpSrv   *http.Server
	port      int
}

// ServerConfig holds everything the server needs. Calendar may be nil.
type ServerConfig struct {
	Brain     Responder
	Calendar  CalendarStatus
	ModelName string
	Port      int
	Logger    zerolog.Logger
}

func New(cfg ServerConfig) *Server {
	s := &Server{
		brain:     cfg.Brain,
		calendar:  cfg.Calendar,
		modelName: cfg.ModelName,
		logger:    cfg.Logger,
		port:      cfg.Port,
	}

	s.httpSrv = &http.Server{
		Addr:        fmt.Sprintf(":%d", cfg.Port),
		Handler:     s.routes(),
		ReadTimeout: 15 * time.Second,
		// Generation on a CPU-only runtime can take a while.
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(s.requestLogger)
	r.Use(chimw.Recoverer)
	r.Use(s.corsMiddleware)

	r.Get("/health", s.handleHealthCheck)
	r.Post("/respond", s.handleRespond)

	return r
}

func (s *Server) Start() error {
	s.logger.Info().Int("port", s.port).Msgf("Starting HTTP server on http://localhost:%d", s.port)
	return s.httpSrv.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpSrv.Shutdown(ctx)
}

// Handler returns the server's HTTP handler for testing purposes
func (s *Server) Handler() http.Handler {
	return s.httpSrv.Handler
}

// corsMiddleware adds CORS headers so the app's front end can call the server directly
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		// Handle preflight requests
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// requestLogger logs one line per request with its status and duration
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		defer func() {
			s.logger.Info().
				Str("request_id", chimw.GetReqID(r.Context())).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Int("bytes", ww.BytesWritten()).
				Dur("duration", time.Since(start)).
				Msg("request")
		}()

		next.ServeHTTP(ww, r)
	})
}
