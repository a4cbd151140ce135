package http

import (
	"crypto/subtle"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/aretw0/youvisa/internal/logging"
	"github.com/aretw0/youvisa/pkg/ports"
	"github.com/aretw0/youvisa/pkg/runner"
)

// MaxRequestBody bounds inbound request bodies; attachments travel base64-encoded.
const MaxRequestBody = 32 << 20

// Server exposes the transport webhook and the reporting surface over HTTP.
type Server struct {
	Events  runner.EventHandler
	Store   ports.TaskStore
	Docs    ports.DocumentStorage
	Streams *StreamManager

	token   string
	metrics http.Handler
	logger  *slog.Logger
	version string
}

// Option configures the Server.
type Option func(*Server)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetrics mounts h on GET /metrics.
func WithMetrics(h http.Handler) Option {
	return func(s *Server) {
		s.metrics = h
	}
}

// WithVersion sets the version reported by GET /info.
func WithVersion(v string) Option {
	return func(s *Server) {
		s.version = v
	}
}

// WithStreams shares a StreamManager, e.g. one already wired to engine hooks.
func WithStreams(sm *StreamManager) Option {
	return func(s *Server) {
		if sm != nil {
			s.Streams = sm
		}
	}
}

// NewServer creates a Server. Every /v1 route requires "Authorization: Bearer <token>".
func NewServer(events runner.EventHandler, store ports.TaskStore, docs ports.DocumentStorage, token string, opts ...Option) *Server {
	s := &Server{
		Events:  events,
		Store:   store,
		Docs:    docs,
		token:   token,
		logger:  logging.NewNop(),
		version: "dev",
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.Streams == nil {
		s.Streams = NewStreamManager(s.logger)
	}
	return s
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.GetHealth)
	r.Get("/info", s.GetInfo)
	r.Get("/openapi.yaml", s.GetSpec)
	r.Get("/swagger", s.GetSwagger)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics)
	}

	r.Route("/v1", func(r chi.Router) {
		r.Use(s.requireToken)

		r.With(s.validateBody(http.MethodPost, "/v1/events")).Post("/events", s.PostEvent)

		r.Get("/users", s.ListUsers)
		r.Get("/countries", s.ListCountries)
		r.With(s.validateBody(http.MethodPost, "/v1/countries")).Post("/countries", s.AddCountry)
		r.Get("/tasks", s.ListTasks)
		r.Get("/tasks/events", s.SubscribeTaskEvents)
		r.Get("/tasks/{id}/documents", s.ListTaskDocuments)
		r.Post("/tasks/{id}/complete", s.CompleteTask)
		r.Get("/documents/{id}/content", s.GetDocumentContent)
	})

	return enableCORS(r)
}

func (s *Server) requireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || s.token == "" || subtle.ConstantTimeCompare([]byte(got), []byte(s.token)) != 1 {
			writeError(w, http.StatusUnauthorized, "missing or invalid bearer token")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// GetHealth handles the GET /health request.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetInfo handles the GET /info request.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"app":     "youvisa",
		"version": strings.TrimSpace(s.version),
	})
}

// -- Helpers --

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Debug("Response encode failed", "err", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
