// Package daemon serves the verifier, lesson content and progress ledger over HTTP.
package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/felixgeelhaar/circuitscribe/internal/auth"
	"github.com/felixgeelhaar/circuitscribe/internal/catalog"
	"github.com/felixgeelhaar/circuitscribe/internal/domain"
	"github.com/felixgeelhaar/circuitscribe/internal/lesson"
	"github.com/felixgeelhaar/circuitscribe/internal/progress"
	"github.com/felixgeelhaar/circuitscribe/internal/report"
	"github.com/felixgeelhaar/circuitscribe/internal/verifier"
	"github.com/felixgeelhaar/fortify/ratelimit"
)

// maxBodyBytes bounds request bodies; sketches are small
const maxBodyBytes = 256 << 10

// Server represents the Circuit Scribe daemon HTTP server
type Server struct {
	server *http.Server
	router *http.ServeMux

	version     string
	storeDriver string

	ledger   progress.Ledger
	catalog  *catalog.Catalog
	lessons  *lesson.Book
	verifier *verifier.Verifier
	auth     auth.Authenticator
	limiter  ratelimit.RateLimiter
}

// ServerConfig holds configuration for creating a new server
type ServerConfig struct {
	Addr        string
	Version     string
	StoreDriver string

	Ledger  progress.Ledger
	Auth    auth.Authenticator
	Catalog *catalog.Catalog // defaults to catalog.Default()
	Lessons *lesson.Book     // defaults to lesson.Default()

	// VerifyLimiter throttles the anonymous verify endpoint. Nil disables it.
	VerifyLimiter ratelimit.RateLimiter
}

// NewServer creates a new daemon server
func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Ledger == nil {
		return nil, errors.New("ledger is required")
	}
	if cfg.Auth == nil {
		return nil, errors.New("authenticator is required")
	}
	if cfg.Catalog == nil {
		cfg.Catalog = catalog.Default()
	}
	if cfg.Lessons == nil {
		cfg.Lessons = lesson.Default()
	}

	s := &Server{
		router:      http.NewServeMux(),
		version:     cfg.Version,
		storeDriver: cfg.StoreDriver,
		ledger:      cfg.Ledger,
		catalog:     cfg.Catalog,
		lessons:     cfg.Lessons,
		verifier:    verifier.New(cfg.Catalog),
		auth:        cfg.Auth,
		limiter:     cfg.VerifyLimiter,
	}

	s.setupRoutes()

	s.server = &http.Server{
		Addr:         cfg.Addr,
		Handler:      s.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return s, nil
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	// Health & status
	s.router.HandleFunc("GET /v1/health", s.handleHealth)
	s.router.HandleFunc("GET /v1/status", s.handleStatus)

	// Challenges
	s.router.HandleFunc("GET /v1/challenges", s.handleListChallenges)
	s.router.HandleFunc("GET /v1/challenges/{id}", s.handleGetChallenge)
	s.router.HandleFunc("POST /v1/challenges/{id}/verify", rateLimit(s.limiter, s.handleVerify))
	s.router.HandleFunc("POST /v1/challenges/{id}/submit", requireLearner(s.auth, s.handleSubmit))

	// Lessons
	s.router.HandleFunc("GET /v1/lessons", s.handleListLessons)
	s.router.HandleFunc("GET /v1/lessons/{day}", s.handleGetLesson)

	// Profile
	s.router.HandleFunc("POST /v1/profile/login", requireLearner(s.auth, s.handleLogin))
	s.router.HandleFunc("GET /v1/profile", requireLearner(s.auth, s.handleGetProfile))
	s.router.HandleFunc("POST /v1/profile/challenges/{id}", requireLearner(s.auth, s.handleMarkChallenge))
	s.router.HandleFunc("POST /v1/profile/days/{day}", requireLearner(s.auth, s.handleMarkDay))
	s.router.HandleFunc("PUT /v1/profile/current-day", requireLearner(s.auth, s.handleSetCurrentDay))
	s.router.HandleFunc("POST /v1/profile/quizzes/{quiz}", requireLearner(s.auth, s.handleQuizScore))
	s.router.HandleFunc("POST /v1/profile/xp", requireLearner(s.auth, s.handleAwardXP))
	s.router.HandleFunc("GET /v1/profile/report.xlsx", requireLearner(s.auth, s.handleReport(xlsxContentType, ".xlsx", report.Write)))
	s.router.HandleFunc("GET /v1/profile/report.pdf", requireLearner(s.auth, s.handleReport(pdfContentType, ".pdf", report.WritePDF)))
}

// Handler returns the router wrapped in the middleware chain
func (s *Server) Handler() http.Handler {
	return correlationIDMiddleware(recoveryMiddleware(loggingMiddleware(s.router)))
}

// Start listens on the configured address until Shutdown
func (s *Server) Start() error {
	slog.Info("starting circuit scribe daemon",
		"addr", s.server.Addr,
		"store", s.storeDriver,
		"challenges", s.catalog.Len(),
	)
	err := s.server.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown stops accepting requests and waits for in-flight ones
func (s *Server) Shutdown(ctx context.Context) error {
	slog.Info("shutting down daemon...")
	return s.server.Shutdown(ctx)
}

// statusFor maps domain errors onto HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrProfileNotFound),
		errors.Is(err, domain.ErrChallengeNotFound),
		errors.Is(err, domain.ErrLessonNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrStoreUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, message string, err error) {
	status := statusFor(err)
	if status >= 500 {
		slog.Error(message, "error", err)
	}
	jsonError(w, status, message, err)
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: invalid request body: %v", domain.ErrInvalidInput, err)
	}
	return nil
}

func jsonResponse(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func jsonError(w http.ResponseWriter, status int, message string, err error) {
	response := map[string]interface{}{
		"error":  message,
		"status": status,
	}
	if err != nil {
		response["details"] = err.Error()
	}
	jsonResponse(w, status, response)
}
