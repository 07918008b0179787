package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"ai_content_workflow/generator"
	"ai_content_workflow/history"
	"ai_content_workflow/metrics"
)

const defaultTimeout = 60 * time.Second

type Server struct {
	exec    *generator.Executor
	history history.Store
	store   *sessionStore
	metrics *metrics.Metrics
	logger  *zap.Logger
	timeout time.Duration
}

// Options carries the optional collaborators of a Server.
type Options struct {
	// Timeout bounds each stage execution; zero means 60s.
	Timeout time.Duration
	Logger  *zap.Logger
	Metrics *metrics.Metrics
}

// sessionEntry serializes all work on one session.
type sessionEntry struct {
	mu   sync.Mutex
	sess *generator.Session
}

type sessionStore struct {
	mu       sync.Mutex
	sessions map[string]*sessionEntry
}

func newStore() *sessionStore {
	return &sessionStore{sessions: make(map[string]*sessionEntry)}
}

func (s *sessionStore) set(id string, sess *generator.Session) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[id] = &sessionEntry{sess: sess}
	return len(s.sessions)
}

func (s *sessionStore) get(id string) (*sessionEntry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.sessions[id]
	return e, ok
}

func (s *sessionStore) remove(id string) (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.sessions[id]
	delete(s.sessions, id)
	return len(s.sessions), ok
}

func New(exec *generator.Executor, runs history.Store, opts Options) (*Server, error) {
	if exec == nil {
		return nil, errors.New("stage executor required")
	}
	if runs == nil {
		return nil, errors.New("history store required")
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Server{
		exec:    exec,
		history: runs,
		store:   newStore(),
		metrics: opts.Metrics,
		logger:  opts.Logger,
		timeout: opts.Timeout,
	}, nil
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(s.logMiddleware)
	if s.metrics != nil {
		r.Handle("/metrics", s.metrics.Handler())
	}
	r.Route("/api", func(r chi.Router) {
		r.Get("/tones", s.handleTones)
		r.Get("/runs", s.handleRunsList)
		r.Post("/sessions", s.handleSessionCreate)
		r.Route("/sessions/{id}", func(r chi.Router) {
			r.Get("/", s.handleSessionGet)
			r.Put("/", s.handleSessionRestart)
			r.Delete("/", s.handleSessionDelete)
			r.Post("/stages/{stage}", s.handleStageRun)
			r.Put("/stages/{stage}", s.handleStageEdit)
			r.Post("/save", s.handleSave)
			r.Get("/export", s.handleExport)
		})
	})
	return r
}

// --- Helpers ---

// withSession looks up the session named in the path and runs fn while holding its lock.
func (s *Server) withSession(w http.ResponseWriter, r *http.Request, fn func(*generator.Session)) {
	id := chi.URLParam(r, "id")
	e, ok := s.store.get(id)
	if !ok {
		writeError(w, http.StatusNotFound, codeNotFound, "session not found", nil)
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	fn(e.sess)
}

func (s *Server) stageContext(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), s.timeout)
}

func newSessionID() string {
	return uuid.NewString()
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) logMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("duration", time.Since(start)),
		)
	})
}
