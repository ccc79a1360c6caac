package api

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/JakeFAU/activity-heatmap/internal/logging"
	"github.com/JakeFAU/activity-heatmap/internal/metrics"
	"github.com/JakeFAU/activity-heatmap/internal/report"
)

// Runner rebuilds the report.
type Runner interface {
	Run(ctx context.Context) (report.Result, error)
}

// IDGenerator produces rebuild identifiers.
type IDGenerator interface {
	NewID() (string, error)
}

// Clock supplies timestamps for run records.
type Clock interface {
	Now() time.Time
}

// RunStatus is the lifecycle state of a rebuild.
type RunStatus string

// Rebuild states.
const (
	RunStatusRunning   RunStatus = "running"
	RunStatusSucceeded RunStatus = "succeeded"
	RunStatusFailed    RunStatus = "failed"
)

// Run records one rebuild.
type Run struct {
	ID        string    `json:"id"`
	Status    RunStatus `json:"status"`
	Submitted time.Time `json:"submitted"`
	Completed time.Time `json:"completed,omitzero"`
	Entries   int       `json:"entries"`
	Artifacts []string  `json:"artifacts,omitempty"`
	Error     string    `json:"error,omitempty"`
}

// Config tunes the server.
type Config struct {
	// DocsDir is served at the root and must exist for /readyz to pass.
	DocsDir string
	// RunTimeout bounds one background rebuild. Zero means no limit.
	RunTimeout time.Duration
}

// Server wires HTTP handlers to the pipeline and the docs directory.
type Server struct {
	router chi.Router
	runner Runner
	idGen  IDGenerator
	clock  Clock
	cfg    Config
	logger *zap.Logger

	mu     sync.Mutex
	latest *Run
	wg     sync.WaitGroup
}

// NewServer constructs a Server with middleware and routes.
func NewServer(runner Runner, idGen IDGenerator, clock Clock, cfg Config, logger *zap.Logger) *Server {
	s := &Server{
		runner: runner,
		idGen:  idGen,
		clock:  clock,
		cfg:    cfg,
		logger: logging.OrNop(logger).Named("api"),
	}
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoverMiddleware)
	r.Use(metrics.Middleware)
	r.Use(timeoutMiddleware(60 * time.Second))

	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/v1/runs", func(r chi.Router) {
		r.Post("/", s.submitRun)
		r.Get("/latest", s.latestRun)
	})

	r.Handle("/*", http.FileServer(http.Dir(cfg.DocsDir)))

	s.router = r
	return s
}

// Handler returns the Router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Wait blocks until background rebuilds finish.
func (s *Server) Wait() {
	s.wg.Wait()
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readyz(w http.ResponseWriter, _ *http.Request) {
	info, err := os.Stat(s.cfg.DocsDir)
	if err != nil || !info.IsDir() {
		writeError(w, http.StatusServiceUnavailable, "docs directory not available")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) submitRun(w http.ResponseWriter, r *http.Request) {
	if s.runner == nil {
		writeError(w, http.StatusNotImplemented, "rebuilds are not enabled")
		return
	}
	id, err := s.idGen.NewID()
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("generate run id: %v", err))
		return
	}

	s.mu.Lock()
	if s.latest != nil && s.latest.Status == RunStatusRunning {
		running := s.latest.ID
		s.mu.Unlock()
		writeJSON(w, http.StatusConflict, map[string]string{"error": "a rebuild is already running", "run_id": running})
		return
	}
	run := &Run{ID: id, Status: RunStatusRunning, Submitted: s.clock.Now()}
	s.latest = run
	s.wg.Add(1)
	s.mu.Unlock()

	// The rebuild outlives the request.
	ctx := context.WithoutCancel(r.Context())
	go s.execute(ctx, run)

	writeJSON(w, http.StatusAccepted, map[string]string{"run_id": id})
}

func (s *Server) execute(ctx context.Context, run *Run) {
	defer s.wg.Done()
	if s.cfg.RunTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.RunTimeout)
		defer cancel()
	}
	s.logger.Info("rebuild started", zap.String("run_id", run.ID))
	res, err := s.runner.Run(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	run.Completed = s.clock.Now()
	if err != nil {
		run.Status = RunStatusFailed
		run.Error = err.Error()
		s.logger.Error("rebuild failed", zap.String("run_id", run.ID), zap.Error(err))
		return
	}
	run.Status = RunStatusSucceeded
	run.Entries = res.Overview.Summary.Entries
	run.Artifacts = res.Artifacts
	s.logger.Info("rebuild finished",
		zap.String("run_id", run.ID),
		zap.Int("entries", run.Entries),
		zap.Int("artifacts", len(run.Artifacts)),
	)
}

func (s *Server) latestRun(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.latest == nil {
		writeError(w, http.StatusNotFound, "no rebuild submitted")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"run": *s.latest})
}

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := uuid.NewString()
		ctx := context.WithValue(r.Context(), requestIDKey{}, reqID)
		w.Header().Set("X-Request-ID", reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(ww, r)
		s.logger.Info("request completed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.status),
			zap.Int64("duration_ms", time.Since(start).Milliseconds()),
		)
	})
}

func (s *Server) recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.logger.Error("panic recovered", zap.Any("error", rec))
				writeError(w, http.StatusInternalServerError, "internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func timeoutMiddleware(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.TimeoutHandler(next, d, "request timed out")
	}
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	if err != nil {
		return n, fmt.Errorf("write response: %w", err)
	}
	return n, nil
}

func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (rw *responseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if h, ok := rw.ResponseWriter.(http.Hijacker); ok {
		conn, buf, err := h.Hijack()
		if err != nil {
			return nil, nil, fmt.Errorf("hijack connection: %w", err)
		}
		return conn, buf, nil
	}
	return nil, nil, errors.New("hijacker not supported")
}

type requestIDKey struct{}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logging.L.Error("write JSON failed", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
