package server

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"path"
	"time"

	"github.com/dshills/nodereview/internal/analysis"
	"github.com/dshills/nodereview/internal/config"
	"github.com/dshills/nodereview/internal/inflight"
	"github.com/dshills/nodereview/internal/lint"
	"github.com/dshills/nodereview/internal/source"
)

const maxBodyBytes = 2 << 20

// Server exposes review, check and analysis over HTTP.
type Server struct {
	reviewer analysis.ReviewService
	checker  analysis.CheckService
	analyzer *analysis.Analyzer
	registry *inflight.Registry
	metrics  *Metrics
	logger   *slog.Logger
}

// New creates a Server. The registry should be the one the analyzer uses so
// that every entry point shares the same in-flight keys.
func New(r analysis.ReviewService, c analysis.CheckService, a *analysis.Analyzer, registry *inflight.Registry, logger *slog.Logger) *Server {
	if registry == nil {
		registry = inflight.NewRegistry()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		reviewer: r,
		checker:  c,
		analyzer: a,
		registry: registry,
		metrics:  NewMetrics(),
		logger:   logger,
	}
}

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/review", s.handleReview)
	mux.HandleFunc("POST /api/codecheck/node", s.handleCheck)
	mux.HandleFunc("POST /api/analyze", s.handleAnalyze)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		fmt.Fprint(w, "nodereview service\nEndpoints: POST /api/review, POST /api/codecheck/node, POST /api/analyze, GET /healthz\n")
	})
	return s.logRequests(mux)
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, cfg config.ServerConfig) error {
	ln, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", cfg.Addr, err)
	}
	return s.Serve(ctx, ln, cfg)
}

// Serve is ListenAndServe on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener, cfg config.ServerConfig) error {
	srv := &http.Server{
		Handler:      s.Handler(),
		ReadTimeout:  seconds(cfg.ReadTimeoutSeconds, 30),
		WriteTimeout: seconds(cfg.WriteTimeoutSeconds, 180),
		IdleTimeout:  seconds(cfg.IdleTimeoutSeconds, 120),
		BaseContext:  func(net.Listener) context.Context { return ctx },
	}

	errc := make(chan error, 1)
	go func() {
		s.logger.Info("server listening", "addr", ln.Addr().String())
		errc <- srv.Serve(ln)
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		s.logger.Info("server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutting down: %w", err)
		}
		return nil
	}
}

// Metrics returns the server's counters.
func (s *Server) Metrics() *Metrics {
	return s.metrics
}

type reviewRequest struct {
	Prompt string `json:"prompt"`
	Path   string `json:"path,omitempty"`
}

func (s *Server) handleReview(w http.ResponseWriter, r *http.Request) {
	var req reviewRequest
	if !decodeBody(w, r, &req) {
		return
	}
	subject := req.Path
	if subject == "" {
		subject = contentSubject(req.Prompt)
	}
	release, ok := s.registry.TryAcquire(inflight.Key{Subject: subject, Kind: inflight.KindReview})
	if !ok {
		s.metrics.RecordRejected()
		writeError(w, http.StatusConflict, "a review of this code is already in progress")
		return
	}
	defer release()

	env := s.reviewer.ReviewFile(r.Context(), req.Path, req.Prompt)
	s.metrics.RecordReview(env.Success)
	writeJSON(w, http.StatusOK, env)
}

type checkRequest struct {
	Code string `json:"code"`
	Path string `json:"path,omitempty"`
}

type checkResponse struct {
	Response []lint.Finding `json:"response"`
}

func (s *Server) handleCheck(w http.ResponseWriter, r *http.Request) {
	var req checkRequest
	if !decodeBody(w, r, &req) {
		return
	}
	subject := req.Path
	if subject == "" {
		subject = contentSubject(req.Code)
	}
	release, ok := s.registry.TryAcquire(inflight.Key{Subject: subject, Kind: inflight.KindCheck})
	if !ok {
		s.metrics.RecordRejected()
		writeError(w, http.StatusConflict, "a check of this code is already in progress")
		return
	}
	defer release()

	findings := s.checker.Check(r.Context(), req.Code)
	if r.URL.Query().Get("normalize") == "true" {
		findings = lint.Normalize(findings)
	}
	s.metrics.RecordCheck()
	writeJSON(w, http.StatusOK, checkResponse{Response: findings})
}

type analyzeRequest struct {
	Path  string `json:"path"`
	Code  string `json:"code"`
	Force bool   `json:"force"`
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	if s.analyzer == nil {
		writeError(w, http.StatusNotImplemented, "analysis is not enabled")
		return
	}
	var req analyzeRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Path == "" {
		writeError(w, http.StatusBadRequest, "path is required")
		return
	}

	v, err := s.analyzer.Analyze(r.Context(), source.NewFile(path.Clean(req.Path), req.Code), req.Force)
	switch {
	case errors.Is(err, analysis.ErrUnsupported):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, analysis.ErrInFlight):
		s.metrics.RecordRejected()
		writeError(w, http.StatusConflict, err.Error())
	case err != nil:
		writeError(w, http.StatusInternalServerError, err.Error())
	default:
		s.metrics.RecordAnalysis()
		writeJSON(w, http.StatusOK, v)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	stats := s.metrics.GetStats()
	stats.InFlight = s.registry.Len()
	writeJSON(w, http.StatusOK, stats)
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return false
		}
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to write response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func contentSubject(content string) string {
	sum := sha256.Sum256([]byte(content))
	return "sha256:" + hex.EncodeToString(sum[:8])
}

func seconds(n, fallback int) time.Duration {
	if n <= 0 {
		n = fallback
	}
	return time.Duration(n) * time.Second
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Info("request", "method", r.Method, "path", r.URL.Path, "status", rec.status, "duration", time.Since(start))
	})
}
