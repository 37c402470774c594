package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"auto_blog_writer/publisher"
	"auto_blog_writer/workflow"
)

// Runner is the slice of the workflow engine the HTTP API drives.
type Runner interface {
	Start(ctx context.Context, runID string, st workflow.State) (workflow.Result, error)
	Resume(ctx context.Context, runID string, resp workflow.Response) (workflow.Result, error)
	Status(ctx context.Context, runID string) (workflow.Checkpoint, error)
	Runs(ctx context.Context) ([]workflow.Checkpoint, error)
}

type Server struct {
	runner   Runner
	logger   *slog.Logger
	gatherer prometheus.Gatherer
	newID    func() string
}

// Option customizes the server.
type Option func(*Server)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithGatherer exposes the given registry on /metrics.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(s *Server) { s.gatherer = g }
}

// WithIDGenerator replaces the run id source (tests use fixed ids).
func WithIDGenerator(fn func() string) Option {
	return func(s *Server) {
		if fn != nil {
			s.newID = fn
		}
	}
}

func New(runner Runner, opts ...Option) (*Server, error) {
	if runner == nil {
		return nil, errors.New("workflow runner required")
	}
	s := &Server{
		runner:   runner,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		gatherer: prometheus.DefaultGatherer,
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/runs", s.handleRunCreate)
	mux.HandleFunc("GET /api/runs", s.handleRunList)
	mux.HandleFunc("GET /api/runs/{id}", s.handleRunGet)
	mux.HandleFunc("POST /api/runs/{id}/resume", s.handleRunResume)
	mux.HandleFunc("GET /api/runs/{id}/preview", s.handleRunPreview)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	mux.Handle("GET /metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	return logMiddleware(s.logger, mux)
}

// --- Handlers ---

type runCreateReq struct {
	Topic        string   `json:"topic"`
	Keywords     []string `json:"keywords"`
	TargetLength int      `json:"target_length"`
}

type runSummary struct {
	RunID     string             `json:"run_id"`
	Version   int64              `json:"version"`
	Status    workflow.RunStatus `json:"status"`
	Stage     workflow.Stage     `json:"stage"`
	Topic     string             `json:"topic"`
	UpdatedAt time.Time          `json:"updated_at"`
}

type runResp struct {
	runSummary
	Suspension *workflow.Suspension `json:"suspension,omitempty"`
	State      workflow.State       `json:"state"`
}

func (s *Server) handleRunCreate(w http.ResponseWriter, r *http.Request) {
	var req runCreateReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if req.TargetLength == 0 {
		req.TargetLength = 2000
	}
	st, err := workflow.NewState(workflow.Input{Topic: req.Topic, Keywords: req.Keywords, TargetLength: req.TargetLength})
	if err != nil {
		s.fail(w, err)
		return
	}
	res, err := s.runner.Start(r.Context(), s.newID(), st)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resultResp(res))
}

func (s *Server) handleRunList(w http.ResponseWriter, r *http.Request) {
	cps, err := s.runner.Runs(r.Context())
	if err != nil {
		s.fail(w, err)
		return
	}
	out := make([]runSummary, 0, len(cps))
	for _, cp := range cps {
		out = append(out, summary(cp))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleRunGet(w http.ResponseWriter, r *http.Request) {
	cp, err := s.runner.Status(r.Context(), r.PathValue("id"))
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, runResp{runSummary: summary(cp), Suspension: cp.Cursor.Awaiting, State: cp.State})
}

func (s *Server) handleRunResume(w http.ResponseWriter, r *http.Request) {
	var req workflow.Response
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	res, err := s.runner.Resume(r.Context(), r.PathValue("id"), req)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resultResp(res))
}

// handleRunPreview renders the content under review, or the final article
// once the run is complete.
func (s *Server) handleRunPreview(w http.ResponseWriter, r *http.Request) {
	cp, err := s.runner.Status(r.Context(), r.PathValue("id"))
	if err != nil {
		s.fail(w, err)
		return
	}
	var content string
	switch {
	case cp.Cursor.Awaiting != nil && cp.Cursor.Awaiting.Kind == workflow.KindApproval:
		content = cp.Cursor.Awaiting.Content
	case cp.Status == workflow.RunComplete:
		content = cp.State.FinalContent
	}
	if content == "" {
		writeError(w, http.StatusNotFound, errors.New("nothing to preview yet"))
		return
	}
	page, err := publisher.RenderPage(content, cp.State.Topic)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = io.WriteString(w, page)
}

// --- Helpers ---

func summary(cp workflow.Checkpoint) runSummary {
	return runSummary{
		RunID:     cp.RunID,
		Version:   cp.Version,
		Status:    cp.Status,
		Stage:     cp.Cursor.Stage,
		Topic:     cp.State.Topic,
		UpdatedAt: cp.UpdatedAt,
	}
}

func resultResp(res workflow.Result) runResp {
	return runResp{
		runSummary: runSummary{
			RunID:   res.RunID,
			Version: res.Version,
			Status:  res.Status,
			Stage:   res.Stage,
			Topic:   res.State.Topic,
		},
		Suspension: res.Suspension,
		State:      res.State,
	}
}

func (s *Server) fail(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= 500 {
		s.logger.Error("request failed", "status", status, "err", err)
	}
	writeError(w, status, err)
}

func statusFor(err error) int {
	var stageErr *workflow.StageExecutionError
	switch {
	case errors.Is(err, workflow.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, workflow.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, workflow.ErrConflict):
		return http.StatusConflict
	case errors.As(err, &stageErr):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func logMiddleware(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		logger.Info("http request", "method", r.Method, "path", r.URL.Path, "status", rec.status, "duration", time.Since(start))
	})
}
