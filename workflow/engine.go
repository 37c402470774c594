package workflow

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"
)

// Result is what Start and Resume hand back: either a suspension for the
// reviewer or a completed run.
type Result struct {
	RunID      string      `json:"run_id"`
	Version    int64       `json:"version"`
	Status     RunStatus   `json:"status"`
	Stage      Stage       `json:"stage"`
	Suspension *Suspension `json:"suspension,omitempty"`
	State      State       `json:"state"`
}

// Done reports whether the run reached the complete stage.
func (r Result) Done() bool { return r.Status == RunComplete }

// Engine drives runs through the controller and is the only writer of the
// checkpoint store.
type Engine struct {
	store      Store
	controller *Controller
	logger     *slog.Logger
	metrics    *Metrics
	clock      func() time.Time
	timeout    time.Duration

	mu    sync.Mutex
	locks map[string]*semaphore.Weighted
}

// Option customizes the engine instance.
type Option func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithMetrics attaches prometheus collectors.
func WithMetrics(m *Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithClock injects a deterministic clock (primarily for tests).
func WithClock(clock func() time.Time) Option {
	return func(e *Engine) {
		if clock != nil {
			e.clock = clock
		}
	}
}

// WithRunTimeout bounds each Start/Resume call. Zero means no limit.
func WithRunTimeout(d time.Duration) Option {
	return func(e *Engine) { e.timeout = d }
}

// NewEngine wires the engine to its store and controller.
func NewEngine(store Store, controller *Controller, opts ...Option) (*Engine, error) {
	if store == nil {
		return nil, errors.New("workflow engine: checkpoint store is required")
	}
	if controller == nil {
		return nil, errors.New("workflow engine: controller is required")
	}
	e := &Engine{
		store:      store,
		controller: controller,
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		clock:      utcNow,
		locks:      make(map[string]*semaphore.Weighted),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Start runs a new pipeline from its entry gate until the first suspension.
func (e *Engine) Start(ctx context.Context, runID string, st State) (Result, error) {
	if runID == "" {
		return Result{}, fmt.Errorf("%w: run id is required", ErrValidation)
	}
	release, err := e.acquire(runID)
	if err != nil {
		return Result{}, err
	}
	defer release()

	if _, err := e.store.Load(ctx, runID); err == nil {
		return Result{}, fmt.Errorf("%w: run %s already exists", ErrConflict, runID)
	} else if !errors.Is(err, ErrNotFound) {
		return Result{}, err
	}

	ctx, cancel := e.bound(ctx)
	defer cancel()

	cp := Checkpoint{
		RunID:  runID,
		Cursor: Cursor{Stage: StageInitialized},
		State:  st.Clone(),
	}
	e.metrics.runStarted()
	e.logger.Info("run started", "run_id", runID, "topic", st.Topic)
	return e.drive(ctx, cp, 0, Transition{Next: StageResearchGate})
}

// Resume answers the suspension a run is parked on and continues it.
func (e *Engine) Resume(ctx context.Context, runID string, resp Response) (Result, error) {
	release, err := e.acquire(runID)
	if err != nil {
		return Result{}, err
	}
	defer release()

	cp, err := e.store.Load(ctx, runID)
	if err != nil {
		return Result{}, err
	}
	if cp.Status != RunSuspended || cp.Cursor.Awaiting == nil {
		return Result{}, fmt.Errorf("%w: run %s is %s, not awaiting input", ErrConflict, runID, cp.Status)
	}

	ctx, cancel := e.bound(ctx)
	defer cancel()

	stage := cp.Cursor.Stage
	e.logger.Info("run resumed", "run_id", runID, "stage", stage, "kind", cp.Cursor.Awaiting.Kind)
	tr, err := e.controller.Deliver(ctx, &cp.State, stage, cp.Cursor.Awaiting, resp)
	if err != nil {
		// No stage ran; the cursor itself is unusable.
		return Result{}, err
	}
	return e.drive(ctx, cp, cp.Version, tr)
}

// Status returns the current checkpoint of a run.
func (e *Engine) Status(ctx context.Context, runID string) (Checkpoint, error) {
	return e.store.Load(ctx, runID)
}

// Runs lists every persisted run.
func (e *Engine) Runs(ctx context.Context) ([]Checkpoint, error) {
	return e.store.List(ctx)
}

func (e *Engine) drive(ctx context.Context, cp Checkpoint, expected int64, tr Transition) (Result, error) {
	for {
		if tr.Suspend != nil {
			cp.Status = RunSuspended
			cp.Cursor.Awaiting = tr.Suspend
			e.metrics.suspended(tr.Suspend)
			return e.persist(ctx, cp, expected)
		}
		if tr.Next == StageComplete {
			cp.State.CurrentStage = StageComplete
			cp.Cursor = Cursor{Stage: StageComplete}
			cp.Status = RunComplete
			e.metrics.runCompleted()
			return e.persist(ctx, cp, expected)
		}
		if err := ctx.Err(); err != nil {
			return Result{}, e.fail(cp.RunID, tr.Next, err)
		}

		stage := tr.Next
		cp.Cursor = Cursor{Stage: stage}
		cp.State.CurrentStage = stage
		started := time.Now()
		next, err := e.controller.Enter(ctx, &cp.State, stage)
		e.metrics.observeStage(stage, time.Since(started))
		if err != nil {
			return Result{}, e.fail(cp.RunID, stage, err)
		}
		e.logger.Debug("stage entered", "run_id", cp.RunID, "stage", stage, "next", next.Next, "suspend", next.Suspend != nil)
		tr = next
	}
}

// persist writes the checkpoint even if the call's context has expired so a
// finished stage is never lost.
func (e *Engine) persist(ctx context.Context, cp Checkpoint, expected int64) (Result, error) {
	cp.UpdatedAt = e.clock()
	saved, err := e.store.Save(context.WithoutCancel(ctx), cp, expected)
	if err != nil {
		return Result{}, err
	}
	res := Result{
		RunID:      saved.RunID,
		Version:    saved.Version,
		Status:     saved.Status,
		Stage:      saved.Cursor.Stage,
		Suspension: saved.Cursor.Awaiting.clone(),
		State:      saved.State.Clone(),
	}
	if res.Suspension != nil {
		e.logger.Info("run suspended", "run_id", res.RunID, "stage", res.Stage, "kind", res.Suspension.Kind, "phase", res.Suspension.Stage)
	} else {
		e.logger.Info("run complete", "run_id", res.RunID, "output_file", res.State.OutputFile)
	}
	return res, nil
}

func (e *Engine) fail(runID string, stage Stage, err error) error {
	e.metrics.stageFailed(stage)
	e.logger.Error("stage failed", "run_id", runID, "stage", stage, "err", err)
	var se *StageExecutionError
	if errors.As(err, &se) {
		return err
	}
	return &StageExecutionError{RunID: runID, Stage: stage, Err: err}
}

// acquire takes the run's lock without waiting. The entry is dropped on
// release, so the map only holds runs with a call in flight.
func (e *Engine) acquire(runID string) (func(), error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	sem, ok := e.locks[runID]
	if !ok {
		sem = semaphore.NewWeighted(1)
		e.locks[runID] = sem
	}
	if !sem.TryAcquire(1) {
		return nil, fmt.Errorf("%w: run %s already has a call in flight", ErrConflict, runID)
	}
	return func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		sem.Release(1)
		delete(e.locks, runID)
	}, nil
}

func (e *Engine) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if e.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, e.timeout)
}
