package workflow

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// RunStatus is the coarse lifecycle of a persisted run.
type RunStatus string

const (
	RunSuspended RunStatus = "suspended"
	RunComplete  RunStatus = "complete"
)

// Cursor marks where a run resumes: the stage it is parked in and, while
// suspended, the payload awaiting a response.
type Cursor struct {
	Stage    Stage       `json:"stage"`
	Awaiting *Suspension `json:"awaiting,omitempty"`
}

// Checkpoint is the durable snapshot of a run.
type Checkpoint struct {
	RunID     string    `json:"run_id"`
	Version   int64     `json:"version"`
	Status    RunStatus `json:"status"`
	Cursor    Cursor    `json:"cursor"`
	State     State     `json:"state"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (c Checkpoint) clone() Checkpoint {
	out := c
	out.State = c.State.Clone()
	out.Cursor.Awaiting = c.Cursor.Awaiting.clone()
	return out
}

// Store persists checkpoints keyed by run id.
//
// Save is a compare-and-swap: expected is the version the caller loaded, 0
// for a run that has never been saved. On success the stored version becomes
// expected+1. A mismatch returns ErrConflict.
type Store interface {
	Save(ctx context.Context, cp Checkpoint, expected int64) (Checkpoint, error)
	Load(ctx context.Context, runID string) (Checkpoint, error)
	List(ctx context.Context) ([]Checkpoint, error)
	Close() error
}

// MemoryStore keeps checkpoints in process memory.
type MemoryStore struct {
	mu          sync.Mutex
	checkpoints map[string]Checkpoint
	order       []string
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{checkpoints: make(map[string]Checkpoint)}
}

func (s *MemoryStore) Save(_ context.Context, cp Checkpoint, expected int64) (Checkpoint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.checkpoints[cp.RunID]
	switch {
	case !ok && expected != 0:
		return Checkpoint{}, fmt.Errorf("%w: run %s has no checkpoint at version %d", ErrConflict, cp.RunID, expected)
	case ok && current.Version != expected:
		return Checkpoint{}, fmt.Errorf("%w: run %s is at version %d, expected %d", ErrConflict, cp.RunID, current.Version, expected)
	}
	if !ok {
		s.order = append(s.order, cp.RunID)
	}
	cp.Version = expected + 1
	s.checkpoints[cp.RunID] = cp.clone()
	return cp, nil
}

func (s *MemoryStore) Load(_ context.Context, runID string) (Checkpoint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp, ok := s.checkpoints[runID]
	if !ok {
		return Checkpoint{}, fmt.Errorf("%w: %s", ErrNotFound, runID)
	}
	return cp.clone(), nil
}

func (s *MemoryStore) List(_ context.Context) ([]Checkpoint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Checkpoint, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.checkpoints[id].clone())
	}
	return out, nil
}

func (s *MemoryStore) Close() error { return nil }
