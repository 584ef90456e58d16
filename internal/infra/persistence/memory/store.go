// Package memory provides an in-memory run ledger used for tests and
// ephemeral environments, and as the transactional core of the snapshotting
// sqlite and postgres stores.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"gapfill/pkg/domain"
)

// ErrRunNotFound is returned when a run identifier is unknown.
var ErrRunNotFound = errors.New("run not found")

// Snapshot captures a point-in-time clone of the ledger.
type Snapshot struct {
	Runs map[string]domain.RunRecord `json:"runs"`
}

type memoryState struct {
	runs map[string]domain.RunRecord
}

func newMemoryState() memoryState {
	return memoryState{runs: make(map[string]domain.RunRecord)}
}

func (s memoryState) clone() memoryState {
	out := memoryState{runs: make(map[string]domain.RunRecord, len(s.runs))}
	for id, rec := range s.runs {
		out.runs[id] = rec.Clone()
	}
	return out
}

func snapshotFromMemoryState(state memoryState) Snapshot {
	return Snapshot{Runs: state.clone().runs}
}

// migrateSnapshot normalises snapshots written by older versions: nil maps
// and records persisted without their key.
func migrateSnapshot(snapshot Snapshot) memoryState {
	state := newMemoryState()
	for id, rec := range snapshot.Runs {
		if rec.ID == "" {
			rec.ID = id
		}
		state.runs[rec.ID] = rec.Clone()
	}
	return state
}

// Store is an in-memory transactional run ledger.
type Store struct {
	mu    sync.RWMutex
	state memoryState
	nowFn func() time.Time
}

// NewStore constructs an empty ledger.
func NewStore() *Store {
	return &Store{
		state: newMemoryState(),
		nowFn: func() time.Time { return time.Now().UTC() },
	}
}

// ExportState clones the current state for external persistence.
func (s *Store) ExportState() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return snapshotFromMemoryState(s.state)
}

// ImportState replaces the state with the provided snapshot.
func (s *Store) ImportState(snapshot Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = migrateSnapshot(snapshot)
}

// NowFunc returns the time provider used to stamp records saved without timestamps.
func (s *Store) NowFunc() func() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.nowFn
}

// Transaction is a mutation set applied atomically to the ledger.
type Transaction struct {
	state memoryState
	now   time.Time
}

// RunInTransaction executes fn against a copy of the state and commits it
// only when fn succeeds.
func (s *Store) RunInTransaction(ctx context.Context, fn func(tx *Transaction) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	tx := &Transaction{state: s.state.clone(), now: s.nowFn()}
	if err := fn(tx); err != nil {
		return err
	}
	s.state = tx.state
	return nil
}

// PutRun inserts or replaces a run record.
func (tx *Transaction) PutRun(rec domain.RunRecord) error {
	if rec.ID == "" {
		return fmt.Errorf("put run: id is required")
	}
	if rec.StartedAt.IsZero() {
		rec.StartedAt = tx.now
	}
	if rec.FinishedAt.IsZero() {
		rec.FinishedAt = rec.StartedAt
	}
	tx.state.runs[rec.ID] = rec.Clone()
	return nil
}

// FindRun looks up a run within the transaction.
func (tx *Transaction) FindRun(id string) (domain.RunRecord, bool) {
	rec, ok := tx.state.runs[id]
	if !ok {
		return domain.RunRecord{}, false
	}
	return rec.Clone(), true
}

// DeleteRun removes a run record.
func (tx *Transaction) DeleteRun(id string) error {
	if _, ok := tx.state.runs[id]; !ok {
		return fmt.Errorf("delete run %s: %w", id, ErrRunNotFound)
	}
	delete(tx.state.runs, id)
	return nil
}

// SaveRun records rec in its own transaction.
func (s *Store) SaveRun(ctx context.Context, rec domain.RunRecord) error {
	return s.RunInTransaction(ctx, func(tx *Transaction) error { return tx.PutRun(rec) })
}

// GetRun returns the run stored under id.
func (s *Store) GetRun(_ context.Context, id string) (domain.RunRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.state.runs[id]
	if !ok {
		return domain.RunRecord{}, fmt.Errorf("get run %s: %w", id, ErrRunNotFound)
	}
	return rec.Clone(), nil
}

// ListRuns returns every run ordered by start time, then id.
func (s *Store) ListRuns(_ context.Context) ([]domain.RunRecord, error) {
	s.mu.RLock()
	out := make([]domain.RunRecord, 0, len(s.state.runs))
	for _, rec := range s.state.runs {
		out = append(out, rec.Clone())
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if !out[i].StartedAt.Equal(out[j].StartedAt) {
			return out[i].StartedAt.Before(out[j].StartedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}
