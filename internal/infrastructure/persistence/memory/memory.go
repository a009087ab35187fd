// Package memory provides in-memory implementations of the persistence
// interfaces for development mode and tests. Both stores copy on the way in
// and out so callers can't alias internal state.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/crisnc100/FlexBreak-sub005/internal/domain/progress"
	"github.com/crisnc100/FlexBreak-sub005/internal/domain/routine"
	"github.com/crisnc100/FlexBreak-sub005/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// PROGRESS STORE
// ══════════════════════════════════════════════════════════════════════════════

// ProgressStore implements progress.Store in memory with the same optimistic
// version check as the Postgres store, so concurrency tests exercise the real
// conflict path.
type ProgressStore struct {
	mu      sync.Mutex
	doc     []byte
	version int64
}

// NewProgressStore creates an empty in-memory store.
func NewProgressStore() *ProgressStore {
	return &ProgressStore{}
}

// GetUserProgress loads the aggregate, or a fresh one if none exists.
func (s *ProgressStore) GetUserProgress(ctx context.Context) (*progress.UserProgress, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.doc == nil {
		return progress.NewUserProgress(), nil
	}

	up := progress.NewUserProgress()
	if err := json.Unmarshal(s.doc, up); err != nil {
		return nil, fmt.Errorf("failed to unmarshal user progress: %w", err)
	}
	up.Version = s.version
	up.Normalize()
	return up, nil
}

// SaveUserProgress writes the whole aggregate, rejecting stale versions.
func (s *ProgressStore) SaveUserProgress(ctx context.Context, up *progress.UserProgress) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.doc != nil && up.Version != s.version {
		return shared.ErrConcurrentModification
	}

	doc, err := json.Marshal(up)
	if err != nil {
		return fmt.Errorf("failed to marshal user progress: %w", err)
	}

	s.doc = doc
	s.version = up.Version + 1
	up.Version = s.version
	return nil
}

// ResetUserProgress deletes the aggregate.
func (s *ProgressStore) ResetUserProgress(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.doc = nil
	s.version = 0
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// ROUTINE LOG
// ══════════════════════════════════════════════════════════════════════════════

// RoutineLog implements routine.CachedLog in memory. Invalidate is a no-op;
// the type exists so the facade can be wired identically in development mode
// and production.
type RoutineLog struct {
	mu      sync.Mutex
	records []*routine.Record
}

// NewRoutineLog creates an empty in-memory routine log.
func NewRoutineLog() *RoutineLog {
	return &RoutineLog{}
}

// Append stores a new routine record.
func (l *RoutineLog) Append(ctx context.Context, r *routine.Record) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, existing := range l.records {
		if existing.ID == r.ID {
			return shared.ErrAlreadyExists
		}
	}

	cp := *r
	l.records = append(l.records, &cp)
	return nil
}

// GetAll returns every record, ordered by completion time ascending.
func (l *RoutineLog) GetAll(ctx context.Context) ([]*routine.Record, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]*routine.Record, 0, len(l.records))
	for _, r := range l.records {
		cp := *r
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CompletedAt.Before(out[j].CompletedAt)
	})
	return out, nil
}

// Invalidate implements routine.CachedLog.
func (l *RoutineLog) Invalidate(ctx context.Context) {}

// Ping reports liveness; the in-memory store is always alive.
func (s *ProgressStore) Ping(ctx context.Context) error { return nil }
