package routine

import "context"

// Log is the append-only store of completed routines. Implementations live in
// infrastructure/persistence. The engine only ever appends and reads the full
// log; derived state (streaks, statistics) is recomputed from it.
type Log interface {
	// Append stores a new routine record.
	Append(ctx context.Context, record *Record) error

	// GetAll returns every record, ordered by completion time ascending.
	GetAll(ctx context.Context) ([]*Record, error)
}

// CachedLog is a Log with an invalidation hook. Read-through caches implement
// it; callers must invalidate immediately after any append and before any
// statistics recomputation to avoid stale reads.
type CachedLog interface {
	Log

	// Invalidate drops the cached routine list.
	Invalidate(ctx context.Context)
}
