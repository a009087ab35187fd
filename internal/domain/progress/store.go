package progress

import "context"

// Store is the persistence boundary for the aggregate. The engine treats it
// as the only durable state: the document is read, mutated in memory, and
// written back whole. Implementations may enforce optimistic concurrency by
// checking Version on save and returning shared.ErrConcurrentModification.
type Store interface {
	// GetUserProgress loads the aggregate, or a fresh one if none exists.
	GetUserProgress(ctx context.Context) (*UserProgress, error)

	// SaveUserProgress writes the whole aggregate atomically.
	SaveUserProgress(ctx context.Context, up *UserProgress) error

	// ResetUserProgress deletes the aggregate.
	ResetUserProgress(ctx context.Context) error
}
