package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/crisnc100/FlexBreak-sub005/internal/domain/progress"
	"github.com/crisnc100/FlexBreak-sub005/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// PROGRESS STORE IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// ProgressStore implements progress.Store for PostgreSQL. The whole aggregate
// is one JSONB document guarded by a version column: the save only lands when
// the stored version still matches the version the caller loaded, otherwise
// shared.ErrConcurrentModification tells the caller to reload and retry.
type ProgressStore struct {
	conn   *Connection
	userID string
}

// NewProgressStore creates a new ProgressStore for the given user.
func NewProgressStore(conn *Connection, userID string) *ProgressStore {
	return &ProgressStore{conn: conn, userID: userID}
}

// GetUserProgress loads the aggregate, or a fresh one if none exists.
func (s *ProgressStore) GetUserProgress(ctx context.Context) (*progress.UserProgress, error) {
	query := `
		SELECT document, version
		FROM user_progress
		WHERE user_id = $1
	`

	var doc []byte
	var version int64

	err := s.conn.QueryRow(ctx, query, s.userID).Scan(&doc, &version)
	if err != nil {
		if IsNoRows(err) {
			return progress.NewUserProgress(), nil
		}
		return nil, fmt.Errorf("failed to load user progress: %w", err)
	}

	up := progress.NewUserProgress()
	if err := json.Unmarshal(doc, up); err != nil {
		return nil, fmt.Errorf("failed to unmarshal user progress: %w", err)
	}
	up.Version = version
	up.Normalize()

	return up, nil
}

// SaveUserProgress writes the whole aggregate atomically, bumping the
// version. The conditional update is the concurrency check: zero rows
// affected on an existing document means someone else saved first.
func (s *ProgressStore) SaveUserProgress(ctx context.Context, up *progress.UserProgress) error {
	doc, err := json.Marshal(up)
	if err != nil {
		return fmt.Errorf("failed to marshal user progress: %w", err)
	}

	query := `
		INSERT INTO user_progress (user_id, document, version, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (user_id) DO UPDATE
		SET document = EXCLUDED.document,
		    version = EXCLUDED.version,
		    updated_at = NOW()
		WHERE user_progress.version = $4
	`

	tag, err := s.conn.Exec(ctx, query, s.userID, doc, up.Version+1, up.Version)
	if err != nil {
		return fmt.Errorf("failed to save user progress: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrConcurrentModification
	}

	up.Version++
	return nil
}

// ResetUserProgress deletes the aggregate.
func (s *ProgressStore) ResetUserProgress(ctx context.Context) error {
	_, err := s.conn.Exec(ctx, `DELETE FROM user_progress WHERE user_id = $1`, s.userID)
	if err != nil {
		return fmt.Errorf("failed to reset user progress: %w", err)
	}
	return nil
}
