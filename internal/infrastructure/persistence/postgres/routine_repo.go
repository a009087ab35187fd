package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/crisnc100/FlexBreak-sub005/internal/domain/routine"
	"github.com/crisnc100/FlexBreak-sub005/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// ROUTINE LOG IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// RoutineLog implements routine.Log for PostgreSQL.
type RoutineLog struct {
	conn   *Connection
	userID string
}

// NewRoutineLog creates a new RoutineLog for the given user.
func NewRoutineLog(conn *Connection, userID string) *RoutineLog {
	return &RoutineLog{conn: conn, userID: userID}
}

// Append stores a new routine record.
func (l *RoutineLog) Append(ctx context.Context, r *routine.Record) error {
	query := `
		INSERT INTO routine_log (id, user_id, area, duration_minutes, completed_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := l.conn.Exec(ctx, query,
		r.ID,
		l.userID,
		string(r.Area),
		r.DurationMinutes.Int(),
		r.CompletedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return shared.ErrAlreadyExists
		}
		return fmt.Errorf("failed to append routine: %w", err)
	}

	return nil
}

// GetAll returns every record, ordered by completion time ascending.
func (l *RoutineLog) GetAll(ctx context.Context) ([]*routine.Record, error) {
	query := `
		SELECT id, area, duration_minutes, completed_at
		FROM routine_log
		WHERE user_id = $1
		ORDER BY completed_at ASC
	`

	rows, err := l.conn.Query(ctx, query, l.userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query routine log: %w", err)
	}
	defer rows.Close()

	var records []*routine.Record
	for rows.Next() {
		var r routine.Record
		var area string
		var minutes int
		var completedAt time.Time

		if err := rows.Scan(&r.ID, &area, &minutes, &completedAt); err != nil {
			return nil, fmt.Errorf("failed to scan routine row: %w", err)
		}

		r.Area = shared.Area(area)
		r.DurationMinutes = routine.Minutes(minutes)
		r.CompletedAt = completedAt
		records = append(records, &r)
	}

	return records, rows.Err()
}
