package postgres

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 001: CREATE USER PROGRESS
// ══════════════════════════════════════════════════════════════════════════════

const migration001Up = `
-- Migration: Create user progress document store
-- Version: 001

-- The progression aggregate is stored as a single JSONB document per user.
-- Every field inside the document changes together on each routine, so a
-- row-per-entity schema would only add join cost; the version column gives
-- optimistic concurrency over the whole aggregate.
CREATE TABLE IF NOT EXISTS user_progress (
    user_id VARCHAR(64) PRIMARY KEY,
    document JSONB NOT NULL,
    version BIGINT NOT NULL DEFAULT 0,
    updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    CONSTRAINT valid_version CHECK (version >= 0)
);

CREATE INDEX IF NOT EXISTS idx_user_progress_updated_at ON user_progress(updated_at);
`

const migration001Down = `
DROP TABLE IF EXISTS user_progress;
`

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 002: CREATE ROUTINE LOG
// ══════════════════════════════════════════════════════════════════════════════

const migration002Up = `
-- Migration: Create routine log
-- Version: 002

-- Append-only record of completed routines. Streaks and statistics are
-- derived from this log, never stored authoritatively, so it must keep
-- full history.
CREATE TABLE IF NOT EXISTS routine_log (
    id UUID PRIMARY KEY,
    user_id VARCHAR(64) NOT NULL,
    area VARCHAR(50) NOT NULL,
    duration_minutes INTEGER NOT NULL,
    completed_at TIMESTAMP WITH TIME ZONE NOT NULL,
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    CONSTRAINT valid_duration CHECK (duration_minutes > 0)
);

CREATE INDEX IF NOT EXISTS idx_routine_log_user_id ON routine_log(user_id);
CREATE INDEX IF NOT EXISTS idx_routine_log_completed_at ON routine_log(user_id, completed_at);
`

const migration002Down = `
DROP TABLE IF EXISTS routine_log;
`

// GetMigrations returns all embedded migrations.
func GetMigrations() []Migration {
	return []Migration{
		{
			Version: 1,
			Name:    "create_user_progress",
			UpSQL:   migration001Up,
			DownSQL: migration001Down,
		},
		{
			Version: 2,
			Name:    "create_routine_log",
			UpSQL:   migration002Up,
			DownSQL: migration002Down,
		},
	}
}
