package repository

import (
	"context"
	"database/sql"
	"fmt"
)

// schema is portable between PostgreSQL and SQLite. Statements are
// idempotent so Apply can run on every start.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS signal_buffer (
		event_id    TEXT PRIMARY KEY,
		user_id     TEXT NOT NULL,
		instrument  TEXT NOT NULL,
		item_id     TEXT NOT NULL,
		proxy       TEXT NOT NULL,
		value       TEXT NOT NULL,
		context     TEXT NOT NULL DEFAULT '{}',
		module      TEXT NOT NULL DEFAULT '',
		occurred_at TIMESTAMP NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS signal_buffer_user_time ON signal_buffer (user_id, occurred_at)`,
	`CREATE TABLE IF NOT EXISTS assessment_sessions (
		id           TEXT PRIMARY KEY,
		user_id      TEXT NOT NULL,
		instruments  TEXT NOT NULL,
		started_at   TIMESTAMP NOT NULL,
		completed_at TIMESTAMP NULL,
		responses    TEXT NULL,
		context      TEXT NOT NULL DEFAULT '{}',
		badge_kind   TEXT NULL,
		badge_label  TEXT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS assessment_sessions_user_completed ON assessment_sessions (user_id, completed_at)`,
	`CREATE TABLE IF NOT EXISTS mood_entries (
		id          TEXT PRIMARY KEY,
		user_id     TEXT NOT NULL,
		valence     DOUBLE PRECISION NOT NULL,
		arousal     DOUBLE PRECISION NOT NULL,
		recorded_at TIMESTAMP NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS mood_entries_user_time ON mood_entries (user_id, recorded_at)`,
	`CREATE TABLE IF NOT EXISTS weekly_summaries (
		user_id     TEXT NOT NULL,
		week_iso    TEXT NOT NULL,
		verbal_week TEXT NOT NULL,
		helps       TEXT NOT NULL,
		season      TEXT NOT NULL DEFAULT '',
		hints       TEXT NOT NULL DEFAULT '{}',
		created_at  TIMESTAMP NOT NULL,
		updated_at  TIMESTAMP NOT NULL,
		PRIMARY KEY (user_id, week_iso)
	)`,
	`CREATE TABLE IF NOT EXISTS weekly_gardens (
		user_id    TEXT NOT NULL,
		week_iso   TEXT NOT NULL,
		growth     INTEGER NOT NULL,
		plant_type TEXT NOT NULL,
		flowers    INTEGER NOT NULL,
		sky_time   TEXT NOT NULL,
		weather    TEXT NOT NULL,
		particles  BOOLEAN NOT NULL,
		rarity     INTEGER NOT NULL,
		updated_at TIMESTAMP NOT NULL,
		PRIMARY KEY (user_id, week_iso)
	)`,
	`CREATE TABLE IF NOT EXISTS module_progress (
		user_id     TEXT NOT NULL,
		module_name TEXT NOT NULL,
		total_xp    BIGINT NOT NULL,
		PRIMARY KEY (user_id, module_name)
	)`,
	`CREATE TABLE IF NOT EXISTS module_unlocks (
		user_id     TEXT NOT NULL,
		module_name TEXT NOT NULL,
		item_id     TEXT NOT NULL,
		unlocked_at TIMESTAMP NOT NULL,
		PRIMARY KEY (user_id, module_name, item_id)
	)`,
	`CREATE TABLE IF NOT EXISTS org_members (
		org_id    TEXT NOT NULL,
		team_name TEXT NOT NULL,
		user_id   TEXT NOT NULL,
		PRIMARY KEY (org_id, user_id)
	)`,
	`CREATE TABLE IF NOT EXISTS team_aggregates (
		org_id       TEXT NOT NULL,
		team_name    TEXT NOT NULL,
		theme        TEXT NOT NULL,
		period_start TIMESTAMP NOT NULL,
		period_end   TIMESTAMP NOT NULL,
		phrases      TEXT NOT NULL,
		sample_size  INTEGER NOT NULL,
		updated_at   TIMESTAMP NOT NULL,
		PRIMARY KEY (org_id, team_name, theme, period_start, period_end)
	)`,
}

// Execer is the subset of *sql.DB needed to apply the schema.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Apply creates every table and index that does not exist yet.
func Apply(ctx context.Context, db Execer) error {
	for i, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema statement %d: %w", i+1, err)
		}
	}
	return nil
}
