package store

import (
	"context"
	"fmt"
	"strings"
)

const schema = `
CREATE TABLE IF NOT EXISTS users (
	uid           TEXT PRIMARY KEY,
	email         TEXT UNIQUE,
	name          TEXT NOT NULL,
	role          TEXT NOT NULL,
	student_id    TEXT,
	password_hash TEXT NOT NULL DEFAULT '',
	created_at    {{ts}} NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS exams (
	id           TEXT PRIMARY KEY,
	student_id   TEXT NOT NULL,
	student_name TEXT NOT NULL DEFAULT '',
	subject      TEXT NOT NULL,
	status       TEXT NOT NULL DEFAULT 'scheduled',
	room         TEXT NOT NULL DEFAULT '',
	date_time    {{ts}},
	created_at   {{ts}} NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at   {{ts}} NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_exams_student ON exams(student_id);
`

// Migrate creates the users and exams tables if they do not exist.
func Migrate(ctx context.Context, db *DB) error {
	ts := "TIMESTAMPTZ"
	if db.Dialect == SQLite {
		ts = "DATETIME"
	}
	for _, stmt := range strings.Split(strings.ReplaceAll(schema, "{{ts}}", ts), ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := db.Client.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}
