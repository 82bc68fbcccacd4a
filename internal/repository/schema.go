package repository

import (
	"context"

	entsql "entgo.io/ent/dialect/sql"
)

const runsTable = "extraction_runs"

// Timestamps are unix milliseconds so both dialects scan them the same way.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS extraction_runs (
	id TEXT PRIMARY KEY,
	file_path TEXT NOT NULL,
	status TEXT NOT NULL,
	model TEXT NOT NULL DEFAULT '',
	strategy TEXT NOT NULL DEFAULT '',
	fields_total INTEGER NOT NULL DEFAULT 0,
	fields_located INTEGER NOT NULL DEFAULT 0,
	error_message TEXT NOT NULL DEFAULT '',
	started_at BIGINT NOT NULL,
	finished_at BIGINT
)`,
	`CREATE INDEX IF NOT EXISTS extraction_runs_file_path_idx ON extraction_runs (file_path, started_at)`,
}

func migrate(ctx context.Context, drv *entsql.Driver) error {
	for _, stmt := range migrations {
		if err := drv.Exec(ctx, stmt, []any{}, nil); err != nil {
			return err
		}
	}
	return nil
}
