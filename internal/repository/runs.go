package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/pdf-field-extractor/constants"
	"github.com/joseph-ayodele/pdf-field-extractor/internal/common"
)

// Run is one row of extraction_runs.
type Run struct {
	ID            string
	FilePath      string
	Status        constants.RunStatus
	Model         string
	Strategy      string
	FieldsTotal   int
	FieldsLocated int
	ErrorMessage  string
	StartedAt     time.Time
	FinishedAt    *time.Time
}

// RunLedger records one row per processed document.
type RunLedger interface {
	Start(ctx context.Context, filePath, model, strategy string) (*Run, error)
	Finish(ctx context.Context, runID string, fieldsTotal, fieldsLocated int) error
	Fail(ctx context.Context, runID, message string) error
	Latest(ctx context.Context, filePath string) (*Run, error)
}

type runLedger struct {
	db  *DB
	log *slog.Logger
	now func() time.Time
}

func NewRunLedger(db *DB, log *slog.Logger) RunLedger {
	if log == nil {
		log = slog.Default()
	}
	return &runLedger{db: db, log: log, now: time.Now}
}

var runColumns = []string{
	"id", "file_path", "status", "model", "strategy",
	"fields_total", "fields_located", "error_message", "started_at", "finished_at",
}

func (r *runLedger) Start(ctx context.Context, filePath, model, strategy string) (*Run, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return nil, err
	}
	run := &Run{
		ID:        id.String(),
		FilePath:  filePath,
		Status:    constants.RunStatusRunning,
		Model:     model,
		Strategy:  strategy,
		StartedAt: r.now().UTC().Truncate(time.Millisecond),
	}

	q, args := entsql.Dialect(r.db.Dialect()).
		Insert(runsTable).
		Columns("id", "file_path", "status", "model", "strategy", "started_at").
		Values(run.ID, run.FilePath, run.Status.String(), run.Model, run.Strategy, run.StartedAt.UnixMilli()).
		Query()
	if err := r.db.drv.Exec(ctx, q, args, nil); err != nil {
		r.log.Error("ledger.run.start_failed", "file", filePath, "error", err)
		return nil, fmt.Errorf("%w: %w", common.ErrDatabase, err)
	}
	r.log.Info("ledger.run.started", "run_id", run.ID, "file", filePath, "model", model)
	return run, nil
}

func (r *runLedger) Finish(ctx context.Context, runID string, fieldsTotal, fieldsLocated int) error {
	q, args := entsql.Dialect(r.db.Dialect()).
		Update(runsTable).
		Set("status", constants.RunStatusOK.String()).
		Set("fields_total", fieldsTotal).
		Set("fields_located", fieldsLocated).
		Set("finished_at", r.now().UTC().UnixMilli()).
		Where(entsql.EQ("id", runID)).
		Query()
	if err := r.update(ctx, q, args); err != nil {
		r.log.Error("ledger.run.finish_failed", "run_id", runID, "error", err)
		return err
	}
	r.log.Info("ledger.run.finished", "run_id", runID, "fields", fieldsTotal, "located", fieldsLocated)
	return nil
}

func (r *runLedger) Fail(ctx context.Context, runID, message string) error {
	q, args := entsql.Dialect(r.db.Dialect()).
		Update(runsTable).
		Set("status", constants.RunStatusFailed.String()).
		Set("error_message", message).
		Set("finished_at", r.now().UTC().UnixMilli()).
		Where(entsql.EQ("id", runID)).
		Query()
	if err := r.update(ctx, q, args); err != nil {
		r.log.Error("ledger.run.fail_failed", "run_id", runID, "error", err)
		return err
	}
	r.log.Warn("ledger.run.failed", "run_id", runID, "error", message)
	return nil
}

func (r *runLedger) update(ctx context.Context, q string, args []any) error {
	var res sql.Result
	if err := r.db.drv.Exec(ctx, q, args, &res); err != nil {
		return fmt.Errorf("%w: %w", common.ErrDatabase, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: %w", common.ErrDatabase, err)
	}
	if n == 0 {
		return common.ErrNotFound
	}
	return nil
}

// Latest returns the most recent run for filePath, or common.ErrNotFound.
func (r *runLedger) Latest(ctx context.Context, filePath string) (*Run, error) {
	d := entsql.Dialect(r.db.Dialect())
	q, args := d.Select(runColumns...).
		From(d.Table(runsTable)).
		Where(entsql.EQ("file_path", filePath)).
		OrderBy(entsql.Desc("started_at"), entsql.Desc("id")).
		Limit(1).
		Query()

	var rows entsql.Rows
	if err := r.db.drv.Query(ctx, q, args, &rows); err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrDatabase, err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("%w: %w", common.ErrDatabase, err)
		}
		return nil, common.ErrNotFound
	}

	var (
		run            Run
		status         string
		started        int64
		finished       sql.NullInt64
		total, located int64
	)
	if err := rows.Scan(
		&run.ID, &run.FilePath, &status, &run.Model, &run.Strategy,
		&total, &located, &run.ErrorMessage, &started, &finished,
	); err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrDatabase, err)
	}
	run.Status = constants.RunStatus(status)
	run.FieldsTotal = int(total)
	run.FieldsLocated = int(located)
	run.StartedAt = time.UnixMilli(started).UTC()
	if finished.Valid {
		t := time.UnixMilli(finished.Int64).UTC()
		run.FinishedAt = &t
	}
	return &run, nil
}
