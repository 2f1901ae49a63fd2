package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

type Repository interface {
	CreateRun(ctx context.Context, run *Run) error
	FinishRun(ctx context.Context, run *Run) error
	GetRun(ctx context.Context, id string) (*Run, error)
	ListRuns(ctx context.Context, limit int) ([]*Run, error)

	AddOutcomes(ctx context.Context, outcomes []RowOutcome) error
	ListOutcomes(ctx context.Context, runID string) ([]RowOutcome, error)
}

type SQLiteRepository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

const runColumns = `id, status, workbook, sheet, output_audio, gap_ms, gap_policy, lead_in_ms,
	rows_merged, rows_skipped, duration_ms, error, started_at, finished_at`

func (r *SQLiteRepository) CreateRun(ctx context.Context, run *Run) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO runs (id, status, workbook, sheet, output_audio, gap_ms, gap_policy, lead_in_ms, started_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, run.ID, run.Status, run.Workbook, run.Sheet, run.OutputAudio, run.GapMs, run.GapPolicy, run.LeadInMs,
		run.StartedAt.UTC().Format(time.RFC3339Nano))
	return err
}

func (r *SQLiteRepository) FinishRun(ctx context.Context, run *Run) error {
	var finished sql.NullString
	if run.FinishedAt != nil {
		finished = sql.NullString{String: run.FinishedAt.UTC().Format(time.RFC3339Nano), Valid: true}
	}
	res, err := r.db.ExecContext(ctx, `
		UPDATE runs SET status = ?, rows_merged = ?, rows_skipped = ?, duration_ms = ?, error = ?, finished_at = ?
		WHERE id = ?
	`, run.Status, run.RowsMerged, run.RowsSkipped, run.DurationMs, nullString(run.Error), finished, run.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("run %s not found", run.ID)
	}
	return nil
}

func (r *SQLiteRepository) GetRun(ctx context.Context, id string) (*Run, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return run, err
}

func (r *SQLiteRepository) ListRuns(ctx context.Context, limit int) ([]*Run, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx, `SELECT `+runColumns+` FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (*Run, error) {
	var run Run
	var errMsg, finishedAt sql.NullString
	var startedAt string

	err := s.Scan(&run.ID, &run.Status, &run.Workbook, &run.Sheet, &run.OutputAudio,
		&run.GapMs, &run.GapPolicy, &run.LeadInMs,
		&run.RowsMerged, &run.RowsSkipped, &run.DurationMs,
		&errMsg, &startedAt, &finishedAt)
	if err != nil {
		return nil, err
	}

	run.Error = errMsg.String
	run.StartedAt = parseTime(startedAt)
	if finishedAt.Valid {
		t := parseTime(finishedAt.String)
		run.FinishedAt = &t
	}
	return &run, nil
}

// AddOutcomes inserts all outcomes in one transaction.
func (r *SQLiteRepository) AddOutcomes(ctx context.Context, outcomes []RowOutcome) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO row_outcomes (run_id, row, clip, outcome, source_path, strategy, merged_start, merged_end, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, o := range outcomes {
		if _, err := stmt.ExecContext(ctx, o.RunID, o.Row, o.Clip, o.Outcome,
			nullString(o.SourcePath), nullString(o.Strategy),
			nullFloat(o.MergedStart), nullFloat(o.MergedEnd), nullString(o.Error)); err != nil {
			return fmt.Errorf("failed to insert outcome for row %d: %w", o.Row, err)
		}
	}
	return tx.Commit()
}

func (r *SQLiteRepository) ListOutcomes(ctx context.Context, runID string) ([]RowOutcome, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT run_id, row, clip, outcome, source_path, strategy, merged_start, merged_end, error
		FROM row_outcomes WHERE run_id = ? ORDER BY row
	`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var outcomes []RowOutcome
	for rows.Next() {
		var o RowOutcome
		var source, strategy, errMsg sql.NullString
		var start, end sql.NullFloat64
		if err := rows.Scan(&o.RunID, &o.Row, &o.Clip, &o.Outcome, &source, &strategy, &start, &end, &errMsg); err != nil {
			return nil, err
		}
		o.SourcePath = source.String
		o.Strategy = strategy.String
		o.Error = errMsg.String
		if start.Valid {
			o.MergedStart = &start.Float64
		}
		if end.Valid {
			o.MergedEnd = &end.Float64
		}
		outcomes = append(outcomes, o)
	}
	return outcomes, rows.Err()
}

func parseTime(s string) time.Time {
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t
	}
	t, _ := time.Parse("2006-01-02 15:04:05", s)
	return t
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}
