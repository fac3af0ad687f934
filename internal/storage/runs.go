package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"pma/internal/analysis"
	pmaerrors "pma/internal/errors"
	"pma/internal/ruledb"
)

// RunRecord is the persisted digest of an analysis run.
type RunRecord struct {
	ID          string           `json:"id"`
	StartedAt   time.Time        `json:"startedAt"`
	FinishedAt  time.Time        `json:"finishedAt"`
	From        string           `json:"from"`
	To          string           `json:"to"`
	Platform    string           `json:"platform,omitempty"`
	Files       int              `json:"files"`
	Issues      int              `json:"issues"`
	Critical    int              `json:"critical"`
	High        int              `json:"high"`
	EffortHours float64          `json:"effortHours"`
	Cancelled   bool             `json:"cancelled"`
	Summary     analysis.Summary `json:"summary"`
}

// SaveRun records a completed or cancelled run.
func (db *DB) SaveRun(ctx context.Context, run *analysis.AnalysisRun) error {
	summary, err := encodePayload(run.Summary)
	if err != nil {
		return err
	}

	cancelled := 0
	if run.Cancelled {
		cancelled = 1
	}

	return db.WithTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT OR REPLACE INTO runs
			(id, started_at, finished_at, from_version, to_version, platform,
			 files, issues, critical, high, effort_hours, cancelled, summary)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`,
			run.ID,
			run.StartedAt.UTC().Format(time.RFC3339Nano),
			run.FinishedAt.UTC().Format(time.RFC3339Nano),
			run.Options.From,
			run.Options.To,
			run.Options.Platform,
			run.Files,
			run.Summary.TotalIssues,
			run.Summary.BySeverity[ruledb.SeverityCritical],
			run.Summary.BySeverity[ruledb.SeverityHigh],
			run.EffortHours,
			cancelled,
			summary,
		)
		if err != nil {
			return fmt.Errorf("failed to save run %s: %w", run.ID, err)
		}
		return nil
	})
}

const runColumns = `id, started_at, finished_at, from_version, to_version, platform,
	files, issues, critical, high, effort_hours, cancelled, summary`

// ListRuns returns the most recent runs first. limit <= 0 returns all.
func (db *DB) ListRuns(ctx context.Context, limit int) ([]RunRecord, error) {
	query := "SELECT " + runColumns + " FROM runs ORDER BY started_at DESC"
	args := []interface{}{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var records []RunRecord
	for rows.Next() {
		rec, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// GetRun loads one run by ID.
func (db *DB) GetRun(ctx context.Context, id string) (*RunRecord, error) {
	row := db.QueryRowContext(ctx, "SELECT "+runColumns+" FROM runs WHERE id = ?", id)
	rec, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, pmaerrors.Newf(pmaerrors.RunNotFound, "run %s not found", id)
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(s rowScanner) (RunRecord, error) {
	var rec RunRecord
	var started, finished string
	var cancelled int
	var summary []byte

	err := s.Scan(&rec.ID, &started, &finished, &rec.From, &rec.To, &rec.Platform,
		&rec.Files, &rec.Issues, &rec.Critical, &rec.High, &rec.EffortHours, &cancelled, &summary)
	if err != nil {
		return rec, err
	}

	rec.StartedAt, _ = time.Parse(time.RFC3339Nano, started)
	rec.FinishedAt, _ = time.Parse(time.RFC3339Nano, finished)
	rec.Cancelled = cancelled != 0
	if len(summary) > 0 {
		if err := decodePayload(summary, &rec.Summary); err != nil {
			return rec, err
		}
	}
	return rec, nil
}
