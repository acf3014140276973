package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ErrRunNotFound is returned when a run id does not exist.
var ErrRunNotFound = errors.New("run not found")

// ReadRun returns a run and its outcomes ordered by display key.
//
// Returns an empty outcome slice (not nil) for a run with no outcomes.
func (s *Store) ReadRun(ctx context.Context, id string) (Run, []OutcomeRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, created_at, scitype, estimator, passed, skipped, failed
		FROM runs
		WHERE id = ?
	`, id)

	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, nil, fmt.Errorf("read run %q: %w", id, ErrRunNotFound)
	}
	if err != nil {
		return Run{}, nil, fmt.Errorf("read run %q: %w", id, err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, key, status, detail
		FROM outcomes
		WHERE run_id = ?
		ORDER BY key COLLATE BINARY ASC
	`, id)
	if err != nil {
		return Run{}, nil, fmt.Errorf("query outcomes: %w", err)
	}
	defer rows.Close()

	outcomes := []OutcomeRecord{}
	for rows.Next() {
		var rec OutcomeRecord
		if err := rows.Scan(&rec.RunID, &rec.Key, &rec.Status, &rec.Detail); err != nil {
			return Run{}, nil, fmt.Errorf("scan outcome: %w", err)
		}
		outcomes = append(outcomes, rec)
	}
	if err := rows.Err(); err != nil {
		return Run{}, nil, fmt.Errorf("iterate outcomes: %w", err)
	}

	return run, outcomes, nil
}

// ListRuns returns the recorded runs, most recent first. Ties on timestamp
// break on id for a stable order.
func (s *Store) ListRuns(ctx context.Context) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, created_at, scitype, estimator, passed, skipped, failed
		FROM runs
		ORDER BY created_at DESC, id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}

	return runs, nil
}

// scanner abstracts over sql.Row and sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (Run, error) {
	var run Run
	var createdAt string
	err := row.Scan(&run.ID, &createdAt, &run.Scitype, &run.Estimator, &run.Passed, &run.Skipped, &run.Failed)
	if err != nil {
		return Run{}, err
	}
	run.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return Run{}, fmt.Errorf("parse created_at %q: %w", createdAt, err)
	}
	return run, nil
}
