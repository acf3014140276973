package store

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/modelproof/estcheck/internal/harness"
)

// Run is one recorded conformance pass.
type Run struct {
	ID        string
	CreatedAt time.Time
	// Scitype is the estimator type filter the pass ran under, empty
	// for all types.
	Scitype string
	// Estimator names the single class or instance targeted by an
	// ad-hoc pass, empty for a full-suite pass.
	Estimator string
	Passed    int
	Skipped   int
	Failed    int
}

// OutcomeRecord is one stored (display key, outcome) pair.
type OutcomeRecord struct {
	RunID  string
	Key    string
	Status string
	Detail string
}

// RunMeta describes the pass being recorded.
type RunMeta struct {
	Scitype   string
	Estimator string
}

// RecordRun persists a result mapping as a new run. The run id is a fresh
// UUID; outcome rows are written inside one transaction so a run is never
// half-visible.
func (s *Store) RecordRun(ctx context.Context, meta RunMeta, results harness.Results) (Run, error) {
	passed, skipped, failed := results.Counts()
	run := Run{
		ID:        uuid.NewString(),
		CreatedAt: time.Now().UTC(),
		Scitype:   meta.Scitype,
		Estimator: meta.Estimator,
		Passed:    passed,
		Skipped:   skipped,
		Failed:    failed,
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Run{}, fmt.Errorf("record run: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (id, created_at, scitype, estimator, passed, skipped, failed)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		run.ID,
		run.CreatedAt.Format(time.RFC3339Nano),
		run.Scitype,
		run.Estimator,
		run.Passed,
		run.Skipped,
		run.Failed,
	)
	if err != nil {
		return Run{}, fmt.Errorf("record run: %w", err)
	}

	// Sorted keys keep insertion order deterministic.
	keys := make([]string, 0, len(results))
	for key := range results {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		outcome := results[key]
		_, err := tx.ExecContext(ctx, `
			INSERT INTO outcomes (run_id, key, status, detail)
			VALUES (?, ?, ?, ?)
		`,
			run.ID, key, statusLabel(outcome), outcomeDetail(outcome),
		)
		if err != nil {
			return Run{}, fmt.Errorf("record outcome %q: %w", key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return Run{}, fmt.Errorf("record run: %w", err)
	}
	return run, nil
}

func statusLabel(o harness.Outcome) string {
	switch o.Status {
	case harness.Passed:
		return "PASSED"
	case harness.Skipped:
		return "SKIPPED"
	default:
		return "FAILED"
	}
}

func outcomeDetail(o harness.Outcome) string {
	switch o.Status {
	case harness.Skipped:
		return o.Reason
	case harness.Failed:
		if o.Err != nil {
			return o.Err.Error()
		}
		return "unknown failure"
	default:
		return ""
	}
}
