package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/modelproof/estcheck/internal/harness"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	st, err := Open(filepath.Join(t.TempDir(), "results.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

func sampleResults() harness.Results {
	return harness.Results{
		"test_constructor[NaiveForecaster]":          {Status: harness.Passed},
		"test_clone[NaiveForecaster]":                {Status: harness.Passed},
		"test_persistence_via_save[NaiveForecaster]": {Status: harness.Skipped, Reason: "estimator does not implement save"},
		"test_set_params[ManglingForecaster]":        {Status: harness.Failed, Err: errors.New("params mangled")},
	}
}

func TestOpenAppliesPragmas(t *testing.T) {
	st := openTestStore(t)

	assert.NoError(t, st.verifyPragma("journal_mode", "wal"))
	assert.NoError(t, st.verifyPragma("foreign_keys", "1"))
}

func TestOpenIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.db")

	st1, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, st1.Close())

	st2, err := Open(path)
	require.NoError(t, err)
	assert.NoError(t, st2.Close())
}

func TestRecordAndReadRun(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	run, err := st.RecordRun(ctx, RunMeta{Scitype: "forecaster"}, sampleResults())
	require.NoError(t, err)
	require.NotEmpty(t, run.ID)
	assert.Equal(t, 2, run.Passed)
	assert.Equal(t, 1, run.Skipped)
	assert.Equal(t, 1, run.Failed)

	got, outcomes, err := st.ReadRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, run.ID, got.ID)
	assert.Equal(t, "forecaster", got.Scitype)

	require.Len(t, outcomes, 4)
	// Ordered by key.
	assert.Equal(t, "test_clone[NaiveForecaster]", outcomes[0].Key)
	assert.Equal(t, "PASSED", outcomes[0].Status)

	byKey := make(map[string]OutcomeRecord, len(outcomes))
	for _, rec := range outcomes {
		byKey[rec.Key] = rec
	}
	assert.Equal(t, "SKIPPED", byKey["test_persistence_via_save[NaiveForecaster]"].Status)
	assert.Equal(t, "estimator does not implement save", byKey["test_persistence_via_save[NaiveForecaster]"].Detail)
	assert.Equal(t, "FAILED", byKey["test_set_params[ManglingForecaster]"].Status)
	assert.Equal(t, "params mangled", byKey["test_set_params[ManglingForecaster]"].Detail)
}

func TestReadRunNotFound(t *testing.T) {
	st := openTestStore(t)

	_, _, err := st.ReadRun(context.Background(), "no-such-run")
	assert.ErrorIs(t, err, ErrRunNotFound)
}

func TestReadRunEmptyResults(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	run, err := st.RecordRun(ctx, RunMeta{}, harness.Results{})
	require.NoError(t, err)

	_, outcomes, err := st.ReadRun(ctx, run.ID)
	require.NoError(t, err)
	assert.NotNil(t, outcomes)
	assert.Empty(t, outcomes)
}

func TestListRunsMostRecentFirst(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	first, err := st.RecordRun(ctx, RunMeta{Estimator: "NaiveForecaster"}, sampleResults())
	require.NoError(t, err)
	second, err := st.RecordRun(ctx, RunMeta{}, sampleResults())
	require.NoError(t, err)

	runs, err := st.ListRuns(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, second.ID, runs[0].ID)
	assert.Equal(t, first.ID, runs[1].ID)
	assert.Equal(t, "NaiveForecaster", runs[1].Estimator)
}
