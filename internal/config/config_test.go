package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFullConfig(t *testing.T) {
	src := `
scitype: "forecaster"
excluded_estimators: ["LegacyForecaster"]
excluded_tests: {
	NaiveForecaster: ["test_fit_idempotent"]
}
matrix_design: true
database: "results.db"
`
	cfg, err := Parse([]byte(src), "test.cue")
	require.NoError(t, err)

	assert.Equal(t, "forecaster", cfg.Scitype)
	assert.Equal(t, []string{"LegacyForecaster"}, cfg.ExcludedEstimators)
	assert.Equal(t, []string{"test_fit_idempotent"}, cfg.ExcludedTests["NaiveForecaster"])
	assert.True(t, cfg.MatrixDesign)
	assert.Equal(t, "results.db", cfg.Database)
}

func TestParseDefaults(t *testing.T) {
	cfg, err := Parse([]byte(""), "empty.cue")
	require.NoError(t, err)

	assert.Empty(t, cfg.Scitype)
	assert.Empty(t, cfg.ExcludedEstimators)
	assert.NotNil(t, cfg.ExcludedTests)
	assert.False(t, cfg.MatrixDesign)
	assert.Empty(t, cfg.Database)
}

func TestParseRejectsWrongType(t *testing.T) {
	_, err := Parse([]byte(`scitype: 42`), "bad.cue")
	require.Error(t, err)

	var cfgErr *Error
	assert.True(t, errors.As(err, &cfgErr))
}

func TestParseRejectsUnknownField(t *testing.T) {
	_, err := Parse([]byte(`no_such_option: true`), "bad.cue")
	assert.Error(t, err)
}

func TestParseReportsFieldInError(t *testing.T) {
	_, err := Parse([]byte("\nmatrix_design: \"yes\"\n"), "bad.cue")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "matrix_design")
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "harness.cue")
	require.NoError(t, os.WriteFile(path, []byte(`scitype: "forecaster"`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "forecaster", cfg.Scitype)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.cue"))
	assert.Error(t, err)
}

func TestSuiteConfigWiring(t *testing.T) {
	cfg := Config{
		Scitype:            "forecaster",
		ExcludedEstimators: []string{"LegacyForecaster"},
		ExcludedTests:      map[string][]string{"NaiveForecaster": {"test_clone"}},
		MatrixDesign:       true,
	}

	sc := cfg.SuiteConfig()
	assert.Equal(t, "forecaster", sc.Discovery.Scitype)
	assert.Equal(t, []string{"LegacyForecaster"}, sc.Discovery.Exclude)
	assert.True(t, sc.Discovery.MatrixDesign)
	assert.Equal(t, []string{"test_clone"}, sc.Policy.ExcludedTests["NaiveForecaster"])
}
