// Package config loads harness configuration from CUE files.
//
// User files unify against an embedded schema, so unknown fields and type
// mismatches are reported with source positions instead of surfacing later
// as odd runtime behavior.
package config

import (
	_ "embed"
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/modelproof/estcheck/internal/harness"
	"github.com/modelproof/estcheck/internal/registry"
)

//go:embed schema.cue
var schemaCUE string

// Config is the decoded harness configuration.
type Config struct {
	Scitype            string              `json:"scitype"`
	ExcludedEstimators []string            `json:"excluded_estimators"`
	ExcludedTests      map[string][]string `json:"excluded_tests"`
	MatrixDesign       bool                `json:"matrix_design"`
	Database           string              `json:"database"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		ExcludedTests: map[string][]string{},
	}
}

// Load reads and validates a CUE configuration file.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	return Parse(data, path)
}

// Parse validates CUE configuration bytes against the embedded schema.
// filename only labels error positions.
func Parse(data []byte, filename string) (Config, error) {
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return Config{}, fmt.Errorf("compile embedded schema: %w", err)
	}

	value := ctx.CompileBytes(data, cue.Filename(filename))
	if err := value.Err(); err != nil {
		return Config{}, formatCUEError(err)
	}

	unified := schema.Unify(value)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return Config{}, formatCUEError(err)
	}

	cfg := Default()
	if err := unified.Decode(&cfg); err != nil {
		return Config{}, formatCUEError(err)
	}
	if cfg.ExcludedTests == nil {
		cfg.ExcludedTests = map[string][]string{}
	}
	return cfg, nil
}

// SuiteConfig translates the configuration into harness wiring.
func (c Config) SuiteConfig() harness.SuiteConfig {
	return harness.SuiteConfig{
		Discovery: registry.DiscoverOptions{
			Scitype:      c.Scitype,
			Exclude:      c.ExcludedEstimators,
			MatrixDesign: c.MatrixDesign,
		},
		Policy: harness.Policy{
			ExcludedTests: c.ExcludedTests,
		},
	}
}

// Error is a configuration error with an optional source position.
type Error struct {
	Message string
	Pos     token.Pos
}

func (e *Error) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Message)
	}
	return e.Message
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	firstErr := errs[0]
	positions := cueerrors.Positions(firstErr)
	if len(positions) > 0 {
		return &Error{Message: firstErr.Error(), Pos: positions[0]}
	}
	return &Error{Message: firstErr.Error()}
}
