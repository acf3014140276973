// Package testutil provides reference estimator and scenario
// implementations of the contracts in internal/registry.
//
// The conforming implementations back the harness's own tests and the demo
// directory wired into the estcheck binary. The deliberately broken variants
// exist so tests can verify that conformance checks actually catch contract
// violations.
package testutil

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/modelproof/estcheck/internal/registry"
)

// NaiveForecaster is a minimal conforming forecaster: it memorizes a level
// from the training series ("last" value or "mean") and predicts it flat
// over the forecast horizon.
type NaiveForecaster struct {
	// hyper-parameters
	Strategy string
	Window   int

	// fitted state
	fitted bool
	level  float64
	fh     []int
}

// NewNaiveForecaster constructs an unfitted forecaster with defaults
// overlaid by params.
func NewNaiveForecaster(params map[string]any) (*NaiveForecaster, error) {
	f := &NaiveForecaster{Strategy: "last", Window: 1}
	if err := f.SetParams(params); err != nil {
		return nil, err
	}
	return f, nil
}

func (f *NaiveForecaster) ClassName() string { return "NaiveForecaster" }

func (f *NaiveForecaster) GetParams() map[string]any {
	return map[string]any{"strategy": f.Strategy, "window": f.Window}
}

func (f *NaiveForecaster) SetParams(params map[string]any) error {
	for name, value := range params {
		switch name {
		case "strategy":
			s, ok := value.(string)
			if !ok {
				return fmt.Errorf("parameter strategy must be a string, got %T", value)
			}
			f.Strategy = s
		case "window":
			w, ok := toInt(value)
			if !ok {
				return fmt.Errorf("parameter window must be an int, got %T", value)
			}
			f.Window = w
		default:
			return fmt.Errorf("unknown parameter %q for NaiveForecaster", name)
		}
	}
	return nil
}

func (f *NaiveForecaster) Clone() registry.Estimator {
	return &NaiveForecaster{Strategy: f.Strategy, Window: f.Window}
}

func (f *NaiveForecaster) IsFitted() bool { return f.fitted }

func (f *NaiveForecaster) GetTags() registry.Tags {
	return registry.Tags{"scitype:y": "univariate", "requires-fh-in-fit": false}
}

func (f *NaiveForecaster) GetTag(name string, def any) any {
	return f.GetTags().Get(name, def)
}

// Fit memorizes the forecast level from args["y"]. An optional args["fh"]
// fixes the horizon early; otherwise it must be supplied to Predict.
func (f *NaiveForecaster) Fit(args map[string]any) error {
	y, ok := args["y"].([]float64)
	if !ok || len(y) == 0 {
		return fmt.Errorf("fit requires a non-empty []float64 arg %q", "y")
	}
	window := f.Window
	if window <= 0 || window > len(y) {
		window = len(y)
	}
	tail := y[len(y)-window:]

	switch f.Strategy {
	case "last":
		f.level = tail[len(tail)-1]
	case "mean":
		var sum float64
		for _, v := range tail {
			sum += v
		}
		f.level = sum / float64(len(tail))
	default:
		return fmt.Errorf("unknown strategy %q", f.Strategy)
	}

	if fh, ok := args["fh"].([]int); ok {
		f.fh = append([]int(nil), fh...)
	}
	f.fitted = true
	return nil
}

// Predict returns the memorized level for each horizon step.
func (f *NaiveForecaster) Predict(args map[string]any) (any, error) {
	fh, err := f.horizon(args)
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(fh))
	for i := range fh {
		out[i] = f.level
	}
	return out, nil
}

// PredictInterval returns degenerate intervals around the level.
func (f *NaiveForecaster) PredictInterval(args map[string]any) (any, error) {
	fh, err := f.horizon(args)
	if err != nil {
		return nil, err
	}
	out := make([][2]float64, len(fh))
	for i := range fh {
		out[i] = [2]float64{f.level, f.level}
	}
	return out, nil
}

// GetFittedParams exposes the memorized level.
func (f *NaiveForecaster) GetFittedParams() (map[string]any, error) {
	if !f.fitted {
		return nil, fmt.Errorf("get_fitted_params: %w", registry.ErrNotFitted)
	}
	return map[string]any{"level": f.level}, nil
}

func (f *NaiveForecaster) horizon(args map[string]any) ([]int, error) {
	if !f.fitted {
		return nil, fmt.Errorf("predict: %w", registry.ErrNotFitted)
	}
	if fh, ok := args["fh"].([]int); ok && len(fh) > 0 {
		return fh, nil
	}
	if len(f.fh) > 0 {
		return f.fh, nil
	}
	return nil, fmt.Errorf("no forecast horizon supplied in fit or predict")
}

// savedEstimator is the on-disk representation produced by Save.
type savedEstimator struct {
	Class  string         `json:"class"`
	Params map[string]any `json:"params"`
	Fitted bool           `json:"fitted"`
	Level  float64        `json:"level"`
	FH     []int          `json:"fh,omitempty"`
}

// Save serializes the forecaster. An empty path returns the in-memory
// handle only; a non-empty path also writes the handle to disk.
func (f *NaiveForecaster) Save(path string) ([]byte, error) {
	blob, err := json.Marshal(savedEstimator{
		Class:  f.ClassName(),
		Params: f.GetParams(),
		Fitted: f.fitted,
		Level:  f.level,
		FH:     f.fh,
	})
	if err != nil {
		return nil, fmt.Errorf("save %s: %w", f.ClassName(), err)
	}
	if path != "" {
		if err := os.WriteFile(path, blob, 0o644); err != nil {
			return nil, fmt.Errorf("save %s: %w", f.ClassName(), err)
		}
	}
	return blob, nil
}

// Load is the deserializer installed on the demo directory. It accepts the
// raw handle bytes or a path to a saved file.
func Load(handle any) (registry.Estimator, error) {
	var blob []byte
	switch h := handle.(type) {
	case []byte:
		blob = h
	case string:
		data, err := os.ReadFile(h)
		if err != nil {
			return nil, fmt.Errorf("load estimator: %w", err)
		}
		blob = data
	default:
		return nil, fmt.Errorf("load estimator: unsupported handle type %T", handle)
	}

	var saved savedEstimator
	if err := json.Unmarshal(blob, &saved); err != nil {
		return nil, fmt.Errorf("load estimator: %w", err)
	}
	if saved.Class != "NaiveForecaster" {
		return nil, fmt.Errorf("load estimator: unknown class %q", saved.Class)
	}

	f, err := NewNaiveForecaster(saved.Params)
	if err != nil {
		return nil, err
	}
	f.fitted = saved.Fitted
	f.level = saved.Level
	f.fh = saved.FH
	return f, nil
}

// toInt widens the integer types JSON and YAML decoders produce.
func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		if n == float64(int(n)) {
			return int(n), true
		}
	}
	return 0, false
}
