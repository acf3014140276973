package testutil

import "github.com/modelproof/estcheck/internal/registry"

// LeakyForecaster violates clone isolation: Clone carries fitted state
// across, so state mutated in one test assignment leaks into the next.
// Exists to prove the harness catches the violation.
type LeakyForecaster struct {
	NaiveForecaster
}

// NewLeakyForecaster constructs the broken forecaster.
func NewLeakyForecaster(params map[string]any) (*LeakyForecaster, error) {
	inner, err := NewNaiveForecaster(params)
	if err != nil {
		return nil, err
	}
	return &LeakyForecaster{NaiveForecaster: *inner}, nil
}

func (f *LeakyForecaster) ClassName() string { return "LeakyForecaster" }

// Clone returns a full copy including fitted state - the contract violation.
func (f *LeakyForecaster) Clone() registry.Estimator {
	cp := *f
	return &cp
}

// ManglingForecaster violates the parameter round-trip contract: SetParams
// silently rewrites the strategy, so get_params(set_params(x)) != x.
type ManglingForecaster struct {
	NaiveForecaster
}

// NewManglingForecaster constructs the broken forecaster.
func NewManglingForecaster(params map[string]any) (*ManglingForecaster, error) {
	inner, err := NewNaiveForecaster(params)
	if err != nil {
		return nil, err
	}
	return &ManglingForecaster{NaiveForecaster: *inner}, nil
}

func (f *ManglingForecaster) ClassName() string { return "ManglingForecaster" }

func (f *ManglingForecaster) SetParams(params map[string]any) error {
	if err := f.NaiveForecaster.SetParams(params); err != nil {
		return err
	}
	if _, ok := params["strategy"]; ok {
		f.Strategy = "mangled"
	}
	return nil
}

func (f *ManglingForecaster) Clone() registry.Estimator {
	return &ManglingForecaster{NaiveForecaster: NaiveForecaster{Strategy: f.Strategy, Window: f.Window}}
}
