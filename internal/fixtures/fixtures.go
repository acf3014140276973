package fixtures

import (
	"fmt"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// NameSeparator joins per-variable display names into one identifier.
const NameSeparator = "-"

// Generator produces candidate values for one fixture variable.
//
// testName is the name of the test the fixture is generated for. resolved
// holds the values of all upstream variables already fixed on the current
// branch of the fold. Generators must be pure: same inputs, same candidates.
//
// values and names must have equal length; names[i] is the display name of
// values[i]. Returning empty slices means the variable is not applicable on
// this branch, which prunes the branch without error.
type Generator func(testName string, resolved Resolved) (values []any, names []string, err error)

// Resolved is an immutable ordered record of upstream fixture values.
//
// Generators receive a Resolved rather than an open keyword map so the
// ordering contract is enforced structurally: only variables earlier in the
// canonical sequence are present.
type Resolved struct {
	vars   []string
	values []any
}

// Lookup returns the resolved value for a variable, and whether it is set.
func (r Resolved) Lookup(name string) (any, bool) {
	for i, v := range r.vars {
		if v == name {
			return r.values[i], true
		}
	}
	return nil, false
}

// Has reports whether the variable has been resolved upstream.
func (r Resolved) Has(name string) bool {
	_, ok := r.Lookup(name)
	return ok
}

// Vars returns the resolved variable names in canonical order.
func (r Resolved) Vars() []string {
	out := make([]string, len(r.vars))
	copy(out, r.vars)
	return out
}

// with returns a new record extended by one variable. The receiver is not
// modified; branches of the fold must not share backing arrays.
func (r Resolved) with(name string, value any) Resolved {
	vars := make([]string, len(r.vars), len(r.vars)+1)
	copy(vars, r.vars)
	values := make([]any, len(r.values), len(r.values)+1)
	copy(values, r.values)
	return Resolved{
		vars:   append(vars, name),
		values: append(values, value),
	}
}

// ConfigError reports a misconfigured fixture setup: an unknown fixture
// variable, a generator returning mismatched value/name lists, or a
// malformed selection filter. Configuration errors indicate a bug in the
// caller of the harness, not in an estimator, and are never suppressed.
type ConfigError struct {
	Message string
}

func (e *ConfigError) Error() string {
	return "fixture configuration: " + e.Message
}

// Configf constructs a ConfigError from a format string.
func Configf(format string, args ...any) *ConfigError {
	return &ConfigError{Message: fmt.Sprintf(format, args...)}
}

// Key formats the display key for one (test, assignment) pair.
//
// The bracket syntax matches the host test-runner's identifier format, so
// keys can be used verbatim in selection filters. A test with no fixture
// variables gets an empty bracket: "test_name[]".
func Key(testName, displayName string) string {
	return testName + "[" + displayName + "]"
}

// TestNameOf extracts the test name from a display key, i.e. the prefix up
// to the first bracket. Keys without brackets are returned unchanged.
func TestNameOf(key string) string {
	if i := strings.IndexByte(key, '['); i >= 0 {
		return key[:i]
	}
	return key
}

// normalizeName NFC-normalizes a display name so keys are stable regardless
// of how the source strings were composed.
func normalizeName(name string) string {
	return norm.NFC.String(name)
}

// Fixed returns a generator that yields the same candidates on every branch,
// ignoring upstream values. Used for statically declared parameter axes and
// for pinning the estimator under test in the ad-hoc executor.
func Fixed(values []any, names []string) Generator {
	return func(string, Resolved) ([]any, []string, error) {
		return values, names, nil
	}
}

// FixedFunc returns a generator that recomputes its single candidate on
// every invocation. Needed for instance-typed variables where each branch
// must receive a fresh clone rather than a shared value.
func FixedFunc(fn func() (any, string, error)) Generator {
	return func(string, Resolved) ([]any, []string, error) {
		value, name, err := fn()
		if err != nil {
			return nil, nil, err
		}
		return []any{value}, []string{name}, nil
	}
}
