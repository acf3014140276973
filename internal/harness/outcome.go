package harness

import "fmt"

// Status classifies the outcome of one executed (test, assignment) pair.
type Status int

const (
	// Passed means the check body returned without error.
	Passed Status = iota
	// Skipped means the check body declined applicability via SkipError.
	Skipped
	// Failed means the check body reported a contract violation.
	Failed
)

// Outcome is the recorded result of one executed unit. Units pruned at the
// fixture-product stage are never executed and produce no Outcome at all.
type Outcome struct {
	Status Status
	// Reason is set for Skipped outcomes.
	Reason string
	// Err carries the original error object for Failed outcomes.
	Err error
}

// String renders the outcome in the result-mapping format:
// "PASSED", "SKIPPED: <reason>", or "FAILED: <error>".
func (o Outcome) String() string {
	switch o.Status {
	case Passed:
		return "PASSED"
	case Skipped:
		return "SKIPPED: " + o.Reason
	default:
		return fmt.Sprintf("FAILED: %v", o.Err)
	}
}

// Results maps display keys ("test_name[fixture-names]") to outcomes.
// Exactly one entry per executed unit.
type Results map[string]Outcome

// Counts tallies the results by status.
func (r Results) Counts() (passed, skipped, failed int) {
	for _, o := range r {
		switch o.Status {
		case Passed:
			passed++
		case Skipped:
			skipped++
		default:
			failed++
		}
	}
	return passed, skipped, failed
}

// SkipError is raised deliberately by a check body to decline applicability
// of one specific assignment. It is recorded as SKIPPED, never as a failure.
type SkipError struct {
	Reason string
}

func (e *SkipError) Error() string { return "skipped: " + e.Reason }

// Skipf constructs a SkipError from a format string.
func Skipf(format string, args ...any) *SkipError {
	return &SkipError{Reason: fmt.Sprintf(format, args...)}
}

// ContractError reports a conformance violation by the estimator under
// test. It carries enough context to be actionable without a stack trace.
type ContractError struct {
	Check     string
	Estimator string
	Detail    string
}

func (e *ContractError) Error() string {
	return fmt.Sprintf("%s: estimator %s violates contract: %s", e.Check, e.Estimator, e.Detail)
}
