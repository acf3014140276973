package harness

import (
	"fmt"

	"github.com/modelproof/estcheck/internal/registry"
)

// Canonical fixture variable names.
const (
	VarEstimatorClass     = "estimator_class"
	VarEstimatorInstance  = "estimator_instance"
	VarScenario           = "scenario"
	VarMethodNSC          = "method_nsc"
	VarMethodNSCArraylike = "method_nsc_arraylike"
)

// DefaultFixtureSequence is the canonical evaluation order of fixture
// variables. A variable's generator may read any earlier variable's
// resolved value, never a later one.
var DefaultFixtureSequence = []string{
	VarEstimatorClass,
	VarEstimatorInstance,
	VarScenario,
	VarMethodNSC,
	VarMethodNSCArraylike,
}

// Axis is a statically declared parameter axis on a check, independent of
// the fixture-variable system. Axes are composed into the same conditional
// fold as fixture variables, as fixed generators appended after the
// canonical sequence.
type Axis struct {
	// Var names the axis; checks read the value via Context.Param.
	Var string
	// Values are the candidate values.
	Values []any
	// Names are the display names; when empty, indices are used, matching
	// the host runner's default identifiers.
	Names []string
}

// displayNames returns the axis display names, defaulting to indices.
func (a Axis) displayNames() []string {
	if len(a.Names) == len(a.Values) {
		return a.Names
	}
	names := make([]string, len(a.Values))
	for i := range a.Values {
		names[i] = fmt.Sprintf("%d", i)
	}
	return names
}

// CheckFunc is one conformance check body. It returns nil on pass, a
// *SkipError to decline applicability, or any other error to report a
// contract violation.
type CheckFunc func(ctx *Context) error

// Check is a registered test descriptor: a name, the fixture variables it
// consumes, optional static parameter axes, and the body.
type Check struct {
	Name   string
	Vars   []string
	Params []Axis
	Fn     CheckFunc
}

// Context carries the resolved fixture values for one assignment into a
// check body, plus the suite for collaborator access (directory, logger).
type Context struct {
	Suite    *Suite
	TestName string
	values   map[string]any
}

// Value returns the raw resolved value of a fixture variable or axis.
func (c *Context) Value(name string) (any, bool) {
	v, ok := c.values[name]
	return v, ok
}

// Class returns the resolved estimator class.
func (c *Context) Class() *registry.Entry {
	if e, ok := c.values[VarEstimatorClass].(*registry.Entry); ok {
		return e
	}
	return nil
}

// Instance returns the resolved estimator instance. It is a fresh clone,
// private to this assignment.
func (c *Context) Instance() registry.Estimator {
	if e, ok := c.values[VarEstimatorInstance].(registry.Estimator); ok {
		return e
	}
	return nil
}

// Scenario returns the resolved scenario.
func (c *Context) Scenario() registry.Scenario {
	if s, ok := c.values[VarScenario].(registry.Scenario); ok {
		return s
	}
	return nil
}

// MethodNSC returns the resolved non-state-changing method name.
func (c *Context) MethodNSC() string {
	if m, ok := c.values[VarMethodNSC].(string); ok {
		return m
	}
	if m, ok := c.values[VarMethodNSCArraylike].(string); ok {
		return m
	}
	return ""
}

// Param returns the resolved value of a static axis.
func (c *Context) Param(name string) any {
	return c.values[name]
}

// violationf builds a ContractError naming the check and estimator under
// test.
func (c *Context) violationf(format string, args ...any) error {
	name := "<unknown>"
	if cls := c.Class(); cls != nil {
		name = cls.Name
	} else if inst := c.Instance(); inst != nil {
		name = inst.ClassName()
	}
	return &ContractError{
		Check:     c.TestName,
		Estimator: name,
		Detail:    fmt.Sprintf(format, args...),
	}
}
