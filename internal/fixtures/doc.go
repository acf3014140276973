// Package fixtures implements conditional fixture resolution for the
// conformance harness.
//
// A fixture variable is a named axis of test parametrization. Variables are
// resolved in a fixed canonical order; the generator for a variable may
// consume the already-resolved values of any earlier variable, never a later
// one. The resolver performs a left fold over the variable sequence: each
// partial assignment is expanded by the candidate values the next generator
// returns for it. Because the candidate set may differ between upstream
// partial assignments, the result is a conditional product - a sum over
// branches, not a flat Cartesian product.
//
// A generator returning zero candidates kills that branch of the fold. This
// is the mechanism by which a test is skipped entirely when, for example, no
// scenario applies to a given estimator class. A generator that is missing
// from the registry while a test declares its variable is a configuration
// error and always raises.
package fixtures
