// Package harness executes estimator conformance checks.
//
// A Suite owns a fixture-generator table and a set of registered checks.
// Each check declares the fixture variables it consumes; the fixtures
// package folds those variables into concrete assignments, and the suite's
// executor runs the check body once per assignment. Estimator values are
// cloned per assignment, so no state travels between executed units.
//
// Checks report violations as ContractError, decline inapplicable
// assignments with SkipError, and otherwise pass. The executor maps each
// display key to exactly one Outcome.
package harness
