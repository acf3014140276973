// Package registry defines the estimator and scenario contracts consumed by
// the conformance harness, and the read-only directory service used to
// discover estimator implementations.
//
// The harness never holds implicit ties to a process-wide registry: a
// Directory is constructed by the estimator library and injected into the
// harness, which queries it once per resolution pass.
package registry
