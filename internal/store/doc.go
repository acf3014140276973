// Package store persists conformance run results to SQLite.
//
// Each executed pass becomes one run row plus one outcome row per display
// key. History is append-only; reads are ordered deterministically so
// run listings and outcome dumps are stable across invocations.
package store
