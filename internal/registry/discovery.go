package registry

import (
	"runtime"
	"strconv"
	"strings"
)

// DiscoverOptions controls estimator discovery.
type DiscoverOptions struct {
	// Scitype restricts discovery to one semantic category. Empty means
	// all scitypes.
	Scitype string

	// Exclude is the configured denylist of class names.
	Exclude []string

	// CythonOnly targets implementations tagged "requires_cython". When
	// false such implementations are excluded, since they need a build
	// environment the default matrix does not provide.
	CythonOnly bool

	// MatrixDesign enables deterministic subsampling to one third of the
	// estimators per (toolchain version, OS) cell, so a full OS x version
	// matrix covers every estimator exactly once per cycle.
	MatrixDesign bool

	// GoMinor and OS pin the matrix cell. Zero values mean "detect from
	// the running toolchain"; tests pin them for determinism.
	GoMinor int
	OS      string

	// RunPredicate is the external "should this class run at all" hook,
	// based on change detection and dependency availability. Nil runs
	// everything.
	RunPredicate func(*Entry) bool
}

// Discover enumerates the estimator classes matching the options, in
// registration order. The result is deterministic for fixed options and a
// fixed directory.
func Discover(dir *Directory, opts DiscoverOptions) []*Entry {
	excluded := make(map[string]bool, len(opts.Exclude))
	for _, name := range opts.Exclude {
		excluded[name] = true
	}

	var out []*Entry
	for _, e := range dir.All() {
		if opts.Scitype != "" && e.Scitype != opts.Scitype {
			continue
		}
		if excluded[e.Name] {
			continue
		}
		if e.ClassTags.GetBool("tests:skip_all", false) {
			continue
		}
		if e.ClassTags.GetBool("requires_cython", false) != opts.CythonOnly {
			continue
		}
		out = append(out, e)
	}

	if opts.MatrixDesign {
		out = subsampleByVersionOS(out, opts.GoMinor, opts.OS)
	}

	if opts.RunPredicate != nil {
		kept := out[:0]
		for _, e := range out {
			if opts.RunPredicate(e) {
				kept = append(kept, e)
			}
		}
		out = kept
	}
	return out
}

// subsampleByVersionOS picks one of three deterministic shards keyed by the
// toolchain minor version and operating system. Each estimator lands in
// exactly one shard, so CI cells running distinct (version, OS) pairs
// together cover the full set while each cell runs roughly a third.
func subsampleByVersionOS(entries []*Entry, goMinor int, osName string) []*Entry {
	if goMinor == 0 {
		goMinor = runtimeGoMinor()
	}
	if osName == "" {
		osName = runtime.GOOS
	}

	ix := goMinor % 3
	switch osName {
	case "windows":
		// no offset
	case "linux":
		ix++
	case "darwin":
		ix += 2
	default:
		// Unknown OS runs the version-keyed shard unchanged, so coverage
		// degrades gracefully rather than failing discovery.
	}
	ix %= 3

	part := Partition(len(entries), 3)
	shard := part[ix]
	out := make([]*Entry, 0, len(shard))
	for _, i := range shard {
		out = append(out, entries[i])
	}
	return out
}

// Partition splits the index range [0, n) into k deterministic parts.
// Element i belongs to part i mod k, which makes membership a pure function
// of (n, i): repeated calls on any machine produce identical shards.
func Partition(n, k int) [][]int {
	parts := make([][]int, k)
	for i := 0; i < n; i++ {
		parts[i%k] = append(parts[i%k], i)
	}
	return parts
}

// runtimeGoMinor parses the minor version out of runtime.Version, e.g. 25
// from "go1.25.3". Unparseable versions (devel builds) report 0.
func runtimeGoMinor() int {
	v := strings.TrimPrefix(runtime.Version(), "go")
	fields := strings.Split(v, ".")
	if len(fields) < 2 {
		return 0
	}
	minor, err := strconv.Atoi(fields[1])
	if err != nil {
		return 0
	}
	return minor
}
