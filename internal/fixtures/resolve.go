package fixtures

import "strings"

// Resolution is the output of Resolve: the restricted variable list in
// canonical order, one value tuple per assignment, and one display name per
// assignment. Assignments[i][j] is the value of Vars[j] in assignment i.
type Resolution struct {
	Vars        []string
	Assignments [][]any
	Names       []string
}

// Keys returns the full display keys for a test, one per assignment.
func (r Resolution) Keys(testName string) []string {
	keys := make([]string, len(r.Names))
	for i, name := range r.Names {
		keys[i] = Key(testName, name)
	}
	return keys
}

// partial is one branch of the fold: the values fixed so far and their
// display names, in sequence order.
type partial struct {
	values []any
	names  []string
}

func (p partial) extend(value any, name string) partial {
	values := make([]any, len(p.values), len(p.values)+1)
	copy(values, p.values)
	names := make([]string, len(p.names), len(p.names)+1)
	copy(names, p.names)
	return partial{
		values: append(values, value),
		names:  append(names, name),
	}
}

// Resolve computes the conditional fixture product for one test.
//
// fixtureVars is the set of variables the test consumes; it is restricted to
// the variables present in sequence, preserving the canonical order given by
// sequence. Each variable's generator is invoked once per partial assignment
// produced so far, with the partial assignment as its resolved context. A
// generator returning zero candidates prunes that branch; other branches are
// unaffected.
//
// A variable declared by the test but missing from generators is a
// ConfigError. Generator errors propagate immediately; there is no
// silent-skip path for generator failures.
//
// A test declaring zero relevant variables resolves to exactly one empty
// assignment with an empty display name, so the test still executes once.
func Resolve(testName string, fixtureVars []string, generators map[string]Generator, sequence []string) (Resolution, error) {
	vars := restrict(fixtureVars, sequence)

	partials := []partial{{}}
	for _, v := range vars {
		gen, ok := generators[v]
		if !ok {
			return Resolution{}, Configf("test %q declares fixture variable %q but no generator is registered for it", testName, v)
		}

		var next []partial
		for _, p := range partials {
			resolved := Resolved{vars: vars[:len(p.values)], values: p.values}
			values, names, err := gen(testName, resolved)
			if err != nil {
				return Resolution{}, err
			}
			if len(values) != len(names) {
				return Resolution{}, Configf("generator for %q returned %d values but %d names", v, len(values), len(names))
			}
			for i, value := range values {
				next = append(next, p.extend(value, normalizeName(names[i])))
			}
		}
		partials = next
	}

	res := Resolution{
		Vars:        vars,
		Assignments: make([][]any, len(partials)),
		Names:       make([]string, len(partials)),
	}
	for i, p := range partials {
		res.Assignments[i] = p.values
		res.Names[i] = strings.Join(p.names, NameSeparator)
	}
	return res, nil
}

// restrict filters vars down to those present in sequence, in sequence
// order. Duplicates in vars collapse to one occurrence.
func restrict(vars, sequence []string) []string {
	want := make(map[string]bool, len(vars))
	for _, v := range vars {
		want[v] = true
	}
	var out []string
	for _, v := range sequence {
		if want[v] {
			out = append(out, v)
		}
	}
	return out
}
