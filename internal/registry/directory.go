package registry

import "fmt"

// LoadFunc deserializes an estimator from a handle produced by Saver.Save:
// either the raw handle bytes or a string path to a saved file.
type LoadFunc func(handle any) (Estimator, error)

// Directory is the injected, read-only lookup service for estimator
// implementations. It is populated once by the estimator library and then
// only queried; the harness never mutates it.
type Directory struct {
	entries   []*Entry
	byName    map[string]*Entry
	scenarios ScenarioSource
	load      LoadFunc
}

// NewDirectory returns an empty directory.
func NewDirectory() *Directory {
	return &Directory{byName: make(map[string]*Entry)}
}

// Register adds an estimator entry. Duplicate names are rejected so display
// keys stay unambiguous.
func (d *Directory) Register(e *Entry) error {
	if e.Name == "" {
		return fmt.Errorf("register estimator: empty name")
	}
	if _, exists := d.byName[e.Name]; exists {
		return fmt.Errorf("register estimator: duplicate name %q", e.Name)
	}
	d.byName[e.Name] = e
	d.entries = append(d.entries, e)
	return nil
}

// MustRegister registers an entry and panics on error. Intended for
// estimator library init code where a duplicate is a programming error.
func (d *Directory) MustRegister(e *Entry) {
	if err := d.Register(e); err != nil {
		panic(err)
	}
}

// Lookup returns the entry for a class name.
func (d *Directory) Lookup(name string) (*Entry, bool) {
	e, ok := d.byName[name]
	return e, ok
}

// EntryFor returns the entry an instance was constructed from, resolved via
// the instance's class name.
func (d *Directory) EntryFor(est Estimator) (*Entry, bool) {
	return d.Lookup(est.ClassName())
}

// All returns the registered entries in registration order. The returned
// slice is a copy; callers may filter it freely.
func (d *Directory) All() []*Entry {
	out := make([]*Entry, len(d.entries))
	copy(out, d.entries)
	return out
}

// SetScenarioSource installs the scenario library's lookup hook.
func (d *Directory) SetScenarioSource(src ScenarioSource) {
	d.scenarios = src
}

// ScenariosFor returns the scenarios applicable to an estimator class or
// instance. Without a source, no scenarios apply.
func (d *Directory) ScenariosFor(obj any) []Scenario {
	if d.scenarios == nil {
		return nil
	}
	return d.scenarios(obj)
}

// SetLoader installs the estimator library's deserializer.
func (d *Directory) SetLoader(fn LoadFunc) {
	d.load = fn
}

// Load deserializes an estimator from a Saver handle or file path.
func (d *Directory) Load(handle any) (Estimator, error) {
	if d.load == nil {
		return nil, fmt.Errorf("directory has no loader installed")
	}
	return d.load(handle)
}
