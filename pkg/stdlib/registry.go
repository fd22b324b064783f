// Package stdlib provides the Brewin builtin function registry.
package stdlib

import (
	"sort"

	"github.com/thomasrohde/brewin/pkg/evaluator"
)

// Fn represents a builtin function.
type Fn struct {
	Name string
	// MaxArgs is the largest accepted argument count; -1 means unlimited.
	MaxArgs int
	// Usage is a one-line call form shown by help, e.g. "inputi([prompt])".
	Usage   string
	Doc     string
	Execute func(host *evaluator.Host, args []evaluator.Value) (evaluator.Value, error)
}

// Registry holds registered builtins.
type Registry struct {
	fns map[string]*Fn
}

// NewRegistry creates a new empty builtin registry.
func NewRegistry() *Registry {
	return &Registry{
		fns: make(map[string]*Fn),
	}
}

// Register adds a builtin to the registry, replacing any of the same name.
func (r *Registry) Register(fn Fn) {
	r.fns[fn.Name] = &fn
}

// Get retrieves a builtin by name.
func (r *Registry) Get(name string) *Fn {
	return r.fns[name]
}

// Names returns the registered names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.fns))
	for name := range r.fns {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Builtins converts the registry into the table the evaluator dispatches on.
func (r *Registry) Builtins() map[string]*evaluator.Builtin {
	out := make(map[string]*evaluator.Builtin, len(r.fns))
	for name, fn := range r.fns {
		out[name] = &evaluator.Builtin{
			Name:    fn.Name,
			MaxArgs: fn.MaxArgs,
			Execute: fn.Execute,
		}
	}
	return out
}

// Defaults returns a registry holding print and inputi.
func Defaults() *Registry {
	r := NewRegistry()
	RegisterDefaults(r)
	return r
}
