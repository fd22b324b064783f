package evaluator

import (
	"io"
	"log/slog"
	"strconv"

	"github.com/thomasrohde/brewin/pkg/ast"
)

// Registry holds the user-defined functions of a program.
//
// Every definition is stored under a unique key: the first definition of a
// name keeps the plain name, later ones get a numeric suffix starting at 2
// (f, f2, f3, ...). Calls are resolved by name and argument count.
type Registry struct {
	byKey     map[string]*ast.FuncDecl
	overloads map[string][]*ast.FuncDecl // source order
	keys      []string
	logger    *slog.Logger
}

// NewRegistry creates an empty registry. A nil logger discards.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Registry{
		byKey:     make(map[string]*ast.FuncDecl),
		overloads: make(map[string][]*ast.FuncDecl),
		logger:    logger,
	}
}

// RegisterAll registers fns in order.
func (r *Registry) RegisterAll(fns []*ast.FuncDecl) {
	for _, fn := range fns {
		r.Register(fn)
	}
}

// Register adds fn and returns the key it was stored under.
func (r *Registry) Register(fn *ast.FuncDecl) string {
	key := fn.Name
	if _, taken := r.byKey[key]; taken {
		for n := 2; ; n++ {
			key = fn.Name + strconv.Itoa(n)
			if _, taken := r.byKey[key]; !taken {
				break
			}
		}
	}
	r.byKey[key] = fn
	r.overloads[fn.Name] = append(r.overloads[fn.Name], fn)
	r.keys = append(r.keys, key)
	r.logger.Debug("registered function", "name", fn.Name, "key", key, "arity", len(fn.Params))
	return key
}

// Lookup returns the definition stored under key.
func (r *Registry) Lookup(key string) (*ast.FuncDecl, error) {
	fn, ok := r.byKey[key]
	if !ok {
		return nil, nameError(nil, "function %s is not defined", key)
	}
	return fn, nil
}

// Resolve selects the definition of name taking argc parameters. Among
// definitions with equal arity the first in source order wins.
func (r *Registry) Resolve(name string, argc int) (*ast.FuncDecl, error) {
	defs := r.overloads[name]
	if len(defs) == 0 {
		return nil, nameError(nil, "function %s is not defined", name)
	}
	for _, fn := range defs {
		if len(fn.Params) == argc {
			return fn, nil
		}
	}
	return nil, nameError(nil, "no overload of %s takes %d arguments", name, argc)
}

// Overloads returns every definition registered for name in source order.
func (r *Registry) Overloads(name string) []*ast.FuncDecl {
	return r.overloads[name]
}

// Keys returns all registry keys in registration order.
func (r *Registry) Keys() []string {
	return append([]string(nil), r.keys...)
}
