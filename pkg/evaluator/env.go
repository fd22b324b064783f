package evaluator

// Env holds the variable bindings of one function activation.
// Bindings are flat: if and while bodies share the enclosing function's
// namespace, and there is no parent chain.
type Env struct {
	bindings map[string]Value
}

// NewEnv creates an empty environment.
func NewEnv() *Env {
	return &Env{bindings: make(map[string]Value)}
}

// Get looks up a variable by name.
func (e *Env) Get(name string) (Value, bool) {
	val, ok := e.bindings[name]
	return val, ok
}

// Set binds or overwrites a variable.
func (e *Env) Set(name string, val Value) {
	e.bindings[name] = val
}

// Len returns the number of bindings.
func (e *Env) Len() int {
	return len(e.bindings)
}
