package evaluator

import (
	"context"
	"errors"

	"github.com/thomasrohde/brewin/pkg/ast"
)

// Session evaluates a sequence of inputs against one registry and one
// top-level activation, as an interactive shell does. Variables assigned at
// the top level persist between inputs; function calls still get fresh
// activations.
type Session struct {
	ev  *evaluator
	top *frame
}

// NewSession creates a session with an empty registry.
func NewSession(opts ExecOptions) *Session {
	ev := newEvaluator(opts)
	top := &frame{fn: &ast.FuncDecl{Name: "<repl>"}, env: NewEnv()}
	ev.frames.push(top)
	return &Session{ev: ev, top: top}
}

// Define registers fns and returns the key each was stored under.
func (s *Session) Define(fns []*ast.FuncDecl) []string {
	keys := make([]string, len(fns))
	for i, fn := range fns {
		keys[i] = s.ev.registry.Register(fn)
	}
	return keys
}

// Exec runs stmts in the top-level activation. A return statement stops the
// input and yields its value; otherwise the result is Nil.
func (s *Session) Exec(ctx context.Context, stmts []ast.Stmt) (Value, error) {
	s.ev.ctx = ctx
	sig, err := s.ev.execBlock(stmts, s.top.env)
	if err != nil {
		var re *RuntimeError
		if errors.As(err, &re) && re.Stack == nil {
			re.Stack = s.ev.stackTrace()
		}
		return nil, err
	}
	if sig.Returned {
		return sig.Value, nil
	}
	return Nil, nil
}

// Env returns the top-level environment.
func (s *Session) Env() *Env {
	return s.top.env
}

// Registry returns the session's function registry.
func (s *Session) Registry() *Registry {
	return s.ev.registry
}

// Stats returns resource usage accumulated over the session.
func (s *Session) Stats() Tracker {
	return s.ev.tracker
}
