package runtime

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/thomasrohde/brewin/pkg/evaluator"
	"github.com/thomasrohde/brewin/pkg/parser"
)

// ErrIncomplete is returned by Session.Eval when the input ends in the middle
// of a construct. The caller should read another line, append it, and retry.
var ErrIncomplete = errors.New("incomplete input")

// EvalResult describes one evaluated REPL input.
type EvalResult struct {
	// Value is the value of a top-level return, or Nil.
	Value evaluator.Value
	// Defined lists the registry keys of functions declared by the input.
	Defined []string
}

// Session is an interactive evaluation context. Top-level variables and
// function definitions persist across Eval calls.
type Session struct {
	rt   *Runtime
	eval *evaluator.Session
}

// NewSession starts an interactive session using the runtime's I/O, limits
// and builtins.
func (rt *Runtime) NewSession() *Session {
	return &Session{
		rt:   rt,
		eval: evaluator.NewSession(rt.buildExecOptions()),
	}
}

// Eval parses and runs one chunk of input. Function declarations are
// registered before statements run, so a chunk may call what it declares.
func (s *Session) Eval(ctx context.Context, source string) (*EvalResult, error) {
	snip, incomplete, diags := parser.ParseSnippet(source, "<repl>")
	if incomplete {
		return nil, ErrIncomplete
	}
	if len(diags) > 0 {
		return nil, &DiagnosticError{Diagnostics: diags}
	}

	res := &EvalResult{Defined: s.eval.Define(snip.Funcs)}
	for _, key := range res.Defined {
		s.rt.logger.Debug("defined function", "key", key)
	}
	val, err := s.eval.Exec(ctx, snip.Stmts)
	if err != nil {
		return res, err
	}
	res.Value = val
	return res, nil
}

// Variables returns the number of top-level variables currently bound.
func (s *Session) Variables() int {
	return s.eval.Env().Len()
}

// Functions returns the signature of every function defined so far, such as
// "add(a, b)". Overloads of a name are listed together, in definition order.
func (s *Session) Functions() []string {
	reg := s.eval.Registry()
	var sigs []string
	listed := make(map[string]bool)
	for _, key := range reg.Keys() {
		fn, err := reg.Lookup(key)
		if err != nil || listed[fn.Name] {
			continue
		}
		listed[fn.Name] = true
		for _, def := range reg.Overloads(fn.Name) {
			sigs = append(sigs, fmt.Sprintf("%s(%s)", def.Name, strings.Join(def.Params, ", ")))
		}
	}
	return sigs
}

// Stats returns resource usage accumulated over the session.
func (s *Session) Stats() evaluator.Tracker {
	return s.eval.Stats()
}
