package evaluator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/thomasrohde/brewin/pkg/ast"
	"github.com/thomasrohde/brewin/pkg/diagnostics"
)

// TraceEventType identifies the type of a trace event.
type TraceEventType string

const (
	TraceRunStart    TraceEventType = "run_start"
	TraceRunEnd      TraceEventType = "run_end"
	TraceStmtStart   TraceEventType = "stmt_start"
	TraceStmtEnd     TraceEventType = "stmt_end"
	TraceFnCallStart TraceEventType = "fn_call_start"
	TraceFnCallEnd   TraceEventType = "fn_call_end"
	TraceBuiltinCall TraceEventType = "builtin_call"
	TraceWhileStart  TraceEventType = "while_start"
	TraceWhileEnd    TraceEventType = "while_end"
)

// TraceEvent represents a single trace event emitted during execution.
type TraceEvent struct {
	Timestamp string         `json:"ts"`
	RunID     string         `json:"runId"`
	Event     TraceEventType `json:"event"`
	Span      *ast.Span      `json:"span,omitempty"`
	Data      map[string]any `json:"data,omitempty"`
}

// Builtin defines a host-provided function such as print.
type Builtin struct {
	Name string
	// MaxArgs is the largest accepted argument count; negative means unlimited.
	MaxArgs int
	Execute func(host *Host, args []Value) (Value, error)
}

// ExecOptions configures program execution.
type ExecOptions struct {
	Builtins map[string]*Builtin
	Stdout   OutputSink
	Stdin    InputSource
	Limits   Limits
	Trace    func(event TraceEvent)
	RunID    string
	Logger   *slog.Logger
}

// ExecResult holds the result of a program execution.
type ExecResult struct {
	// Value is what main returned, Nil if it fell off the end.
	Value Value
	Stats Tracker
}

// Signal is the control outcome of executing a statement or block.
type Signal struct {
	Returned bool
	Value    Value
}

type frame struct {
	fn  *ast.FuncDecl
	env *Env
}

type evaluator struct {
	ctx      context.Context
	opts     ExecOptions
	ops      *OpTable
	registry *Registry
	frames   *stack[*frame]
	host     *Host
	logger   *slog.Logger
	tracker  Tracker
}

func newEvaluator(opts ExecOptions) *evaluator {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	host := &Host{Out: opts.Stdout, In: opts.Stdin}
	if host.Out == nil {
		host.Out = &LineBuffer{}
	}
	if host.In == nil {
		host.In = NewLineQueue()
	}
	return &evaluator{
		opts:     opts,
		ops:      NewOpTable(),
		registry: NewRegistry(logger),
		frames:   newStack[*frame](16),
		host:     host,
		logger:   logger,
	}
}

func (ev *evaluator) emit(event TraceEventType, span *ast.Span, data map[string]any) {
	if ev.opts.Trace != nil {
		ev.opts.Trace(TraceEvent{
			Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
			RunID:     ev.opts.RunID,
			Event:     event,
			Span:      span,
			Data:      data,
		})
	}
}

// Execute registers the program's functions, then runs main in a fresh
// activation and returns its value.
func Execute(ctx context.Context, program *ast.Program, opts ExecOptions) (*ExecResult, error) {
	ev := newEvaluator(opts)
	ev.ctx = ctx
	ev.registry.RegisterAll(program.Funcs)

	span := program.Span
	ev.emit(TraceRunStart, &span, nil)

	val, err := ev.runMain()

	end := map[string]any{
		"calls":      ev.tracker.Calls,
		"iterations": ev.tracker.Iterations,
		"ok":         err == nil,
	}
	var re *RuntimeError
	if errors.As(err, &re) {
		end["code"] = re.Code
	}
	ev.emit(TraceRunEnd, &span, end)

	if err != nil {
		return &ExecResult{Stats: ev.tracker}, err
	}
	return &ExecResult{Value: val, Stats: ev.tracker}, nil
}

func (ev *evaluator) runMain() (Value, error) {
	main, err := ev.registry.Resolve("main", 0)
	if err != nil {
		var re *RuntimeError
		if errors.As(err, &re) {
			re.Message = "no main() function with zero parameters"
		}
		return nil, err
	}
	return ev.callFunction(main, nil, main.Span)
}

// --- Statements ---

func (ev *evaluator) execBlock(stmts []ast.Stmt, env *Env) (Signal, error) {
	for _, stmt := range stmts {
		sig, err := ev.execStmt(stmt, env)
		if err != nil || sig.Returned {
			return sig, err
		}
	}
	return Signal{}, nil
}

func (ev *evaluator) execStmt(stmt ast.Stmt, env *Env) (Signal, error) {
	span := stmt.NodeSpan()
	ev.emit(TraceStmtStart, &span, map[string]any{"kind": stmt.Kind()})

	sig, err := ev.dispatchStmt(stmt, env)

	if err == nil {
		ev.emit(TraceStmtEnd, &span, map[string]any{"kind": stmt.Kind()})
	}
	return sig, err
}

func (ev *evaluator) dispatchStmt(stmt ast.Stmt, env *Env) (Signal, error) {
	switch s := stmt.(type) {
	case *ast.CallStmt:
		_, err := ev.evalCall(s.Call, env)
		return Signal{}, err

	case *ast.AssignStmt:
		val, err := ev.evalExpr(s.Value, env)
		if err != nil {
			return Signal{}, err
		}
		env.Set(s.Name, val)
		return Signal{}, nil

	case *ast.IfStmt:
		cond, err := ev.evalCondition(s.Cond, env, "if")
		if err != nil {
			return Signal{}, err
		}
		if cond {
			return ev.execBlock(s.ThenBody, env)
		}
		if s.ElseBody != nil {
			return ev.execBlock(s.ElseBody, env)
		}
		return Signal{}, nil

	case *ast.WhileStmt:
		return ev.execWhile(s, env)

	case *ast.ReturnStmt:
		if s.Value == nil {
			return Signal{Returned: true, Value: Nil}, nil
		}
		val, err := ev.evalExpr(s.Value, env)
		if err != nil {
			return Signal{}, err
		}
		return Signal{Returned: true, Value: val}, nil
	}

	span := stmt.NodeSpan()
	return Signal{}, &RuntimeError{
		Code:    diagnostics.EType,
		Message: fmt.Sprintf("unsupported statement %s", stmt.Kind()),
		Span:    &span,
	}
}

func (ev *evaluator) execWhile(s *ast.WhileStmt, env *Env) (Signal, error) {
	span := s.Span
	ev.emit(TraceWhileStart, &span, nil)

	var iterations int64
	for {
		if err := ev.checkCanceled(&span); err != nil {
			return Signal{}, err
		}
		cond, err := ev.evalCondition(s.Cond, env, "while")
		if err != nil {
			return Signal{}, err
		}
		if !cond {
			break
		}
		if err := ev.countIteration(&span); err != nil {
			return Signal{}, err
		}
		iterations++
		sig, err := ev.execBlock(s.Body, env)
		if err != nil {
			return Signal{}, err
		}
		if sig.Returned {
			ev.emit(TraceWhileEnd, &span, map[string]any{"iterations": iterations, "returned": true})
			return sig, nil
		}
	}

	ev.emit(TraceWhileEnd, &span, map[string]any{"iterations": iterations})
	return Signal{}, nil
}

func (ev *evaluator) evalCondition(expr ast.Expr, env *Env, construct string) (bool, error) {
	val, err := ev.evalExpr(expr, env)
	if err != nil {
		return false, err
	}
	b, ok := val.(BoolValue)
	if !ok {
		span := expr.NodeSpan()
		return false, typeError(&span, "%s condition must be bool, got %s", construct, val.Type())
	}
	return b.Value, nil
}

func (ev *evaluator) countIteration(span *ast.Span) error {
	ev.tracker.Iterations++
	if limit := ev.opts.Limits.MaxIterations; limit > 0 && ev.tracker.Iterations > limit {
		return &RuntimeError{
			Code:    diagnostics.EBudget,
			Message: fmt.Sprintf("iteration budget exceeded (max %d)", limit),
			Span:    span,
		}
	}
	return nil
}

func (ev *evaluator) checkCanceled(span *ast.Span) error {
	if ev.ctx == nil {
		return nil
	}
	if err := ev.ctx.Err(); err != nil {
		return &RuntimeError{
			Code:    diagnostics.ECanceled,
			Message: fmt.Sprintf("execution canceled: %v", err),
			Span:    span,
		}
	}
	return nil
}

// --- Expressions ---

func (ev *evaluator) evalExpr(expr ast.Expr, env *Env) (Value, error) {
	switch e := expr.(type) {
	case *ast.IntLiteral:
		return NewInt(e.Value), nil

	case *ast.StrLiteral:
		return NewString(e.Value), nil

	case *ast.BoolLiteral:
		return NewBool(e.Value), nil

	case *ast.NilLiteral:
		return Nil, nil

	case *ast.VarRef:
		val, ok := env.Get(e.Name)
		if !ok {
			span := e.Span
			return nil, nameError(&span, "variable %s has not been defined", e.Name)
		}
		return val, nil

	case *ast.BinaryExpr:
		left, err := ev.evalExpr(e.Left, env)
		if err != nil {
			return nil, err
		}
		right, err := ev.evalExpr(e.Right, env)
		if err != nil {
			return nil, err
		}
		val, err := ev.ops.Apply(e.Op, left, right)
		if err != nil {
			return nil, withSpan(err, e.Span)
		}
		return val, nil

	case *ast.UnaryExpr:
		operand, err := ev.evalExpr(e.Operand, env)
		if err != nil {
			return nil, err
		}
		val, err := ev.ops.ApplyUnary(e.Op, operand)
		if err != nil {
			return nil, withSpan(err, e.Span)
		}
		return val, nil

	case *ast.CallExpr:
		return ev.evalCall(e, env)
	}

	span := expr.NodeSpan()
	return nil, &RuntimeError{
		Code:    diagnostics.EType,
		Message: fmt.Sprintf("unsupported expression %s", expr.Kind()),
		Span:    &span,
	}
}

// withSpan fills in the location of a RuntimeError raised without one.
func withSpan(err error, span ast.Span) error {
	var re *RuntimeError
	if errors.As(err, &re) && re.Span == nil {
		re.Span = &span
	}
	return err
}

// --- Calls ---

func (ev *evaluator) evalCall(e *ast.CallExpr, env *Env) (Value, error) {
	if b, ok := ev.opts.Builtins[e.Name]; ok {
		return ev.callBuiltin(b, e, env)
	}

	fn, err := ev.registry.Resolve(e.Name, len(e.Args))
	if err != nil {
		return nil, withSpan(err, e.Span)
	}

	args := make([]Value, len(e.Args))
	for i, arg := range e.Args {
		val, err := ev.evalExpr(arg, env)
		if err != nil {
			return nil, err
		}
		args[i] = val
	}
	return ev.callFunction(fn, args, e.Span)
}

func (ev *evaluator) callBuiltin(b *Builtin, e *ast.CallExpr, env *Env) (Value, error) {
	span := e.Span
	if b.MaxArgs >= 0 && len(e.Args) > b.MaxArgs {
		noun := "parameters"
		if b.MaxArgs == 1 {
			noun = "parameter"
		}
		return nil, nameError(&span, "no %s() overload takes >%d %s", b.Name, b.MaxArgs, noun)
	}

	args := make([]Value, len(e.Args))
	for i, arg := range e.Args {
		val, err := ev.evalExpr(arg, env)
		if err != nil {
			return nil, err
		}
		args[i] = val
	}

	ev.emit(TraceBuiltinCall, &span, map[string]any{"name": b.Name, "argc": len(args)})
	result, err := b.Execute(ev.host, args)
	if err != nil {
		var re *RuntimeError
		if errors.As(err, &re) {
			return nil, withSpan(re, span)
		}
		return nil, &RuntimeError{
			Code:    diagnostics.EIO,
			Message: fmt.Sprintf("%s: %v", b.Name, err),
			Span:    &span,
		}
	}
	if result == nil {
		result = Nil
	}
	return result, nil
}

// callFunction runs fn in a fresh activation whose environment binds only
// its parameters.
func (ev *evaluator) callFunction(fn *ast.FuncDecl, args []Value, callSpan ast.Span) (Value, error) {
	if err := ev.checkCanceled(&callSpan); err != nil {
		return nil, err
	}
	if limit := ev.opts.Limits.callDepth(); ev.frames.len() >= limit {
		return nil, &RuntimeError{
			Code:    diagnostics.EBudget,
			Message: fmt.Sprintf("call depth exceeded (max %d)", limit),
			Span:    &callSpan,
		}
	}

	env := NewEnv()
	for i, param := range fn.Params {
		env.Set(param, args[i])
	}

	ev.frames.push(&frame{fn: fn, env: env})
	ev.tracker.Calls++
	if depth := ev.frames.len(); depth > ev.tracker.MaxDepth {
		ev.tracker.MaxDepth = depth
	}
	ev.logger.Debug("push activation", "fn", fn.Name, "depth", ev.frames.len())
	ev.emit(TraceFnCallStart, &callSpan, map[string]any{"name": fn.Name, "argc": len(args)})

	sig, err := ev.execBlock(fn.Body, env)
	if err != nil {
		var re *RuntimeError
		if errors.As(err, &re) && re.Stack == nil {
			re.Stack = ev.stackTrace()
		}
	}

	ev.frames.pop()
	ev.logger.Debug("pop activation", "fn", fn.Name, "depth", ev.frames.len())
	ev.emit(TraceFnCallEnd, &callSpan, map[string]any{"name": fn.Name})

	if err != nil {
		return nil, err
	}
	if sig.Returned {
		return sig.Value, nil
	}
	return Nil, nil
}

// stackTrace lists active frames, innermost first.
func (ev *evaluator) stackTrace() []string {
	out := make([]string, 0, ev.frames.len())
	ev.frames.each(func(f *frame) {
		out = append(out, f.fn.Name)
	})
	return out
}
