// Package runtime provides the top-level Brewin runtime orchestrator.
package runtime

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/thomasrohde/brewin/pkg/config"
	"github.com/thomasrohde/brewin/pkg/diagnostics"
	"github.com/thomasrohde/brewin/pkg/evaluator"
	"github.com/thomasrohde/brewin/pkg/formatter"
	"github.com/thomasrohde/brewin/pkg/parser"
	"github.com/thomasrohde/brewin/pkg/stdlib"
	"github.com/thomasrohde/brewin/pkg/validator"
)

// maxParallelChecks bounds CheckFiles concurrency.
const maxParallelChecks = 8

// Result holds the outcome of a program execution.
type Result struct {
	RunID string
	Value evaluator.Value
	Stats evaluator.Tracker
}

// Runtime wires together all Brewin components for program execution.
type Runtime struct {
	builtins *stdlib.Registry
	stdout   evaluator.OutputSink
	stdin    evaluator.InputSource
	runID    string
	trace    func(event evaluator.TraceEvent)
	logger   *slog.Logger
	limits   evaluator.Limits
}

// Option is a functional option for configuring the Runtime.
type Option func(*Runtime)

// WithBuiltins sets the builtin registry.
func WithBuiltins(r *stdlib.Registry) Option {
	return func(rt *Runtime) {
		rt.builtins = r
	}
}

// WithStdout sets where program output goes.
func WithStdout(w io.Writer) Option {
	return func(rt *Runtime) {
		rt.stdout = evaluator.NewWriterSink(w)
	}
}

// WithOutputSink sets the program output sink directly.
func WithOutputSink(sink evaluator.OutputSink) Option {
	return func(rt *Runtime) {
		rt.stdout = sink
	}
}

// WithStdin sets where inputi reads from.
func WithStdin(r io.Reader) Option {
	return func(rt *Runtime) {
		rt.stdin = evaluator.NewReaderSource(r)
	}
}

// WithInputSource sets where inputi reads from directly.
func WithInputSource(src evaluator.InputSource) Option {
	return func(rt *Runtime) {
		rt.stdin = src
	}
}

// WithRunID sets the run ID for trace events. When unset, each run gets a
// fresh UUID.
func WithRunID(id string) Option {
	return func(rt *Runtime) {
		rt.runID = id
	}
}

// WithTrace sets the trace callback.
func WithTrace(fn func(event evaluator.TraceEvent)) Option {
	return func(rt *Runtime) {
		rt.trace = fn
	}
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(rt *Runtime) {
		rt.logger = l
	}
}

// WithLimits sets execution limits.
func WithLimits(l evaluator.Limits) Option {
	return func(rt *Runtime) {
		rt.limits = l
	}
}

// WithConfig applies the limits from a loaded configuration.
func WithConfig(cfg *config.Config) Option {
	return func(rt *Runtime) {
		rt.limits = evaluator.Limits{
			MaxCallDepth:  cfg.Limits.MaxCallDepth,
			MaxIterations: cfg.Limits.MaxIterations,
		}
	}
}

// New creates a new Runtime with the given options.
// By default, print and inputi are registered, output goes to os.Stdout and
// input comes from os.Stdin.
func New(opts ...Option) *Runtime {
	rt := &Runtime{
		builtins: stdlib.Defaults(),
	}
	for _, opt := range opts {
		opt(rt)
	}
	if rt.stdout == nil {
		rt.stdout = evaluator.NewWriterSink(os.Stdout)
	}
	if rt.stdin == nil {
		rt.stdin = evaluator.NewReaderSource(os.Stdin)
	}
	if rt.logger == nil {
		rt.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return rt
}

// Run parses and executes a Brewin program. Parse failures are returned as
// *DiagnosticError; runtime failures as *evaluator.RuntimeError. The lint
// pass is not part of running.
func (rt *Runtime) Run(ctx context.Context, source, filename string) (*Result, error) {
	program, diags := parser.Parse(source, filename)
	if len(diags) > 0 {
		return nil, &DiagnosticError{Diagnostics: diags}
	}

	opts := rt.buildExecOptions()
	log := rt.logger.With("run", opts.RunID, "file", filename)
	log.Info("run start", "functions", len(program.Funcs))

	result, err := evaluator.Execute(ctx, program, opts)
	res := &Result{RunID: opts.RunID}
	if result != nil {
		res.Value = result.Value
		res.Stats = result.Stats
	}
	if err != nil {
		log.Info("run failed", "error", err)
		return res, err
	}
	log.Info("run end", "calls", res.Stats.Calls, "iterations", res.Stats.Iterations)
	return res, nil
}

// Check parses and validates a Brewin program without executing it.
func (rt *Runtime) Check(source, filename string) []diagnostics.Diagnostic {
	program, diags := parser.Parse(source, filename)
	if len(diags) > 0 {
		return diags
	}

	vDiags := validator.Validate(program)
	return vDiags
}

// Format parses and formats a Brewin program.
func (rt *Runtime) Format(source, filename string) (string, error) {
	program, diags := parser.Parse(source, filename)
	if len(diags) > 0 {
		return "", &DiagnosticError{Diagnostics: diags}
	}
	return formatter.Format(program), nil
}

// FileReport holds the check result for one file.
type FileReport struct {
	Path        string                   `json:"path"`
	Diagnostics []diagnostics.Diagnostic `json:"diagnostics"`
}

// CheckFiles checks many files concurrently. Reports come back in the order
// of paths. An unreadable file aborts the whole check.
func (rt *Runtime) CheckFiles(ctx context.Context, paths []string) ([]FileReport, error) {
	reports := make([]FileReport, len(paths))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelChecks)

	for i, path := range paths {
		i, path := i, path
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			data, err := os.ReadFile(path)
			if err != nil {
				return errors.Wrapf(err, "read %s", path)
			}
			diags := rt.Check(string(data), path)
			if diags == nil {
				diags = []diagnostics.Diagnostic{}
			}
			reports[i] = FileReport{Path: path, Diagnostics: diags}
			rt.logger.Debug("checked file", "path", path, "diagnostics", len(diags))
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return reports, nil
}

// buildExecOptions constructs evaluator options from the runtime's configuration.
func (rt *Runtime) buildExecOptions() evaluator.ExecOptions {
	runID := rt.runID
	if runID == "" {
		runID = uuid.NewString()
	}
	return evaluator.ExecOptions{
		Builtins: rt.builtins.Builtins(),
		Stdout:   rt.stdout,
		Stdin:    rt.stdin,
		Limits:   rt.limits,
		Trace:    rt.trace,
		RunID:    runID,
		Logger:   rt.logger,
	}
}

// DiagnosticError wraps diagnostics as an error.
type DiagnosticError struct {
	Diagnostics []diagnostics.Diagnostic
}

func (e *DiagnosticError) Error() string {
	msgs := make([]string, len(e.Diagnostics))
	for i, d := range e.Diagnostics {
		msgs[i] = fmt.Sprintf("%s: %s", d.Code, d.Message)
	}
	return strings.Join(msgs, "; ")
}
