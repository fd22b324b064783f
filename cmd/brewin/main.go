// Command brewin is the Brewin interpreter CLI.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"github.com/alecthomas/kingpin/v2"
	"github.com/davecgh/go-spew/spew"
	"github.com/pkg/errors"

	"github.com/thomasrohde/brewin/pkg/config"
	"github.com/thomasrohde/brewin/pkg/diagnostics"
	"github.com/thomasrohde/brewin/pkg/evaluator"
	"github.com/thomasrohde/brewin/pkg/formatter"
	"github.com/thomasrohde/brewin/pkg/help"
	"github.com/thomasrohde/brewin/pkg/parser"
	"github.com/thomasrohde/brewin/pkg/runtime"
	"github.com/thomasrohde/brewin/pkg/stdlib"
	"github.com/thomasrohde/brewin/pkg/trace"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	c := &cli{
		stdin:  os.Stdin,
		stdout: os.Stdout,
		stderr: os.Stderr,
		exit:   os.Exit,
	}
	code := c.run(ctx, os.Args[1:])
	stop()
	os.Exit(code)
}

// cli holds the process streams so commands can be driven from tests.
type cli struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
	exit   func(int)

	cfg    *config.Config
	logger *slog.Logger
}

type runOptions struct {
	file          string
	trace         string
	input         string
	debugParse    bool
	maxDepth      int
	maxIterations int64
}

func (c *cli) run(ctx context.Context, args []string) int {
	app := kingpin.New("brewin", "Brewin language interpreter.")
	app.Version(help.Version)
	app.UsageWriter(c.stdout)
	app.ErrorWriter(c.stderr)
	app.Terminate(c.exit)

	var prettySet bool
	pretty := app.Flag("pretty", "Human-readable diagnostics instead of JSON.").IsSetByUser(&prettySet).Bool()
	verbose := app.Flag("verbose", "Enable debug logging.").Short('v').Bool()
	configPath := app.Flag("config", "Config file to use instead of project/user lookup.").PlaceHolder("FILE").String()

	runCmd := app.Command("run", "Run a program.")
	var ro runOptions
	runCmd.Arg("file", "Program file, or - for stdin.").Required().StringVar(&ro.file)
	runCmd.Flag("trace", "Write NDJSON trace events to FILE.").PlaceHolder("FILE").StringVar(&ro.trace)
	runCmd.Flag("input", "Read inputi lines from FILE instead of stdin.").PlaceHolder("FILE").StringVar(&ro.input)
	runCmd.Flag("debug-parse", "Dump the parsed AST to stderr before running.").BoolVar(&ro.debugParse)
	runCmd.Flag("max-depth", "Maximum call depth (overrides config).").IntVar(&ro.maxDepth)
	runCmd.Flag("max-iterations", "Maximum total while iterations (overrides config).").Int64Var(&ro.maxIterations)

	checkCmd := app.Command("check", "Lint programs without running them.")
	checkFiles := checkCmd.Arg("files", "Program files, or - for stdin.").Required().Strings()

	fmtCmd := app.Command("fmt", "Print a program in canonical form.")
	fmtFile := fmtCmd.Arg("file", "Program file.").Required().String()
	fmtWrite := fmtCmd.Flag("write", "Rewrite the file in place.").Short('w').Bool()

	traceCmd := app.Command("trace", "Summarize an NDJSON trace file.")
	traceFile := traceCmd.Arg("file", "Trace file written by run --trace.").Required().String()
	traceText := traceCmd.Flag("text", "Human-readable summary.").Bool()
	traceCmd.Flag("json", "JSON summary (default).").Bool()

	replCmd := app.Command("repl", "Start an interactive session.")
	configCmd := app.Command("config", "Print the effective configuration.")

	docCmd := app.Command("doc", "Show language reference topics.")
	docTopic := docCmd.Arg("topic", "Topic name or unique prefix.").String()
	docBuiltins := docCmd.Flag("builtins", "List builtin functions.").Bool()

	command, err := app.Parse(args)
	if err != nil {
		fmt.Fprintf(c.stderr, "brewin: error: %s\n", err)
		return runtime.ExitUsage
	}

	if err := c.setup(*configPath, *verbose); err != nil {
		c.reportIO(err, *pretty)
		return runtime.ExitUsage
	}
	if prettySet {
		c.cfg.Pretty = *pretty
	}

	switch command {
	case runCmd.FullCommand():
		ro.file = stdinArg(ro.file)
		return c.cmdRun(ctx, ro)
	case checkCmd.FullCommand():
		files := make([]string, len(*checkFiles))
		for i, f := range *checkFiles {
			files[i] = stdinArg(f)
		}
		return c.cmdCheck(ctx, files)
	case fmtCmd.FullCommand():
		return c.cmdFmt(stdinArg(*fmtFile), *fmtWrite)
	case traceCmd.FullCommand():
		return c.cmdTrace(*traceFile, *traceText)
	case replCmd.FullCommand():
		return c.cmdRepl(ctx)
	case configCmd.FullCommand():
		return c.cmdConfig()
	case docCmd.FullCommand():
		return c.cmdDoc(*docTopic, *docBuiltins)
	}
	return runtime.ExitUsage
}

// setup loads configuration and builds the logger.
func (c *cli) setup(configPath string, verbose bool) error {
	var err error
	if configPath != "" {
		c.cfg, err = config.LoadFile(configPath)
	} else {
		cwd, wdErr := os.Getwd()
		if wdErr != nil {
			return errors.Wrap(wdErr, "get working directory")
		}
		c.cfg, err = config.Load(cwd)
	}
	if err != nil {
		return err
	}

	level := c.cfg.SlogLevel()
	if verbose {
		level = slog.LevelDebug
	}
	c.logger = slog.New(slog.NewTextHandler(c.stderr, &slog.HandlerOptions{Level: level}))
	if c.cfg.Source != "" {
		c.logger.Debug("loaded config", "path", c.cfg.Source)
	}
	return nil
}

func (c *cli) cmdRun(ctx context.Context, o runOptions) int {
	source, filename, err := c.readSource(o.file)
	if err != nil {
		c.reportIO(err, c.cfg.Pretty)
		return runtime.ExitUsage
	}

	if o.debugParse {
		c.dumpAST(source, filename)
	}

	limits := evaluator.Limits{
		MaxCallDepth:  c.cfg.Limits.MaxCallDepth,
		MaxIterations: c.cfg.Limits.MaxIterations,
	}
	if o.maxDepth > 0 {
		limits.MaxCallDepth = o.maxDepth
	}
	if o.maxIterations > 0 {
		limits.MaxIterations = o.maxIterations
	}

	opts := []runtime.Option{
		runtime.WithStdout(c.stdout),
		runtime.WithLogger(c.logger),
		runtime.WithLimits(limits),
	}

	switch {
	case o.input != "":
		f, err := os.Open(o.input)
		if err != nil {
			c.reportIO(errors.Wrapf(err, "cannot read input file %s", o.input), c.cfg.Pretty)
			return runtime.ExitUsage
		}
		defer f.Close()
		opts = append(opts, runtime.WithStdin(f))
	case o.file == "-":
		// The program consumed stdin.
		opts = append(opts, runtime.WithStdin(strings.NewReader("")))
	default:
		opts = append(opts, runtime.WithStdin(c.stdin))
	}

	var tw *trace.Writer
	if o.trace != "" {
		f, err := os.Create(o.trace)
		if err != nil {
			c.reportIO(errors.Wrapf(err, "cannot create trace file %s", o.trace), c.cfg.Pretty)
			return runtime.ExitUsage
		}
		defer f.Close()
		tw = trace.NewWriter(f)
		opts = append(opts, runtime.WithTrace(tw.Emit))
	}

	rt := runtime.New(opts...)
	_, runErr := rt.Run(ctx, source, filename)

	if tw != nil {
		if err := tw.Err(); err != nil {
			c.logger.Warn("trace incomplete", "path", o.trace, "error", err)
		}
	}
	return c.report(runErr)
}

// dumpAST writes the parsed program to stderr. Parse errors are left for
// the run itself to report.
func (c *cli) dumpAST(source, filename string) {
	program, diags := parser.Parse(source, filename)
	if len(diags) > 0 {
		return
	}
	cfg := spew.ConfigState{
		Indent:                  "  ",
		DisablePointerAddresses: true,
		DisableCapacities:       true,
		SortKeys:                true,
	}
	cfg.Fdump(c.stderr, program)
}

func (c *cli) cmdCheck(ctx context.Context, files []string) int {
	rt := runtime.New(runtime.WithLogger(c.logger))

	var diags []diagnostics.Diagnostic
	if len(files) == 1 && files[0] == "-" {
		source, filename, err := c.readSource("-")
		if err != nil {
			c.reportIO(err, c.cfg.Pretty)
			return runtime.ExitUsage
		}
		diags = rt.Check(source, filename)
	} else {
		reports, err := rt.CheckFiles(ctx, files)
		if err != nil {
			c.reportIO(err, c.cfg.Pretty)
			return runtime.ExitUsage
		}
		for _, r := range reports {
			diags = append(diags, r.Diagnostics...)
		}
	}

	if len(diags) > 0 {
		fmt.Fprintln(c.stderr, diagnostics.FormatDiagnostics(diags, c.cfg.Pretty))
		return runtime.ExitDiagnostics
	}

	if c.cfg.Pretty {
		fmt.Fprintln(c.stdout, "No errors found.")
	} else {
		fmt.Fprintln(c.stdout, "[]")
	}
	return runtime.ExitOK
}

func (c *cli) cmdFmt(file string, write bool) int {
	source, filename, err := c.readSource(file)
	if err != nil {
		c.reportIO(err, c.cfg.Pretty)
		return runtime.ExitUsage
	}

	rt := runtime.New(runtime.WithLogger(c.logger))
	formatted, err := rt.Format(source, filename)
	if err != nil {
		return c.report(err)
	}

	if formatter.HasComments(source) {
		fmt.Fprintln(c.stderr, "warning: comments are not preserved by the formatter")
	}

	if write && file != "-" {
		if err := os.WriteFile(file, []byte(formatted), 0o644); err != nil {
			c.reportIO(errors.Wrapf(err, "cannot write file %s", file), c.cfg.Pretty)
			return runtime.ExitUsage
		}
		return runtime.ExitOK
	}
	fmt.Fprint(c.stdout, formatted)
	return runtime.ExitOK
}

func (c *cli) cmdTrace(file string, text bool) int {
	f, err := os.Open(file)
	if err != nil {
		c.reportIO(errors.Wrapf(err, "cannot read file %s", file), c.cfg.Pretty)
		return runtime.ExitUsage
	}
	defer f.Close()

	summary, err := trace.Summarize(f)
	if err != nil {
		c.reportIO(err, c.cfg.Pretty)
		return runtime.ExitUsage
	}

	if text {
		summary.WriteText(c.stdout)
		return runtime.ExitOK
	}
	b, err := json.Marshal(summary)
	if err != nil {
		c.reportIO(err, c.cfg.Pretty)
		return runtime.ExitUsage
	}
	fmt.Fprintln(c.stdout, string(b))
	return runtime.ExitOK
}

func (c *cli) cmdConfig() int {
	b, err := c.cfg.Marshal()
	if err != nil {
		c.reportIO(err, c.cfg.Pretty)
		return runtime.ExitUsage
	}
	if c.cfg.Source != "" {
		fmt.Fprintf(c.stdout, "# from %s\n", c.cfg.Source)
	} else {
		fmt.Fprintln(c.stdout, "# built-in defaults")
	}
	fmt.Fprint(c.stdout, string(b))
	return runtime.ExitOK
}

func (c *cli) cmdDoc(topic string, builtins bool) int {
	if builtins {
		fmt.Fprint(c.stdout, help.BuiltinIndex(stdlib.Defaults()))
		return runtime.ExitOK
	}
	if topic == "" {
		fmt.Fprint(c.stdout, help.QUICKREF)
		return runtime.ExitOK
	}

	_, content, err := help.MatchTopic(topic)
	if err != nil {
		fmt.Fprintln(c.stderr, err)
		return runtime.ExitUsage
	}
	fmt.Fprint(c.stdout, content)
	return runtime.ExitOK
}

// stdinArg restores "-" for a positional argument. kingpin parses a bare
// "-" as an argument with an empty value.
func stdinArg(file string) string {
	if file == "" {
		return "-"
	}
	return file
}

// readSource reads a program file; "-" reads all of stdin.
func (c *cli) readSource(file string) (string, string, error) {
	if file == "-" {
		data, err := io.ReadAll(c.stdin)
		if err != nil {
			return "", "", errors.Wrap(err, "cannot read stdin")
		}
		return string(data), "<stdin>", nil
	}

	source, err := os.ReadFile(file)
	if err != nil {
		return "", "", errors.Wrapf(err, "cannot read file %s", file)
	}
	return string(source), file, nil
}

// report prints err as diagnostics and returns the matching exit code.
func (c *cli) report(err error) int {
	if err == nil {
		return runtime.ExitOK
	}

	var de *runtime.DiagnosticError
	var re *evaluator.RuntimeError
	switch {
	case errors.As(err, &de):
		fmt.Fprintln(c.stderr, diagnostics.FormatDiagnostics(de.Diagnostics, c.cfg.Pretty))
	case errors.As(err, &re):
		fmt.Fprintln(c.stderr, diagnostics.FormatDiagnostics([]diagnostics.Diagnostic{re.Diagnostic()}, c.cfg.Pretty))
	default:
		c.reportIO(err, c.cfg.Pretty)
	}
	return runtime.ExitCode(err)
}

func (c *cli) reportIO(err error, pretty bool) {
	diag := diagnostics.MakeDiag(diagnostics.EIO, err.Error(), nil, "")
	fmt.Fprintln(c.stderr, diagnostics.FormatDiagnostics([]diagnostics.Diagnostic{diag}, pretty))
}
