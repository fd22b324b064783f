package evaluator_test

import (
	"context"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/thomasrohde/brewin/pkg/diagnostics"
	"github.com/thomasrohde/brewin/pkg/evaluator"
	"github.com/thomasrohde/brewin/pkg/parser"
	"github.com/thomasrohde/brewin/pkg/stdlib"
)

// --- helpers ---

// defaultOpts returns ExecOptions with the default builtins, an in-memory
// output buffer, and input served from lines.
func defaultOpts(lines ...string) (evaluator.ExecOptions, *evaluator.LineBuffer) {
	out := &evaluator.LineBuffer{}
	return evaluator.ExecOptions{
		Builtins: stdlib.Defaults().Builtins(),
		Stdout:   out,
		Stdin:    evaluator.NewLineQueue(lines...),
	}, out
}

// runWith parses and executes Brewin source with custom ExecOptions.
func runWith(t *testing.T, src string, opts evaluator.ExecOptions) (*evaluator.ExecResult, error) {
	t.Helper()
	prog, diags := parser.Parse(src, "test.br")
	if len(diags) > 0 {
		t.Fatalf("parse errors: %s", diagnostics.FormatDiagnostics(diags, true))
	}
	return evaluator.Execute(context.Background(), prog, opts)
}

// run executes src with the given input lines and returns the output lines.
func run(t *testing.T, src string, input ...string) ([]string, *evaluator.ExecResult, error) {
	t.Helper()
	opts, out := defaultOpts(input...)
	res, err := runWith(t, src, opts)
	return out.Lines, res, err
}

// mustRun is like run but also fails on runtime errors.
func mustRun(t *testing.T, src string, input ...string) []string {
	t.Helper()
	lines, _, err := run(t, src, input...)
	if err != nil {
		t.Fatalf("unexpected runtime error: %v", err)
	}
	return lines
}

func expectOutput(t *testing.T, got []string, want ...string) {
	t.Helper()
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("output mismatch (-want +got):\n%s", diff)
	}
}

// --- example scenarios ---

func TestScenarioIfElse(t *testing.T) {
	out := mustRun(t, `main(){x=3; if(x>2){print("big");}else{print("small");}}`)
	expectOutput(t, out, "big")
}

func TestScenarioStringPlusInt(t *testing.T) {
	out, _, err := run(t, `main(){print("sum:" + 5);}`)
	expectCode(t, err, diagnostics.EType)
	if !evaluator.IsTypeError(err) {
		t.Error("IsTypeError = false")
	}
	if len(out) != 0 {
		t.Errorf("expected no output, got %v", out)
	}
}

func TestScenarioFactorial(t *testing.T) {
	out := mustRun(t, `
f(n){if(n<=1){return 1;}return n*f(n-1);}
main(){print(f(5));}`)
	expectOutput(t, out, "120")
}

func TestScenarioUndefinedVariable(t *testing.T) {
	_, _, err := run(t, `main(){print(y);}`)
	re := expectCode(t, err, diagnostics.EName)
	if !evaluator.IsNameError(err) {
		t.Error("IsNameError = false")
	}
	if !strings.Contains(re.Message, "y") {
		t.Errorf("message should name the variable: %q", re.Message)
	}
	if re.Span == nil || re.Span.StartCol != 14 {
		t.Errorf("expected span at column 14, got %+v", re.Span)
	}
}

func TestScenarioInputi(t *testing.T) {
	src := `main(){i=inputi();print(i+1);}`
	expectOutput(t, mustRun(t, src, "4"), "5")

	_, _, err := run(t, src, "x")
	expectCode(t, err, diagnostics.EInput)
}

// --- statements ---

func TestAssignmentOverwrites(t *testing.T) {
	out := mustRun(t, `func main() { x = 1; x = "one"; print(x); }`)
	expectOutput(t, out, "one")
}

func TestIfBodiesShareEnvironment(t *testing.T) {
	out := mustRun(t, `func main() {
  if (true) { y = 10; }
  print(y);
}`)
	expectOutput(t, out, "10")
}

func TestWhileLoop(t *testing.T) {
	out := mustRun(t, `func main() {
  i = 0;
  total = 0;
  while (i < 5) {
    i = i + 1;
    total = total + i;
  }
  print("total=", total);
}`)
	expectOutput(t, out, "total=15")
}

func TestWhileFalseNeverRuns(t *testing.T) {
	out := mustRun(t, `func main() { while (false) { print("no"); } print("done"); }`)
	expectOutput(t, out, "done")
}

func TestConditionMustBeBool(t *testing.T) {
	tests := []string{
		`func main() { if (1) { print("x"); } }`,
		`func main() { while ("yes") { print("x"); } }`,
		`func main() { if (nil) { print("x"); } }`,
	}
	for _, src := range tests {
		_, _, err := run(t, src)
		expectCode(t, err, diagnostics.EType)
	}
}

func TestReturnShortCircuitsNestedBlocks(t *testing.T) {
	out := mustRun(t, `
func find() {
  i = 0;
  while (true) {
    i = i + 1;
    if (i == 3) {
      if (true) {
        return i;
      }
      print("unreachable inner");
    }
  }
  print("unreachable outer");
}
func main() {
  print(find());
  print("after");
}`)
	expectOutput(t, out, "3", "after")
}

func TestBareReturnAndFallOffYieldNil(t *testing.T) {
	out := mustRun(t, `
func a() { return; }
func b() { x = 1; }
func main() { print(a()); print(b()); }`)
	expectOutput(t, out, "nil", "nil")
}

func TestMainReturnValue(t *testing.T) {
	opts, _ := defaultOpts()
	res, err := runWith(t, `func main() { return 6 * 7; }`, opts)
	if err != nil {
		t.Fatal(err)
	}
	if !evaluator.Equal(res.Value, evaluator.NewInt(42)) {
		t.Errorf("got %v, want 42", res.Value)
	}
}

// --- calls and scoping ---

func TestRecursionIsolatesParameters(t *testing.T) {
	// Each activation owns its n; the caller's n must survive the callee.
	out := mustRun(t, `
func sum(n) {
  if (n == 0) { return 0; }
  rest = sum(n - 1);
  print("n=", n);
  return n + rest;
}
func main() { print(sum(3)); }`)
	expectOutput(t, out, "n=1", "n=2", "n=3", "6")
}

func TestCalleeDoesNotSeeCallerVariables(t *testing.T) {
	_, _, err := run(t, `
func peek() { return secret; }
func main() { secret = 1; print(peek()); }`)
	expectCode(t, err, diagnostics.EName)
}

func TestCalleeAssignmentsDoNotLeak(t *testing.T) {
	out := mustRun(t, `
func set(x) { x = 99; y = 5; }
func main() { x = 1; set(x); print(x); }`)
	expectOutput(t, out, "1")

	_, _, err := run(t, `
func set() { y = 5; }
func main() { set(); print(y); }`)
	expectCode(t, err, diagnostics.EName)
}

func TestArgumentsEvaluatedLeftToRight(t *testing.T) {
	out := mustRun(t, `
func show(v) { print(v); return v; }
func pair(a, b) { return a - b; }
func main() { print(pair(show(10), show(3))); }`)
	expectOutput(t, out, "10", "3", "7")
}

func TestOverloadResolutionByArity(t *testing.T) {
	out := mustRun(t, `
func f() { return "none"; }
func f(a) { return "one"; }
func f(a, b) { return "two"; }
func main() { print(f(), f(1), f(1, 2)); }`)
	expectOutput(t, out, "noneonetwo")
}

func TestOverloadSameArityFirstWins(t *testing.T) {
	out := mustRun(t, `
func f(a) { return "first"; }
func f(b) { return "second"; }
func main() { print(f(0)); }`)
	expectOutput(t, out, "first")
}

func TestNoMatchingOverload(t *testing.T) {
	_, _, err := run(t, `func f(a) { } func main() { f(); }`)
	re := expectCode(t, err, diagnostics.EName)
	if !strings.Contains(re.Message, "no overload of f takes 0 arguments") {
		t.Errorf("got message %q", re.Message)
	}
}

func TestUnknownFunctionSkipsArguments(t *testing.T) {
	out, _, err := run(t, `func main() { missing(print("side effect")); }`)
	expectCode(t, err, diagnostics.EName)
	if len(out) != 0 {
		t.Errorf("arguments should not be evaluated, got output %v", out)
	}
}

func TestMissingMain(t *testing.T) {
	tests := []string{
		`func helper() { }`,
		`func main(x) { }`,
		``,
	}
	for _, src := range tests {
		_, _, err := run(t, src)
		re := expectCode(t, err, diagnostics.EName)
		if !strings.Contains(re.Message, "main") {
			t.Errorf("got message %q", re.Message)
		}
	}
}

// --- builtins ---

func TestPrintForms(t *testing.T) {
	out := mustRun(t, `func main() { print(1, " ", true, " ", false, " ", nil, " ", -3); print(); }`)
	expectOutput(t, out, "1 true false nil -3", "")
}

func TestPrintReturnsNil(t *testing.T) {
	out := mustRun(t, `func main() { x = print("a"); print(x); }`)
	expectOutput(t, out, "a", "nil")
}

func TestInputiPromptAndWhitespace(t *testing.T) {
	out := mustRun(t, `func main() { n = inputi("Enter: "); print(n * 2); }`, "  21  ")
	expectOutput(t, out, "Enter: ", "42")
}

func TestInputiTooManyArgsBeforeEvaluation(t *testing.T) {
	out, _, err := run(t, `func main() { inputi(print("a"), print("b")); }`, "1")
	re := expectCode(t, err, diagnostics.EName)
	if re.Message != "no inputi() overload takes >1 parameter" {
		t.Errorf("got message %q", re.Message)
	}
	if len(out) != 0 {
		t.Errorf("arguments should not be evaluated, got %v", out)
	}
}

func TestInputiEndOfInput(t *testing.T) {
	_, _, err := run(t, `func main() { a = inputi(); b = inputi(); }`, "1")
	expectCode(t, err, diagnostics.EInput)
}

func TestBuiltinShadowsUserFunction(t *testing.T) {
	out := mustRun(t, `func print(x) { return 0; } func main() { print("builtin"); }`)
	expectOutput(t, out, "builtin")
}

// --- errors ---

func TestOutputBeforeErrorStaysEmitted(t *testing.T) {
	out, _, err := run(t, `func main() { print("one"); x = 1 + true; print("two"); }`)
	expectCode(t, err, diagnostics.EType)
	expectOutput(t, out, "one")
}

func TestDivisionByZeroAtRuntime(t *testing.T) {
	_, _, err := run(t, `func main() { print(1 / 0); }`)
	re := expectCode(t, err, diagnostics.EDivZero)
	if re.Span == nil {
		t.Error("expected span on division error")
	}
}

func TestErrorStackInnermostFirst(t *testing.T) {
	_, _, err := run(t, `
func inner() { return nil + 1; }
func outer() { return inner(); }
func main() { outer(); }`)
	re := expectCode(t, err, diagnostics.EType)
	if diff := cmp.Diff([]string{"inner", "outer", "main"}, re.Stack); diff != "" {
		t.Errorf("stack mismatch (-want +got):\n%s", diff)
	}
	d := re.Diagnostic()
	if d.Code != diagnostics.EType || len(d.Stack) != 3 {
		t.Errorf("diagnostic mismatch: %+v", d)
	}
	if !strings.HasPrefix(err.Error(), "TypeError: ") {
		t.Errorf("got %q", err.Error())
	}
}

func TestUnaryTypeErrors(t *testing.T) {
	for _, src := range []string{
		`func main() { x = -true; }`,
		`func main() { x = !1; }`,
		`func main() { x = -"s"; }`,
	} {
		_, _, err := run(t, src)
		expectCode(t, err, diagnostics.EType)
	}
}

func TestNilEqualityIsTypeError(t *testing.T) {
	_, _, err := run(t, `func main() { if (nil == nil) { print("x"); } }`)
	expectCode(t, err, diagnostics.EType)
}

// --- limits and cancellation ---

func TestCallDepthLimit(t *testing.T) {
	opts, _ := defaultOpts()
	opts.Limits = evaluator.Limits{MaxCallDepth: 50}
	_, err := runWith(t, `func down(n) { return down(n + 1); } func main() { down(0); }`, opts)
	re := expectCode(t, err, diagnostics.EBudget)
	if !strings.Contains(re.Message, "call depth") {
		t.Errorf("got message %q", re.Message)
	}
	if len(re.Stack) != 50 {
		t.Errorf("expected 50 frames, got %d", len(re.Stack))
	}
}

func TestIterationLimit(t *testing.T) {
	opts, _ := defaultOpts()
	opts.Limits = evaluator.Limits{MaxIterations: 10}
	_, err := runWith(t, `func main() { while (true) { } }`, opts)
	expectCode(t, err, diagnostics.EBudget)
}

func TestCanceledContext(t *testing.T) {
	prog, diags := parser.Parse(`func main() { while (true) { } }`, "test.br")
	if len(diags) > 0 {
		t.Fatal(diags)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	opts, _ := defaultOpts()
	_, err := evaluator.Execute(ctx, prog, opts)
	expectCode(t, err, diagnostics.ECanceled)
}

// --- determinism and tracing ---

func TestDeterminism(t *testing.T) {
	src := `
func fib(n) { if (n < 2) { return n; } return fib(n - 1) + fib(n - 2); }
func main() {
  k = inputi();
  i = 0;
  while (i < k) { print(fib(i)); i = i + 1; }
  print(1 + "x");
}`
	first, _, err1 := run(t, src, "8")
	second, _, err2 := run(t, src, "8")
	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("outputs differ between runs:\n%s", diff)
	}
	if err1 == nil || err2 == nil || err1.Error() != err2.Error() {
		t.Errorf("outcomes differ: %v vs %v", err1, err2)
	}
	expectOutput(t, first, "0", "1", "1", "2", "3", "5", "8", "13")
}

func TestTraceEvents(t *testing.T) {
	var events []evaluator.TraceEventType
	opts, _ := defaultOpts()
	opts.RunID = "run-1"
	opts.Trace = func(ev evaluator.TraceEvent) {
		if ev.RunID != "run-1" {
			t.Errorf("event %s has run id %q", ev.Event, ev.RunID)
		}
		events = append(events, ev.Event)
	}
	_, err := runWith(t, `
func f() { return 1; }
func main() { i = 0; while (i < 1) { i = i + f(); } print(i); }`, opts)
	if err != nil {
		t.Fatal(err)
	}

	count := map[evaluator.TraceEventType]int{}
	for _, e := range events {
		count[e]++
	}
	if events[0] != evaluator.TraceRunStart || events[len(events)-1] != evaluator.TraceRunEnd {
		t.Errorf("run events out of place: %v", events)
	}
	// main + f
	if count[evaluator.TraceFnCallStart] != 2 || count[evaluator.TraceFnCallEnd] != 2 {
		t.Errorf("fn call events: %v", count)
	}
	if count[evaluator.TraceWhileStart] != 1 || count[evaluator.TraceWhileEnd] != 1 {
		t.Errorf("while events: %v", count)
	}
	if count[evaluator.TraceBuiltinCall] != 1 {
		t.Errorf("builtin events: %v", count)
	}
	if count[evaluator.TraceStmtStart] != count[evaluator.TraceStmtEnd] {
		t.Errorf("unbalanced stmt events: %v", count)
	}
}

func TestStats(t *testing.T) {
	opts, _ := defaultOpts()
	res, err := runWith(t, `
func f(n) { if (n == 0) { return 0; } return f(n - 1); }
func main() { i = 0; while (i < 4) { i = i + 1; } f(3); }`, opts)
	if err != nil {
		t.Fatal(err)
	}
	want := evaluator.Tracker{Calls: 5, Iterations: 4, MaxDepth: 5}
	if diff := cmp.Diff(want, res.Stats); diff != "" {
		t.Errorf("stats mismatch (-want +got):\n%s", diff)
	}
}
