// Package help holds the reference text printed by "brewin doc".
package help

import (
	"fmt"
	"sort"
	"strings"

	"github.com/thomasrohde/brewin/pkg/stdlib"
)

// Version is the language version the reference describes.
const Version = "v0.2"

// TopicList is the display order of help topics.
var TopicList = []string{"syntax", "types", "operators", "functions", "builtins", "errors", "limits", "repl", "examples"}

// QUICKREF is the overview printed by "brewin doc" with no topic.
var QUICKREF = `Brewin ` + Version + ` quick reference

  A program is a list of functions. Execution starts at main() with
  zero parameters. Statements end in ';', blocks use braces.

  func main() {
    n = inputi("how many?");
    i = 0;
    while (i < n) { print("line ", i); i = i + 1; }
  }

Commands:
  brewin run FILE       run a program ('-' reads stdin)
  brewin check FILE...  lint programs without running them
  brewin fmt FILE       print canonical formatting
  brewin trace FILE     summarize an NDJSON trace
  brewin repl           interactive session
  brewin config         print the effective configuration

Topics (brewin doc TOPIC):
  syntax      statements, blocks and comments
  types       int, string, bool and nil
  operators   the operator table and its type rules
  functions   activations, overloads and return
  builtins    print and inputi
  errors      NameError, TypeError and exit codes
  limits      call depth and iteration budgets
  repl        interactive sessions
  examples    complete programs
`

// Topics maps topic names to their reference text.
var Topics = map[string]string{
	"syntax": `Syntax

  func name(p1, p2) { ... }     the func keyword is optional
  x = expr;                     assignment
  f(args);                      call statement
  if (cond) { ... } else { ... }
  while (cond) { ... }
  return expr;   return;

  Comments: // to end of line, /* block */.
  String escapes: \n \t \r \" \\
`,
	"types": `Types

  int     64-bit signed integer literals: 0, 42
  string  double-quoted literals: "hi"
  bool    true, false
  nil     the absent value; bare return and falling off a function yield nil

  Values never convert implicitly. "n=" + 1 is a TypeError.
  print renders ints in base 10, bools as true/false and nil as nil.
`,
	"operators": `Operators (tightest last)

  ||                 bool
  &&                 bool
  == !=             int, string, bool
  < <= > >=          int
  + -                int; string supports +
  * /                int (division truncates; dividing by zero fails)
  %                  parses, but no type supports it
  unary - !          - on int, ! on bool

  Both operands must have the same type. nil supports no operator,
  so even nil == nil is a TypeError. && and || evaluate both sides.
`,
	"functions": `Functions

  Each call gets a fresh activation that binds only its parameters.
  Callees never see the caller's variables and their assignments never
  leak back. Arguments are evaluated left to right.

  Several functions may share a name if their parameter counts differ.
  A call picks the definition whose parameter count matches. When two
  definitions share a count the first one wins (brewin check reports it).

  return stops the whole function, from any nesting depth.
`,
	"builtins": `Builtins

  print(args...)     concatenates the printable forms, emits one line
  inputi([prompt])   emits prompt as a line, reads one line, parses an int

  Builtins take precedence over user functions of the same name.
`,
	"errors": `Errors

  NameError   unknown variable, unknown function or overload, missing
              main(), too many arguments to inputi
  TypeError   operand types differ, operator unsupported for a type,
              non-bool if/while condition

  Either one aborts the run. Output already printed stays printed.

Exit codes:
  0 ok   1 usage or I/O   2 diagnostics   3 NameError   4 TypeError
  5 other runtime error (bad input, division by zero, budget)
`,
	"limits": `Limits

  maxCallDepth    nested calls allowed (default 10000)
  maxIterations   total while iterations per run (0 = unlimited)

  Set them in .brewin.yaml or ~/.brewin/config.yaml:

    limits:
      maxCallDepth: 500
      maxIterations: 1000000

  or per run with --max-depth and --max-iterations.
`,
	"repl": `REPL

  brewin repl reads statements and function declarations. Unfinished
  input continues on the next line. Top-level variables persist between
  inputs. A top-level return prints its value.

  :funcs   list defined functions
  :quit    leave
`,
	"examples": `Examples

  func fact(n) {
    if (n <= 1) { return 1; }
    return n * fact(n - 1);
  }

  func main() {
    n = inputi("n?");
    print(n, "! = ", fact(n));
  }

  func greet() { return greet("world"); }
  func greet(who) { return "hello " + who; }
  func main() { print(greet()); print(greet("you")); }
`,
}

// MatchTopic resolves a topic by exact name or unique prefix.
func MatchTopic(query string) (string, string, error) {
	q := strings.ToLower(strings.TrimSpace(query))
	if content, ok := Topics[q]; ok {
		return q, content, nil
	}

	var matches []string
	for _, name := range TopicList {
		if q != "" && strings.HasPrefix(name, q) {
			matches = append(matches, name)
		}
	}
	switch len(matches) {
	case 1:
		return matches[0], Topics[matches[0]], nil
	case 0:
		return "", "", fmt.Errorf("unknown help topic %q (topics: %s)", query, strings.Join(TopicList, ", "))
	default:
		return "", "", fmt.Errorf("ambiguous help topic %q: %s", query, strings.Join(matches, ", "))
	}
}

// BuiltinIndex lists the builtins registered in r.
func BuiltinIndex(r *stdlib.Registry) string {
	names := r.Names()
	sort.Strings(names)

	var sb strings.Builder
	for _, name := range names {
		fn := r.Get(name)
		usage := fn.Usage
		if usage == "" {
			usage = name + "(...)"
		}
		fmt.Fprintf(&sb, "  %-18s %s\n", usage, fn.Doc)
	}
	fmt.Fprintf(&sb, "\nTotal: %d builtins\n", len(names))
	return sb.String()
}
