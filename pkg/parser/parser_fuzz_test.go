package parser_test

import (
	"testing"

	"github.com/thomasrohde/brewin/pkg/parser"
)

// FuzzParse feeds random inputs to the parser to catch panics.
// The parser should never panic; it returns diagnostics for invalid input.
func FuzzParse(f *testing.F) {
	seeds := []string{
		// Minimal valid program
		`func main() { }`,
		`main() { print("hello"); }`,
		// Arithmetic and precedence
		`func main() { x = 1 + 2 * 3 - -4 / (5 + 6); print(x); }`,
		// Control flow
		`func main() { i = 0; while (i < 10) { if (i == 5) { return; } else { i = i + 1; } } }`,
		// Overloads and recursion
		`func f(n) { if (n <= 1) { return 1; } return n * f(n - 1); } func f() { return f(5); } func main() { print(f()); }`,
		// Logical ops
		`func main() { b = !true || false && (1 != 2); }`,
		// inputi
		`func main() { n = inputi("enter: "); print(n); }`,
		// Incomplete
		`func main() {`,
		`func main() { x = `,
		`func (`,
		`if (`,
		// Garbage
		`}}}{{{`,
		`;;;`,
		`func main() { 9223372036854775808; }`,
		``,
	}
	for _, s := range seeds {
		f.Add(s)
	}

	f.Fuzz(func(t *testing.T, input string) {
		func() {
			defer func() {
				if r := recover(); r != nil {
					t.Fatalf("Parse panicked on input %q: %v", input, r)
				}
			}()
			parser.Parse(input, "fuzz.br")
			parser.ParseSnippet(input, "fuzz.br")
		}()
	})
}
