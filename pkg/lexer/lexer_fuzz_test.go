package lexer

import (
	"testing"
)

// FuzzTokenize feeds random inputs to the lexer to catch panics.
// The lexer should never panic; invalid input yields an error.
func FuzzTokenize(f *testing.F) {
	seeds := []string{
		// Keywords
		`func if else while return`,
		`true false nil`,
		// Literals
		`42 0 9223372036854775808`,
		`"hello" "with\nescape" "quote\""`,
		// Operators
		`+ - * / == != < <= > >= && || !`,
		// Delimiters
		`{ } ( ) , ; =`,
		// Comments
		`// line`,
		`/* block */`,
		`/* unterminated`,
		// Mixed
		`func main() { x = 3; print(x); }`,
		`main(){print("sum:" + 5);}`,
		// Edge cases
		``,
		`   `,
		"\t\n\r",
		`"unterminated`,
		`"""`,
		`@#$^&`,
		`\x00`,
		`&|`,
		`"unicode: ünï"`,
	}

	for _, s := range seeds {
		f.Add(s)
	}

	f.Fuzz(func(t *testing.T, input string) {
		func() {
			defer func() {
				if r := recover(); r != nil {
					t.Fatalf("Tokenize panicked on input %q: %v", input, r)
				}
			}()
			Tokenize(input, "fuzz.br")
		}()
	})
}
