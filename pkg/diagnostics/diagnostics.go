// Package diagnostics defines Brewin diagnostic types for parse/validation/runtime errors.
package diagnostics

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/thomasrohde/brewin/pkg/ast"
)

// Diagnostic code constants.
const (
	ELex   = "E_LEX"
	EParse = "E_PARSE"

	// Validation (brewin check).
	ENoMain     = "E_NO_MAIN"
	EDupParam   = "E_DUP_PARAM"
	EFnDup      = "E_FN_DUP"
	EUnknownFn  = "E_UNKNOWN_FN"
	EInputiArgs = "E_INPUTI_ARGS"
	EUnbound    = "E_UNBOUND"

	// Runtime.
	EName     = "E_NAME"
	EType     = "E_TYPE"
	EInput    = "E_INPUT"
	EDivZero  = "E_DIV_ZERO"
	EBudget   = "E_BUDGET"
	ECanceled = "E_CANCELED"
	EIO       = "E_IO"
)

// KindName returns the language-level error name for a runtime code.
func KindName(code string) string {
	switch code {
	case EName:
		return "NameError"
	case EType:
		return "TypeError"
	case EInput:
		return "InputError"
	case EDivZero:
		return "ZeroDivisionError"
	default:
		return "Error"
	}
}

// Diagnostic represents a parse, validation, or runtime diagnostic.
type Diagnostic struct {
	Code    string    `json:"code"`
	Message string    `json:"message"`
	Span    *ast.Span `json:"span,omitempty"`
	Hint    string    `json:"hint,omitempty"`
	Stack   []string  `json:"stack,omitempty"`
}

// MakeDiag creates a new Diagnostic.
func MakeDiag(code, message string, span *ast.Span, hint string) Diagnostic {
	return Diagnostic{
		Code:    code,
		Message: message,
		Span:    span,
		Hint:    hint,
	}
}

// FormatDiagnostic formats a single diagnostic for display.
func FormatDiagnostic(d Diagnostic, pretty bool) string {
	if !pretty {
		b, _ := json.Marshal(d)
		return string(b)
	}
	loc := "<unknown>"
	if d.Span != nil {
		loc = fmt.Sprintf("%s:%d:%d", d.Span.File, d.Span.StartLine, d.Span.StartCol)
	}
	out := fmt.Sprintf("error[%s]: %s\n  --> %s", d.Code, d.Message, loc)
	for _, frame := range d.Stack {
		out += fmt.Sprintf("\n  in %s", frame)
	}
	if d.Hint != "" {
		out += fmt.Sprintf("\n  hint: %s", d.Hint)
	}
	return out
}

// FormatDiagnostics formats a slice of diagnostics for display.
func FormatDiagnostics(diags []Diagnostic, pretty bool) string {
	if !pretty {
		b, _ := json.Marshal(diags)
		return string(b)
	}
	parts := make([]string, len(diags))
	for i, d := range diags {
		parts[i] = FormatDiagnostic(d, true)
	}
	return strings.Join(parts, "\n\n")
}
