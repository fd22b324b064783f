package evaluator

import (
	"errors"
	"fmt"

	"github.com/thomasrohde/brewin/pkg/ast"
	"github.com/thomasrohde/brewin/pkg/diagnostics"
)

// RuntimeError represents a fatal error raised while a program runs.
type RuntimeError struct {
	Code    string
	Message string
	Span    *ast.Span
	// Stack holds the active call frames at the point of failure, innermost first.
	Stack []string
}

func (e *RuntimeError) Error() string {
	return fmt.Sprintf("%s: %s", diagnostics.KindName(e.Code), e.Message)
}

// Diagnostic converts the error into a diagnostic for reporting.
func (e *RuntimeError) Diagnostic() diagnostics.Diagnostic {
	d := diagnostics.MakeDiag(e.Code, e.Message, e.Span, "")
	d.Stack = e.Stack
	return d
}

func nameError(span *ast.Span, format string, args ...any) *RuntimeError {
	return &RuntimeError{Code: diagnostics.EName, Message: fmt.Sprintf(format, args...), Span: span}
}

func typeError(span *ast.Span, format string, args ...any) *RuntimeError {
	return &RuntimeError{Code: diagnostics.EType, Message: fmt.Sprintf(format, args...), Span: span}
}

// IsNameError reports whether err is a NameError raised by the evaluator.
func IsNameError(err error) bool {
	return hasCode(err, diagnostics.EName)
}

// IsTypeError reports whether err is a TypeError raised by the evaluator.
func IsTypeError(err error) bool {
	return hasCode(err, diagnostics.EType)
}

func hasCode(err error, code string) bool {
	var re *RuntimeError
	return errors.As(err, &re) && re.Code == code
}
