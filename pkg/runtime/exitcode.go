package runtime

import (
	"errors"

	"github.com/thomasrohde/brewin/pkg/diagnostics"
	"github.com/thomasrohde/brewin/pkg/evaluator"
)

// Process exit codes used by the brewin command.
const (
	ExitOK          = 0
	ExitUsage       = 1
	ExitDiagnostics = 2
	ExitNameError   = 3
	ExitTypeError   = 4
	ExitRuntime     = 5
)

// ExitCode maps an error returned by Run, Check or Format to a process exit
// code. A nil error is ExitOK.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	var de *DiagnosticError
	if errors.As(err, &de) {
		return ExitDiagnostics
	}
	var re *evaluator.RuntimeError
	if errors.As(err, &re) {
		return exitCodeForCode(re.Code)
	}
	return ExitUsage
}

func exitCodeForCode(code string) int {
	switch code {
	case diagnostics.EName:
		return ExitNameError
	case diagnostics.EType:
		return ExitTypeError
	default:
		return ExitRuntime
	}
}
