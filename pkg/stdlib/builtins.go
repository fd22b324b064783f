package stdlib

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/thomasrohde/brewin/pkg/diagnostics"
	"github.com/thomasrohde/brewin/pkg/evaluator"
)

// RegisterDefaults adds all builtins.
func RegisterDefaults(r *Registry) {
	r.Register(Fn{
		Name:    "print",
		MaxArgs: -1,
		Usage:   "print(args...)",
		Doc:     "writes the printable forms of args, unseparated, as one line",
		Execute: builtinPrint,
	})
	r.Register(Fn{
		Name:    "inputi",
		MaxArgs: 1,
		Usage:   "inputi([prompt])",
		Doc:     "writes prompt as a line, then reads one line as an int",
		Execute: builtinInputi,
	})
}

// builtinPrint concatenates the printable forms of args with no separator
// and emits them as one line.
func builtinPrint(host *evaluator.Host, args []evaluator.Value) (evaluator.Value, error) {
	var sb strings.Builder
	for _, arg := range args {
		sb.WriteString(arg.String())
	}
	if err := host.Out.WriteLine(sb.String()); err != nil {
		return nil, err
	}
	return evaluator.Nil, nil
}

// builtinInputi emits the optional prompt as a line, then reads one line
// and parses it as a base-10 integer.
func builtinInputi(host *evaluator.Host, args []evaluator.Value) (evaluator.Value, error) {
	if len(args) == 1 {
		if err := host.Out.WriteLine(args[0].String()); err != nil {
			return nil, err
		}
	}

	line, err := host.In.ReadLine()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, &evaluator.RuntimeError{
				Code:    diagnostics.EInput,
				Message: "inputi() reached end of input",
			}
		}
		return nil, err
	}

	n, err := strconv.ParseInt(strings.TrimSpace(line), 10, 64)
	if err != nil {
		return nil, &evaluator.RuntimeError{
			Code:    diagnostics.EInput,
			Message: fmt.Sprintf("inputi() expected an integer, got %q", line),
		}
	}
	return evaluator.NewInt(n), nil
}
