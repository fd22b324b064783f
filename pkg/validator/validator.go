// Package validator implements lint checks over Brewin programs.
//
// Validation is advisory: the run path never calls it, and every problem it
// reports would otherwise surface as a runtime error (or as dead code).
package validator

import (
	"fmt"

	"github.com/thomasrohde/brewin/pkg/ast"
	"github.com/thomasrohde/brewin/pkg/diagnostics"
)

// knownBuiltins maps builtin names to their maximum argument count
// (-1 for unlimited).
var knownBuiltins = map[string]int{
	"print":  -1,
	"inputi": 1,
}

type fnKey struct {
	name  string
	arity int
}

type validator struct {
	diags []diagnostics.Diagnostic
	// arities records, per function name, which parameter counts are defined.
	arities map[string]map[int]bool
}

// Validate performs lint checks on a Brewin program and returns diagnostics.
func Validate(program *ast.Program) []diagnostics.Diagnostic {
	v := &validator{arities: make(map[string]map[int]bool)}

	v.validateDecls(program)
	for _, fn := range program.Funcs {
		v.validateFunc(fn)
	}

	return v.diags
}

func (v *validator) addDiag(code, msg string, span *ast.Span, hint string) {
	v.diags = append(v.diags, diagnostics.MakeDiag(code, msg, span, hint))
}

func (v *validator) validateDecls(program *ast.Program) {
	seen := make(map[fnKey]*ast.FuncDecl)
	hasMain := false

	for _, fn := range program.Funcs {
		key := fnKey{name: fn.Name, arity: len(fn.Params)}
		if prev, ok := seen[key]; ok {
			span := fn.Span
			v.addDiag(diagnostics.EFnDup,
				fmt.Sprintf("function %s with %d parameters is already defined at line %d", fn.Name, key.arity, prev.Span.StartLine),
				&span, "calls always select the first definition; rename or remove this one")
			continue
		}
		seen[key] = fn
		if v.arities[fn.Name] == nil {
			v.arities[fn.Name] = make(map[int]bool)
		}
		v.arities[fn.Name][key.arity] = true
		if key == (fnKey{name: "main"}) {
			hasMain = true
		}
	}

	if !hasMain {
		span := program.Span
		v.addDiag(diagnostics.ENoMain, "program has no main() function with zero parameters", &span, "add: func main() { ... }")
	}
}

func (v *validator) validateFunc(fn *ast.FuncDecl) {
	bound := make(map[string]bool)
	for _, p := range fn.Params {
		if bound[p] {
			span := fn.Span
			v.addDiag(diagnostics.EDupParam, fmt.Sprintf("duplicate parameter %s in function %s", p, fn.Name), &span, "")
		}
		bound[p] = true
	}
	collectAssigned(fn.Body, bound)

	v.validateBlock(fn.Body, bound)
}

// collectAssigned adds every variable assigned anywhere in stmts to out.
// Bodies share one flat namespace, so nesting depth does not matter.
func collectAssigned(stmts []ast.Stmt, out map[string]bool) {
	for _, stmt := range stmts {
		switch s := stmt.(type) {
		case *ast.AssignStmt:
			out[s.Name] = true
		case *ast.IfStmt:
			collectAssigned(s.ThenBody, out)
			collectAssigned(s.ElseBody, out)
		case *ast.WhileStmt:
			collectAssigned(s.Body, out)
		}
	}
}

func (v *validator) validateBlock(stmts []ast.Stmt, bound map[string]bool) {
	for _, stmt := range stmts {
		v.validateStmt(stmt, bound)
	}
}

func (v *validator) validateStmt(stmt ast.Stmt, bound map[string]bool) {
	switch s := stmt.(type) {
	case *ast.CallStmt:
		v.validateExpr(s.Call, bound)
	case *ast.AssignStmt:
		v.validateExpr(s.Value, bound)
	case *ast.IfStmt:
		v.validateExpr(s.Cond, bound)
		v.validateBlock(s.ThenBody, bound)
		v.validateBlock(s.ElseBody, bound)
	case *ast.WhileStmt:
		v.validateExpr(s.Cond, bound)
		v.validateBlock(s.Body, bound)
	case *ast.ReturnStmt:
		if s.Value != nil {
			v.validateExpr(s.Value, bound)
		}
	}
}

func (v *validator) validateExpr(expr ast.Expr, bound map[string]bool) {
	switch e := expr.(type) {
	case *ast.VarRef:
		if !bound[e.Name] {
			span := e.Span
			v.addDiag(diagnostics.EUnbound, fmt.Sprintf("variable %s is never assigned in this function", e.Name), &span, "")
		}
	case *ast.BinaryExpr:
		v.validateExpr(e.Left, bound)
		v.validateExpr(e.Right, bound)
	case *ast.UnaryExpr:
		v.validateExpr(e.Operand, bound)
	case *ast.CallExpr:
		v.validateCall(e)
		for _, arg := range e.Args {
			v.validateExpr(arg, bound)
		}
	}
}

func (v *validator) validateCall(e *ast.CallExpr) {
	span := e.Span
	argc := len(e.Args)

	if maxArgs, ok := knownBuiltins[e.Name]; ok {
		if maxArgs >= 0 && argc > maxArgs {
			if e.Name == "inputi" {
				v.addDiag(diagnostics.EInputiArgs, "inputi() takes at most one argument (the prompt)", &span, "")
				return
			}
			v.addDiag(diagnostics.EUnknownFn, fmt.Sprintf("%s() takes at most %d arguments", e.Name, maxArgs), &span, "")
		}
		return
	}

	arities, ok := v.arities[e.Name]
	if !ok {
		v.addDiag(diagnostics.EUnknownFn, fmt.Sprintf("unknown function %s", e.Name), &span, "")
		return
	}
	if !arities[argc] {
		v.addDiag(diagnostics.EUnknownFn, fmt.Sprintf("no overload of %s takes %d arguments", e.Name, argc), &span, "")
	}
}
