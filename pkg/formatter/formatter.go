// Package formatter implements the Brewin source code formatter.
package formatter

import (
	"strconv"
	"strings"

	"github.com/thomasrohde/brewin/pkg/ast"
)

const indent = "  "

// Precedence table for binary operators (higher = tighter binding)
var precedence = map[ast.BinaryOp]int{
	ast.OpOr:   1,
	ast.OpAnd:  2,
	ast.OpEqEq: 3, ast.OpNeq: 3, ast.OpGt: 3, ast.OpLt: 3, ast.OpGtEq: 3, ast.OpLtEq: 3,
	ast.OpAdd: 4, ast.OpSub: 4,
	ast.OpMul: 5, ast.OpDiv: 5, ast.OpMod: 5,
}

func needsParens(child ast.Expr, parentOp ast.BinaryOp, isRight bool) bool {
	bin, ok := child.(*ast.BinaryExpr)
	if !ok {
		return false
	}
	childPrec := precedence[bin.Op]
	parentPrec := precedence[parentOp]
	if childPrec < parentPrec {
		return true
	}
	// Operators are left-associative: same precedence on the right keeps parens
	if childPrec == parentPrec && isRight {
		return true
	}
	return false
}

// Format pretty-prints a Brewin AST back to source code.
func Format(program *ast.Program) string {
	funcs := make([]string, len(program.Funcs))
	for i, fn := range program.Funcs {
		funcs[i] = formatFunc(fn)
	}
	if len(funcs) == 0 {
		return ""
	}
	return strings.Join(funcs, "\n\n") + "\n"
}

// HasComments reports whether source contains // or /* comments, which
// Format does not preserve.
func HasComments(source string) bool {
	inString := false
	for i := 0; i < len(source); i++ {
		ch := source[i]
		switch {
		case inString && ch == '\\':
			i++ // skip escaped character
		case ch == '"':
			inString = !inString
		case ch == '\n':
			inString = false
		case !inString && ch == '/' && i+1 < len(source) && (source[i+1] == '/' || source[i+1] == '*'):
			return true
		}
	}
	return false
}

func formatFunc(fn *ast.FuncDecl) string {
	return "func " + fn.Name + "(" + strings.Join(fn.Params, ", ") + ") " + formatBlock(fn.Body, 0)
}

func formatBlock(stmts []ast.Stmt, depth int) string {
	if len(stmts) == 0 {
		return "{}"
	}
	var sb strings.Builder
	sb.WriteString("{\n")
	for _, s := range stmts {
		sb.WriteString(strings.Repeat(indent, depth+1))
		sb.WriteString(formatStmt(s, depth+1))
		sb.WriteString("\n")
	}
	sb.WriteString(strings.Repeat(indent, depth))
	sb.WriteString("}")
	return sb.String()
}

func formatStmt(s ast.Stmt, depth int) string {
	switch st := s.(type) {
	case *ast.CallStmt:
		return formatExpr(st.Call) + ";"
	case *ast.AssignStmt:
		return st.Name + " = " + formatExpr(st.Value) + ";"
	case *ast.IfStmt:
		out := "if (" + formatExpr(st.Cond) + ") " + formatBlock(st.ThenBody, depth)
		if st.ElseBody != nil {
			out += " else " + formatBlock(st.ElseBody, depth)
		}
		return out
	case *ast.WhileStmt:
		return "while (" + formatExpr(st.Cond) + ") " + formatBlock(st.Body, depth)
	case *ast.ReturnStmt:
		if st.Value == nil {
			return "return;"
		}
		return "return " + formatExpr(st.Value) + ";"
	}
	return ""
}

func formatExpr(e ast.Expr) string {
	switch ex := e.(type) {
	case *ast.IntLiteral:
		return strconv.FormatInt(ex.Value, 10)
	case *ast.StrLiteral:
		return quote(ex.Value)
	case *ast.BoolLiteral:
		if ex.Value {
			return "true"
		}
		return "false"
	case *ast.NilLiteral:
		return "nil"
	case *ast.VarRef:
		return ex.Name
	case *ast.BinaryExpr:
		left := formatExpr(ex.Left)
		if needsParens(ex.Left, ex.Op, false) {
			left = "(" + left + ")"
		}
		right := formatExpr(ex.Right)
		if needsParens(ex.Right, ex.Op, true) {
			right = "(" + right + ")"
		}
		return left + " " + string(ex.Op) + " " + right
	case *ast.UnaryExpr:
		operand := formatExpr(ex.Operand)
		if _, ok := ex.Operand.(*ast.BinaryExpr); ok {
			operand = "(" + operand + ")"
		}
		return ex.Op.Symbol() + operand
	case *ast.CallExpr:
		args := make([]string, len(ex.Args))
		for i, a := range ex.Args {
			args[i] = formatExpr(a)
		}
		return ex.Name + "(" + strings.Join(args, ", ") + ")"
	}
	return ""
}

// quote renders s as a Brewin string literal using only the escapes the
// lexer understands.
func quote(s string) string {
	var sb strings.Builder
	sb.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			sb.WriteString(`\"`)
		case '\\':
			sb.WriteString(`\\`)
		case '\n':
			sb.WriteString(`\n`)
		case '\r':
			sb.WriteString(`\r`)
		case '\t':
			sb.WriteString(`\t`)
		default:
			sb.WriteRune(r)
		}
	}
	sb.WriteByte('"')
	return sb.String()
}
