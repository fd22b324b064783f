package evaluator

import (
	"github.com/thomasrohde/brewin/pkg/ast"
	"github.com/thomasrohde/brewin/pkg/diagnostics"
)

// BinaryFunc implements a binary operator for operands of one type.
type BinaryFunc func(left, right Value) (Value, error)

// UnaryFunc implements a unary operator for an operand of one type.
type UnaryFunc func(v Value) (Value, error)

// OpTable dispatches operators by operand type. It is configured once by
// NewOpTable and read-only afterwards.
type OpTable struct {
	binary map[Type]map[ast.BinaryOp]BinaryFunc
	unary  map[Type]map[ast.UnaryOp]UnaryFunc
}

// NewOpTable returns the operator table for the built-in types.
func NewOpTable() *OpTable {
	return &OpTable{
		binary: map[Type]map[ast.BinaryOp]BinaryFunc{
			TypeInt: {
				ast.OpAdd:  intArith(func(a, b int64) int64 { return a + b }),
				ast.OpSub:  intArith(func(a, b int64) int64 { return a - b }),
				ast.OpMul:  intArith(func(a, b int64) int64 { return a * b }),
				ast.OpDiv:  intDiv,
				ast.OpEqEq: intCmp(func(a, b int64) bool { return a == b }),
				ast.OpNeq:  intCmp(func(a, b int64) bool { return a != b }),
				ast.OpLt:   intCmp(func(a, b int64) bool { return a < b }),
				ast.OpLtEq: intCmp(func(a, b int64) bool { return a <= b }),
				ast.OpGt:   intCmp(func(a, b int64) bool { return a > b }),
				ast.OpGtEq: intCmp(func(a, b int64) bool { return a >= b }),
			},
			TypeBool: {
				ast.OpAnd:  boolOp(func(a, b bool) bool { return a && b }),
				ast.OpOr:   boolOp(func(a, b bool) bool { return a || b }),
				ast.OpEqEq: boolOp(func(a, b bool) bool { return a == b }),
				ast.OpNeq:  boolOp(func(a, b bool) bool { return a != b }),
			},
			TypeString: {
				ast.OpAdd: func(l, r Value) (Value, error) {
					return NewString(l.(StringValue).Value + r.(StringValue).Value), nil
				},
				ast.OpEqEq: strCmp(func(a, b string) bool { return a == b }),
				ast.OpNeq:  strCmp(func(a, b string) bool { return a != b }),
			},
		},
		unary: map[Type]map[ast.UnaryOp]UnaryFunc{
			TypeInt: {
				ast.OpNeg: func(v Value) (Value, error) { return NewInt(-v.(IntValue).Value), nil },
			},
			TypeBool: {
				ast.OpNot: func(v Value) (Value, error) { return NewBool(!v.(BoolValue).Value), nil },
			},
		},
	}
}

func intArith(f func(a, b int64) int64) BinaryFunc {
	return func(l, r Value) (Value, error) {
		return NewInt(f(l.(IntValue).Value, r.(IntValue).Value)), nil
	}
}

func intCmp(f func(a, b int64) bool) BinaryFunc {
	return func(l, r Value) (Value, error) {
		return NewBool(f(l.(IntValue).Value, r.(IntValue).Value)), nil
	}
}

func intDiv(l, r Value) (Value, error) {
	divisor := r.(IntValue).Value
	if divisor == 0 {
		return nil, &RuntimeError{Code: diagnostics.EDivZero, Message: "division by zero"}
	}
	return NewInt(l.(IntValue).Value / divisor), nil
}

func boolOp(f func(a, b bool) bool) BinaryFunc {
	return func(l, r Value) (Value, error) {
		return NewBool(f(l.(BoolValue).Value, r.(BoolValue).Value)), nil
	}
}

func strCmp(f func(a, b string) bool) BinaryFunc {
	return func(l, r Value) (Value, error) {
		return NewBool(f(l.(StringValue).Value, r.(StringValue).Value)), nil
	}
}

// Supports reports whether op is registered for operands of type typ.
func (t *OpTable) Supports(typ Type, op ast.BinaryOp) bool {
	_, ok := t.binary[typ][op]
	return ok
}

// SupportsUnary reports whether op is registered for an operand of type typ.
func (t *OpTable) SupportsUnary(typ Type, op ast.UnaryOp) bool {
	_, ok := t.unary[typ][op]
	return ok
}

// Apply evaluates a binary operator. Type compatibility is checked before
// operator support, so 1 + "a" is a type mismatch even though + exists for
// both types.
func (t *OpTable) Apply(op ast.BinaryOp, left, right Value) (Value, error) {
	if left == nil || right == nil || left.Type() == TypeNil || right.Type() == TypeNil {
		return nil, typeError(nil, "incompatible types for operation: %s %s %s", typeName(left), op, typeName(right))
	}
	if left.Type() != right.Type() {
		return nil, typeError(nil, "incompatible types for operation: %s %s %s", left.Type(), op, right.Type())
	}
	if !t.Supports(left.Type(), op) {
		return nil, typeError(nil, "incompatible operator for type: %s %s %s", left.Type(), op, right.Type())
	}
	return t.binary[left.Type()][op](left, right)
}

// ApplyUnary evaluates a unary operator.
func (t *OpTable) ApplyUnary(op ast.UnaryOp, v Value) (Value, error) {
	if v == nil || v.Type() == TypeNil {
		return nil, typeError(nil, "incompatible type for operation: %s%s", op.Symbol(), typeName(v))
	}
	if !t.SupportsUnary(v.Type(), op) {
		return nil, typeError(nil, "incompatible operator for type: %s%s", op.Symbol(), v.Type())
	}
	return t.unary[v.Type()][op](v)
}

func typeName(v Value) string {
	if v == nil {
		return "<absent>"
	}
	return v.Type().String()
}
