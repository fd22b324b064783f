// Package evaluator implements the Brewin tree-walking evaluator.
package evaluator

import "strconv"

// Type is the runtime type tag of a Value.
type Type int

const (
	TypeNil Type = iota
	TypeInt
	TypeString
	TypeBool
)

func (t Type) String() string {
	switch t {
	case TypeInt:
		return "int"
	case TypeString:
		return "string"
	case TypeBool:
		return "bool"
	default:
		return "nil"
	}
}

// Value is the interface for all Brewin runtime values.
// Use the sealed marker method to restrict implementations to this package.
type Value interface {
	Type() Type
	// String returns the printable form used by print.
	String() string
	value() // sealed marker
}

// IntValue is a signed 64-bit integer.
type IntValue struct {
	Value int64
}

func (IntValue) Type() Type       { return TypeInt }
func (v IntValue) String() string { return strconv.FormatInt(v.Value, 10) }
func (IntValue) value()           {}

// StringValue is an immutable string.
type StringValue struct {
	Value string
}

func (StringValue) Type() Type       { return TypeString }
func (v StringValue) String() string { return v.Value }
func (StringValue) value()           {}

// BoolValue is true or false.
type BoolValue struct {
	Value bool
}

func (BoolValue) Type() Type { return TypeBool }
func (v BoolValue) String() string {
	if v.Value {
		return "true"
	}
	return "false"
}
func (BoolValue) value() {}

// NilValue is the distinguished "no value" datum.
type NilValue struct{}

func (NilValue) Type() Type     { return TypeNil }
func (NilValue) String() string { return "nil" }
func (NilValue) value()         {}

// Nil is the single nil value.
var Nil Value = NilValue{}

// NewInt creates an integer value.
func NewInt(n int64) Value {
	return IntValue{Value: n}
}

// NewString creates a string value.
func NewString(s string) Value {
	return StringValue{Value: s}
}

// NewBool creates a boolean value.
func NewBool(b bool) Value {
	return BoolValue{Value: b}
}

// Equal reports whether a and b have the same type and payload.
func Equal(a, b Value) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if a.Type() != b.Type() {
		return false
	}
	return a == b
}
