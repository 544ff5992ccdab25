package vm

import (
	"fmt"
	"strconv"
)

// ---------------------------------------------------------------------------
// Value: Tagged runtime value
// ---------------------------------------------------------------------------

// Kind identifies the runtime type of a Value.
type Kind uint8

const (
	KindNil Kind = iota
	KindBool
	KindInt
	KindFloat
	KindString
)

// String returns a human-readable name for the kind.
func (k Kind) String() string {
	switch k {
	case KindNil:
		return "nil"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

// Value is a Fusabi runtime value. The zero value is nil.
// Values are immutable and comparable.
type Value struct {
	kind Kind
	b    bool
	i    int64
	f    float64
	s    string
}

// Nil is the nil value.
var Nil = Value{}

// True and False are the boolean values.
var (
	True  = Value{kind: KindBool, b: true}
	False = Value{kind: KindBool, b: false}
)

// FromBool returns a boolean value.
func FromBool(b bool) Value {
	if b {
		return True
	}
	return False
}

// FromInt returns an integer value.
func FromInt(n int64) Value {
	return Value{kind: KindInt, i: n}
}

// FromFloat returns a float value.
func FromFloat(f float64) Value {
	return Value{kind: KindFloat, f: f}
}

// FromString returns a string value.
func FromString(s string) Value {
	return Value{kind: KindString, s: s}
}

// Kind returns the value's runtime type.
func (v Value) Kind() Kind { return v.kind }

// IsNil reports whether the value is nil.
func (v Value) IsNil() bool { return v.kind == KindNil }

// Bool returns the boolean payload. Only meaningful for KindBool.
func (v Value) Bool() bool { return v.b }

// Int returns the integer payload. Only meaningful for KindInt.
func (v Value) Int() int64 { return v.i }

// Float returns the float payload. Only meaningful for KindFloat.
func (v Value) Float() float64 { return v.f }

// Str returns the string payload. Only meaningful for KindString.
func (v Value) Str() string { return v.s }

// IsNumber reports whether the value is an int or a float.
func (v Value) IsNumber() bool {
	return v.kind == KindInt || v.kind == KindFloat
}

// AsFloat returns the numeric payload widened to float64.
// Only meaningful for numbers.
func (v Value) AsFloat() float64 {
	if v.kind == KindInt {
		return float64(v.i)
	}
	return v.f
}

// Truthy reports the value's truthiness: nil and false are falsy,
// everything else is truthy.
func (v Value) Truthy() bool {
	switch v.kind {
	case KindNil:
		return false
	case KindBool:
		return v.b
	default:
		return true
	}
}

// Equal reports structural equality. Ints and floats compare numerically
// across kinds, so 1 = 1.0.
func (v Value) Equal(o Value) bool {
	if v.IsNumber() && o.IsNumber() {
		if v.kind == KindInt && o.kind == KindInt {
			return v.i == o.i
		}
		return v.AsFloat() == o.AsFloat()
	}
	return v == o
}

// String implements the Stringer interface, rendering the value the way
// print displays it.
func (v Value) String() string {
	switch v.kind {
	case KindNil:
		return "nil"
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindFloat:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	case KindString:
		return v.s
	default:
		return fmt.Sprintf("Value(%d)", uint8(v.kind))
	}
}
