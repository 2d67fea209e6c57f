// Package value defines the tagged runtime value type shared by the
// compiler and the VM.
//
// A Value is a small tagged union over five variants: Bool, Integer,
// Decimal, Nil, and Object. Object is currently only ever an *ObjString;
// every other package in this module treats Value as a cheaply copyable
// struct whose payload it reaches only through methods; the exported Type
// tag is the one field read directly.
//
// Example:
//
//	v := value.Integer(42)
//	if v.IsNumeric() {
//	    fmt.Println(v.String()) // "42"
//	}
package value

import (
	"fmt"
	"math"
	"strconv"
)

// Type identifies which variant a Value holds. TypeNil is the zero Type,
// so the zero Value is Nil.
type Type byte

const (
	TypeNil Type = iota
	TypeBool
	TypeInteger
	TypeDecimal
	TypeObject
)

// Value is a tagged union. Only one of the payload fields (integer,
// decimal, object) is meaningful, selected by Type. Bool and Integer both live in the integer field so
// that Bool participates in integer arithmetic without a conversion step
// (see spec.md's "Bool/Integer compare numerically" invariant).
type Value struct {
	Type    Type
	integer int64
	decimal float64
	object  Object
}

// Object is the common interface satisfied by heap-allocated reference
// values. ObjString is the only implementation today.
type Object interface {
	objType() objType
}

type objType byte

const (
	objString objType = iota
)

// Nil is the singleton nil value.
var Nil = Value{Type: TypeNil}

// Bool constructs a boolean value.
func Bool(b bool) Value {
	if b {
		return Value{Type: TypeBool, integer: 1}
	}
	return Value{Type: TypeBool, integer: 0}
}

// Integer constructs a signed 64-bit integer value.
func Integer(i int64) Value {
	return Value{Type: TypeInteger, integer: i}
}

// Decimal constructs an IEEE-754 binary64 value.
func Decimal(d float64) Value {
	return Value{Type: TypeDecimal, decimal: d}
}

// Obj wraps an Object (currently always *ObjString) in a Value.
func Obj(o Object) Value {
	return Value{Type: TypeObject, object: o}
}

// IsBool, IsInteger, IsDecimal, IsNil, IsObject report the Value's variant.
// IsInteger additionally returns true for Bool, matching spec.md's
// "Bool/Integer compare numerically" lattice.
func (v Value) IsBool() bool    { return v.Type == TypeBool }
func (v Value) IsInteger() bool { return v.Type == TypeInteger || v.Type == TypeBool }
func (v Value) IsDecimal() bool { return v.Type == TypeDecimal }
func (v Value) IsNil() bool     { return v.Type == TypeNil }
func (v Value) IsObject() bool  { return v.Type == TypeObject }

// IsNumeric reports whether v participates in arithmetic: Bool, Integer,
// or Decimal.
func (v Value) IsNumeric() bool { return v.IsInteger() || v.IsDecimal() }

// IsString reports whether v holds an interned *ObjString.
func (v Value) IsString() bool {
	s, ok := v.object.(*ObjString)
	return v.Type == TypeObject && ok && s != nil
}

// AsBool returns the boolean payload (only meaningful if IsBool).
func (v Value) AsBool() bool { return v.integer != 0 }

// AsInteger returns the integer payload (meaningful if IsInteger, i.e.
// Integer or Bool).
func (v Value) AsInteger() int64 { return v.integer }

// AsDecimal returns the decimal payload (meaningful if IsDecimal).
func (v Value) AsDecimal() float64 { return v.decimal }

// AsFloat64 promotes an Integer, Bool, or Decimal to float64. Callers must
// check IsNumeric first.
func (v Value) AsFloat64() float64 {
	if v.IsDecimal() {
		return v.decimal
	}
	return float64(v.integer)
}

// AsString returns the underlying *ObjString. Callers must check IsString
// first.
func (v Value) AsString() *ObjString {
	return v.object.(*ObjString)
}

// AsObject returns the underlying Object for any Object-typed Value.
func (v Value) AsObject() Object { return v.object }

// Truthy implements spec.md §4.5's truthiness table: Nil and false are
// false; numeric zero (Integer 0 or Decimal 0.0) is false; a zero-length
// string is false; everything else is true.
func (v Value) Truthy() bool {
	switch v.Type {
	case TypeNil:
		return false
	case TypeBool:
		return v.integer != 0
	case TypeInteger:
		return v.integer != 0
	case TypeDecimal:
		return v.decimal != 0
	case TypeObject:
		if s, ok := v.object.(*ObjString); ok {
			return s.Length() != 0
		}
		return true
	default:
		return true
	}
}

// TypeName returns the interpreter-facing type descriptor used by the
// TYPEOF opcode, matching original_source/strings.c's typeToString.
func (v Value) TypeName() string {
	switch v.Type {
	case TypeBool:
		return "<builtin 'bool'>"
	case TypeDecimal:
		return "<builtin 'float'>"
	case TypeInteger:
		return "<builtin 'integer'>"
	case TypeNil:
		return "<builtin 'nil'>"
	case TypeObject:
		if v.IsString() {
			return "<class 'String'>"
		}
		return "<class 'Object'>"
	default:
		return "<builtin 'nil'>"
	}
}

// String returns the canonical textual form of v, used both by PRINT and
// by the string-concatenation case of OP_ADD (spec.md §4.5). Integers
// print in decimal notation, decimals with %.15g, booleans as true/false,
// nil as "nil", and strings as themselves.
func (v Value) String() string {
	switch v.Type {
	case TypeInteger:
		return strconv.FormatInt(v.integer, 10)
	case TypeDecimal:
		return formatDecimal(v.decimal)
	case TypeBool:
		if v.integer != 0 {
			return "true"
		}
		return "false"
	case TypeNil:
		return "nil"
	case TypeObject:
		if s, ok := v.object.(*ObjString); ok {
			return s.String()
		}
		return v.TypeName()
	default:
		return "nil"
	}
}

// formatDecimal mirrors C's "%.15g" used by original_source/strings.c's
// doubleToString: up to 15 significant digits, shortest form that round
// trips within that precision.
func formatDecimal(d float64) string {
	if math.IsInf(d, 1) {
		return "inf"
	}
	if math.IsInf(d, -1) {
		return "-inf"
	}
	if math.IsNaN(d) {
		return "nan"
	}
	return strconv.FormatFloat(d, 'g', 15, 64)
}

// GoString supports %#v-style debug printing in tests.
func (v Value) GoString() string {
	return fmt.Sprintf("Value{%s}", v.String())
}

// ValueArray is a dynamic array of Values; used as a Chunk's constant pool.
type ValueArray struct {
	values []Value
}

// Write appends value and returns its index.
func (a *ValueArray) Write(v Value) int {
	a.values = append(a.values, v)
	return len(a.values) - 1
}

// Get returns the value at index i.
func (a *ValueArray) Get(i int) Value { return a.values[i] }

// Len returns the number of constants stored.
func (a *ValueArray) Len() int { return len(a.values) }
