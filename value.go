package kilgo

import (
	"fmt"
	"math"
	"reflect"
)

// Shape of a characteristic value, decided once when the value is read from hap
type ValueKind int

const (
	ValueAbsent ValueKind = iota
	ValueBool
	ValueInt
	ValueOther
)

// A characteristic value as seen by the classifier.
// Use ValueOf to build one from a raw hap value.
type Value struct {
	kind ValueKind
	b    bool
	i    int64
	raw  any
}

// Converts a raw characteristic value into a Value.
// Integer types of any width become ValueInt, as do whole floats, since
// values arriving over JSON are always float64.
func ValueOf(v any) Value {
	if v == nil {
		return Value{kind: ValueAbsent}
	}

	if b, ok := v.(bool); ok {
		return Value{kind: ValueBool, b: b, raw: v}
	}

	val := reflect.ValueOf(v)
	switch {
	case val.CanInt():
		return Value{kind: ValueInt, i: val.Int(), raw: v}

	case val.CanUint():
		if u := val.Uint(); u <= math.MaxInt64 {
			return Value{kind: ValueInt, i: int64(u), raw: v}
		}

	case val.CanFloat():
		if f := val.Float(); f == math.Trunc(f) && math.Abs(f) <= math.MaxInt32 {
			return Value{kind: ValueInt, i: int64(f), raw: v}
		}
	}

	return Value{kind: ValueOther, raw: v}
}

func (v Value) Kind() ValueKind { return v.kind }

// Returns the boolean value, and whether the value is a boolean
func (v Value) Bool() (bool, bool) { return v.b, v.kind == ValueBool }

// Returns the integer value, and whether the value is an integer
func (v Value) Int() (int64, bool) { return v.i, v.kind == ValueInt }

// Returns the value as it was read from hap
func (v Value) Raw() any { return v.raw }

func (v Value) String() string {
	switch v.kind {
	case ValueAbsent:
		return "<absent>"
	case ValueBool:
		return fmt.Sprint(v.b)
	case ValueInt:
		return fmt.Sprint(v.i)
	}
	return fmt.Sprintf("%v", v.raw)
}
