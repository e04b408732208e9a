package expr

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Kind is the dynamic type of a Value.
type Kind uint8

const (
	KindUndefined Kind = iota
	KindNumber
	KindString
	KindBool
	KindSet
)

func (k Kind) String() string {
	switch k {
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindBool:
		return "bool"
	case KindSet:
		return "set"
	default:
		return "undefined"
	}
}

// Value is the result of evaluating an expression.
//
// The zero Value is Undefined.  A Set holds the current values of a
// multi-valued property; its elements are never Sets themselves.
type Value struct {
	Kind Kind
	Num  float64
	Str  string
	B    Bool3
	Set  []Value
}

// Undef is the Undefined value.
var Undef = Value{}

func Num(f float64) Value {
	return Value{Kind: KindNumber, Num: f}
}

func Str(s string) Value {
	return Value{Kind: KindString, Str: s}
}

func Bool(b Bool3) Value {
	if b == Undefined {
		return Undef
	}
	return Value{Kind: KindBool, B: b}
}

// SetOf makes a Set.  Nested Sets are flattened and an empty Set is
// Undefined.
func SetOf(vs ...Value) Value {
	acc := make([]Value, 0, len(vs))
	for _, v := range vs {
		switch v.Kind {
		case KindUndefined:
		case KindSet:
			acc = append(acc, v.Set...)
		default:
			acc = append(acc, v)
		}
	}
	if len(acc) == 0 {
		return Undef
	}
	return Value{Kind: KindSet, Set: acc}
}

func (v Value) IsUndefined() bool {
	return v.Kind == KindUndefined
}

// Elems returns the members of a Set or the Value itself as a
// singleton.  Undefined has no members.
func (v Value) Elems() []Value {
	switch v.Kind {
	case KindUndefined:
		return nil
	case KindSet:
		return v.Set
	default:
		return []Value{v}
	}
}

// Equal reports identity of kind and content.  Numbers compare
// exactly; callers round to a property's precision before storing.
func (v Value) Equal(o Value) bool {
	if v.Kind != o.Kind {
		return false
	}
	switch v.Kind {
	case KindNumber:
		return v.Num == o.Num
	case KindString:
		return v.Str == o.Str
	case KindBool:
		return v.B == o.B
	case KindSet:
		if len(v.Set) != len(o.Set) {
			return false
		}
		for i := range v.Set {
			if !v.Set[i].Equal(o.Set[i]) {
				return false
			}
		}
		return true
	default:
		return true
	}
}

// Contains reports whether x is one of the elements of v.
func (v Value) Contains(x Value) bool {
	for _, e := range v.Elems() {
		if e.Equal(x) {
			return true
		}
	}
	return false
}

// FormatNumber renders a number without exponent and without
// trailing zeros.
func FormatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func (v Value) String() string {
	switch v.Kind {
	case KindNumber:
		return FormatNumber(v.Num)
	case KindString:
		return v.Str
	case KindBool:
		return v.B.String()
	case KindSet:
		ss := make([]string, len(v.Set))
		for i, e := range v.Set {
			ss[i] = e.String()
		}
		return strings.Join(ss, ",")
	default:
		return ""
	}
}

// Literal renders the Value in relation-language syntax.
func (v Value) Literal() string {
	switch v.Kind {
	case KindString:
		return "'" + strings.ReplaceAll(v.Str, "'", "''") + "'"
	case KindSet:
		ss := make([]string, len(v.Set))
		for i, e := range v.Set {
			ss[i] = e.Literal()
		}
		return "(" + strings.Join(ss, ", ") + ")"
	case KindUndefined:
		return "undefined"
	default:
		return v.String()
	}
}

// MarshalJSON renders numbers as numbers, strings as strings, Sets as
// arrays and Undefined as null.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.Kind {
	case KindNumber:
		return json.Marshal(v.Num)
	case KindString:
		return json.Marshal(v.Str)
	case KindBool:
		return json.Marshal(v.B == True)
	case KindSet:
		return json.Marshal(v.Set)
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON is the inverse of MarshalJSON.
func (v *Value) UnmarshalJSON(bs []byte) error {
	var x interface{}
	if err := json.Unmarshal(bs, &x); err != nil {
		return err
	}
	*v = FromInterface(x)
	return nil
}

// FromInterface converts decoded JSON or YAML data.  Unknown types
// become Undefined.
func FromInterface(x interface{}) Value {
	switch vv := x.(type) {
	case nil:
		return Undef
	case Value:
		return vv
	case float64:
		return Num(vv)
	case float32:
		return Num(float64(vv))
	case int:
		return Num(float64(vv))
	case int64:
		return Num(float64(vv))
	case string:
		return Str(vv)
	case bool:
		return Bool(Of(vv))
	case []interface{}:
		acc := make([]Value, 0, len(vv))
		for _, y := range vv {
			acc = append(acc, FromInterface(y))
		}
		return SetOf(acc...)
	default:
		return Undef
	}
}
