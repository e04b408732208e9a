package catalog

import (
	"math"
	"time"

	"github.com/Comcast/ocdrules/expr"
)

// PropType is the value type of a property.
type PropType string

const (
	Char     PropType = "char"
	FreeText PropType = "text"
	Numeric  PropType = "num"
	Length   PropType = "len"
)

// Scope says who can see and change a property.
type Scope string

const (
	Configurable    Scope = "C"
	RelationOnly    Scope = "R"
	ReadOnlyVisible Scope = "RV"
	GraphicsOnly    Scope = "G"
)

// Class is a property class: a named group of properties with an
// optional relation object.
type Class struct {
	Name       string      `json:"name" yaml:"name" validate:"required"`
	Relation   string      `json:"relation,omitempty" yaml:"relation,omitempty"`
	Text       string      `json:"text,omitempty" yaml:"text,omitempty"`
	Doc        string      `json:"doc,omitempty" yaml:"doc,omitempty"`
	Properties []*Property `json:"properties,omitempty" yaml:"properties,omitempty" validate:"dive"`
}

// Property is one property of a class.
type Property struct {
	// Class is filled in by Compile from the enclosing Class.
	Class string `json:"-" yaml:"-"`

	Name  string   `json:"name" yaml:"name" validate:"required"`
	Type  PropType `json:"type,omitempty" yaml:"type,omitempty" validate:"omitempty,oneof=char text num len"`
	Scope Scope    `json:"scope,omitempty" yaml:"scope,omitempty" validate:"omitempty,oneof=C R RV G"`

	Obligatory   bool `json:"obligatory,omitempty" yaml:"obligatory,omitempty"`
	FreeValues   bool `json:"freeValues,omitempty" yaml:"freeValues,omitempty"`
	Restrictable bool `json:"restrictable,omitempty" yaml:"restrictable,omitempty"`
	MultiValued  bool `json:"multiValued,omitempty" yaml:"multiValued,omitempty"`

	// Digits is the field width used by variant codes.
	Digits   int `json:"digits,omitempty" yaml:"digits,omitempty" validate:"gte=0"`
	Decimals int `json:"decimals,omitempty" yaml:"decimals,omitempty" validate:"gte=0,lte=12"`

	TextControl string `json:"textControl,omitempty" yaml:"textControl,omitempty"`
	Position    int    `json:"pos,omitempty" yaml:"pos,omitempty"`
	Relation    string `json:"relation,omitempty" yaml:"relation,omitempty"`
	Text        string `json:"text,omitempty" yaml:"text,omitempty"`
	Doc         string `json:"doc,omitempty" yaml:"doc,omitempty"`

	Values []*PropertyValue `json:"values,omitempty" yaml:"values,omitempty" validate:"dive"`
}

// Key is "Class.Name".
func (p *Property) Key() string {
	return p.Class + "." + p.Name
}

// IsConfigurable reports whether users may set the property.
func (p *Property) IsConfigurable() bool {
	return p.Scope == Configurable
}

func (p *Property) IsNumeric() bool {
	return p.Type == Numeric || p.Type == Length
}

// Default returns the default-flagged value row, if any.
func (p *Property) Default() *PropertyValue {
	for _, v := range p.Values {
		if v.Default {
			return v
		}
	}
	return nil
}

// Zero is the type-appropriate empty value.
func (p *Property) Zero() expr.Value {
	if p.IsNumeric() {
		return expr.Num(0)
	}
	return expr.Str("")
}

// Round rounds a numeric value to the property's declared decimals.
// Other values are returned as is.
func (p *Property) Round(v expr.Value) expr.Value {
	if !p.IsNumeric() {
		return v
	}
	switch v.Kind {
	case expr.KindNumber:
		return expr.Num(expr.RoundHalfAway(v.Num, p.Decimals))
	case expr.KindSet:
		acc := make([]expr.Value, len(v.Set))
		for i, e := range v.Set {
			acc[i] = p.Round(e)
		}
		return expr.SetOf(acc...)
	}
	return v
}

// HasType reports whether v's kind fits the property type.
func (p *Property) HasType(v expr.Value) bool {
	for _, e := range v.Elems() {
		if p.IsNumeric() != (e.Kind == expr.KindNumber) {
			return false
		}
		if !p.IsNumeric() && e.Kind != expr.KindString {
			return false
		}
	}
	return true
}

// Row finds the value row that admits v.  Discrete rows are
// preferred over intervals.
func (p *Property) Row(v expr.Value) *PropertyValue {
	for _, r := range p.Values {
		if !r.IsInterval() && r.value.Equal(v) {
			return r
		}
	}
	for _, r := range p.Values {
		if r.IsInterval() && r.Admits(v) {
			return r
		}
	}
	return nil
}

// PropertyValue is one row of a property's value table: either a
// discrete value or an interval.
//
// An interval has Op (GT or GE) with Value as its lower bound and/or
// Op2 (LT or LE) with Value2 as its upper bound.  An interval may
// carry a Raster step counted from its lower bound.
type PropertyValue struct {
	Position int         `json:"pos,omitempty" yaml:"pos,omitempty"`
	Value    Scalar      `json:"value" yaml:"value"`
	Op       string      `json:"op,omitempty" yaml:"op,omitempty" validate:"omitempty,oneof=EQ GT GE LT LE"`
	Value2   Scalar      `json:"value2,omitzero" yaml:"value2,omitempty"`
	Op2      string      `json:"op2,omitempty" yaml:"op2,omitempty" validate:"omitempty,oneof=LT LE"`
	Raster   float64     `json:"raster,omitempty" yaml:"raster,omitempty" validate:"gte=0"`

	Default      bool `json:"default,omitempty" yaml:"default,omitempty"`
	SuppressText bool `json:"suppressText,omitempty" yaml:"suppressText,omitempty"`

	ValidFrom string `json:"validFrom,omitempty" yaml:"validFrom,omitempty"`
	ValidTo   string `json:"validTo,omitempty" yaml:"validTo,omitempty"`

	Relation string `json:"relation,omitempty" yaml:"relation,omitempty"`
	Text     string `json:"text,omitempty" yaml:"text,omitempty"`

	value, value2 expr.Value
	from, to      time.Time
}

// V is the row's (lower bound) value.
func (r *PropertyValue) V() expr.Value {
	return r.value
}

// IsInterval reports whether the row is a range rather than one
// value.
func (r *PropertyValue) IsInterval() bool {
	return (r.Op != "" && r.Op != "EQ") || r.Op2 != ""
}

// ValidAt reports whether the row's validity window includes t.  A
// zero t matches every row.
func (r *PropertyValue) ValidAt(t time.Time) bool {
	return within(t, r.from, r.to)
}

// Admits reports whether v is inside the row.
func (r *PropertyValue) Admits(v expr.Value) bool {
	if !r.IsInterval() {
		return r.value.Equal(v)
	}
	if v.Kind != expr.KindNumber {
		return false
	}
	x := v.Num
	if !r.value.IsUndefined() {
		lo := r.value.Num
		switch r.Op {
		case "GT":
			if !(x > lo) {
				return false
			}
		case "GE":
			if !(x >= lo) {
				return false
			}
		case "LT":
			if !(x < lo) {
				return false
			}
		case "LE":
			if !(x <= lo) {
				return false
			}
		}
		if r.Raster > 0 {
			k := (x - lo) / r.Raster
			if math.Abs(k-math.Round(k)) > 1e-9 {
				return false
			}
		}
	}
	if !r.value2.IsUndefined() {
		hi := r.value2.Num
		switch r.Op2 {
		case "LT":
			if !(x < hi) {
				return false
			}
		case "LE":
			if !(x <= hi) {
				return false
			}
		}
	}
	return true
}

// Lowest returns the smallest admitted value of an interval, used
// when an obligatory numeric property needs a seed.
func (r *PropertyValue) Lowest() expr.Value {
	if !r.IsInterval() || r.value.IsUndefined() {
		return r.value
	}
	x := r.value.Num
	if r.Op == "GT" {
		step := r.Raster
		if step == 0 {
			step = 1
		}
		x += step
	}
	v := expr.Num(x)
	if !r.Admits(v) {
		return expr.Undef
	}
	return v
}

func within(t, from, to time.Time) bool {
	if t.IsZero() {
		return true
	}
	if !from.IsZero() && t.Before(from) {
		return false
	}
	if !to.IsZero() && t.After(to) {
		return false
	}
	return true
}
