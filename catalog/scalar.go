package catalog

import (
	"encoding/json"
	"strings"

	"github.com/Comcast/ocdrules/expr"
)

// Scalar is a value cell of a catalog document: a value-table value,
// an article override or a table cell.  Besides the decoded datum it
// keeps the source text, since YAML 1.1 reads N, Y, on, off, yes and
// no as booleans and 03 as an octal number.
type Scalar struct {
	X interface{}

	text  string
	elems []Scalar
}

// Text makes a Scalar from source text.
func Text(s string) Scalar {
	return Scalar{X: s, text: s}
}

func (s *Scalar) UnmarshalYAML(unmarshal func(interface{}) error) error {
	if err := unmarshal(&s.X); err != nil {
		return err
	}
	switch s.X.(type) {
	case nil, map[interface{}]interface{}:
		return nil
	case []interface{}:
		return unmarshal(&s.elems)
	}
	return unmarshal(&s.text)
}

func (s Scalar) MarshalYAML() (interface{}, error) {
	return s.datum(), nil
}

// datum is X with booleans back as their text.
func (s Scalar) datum() interface{} {
	if _, is := s.X.(bool); is && s.text != "" {
		return s.text
	}
	return s.X
}

func (s *Scalar) UnmarshalJSON(bs []byte) error {
	if err := json.Unmarshal(bs, &s.X); err != nil {
		return err
	}
	switch vv := s.X.(type) {
	case nil, map[string]interface{}:
	case []interface{}:
		return json.Unmarshal(bs, &s.elems)
	case string:
		s.text = vv
	default:
		s.text = strings.TrimSpace(string(bs))
	}
	return nil
}

func (s Scalar) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.datum())
}

// IsZero reports whether the cell is absent.
func (s Scalar) IsZero() bool {
	return s.X == nil && s.elems == nil
}

// Value converts the cell.  With asText, every scalar is taken as its
// source text.  Booleans are always text: catalogs have no boolean
// values.
func (s Scalar) Value(asText bool) expr.Value {
	if s.elems != nil {
		acc := make([]expr.Value, 0, len(s.elems))
		for _, e := range s.elems {
			acc = append(acc, e.Value(asText))
		}
		return expr.SetOf(acc...)
	}
	switch s.X.(type) {
	case nil:
		return expr.Undef
	case bool:
		if s.text != "" {
			return expr.Str(s.text)
		}
	default:
		if asText && s.text != "" {
			return expr.Str(s.text)
		}
	}
	return expr.FromInterface(s.X)
}

// Cell converts a table cell.  Columns have no type, so a number
// written with a leading zero, like 07, is a code and stays text.
func (s Scalar) Cell() expr.Value {
	if s.elems != nil {
		acc := make([]expr.Value, 0, len(s.elems))
		for _, e := range s.elems {
			acc = append(acc, e.Cell())
		}
		return expr.SetOf(acc...)
	}
	if t := strings.TrimPrefix(s.text, "-"); 1 < len(t) && t[0] == '0' && '0' <= t[1] && t[1] <= '9' {
		return expr.Str(s.text)
	}
	return s.Value(false)
}
