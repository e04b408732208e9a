package core

import (
	"encoding/json"
	"sort"

	"github.com/Comcast/ocdrules/expr"
)

// Status is where a State is in its life.
type Status string

const (
	Initializing Status = "initializing"
	Evaluating   Status = "evaluating"
	Complete     Status = "complete"
	Incomplete   Status = "incomplete"
)

// State is the configuration of one article instance.
//
// Values holds the current value of every evaluated property except
// relation-only ones, which never outlive a pass.  A restrictable
// property has an entry in Values only when it is evaluated: its
// candidates in Domains narrowed to one value, or the user picked a
// value (see Picked).  A restrictable property without an entry in
// Domains has all of its value-table values as candidates.  Domains
// only ever shrink from one Step to the next; see Engine.Reopen.
type State struct {
	ID      string                  `json:"id"`
	Article string                  `json:"article"`
	Status  Status                  `json:"status"`
	Values  map[string]expr.Value   `json:"values"`
	Domains map[string][]expr.Value `json:"domains,omitempty" yaml:",omitempty"`
	Picked  map[string]bool         `json:"picked,omitempty" yaml:",omitempty"`

	// Invalid lists properties whose preconditions or selection
	// conditions (or those of their class) do not hold.
	Invalid map[string]bool `json:"invalid,omitempty" yaml:",omitempty"`

	// Violations describes the constraints that the configuration
	// does not satisfy.
	Violations []string `json:"violations,omitempty" yaml:",omitempty"`

	// Missing lists the obligatory properties without a value and
	// the restrictable properties that are not evaluated yet.
	Missing []string `json:"missing,omitempty" yaml:",omitempty"`

	// Parent and Root are the enclosing configurations of a
	// bill-of-items position.  Both are nil at the top.
	Parent *State `json:"-" yaml:"-"`
	Root   *State `json:"-" yaml:"-"`
}

func (s *State) String() string {
	if s == nil {
		return "nil"
	}
	js, err := json.Marshal(s.Values)
	if err != nil {
		return s.Article + "/{*}"
	}
	return s.Article + "/" + string(js)
}

// Copy makes a deep copy of the State.  Parent and Root are shared.
func (s *State) Copy() *State {
	acc := &State{
		ID:         s.ID,
		Article:    s.Article,
		Status:     s.Status,
		Values:     make(map[string]expr.Value, len(s.Values)),
		Violations: append([]string(nil), s.Violations...),
		Missing:    append([]string(nil), s.Missing...),
		Parent:     s.Parent,
		Root:       s.Root,
	}
	for k, v := range s.Values {
		acc.Values[k] = v
	}
	if s.Domains != nil {
		acc.Domains = make(map[string][]expr.Value, len(s.Domains))
		for k, vs := range s.Domains {
			acc.Domains[k] = copyValues(vs)
		}
	}
	if s.Picked != nil {
		acc.Picked = make(map[string]bool, len(s.Picked))
		for k, b := range s.Picked {
			acc.Picked[k] = b
		}
	}
	if s.Invalid != nil {
		acc.Invalid = make(map[string]bool, len(s.Invalid))
		for k, b := range s.Invalid {
			acc.Invalid[k] = b
		}
	}
	return acc
}

// Value returns the value of a property, which is Undefined if the
// property is unset or not valid.
func (s *State) Value(name string) expr.Value {
	if s.Invalid[name] {
		return expr.Undef
	}
	return s.Values[name]
}

// IsValid reports whether the property's preconditions hold.
func (s *State) IsValid(name string) bool {
	return !s.Invalid[name]
}

// IsConsistent reports whether no constraint is violated.
func (s *State) IsConsistent() bool {
	return len(s.Violations) == 0
}

// Names returns the names of the properties that have values in
// sorted order.
func (s *State) Names() []string {
	acc := make([]string, 0, len(s.Values))
	for name := range s.Values {
		acc = append(acc, name)
	}
	sort.Strings(acc)
	return acc
}

// root is the top configuration, which is s itself at the top.
func (s *State) root() *State {
	if s.Root != nil {
		return s.Root
	}
	return s
}
