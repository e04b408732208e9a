package core

// These errors are caller errors, not internal errors.

import (
	"errors"

	"github.com/Comcast/ocdrules/expr"
)

// Rejected occurs when Apply refuses a property change.  The State
// given to Apply is unchanged.
type Rejected struct {
	Article  string
	Property string
	Value    expr.Value
	Reason   string
}

func (e *Rejected) Error() string {
	return `rejected ` + e.Property + ` = ` + e.Value.Literal() + ` for article "` + e.Article + `": ` + e.Reason
}

// Reasons given by Rejected.
const (
	ReasonNotConfigurable = "property is not configurable"
	ReasonInvalid         = "property is not valid in this configuration"
	ReasonObligatory      = "obligatory property cannot be unset"
	ReasonType            = "value does not fit the property type"
	ReasonNotMultiValued  = "property takes a single value"
	ReasonNoRow           = "value is not in the value table"
	ReasonNotLegal        = "value is not allowed by its precondition"
	ReasonRestricted      = "value is outside the remaining candidates"
)

// ForeignState occurs when a State is given to an Engine for a
// different catalog.
type ForeignState struct {
	State   *State
	Catalog string
}

func (e *ForeignState) Error() string {
	return `state ` + e.State.ID + ` for article "` + e.State.Article + `" does not belong to catalog "` + e.Catalog + `"`
}

var (
	// ErrRestrictedAssignment occurs when a pricing, packaging,
	// tax or bill-of-items relation assigns anything but a
	// relation variable or a relation-only property.
	ErrRestrictedAssignment = errors.New("only relation variables and relation-only properties may be assigned here")

	// ErrForeignAssignment occurs when a relation assigns a
	// property of $parent or $root.
	ErrForeignAssignment = errors.New("cannot assign another configuration's property")

	ErrUnknownTarget = errors.New("assignment to an unknown property")

	ErrBadAssignment = errors.New("value does not fit the property")
)
