package catalog

import (
	"github.com/Comcast/ocdrules/expr"
)

// Kind is the kind of a relation.
type Kind string

const (
	Precondition       Kind = "precondition"
	SelectionCondition Kind = "selection"
	Action             Kind = "action"
	Constraint         Kind = "constraint"
	Reaction           Kind = "reaction"
	PostReaction       Kind = "postreaction"
)

// Usage is the usage area of a relation.
type Usage string

const (
	Configuration Usage = "configuration"
	Pricing       Usage = "pricing"
	BillOfItems   Usage = "bom"
	Packaging     Usage = "packaging"
	Tax           Usage = "tax"
)

// Relation is one rule program.
//
// Source is compiled according to Kind: preconditions and selection
// conditions are expressions, constraints are constraint bodies, and
// everything else is a statement list.
type Relation struct {
	Name     string `json:"name,omitempty" yaml:"name,omitempty"`
	Kind     Kind   `json:"kind" yaml:"kind" validate:"required,oneof=precondition selection action constraint reaction postreaction"`
	Usage    Usage  `json:"usage,omitempty" yaml:"usage,omitempty" validate:"omitempty,oneof=configuration pricing bom packaging tax"`
	Position int    `json:"pos,omitempty" yaml:"pos,omitempty"`
	Source   string `json:"source" yaml:"source" validate:"required"`

	Cond       expr.Node        `json:"-" yaml:"-"`
	Program    *expr.Program    `json:"-" yaml:"-"`
	Constraint *expr.Constraint `json:"-" yaml:"-"`
}

// Compile parses the relation's Source in the given dialect.
func (r *Relation) Compile(d *expr.Dialect) error {
	if r.Usage == "" {
		r.Usage = Configuration
	}
	var err error
	switch r.Kind {
	case Precondition, SelectionCondition:
		r.Cond, err = expr.ParseExpr(r.Source, d)
	case Constraint:
		r.Constraint, err = expr.ParseConstraint(r.Source, d)
	default:
		r.Program, err = expr.ParseProgram(r.Source, d)
	}
	return err
}

// Compiled reports whether Compile has succeeded.
func (r *Relation) Compiled() bool {
	return r.Cond != nil || r.Program != nil || r.Constraint != nil
}

// RelationObject is the ordered container of relations bound to an
// article, class, property or value.
type RelationObject struct {
	ID        string      `json:"id" yaml:"id" validate:"required"`
	Doc       string      `json:"doc,omitempty" yaml:"doc,omitempty"`
	Relations []*Relation `json:"relations" yaml:"relations" validate:"dive"`
}

// Select returns the relations of the given kind and usage in
// document order.
func (o *RelationObject) Select(k Kind, u Usage) []*Relation {
	if o == nil {
		return nil
	}
	var acc []*Relation
	for _, r := range o.Relations {
		if r.Kind == k && r.Usage == u {
			acc = append(acc, r)
		}
	}
	return acc
}

// ArticleKind distinguishes plain, configurable and composite
// articles.
type ArticleKind string

const (
	PlainArticle        ArticleKind = "plain"
	ConfigurableArticle ArticleKind = "configurable"
	CompositeArticle    ArticleKind = "composite"
)

// Article is one orderable item.
type Article struct {
	ID       string      `json:"id" yaml:"id" validate:"required"`
	Kind     ArticleKind `json:"kind,omitempty" yaml:"kind,omitempty" validate:"omitempty,oneof=plain configurable composite"`
	Classes  []string    `json:"classes,omitempty" yaml:"classes,omitempty"`
	Relation string      `json:"relation,omitempty" yaml:"relation,omitempty"`

	// Scheme names the VariantScheme used for the final article
	// number.  Empty means key/value list.
	Scheme string `json:"scheme,omitempty" yaml:"scheme,omitempty"`

	Items []*BillOfItem `json:"items,omitempty" yaml:"items,omitempty" validate:"dive"`

	// Overrides are article master data values that replace the
	// value-table defaults at initialization.
	Overrides map[string]Scalar `json:"overrides,omitempty" yaml:"overrides,omitempty"`

	Text string `json:"text,omitempty" yaml:"text,omitempty"`
	Doc  string `json:"doc,omitempty" yaml:"doc,omitempty"`

	props     []*Property
	overrides map[string]expr.Value
}

// Properties returns the article's properties in property-table
// order: class by class, by position within a class.
func (a *Article) Properties() []*Property {
	return a.props
}

// Property finds one of the article's properties by name.
func (a *Article) Property(name string) (*Property, bool) {
	for _, p := range a.props {
		if p.Name == name {
			return p, true
		}
	}
	return nil, false
}

// Override returns the master data override for a property.
func (a *Article) Override(name string) (expr.Value, bool) {
	v, have := a.overrides[name]
	return v, have
}

// BillOfItem is one position of a composite article.
type BillOfItem struct {
	Position     int     `json:"pos" yaml:"pos"`
	Article      string  `json:"article" yaml:"article" validate:"required"`
	Quantity     float64 `json:"qty,omitempty" yaml:"qty,omitempty" validate:"gte=0"`
	Configurable bool    `json:"configurable,omitempty" yaml:"configurable,omitempty"`

	// Relation holds BillOfItems-usage preconditions that decide
	// whether the position exists.
	Relation string `json:"relation,omitempty" yaml:"relation,omitempty"`
}
