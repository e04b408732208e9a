package expr

import (
	"strings"
)

// Node is an expression.
type Node interface {
	String() string
}

// Scope says which configuration a Ref reads.
type Scope uint8

const (
	ScopeLocal Scope = iota
	ScopeSelf
	ScopeParent
	ScopeRoot
)

func (s Scope) String() string {
	switch s {
	case ScopeSelf:
		return "$self"
	case ScopeParent:
		return "$parent"
	case ScopeRoot:
		return "$root"
	default:
		return ""
	}
}

// Literal is a constant.
type Literal struct {
	Value Value
}

func (n *Literal) String() string {
	return n.Value.Literal()
}

// Ref is a property reference.
//
// Qualifier is either a property class name ("Schrank.Hoehe") or a
// constraint object variable ("?S.Hoehe").  Qualifier is empty for a
// plain name.
type Ref struct {
	Scope     Scope
	Qualifier string
	Name      string
}

// IsObjectVar reports whether the qualifier is a constraint object
// variable.
func (n *Ref) IsObjectVar() bool {
	return strings.HasPrefix(n.Qualifier, "?")
}

func (n *Ref) String() string {
	var b strings.Builder
	if n.Scope != ScopeLocal {
		b.WriteString(n.Scope.String())
		b.WriteByte('.')
	}
	if n.Qualifier != "" {
		b.WriteString(n.Qualifier)
		b.WriteByte('.')
	}
	b.WriteString(n.Name)
	return b.String()
}

// Var is a relation variable such as $VARCOND.  Names are stored
// upper-case.
type Var struct {
	Name string
}

func (n *Var) String() string {
	return "$" + n.Name
}

type Unary struct {
	Op string
	X  Node
}

func (n *Unary) String() string {
	if n.Op == "not" {
		return "not " + n.X.String()
	}
	return n.Op + n.X.String()
}

type Binary struct {
	Op   string
	L, R Node
}

func (n *Binary) String() string {
	return "(" + n.L.String() + " " + n.Op + " " + n.R.String() + ")"
}

// InItem is one member of an IN list.  Hi is non-nil for a range.
// Wildcard is set at parse time for string literals containing '*'
// or '?' when the dialect allows wildcards.
type InItem struct {
	Lo, Hi   Node
	Wildcard bool
}

type In struct {
	X      Node
	Items  []InItem
	Negate bool
}

func (n *In) String() string {
	ss := make([]string, len(n.Items))
	for i, it := range n.Items {
		if it.Hi != nil {
			ss[i] = it.Lo.String() + " - " + it.Hi.String()
		} else {
			ss[i] = it.Lo.String()
		}
	}
	op := " in "
	if n.Negate {
		op = " not in "
	}
	return n.X.String() + op + "(" + strings.Join(ss, ", ") + ")"
}

// Specified is true when the referenced property has a value.
type Specified struct {
	Ref *Ref
}

func (n *Specified) String() string {
	return "specified(" + n.Ref.String() + ")"
}

type Call struct {
	Name string
	Args []Node
}

func (n *Call) String() string {
	ss := make([]string, len(n.Args))
	for i, a := range n.Args {
		ss[i] = a.String()
	}
	return n.Name + "(" + strings.Join(ss, ", ") + ")"
}

type TableArg struct {
	Column string
	X      Node
}

// TableCall is true when some row of the named value combination
// table agrees with every argument.
type TableCall struct {
	Table string
	Args  []TableArg
}

func (n *TableCall) String() string {
	ss := make([]string, len(n.Args))
	for i, a := range n.Args {
		ss[i] = a.Column + " = " + a.X.String()
	}
	return "table " + n.Table + "(" + strings.Join(ss, ", ") + ")"
}

// Assign is one statement of an action-like program.  Target is a
// *Ref or a *Var.  Cond is optional.
type Assign struct {
	Target Node
	X      Node
	Cond   Node
}

func (s *Assign) String() string {
	acc := s.Target.String() + " = " + s.X.String()
	if s.Cond != nil {
		acc += " if " + s.Cond.String()
	}
	return acc
}

// Program is a compiled action, reaction or post-reaction.
type Program struct {
	Source string
	Stmts  []*Assign
}

// Object binds a constraint variable to a property class.
type Object struct {
	Var   string
	Class string
}

// Restriction is one guarded constraint restriction.
type Restriction struct {
	X    Node
	Cond Node
}

// Constraint is a compiled constraint body.
type Constraint struct {
	Source       string
	Objects      []Object
	Condition    Node
	Restrictions []Restriction
	Inferences   []*Ref
}

// Infers reports whether the given reference is listed in the
// Inferences clause.
func (c *Constraint) Infers(r *Ref) bool {
	for _, x := range c.Inferences {
		if x.Name == r.Name && x.Qualifier == r.Qualifier {
			return true
		}
	}
	return false
}

// Walk calls f for n and every node below it, depth first.
func Walk(n Node, f func(Node)) {
	if n == nil {
		return
	}
	f(n)
	switch vv := n.(type) {
	case *Unary:
		Walk(vv.X, f)
	case *Binary:
		Walk(vv.L, f)
		Walk(vv.R, f)
	case *In:
		Walk(vv.X, f)
		for _, it := range vv.Items {
			Walk(it.Lo, f)
			Walk(it.Hi, f)
		}
	case *Specified:
		Walk(vv.Ref, f)
	case *Call:
		for _, a := range vv.Args {
			Walk(a, f)
		}
	case *TableCall:
		for _, a := range vv.Args {
			Walk(a.X, f)
		}
	}
}

// Refs collects the property references in the given nodes.
func Refs(ns ...Node) []*Ref {
	var acc []*Ref
	for _, n := range ns {
		Walk(n, func(x Node) {
			if r, is := x.(*Ref); is {
				acc = append(acc, r)
			}
		})
	}
	return acc
}

// Reads returns the property references read by the program.
func (p *Program) Reads() []*Ref {
	var acc []*Ref
	for _, s := range p.Stmts {
		acc = append(acc, Refs(s.X, s.Cond)...)
	}
	return acc
}

// Writes returns the property references assigned by the program.
func (p *Program) Writes() []*Ref {
	var acc []*Ref
	for _, s := range p.Stmts {
		if r, is := s.Target.(*Ref); is {
			acc = append(acc, r)
		}
	}
	return acc
}

// Reads returns every property reference in the constraint.
func (c *Constraint) Reads() []*Ref {
	acc := Refs(c.Condition)
	for _, r := range c.Restrictions {
		acc = append(acc, Refs(r.X, r.Cond)...)
	}
	return acc
}
