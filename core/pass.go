package core

import (
	"fmt"
	"sort"
	"strings"

	"github.com/Comcast/ocdrules/catalog"
	"github.com/Comcast/ocdrules/expr"
	"github.com/Comcast/ocdrules/util"
)

// pass is one evaluation of relations against a State.  It is the
// expr.Env and the expr.Assigner of every relation it runs.
type pass struct {
	e  *Engine
	a  *catalog.Article
	st *State

	// helpers holds the relation-only properties.
	helpers map[string]expr.Value

	// vars holds relation variables like $VARCOND.
	vars map[string]expr.Value

	// varconds collects the variant conditions assigned to the
	// catalog's variant condition variable, upper-cased, first
	// derivation first.
	varconds []string

	// restricted limits assignments to relation variables and
	// relation-only properties.
	restricted bool

	// bind maps the object variables of the running constraint to
	// their classes.
	bind map[string]string

	// subst temporarily replaces the value of one property while
	// candidates are tested.
	subst     *catalog.Property
	substWith expr.Value

	changes    int
	violations []string
	traces     *Traces
}

func (e *Engine) newPass(a *catalog.Article, st *State, ts *Traces) *pass {
	p := &pass{
		e:       e,
		a:       a,
		st:      st,
		helpers: make(map[string]expr.Value, 4),
		vars:    make(map[string]expr.Value, 4),
		traces:  ts,
	}
	for _, prop := range a.Properties() {
		if prop.Scope == catalog.RelationOnly {
			if v := p.seed(prop); !v.IsUndefined() {
				p.helpers[prop.Name] = v
			}
		}
	}
	return p
}

func (p *pass) trace(format string, args ...interface{}) {
	if p.traces != nil && p.e.control().Trace {
		p.traces.Add(fmt.Sprintf(format, args...))
	}
}

func (p *pass) hasClass(name string) bool {
	for _, c := range p.a.Classes {
		if c == name {
			return true
		}
	}
	return false
}

// prop resolves a local reference to one of the article's
// properties.
func (p *pass) prop(r *expr.Ref) *catalog.Property {
	return propOf(p.a, r, p.bind)
}

func propOf(a *catalog.Article, r *expr.Ref, bind map[string]string) *catalog.Property {
	prop, have := a.Property(r.Name)
	if !have {
		return nil
	}
	class := r.Qualifier
	if r.IsObjectVar() {
		if class = bind[r.Qualifier]; class == "" {
			return nil
		}
	}
	if class != "" && class != prop.Class {
		return nil
	}
	return prop
}

// Lookup implements expr.Env.
func (p *pass) Lookup(r *expr.Ref) expr.Value {
	switch r.Scope {
	case expr.ScopeParent:
		return p.e.foreign(p.st.Parent, r)
	case expr.ScopeRoot:
		if p.st.Root != nil {
			return p.e.foreign(p.st.Root, r)
		}
	}
	prop := p.prop(r)
	if prop == nil {
		return expr.Undef
	}
	if p.subst == prop {
		return p.substWith
	}
	if p.st.Invalid[prop.Name] {
		return expr.Undef
	}
	if prop.Scope == catalog.RelationOnly {
		return p.helpers[prop.Name]
	}
	return p.st.Values[prop.Name]
}

// foreign reads a property of an enclosing configuration.
func (e *Engine) foreign(st *State, r *expr.Ref) expr.Value {
	if st == nil {
		return expr.Undef
	}
	a, err := e.Catalog.Article(st.Article)
	if err != nil {
		return expr.Undef
	}
	prop := propOf(a, r, nil)
	if prop == nil || prop.Scope == catalog.RelationOnly {
		return expr.Undef
	}
	return st.Value(prop.Name)
}

// Variable implements expr.Env.
func (p *pass) Variable(name string) expr.Value {
	return p.vars[name]
}

// Table implements expr.Env.
func (p *pass) Table(name string) (*expr.Table, bool) {
	return p.e.Catalog.Table(name)
}

// Assign implements expr.Assigner.
func (p *pass) Assign(target expr.Node, v expr.Value) error {
	switch t := target.(type) {
	case *expr.Var:
		p.setVar(t.Name, v)
		return nil
	case *expr.Ref:
		if t.Scope == expr.ScopeParent || (t.Scope == expr.ScopeRoot && p.st.Root != nil) {
			return fmt.Errorf("%w: %s", ErrForeignAssignment, t)
		}
		prop := p.prop(t)
		if prop == nil {
			return fmt.Errorf("%w: %s", ErrUnknownTarget, t)
		}
		if p.restricted && prop.Scope != catalog.RelationOnly {
			return fmt.Errorf("%w: %s", ErrRestrictedAssignment, t)
		}
		return p.set(prop, v)
	}
	return fmt.Errorf("%w: %s", ErrUnknownTarget, target)
}

func (p *pass) setVar(name string, v expr.Value) {
	p.vars[name] = v
	if name != p.e.Catalog.VarCondVar() {
		return
	}
	for _, x := range v.Elems() {
		vc := strings.ToUpper(strings.TrimSpace(x.String()))
		if vc == "" {
			continue
		}
		dup := false
		for _, have := range p.varconds {
			if have == vc {
				dup = true
				break
			}
		}
		if !dup {
			p.varconds = append(p.varconds, vc)
		}
	}
}

// set assigns a property after rounding it to the property's
// precision.  Restrictable properties are narrowed instead.
func (p *pass) set(prop *catalog.Property, v expr.Value) error {
	v = canonical(prop, prop.Round(v))
	if !prop.HasType(v) {
		return fmt.Errorf("%w: %s = %s (%s)", ErrBadAssignment, prop.Key(), v.Literal(), prop.Type)
	}
	if v.Kind == expr.KindSet && !prop.MultiValued && len(v.Set) > 1 {
		return fmt.Errorf("%w: %s is not multi-valued", ErrBadAssignment, prop.Key())
	}
	if !prop.MultiValued && v.Kind == expr.KindSet {
		v = v.Set[0]
	}

	switch {
	case prop.Scope == catalog.RelationOnly:
		if !p.helpers[prop.Name].Equal(v) {
			p.helpers[prop.Name] = v
			p.changes++
		}
	case prop.Restrictable:
		p.narrow(prop, v.Elems())
	default:
		if !p.st.Values[prop.Name].Equal(v) {
			p.trace("set %s = %s", prop.Key(), v.Literal())
			p.st.Values[prop.Name] = v
			p.changes++
		}
	}
	return nil
}

func (p *pass) unset(prop *catalog.Property) {
	if _, have := p.st.Values[prop.Name]; have {
		p.trace("unset %s", prop.Key())
		delete(p.st.Values, prop.Name)
		p.changes++
	}
}

// binding is a relation together with the property it is bound to,
// if any.
type binding struct {
	r    *catalog.Relation
	prop *catalog.Property
}

// gather collects the relations of the given kinds and usage in
// dispatch order: the article, its classes, the evaluated properties
// and the current values of those properties.  Relations are then
// sorted by position; equal positions keep the gathering order.
func (p *pass) gather(u catalog.Usage, kinds ...catalog.Kind) []binding {
	c := p.e.Catalog
	var acc []binding
	add := func(o *catalog.RelationObject, prop *catalog.Property) {
		for _, k := range kinds {
			for _, r := range o.Select(k, u) {
				acc = append(acc, binding{r: r, prop: prop})
			}
		}
	}

	add(c.RelationObject(p.a.Relation), nil)
	for _, name := range p.a.Classes {
		if cl, have := c.Class(name); have {
			add(c.RelationObject(cl.Relation), nil)
		}
	}
	var evaluated []*catalog.Property
	for _, prop := range p.a.Properties() {
		if !p.Lookup(&expr.Ref{Name: prop.Name}).IsUndefined() {
			evaluated = append(evaluated, prop)
			add(c.RelationObject(prop.Relation), prop)
		}
	}
	for _, prop := range evaluated {
		for _, x := range p.Lookup(&expr.Ref{Name: prop.Name}).Elems() {
			if row := prop.Row(x); row != nil {
				add(c.RelationObject(row.Relation), prop)
			}
		}
	}

	sort.SliceStable(acc, func(i, j int) bool {
		return acc[i].r.Position < acc[j].r.Position
	})
	return acc
}

// run executes the bound relations in order.  A relation that fails
// is skipped; the others still run.
func (p *pass) run(bs []binding) {
	for _, b := range bs {
		if b.prop != nil && p.st.Invalid[b.prop.Name] {
			continue
		}
		var err error
		switch b.r.Kind {
		case catalog.Constraint:
			err = p.constrain(b.r)
		default:
			err = expr.Exec(p, p, b.r.Program)
		}
		outcome := "ok"
		if err != nil {
			outcome = "error"
			util.Logf("article %s: relation %s skipped: %s", p.a.ID, describe(b.r), err)
			p.trace("skipped %s: %s", describe(b.r), err)
		}
		p.e.Metrics.relation(b.r.Kind, outcome)
	}
}

func describe(r *catalog.Relation) string {
	if r.Name != "" {
		return string(r.Kind) + " " + r.Name
	}
	return string(r.Kind) + " " + strings.TrimSpace(r.Source)
}

// holds reports whether every precondition and selection condition
// of the relation object is true.  A condition that cannot be
// evaluated does not hold.
func (p *pass) holds(o *catalog.RelationObject) bool {
	for _, k := range []catalog.Kind{catalog.Precondition, catalog.SelectionCondition} {
		for _, r := range o.Select(k, catalog.Configuration) {
			b, err := expr.Test(p, r.Cond)
			if err != nil {
				util.Logf("article %s: %s: %s", p.a.ID, describe(r), err)
				p.e.Metrics.relation(r.Kind, "error")
				return false
			}
			if !b.IsTrue() {
				return false
			}
		}
	}
	return true
}

// legal reports whether a value row may be chosen now.
func (p *pass) legal(row *catalog.PropertyValue) bool {
	if !row.ValidAt(p.e.control().Date) {
		return false
	}
	return p.holds(p.e.Catalog.RelationObject(row.Relation))
}

// validate recomputes which properties are valid.  A class whose
// preconditions fail makes all of its properties invalid without
// looking at their own preconditions.  It then drops current values
// whose rows are no longer legal.
func (p *pass) validate() {
	c := p.e.Catalog
	invalid := make(map[string]bool)
	for _, name := range p.a.Classes {
		cl, have := c.Class(name)
		if !have {
			continue
		}
		classOK := p.holds(c.RelationObject(cl.Relation))
		for _, prop := range cl.Properties {
			if !classOK || !p.holds(c.RelationObject(prop.Relation)) {
				invalid[prop.Name] = true
			}
		}
	}
	if !sameSet(invalid, p.st.Invalid) {
		p.trace("invalid properties: %v", keys(invalid))
		p.changes++
	}
	if len(invalid) == 0 {
		invalid = nil
	}
	p.st.Invalid = invalid

	for _, prop := range p.a.Properties() {
		if !prop.IsConfigurable() || prop.Restrictable || invalid[prop.Name] {
			continue
		}
		v, have := p.st.Values[prop.Name]
		if !have {
			continue
		}
		keep := make([]expr.Value, 0, 1)
		for _, x := range v.Elems() {
			if row := prop.Row(x); row == nil || p.legal(row) {
				keep = append(keep, x)
			}
		}
		if len(keep) == len(v.Elems()) {
			continue
		}
		p.trace("%s = %s no longer allowed", prop.Key(), v.Literal())
		switch {
		case 0 < len(keep):
			p.st.Values[prop.Name] = canonical(prop, expr.SetOf(keep...))
			p.changes++
		case prop.Obligatory:
			if first := p.firstLegal(prop); !first.IsUndefined() {
				p.st.Values[prop.Name] = first
				p.changes++
			} else {
				p.unset(prop)
			}
		default:
			p.unset(prop)
		}
	}
}

func sameSet(a, b map[string]bool) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if !b[k] {
			return false
		}
	}
	return true
}

func keys(m map[string]bool) []string {
	acc := make([]string, 0, len(m))
	for k := range m {
		acc = append(acc, k)
	}
	sort.Strings(acc)
	return acc
}

// firstLegal is the first legal row's value (its lowest value for an
// interval).
func (p *pass) firstLegal(prop *catalog.Property) expr.Value {
	for _, row := range prop.Values {
		if p.legal(row) {
			if v := row.Lowest(); !v.IsUndefined() {
				return v
			}
		}
	}
	return expr.Undef
}

// seed is the initial value of a property: the legal default row,
// else the article's override, else the first legal row of an
// obligatory property, else the zero value of a property users
// cannot set.
func (p *pass) seed(prop *catalog.Property) expr.Value {
	if d := prop.Default(); d != nil && p.legal(d) {
		if v := d.Lowest(); !v.IsUndefined() {
			return canonical(prop, v)
		}
	}
	if v, have := p.a.Override(prop.Name); have {
		return canonical(prop, v)
	}
	if prop.Obligatory {
		if v := p.firstLegal(prop); !v.IsUndefined() {
			return canonical(prop, v)
		}
	}
	if !prop.IsConfigurable() {
		return prop.Zero()
	}
	return expr.Undef
}
