package core

import (
	"fmt"
	"strings"

	"github.com/Comcast/ocdrules/catalog"
	"github.com/Comcast/ocdrules/expr"
)

// constrain applies one constraint.
//
// The constraint applies only when the article has every class its
// objects name and its condition is true.  Restrictions whose guard
// is not true are ignored.  Without an inferences clause, every other
// restriction must be true.  With one, restrictions first narrow or
// assign what they can, and only restrictions that are then false
// are violations.
func (p *pass) constrain(r *catalog.Relation) error {
	c := r.Constraint
	bind := make(map[string]string, len(c.Objects))
	for _, o := range c.Objects {
		if !p.hasClass(o.Class) {
			return nil
		}
		bind[o.Var] = o.Class
	}
	p.bind = bind
	defer func() { p.bind = nil }()

	if c.Condition != nil {
		b, err := expr.Test(p, c.Condition)
		if err != nil {
			return err
		}
		if !b.IsTrue() {
			return nil
		}
	}

	infer := 0 < len(c.Inferences)
	for _, rs := range c.Restrictions {
		if rs.Cond != nil {
			b, err := expr.Test(p, rs.Cond)
			if err != nil {
				return err
			}
			if !b.IsTrue() {
				continue
			}
		}
		if err := p.restrict(c, rs.X, infer); err != nil {
			return err
		}
		b, err := expr.Test(p, rs.X)
		if err != nil {
			return err
		}
		if b == expr.False || (b == expr.Undefined && !infer) {
			p.violate(r, rs.X, b)
		}
	}
	return nil
}

func (p *pass) violate(r *catalog.Relation, x expr.Node, b expr.Bool3) {
	what := r.Name
	if what == "" {
		what = "constraint"
	}
	msg := fmt.Sprintf("%s: %s is %s", what, x, b)
	p.trace("violation %s", msg)
	p.violations = append(p.violations, msg)
}

// restrict narrows candidates or assigns values according to the
// shape of the restriction.
func (p *pass) restrict(c *expr.Constraint, x expr.Node, infer bool) error {
	switch n := x.(type) {
	case *expr.In:
		if n.Negate {
			return nil
		}
		if ref, is := n.X.(*expr.Ref); is {
			if prop := p.local(ref); prop != nil && prop.Restrictable && p.st.Values[prop.Name].IsUndefined() {
				return p.narrowIn(prop, n)
			}
		}
	case *expr.Binary:
		if infer && n.Op == "=" {
			return p.infer(c, n)
		}
	case *expr.TableCall:
		if infer {
			return p.narrowTable(c, n)
		}
	}
	return nil
}

// local resolves a reference to a property of this configuration.
func (p *pass) local(r *expr.Ref) *catalog.Property {
	if r.Scope == expr.ScopeParent || (r.Scope == expr.ScopeRoot && p.st.Root != nil) {
		return nil
	}
	return p.prop(r)
}

// infer handles "A = x".  A side that is listed in the inferences
// wins; otherwise a non-restrictable property side is assigned.
func (p *pass) infer(c *expr.Constraint, n *expr.Binary) error {
	type side struct {
		ref   *expr.Ref
		other expr.Node
	}
	var listed, unlisted []side
	for _, s := range []side{{asRef(n.L), n.R}, {asRef(n.R), n.L}} {
		if s.ref == nil {
			continue
		}
		if c.Infers(s.ref) {
			listed = append(listed, s)
		} else {
			unlisted = append(unlisted, s)
		}
	}
	try := func(s side, restrictableOK bool) (bool, error) {
		prop := p.local(s.ref)
		if prop == nil || (prop.Restrictable && !restrictableOK) {
			return false, nil
		}
		v, err := expr.Eval(p, s.other)
		if err != nil || v.IsUndefined() {
			return false, err
		}
		if prop.Restrictable {
			p.narrow(prop, prop.Round(v).Elems())
			return true, nil
		}
		return true, p.set(prop, v)
	}
	for _, s := range listed {
		if done, err := try(s, true); done || err != nil {
			return err
		}
	}
	for _, s := range unlisted {
		if done, err := try(s, false); done || err != nil {
			return err
		}
	}
	return nil
}

func asRef(n expr.Node) *expr.Ref {
	r, _ := n.(*expr.Ref)
	return r
}

// narrowIn keeps the candidates that the IN list admits.
func (p *pass) narrowIn(prop *catalog.Property, n *expr.In) error {
	cur, bounded := p.domain(prop)
	if bounded {
		keep := make([]expr.Value, 0, len(cur))
		for _, x := range cur {
			b, err := p.with(prop, x, n)
			if err != nil {
				return err
			}
			if b.IsTrue() {
				keep = append(keep, x)
			}
		}
		p.narrow(prop, keep)
		return nil
	}
	// Unbounded candidates can only be narrowed to plain values.
	var vals []expr.Value
	for _, it := range n.Items {
		if it.Hi != nil || it.Wildcard {
			return nil
		}
		v, err := expr.Eval(p, it.Lo)
		if err != nil || v.IsUndefined() {
			return err
		}
		vals = append(vals, prop.Round(v).Elems()...)
	}
	p.narrow(prop, vals)
	return nil
}

// with tests x as if prop had the value v.
func (p *pass) with(prop *catalog.Property, v expr.Value, x expr.Node) (expr.Bool3, error) {
	p.subst, p.substWith = prop, v
	defer func() { p.subst, p.substWith = nil, expr.Undef }()
	return expr.Test(p, x)
}

// narrowTable narrows the unbound restrictable arguments of a table
// call.  Each one keeps the values of the rows that agree with the
// bound arguments and with every other unbound argument, which agrees
// through its pick or else its current candidates.  An argument that
// cannot be inferred leaves the call undecided.
func (p *pass) narrowTable(c *expr.Constraint, n *expr.TableCall) error {
	t, have := p.Table(n.Table)
	if !have {
		return fmt.Errorf("%w: %s", expr.ErrNoTable, n.Table)
	}

	type target struct {
		column    string
		prop      *catalog.Property
		filter    []expr.Value
		filtered  bool
		union     []expr.Value
		survivors int
		open      bool
	}
	var (
		targets []*target
		cols    []string
		bound   []expr.Value
	)
	for _, a := range n.Args {
		var prop *catalog.Property
		if ref := asRef(a.X); ref != nil && c.Infers(ref) {
			if prop = p.local(ref); prop != nil && !prop.Restrictable {
				prop = nil
			}
		}
		// A picked restrictable property is still narrowed so that
		// its candidates stay current.
		if prop != nil && p.st.Picked[prop.Name] {
			targets = append(targets, &target{column: a.Column, prop: prop, filter: p.st.Values[prop.Name].Elems(), filtered: true})
			continue
		}
		if prop != nil && p.st.Values[prop.Name].IsUndefined() {
			cur, bounded := p.domain(prop)
			targets = append(targets, &target{column: a.Column, prop: prop, filter: cur, filtered: bounded})
			continue
		}
		v, err := expr.Eval(p, a.X)
		if err != nil {
			return err
		}
		if v.IsUndefined() {
			return nil
		}
		cols = append(cols, a.Column)
		bound = append(bound, v)
	}
	if len(targets) == 0 {
		return nil
	}

	agrees := make([]bool, len(targets))
ROWS:
	for _, row := range t.Rows {
		for i, col := range cols {
			if !row.Matches(col, bound[i]) {
				continue ROWS
			}
		}
		disagree := 0
		for i, tg := range targets {
			agrees[i] = true
			if tg.filtered {
				if vs, has := cell(row, tg.column); has && len(intersect(vs, tg.filter)) == 0 {
					agrees[i] = false
					disagree++
				}
			}
		}
		for i, tg := range targets {
			if disagree > 1 || (disagree == 1 && agrees[i]) {
				continue
			}
			tg.survivors++
			vs, has := cell(row, tg.column)
			if !has {
				tg.open = true
				continue
			}
			for _, x := range vs {
				if !contains(tg.union, x) {
					tg.union = append(tg.union, x)
				}
			}
		}
	}

	for _, tg := range targets {
		if tg.survivors == 0 {
			p.narrow(tg.prop, nil)
			continue
		}
		if !tg.open {
			p.narrow(tg.prop, tg.union)
		}
	}
	return nil
}

func cell(row expr.TableRow, column string) ([]expr.Value, bool) {
	vs, has := row[strings.ToUpper(column)]
	return vs, has
}

// domain returns the current candidates of a restrictable property.
// The second result is false when the candidates are not an
// enumerable set (interval rows or free values).
func (p *pass) domain(prop *catalog.Property) ([]expr.Value, bool) {
	if vs, have := p.st.Domains[prop.Name]; have {
		return vs, true
	}
	return p.e.full(prop)
}

// full is the starting candidate set of a restrictable property: its
// discrete value-table values.
func (e *Engine) full(prop *catalog.Property) ([]expr.Value, bool) {
	if prop.FreeValues || len(prop.Values) == 0 {
		return nil, false
	}
	acc := make([]expr.Value, 0, len(prop.Values))
	for _, row := range prop.Values {
		if row.IsInterval() {
			return nil, false
		}
		if row.ValidAt(e.control().Date) {
			acc = append(acc, row.V())
		}
	}
	return acc, true
}

// narrow intersects the candidates of a restrictable property with
// allowed.  Candidates never grow.  A property left with exactly one
// candidate is evaluated.
func (p *pass) narrow(prop *catalog.Property, allowed []expr.Value) {
	cur, bounded := p.domain(prop)
	var next []expr.Value
	if bounded {
		next = intersect(cur, allowed)
		if _, have := p.st.Domains[prop.Name]; have && len(next) == len(cur) {
			return
		}
	} else {
		next = make([]expr.Value, 0, len(allowed))
		for _, x := range allowed {
			if (prop.FreeValues || prop.Row(x) != nil) && !contains(next, x) {
				next = append(next, x)
			}
		}
	}
	if p.st.Domains == nil {
		p.st.Domains = make(map[string][]expr.Value, 4)
	}
	p.trace("narrow %s to %v", prop.Key(), next)
	p.st.Domains[prop.Name] = next
	p.changes++
	if !p.st.Picked[prop.Name] {
		if len(next) == 1 {
			p.st.Values[prop.Name] = next[0]
		} else {
			delete(p.st.Values, prop.Name)
		}
	}
}
