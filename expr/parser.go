package expr

import (
	"strings"

	"github.com/Comcast/ocdrules/match"
)

var keywords = map[string]bool{
	"and":       true,
	"or":        true,
	"not":       true,
	"in":        true,
	"if":        true,
	"specified": true,
	"table":     true,
	"is_a":      true,
}

type parser struct {
	src  string
	toks []token
	i    int
	d    *Dialect
}

func newParser(src string, d *Dialect) (*parser, error) {
	if d == nil {
		d = Full
	}
	toks, err := lex(src)
	if err != nil {
		return nil, err
	}
	return &parser{src: src, toks: toks, d: d}, nil
}

func (p *parser) peek() token {
	return p.toks[p.i]
}

func (p *parser) peekAt(n int) token {
	if p.i+n < len(p.toks) {
		return p.toks[p.i+n]
	}
	return p.toks[len(p.toks)-1]
}

func (p *parser) next() token {
	t := p.toks[p.i]
	if t.kind != tEOF {
		p.i++
	}
	return t
}

func (p *parser) errorf(t token, msg string) error {
	return &SyntaxError{Source: p.src, Offset: t.pos, Msg: msg}
}

func (p *parser) expect(s string) error {
	t := p.next()
	if !t.is(s) {
		return p.errorf(t, "expected "+s)
	}
	return nil
}

func (p *parser) require(c Capability, what string) error {
	if !p.d.Has(c) {
		return &UnsupportedError{Dialect: p.d.Name, What: what}
	}
	return nil
}

func (p *parser) skipSeparators() {
	for p.peek().is(",") || p.peek().is(";") {
		p.next()
	}
}

// ParseExpr parses a single expression such as a precondition.
func ParseExpr(src string, d *Dialect) (Node, error) {
	p, err := newParser(src, d)
	if err != nil {
		return nil, err
	}
	n, err := p.expr()
	if err != nil {
		return nil, err
	}
	p.skipSeparators()
	if t := p.peek(); t.kind != tEOF {
		return nil, p.errorf(t, "unexpected "+t.text)
	}
	return n, nil
}

// ParseProgram parses a sequence of (optionally guarded) assignments.
//
// Statements may be separated by commas, semicolons or nothing at
// all, and a trailing separator is allowed.
func ParseProgram(src string, d *Dialect) (*Program, error) {
	p, err := newParser(src, d)
	if err != nil {
		return nil, err
	}
	prog := &Program{Source: src}
	p.skipSeparators()
	for p.peek().kind != tEOF {
		s, err := p.statement()
		if err != nil {
			return nil, err
		}
		prog.Stmts = append(prog.Stmts, s)
		p.skipSeparators()
	}
	return prog, nil
}

func (p *parser) statement() (*Assign, error) {
	var target Node
	t := p.peek()
	switch t.kind {
	case tIdent, tObjVar:
		r, err := p.ref()
		if err != nil {
			return nil, err
		}
		target = r
	case tVar:
		n, err := p.variable()
		if err != nil {
			return nil, err
		}
		target = n
	default:
		return nil, p.errorf(t, "expected assignment target")
	}
	if err := p.expect("="); err != nil {
		return nil, err
	}
	x, err := p.expr()
	if err != nil {
		return nil, err
	}
	s := &Assign{Target: target, X: x}
	if p.peek().is("if") {
		p.next()
		if s.Cond, err = p.expr(); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (p *parser) isSectionHeader() bool {
	t := p.peek()
	if t.kind != tIdent || !p.peekAt(1).is(":") {
		return false
	}
	switch strings.ToLower(t.text) {
	case "objects", "condition", "restrictions", "inferences":
		return true
	}
	return false
}

// ParseConstraint parses a constraint body:
//
//	objects: ?S is_a Schrank
//	condition: ?S.Hoehe = '5H'
//	restrictions: ?S.Breite = 60 if ?S.Tiefe > 40,
//	              table T(HOEHE = ?S.Hoehe, BREITE = ?S.Breite)
//	inferences: ?S.Breite.
//
// Every section is optional except restrictions.
func ParseConstraint(src string, d *Dialect) (*Constraint, error) {
	p, err := newParser(src, d)
	if err != nil {
		return nil, err
	}
	c := &Constraint{Source: src}
	seen := make(map[string]bool, 4)
	for p.peek().kind != tEOF {
		if p.peek().is(".") && p.peekAt(1).kind == tEOF {
			p.next()
			break
		}
		if !p.isSectionHeader() {
			return nil, p.errorf(p.peek(), "expected section header")
		}
		t := p.next()
		p.next() // ':'
		section := strings.ToLower(t.text)
		if seen[section] {
			return nil, p.errorf(t, "duplicate section "+section)
		}
		seen[section] = true
		switch section {
		case "objects":
			err = p.list(func() error {
				v := p.next()
				if v.kind != tObjVar {
					return p.errorf(v, "expected object variable")
				}
				if err := p.expect("is_a"); err != nil {
					return err
				}
				class := p.next()
				if class.kind != tIdent {
					return p.errorf(class, "expected class name")
				}
				c.Objects = append(c.Objects, Object{Var: "?" + v.text, Class: class.text})
				return nil
			})
		case "condition":
			c.Condition, err = p.expr()
			p.skipSeparators()
		case "restrictions":
			err = p.list(func() error {
				x, err := p.expr()
				if err != nil {
					return err
				}
				r := Restriction{X: x}
				if p.peek().is("if") {
					p.next()
					if r.Cond, err = p.expr(); err != nil {
						return err
					}
				}
				c.Restrictions = append(c.Restrictions, r)
				return nil
			})
		case "inferences":
			err = p.list(func() error {
				r, err := p.ref()
				if err != nil {
					return err
				}
				c.Inferences = append(c.Inferences, r)
				return nil
			})
		}
		if err != nil {
			return nil, err
		}
	}
	if !seen["restrictions"] {
		return nil, p.errorf(p.peek(), "constraint has no restrictions")
	}
	return c, nil
}

// list parses comma-separated items until a section header, a final
// '.' or the end.
func (p *parser) list(item func() error) error {
	for {
		if err := item(); err != nil {
			return err
		}
		if !p.peek().is(",") && !p.peek().is(";") {
			return nil
		}
		p.skipSeparators()
		if p.peek().kind == tEOF || p.isSectionHeader() {
			return nil
		}
		if p.peek().is(".") && p.peekAt(1).kind == tEOF {
			return nil
		}
	}
}

func (p *parser) expr() (Node, error) {
	return p.or()
}

func (p *parser) or() (Node, error) {
	l, err := p.and()
	if err != nil {
		return nil, err
	}
	for p.peek().is("or") {
		p.next()
		r, err := p.and()
		if err != nil {
			return nil, err
		}
		l = &Binary{Op: "or", L: l, R: r}
	}
	return l, nil
}

func (p *parser) and() (Node, error) {
	l, err := p.not()
	if err != nil {
		return nil, err
	}
	for p.peek().is("and") {
		p.next()
		r, err := p.not()
		if err != nil {
			return nil, err
		}
		l = &Binary{Op: "and", L: l, R: r}
	}
	return l, nil
}

func (p *parser) not() (Node, error) {
	if p.peek().is("not") {
		p.next()
		x, err := p.not()
		if err != nil {
			return nil, err
		}
		return &Unary{Op: "not", X: x}, nil
	}
	return p.cmp()
}

var comparisons = map[string]bool{"=": true, "<>": true, "<": true, "<=": true, ">": true, ">=": true}

func (p *parser) cmp() (Node, error) {
	l, err := p.add()
	if err != nil {
		return nil, err
	}
	t := p.peek()
	switch {
	case t.kind == tPunct && comparisons[t.text]:
		p.next()
		r, err := p.add()
		if err != nil {
			return nil, err
		}
		return &Binary{Op: t.text, L: l, R: r}, nil
	case t.is("in"):
		p.next()
		return p.inList(l, false)
	case t.is("not") && p.peekAt(1).is("in"):
		p.next()
		p.next()
		return p.inList(l, true)
	}
	return l, nil
}

func (p *parser) inList(x Node, negate bool) (Node, error) {
	if err := p.expect("("); err != nil {
		return nil, err
	}
	n := &In{X: x, Negate: negate}
	for {
		item, err := p.add()
		if err != nil {
			return nil, err
		}
		it := InItem{Lo: item}
		if lit, is := item.(*Literal); is && p.d.Has(CapWildcardIn) {
			it.Wildcard = lit.Value.Kind == KindString && match.DefaultMatcher.IsPattern(lit.Value.Str)
		}
		if b, is := item.(*Binary); is && b.Op == "-" && p.d.Has(CapRangeIn) {
			_, lok := b.L.(*Literal)
			_, rok := b.R.(*Literal)
			if lok && rok {
				it = InItem{Lo: b.L, Hi: b.R}
			}
		}
		n.Items = append(n.Items, it)
		if p.peek().is(",") {
			p.next()
			continue
		}
		if err := p.expect(")"); err != nil {
			return nil, err
		}
		return n, nil
	}
}

func (p *parser) add() (Node, error) {
	l, err := p.mul()
	if err != nil {
		return nil, err
	}
	for {
		t := p.peek()
		if !(t.is("+") || t.is("-") || t.is("||")) {
			return l, nil
		}
		if t.text == "||" {
			if err := p.require(CapConcat, "operator ||"); err != nil {
				return nil, err
			}
		}
		p.next()
		r, err := p.mul()
		if err != nil {
			return nil, err
		}
		l = &Binary{Op: t.text, L: l, R: r}
	}
}

func (p *parser) mul() (Node, error) {
	l, err := p.unary()
	if err != nil {
		return nil, err
	}
	for p.peek().is("*") || p.peek().is("/") {
		op := p.next().text
		r, err := p.unary()
		if err != nil {
			return nil, err
		}
		l = &Binary{Op: op, L: l, R: r}
	}
	return l, nil
}

func (p *parser) unary() (Node, error) {
	if p.peek().is("-") {
		p.next()
		x, err := p.unary()
		if err != nil {
			return nil, err
		}
		if lit, is := x.(*Literal); is && lit.Value.Kind == KindNumber {
			return &Literal{Value: Num(-lit.Value.Num)}, nil
		}
		return &Unary{Op: "-", X: x}, nil
	}
	return p.primary()
}

func (p *parser) primary() (Node, error) {
	t := p.peek()
	switch t.kind {
	case tNum:
		p.next()
		return &Literal{Value: Num(t.num)}, nil
	case tStr:
		p.next()
		return &Literal{Value: Str(t.text)}, nil
	case tVar:
		return p.variable()
	case tObjVar:
		return p.ref()
	case tPunct:
		if t.text == "(" {
			p.next()
			x, err := p.expr()
			if err != nil {
				return nil, err
			}
			if err := p.expect(")"); err != nil {
				return nil, err
			}
			return x, nil
		}
		return nil, p.errorf(t, "unexpected "+t.text)
	case tIdent:
		kw := strings.ToLower(t.text)
		switch kw {
		case "specified":
			p.next()
			paren := p.peek().is("(")
			if paren {
				p.next()
			}
			r, err := p.ref()
			if err != nil {
				return nil, err
			}
			if paren {
				if err := p.expect(")"); err != nil {
					return nil, err
				}
			}
			return &Specified{Ref: r}, nil
		case "table":
			return p.tableCall()
		case "if":
			if p.peekAt(1).is("(") {
				return p.call()
			}
		}
		if keywords[kw] {
			return nil, p.errorf(t, "unexpected keyword "+t.text)
		}
		if p.peekAt(1).is("(") {
			return p.call()
		}
		return p.ref()
	}
	return nil, p.errorf(t, "unexpected end of input")
}

// variable parses $NAME or, with CapObjectRefs, $self.P, $parent.P
// and $root.P.
func (p *parser) variable() (Node, error) {
	t := p.next()
	scope := ScopeLocal
	switch strings.ToLower(t.text) {
	case "self":
		scope = ScopeSelf
	case "parent":
		scope = ScopeParent
	case "root":
		scope = ScopeRoot
	}
	if scope == ScopeLocal || !p.peek().is(".") {
		return &Var{Name: strings.ToUpper(t.text)}, nil
	}
	if err := p.require(CapObjectRefs, "$"+t.text); err != nil {
		return nil, err
	}
	p.next()
	r, err := p.ref()
	if err != nil {
		return nil, err
	}
	r.Scope = scope
	return r, nil
}

func (p *parser) ref() (*Ref, error) {
	t := p.next()
	r := &Ref{}
	switch t.kind {
	case tObjVar:
		r.Qualifier = "?" + t.text
		if err := p.expect("."); err != nil {
			return nil, err
		}
		n := p.next()
		if n.kind != tIdent {
			return nil, p.errorf(n, "expected property name")
		}
		r.Name = n.text
		return r, nil
	case tIdent:
		if keywords[strings.ToLower(t.text)] {
			return nil, p.errorf(t, "unexpected keyword "+t.text)
		}
		r.Name = t.text
		if p.peek().is(".") && p.peekAt(1).kind == tIdent {
			p.next()
			r.Qualifier = r.Name
			r.Name = p.next().text
		}
		return r, nil
	}
	return nil, p.errorf(t, "expected property reference")
}

func (p *parser) call() (Node, error) {
	name := strings.ToLower(p.next().text)
	f, have := builtins[name]
	if !have {
		return nil, p.errorf(p.toks[p.i-1], "unknown function "+name)
	}
	if f.str {
		if err := p.require(CapStringFuncs, "function "+name); err != nil {
			return nil, err
		}
	}
	p.next() // '('
	c := &Call{Name: name}
	if p.peek().is(")") {
		p.next()
	} else {
		for {
			x, err := p.expr()
			if err != nil {
				return nil, err
			}
			c.Args = append(c.Args, x)
			if p.peek().is(",") {
				p.next()
				continue
			}
			if err := p.expect(")"); err != nil {
				return nil, err
			}
			break
		}
	}
	if len(c.Args) < f.min || (f.max >= 0 && len(c.Args) > f.max) {
		return nil, p.errorf(p.toks[p.i-1], "wrong number of arguments to "+name)
	}
	return c, nil
}

func (p *parser) tableCall() (Node, error) {
	if err := p.require(CapTableCall, "table call"); err != nil {
		return nil, err
	}
	p.next()
	name := p.next()
	if name.kind != tIdent {
		return nil, p.errorf(name, "expected table name")
	}
	if err := p.expect("("); err != nil {
		return nil, err
	}
	n := &TableCall{Table: name.text}
	for {
		col := p.next()
		if col.kind != tIdent {
			return nil, p.errorf(col, "expected column name")
		}
		if err := p.expect("="); err != nil {
			return nil, err
		}
		x, err := p.add()
		if err != nil {
			return nil, err
		}
		n.Args = append(n.Args, TableArg{Column: col.text, X: x})
		if p.peek().is(",") {
			p.next()
			continue
		}
		if err := p.expect(")"); err != nil {
			return nil, err
		}
		return n, nil
	}
}
