package expr

import (
	"bytes"
	"strings"

	"github.com/Comcast/ocdrules/match"

	"golang.org/x/text/encoding/charmap"
)

// Env supplies property values, relation variables and value
// combination tables to the evaluator.
type Env interface {
	// Lookup returns the current value of the referenced
	// property, or Undef.
	Lookup(r *Ref) Value

	// Variable returns the current value of a relation variable,
	// or Undef.
	Variable(name string) Value

	// Table finds a value combination table.
	Table(name string) (*Table, bool)
}

// TableRow is one logical row of a value combination table: a set of
// allowed values per (upper-case) column.
type TableRow map[string][]Value

// Table is a value combination table.
type Table struct {
	Name    string
	Columns []string
	Rows    []TableRow
}

// Matches reports whether the row admits v in the column.  A row
// without the column does not constrain it.
func (row TableRow) Matches(column string, v Value) bool {
	allowed, have := row[strings.ToUpper(column)]
	if !have {
		return true
	}
	for _, x := range v.Elems() {
		found := false
		for _, a := range allowed {
			if a.Equal(x) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// Assigner receives the assignments made by a Program.
type Assigner interface {
	Assign(target Node, v Value) error
}

// Exec runs the statements of p in order.  A statement whose guard
// is not true, or whose right-hand side is Undefined, does nothing.
// The first error stops the program.
func Exec(env Env, a Assigner, p *Program) error {
	for _, s := range p.Stmts {
		if s.Cond != nil {
			b, err := Test(env, s.Cond)
			if err != nil {
				return err
			}
			if !b.IsTrue() {
				continue
			}
		}
		v, err := Eval(env, s.X)
		if err != nil {
			return err
		}
		if v.IsUndefined() {
			continue
		}
		if err := a.Assign(s.Target, v); err != nil {
			return err
		}
	}
	return nil
}

// Test evaluates a condition.
func Test(env Env, n Node) (Bool3, error) {
	v, err := Eval(env, n)
	if err != nil {
		return Undefined, err
	}
	switch v.Kind {
	case KindBool:
		return v.B, nil
	case KindUndefined:
		return Undefined, nil
	}
	return Undefined, evalErr(n, "not a condition")
}

// Eval evaluates an expression.
func Eval(env Env, n Node) (Value, error) {
	switch vv := n.(type) {
	case *Literal:
		return vv.Value, nil
	case *Ref:
		return env.Lookup(vv), nil
	case *Var:
		return env.Variable(vv.Name), nil
	case *Unary:
		return evalUnary(env, vv)
	case *Binary:
		return evalBinary(env, vv)
	case *In:
		b, err := evalIn(env, vv)
		return Bool(b), err
	case *Specified:
		return Bool(Of(!env.Lookup(vv.Ref).IsUndefined())), nil
	case *Call:
		return evalCall(env, vv)
	case *TableCall:
		b, err := evalTable(env, vv)
		return Bool(b), err
	case nil:
		return Undef, evalErr(nil, "nil expression")
	}
	return Undef, evalErr(n, "unknown node")
}

func evalUnary(env Env, n *Unary) (Value, error) {
	if n.Op == "not" {
		b, err := Test(env, n.X)
		return Bool(b.Not()), err
	}
	x, err := Eval(env, n.X)
	if err != nil || x.IsUndefined() {
		return Undef, err
	}
	if x.Kind != KindNumber {
		return Undef, evalErr(n, "negation of a "+x.Kind.String())
	}
	return Num(-x.Num), nil
}

func evalBinary(env Env, n *Binary) (Value, error) {
	switch n.Op {
	case "and", "or":
		l, err := Test(env, n.L)
		if err != nil {
			return Undef, err
		}
		if (n.Op == "and" && l == False) || (n.Op == "or" && l == True) {
			return Bool(l), nil
		}
		r, err := Test(env, n.R)
		if err != nil {
			return Undef, err
		}
		if n.Op == "and" {
			return Bool(l.And(r)), nil
		}
		return Bool(l.Or(r)), nil
	}

	l, err := Eval(env, n.L)
	if err != nil {
		return Undef, err
	}
	r, err := Eval(env, n.R)
	if err != nil {
		return Undef, err
	}
	if l.IsUndefined() || r.IsUndefined() {
		return Undef, nil
	}

	switch n.Op {
	case "=", "<>":
		eq, err := anyEqual(n, l, r)
		if err != nil {
			return Undef, err
		}
		if n.Op == "<>" {
			eq = !eq
		}
		return Bool(Of(eq)), nil
	case "<", "<=", ">", ">=":
		c, err := Compare(l, r)
		if err != nil {
			return Undef, evalErr(n, err.Error())
		}
		switch n.Op {
		case "<":
			return Bool(Of(c < 0)), nil
		case "<=":
			return Bool(Of(c <= 0)), nil
		case ">":
			return Bool(Of(c > 0)), nil
		default:
			return Bool(Of(c >= 0)), nil
		}
	case "||":
		if l.Kind == KindSet || r.Kind == KindSet {
			return Undef, evalErr(n, "concatenation of a set")
		}
		return Str(l.String() + r.String()), nil
	}

	if l.Kind != KindNumber || r.Kind != KindNumber {
		return Undef, evalErr(n, "arithmetic on "+l.Kind.String()+" and "+r.Kind.String())
	}
	switch n.Op {
	case "+":
		return Num(l.Num + r.Num), nil
	case "-":
		return Num(l.Num - r.Num), nil
	case "*":
		return Num(l.Num * r.Num), nil
	case "/":
		if r.Num == 0 {
			return Undef, evalErr(n, "division by zero")
		}
		return Num(l.Num / r.Num), nil
	}
	return Undef, evalErr(n, "unknown operator "+n.Op)
}

// anyEqual is true if some element of l equals some element of r.
// A single value is a one-element set.
func anyEqual(n Node, l, r Value) (bool, error) {
	for _, x := range l.Elems() {
		for _, y := range r.Elems() {
			if x.Kind != y.Kind {
				return false, evalErr(n, "comparison of "+x.Kind.String()+" with "+y.Kind.String())
			}
			if x.Equal(y) {
				return true, nil
			}
		}
	}
	return false, nil
}

// Compare orders two numbers or two strings.  Strings are compared
// ordinally in the catalog character set (ISO-8859-1); characters
// outside that set fall back to their UTF-8 bytes.
func Compare(a, b Value) (int, error) {
	if a.Kind != b.Kind {
		return 0, &EvalError{Msg: "comparison of " + a.Kind.String() + " with " + b.Kind.String()}
	}
	switch a.Kind {
	case KindNumber:
		switch {
		case a.Num < b.Num:
			return -1, nil
		case a.Num > b.Num:
			return 1, nil
		}
		return 0, nil
	case KindString:
		return bytes.Compare(catalogBytes(a.Str), catalogBytes(b.Str)), nil
	}
	return 0, &EvalError{Msg: "cannot order a " + a.Kind.String()}
}

func catalogBytes(s string) []byte {
	enc := charmap.ISO8859_1.NewEncoder()
	bs, err := enc.Bytes([]byte(s))
	if err != nil {
		return []byte(s)
	}
	return bs
}

func evalIn(env Env, n *In) (Bool3, error) {
	x, err := Eval(env, n.X)
	if err != nil || x.IsUndefined() {
		return Undefined, err
	}
	sawUndefined := false
	result := False
ITEMS:
	for _, it := range n.Items {
		lo, err := Eval(env, it.Lo)
		if err != nil {
			return Undefined, err
		}
		if lo.IsUndefined() {
			sawUndefined = true
			continue
		}
		var hi Value
		if it.Hi != nil {
			if hi, err = Eval(env, it.Hi); err != nil {
				return Undefined, err
			}
			if hi.IsUndefined() {
				sawUndefined = true
				continue
			}
		}
		for _, e := range x.Elems() {
			ok, err := inItem(n, e, lo, hi, it)
			if err != nil {
				return Undefined, err
			}
			if ok {
				result = True
				break ITEMS
			}
		}
	}
	if result == False && sawUndefined {
		result = Undefined
	}
	if n.Negate {
		result = result.Not()
	}
	return result, nil
}

func inItem(n Node, x, lo, hi Value, it InItem) (bool, error) {
	if it.Hi != nil {
		c, err := Compare(lo, x)
		if err != nil {
			return false, evalErr(n, err.Error())
		}
		if c > 0 {
			return false, nil
		}
		if c, err = Compare(x, hi); err != nil {
			return false, evalErr(n, err.Error())
		}
		return c <= 0, nil
	}
	if it.Wildcard && x.Kind == KindString {
		return match.Wildcard(lo.Str, x.Str), nil
	}
	return anyEqual(n, x, lo)
}

func evalCall(env Env, n *Call) (Value, error) {
	if n.Name == "if" {
		c, err := Test(env, n.Args[0])
		if err != nil {
			return Undef, err
		}
		switch c {
		case True:
			return Eval(env, n.Args[1])
		case False:
			return Eval(env, n.Args[2])
		}
		return Undef, nil
	}
	f, have := builtins[n.Name]
	if !have {
		return Undef, evalErr(n, "unknown function")
	}
	args := make([]Value, len(n.Args))
	for i, a := range n.Args {
		v, err := Eval(env, a)
		if err != nil {
			return Undef, err
		}
		if v.IsUndefined() {
			return Undef, nil
		}
		args[i] = v
	}
	v, err := f.fn(args)
	if err != nil {
		return Undef, evalErr(n, err.Error())
	}
	return v, nil
}

func evalTable(env Env, n *TableCall) (Bool3, error) {
	t, have := env.Table(n.Table)
	if !have {
		return Undefined, evalErr(n, ErrNoTable.Error())
	}
	args := make([]Value, len(n.Args))
	for i, a := range n.Args {
		v, err := Eval(env, a.X)
		if err != nil {
			return Undefined, err
		}
		if v.IsUndefined() {
			return Undefined, nil
		}
		args[i] = v
	}
ROWS:
	for _, row := range t.Rows {
		for i, a := range n.Args {
			if !row.Matches(a.Column, args[i]) {
				continue ROWS
			}
		}
		return True, nil
	}
	return False, nil
}
