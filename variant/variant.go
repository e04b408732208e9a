// Package variant renders variant codes and final article numbers
// from a settled configuration State.
//
// Three schemes are supported.  A key/value list names every
// configurable property:
//
//	Schrank.Oberflaeche=03;Schrank.Hoehe=5H;Zubehoer=VOID
//
// A value list concatenates the values padded to their field widths:
//
//	035HXX
//
// A user-defined scheme is a comma-separated token list.  A token is
// "Class:Property" (the property's value), "table T(COL)" (the single
// COL value of table T that agrees with the configuration), "@" (the
// next character of the base article number) or a literal.
package variant

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/Comcast/ocdrules/catalog"
	"github.com/Comcast/ocdrules/core"
	"github.com/Comcast/ocdrules/expr"
	"github.com/Comcast/ocdrules/util"

	"golang.org/x/text/encoding/charmap"
)

// Void is the key/value token for an unset optional property.
const Void = "VOID"

var (
	// ErrAmbiguousTableRow occurs when a table token matches rows
	// with different values in the output column.
	ErrAmbiguousTableRow = errors.New("ambiguous table row")

	// ErrNoTableRow occurs when a table token matches no row.
	ErrNoTableRow = errors.New("no matching table row")

	ErrBadToken = errors.New("bad scheme token")
	ErrTooLong  = errors.New("variant code too long")
	ErrBadChar  = errors.New("character not allowed in variant code")
)

// Options are the rendering settings of one scheme.
type Options struct {
	Kind catalog.SchemeKind

	// Visibility 0 renders only valid properties, 1 renders all
	// configurable ones.
	Visibility int

	// InvalidChar fills the field of an invalid property.
	InvalidChar string

	// UnselectedChar fills the field of an unset property.
	UnselectedChar string

	// Trim strips trailing padding.
	Trim bool

	// Separator goes between the base article number and the code.
	Separator string

	// ValueSeparator goes between the fields of a value list.
	ValueSeparator string

	// MultiSeparator joins the values of a multi-valued property,
	// which are wrapped by Before and After.
	MultiSeparator string
	Before, After  string

	Tokens []string
	MaxLen int
}

// DefaultOptions renders a key/value list.
var DefaultOptions = &Options{
	Kind:           catalog.KeyValueList,
	InvalidChar:    "-",
	UnselectedChar: "X",
	Separator:      "-",
	MultiSeparator: ",",
}

// OptionsFor makes Options from a catalog scheme.  Empty settings
// fall back to DefaultOptions.
func OptionsFor(s *catalog.VariantScheme) *Options {
	if s == nil {
		acc := *DefaultOptions
		return &acc
	}
	or := func(x, y string) string {
		if x == "" {
			return y
		}
		return x
	}
	o := &Options{
		Kind:           s.Kind,
		Visibility:     s.Visibility,
		InvalidChar:    or(s.InvalidChar, DefaultOptions.InvalidChar),
		UnselectedChar: or(s.UnselectedChar, DefaultOptions.UnselectedChar),
		Trim:           s.Trim,
		Separator:      s.Separator,
		ValueSeparator: s.ValueSeparator,
		MultiSeparator: or(s.MultiSeparator, DefaultOptions.MultiSeparator),
		Before:         s.Before,
		After:          s.After,
		MaxLen:         s.MaxLen,
	}
	if s.Tokens != "" {
		for _, t := range strings.Split(s.Tokens, ",") {
			o.Tokens = append(o.Tokens, strings.TrimSpace(t))
		}
	}
	return o
}

// Generator renders codes for the articles of one catalog.
type Generator struct {
	Catalog *catalog.Catalog
}

func NewGenerator(c *catalog.Catalog) *Generator {
	return &Generator{Catalog: c}
}

// Code renders the variant code of a State with the named scheme.
// The empty name means the article's own scheme.
func (g *Generator) Code(st *core.State, scheme string) (string, error) {
	a, o, err := g.options(st, scheme)
	if err != nil {
		return "", err
	}
	return g.code(a, st, o)
}

// FinalArticleNumber renders the final article number with the
// article's own scheme.
func (g *Generator) FinalArticleNumber(st *core.State) (string, error) {
	return g.Number(st, "")
}

// Number is the base article number, the scheme's separator and the
// variant code.  User-defined schemes produce the whole number
// themselves.  The result is checked with Validate.
func (g *Generator) Number(st *core.State, scheme string) (string, error) {
	a, o, err := g.options(st, scheme)
	if err != nil {
		return "", err
	}
	code, err := g.code(a, st, o)
	if err != nil {
		return "", err
	}
	acc := code
	if o.Kind != catalog.UserDefined && code != "" {
		acc = a.ID + o.Separator + code
	}
	if code == "" {
		acc = a.ID
	}
	if err := Validate(acc, o.MaxLen); err != nil {
		return "", err
	}
	return acc, nil
}

func (g *Generator) options(st *core.State, scheme string) (*catalog.Article, *Options, error) {
	a, err := g.Catalog.Article(st.Article)
	if err != nil {
		return nil, nil, err
	}
	if scheme == "" {
		scheme = a.Scheme
	}
	if scheme == "" {
		return a, OptionsFor(nil), nil
	}
	s, have := g.Catalog.Scheme(scheme)
	if !have {
		return nil, nil, fmt.Errorf("%w: scheme %q", catalog.ErrUnknownReference, scheme)
	}
	return a, OptionsFor(s), nil
}

func (g *Generator) code(a *catalog.Article, st *core.State, o *Options) (string, error) {
	switch o.Kind {
	case catalog.ValueList:
		return valueList(a, st, o), nil
	case catalog.UserDefined:
		return g.userDefined(a, st, o)
	default:
		return keyValueList(a, st, o), nil
	}
}

func configurable(a *catalog.Article) []*catalog.Property {
	acc := make([]*catalog.Property, 0, len(a.Properties()))
	for _, p := range a.Properties() {
		if p.IsConfigurable() {
			acc = append(acc, p)
		}
	}
	return acc
}

func keyValueList(a *catalog.Article, st *core.State, o *Options) string {
	var acc []string
	for _, p := range configurable(a) {
		if !st.IsValid(p.Name) {
			continue
		}
		v := st.Value(p.Name)
		if v.IsUndefined() {
			acc = append(acc, p.Name+"="+Void)
			continue
		}
		acc = append(acc, p.Key()+"="+format(p, v, o))
	}
	return strings.Join(acc, ";")
}

func valueList(a *catalog.Article, st *core.State, o *Options) string {
	var acc []string
	for _, p := range configurable(a) {
		var field string
		switch {
		case !st.IsValid(p.Name):
			if o.Visibility == 0 {
				continue
			}
			field = fill(o.InvalidChar, p.Digits)
		case st.Value(p.Name).IsUndefined():
			field = fill(o.UnselectedChar, p.Digits)
		case p.MultiValued:
			field = format(p, st.Value(p.Name), o)
		default:
			field = pad(format(p, st.Value(p.Name), o), p.Digits)
		}
		acc = append(acc, field)
	}
	code := strings.Join(acc, o.ValueSeparator)
	if o.Trim {
		code = strings.TrimRight(code, " ")
	}
	return code
}

func (g *Generator) userDefined(a *catalog.Article, st *core.State, o *Options) (string, error) {
	var (
		b    strings.Builder
		base = a.ID
	)
	for _, tok := range o.Tokens {
		switch {
		case tok == "@":
			if base == "" {
				continue
			}
			r, n := utf8.DecodeRuneInString(base)
			b.WriteRune(r)
			base = base[n:]
		case strings.HasPrefix(strings.ToLower(tok), "table "):
			s, err := g.tableToken(a, st, tok)
			if err != nil {
				return "", err
			}
			b.WriteString(s)
		case strings.Contains(tok, ":"):
			s, err := propertyToken(a, st, tok, o)
			if err != nil {
				return "", err
			}
			b.WriteString(s)
		case tok == "":
			return "", fmt.Errorf("%w: empty", ErrBadToken)
		default:
			b.WriteString(tok)
		}
	}
	return b.String(), nil
}

func propertyToken(a *catalog.Article, st *core.State, tok string, o *Options) (string, error) {
	parts := strings.SplitN(tok, ":", 2)
	p, have := a.Property(parts[1])
	if !have || p.Class != parts[0] {
		return "", &catalog.UnknownProperty{Article: a.ID, Name: tok}
	}
	switch {
	case !st.IsValid(p.Name):
		return fill(o.InvalidChar, p.Digits), nil
	case st.Value(p.Name).IsUndefined():
		return fill(o.UnselectedChar, p.Digits), nil
	}
	return format(p, st.Value(p.Name), o), nil
}

// tableToken resolves "table T(COL)".  Every other column of T whose
// name is one of the article's properties is bound to that
// property's value.
func (g *Generator) tableToken(a *catalog.Article, st *core.State, tok string) (string, error) {
	call := strings.TrimSpace(tok[len("table "):])
	lp, rp := strings.Index(call, "("), strings.LastIndex(call, ")")
	if lp <= 0 || rp < lp {
		return "", fmt.Errorf("%w: %q", ErrBadToken, tok)
	}
	name, col := strings.TrimSpace(call[:lp]), strings.ToUpper(strings.TrimSpace(call[lp+1:rp]))
	t, have := g.Catalog.Table(name)
	if !have {
		return "", fmt.Errorf("%w: %s", expr.ErrNoTable, name)
	}

	bound := make(map[string]expr.Value, len(t.Columns))
	for _, c := range t.Columns {
		if c == col {
			continue
		}
		for _, p := range a.Properties() {
			if strings.EqualFold(p.Name, c) {
				bound[c] = st.Value(p.Name)
			}
		}
	}

	var found []expr.Value
ROWS:
	for _, row := range t.Rows {
		for c, v := range bound {
			if v.IsUndefined() || !row.Matches(c, v) {
				continue ROWS
			}
		}
		for _, x := range row[col] {
			dup := false
			for _, y := range found {
				if x.Equal(y) {
					dup = true
				}
			}
			if !dup {
				found = append(found, x)
			}
		}
	}
	switch len(found) {
	case 0:
		return "", fmt.Errorf("%w: %s", ErrNoTableRow, tok)
	case 1:
		return found[0].String(), nil
	}
	util.Logf("article %s: %s matches %d values", a.ID, tok, len(found))
	return "", fmt.Errorf("%w: %s gives %s", ErrAmbiguousTableRow, tok, expr.SetOf(found...).Literal())
}

// format renders a value.  Numbers use the property's decimals.
// Multi-valued properties list their values in value-table order.
func format(p *catalog.Property, v expr.Value, o *Options) string {
	if p.MultiValued {
		xs := v.Elems()
		ss := make([]string, len(xs))
		for i, x := range xs {
			ss[i] = formatOne(p, x)
		}
		return o.Before + strings.Join(ss, o.MultiSeparator) + o.After
	}
	return formatOne(p, v)
}

func formatOne(p *catalog.Property, v expr.Value) string {
	if v.Kind == expr.KindNumber && 0 < p.Decimals {
		return strconv.FormatFloat(v.Num, 'f', p.Decimals, 64)
	}
	return v.String()
}

func fill(c string, width int) string {
	if width <= 0 {
		width = 1
	}
	return strings.Repeat(c, width)
}

func pad(s string, width int) string {
	if n := utf8.RuneCountInString(s); n < width {
		return s + strings.Repeat(" ", width-n)
	}
	return s
}

// Validate checks that a code fits maxLen characters (when maxLen is
// positive) and that every character is printable in the catalog
// character set (ISO-8859-1).
func Validate(code string, maxLen int) error {
	if 0 < maxLen && maxLen < utf8.RuneCountInString(code) {
		return fmt.Errorf("%w: %q longer than %d", ErrTooLong, code, maxLen)
	}
	enc := charmap.ISO8859_1
	for _, r := range code {
		if _, ok := enc.EncodeRune(r); !ok || r < ' ' || r == 0x7f {
			return fmt.Errorf("%w: %q in %q", ErrBadChar, r, code)
		}
	}
	return nil
}
