package catalog

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/Comcast/ocdrules/expr"
	"github.com/Comcast/ocdrules/interpreters"
	"github.com/Comcast/ocdrules/match"
	"github.com/Comcast/ocdrules/util"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
)

// Catalog is the load-time data of one product catalog.
type Catalog struct {
	Name    string `json:"name" yaml:"name" validate:"required"`
	Version string `json:"version,omitempty" yaml:"version,omitempty"`
	Doc     string `json:"doc,omitempty" yaml:"doc,omitempty"`

	// Language names the relation language dialect, such as
	// "OCD_4".  Empty means OCD_4.
	Language string `json:"dialect,omitempty" yaml:"dialect,omitempty"`

	// WildcardIn enables '*' and '?' in IN lists.
	WildcardIn bool `json:"wildcardIn,omitempty" yaml:"wildcardIn,omitempty"`

	// VarCond is the variant condition variable.  Empty means
	// $VARCOND.
	VarCond string `json:"varcond,omitempty" yaml:"varcond,omitempty"`

	// Currency is the catalog's default currency.
	Currency string `json:"currency,omitempty" yaml:"currency,omitempty" validate:"omitempty,currency"`

	Articles   []*Article        `json:"articles" yaml:"articles" validate:"dive"`
	Classes    []*Class          `json:"classes,omitempty" yaml:"classes,omitempty" validate:"dive"`
	Relations  []*RelationObject `json:"relations,omitempty" yaml:"relations,omitempty" validate:"dive"`
	Tables     []*TableDoc       `json:"tables,omitempty" yaml:"tables,omitempty" validate:"dive"`
	Prices     []*PriceRow       `json:"prices,omitempty" yaml:"prices,omitempty" validate:"dive"`
	Rounding   []*RoundingRule   `json:"rounding,omitempty" yaml:"rounding,omitempty" validate:"dive"`
	Packaging  []*PackagingRow   `json:"packaging,omitempty" yaml:"packaging,omitempty" validate:"dive"`
	Taxes      []*ArticleTax     `json:"taxes,omitempty" yaml:"taxes,omitempty" validate:"dive"`
	TaxSchemes []*TaxRate        `json:"taxSchemes,omitempty" yaml:"taxSchemes,omitempty" validate:"dive"`
	Schemes    []*VariantScheme  `json:"schemes,omitempty" yaml:"schemes,omitempty" validate:"dive"`

	dialect   *expr.Dialect
	articles  map[string]*Article
	classes   map[string]*Class
	relations map[string]*RelationObject
	tables    map[string]*expr.Table
	prices    map[string][]*PriceRow
	rounding  map[string][]*RoundingRule
	packaging map[string][]*PackagingRow
	taxes     map[string][]*ArticleTax
	rates     map[string][]*TaxRate
	schemes   map[string]*VariantScheme

	compiled bool
}

// Compiled reports whether Compile has succeeded.
func (c *Catalog) Compiled() bool {
	return c.compiled
}

// Dialect returns the resolved dialect.  Only valid after Compile.
func (c *Catalog) Dialect() *expr.Dialect {
	return c.dialect
}

// VarCondVar is the resolved (upper-case) name of the variant
// condition variable.
func (c *Catalog) VarCondVar() string {
	if c.dialect == nil {
		return expr.DefaultVarCond
	}
	return c.dialect.VarCond
}

// Article finds an article.
func (c *Catalog) Article(id string) (*Article, error) {
	if !c.compiled {
		return nil, &NotCompiled{c}
	}
	a, have := c.articles[id]
	if !have {
		return nil, &UnknownArticle{ID: id}
	}
	return a, nil
}

// articleMatcher matches article numbers, which data pools do not
// agree on the case of.
var articleMatcher = &match.Matcher{Any: '*', One: '?', FoldCase: true}

// FindArticles returns the articles whose number matches a wildcard
// pattern, ignoring case, in catalog order.  A pattern without
// wildcards finds at most one article.
func (c *Catalog) FindArticles(pattern string) []*Article {
	var acc []*Article
	wild := articleMatcher.IsPattern(pattern)
	for _, a := range c.Articles {
		if wild && articleMatcher.Match(pattern, a.ID) || !wild && strings.EqualFold(pattern, a.ID) {
			acc = append(acc, a)
			if !wild {
				break
			}
		}
	}
	return acc
}

// Class finds a property class.
func (c *Catalog) Class(name string) (*Class, bool) {
	cl, have := c.classes[name]
	return cl, have
}

// RelationObject finds a relation object.  The empty id and unknown
// ids give nil, which has no relations.
func (c *Catalog) RelationObject(id string) *RelationObject {
	if id == "" {
		return nil
	}
	return c.relations[id]
}

// Table finds a value combination table by (case-insensitive) name.
func (c *Catalog) Table(name string) (*expr.Table, bool) {
	t, have := c.tables[strings.ToUpper(name)]
	return t, have
}

// PriceRows returns the price rows of an article in catalog order.
func (c *Catalog) PriceRows(article string) []*PriceRow {
	return c.prices[article]
}

// RoundingChain returns the rules with the given id in ascending Nr.
func (c *Catalog) RoundingChain(id string) []*RoundingRule {
	return c.rounding[id]
}

// PackagingRows returns the packaging rows of an article.
func (c *Catalog) PackagingRows(article string) []*PackagingRow {
	return c.packaging[article]
}

// ArticleTaxes returns the base tax categories of an article.
func (c *Catalog) ArticleTaxes(article string) []*ArticleTax {
	return c.taxes[article]
}

// TaxRates returns the tax scheme rows of a country.
func (c *Catalog) TaxRates(country string) []*TaxRate {
	return c.rates[strings.ToUpper(country)]
}

// Scheme finds a variant scheme.
func (c *Catalog) Scheme(name string) (*VariantScheme, bool) {
	s, have := c.schemes[name]
	return s, have
}

// ParseDate accepts "2006-01-02" and "20060102".  The empty string
// is the zero time.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	for _, layout := range []string{"2006-01-02", "20060102"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrBadDate, s)
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("currency", func(fl validator.FieldLevel) bool {
		_, err := currency.ParseISO(fl.Field().String())
		return err == nil
	})
	return v
}

type compiler struct {
	c    *Catalog
	errs CatalogErrors
}

func (cc *compiler) add(where string, err error) {
	util.Logf("catalog %s: %s: %s", cc.c.Name, where, err)
	cc.errs = append(cc.errs, &CompileError{Where: where, Err: err})
}

func (cc *compiler) date(where, s string) time.Time {
	t, err := ParseDate(s)
	if err != nil {
		cc.add(where, err)
	}
	return t
}

func (cc *compiler) relation(where, id string) {
	if id == "" {
		return
	}
	if _, have := cc.c.relations[id]; !have {
		cc.add(where, fmt.Errorf("%w: relation object %q", ErrUnknownReference, id))
	}
}

// Compile parses every relation, validates the rows and builds the
// indexes.  If anything is wrong, Compile returns CatalogErrors
// listing every problem, and the Catalog stays unusable.
//
// The dialects default to interpreters.Standard().  If force is
// false, an already compiled Catalog is left alone.
func (c *Catalog) Compile(dialects interpreters.Map, force bool) error {
	if c.compiled && !force {
		return nil
	}
	c.compiled = false

	if dialects == nil {
		dialects = interpreters.Standard()
	}

	cc := &compiler{c: c}

	d, have := dialects.Resolve(c.Language, c.WildcardIn, c.VarCond)
	if !have {
		cc.add("dialect", fmt.Errorf("%w: %q", ErrUnknownDialect, c.Language))
		return cc.errs
	}
	c.dialect = d

	if err := newValidator().Struct(c); err != nil {
		var ves validator.ValidationErrors
		if errors.As(err, &ves) {
			for _, fe := range ves {
				cc.add(fe.Namespace(), fmt.Errorf("failed %q validation (value %v)", fe.Tag(), fe.Value()))
			}
		} else {
			cc.add("catalog", err)
		}
		return cc.errs
	}

	c.compileRelations(cc)
	c.compileClasses(cc)
	c.compileTables(cc)
	c.compileSchemes(cc)
	c.compileArticles(cc)
	c.compileRounding(cc)
	c.compilePrices(cc)
	c.compileOthers(cc)

	if 0 < len(cc.errs) {
		return cc.errs
	}
	c.compiled = true
	return nil
}

func (c *Catalog) compileRelations(cc *compiler) {
	c.relations = make(map[string]*RelationObject, len(c.Relations))
	for _, o := range c.Relations {
		if _, have := c.relations[o.ID]; have {
			cc.add("relation object "+o.ID, errors.New("duplicate id"))
			continue
		}
		c.relations[o.ID] = o
		for i, r := range o.Relations {
			if err := r.Compile(c.dialect); err != nil {
				where := fmt.Sprintf("relation object %s[%d]", o.ID, i)
				if r.Name != "" {
					where += " " + r.Name
				}
				cc.add(where, err)
			}
		}
		sort.SliceStable(o.Relations, func(i, j int) bool {
			return o.Relations[i].Position < o.Relations[j].Position
		})
	}
}

func (c *Catalog) compileClasses(cc *compiler) {
	c.classes = make(map[string]*Class, len(c.Classes))
	for _, cl := range c.Classes {
		if _, have := c.classes[cl.Name]; have {
			cc.add("class "+cl.Name, errors.New("duplicate class"))
			continue
		}
		c.classes[cl.Name] = cl
		cc.relation("class "+cl.Name, cl.Relation)

		seen := make(map[string]bool, len(cl.Properties))
		for _, p := range cl.Properties {
			p.Class = cl.Name
			where := "property " + p.Key()
			if seen[p.Name] {
				cc.add(where, ErrDuplicateProperty)
			}
			seen[p.Name] = true
			if p.Type == "" {
				p.Type = Char
			}
			if p.Scope == "" {
				p.Scope = Configurable
			}
			cc.relation(where, p.Relation)

			defaults := 0
			for i, v := range p.Values {
				vwhere := fmt.Sprintf("%s value[%d]", where, i)
				v.value = p.Round(v.Value.Value(!p.IsNumeric()))
				v.value2 = p.Round(v.Value2.Value(false))
				if v.value.Kind == expr.KindSet || v.value2.Kind == expr.KindSet {
					cc.add(vwhere, errors.New("value rows hold single values"))
				}
				if v.IsInterval() {
					if !p.IsNumeric() {
						cc.add(vwhere, errors.New("interval on a non-numeric property"))
					}
					if !v.value.IsUndefined() && v.value.Kind != expr.KindNumber ||
						!v.value2.IsUndefined() && v.value2.Kind != expr.KindNumber {
						cc.add(vwhere, errors.New("interval bounds must be numbers"))
					}
				} else if !v.value.IsUndefined() && !p.HasType(v.value) {
					cc.add(vwhere, fmt.Errorf("value %s does not fit type %s", v.value.Literal(), p.Type))
				}
				v.from = cc.date(vwhere, v.ValidFrom)
				v.to = cc.date(vwhere, v.ValidTo)
				cc.relation(vwhere, v.Relation)
				if v.Default {
					defaults++
				}
			}
			if 1 < defaults {
				cc.add(where, ErrDuplicateDefault)
			}
			sort.SliceStable(p.Values, func(i, j int) bool {
				return p.Values[i].Position < p.Values[j].Position
			})
		}
		sort.SliceStable(cl.Properties, func(i, j int) bool {
			return cl.Properties[i].Position < cl.Properties[j].Position
		})
	}
}

func (c *Catalog) compileTables(cc *compiler) {
	c.tables = make(map[string]*expr.Table, len(c.Tables))
	for _, t := range c.Tables {
		ct := t.compile()
		if _, have := c.tables[ct.Name]; have {
			cc.add("table "+t.Name, errors.New("duplicate table"))
			continue
		}
		cols := make(map[string]bool, len(ct.Columns))
		for _, col := range ct.Columns {
			cols[col] = true
		}
		for i, row := range ct.Rows {
			for col := range row {
				if !cols[col] {
					cc.add(fmt.Sprintf("table %s row %d", t.Name, i), fmt.Errorf("%w: column %q", ErrUnknownReference, col))
				}
			}
		}
		c.tables[ct.Name] = ct
	}
}

func (c *Catalog) compileSchemes(cc *compiler) {
	c.schemes = make(map[string]*VariantScheme, len(c.Schemes))
	for _, s := range c.Schemes {
		if _, have := c.schemes[s.Name]; have {
			cc.add("scheme "+s.Name, errors.New("duplicate scheme"))
		}
		c.schemes[s.Name] = s
	}
}

func (c *Catalog) compileArticles(cc *compiler) {
	c.articles = make(map[string]*Article, len(c.Articles))
	for _, a := range c.Articles {
		if _, have := c.articles[a.ID]; have {
			cc.add("article "+a.ID, errors.New("duplicate article"))
			continue
		}
		c.articles[a.ID] = a
	}

	for _, a := range c.Articles {
		where := "article " + a.ID
		if a.Kind == "" {
			a.Kind = ConfigurableArticle
			if len(a.Items) > 0 {
				a.Kind = CompositeArticle
			} else if len(a.Classes) == 0 {
				a.Kind = PlainArticle
			}
		}
		cc.relation(where, a.Relation)
		if a.Scheme != "" {
			if _, have := c.schemes[a.Scheme]; !have {
				cc.add(where, fmt.Errorf("%w: scheme %q", ErrUnknownReference, a.Scheme))
			}
		}

		a.props = a.props[:0]
		names := make(map[string]string, 16)
		for _, name := range a.Classes {
			cl, have := c.classes[name]
			if !have {
				cc.add(where, fmt.Errorf("%w: class %q", ErrUnknownReference, name))
				continue
			}
			for _, p := range cl.Properties {
				if other, have := names[p.Name]; have {
					cc.add(where, fmt.Errorf("%w: %s in %s and %s", ErrDuplicateProperty, p.Name, other, cl.Name))
					continue
				}
				names[p.Name] = cl.Name
				a.props = append(a.props, p)
			}
		}

		a.overrides = make(map[string]expr.Value, len(a.Overrides))
		for name, x := range a.Overrides {
			p, have := a.Property(name)
			if !have {
				cc.add(where, &UnknownProperty{Article: a.ID, Name: name})
				continue
			}
			v := p.Round(x.Value(!p.IsNumeric()))
			if !p.HasType(v) {
				cc.add(where, fmt.Errorf("override %s = %s does not fit type %s", name, v.Literal(), p.Type))
				continue
			}
			a.overrides[name] = v
		}

		for i, it := range a.Items {
			iwhere := fmt.Sprintf("%s item[%d]", where, i)
			if _, have := c.articles[it.Article]; !have {
				cc.add(iwhere, &UnknownArticle{ID: it.Article})
			}
			if it.Quantity == 0 {
				it.Quantity = 1
			}
			cc.relation(iwhere, it.Relation)
		}
		sort.SliceStable(a.Items, func(i, j int) bool {
			return a.Items[i].Position < a.Items[j].Position
		})
	}
}

func (c *Catalog) compileRounding(cc *compiler) {
	c.rounding = make(map[string][]*RoundingRule, len(c.Rounding))
	for _, r := range c.Rounding {
		c.rounding[r.ID] = append(c.rounding[r.ID], r)
		for i, rg := range r.Ranges {
			if rg.Min != nil && rg.Max != nil && *rg.Max <= *rg.Min {
				cc.add(fmt.Sprintf("rounding %s/%d range[%d]", r.ID, r.Nr, i), errors.New("empty range"))
			}
		}
	}
	for _, chain := range c.rounding {
		sort.SliceStable(chain, func(i, j int) bool {
			return chain[i].Nr < chain[j].Nr
		})
	}
}

func (c *Catalog) compilePrices(cc *compiler) {
	c.prices = make(map[string][]*PriceRow, len(c.Articles))
	for i, r := range c.Prices {
		where := fmt.Sprintf("price[%d] %s", i, r.Article)
		r.Seq = i
		if r.Kind == "" {
			r.Kind = Sales
		}
		r.VarCond = strings.ToUpper(strings.TrimSpace(r.VarCond))
		r.amount = decimal.NewFromFloat(r.Value)
		r.from = cc.date(where, r.ValidFrom)
		r.to = cc.date(where, r.ValidTo)
		if r.Article != Wildcard {
			if _, have := c.articles[r.Article]; !have {
				cc.add(where, &UnknownArticle{ID: r.Article})
			}
		}
		if r.Rounding != "" {
			if _, have := c.rounding[r.Rounding]; !have {
				cc.add(where, fmt.Errorf("%w: rounding %q", ErrUnknownReference, r.Rounding))
			}
		}
		c.prices[r.Article] = append(c.prices[r.Article], r)
	}
}

func (c *Catalog) compileOthers(cc *compiler) {
	c.packaging = make(map[string][]*PackagingRow, len(c.Packaging))
	for _, r := range c.Packaging {
		r.VarCond = strings.ToUpper(strings.TrimSpace(r.VarCond))
		c.packaging[r.Article] = append(c.packaging[r.Article], r)
	}

	c.taxes = make(map[string][]*ArticleTax, len(c.Taxes))
	for _, r := range c.Taxes {
		r.TaxType = strings.ToUpper(r.TaxType)
		c.taxes[r.Article] = append(c.taxes[r.Article], r)
	}

	c.rates = make(map[string][]*TaxRate, len(c.TaxSchemes))
	for _, r := range c.TaxSchemes {
		r.Country = strings.ToUpper(r.Country)
		r.TaxType = strings.ToUpper(r.TaxType)
		c.rates[r.Country] = append(c.rates[r.Country], r)
	}
}
