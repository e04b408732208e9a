// Package tax resolves the tax categories of a configured article and
// computes tax amounts from the catalog's tax schemes.
//
// Every article lists a base category per tax type.  The article's
// tax actions can override them by assigning $TAXCAT_<TYPE>, for
// example
//
//	$TAXCAT_VAT = 'reduced' if $COUNTRY = 'AT'
//
// The actions see $COUNTRY and $REGION.  Later assignments win.
package tax

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/Comcast/ocdrules/catalog"
	"github.com/Comcast/ocdrules/core"
	"github.com/Comcast/ocdrules/expr"
	"github.com/Comcast/ocdrules/pricing"
	"github.com/Comcast/ocdrules/util"

	"github.com/shopspring/decimal"
)

// VarPrefix starts the names of the category variables.
const VarPrefix = "TAXCAT_"

// ErrUnresolved occurs when an article has no tax category or no
// category has a rate in the country.
var ErrUnresolved = errors.New("no applicable tax")

// Categories maps tax types to categories.
type Categories map[string]string

// Types returns the tax types in order.
func (cs Categories) Types() []string {
	acc := make([]string, 0, len(cs))
	for t := range cs {
		acc = append(acc, t)
	}
	sort.Strings(acc)
	return acc
}

// Line is the tax of one type.
type Line struct {
	TaxType  string          `json:"type"`
	Category string          `json:"category"`
	Rate     decimal.Decimal `json:"rate"`
	Amount   decimal.Decimal `json:"amount"`
	Text     string          `json:"text,omitempty"`
}

// Assessment is the tax on a net amount.
type Assessment struct {
	Country string          `json:"country"`
	Region  string          `json:"region,omitempty"`
	Net     decimal.Decimal `json:"net"`
	Lines   []*Line         `json:"lines"`
	Total   decimal.Decimal `json:"total"`
}

type Resolver struct {
	Engine *core.Engine
}

func NewResolver(e *core.Engine) *Resolver {
	return &Resolver{Engine: e}
}

// Categories determines the tax category of every tax type for a
// State in a country and (optional) region.
func (r *Resolver) Categories(ctx context.Context, st *core.State, country, region string) (Categories, error) {
	country, region = strings.ToUpper(country), strings.ToUpper(region)
	acc := make(Categories, 2)
	for _, t := range r.Engine.Catalog.ArticleTaxes(st.Article) {
		acc[t.TaxType] = t.Category
	}

	d, err := r.Engine.Derive(ctx, st, catalog.Tax, map[string]expr.Value{
		"COUNTRY": expr.Str(country),
		"REGION":  expr.Str(region),
	})
	if err != nil {
		return nil, err
	}
	for name, v := range d.Vars {
		if !strings.HasPrefix(name, VarPrefix) || v.IsUndefined() {
			continue
		}
		t := strings.TrimPrefix(name, VarPrefix)
		if t == "" {
			continue
		}
		acc[t] = v.String()
	}
	if len(acc) == 0 {
		return nil, fmt.Errorf("%w: article %s", ErrUnresolved, st.Article)
	}
	return acc, nil
}

// Rate finds the tax scheme row for a type and category.  A row for
// the region wins over the country-wide row.
func (r *Resolver) Rate(country, region, taxType, category string) (*catalog.TaxRate, bool) {
	var fallback *catalog.TaxRate
	for _, x := range r.Engine.Catalog.TaxRates(strings.ToUpper(country)) {
		if x.TaxType != strings.ToUpper(taxType) || !strings.EqualFold(x.Category, category) {
			continue
		}
		switch {
		case region != "" && strings.EqualFold(x.Region, region):
			return x, true
		case x.Region == "" && fallback == nil:
			fallback = x
		}
	}
	return fallback, fallback != nil
}

// Calculate computes the taxes on a net amount.  Tax types without a
// rate in the country are left out.
func (r *Resolver) Calculate(ctx context.Context, st *core.State, country, region string, net decimal.Decimal) (*Assessment, error) {
	cs, err := r.Categories(ctx, st, country, region)
	if err != nil {
		return nil, err
	}
	a := &Assessment{
		Country: strings.ToUpper(country),
		Region:  strings.ToUpper(region),
		Net:     net,
	}
	for _, t := range cs.Types() {
		rate, have := r.Rate(country, region, t, cs[t])
		if !have {
			util.Logf("article %s: no %s rate for %s in %s", st.Article, t, cs[t], a.Country)
			continue
		}
		pct := decimal.NewFromFloat(rate.Rate)
		line := &Line{
			TaxType:  t,
			Category: cs[t],
			Rate:     pct,
			Amount:   pricing.RoundDefault(net.Mul(pct).Div(decimal.NewFromInt(100))),
			Text:     rate.Text,
		}
		a.Lines = append(a.Lines, line)
		a.Total = a.Total.Add(line.Amount)
	}
	if len(a.Lines) == 0 {
		return nil, fmt.Errorf("%w: article %s in %s", ErrUnresolved, st.Article, a.Country)
	}
	return a, nil
}
