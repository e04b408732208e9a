// Package pricing determines the price of a configured article.
//
// Prices are built level by level: base, then surcharges, then
// discounts.  Each level looks at the rows without a variant
// condition and at the rows of the variant conditions that the
// article's pricing actions derive.  For every such component one
// valid row is selected, rounded and added to the total.
//
// A Pricer with a Converter converts rows in another currency into
// the requested one.  Commercial Discounts then reduce the order
// value.
package pricing

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/Comcast/ocdrules/catalog"
	"github.com/Comcast/ocdrules/core"
	"github.com/Comcast/ocdrules/util"

	"github.com/shopspring/decimal"
)

// ErrUnresolved occurs when no base price applies.  It is not the
// same as a price of zero.
var ErrUnresolved = errors.New("no applicable price")

var hundred = decimal.NewFromInt(100)

// Request says which price is wanted.
type Request struct {
	Kind catalog.PriceKind `json:"kind,omitempty"`

	// Currency is the preferred currency.  Empty means the
	// catalog's currency.
	Currency string `json:"currency,omitempty"`

	// Date selects rows by their validity windows.  The zero time
	// means now.
	Date time.Time `json:"date,omitempty"`

	// Quantity is the order quantity.  Zero means 1.
	Quantity float64 `json:"qty,omitempty"`

	// Discounts are optional commercial discounts on the order
	// value.
	Discounts *Discounts `json:"discounts,omitempty"`
}

// Component is one selected price row and what it contributed.
type Component struct {
	Level   catalog.Level `json:"level"`
	VarCond string        `json:"varcond,omitempty"`
	Percent bool          `json:"percent,omitempty"`

	// Value is the row's value: an amount or a percentage.
	Value decimal.Decimal `json:"value"`

	// Amount is the rounded contribution (positive for discounts).
	Amount decimal.Decimal `json:"amount"`

	// Currency is the row's currency.  A non-zero Rate converted
	// Amount into the breakdown's currency.
	Currency string          `json:"currency,omitempty"`
	Rate     decimal.Decimal `json:"rate,omitzero"`
	Text     string          `json:"text,omitempty"`
	Wildcard bool            `json:"wildcard,omitempty"`
}

// Breakdown is a determined price.
type Breakdown struct {
	Article  string   `json:"article"`
	Currency string   `json:"currency"`
	VarConds []string `json:"varconds,omitempty"`

	Base       []*Component `json:"base"`
	Surcharges []*Component `json:"surcharges,omitempty"`
	Discounts  []*Component `json:"discounts,omitempty"`

	BaseTotal decimal.Decimal `json:"baseTotal"`
	Total     decimal.Decimal `json:"total"`

	// Extra is the outcome of the request's Discounts on Total
	// times the quantity.
	Extra *DiscountResult `json:"extra,omitempty"`
}

// Pricer determines prices with an Engine's catalog.
type Pricer struct {
	Engine *core.Engine

	// Converter is optional.  Without one, amounts in other
	// currencies are taken as they are.
	Converter *Converter
}

func NewPricer(e *core.Engine) *Pricer {
	return &Pricer{Engine: e}
}

// Price determines the price of a settled State.
func (p *Pricer) Price(ctx context.Context, st *core.State, req Request) (*Breakdown, error) {
	c := p.Engine.Catalog
	d, err := p.Engine.Derive(ctx, st, catalog.Pricing, nil)
	if err != nil {
		return nil, err
	}
	req = normalize(c, req)

	b := &Breakdown{
		Article:  st.Article,
		Currency: req.Currency,
		VarConds: d.VarConds,
	}
	keys := append([]string{""}, d.VarConds...)

	for _, level := range []catalog.Level{catalog.Base, catalog.Surcharge, catalog.Discount} {
		for _, vc := range keys {
			row, wildcard := p.lookup(st.Article, level, vc, req)
			if row == nil {
				continue
			}
			if !permitted(row) {
				util.Logf("article %s: price %s %q not permitted at level %s", st.Article, row.Rule, vc, level)
				continue
			}
			comp := &Component{
				Level:    level,
				VarCond:  vc,
				Percent:  row.Percent,
				Value:    row.Amount(),
				Currency: row.Currency,
				Text:     row.Text,
				Wildcard: wildcard,
			}
			amount := row.Amount()
			if row.Percent {
				amount = b.BaseTotal.Mul(amount).Div(hundred)
			} else if cur := rowCurrency(row, c); p.Converter != nil && !strings.EqualFold(cur, req.Currency) {
				if amount, comp.Rate, err = p.Converter.Convert(amount, cur, req.Currency); err != nil {
					return nil, fmt.Errorf("article %s: %w", st.Article, err)
				}
			}
			if row.Rounding != "" {
				comp.Amount = Round(c.RoundingChain(row.Rounding), amount)
			} else {
				comp.Amount = RoundDefault(amount)
			}
			switch level {
			case catalog.Base:
				b.Base = append(b.Base, comp)
				b.BaseTotal = b.BaseTotal.Add(comp.Amount)
			case catalog.Surcharge:
				b.Surcharges = append(b.Surcharges, comp)
			case catalog.Discount:
				b.Discounts = append(b.Discounts, comp)
			}
		}
		if level == catalog.Base && len(b.Base) == 0 {
			util.Logf("article %s: no base price for %s %s", st.Article, req.Kind, req.Currency)
			return nil, fmt.Errorf("%w: article %s", ErrUnresolved, st.Article)
		}
	}

	b.Total = b.BaseTotal
	for _, x := range b.Surcharges {
		b.Total = b.Total.Add(x.Amount)
	}
	for _, x := range b.Discounts {
		b.Total = b.Total.Sub(x.Amount)
	}
	if req.Discounts != nil {
		order := b.Total.Mul(decimal.NewFromFloat(req.Quantity))
		b.Extra = req.Discounts.Apply(order, req.Quantity, req.Date)
	}
	return b, nil
}

func rowCurrency(r *catalog.PriceRow, c *catalog.Catalog) string {
	if r.Currency == "" {
		return c.Currency
	}
	return r.Currency
}

func normalize(c *catalog.Catalog, req Request) Request {
	if req.Kind == "" {
		req.Kind = catalog.Sales
	}
	if req.Currency == "" {
		req.Currency = c.Currency
	}
	req.Currency = strings.ToUpper(req.Currency)
	if req.Date.IsZero() {
		req.Date = time.Now()
	}
	if req.Quantity <= 0 {
		req.Quantity = 1
	}
	return req
}

// lookup selects the valid row of one component.  Wildcard rows are
// used for surcharges and discounts when the article has no row for
// the variant condition.
func (p *Pricer) lookup(article string, level catalog.Level, vc string, req Request) (*catalog.PriceRow, bool) {
	c := p.Engine.Catalog
	rows := relevant(c.PriceRows(article), level, vc, req.Kind)
	if len(rows) == 0 && level != catalog.Base {
		rows = relevant(c.PriceRows(catalog.Wildcard), level, vc, req.Kind)
		return Select(rows, req, c.Currency), true
	}
	return Select(rows, req, c.Currency), false
}

func relevant(rows []*catalog.PriceRow, level catalog.Level, vc string, kind catalog.PriceKind) []*catalog.PriceRow {
	var acc []*catalog.PriceRow
	for _, r := range rows {
		if r.Level == level && r.VarCond == vc && r.Kind == kind {
			acc = append(acc, r)
		}
	}
	return acc
}

// Select picks the valid row among the rows of one component.
//
// Percentage base rows go first, then rows outside their validity
// window.  Rows in the requested currency are preferred; when there
// are none, the currency is ignored.  Rows whose scale quantity
// exceeds the order quantity go next.  Of the rest, the row with the
// latest start date wins; ties go to the higher scale quantity and
// then to the row that comes first in the catalog.
func Select(rows []*catalog.PriceRow, req Request, catalogCurrency string) *catalog.PriceRow {
	var acc []*catalog.PriceRow
	for _, r := range rows {
		if r.Level == catalog.Base && r.Percent {
			continue
		}
		if !r.ValidAt(req.Date) {
			continue
		}
		acc = append(acc, r)
	}

	var same []*catalog.PriceRow
	for _, r := range acc {
		cur := r.Currency
		if cur == "" {
			cur = catalogCurrency
		}
		if strings.EqualFold(cur, req.Currency) {
			same = append(same, r)
		}
	}
	if 0 < len(same) {
		acc = same
	}

	scaled := acc[:0:0]
	for _, r := range acc {
		if r.Scale <= req.Quantity {
			scaled = append(scaled, r)
		}
	}
	if len(scaled) == 0 {
		return nil
	}
	sort.SliceStable(scaled, func(i, j int) bool {
		a, b := scaled[i], scaled[j]
		if !a.From().Equal(b.From()) {
			return a.From().After(b.From())
		}
		if a.Scale != b.Scale {
			return a.Scale > b.Scale
		}
		return a.Seq < b.Seq
	})
	return scaled[0]
}

// permitted reports whether a row's kind of value and rule fit its
// level.  Base prices are fixed amounts.  Surcharges add and
// discounts subtract.
func permitted(r *catalog.PriceRow) bool {
	rule := strings.ToUpper(r.Rule)
	switch r.Level {
	case catalog.Base:
		return !r.Percent && (rule == "" || rule == "ADD")
	case catalog.Surcharge:
		return rule == "" || rule == "ADD"
	case catalog.Discount:
		return rule == "" || rule == "SUB"
	}
	return false
}
