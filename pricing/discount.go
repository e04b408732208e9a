package pricing

import (
	"fmt"
	"sort"
	"time"

	"github.com/Comcast/ocdrules/catalog"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// DiscountType orders commercial discounts.  Lower types apply first.
type DiscountType string

const (
	Vendor      DiscountType = "vendor"
	Volume      DiscountType = "volume"
	Customer    DiscountType = "customer"
	Promotional DiscountType = "promotional"
)

func (t DiscountType) priority() int {
	switch t {
	case Vendor:
		return 1
	case Volume:
		return 2
	case Customer:
		return 3
	case Promotional:
		return 4
	}
	return 10
}

// Tier is a quantity threshold and the discount value from there on.
type Tier struct {
	Min   float64 `json:"min" yaml:"min" validate:"gte=0"`
	Value float64 `json:"value" yaml:"value" validate:"gte=0"`
}

// Discount is a commercial discount on the order value of a priced
// configuration.  Catalog discount rows are a price level of their
// own; these come from outside the catalog.
//
// Exactly one rule applies, checked in this order: Tiers (percentages,
// or amounts per unit with Fixed), Buy and Free, Amount per unit, and
// Percent.
type Discount struct {
	ID   string       `json:"id" yaml:"id" validate:"required"`
	Name string       `json:"name,omitempty" yaml:"name,omitempty"`
	Type DiscountType `json:"type,omitempty" yaml:"type,omitempty"`

	Percent float64 `json:"percent,omitempty" yaml:"percent,omitempty" validate:"gte=0,lte=100"`
	Amount  float64 `json:"amount,omitempty" yaml:"amount,omitempty" validate:"gte=0"`
	Tiers   []Tier  `json:"tiers,omitempty" yaml:"tiers,omitempty" validate:"dive"`
	Fixed   bool    `json:"fixed,omitempty" yaml:"fixed,omitempty"`
	Buy     int     `json:"buy,omitempty" yaml:"buy,omitempty" validate:"gte=0"`
	Free    int     `json:"free,omitempty" yaml:"free,omitempty" validate:"gte=0"`

	// MinOrder is the order value from which the discount applies.
	MinOrder float64 `json:"minOrder,omitempty" yaml:"minOrder,omitempty" validate:"gte=0"`

	ValidFrom string `json:"validFrom,omitempty" yaml:"validFrom,omitempty"`
	ValidTo   string `json:"validTo,omitempty" yaml:"validTo,omitempty"`
	Inactive  bool   `json:"inactive,omitempty" yaml:"inactive,omitempty"`
}

// ValidAt reports whether the discount is active on a date.  The
// zero time accepts every window.
func (d *Discount) ValidAt(t time.Time) bool {
	if d.Inactive {
		return false
	}
	if t.IsZero() {
		return true
	}
	if from, err := catalog.ParseDate(d.ValidFrom); err == nil && !from.IsZero() && t.Before(from) {
		return false
	}
	if to, err := catalog.ParseDate(d.ValidTo); err == nil && !to.IsZero() && to.Before(t.Truncate(24*time.Hour)) {
		return false
	}
	return true
}

// tier is the value of the highest tier the quantity reaches.
func (d *Discount) tier(qty float64) decimal.Decimal {
	v := 0.0
	for _, t := range d.Tiers {
		if qty < t.Min {
			break
		}
		v = t.Value
	}
	return decimal.NewFromFloat(v)
}

// Calculate returns the discount on an order value for a quantity.
func (d *Discount) Calculate(order decimal.Decimal, qty float64) decimal.Decimal {
	q := decimal.NewFromFloat(qty)
	var x decimal.Decimal
	switch {
	case 0 < len(d.Tiers) && d.Fixed:
		x = d.tier(qty).Mul(q)
	case 0 < len(d.Tiers):
		x = order.Mul(d.tier(qty)).Div(hundred)
	case 0 < d.Buy:
		if qty < float64(d.Buy) || qty <= 0 {
			return decimal.Zero
		}
		free := decimal.NewFromInt(int64(qty) / int64(d.Buy) * int64(d.Free))
		x = order.Div(q).Mul(free)
	case d.Amount != 0:
		x = decimal.NewFromFloat(d.Amount).Mul(q)
	default:
		x = order.Mul(decimal.NewFromFloat(d.Percent)).Div(hundred)
	}
	return RoundDefault(x)
}

// AppliedDiscount is a Discount that reduced the order value.
type AppliedDiscount struct {
	ID     string          `json:"id"`
	Name   string          `json:"name,omitempty"`
	Type   DiscountType    `json:"type,omitempty"`
	Amount decimal.Decimal `json:"amount"`
}

// DiscountResult is the outcome of Discounts.Apply.
type DiscountResult struct {
	Order   decimal.Decimal    `json:"order"`
	Applied []*AppliedDiscount `json:"applied,omitempty"`
	Total   decimal.Decimal    `json:"total"`
	Net     decimal.Decimal    `json:"net"`
}

// Percentage is the total discount relative to the order value.
func (r *DiscountResult) Percentage() decimal.Decimal {
	if r.Order.IsZero() {
		return decimal.Zero
	}
	return r.Total.Div(r.Order).Mul(hundred)
}

// Discounts is a list of commercial discounts.
//
// Cumulative discounts apply one after the other in type order, each
// to what the previous ones left.  Otherwise only the largest one
// applies.
type Discounts struct {
	Cumulative bool        `json:"cumulative,omitempty" yaml:"cumulative,omitempty"`
	List       []*Discount `json:"discounts" yaml:"discounts" validate:"dive"`
}

// Validate checks the fields and the validity dates of every
// Discount.
func (ds *Discounts) Validate() error {
	if err := validator.New().Struct(ds); err != nil {
		return err
	}
	for _, d := range ds.List {
		for _, s := range []string{d.ValidFrom, d.ValidTo} {
			if _, err := catalog.ParseDate(s); err != nil {
				return fmt.Errorf("discount %s: %w", d.ID, err)
			}
		}
	}
	return nil
}

// Apply reduces an order value of qty units on a date.
func (ds *Discounts) Apply(order decimal.Decimal, qty float64, date time.Time) *DiscountResult {
	var acc []*Discount
	for _, d := range ds.List {
		if d.ValidAt(date) && !order.LessThan(decimal.NewFromFloat(d.MinOrder)) {
			acc = append(acc, d)
		}
	}
	sort.SliceStable(acc, func(i, j int) bool {
		return acc[i].Type.priority() < acc[j].Type.priority()
	})

	r := &DiscountResult{Order: order}
	applied := func(d *Discount, x decimal.Decimal) *AppliedDiscount {
		return &AppliedDiscount{ID: d.ID, Name: d.Name, Type: d.Type, Amount: x}
	}
	if ds.Cumulative {
		running := order
		for _, d := range acc {
			x := d.Calculate(running, qty)
			if x.IsZero() {
				continue
			}
			r.Applied = append(r.Applied, applied(d, x))
			r.Total = r.Total.Add(x)
			running = running.Sub(x)
		}
	} else {
		var best *AppliedDiscount
		for _, d := range acc {
			x := d.Calculate(order, qty)
			if !x.IsZero() && (best == nil || x.GreaterThan(best.Amount)) {
				best = applied(d, x)
			}
		}
		if best != nil {
			r.Applied = []*AppliedDiscount{best}
			r.Total = best.Amount
		}
	}
	r.Net = order.Sub(r.Total)
	return r
}
