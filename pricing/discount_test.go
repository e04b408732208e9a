package pricing

import (
	"context"
	"testing"

	"github.com/jsccast/yaml"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

const discountsDoc = `
cumulative: true
discounts:
  - {id: H, name: Haendler, type: vendor, percent: 10}
  - id: M
    type: customer
    tiers: [{min: 1, value: 2}, {min: 10, value: 5}, {min: 50, value: 8}]
  - {id: P, type: promotional, amount: 5, minOrder: 2000}
  - {id: ALT, type: promotional, percent: 50, validTo: "2025-12-31"}
`

func discounts(t *testing.T, cumulative bool) *Discounts {
	var ds Discounts
	require.NoError(t, yaml.Unmarshal([]byte(discountsDoc), &ds))
	require.NoError(t, ds.Validate())
	ds.Cumulative = cumulative
	return &ds
}

func TestDiscountsCumulative(t *testing.T) {
	ds := discounts(t, true)
	r := ds.Apply(decimal.NewFromInt(1000), 10, date(t, "2026-06-01"))

	// 10% of 1000, then 5% of the remaining 900.  P needs 2000 and
	// ALT has expired.
	require.Len(t, r.Applied, 2)
	require.Equal(t, "H", r.Applied[0].ID)
	requireAmount(t, "100", r.Applied[0].Amount)
	require.Equal(t, "M", r.Applied[1].ID)
	requireAmount(t, "45", r.Applied[1].Amount)
	requireAmount(t, "145", r.Total)
	requireAmount(t, "855", r.Net)
	requireAmount(t, "14.5", r.Percentage())

	// The fixed amount per unit from 2000 on.
	r = ds.Apply(decimal.NewFromInt(2000), 20, date(t, "2026-06-01"))
	require.Len(t, r.Applied, 3)
	requireAmount(t, "100", r.Applied[2].Amount)

	// Before its end, ALT applies too.
	r = ds.Apply(decimal.NewFromInt(1000), 10, date(t, "2025-06-01"))
	require.Len(t, r.Applied, 3)
}

func TestDiscountsBest(t *testing.T) {
	ds := discounts(t, false)
	r := ds.Apply(decimal.NewFromInt(1000), 10, date(t, "2026-06-01"))
	require.Len(t, r.Applied, 1)
	require.Equal(t, "H", r.Applied[0].ID)
	requireAmount(t, "900", r.Net)

	// 8% from 50 units is still less than 10%.
	r = ds.Apply(decimal.NewFromInt(1000), 50, date(t, "2026-06-01"))
	require.Equal(t, "H", r.Applied[0].ID)

	r = ds.Apply(decimal.Zero, 1, date(t, "2026-06-01"))
	require.Empty(t, r.Applied)
	require.True(t, r.Percentage().IsZero())
}

func TestDiscountRules(t *testing.T) {
	order := decimal.NewFromInt(1000)
	tests := []struct {
		name string
		d    Discount
		qty  float64
		want string
	}{
		{"percent", Discount{Percent: 12.5}, 10, "125"},
		{"amount per unit", Discount{Amount: 3}, 10, "30"},
		{"tier below", Discount{Tiers: []Tier{{Min: 5, Value: 10}}}, 4, "0"},
		{"tier", Discount{Tiers: []Tier{{Min: 5, Value: 10}}}, 5, "100"},
		{"fixed tier", Discount{Tiers: []Tier{{Min: 1, Value: 1}, {Min: 10, Value: 2}}, Fixed: true}, 10, "20"},
		{"buy 3 get 1", Discount{Buy: 3, Free: 1}, 10, "300"},
		{"buy 3 short", Discount{Buy: 3, Free: 1}, 2, "0"},
	}
	for _, tc := range tests {
		requireAmount(t, tc.want, tc.d.Calculate(order, tc.qty))
	}
}

func TestDiscountsValidate(t *testing.T) {
	ds := &Discounts{List: []*Discount{{ID: "X", Percent: 120}}}
	require.Error(t, ds.Validate())
	ds = &Discounts{List: []*Discount{{Percent: 5}}}
	require.Error(t, ds.Validate())
	ds = &Discounts{List: []*Discount{{ID: "X", Percent: 5, ValidFrom: "1.1.2026"}}}
	require.Error(t, ds.Validate())
}

func TestPriceDiscounts(t *testing.T) {
	e := engine(t)
	st := configure(t, e, "0815")
	req := Request{
		Date:     date(t, "2026-06-01"),
		Quantity: 2,
		Discounts: &Discounts{List: []*Discount{
			{ID: "K", Type: Customer, Percent: 10},
		}},
	}
	b, err := NewPricer(e).Price(context.Background(), st, req)
	require.NoError(t, err)
	requireAmount(t, "110", b.Total)
	require.NotNil(t, b.Extra)
	requireAmount(t, "220", b.Extra.Order)
	requireAmount(t, "22", b.Extra.Total)
	requireAmount(t, "198", b.Extra.Net)
}
