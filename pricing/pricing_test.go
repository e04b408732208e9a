package pricing

import (
	"context"
	"testing"
	"time"

	"github.com/Comcast/ocdrules/catalog"
	"github.com/Comcast/ocdrules/core"
	"github.com/Comcast/ocdrules/expr"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func engine(t *testing.T) *core.Engine {
	c, err := catalog.Load("../catalogs/schrank.yaml")
	require.NoError(t, err)
	e, err := core.NewEngine(c)
	require.NoError(t, err)
	return e
}

func configure(t *testing.T, e *core.Engine, article string, kvs ...interface{}) *core.State {
	ctx := context.Background()
	st, err := e.Initialize(ctx, article)
	require.NoError(t, err)
	for i := 0; i < len(kvs); i += 2 {
		st, err = e.Apply(ctx, st, kvs[i].(string), expr.FromInterface(kvs[i+1]))
		require.NoError(t, err)
	}
	return st
}

func date(t *testing.T, s string) time.Time {
	d, err := catalog.ParseDate(s)
	require.NoError(t, err)
	return d
}

func requireAmount(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	require.True(t, decimal.RequireFromString(want).Equal(got), "want %s, got %s", want, got)
}

func TestPrice(t *testing.T) {
	e := engine(t)
	p := NewPricer(e)
	ctx := context.Background()
	now := date(t, "2026-06-01")

	tests := []struct {
		name    string
		article string
		kvs     []interface{}
		req     Request
		want    string
	}{
		{"surcharge percent", "0815", nil, Request{Date: now}, "110"},
		{"latest base", "0816", []interface{}{"Breite", 80}, Request{Date: now}, "235"},
		{"scale", "0816", []interface{}{"Breite", 80}, Request{Date: now, Quantity: 10}, "205"},
		{"currency", "0816", []interface{}{"Breite", 80}, Request{Date: now, Currency: "chf"}, "215"},
		{"older base", "0816", []interface{}{"Breite", 80}, Request{Date: date(t, "2022-03-01")}, "225"},
		{"wildcard discount", "0816", []interface{}{"Breite", 80, "Tiefe", 50}, Request{Date: now}, "224.5"},
		{"rule not permitted", "0816", []interface{}{"Breite", 60}, Request{Date: now}, "210"},
		{"rounding rule", "PLAIN1", nil, Request{Date: now}, "47.5"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			st := configure(t, e, tc.article, tc.kvs...)
			b, err := p.Price(ctx, st, tc.req)
			require.NoError(t, err)
			requireAmount(t, tc.want, b.Total)
		})
	}
}

func TestBreakdown(t *testing.T) {
	e := engine(t)
	st := configure(t, e, "0816", "Breite", 80, "Tiefe", 50)
	b, err := NewPricer(e).Price(context.Background(), st, Request{Date: date(t, "2026-06-01")})
	require.NoError(t, err)

	require.Equal(t, "EUR", b.Currency)
	require.Equal(t, []string{"B80", "RABATT"}, b.VarConds)
	require.Len(t, b.Base, 1)
	requireAmount(t, "210", b.BaseTotal)
	require.Len(t, b.Surcharges, 1)
	require.Equal(t, "B80", b.Surcharges[0].VarCond)
	requireAmount(t, "25", b.Surcharges[0].Amount)
	require.Len(t, b.Discounts, 1)
	require.True(t, b.Discounts[0].Wildcard)
	require.True(t, b.Discounts[0].Percent)
	requireAmount(t, "10.5", b.Discounts[0].Amount)
}

func TestUnresolved(t *testing.T) {
	e := engine(t)
	st := configure(t, e, "0816", "Breite", 80)
	_, err := NewPricer(e).Price(context.Background(), st, Request{Date: date(t, "2019-01-01"), Currency: "EUR"})
	// Only the CHF row is valid in 2019, and it is used for lack of
	// EUR rows.
	require.NoError(t, err)

	st = configure(t, e, "0816", "Breite", 80)
	_, err = NewPricer(e).Price(context.Background(), st, Request{Date: date(t, "2026-01-01"), Kind: catalog.Purchase})
	require.ErrorIs(t, err, ErrUnresolved)
}

func TestSelect(t *testing.T) {
	rows := []*catalog.PriceRow{
		{Level: catalog.Base, Value: 1, Currency: "EUR", Seq: 0},
		{Level: catalog.Base, Value: 2, Currency: "EUR", Seq: 1},
		{Level: catalog.Base, Value: 3, Currency: "EUR", Seq: 2, Scale: 5},
	}
	req := Request{Currency: "EUR", Quantity: 1, Date: time.Now()}
	require.Same(t, rows[0], Select(rows, req, "EUR"))

	req.Quantity = 5
	require.Same(t, rows[2], Select(rows, req, "EUR"))

	require.Nil(t, Select(nil, req, "EUR"))
}

func TestRound(t *testing.T) {
	c, err := catalog.Load("../catalogs/schrank.yaml")
	require.NoError(t, err)
	chain := c.RoundingChain("R1")
	require.NotEmpty(t, chain)

	tests := []struct {
		in, want string
	}{
		{"9.84", "9.8"},
		{"9.85", "9.9"},
		{"47.3", "47.5"},
		{"47.2", "47"},
		{"150.3", "150.99"},
		{"100", "99.99"},
		{"-3", "-3"},
	}
	for _, tc := range tests {
		requireAmount(t, tc.want, Round(chain, decimal.RequireFromString(tc.in)))
	}

	lo, hi := 0.0, 10.0
	ext := []*catalog.RoundingRule{{ID: "E", Ranges: []catalog.RoundingRange{
		{Min: &lo, Max: &hi, Method: "extended", Precision: 1},
	}}}
	requireAmount(t, "2", Round(ext, decimal.RequireFromString("2.5")))
	requireAmount(t, "4", Round(ext, decimal.RequireFromString("3.5")))

	down := []*catalog.RoundingRule{
		{ID: "D", Nr: 1, Ranges: []catalog.RoundingRange{{Method: "down", Precision: 0.5}}},
		{ID: "D", Nr: 2, Ranges: []catalog.RoundingRange{{Method: "up", Precision: 1, AddBefore: 0.2}}},
	}
	requireAmount(t, "8", Round(down, decimal.RequireFromString("7.4")))

	requireAmount(t, "2.35", RoundDefault(decimal.RequireFromString("2.345")))
}
