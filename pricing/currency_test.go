package pricing

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestConverter(t *testing.T) {
	c := NewConverter()

	r, have := c.Rate("eur", "CHF")
	require.True(t, have)
	requireAmount(t, "0.94", r)
	r, have = c.Rate("CHF", "CHF")
	require.True(t, have)
	requireAmount(t, "1", r)
	_, have = c.Rate("USD", "CHF")
	require.False(t, have)

	tests := []struct {
		amount, from, to, want string
	}{
		{"100", "EUR", "CHF", "94"},
		{"190", "CHF", "EUR", "202.13"},
		// No direct rate: through the euro.
		{"108", "USD", "CHF", "94"},
		{"1", "EUR", "HUF", "395"},
		{"12.34", "GBP", "GBP", "12.34"},
	}
	for _, tc := range tests {
		got, _, err := c.Convert(decimal.RequireFromString(tc.amount), tc.from, tc.to)
		require.NoError(t, err, "%s %s to %s", tc.amount, tc.from, tc.to)
		requireAmount(t, tc.want, got)
	}

	_, _, err := c.Convert(decimal.NewFromInt(1), "JPY", "EUR")
	require.ErrorIs(t, err, ErrNoRate)

	require.NoError(t, c.SetRate("USD", "CHF", decimal.RequireFromString("0.9")))
	got, rate, err := c.Convert(decimal.NewFromInt(10), "USD", "CHF")
	require.NoError(t, err)
	requireAmount(t, "9", got)
	requireAmount(t, "0.9", rate)

	require.Error(t, c.SetRate("EURO", "CHF", decimal.NewFromInt(1)))
	require.Error(t, c.SetRate("EUR", "CHF", decimal.Zero))
}

func TestPriceConverted(t *testing.T) {
	e := engine(t)
	p := NewPricer(e)
	p.Converter = NewConverter()
	ctx := context.Background()

	// CHF base row, EUR surcharge converted: 190 + 25 * 0.94.
	st := configure(t, e, "0816", "Breite", 80)
	b, err := p.Price(ctx, st, Request{Date: date(t, "2026-06-01"), Currency: "CHF"})
	require.NoError(t, err)
	requireAmount(t, "213.5", b.Total)
	require.Equal(t, "CHF", b.Currency)
	require.True(t, b.Base[0].Rate.IsZero())
	require.Equal(t, "EUR", b.Surcharges[0].Currency)
	requireAmount(t, "0.94", b.Surcharges[0].Rate)

	// Only the CHF row is valid in 2019: 190 / 0.94 + 25.
	b, err = p.Price(ctx, st, Request{Date: date(t, "2019-01-01"), Currency: "EUR"})
	require.NoError(t, err)
	requireAmount(t, "227.13", b.Total)

	p.Converter = &Converter{}
	_, err = p.Price(ctx, st, Request{Date: date(t, "2026-06-01"), Currency: "CHF"})
	require.ErrorIs(t, err, ErrNoRate)
}
