package pricing

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
)

// ErrNoRate occurs when an amount cannot be converted, neither
// directly nor through the euro.
var ErrNoRate = errors.New("no exchange rate")

// Pivot is the currency that conversions without a direct rate go
// through.
const Pivot = "EUR"

// DefaultRates are units of each currency per euro.  They are only
// approximations for catalogs that do not bring their own.
var DefaultRates = map[string]string{
	"CHF": "0.94",
	"USD": "1.08",
	"GBP": "0.84",
	"PLN": "4.32",
	"SEK": "11.43",
	"NOK": "11.78",
	"DKK": "7.45",
	"CZK": "25.20",
	"HUF": "395.00",
}

type pair struct {
	from, to string
}

// Converter converts amounts between currencies.  It is not safe for
// concurrent SetRate calls.
type Converter struct {
	rates map[pair]decimal.Decimal
}

// NewConverter makes a Converter with DefaultRates and their
// inverses.
func NewConverter() *Converter {
	c := &Converter{rates: make(map[pair]decimal.Decimal, 2*len(DefaultRates))}
	for code, s := range DefaultRates {
		if err := c.SetPivotRate(code, decimal.RequireFromString(s)); err != nil {
			panic(err)
		}
	}
	return c
}

func code(s string) (string, error) {
	u, err := currency.ParseISO(strings.TrimSpace(s))
	if err != nil {
		return "", fmt.Errorf("bad currency %q: %w", s, err)
	}
	return u.String(), nil
}

// SetRate sets the rate from one currency to another: one unit of
// from is rate units of to.
func (c *Converter) SetRate(from, to string, rate decimal.Decimal) error {
	f, err := code(from)
	if err != nil {
		return err
	}
	t, err := code(to)
	if err != nil {
		return err
	}
	if !rate.IsPositive() {
		return fmt.Errorf("rate %s to %s must be positive: %s", f, t, rate)
	}
	if c.rates == nil {
		c.rates = make(map[pair]decimal.Decimal, 4)
	}
	c.rates[pair{f, t}] = rate
	return nil
}

// SetPivotRate sets the units of a currency per euro and the inverse
// rate.
func (c *Converter) SetPivotRate(to string, rate decimal.Decimal) error {
	if err := c.SetRate(Pivot, to, rate); err != nil {
		return err
	}
	return c.SetRate(to, Pivot, decimal.NewFromInt(1).Div(rate))
}

// Rate returns the direct rate between two currencies.
func (c *Converter) Rate(from, to string) (decimal.Decimal, bool) {
	f, err := code(from)
	if err != nil {
		return decimal.Zero, false
	}
	t, err := code(to)
	if err != nil {
		return decimal.Zero, false
	}
	if f == t {
		return decimal.NewFromInt(1), true
	}
	r, have := c.rates[pair{f, t}]
	return r, have
}

// Convert converts an amount with the direct rate or else through the
// euro.  It returns the converted amount, rounded with RoundDefault,
// and the rate used.
func (c *Converter) Convert(amount decimal.Decimal, from, to string) (decimal.Decimal, decimal.Decimal, error) {
	if r, have := c.Rate(from, to); have {
		return RoundDefault(amount.Mul(r)), r, nil
	}
	in, have := c.Rate(from, Pivot)
	if !have {
		return decimal.Zero, decimal.Zero, fmt.Errorf("%w: %s to %s", ErrNoRate, from, to)
	}
	out, have := c.Rate(Pivot, to)
	if !have {
		return decimal.Zero, decimal.Zero, fmt.Errorf("%w: %s to %s", ErrNoRate, from, to)
	}
	r := in.Mul(out)
	return RoundDefault(amount.Mul(r)), r, nil
}
