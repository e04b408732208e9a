package pricing

import (
	"github.com/Comcast/ocdrules/catalog"

	"github.com/shopspring/decimal"
)

// DefaultPlaces is the number of decimals of amounts without a
// rounding rule.
var DefaultPlaces int32 = 2

// RoundDefault rounds to DefaultPlaces, halves away from zero.
func RoundDefault(x decimal.Decimal) decimal.Decimal {
	return x.Round(DefaultPlaces)
}

// Round applies a rounding chain.  Each rule rounds the output of the
// previous one.  A rule rounds a value with the first range that
// contains it and leaves values outside all of its ranges alone.
func Round(chain []*catalog.RoundingRule, x decimal.Decimal) decimal.Decimal {
	for _, r := range chain {
		for _, rg := range r.Ranges {
			if contains(rg, x) {
				x = roundRange(rg, x)
				break
			}
		}
	}
	return x
}

func contains(rg catalog.RoundingRange, x decimal.Decimal) bool {
	if rg.Min != nil && x.LessThan(decimal.NewFromFloat(*rg.Min)) {
		return false
	}
	if rg.Max != nil && !x.LessThan(decimal.NewFromFloat(*rg.Max)) {
		return false
	}
	return true
}

func roundRange(rg catalog.RoundingRange, x decimal.Decimal) decimal.Decimal {
	x = x.Add(decimal.NewFromFloat(rg.AddBefore))
	step := decimal.NewFromFloat(rg.Precision)
	if step.Sign() <= 0 {
		return x.Add(decimal.NewFromFloat(rg.AddAfter))
	}
	q := x.Div(step)
	switch rg.Method {
	case "down":
		q = q.Floor()
	case "up":
		q = q.Ceil()
	case "extended":
		q = q.RoundBank(0)
	default:
		q = q.Round(0)
	}
	return q.Mul(step).Add(decimal.NewFromFloat(rg.AddAfter))
}
