package catalog

import (
	"strings"
	"time"

	"github.com/Comcast/ocdrules/expr"

	"github.com/shopspring/decimal"
)

// PriceKind is sales or purchase.
type PriceKind string

const (
	Sales    PriceKind = "sales"
	Purchase PriceKind = "purchase"
)

// Level is a price level.
type Level string

const (
	Base      Level = "B"
	Surcharge Level = "X"
	Discount  Level = "D"
)

// Wildcard is the article id of rows that apply to every article.
const Wildcard = "*"

// PriceRow is one price entry.
//
// Value is an amount unless Percent is set, in which case it is a
// percentage of the base price.
type PriceRow struct {
	Article   string    `json:"article" yaml:"article" validate:"required"`
	VarCond   string    `json:"varcond,omitempty" yaml:"varcond,omitempty"`
	Kind      PriceKind `json:"kind,omitempty" yaml:"kind,omitempty" validate:"omitempty,oneof=sales purchase"`
	Level     Level     `json:"level" yaml:"level" validate:"required,oneof=B X D"`
	Rule      string    `json:"rule,omitempty" yaml:"rule,omitempty"`
	Value     float64   `json:"value" yaml:"value"`
	Percent   bool      `json:"percent,omitempty" yaml:"percent,omitempty"`
	Currency  string    `json:"currency,omitempty" yaml:"currency,omitempty" validate:"omitempty,currency"`
	ValidFrom string    `json:"validFrom,omitempty" yaml:"validFrom,omitempty"`
	ValidTo   string    `json:"validTo,omitempty" yaml:"validTo,omitempty"`

	// Scale is the minimum order quantity for the row.
	Scale    float64 `json:"scale,omitempty" yaml:"scale,omitempty" validate:"gte=0"`
	Rounding string  `json:"rounding,omitempty" yaml:"rounding,omitempty"`
	Text     string  `json:"text,omitempty" yaml:"text,omitempty"`

	// Seq is the row's position in the catalog.
	Seq int `json:"-" yaml:"-"`

	amount   decimal.Decimal
	from, to time.Time
}

func (r *PriceRow) Amount() decimal.Decimal {
	return r.amount
}

func (r *PriceRow) ValidAt(t time.Time) bool {
	return within(t, r.from, r.to)
}

// From is the start of the validity window, possibly zero.
func (r *PriceRow) From() time.Time {
	return r.from
}

// RoundingRule is one link of a rounding chain.  Rules sharing an ID
// are applied in ascending Nr.
type RoundingRule struct {
	ID     string          `json:"id" yaml:"id" validate:"required"`
	Nr     int             `json:"nr,omitempty" yaml:"nr,omitempty"`
	Ranges []RoundingRange `json:"ranges" yaml:"ranges" validate:"required,dive"`
}

// RoundingRange rounds values in [Min, Max).  A nil Min is minus
// infinity; a nil Max is infinity.
type RoundingRange struct {
	Min       *float64 `json:"min,omitempty" yaml:"min,omitempty"`
	Max       *float64 `json:"max,omitempty" yaml:"max,omitempty"`
	Method    string   `json:"method" yaml:"method" validate:"required,oneof=down up commercial extended"`
	Precision float64  `json:"precision" yaml:"precision" validate:"gt=0"`
	AddBefore float64  `json:"addBefore,omitempty" yaml:"addBefore,omitempty"`
	AddAfter  float64  `json:"addAfter,omitempty" yaml:"addAfter,omitempty"`
}

// PackagingRow is the packaging data of an article, or of one of its
// variant conditions.  Each field is multiplied by its factor (1 when
// absent) before it is added.
type PackagingRow struct {
	Article string             `json:"article" yaml:"article" validate:"required"`
	VarCond string             `json:"varcond,omitempty" yaml:"varcond,omitempty"`
	Fields  map[string]float64 `json:"fields" yaml:"fields"`
	Factors map[string]float64 `json:"factors,omitempty" yaml:"factors,omitempty"`
}

// ArticleTax is the base tax category of an article for one tax
// type.
type ArticleTax struct {
	Article  string `json:"article" yaml:"article" validate:"required"`
	TaxType  string `json:"type" yaml:"type" validate:"required"`
	Category string `json:"category" yaml:"category" validate:"required"`
}

// TaxRate is a tax scheme row.  An empty Region applies to the
// whole country.
type TaxRate struct {
	Country  string  `json:"country" yaml:"country" validate:"required,len=2"`
	Region   string  `json:"region,omitempty" yaml:"region,omitempty"`
	TaxType  string  `json:"type" yaml:"type" validate:"required"`
	Category string  `json:"category" yaml:"category" validate:"required"`
	Rate     float64 `json:"rate" yaml:"rate" validate:"gte=0"`
	Text     string  `json:"text,omitempty" yaml:"text,omitempty"`
}

// SchemeKind is the kind of a variant scheme.
type SchemeKind string

const (
	KeyValueList SchemeKind = "keyvalue"
	ValueList    SchemeKind = "values"
	UserDefined  SchemeKind = "user"
)

// VariantScheme describes how the variant code and the final article
// number are rendered.
type VariantScheme struct {
	Name string     `json:"name" yaml:"name" validate:"required"`
	Kind SchemeKind `json:"kind" yaml:"kind" validate:"required,oneof=keyvalue values user"`

	// Visibility 0 renders only valid visible properties; 1
	// renders every configurable property.
	Visibility int `json:"visibility,omitempty" yaml:"visibility,omitempty" validate:"oneof=0 1"`

	InvalidChar    string `json:"invalidChar,omitempty" yaml:"invalidChar,omitempty"`
	UnselectedChar string `json:"unselectedChar,omitempty" yaml:"unselectedChar,omitempty"`
	Trim           bool   `json:"trim,omitempty" yaml:"trim,omitempty"`

	// Separator goes between the base article number and the
	// variant code.
	Separator string `json:"separator,omitempty" yaml:"separator,omitempty"`

	// ValueSeparator goes between values of a ValueList.
	ValueSeparator string `json:"valueSeparator,omitempty" yaml:"valueSeparator,omitempty"`

	MultiSeparator string `json:"multiSeparator,omitempty" yaml:"multiSeparator,omitempty"`
	Before         string `json:"before,omitempty" yaml:"before,omitempty"`
	After          string `json:"after,omitempty" yaml:"after,omitempty"`

	// Tokens is the comma-separated token list of a user-defined
	// scheme.
	Tokens string `json:"tokens,omitempty" yaml:"tokens,omitempty"`

	MaxLen int `json:"maxLen,omitempty" yaml:"maxLen,omitempty" validate:"gte=0"`
}

// TableDoc is a value combination table as written in a catalog
// document.  Each cell is a value or a list of values.
type TableDoc struct {
	Name    string              `json:"name" yaml:"name" validate:"required"`
	Columns []string            `json:"columns" yaml:"columns" validate:"required,min=1"`
	Rows    []map[string]Scalar `json:"rows" yaml:"rows"`
}

func (t *TableDoc) compile() *expr.Table {
	acc := &expr.Table{
		Name:    strings.ToUpper(t.Name),
		Columns: make([]string, len(t.Columns)),
		Rows:    make([]expr.TableRow, 0, len(t.Rows)),
	}
	for i, c := range t.Columns {
		acc.Columns[i] = strings.ToUpper(c)
	}
	for _, row := range t.Rows {
		r := make(expr.TableRow, len(row))
		for col, cell := range row {
			r[strings.ToUpper(col)] = cell.Cell().Elems()
		}
		acc.Rows = append(acc.Rows, r)
	}
	return acc
}
