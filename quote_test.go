package ocdrules

import (
	"context"
	"errors"
	"testing"

	"github.com/Comcast/ocdrules/catalog"
	"github.com/Comcast/ocdrules/core"
	"github.com/Comcast/ocdrules/expr"
	"github.com/Comcast/ocdrules/pricing"

	"github.com/shopspring/decimal"
)

func TestMakeQuote(t *testing.T) {
	c, err := catalog.Load("catalogs/schrank.yaml")
	if err != nil {
		t.Fatal(err)
	}
	e, err := core.NewEngine(c)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	when, _ := catalog.ParseDate("2026-06-01")
	req := QuoteRequest{
		Price:   pricing.Request{Date: when},
		Country: "DE",
	}

	st, err := e.Initialize(ctx, "0816")
	if err != nil {
		t.Fatal(err)
	}
	if _, err = MakeQuote(ctx, e, st, req); !errors.Is(err, ErrNotComplete) {
		t.Fatal(err)
	}

	if st, err = e.Apply(ctx, st, "Breite", expr.Num(80)); err != nil {
		t.Fatal(err)
	}
	q, err := MakeQuote(ctx, e, st, req)
	if err != nil {
		t.Fatal(err)
	}
	if q.FinalArticleNumber != "0816-055HXX80 30SCHWARZXXXXX" {
		t.Fatalf("%q", q.FinalArticleNumber)
	}
	if !q.Price.Total.Equal(decimal.NewFromInt(235)) {
		t.Fatal(q.Price.Total)
	}
	if q.Packaging == nil || q.Packaging.Fields["weight"] != 40 {
		t.Fatal(q.Packaging)
	}
	if q.TaxCategories["VAT"] != "standard" {
		t.Fatal(q.TaxCategories)
	}
	if q.Tax == nil || !q.Tax.Total.Equal(decimal.RequireFromString("44.65")) {
		t.Fatal(q.Tax)
	}

	st, err = e.Initialize(ctx, "0815")
	if err != nil {
		t.Fatal(err)
	}
	q, err = MakeQuote(ctx, e, st, QuoteRequest{Price: pricing.Request{Date: when}})
	if err != nil {
		t.Fatal(err)
	}
	if q.Packaging != nil || q.Tax != nil {
		t.Fatal("unexpected packaging or tax")
	}
	if q.FinalArticleNumber != "0815-Schrank.Oberflaeche=03;Schrank.Hoehe=5H;Zubehoer=VOID" {
		t.Fatal(q.FinalArticleNumber)
	}
}
