package crew

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/Comcast/ocdrules/catalog"
	"github.com/Comcast/ocdrules/core"
	"github.com/Comcast/ocdrules/expr"
)

func TestCrew(t *testing.T) {
	cat, err := catalog.Load("../catalogs/schrank.yaml")
	if err != nil {
		t.Fatal(err)
	}
	e, err := core.NewEngine(cat)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	c, err := New(ctx, e, "SET1")
	if err != nil {
		t.Fatal(err)
	}
	if got := c.Positions(); !reflect.DeepEqual(got, []int{1}) {
		t.Fatal(got)
	}
	if !c.IsComplete(e) {
		t.Fatal("should be complete")
	}

	if err = c.Apply(ctx, e, "Ausfuehrung", expr.Str("LUX")); err != nil {
		t.Fatal(err)
	}
	if got := c.Positions(); !reflect.DeepEqual(got, []int{1, 2}) {
		t.Fatal(got)
	}
	// The first member reads $root.Ausfuehrung.
	if got := c.Members[1].State.Values["Oberflaeche"]; !got.Equal(expr.Str("07")) {
		t.Fatal(got)
	}
	if c.Members[2].State.Parent != c.Parent {
		t.Fatal("bad parent")
	}
	// 0816 needs a width.
	if c.IsComplete(e) {
		t.Fatal("should be incomplete")
	}
	if err = c.ApplyMember(ctx, e, 2, "Breite", expr.Num(60)); err != nil {
		t.Fatal(err)
	}
	if !c.IsComplete(e) {
		t.Fatal("should be complete")
	}

	saved := c.Copy()
	err = c.Apply(ctx, e, "Ausfuehrung", expr.Str("GOLD"))
	var r *core.Rejected
	if !errors.As(err, &r) {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(saved.Positions(), c.Positions()) {
		t.Fatal("rejected change modified the crew")
	}

	if err = c.Apply(ctx, e, "Ausfuehrung", expr.Str("STD")); err != nil {
		t.Fatal(err)
	}
	if got := c.Positions(); !reflect.DeepEqual(got, []int{1}) {
		t.Fatal(got)
	}
	if err = c.ApplyMember(ctx, e, 2, "Breite", expr.Num(60)); err == nil {
		t.Fatal("expected an error")
	}
}
