package core

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/Comcast/ocdrules/catalog"
	"github.com/Comcast/ocdrules/expr"
)

func fixture(t *testing.T) *Engine {
	c, err := catalog.Load("../catalogs/schrank.yaml")
	if err != nil {
		t.Fatal(err)
	}
	e, err := NewEngine(c)
	if err != nil {
		t.Fatal(err)
	}
	return e
}

func mini(t *testing.T, doc string) *Engine {
	c, err := catalog.ParseYAML([]byte(doc))
	if err != nil {
		t.Fatal(err)
	}
	if err = c.Compile(nil, true); err != nil {
		t.Fatal(err)
	}
	e, err := NewEngine(c)
	if err != nil {
		t.Fatal(err)
	}
	return e
}

func apply(t *testing.T, e *Engine, st *State, prop string, v expr.Value) *State {
	t.Helper()
	acc, err := e.Apply(context.Background(), st, prop, v)
	if err != nil {
		t.Fatal(err)
	}
	return acc
}

func wantValue(t *testing.T, st *State, prop string, v expr.Value) {
	t.Helper()
	if got := st.Values[prop]; !got.Equal(v) {
		t.Fatalf("%s = %s, want %s", prop, got.Literal(), v.Literal())
	}
}

func TestNotCompiled(t *testing.T) {
	if _, err := NewEngine(&catalog.Catalog{Name: "raw"}); err == nil {
		t.Fatal("expected an error")
	}
}

func TestInitialize(t *testing.T) {
	e := fixture(t)
	ctx := context.Background()

	st, err := e.Initialize(ctx, "0815")
	if err != nil {
		t.Fatal(err)
	}
	wantValue(t, st, "Oberflaeche", expr.Str("03"))
	wantValue(t, st, "Hoehe", expr.Str("5H"))
	if _, have := st.Values["Zubehoer"]; have {
		t.Fatal("optional property without default was seeded")
	}
	// Post-reaction.
	wantValue(t, st, "Kennung", expr.Str("5H/03"))
	if !e.IsComplete(st) {
		t.Fatal(st.Missing, st.Violations)
	}
	if st.ID == "" {
		t.Fatal("no id")
	}

	if _, err = e.Initialize(ctx, "4711"); err == nil {
		t.Fatal("expected an error")
	}
}

func TestInitializeSeeds(t *testing.T) {
	e := fixture(t)
	st, err := e.Initialize(context.Background(), "0816")
	if err != nil {
		t.Fatal(err)
	}
	// The article reaction replaced the default.
	wantValue(t, st, "Oberflaeche", expr.Str("05"))
	// First row of an obligatory interval property.
	wantValue(t, st, "Tiefe", expr.Num(30))
	// Article override.
	wantValue(t, st, "Farbe", expr.Str("SCHWARZ"))
	// Seeded but not valid without Zubehoer = 'GR'.
	if st.IsValid("Griff") || !st.Value("Griff").IsUndefined() {
		t.Fatal("Griff should be invalid")
	}
	// Relation-only properties do not outlive the pass.
	if _, have := st.Values["Hilfe"]; have {
		t.Fatal("Hilfe leaked")
	}
	if _, have := st.Values["Breite"]; have {
		t.Fatal("Breite should not be evaluated")
	}
	if got := st.Domains["Breite"]; !reflect.DeepEqual(got, []expr.Value{expr.Num(60), expr.Num(80)}) {
		t.Fatal(got)
	}
	if e.IsComplete(st) {
		t.Fatal("should be incomplete")
	}
	if len(st.Missing) != 1 || st.Missing[0] != "Korpus.Breite" {
		t.Fatal(st.Missing)
	}
}

func TestInitializeDeterministic(t *testing.T) {
	e := fixture(t)
	ctx := context.Background()
	a, err := e.Initialize(ctx, "0816")
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 5; i++ {
		b, err := e.Initialize(ctx, "0816")
		if err != nil {
			t.Fatal(err)
		}
		b.ID = a.ID
		if !reflect.DeepEqual(a, b) {
			t.Fatalf("%s\n%s", a, b)
		}
	}
}

func TestApply(t *testing.T) {
	e := fixture(t)
	ctx := context.Background()
	st, err := e.Initialize(ctx, "0816")
	if err != nil {
		t.Fatal(err)
	}

	st1 := apply(t, e, st, "Breite", expr.Num(80))
	if !e.IsComplete(st1) {
		t.Fatal(st1.Missing, st1.Violations)
	}
	// Hilfe = 30 * 2, Volumen = Hilfe * 80 / 100.
	wantValue(t, st1, "Volumen", expr.Num(48))
	if _, have := st.Values["Breite"]; have {
		t.Fatal("Apply modified its input")
	}

	// The reaction on Hoehe sets Zubehoer, which makes Griff valid.
	st2 := apply(t, e, st1, "Hoehe", expr.Str("6H"))
	wantValue(t, st2, "Zubehoer", expr.Str("GR"))
	if !st2.IsValid("Griff") {
		t.Fatal("Griff should be valid")
	}
	wantValue(t, st2, "Griff", expr.Str("A"))
	if got := st2.Domains["Breite"]; !reflect.DeepEqual(got, []expr.Value{expr.Num(80)}) {
		t.Fatal(got)
	}
	if !e.IsComplete(st2) {
		t.Fatal(st2.Missing, st2.Violations)
	}

	// Deeper than 50 violates the 6H constraint.
	st3 := apply(t, e, st2, "Tiefe", expr.Num(60))
	if e.IsComplete(st3) || st3.IsConsistent() {
		t.Fatal("expected a violation")
	}
	if !strings.Contains(strings.Join(st3.Violations, "\n"), "tiefe") {
		t.Fatal(st3.Violations)
	}

	// A picked width that the table no longer allows.  The
	// candidates only shrink: [60 80] and the 4H row [40 60] leave 60.
	st4 := apply(t, e, st1, "Hoehe", expr.Str("4H"))
	if st4.IsConsistent() {
		t.Fatal("expected a violation")
	}
	if got := st4.Domains["Breite"]; !reflect.DeepEqual(got, []expr.Value{expr.Num(60)}) {
		t.Fatal(got)
	}
	wantValue(t, st4, "Breite", expr.Num(80))

	// Without a pick the width follows the table.
	st5 := apply(t, e, st, "Hoehe", expr.Str("6H"))
	wantValue(t, st5, "Breite", expr.Num(80))
	if st5.Picked["Breite"] || !e.IsComplete(st5) {
		t.Fatal(st5)
	}
	// Going back to 4H does not bring 40 or 60 back.
	st6 := apply(t, e, st5, "Hoehe", expr.Str("4H"))
	if got := st6.Domains["Breite"]; !reflect.DeepEqual(got, []expr.Value{expr.Num(80)}) {
		t.Fatal(got)
	}
	if st6.IsConsistent() {
		t.Fatal("expected a violation")
	}

	st7, err := e.Reopen(ctx, st6, "Breite")
	if err != nil {
		t.Fatal(err)
	}
	if got := st7.Domains["Breite"]; !reflect.DeepEqual(got, []expr.Value{expr.Num(40), expr.Num(60)}) {
		t.Fatal(got)
	}
	if _, have := st7.Values["Breite"]; have {
		t.Fatal("Breite should be open again")
	}
	if !st7.IsConsistent() {
		t.Fatal(st7.Violations)
	}
	wantValue(t, st7, "Hoehe", expr.Str("4H"))
}

func TestReopen(t *testing.T) {
	e := fixture(t)
	ctx := context.Background()
	st, err := e.Initialize(ctx, "0816")
	if err != nil {
		t.Fatal(err)
	}
	st = apply(t, e, st, "Breite", expr.Num(80))
	st = apply(t, e, st, "Hoehe", expr.Str("4H"))
	before := st.String()

	// The pick survives and is still not possible.
	re, err := e.Reopen(ctx, st, "Breite")
	if err != nil {
		t.Fatal(err)
	}
	if !re.Picked["Breite"] {
		t.Fatal("pick lost")
	}
	wantValue(t, re, "Breite", expr.Num(80))
	if got := re.Domains["Breite"]; !reflect.DeepEqual(got, []expr.Value{expr.Num(40), expr.Num(60)}) {
		t.Fatal(got)
	}
	if re.IsConsistent() {
		t.Fatal("expected a violation")
	}
	if st.String() != before || !reflect.DeepEqual(st.Domains["Breite"], []expr.Value{expr.Num(60)}) {
		t.Fatal("Reopen modified its input")
	}

	// Now 40 can be chosen.
	forty := apply(t, e, re, "Breite", expr.Num(40))
	if !forty.IsConsistent() {
		t.Fatal(forty.Violations)
	}

	if _, err = e.Reopen(ctx, st, "Hoehe"); err == nil {
		t.Fatal("Hoehe is not restrictable")
	}
	_, err = e.Reopen(ctx, st, "Nope")
	if _, is := err.(*catalog.UnknownProperty); !is {
		t.Fatal(err)
	}
}

func TestReject(t *testing.T) {
	e := fixture(t)
	ctx := context.Background()
	st, err := e.Initialize(ctx, "0816")
	if err != nil {
		t.Fatal(err)
	}
	low := apply(t, e, st, "Hoehe", expr.Str("4H"))

	tests := []struct {
		st     *State
		prop   string
		v      expr.Value
		reason string
	}{
		{st, "Kennung", expr.Str("x"), ReasonNotConfigurable},
		{st, "Griff", expr.Str("B"), ReasonInvalid},
		{st, "Hoehe", expr.Undef, ReasonObligatory},
		{st, "Hoehe", expr.Num(5), ReasonType},
		{st, "Hoehe", expr.SetOf(expr.Str("4H"), expr.Str("5H")), ReasonNotMultiValued},
		{st, "Oberflaeche", expr.Str("99"), ReasonNoRow},
		{st, "Tiefe", expr.Num(65), ReasonNoRow},
		{st, "Tiefe", expr.Num(45), ReasonNoRow},
		{st, "Breite", expr.Num(40), ReasonRestricted},
		{low, "Oberflaeche", expr.Str("07"), ReasonNotLegal},
		{low, "Zubehoer", expr.Str("SO"), ReasonNotLegal},
	}
	for _, tc := range tests {
		before := tc.st.String()
		_, err := e.Apply(ctx, tc.st, tc.prop, tc.v)
		var r *Rejected
		if !errors.As(err, &r) {
			t.Fatalf("%s = %s: %v", tc.prop, tc.v.Literal(), err)
		}
		if r.Reason != tc.reason {
			t.Fatalf("%s = %s: %s", tc.prop, tc.v.Literal(), r.Reason)
		}
		if before != tc.st.String() {
			t.Fatal("rejected change modified the state")
		}
	}

	_, err = e.Apply(ctx, st, "Nope", expr.Str("x"))
	if _, is := err.(*catalog.UnknownProperty); !is {
		t.Fatal(err)
	}
}

func TestIllegalValueDropped(t *testing.T) {
	e := fixture(t)
	ctx := context.Background()
	st, err := e.Initialize(ctx, "0815")
	if err != nil {
		t.Fatal(err)
	}
	st = apply(t, e, st, "Zubehoer", expr.Str("SO"))
	st = apply(t, e, st, "Oberflaeche", expr.Str("07"))
	st = apply(t, e, st, "Hoehe", expr.Str("4H"))

	// SO is not allowed with 4H and Zubehoer is optional.
	if _, have := st.Values["Zubehoer"]; have {
		t.Fatal(st.Values["Zubehoer"])
	}
	// 07 is not allowed either; Oberflaeche is obligatory.
	wantValue(t, st, "Oberflaeche", expr.Str("03"))

	vs, err := e.Domain(st, "Oberflaeche")
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(vs, []expr.Value{expr.Str("03"), expr.Str("05")}) {
		t.Fatal(vs)
	}
}

func TestDomain(t *testing.T) {
	e := fixture(t)
	st, err := e.Initialize(context.Background(), "0816")
	if err != nil {
		t.Fatal(err)
	}
	vs, err := e.Domain(st, "Tiefe")
	if err != nil {
		t.Fatal(err)
	}
	want := []expr.Value{expr.Num(30), expr.Num(40), expr.Num(50), expr.Num(60)}
	if !reflect.DeepEqual(vs, want) {
		t.Fatal(vs)
	}
	if vs, _ = e.Domain(st, "Breite"); len(vs) != 2 {
		t.Fatal(vs)
	}
	if _, err = e.Domain(st, "Nope"); err == nil {
		t.Fatal("expected an error")
	}
}

func TestReset(t *testing.T) {
	e := fixture(t)
	ctx := context.Background()
	st, err := e.Initialize(ctx, "0815")
	if err != nil {
		t.Fatal(err)
	}
	changed := apply(t, e, st, "Hoehe", expr.Str("6H"))
	reset, err := e.Reset(ctx, changed)
	if err != nil {
		t.Fatal(err)
	}
	if reset.ID != st.ID {
		t.Fatal("id changed")
	}
	if !reflect.DeepEqual(reset.Values, st.Values) {
		t.Fatal(reset.Values)
	}
}

func TestTraces(t *testing.T) {
	e := fixture(t)
	e.Control = &Control{Limit: 8, Trace: true}
	ctx := context.Background()
	st, err := e.Initialize(ctx, "0815")
	if err != nil {
		t.Fatal(err)
	}
	stride, err := e.Step(ctx, st, &Change{Property: "Hoehe", Value: expr.Str("6H")})
	if err != nil {
		t.Fatal(err)
	}
	if stride.StopReason != Done || stride.Rounds < 1 {
		t.Fatal(stride.StopReason, stride.Rounds)
	}
	found := false
	for _, m := range stride.Traces.Messages {
		if s, is := m.(string); is && strings.Contains(s, "Zubehoer") {
			found = true
		}
	}
	if !found {
		t.Fatal(stride.Traces.Messages)
	}
	if stride.From.Values["Hoehe"].Str != "5H" || stride.To.Values["Hoehe"].Str != "6H" {
		t.Fatal(stride.From, stride.To)
	}
}

func TestLimited(t *testing.T) {
	e := mini(t, `
name: flip
articles: [{id: A, classes: [K]}]
classes:
  - name: K
    relation: RK
    properties:
      - {name: N, type: num, scope: RV}
relations:
  - id: RK
    relations:
      - {kind: action, source: "N = N + 1"}
`)
	e.Control = &Control{Limit: 3}
	st, err := e.Initialize(context.Background(), "A")
	if err != nil {
		t.Fatal(err)
	}
	wantValue(t, st, "N", expr.Num(3))
}
