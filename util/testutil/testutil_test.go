package testutil

import (
	"reflect"
	"testing"

	"github.com/Comcast/ocdrules/expr"
)

func TestJS(t *testing.T) {
	vals := map[string]expr.Value{
		"Breite": expr.Num(80),
		"Extras": expr.SetOf(expr.Str("L"), expr.Str("T")),
		"Hoehe":  expr.Undef,
	}
	if got := JS(vals); got != `{"Breite":80,"Extras":["L","T"],"Hoehe":null}` {
		t.Fatal(got)
	}

	// Unencodable input comes back Go-syntax.
	if got := JS(func() {}); got == "" {
		t.Fatal("empty")
	}
}

func TestDwimjs(t *testing.T) {
	tests := []struct {
		arg  interface{}
		want interface{}
	}{
		{`{"total":"110"}`, map[string]interface{}{"total": "110"}},
		{[]byte(`[40,60]`), []interface{}{40.0, 60.0}},
		{"Korpus.Breite", "Korpus.Breite"},
		{42, 42},
	}
	for _, tc := range tests {
		if got := Dwimjs(tc.arg); !reflect.DeepEqual(got, tc.want) {
			t.Fatalf("%#v: %#v", tc.arg, got)
		}
	}
}

func TestLines(t *testing.T) {
	got := Lines(`
		Breite = 80

		  $VARCOND = 'B80'
	`)
	if !reflect.DeepEqual(got, []string{"Breite = 80", "$VARCOND = 'B80'"}) {
		t.Fatal(got)
	}
}
