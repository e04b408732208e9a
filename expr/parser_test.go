package expr

import (
	"errors"
	"testing"
)

var ocd1 = &Dialect{Name: "OCD_1", VarCond: DefaultVarCond}

func TestParseRoundTrip(t *testing.T) {
	tests := []struct {
		src  string
		want string
	}{
		{"a = 1 and b = 'x'", "((a = 1) and (b = 'x'))"},
		{"A.B <> 2 or not C", "((A.B <> 2) or not C)"},
		{"X not in (1, 2 - 5)", "X not in (1, 2 - 5)"},
		{"specified Schrank.Hoehe", "specified(Schrank.Hoehe)"},
		{"$self.Breite * 2", "($self.Breite * 2)"},
		{"$varcond", "$VARCOND"},
		{"'it''s'", "'it''s'"},
		{"-3", "-3"},
		{"a != b", "(a <> b)"},
		{"round(x, 2)", "round(x, 2)"},
		{"table T(A = ?S.A)", "table T(A = ?S.A)"},
	}
	for _, test := range tests {
		n, err := ParseExpr(test.src, Full)
		if err != nil {
			t.Fatalf("%s: %s", test.src, err)
		}
		if got := n.String(); got != test.want {
			t.Fatalf("%s: got %s", test.src, got)
		}
	}
}

func TestParseKeywordsCaseInsensitive(t *testing.T) {
	n, err := ParseExpr("A IN ('x') AND NOT B = 1 OR Specified C", Full)
	if err != nil {
		t.Fatal(err)
	}
	if _, is := n.(*Binary); !is {
		t.Fatalf("%T", n)
	}
}

func TestParseSyntaxErrors(t *testing.T) {
	for _, src := range []string{
		"",
		"a =",
		"(a = 1",
		"a = 'open",
		"a in 1",
		"nope(1)",
		"round()",
		"a # b",
		"and = 1",
	} {
		_, err := ParseExpr(src, Full)
		var se *SyntaxError
		if !errors.As(err, &se) {
			t.Fatalf("%q: %v", src, err)
		}
	}
}

func TestParseDialects(t *testing.T) {
	ocd2 := &Dialect{Name: "OCD_2", Caps: CapStringFuncs | CapConcat}
	for _, test := range []struct {
		src string
		d   *Dialect
		ok  bool
	}{
		{"a || b = 'x'", ocd1, false},
		{"a || b = 'x'", ocd2, true},
		{"substr(a, 1) = 'x'", ocd1, false},
		{"substr(a, 1) = 'x'", ocd2, true},
		{"round(a) = 1", ocd1, true},
		{"table T(A = 1)", ocd2, false},
		{"$parent.A = 1", ocd2, false},
		{"$parent = 1", ocd2, true},
	} {
		_, err := ParseExpr(test.src, test.d)
		if test.ok && err != nil {
			t.Fatalf("%s in %s: %s", test.src, test.d.Name, err)
		}
		if !test.ok {
			var ue *UnsupportedError
			if !errors.As(err, &ue) {
				t.Fatalf("%s in %s: %v", test.src, test.d.Name, err)
			}
		}
	}

	// Without range support "1 - 5" is just arithmetic.
	n, err := ParseExpr("x in (1 - 5)", ocd1)
	if err != nil {
		t.Fatal(err)
	}
	if it := n.(*In).Items[0]; it.Hi != nil {
		t.Fatal("range in OCD_1")
	}

	// Without wildcard support '*' is an ordinary character.
	n, err = ParseExpr("x in ('A*')", ocd1)
	if err != nil {
		t.Fatal(err)
	}
	if n.(*In).Items[0].Wildcard {
		t.Fatal("wildcard in OCD_1")
	}
}

func TestParseProgram(t *testing.T) {
	p, err := ParseProgram("a = 1, b = 2 if a = 1; $V = 'x' ;", Full)
	if err != nil {
		t.Fatal(err)
	}
	if len(p.Stmts) != 3 {
		t.Fatal(len(p.Stmts))
	}
	if p.Stmts[1].Cond == nil {
		t.Fatal("lost guard")
	}
	if _, is := p.Stmts[2].Target.(*Var); !is {
		t.Fatalf("%T", p.Stmts[2].Target)
	}
	if ws := p.Writes(); len(ws) != 2 || ws[0].Name != "a" || ws[1].Name != "b" {
		t.Fatal(ws)
	}
	if rs := p.Reads(); len(rs) != 1 || rs[0].Name != "a" {
		t.Fatal(rs)
	}

	if _, err := ParseProgram("1 = a", Full); err == nil {
		t.Fatal("expected an error")
	}
}

func TestParseConstraint(t *testing.T) {
	src := `
objects: ?S is_a Schrank, ?Z is_a Zubehoer
condition: ?S.Hoehe = '5H'
restrictions: ?S.Breite in (60, 80) if ?S.Tiefe > 40,
              table MASSE(HOEHE = ?S.Hoehe, BREITE = ?S.Breite)
inferences: ?S.Breite.`

	c, err := ParseConstraint(src, Full)
	if err != nil {
		t.Fatal(err)
	}
	if len(c.Objects) != 2 || c.Objects[0].Var != "?S" || c.Objects[1].Class != "Zubehoer" {
		t.Fatal(c.Objects)
	}
	if c.Condition == nil {
		t.Fatal("no condition")
	}
	if len(c.Restrictions) != 2 || c.Restrictions[0].Cond == nil || c.Restrictions[1].Cond != nil {
		t.Fatal(c.Restrictions)
	}
	if !c.Infers(&Ref{Qualifier: "?S", Name: "Breite"}) {
		t.Fatal("inference")
	}
	if c.Infers(&Ref{Qualifier: "?S", Name: "Hoehe"}) {
		t.Fatal("inference")
	}
	if rs := c.Reads(); len(rs) != 5 {
		t.Fatal(len(rs))
	}

	for _, bad := range []string{
		"condition: a = 1",
		"restrictions: a = 1 restrictions: b = 2",
		"bogus: a = 1",
		"objects: S is_a X restrictions: a = 1",
	} {
		if _, err := ParseConstraint(bad, Full); err == nil {
			t.Fatalf("%q: expected an error", bad)
		}
	}
}
