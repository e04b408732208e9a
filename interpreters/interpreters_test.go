package interpreters

import (
	"testing"

	"github.com/Comcast/ocdrules/expr"
)

func TestStandardSupersets(t *testing.T) {
	is := Standard()
	order := []string{"OCD_1", "OCD_2", "OCD_3", "OCD_4", "SAP_4.6"}
	for i := 1; i < len(order); i++ {
		lo, _ := is.Find(order[i-1])
		hi, _ := is.Find(order[i])
		if hi.Caps&lo.Caps != lo.Caps {
			t.Fatalf("%s is not a superset of %s", hi.Name, lo.Name)
		}
	}
	sap31, _ := is.Find("sap_3.1")
	ocd3, _ := is.Find("OCD_3")
	if sap31.Caps != ocd3.Caps {
		t.Fatal("SAP_3.1")
	}
	if _, have := is.Find("OCD_9"); have {
		t.Fatal("OCD_9")
	}
}

func TestResolveFlags(t *testing.T) {
	is := Standard()
	d, have := is.Resolve("ocd_3", true, "$myvc")
	if !have {
		t.Fatal("not found")
	}
	if !d.Has(expr.CapWildcardIn) || d.Has(expr.CapRangeIn) {
		t.Fatal(d.Caps)
	}
	if d.VarCond != "MYVC" {
		t.Fatal(d.VarCond)
	}

	// The registry itself is untouched.
	if o, _ := is.Find("OCD_3"); o.Has(expr.CapWildcardIn) {
		t.Fatal("registry mutated")
	}

	d, _ = is.Resolve("", false, "")
	if d.Name != "OCD_4" || d.VarCond != expr.DefaultVarCond {
		t.Fatal(d.Name, d.VarCond)
	}
}
