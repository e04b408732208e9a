package tools

import (
	"reflect"
	"testing"

	"github.com/Comcast/ocdrules/catalog"
)

func TestAnalysis(t *testing.T) {
	c, err := catalog.Load("../catalogs/schrank.yaml")
	if err != nil {
		t.Fatal(err)
	}

	a, err := Analyze(c)
	if err != nil {
		t.Fatal(err)
	}
	if a.Articles != 4 || a.Classes != 3 {
		t.Fatal(a.Articles, a.Classes)
	}
	if a.Kinds[catalog.Constraint] != 2 {
		t.Fatal(a.Kinds)
	}
	if fs := a.Findings(); len(fs) != 0 {
		t.Fatal(fs)
	}
}

func TestAnalysisFindings(t *testing.T) {
	c, err := catalog.ParseYAML([]byte(`
name: lint
articles:
  - {id: A, classes: [K]}
classes:
  - name: K
    relation: RK
    properties:
      - {name: P, values: [{value: X}]}
      - {name: H, scope: R}
  - name: Spare
relations:
  - id: RK
    relations:
      - kind: action
        source: "P = Q"
      - kind: constraint
        source: |
          objects: ?K is_a K
          restrictions: table NOPE(COL = ?K.P), ?K.Missing = 'X'.
  - id: LOOSE
    relations:
      - kind: precondition
        source: "P = 'X'"
`))
	if err != nil {
		t.Fatal(err)
	}
	if err = c.Compile(nil, true); err != nil {
		t.Fatal(err)
	}

	a, err := Analyze(c)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(a.UnusedClasses, []string{"Spare"}) {
		t.Fatal(a.UnusedClasses)
	}
	if !reflect.DeepEqual(a.UnusedProperties, []string{"K.H"}) {
		t.Fatal(a.UnusedProperties)
	}
	if !reflect.DeepEqual(a.UnboundRelations, []string{"LOOSE"}) {
		t.Fatal(a.UnboundRelations)
	}
	if !reflect.DeepEqual(a.UnknownRefs, []string{"RK: ?K.Missing", "RK: Q"}) {
		t.Fatal(a.UnknownRefs)
	}
	if !reflect.DeepEqual(a.UnknownTables, []string{"RK: NOPE"}) {
		t.Fatal(a.UnknownTables)
	}
	if !reflect.DeepEqual(a.Unpriced, []string{"A"}) {
		t.Fatal(a.Unpriced)
	}
	fs := a.Findings()
	if len(fs) != 7 {
		t.Fatal(fs)
	}
	if fs[0] != "unused class: Spare" || fs[6] != "no base price: A" {
		t.Fatal(fs)
	}
}

func TestAnalysisNotCompiled(t *testing.T) {
	c, err := catalog.ParseYAML([]byte("name: raw\narticles: []\n"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err = Analyze(c); err == nil {
		t.Fatal("expected an error")
	}
}
