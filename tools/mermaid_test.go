package tools

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Comcast/ocdrules/catalog"
	. "github.com/Comcast/ocdrules/util/testutil"
)

func TestMermaid(t *testing.T) {
	c, err := catalog.Load("../catalogs/schrank.yaml")
	if err != nil {
		t.Fatal(err)
	}

	filename := filepath.Join(t.TempDir(), "g.mermaid")
	out, err := os.Create(filename)
	if err != nil {
		t.Fatal(err)
	}
	if err := Mermaid(c, out, nil, "SET1"); err != nil {
		t.Fatal(err)
	}

	bs, err := os.ReadFile(filename)
	if err != nil {
		t.Fatal(err)
	}
	g := string(bs)
	if !strings.HasPrefix(g, "graph TB\n") {
		t.Fatal(g)
	}
	// SET1 is n1, its class Set is n2 and Ausfuehrung n3.
	for _, want := range []string{
		`n1["SET1<br/>Schrankset"]`,
		`n2("Set")`,
		`n1 -- "1 x2" -->`,
		`n1 -- "2 x1" -->`,
	} {
		if !strings.Contains(g, want) {
			t.Fatalf("missing %s in\n%s", want, g)
		}
	}
	for _, line := range Lines(g)[1:] {
		if !strings.HasPrefix(line, "n") && !strings.HasPrefix(line, "style n") {
			t.Fatalf("unexpected line %q", line)
		}
	}
	// Schrank is shared by both positions.
	if n := strings.Count(g, `("Schrank")`); n != 1 {
		t.Fatal(n)
	}
}
