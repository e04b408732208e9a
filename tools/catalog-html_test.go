package tools

import (
	"bytes"
	"strings"
	"testing"
)

func TestRenderCatalogHTML(t *testing.T) {

	t.Run("withoutGraph", func(t *testing.T) {
		out := bytes.NewBuffer(make([]byte, 0, 1024*128))

		err := ReadAndRenderCatalogPage("../catalogs/schrank.yaml", []string{"catalog.css"}, out, false)

		if err != nil {
			t.Fatal(err)
		}
		page := out.String()
		for _, want := range []string{
			`<title>moebel 2026.1</title>`,
			`<strong>0815</strong>`,
			`<span id="class-Korpus" class="className">Korpus</span>`,
			`<span class="value default"><code>&#39;03&#39;</code></span>`,
			`<caption>MASSE</caption>`,
		} {
			if !strings.Contains(page, want) {
				t.Fatalf("missing %s", want)
			}
		}
		if strings.Contains(page, "mermaid") {
			t.Fatal("unexpected graph")
		}
	})

	t.Run("withGraph", func(t *testing.T) {
		out := bytes.NewBuffer(make([]byte, 0, 1024*128))

		err := ReadAndRenderCatalogPage("../catalogs/schrank.yaml", []string{"catalog.css"}, out, true)

		if err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(out.String(), `<div id="graph" class="mermaid">`) {
			t.Fatal("no graph")
		}
	})

}
