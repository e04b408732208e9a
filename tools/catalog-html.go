package tools

import (
	"bytes"
	"fmt"
	"html/template"
	"io"

	"github.com/Comcast/ocdrules/catalog"
	. "github.com/Comcast/ocdrules/util/testutil"

	md "github.com/russross/blackfriday/v2"
)

// RenderCatalogHTML writes the articles, classes, relations and
// tables of a catalog as HTML.  Doc strings are Markdown.
func RenderCatalogHTML(c *catalog.Catalog, out io.Writer) error {
	f := func(format string, args ...interface{}) {
		fmt.Fprintf(out, format+"\n", args...)
	}
	esc := template.HTMLEscapeString

	f(`<div class="catalogDoc doc">%s</div>`, md.Run([]byte(c.Doc)))

	{ // Articles
		f(`<div class="articles"><table>`)
		for _, a := range c.Articles {
			f(`<tr class="article"><td><span id="article-%s" class="articleId">%s</span></td><td>`, esc(a.ID), esc(a.ID))
			f(`<div class="articleKind">%s</div>`, a.Kind)
			if a.Text != "" {
				f(`<div class="text">%s</div>`, esc(a.Text))
			}
			if a.Doc != "" {
				f(`<div class="articleDoc doc">%s</div>`, md.Run([]byte(a.Doc)))
			}
			for _, name := range a.Classes {
				f(`<a href="#class-%s"><code>%s</code></a>`, esc(name), esc(name))
			}
			if a.Relation != "" {
				f(`<div>relations <a href="#relation-%s"><code>%s</code></a></div>`, esc(a.Relation), esc(a.Relation))
			}
			if 0 < len(a.Overrides) {
				f(`<div>overrides <code>%s</code></div>`, esc(JS(a.Overrides)))
			}
			if 0 < len(a.Items) {
				f(`<table class="items">`)
				for _, it := range a.Items {
					f(`<tr><td>%d</td><td><a href="#article-%s"><code>%s</code></a></td><td>%g</td></tr>`,
						it.Position, esc(it.Article), esc(it.Article), it.Quantity)
				}
				f(`</table>`)
			}
			f(`</td></tr>`)
		}
		f(`</table></div>`)
	}

	{ // Classes
		f(`<div class="classes"><table>`)
		for _, cl := range c.Classes {
			f(`<tr class="class"><td><span id="class-%s" class="className">%s</span></td><td>`, esc(cl.Name), esc(cl.Name))
			if cl.Doc != "" {
				f(`<div class="classDoc doc">%s</div>`, md.Run([]byte(cl.Doc)))
			}
			f(`<table class="properties">`)
			for _, p := range cl.Properties {
				f(`<tr><td><span class="propertyName">%s</span></td><td>%s</td><td>%s</td><td>`,
					esc(p.Name), p.Type, p.Scope)
				if p.Text != "" {
					f(`<div class="text">%s</div>`, esc(p.Text))
				}
				if p.Doc != "" {
					f(`<div class="propertyDoc doc">%s</div>`, md.Run([]byte(p.Doc)))
				}
				for _, v := range p.Values {
					cls := "value"
					if v.Default {
						cls += " default"
					}
					f(`<span class="%s"><code>%s</code></span>`, cls, esc(v.V().Literal()))
				}
				f(`</td></tr>`)
			}
			f(`</table>`)
			f(`</td></tr>`)
		}
		f(`</table></div>`)
	}

	{ // Relations
		f(`<div class="relations"><table>`)
		for _, o := range c.Relations {
			f(`<tr class="relationObject"><td><span id="relation-%s" class="relationId">%s</span></td><td>`, esc(o.ID), esc(o.ID))
			if o.Doc != "" {
				f(`<div class="relationDoc doc">%s</div>`, md.Run([]byte(o.Doc)))
			}
			f(`<table>`)
			for i, r := range o.Relations {
				f(`<tr><td><div class="relationNum">%d</div></td><td>%s</td><td>%s</td>`, i, r.Kind, r.Usage)
				f(`<td><div class="code"><pre>%s</pre></div></td></tr>`, esc(r.Source))
			}
			f(`</table>`)
			f(`</td></tr>`)
		}
		f(`</table></div>`)
	}

	{ // Tables
		f(`<div class="tables">`)
		for _, t := range c.Tables {
			f(`<table class="valueTable" id="table-%s"><caption>%s</caption><tr>`, esc(t.Name), esc(t.Name))
			for _, col := range t.Columns {
				f(`<th>%s</th>`, esc(col))
			}
			f(`</tr>`)
			for _, row := range t.Rows {
				f(`<tr>`)
				for _, col := range t.Columns {
					f(`<td><code>%s</code></td>`, esc(JS(row[col])))
				}
				f(`</tr>`)
			}
			f(`</table>`)
		}
		f(`</div>`)
	}

	return nil
}

func RenderCatalogPage(c *catalog.Catalog, out io.Writer, cssFiles []string, includeGraph bool) error {

	if cssFiles == nil {
		cssFiles = []string{"/static/catalog-html.css"}
	}

	title := template.HTMLEscapeString(c.Name)
	if c.Version != "" {
		title += " " + template.HTMLEscapeString(c.Version)
	}

	fmt.Fprintf(out, `<!DOCTYPE html>
<meta charset="utf-8">
<html>
  <head>
  <title>%s</title>
`, title)

	if includeGraph {
		fmt.Fprintf(out, `
  <script src="https://cdn.jsdelivr.net/npm/mermaid@10/dist/mermaid.min.js"></script>
  <script>mermaid.initialize({startOnLoad: true});</script>
`)
	}

	for _, cssFile := range cssFiles {
		fmt.Fprintf(out, "  <link href=\"%s\" rel=\"stylesheet\">\n", cssFile)
	}

	fmt.Fprintf(out, `
  </head>
  <body>
    <h1>%s</h1>
`, title)

	if includeGraph {
		var g bytes.Buffer
		if err := Mermaid(c, nopCloser{&g}, nil, ""); err != nil {
			return err
		}
		fmt.Fprintf(out, "<div id=\"graph\" class=\"mermaid\">\n%s</div>\n", g.String())
	}

	if err := RenderCatalogHTML(c, out); err != nil {
		return err
	}

	fmt.Fprintf(out, `
  </body>
</html>
`)

	return nil
}

func ReadAndRenderCatalogPage(filename string, cssFiles []string, out io.Writer, includeGraph bool) error {
	c, err := catalog.Load(filename)
	if err != nil {
		return err
	}
	return RenderCatalogPage(c, out, cssFiles, includeGraph)
}

type nopCloser struct {
	io.Writer
}

func (nopCloser) Close() error {
	return nil
}
