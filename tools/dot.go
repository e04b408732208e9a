package tools

// dot -Tpng g.dot > g.png

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/Comcast/ocdrules/catalog"
	"github.com/Comcast/ocdrules/expr"
	"github.com/Comcast/ocdrules/util"
)

// Dot makes a Graphviz dot file for the given article: its classes,
// their properties, the relation objects bound along the way, and
// the positions of a composite.  Dotted edges go from a relation
// object to the properties its relations read or write.
//
// The empty article means every article in the catalog.
func Dot(c *catalog.Catalog, w io.WriteCloser, article string) error {
	articles := c.Articles
	if article != "" {
		a, err := c.Article(article)
		if err != nil {
			w.Close()
			return err
		}
		articles = []*catalog.Article{a}
	}

	util.Logf("processing %d articles", len(articles))

	fmt.Fprintf(w, "digraph G {\n")
	fmt.Fprintf(w, `  graph [ordering=out,rankdir=LR,nodesep=0.3,ranksep=0.6]
  node [shape="record" style="rounded,filled"]
  edge [fontsize = "12"]
`)

	seen := make(map[string]bool)
	node := func(id, shape, fillcolor, label string) {
		if seen[id] {
			return
		}
		seen[id] = true
		fmt.Fprintf(w, "  \"%s\" [shape=\"%s\", style=\"filled\", fillcolor=\"%s\", label=<%s> ]\n",
			escape(id), shape, fillcolor, label)
	}
	edge := func(from, to, style, label string) {
		fmt.Fprintf(w, "  \"%s\" -> \"%s\" [ style=\"%s\" label = <%s> ]\n",
			escape(from), escape(to), style, label)
	}

	// Property node ids by name, for the dotted edges.
	props := make(map[string][]string, 32)

	relation := func(owner, id string) {
		o := c.RelationObject(id)
		if o == nil {
			return
		}
		rid := "relation " + id
		if !seen[rid] {
			label := html(id)
			for _, r := range o.Relations {
				label += `<FONT POINT-SIZE="8"><BR ALIGN="LEFT"/>` + html(string(r.Kind))
				if r.Usage != catalog.Configuration {
					label += " (" + html(string(r.Usage)) + ")"
				}
				label += `</FONT>`
			}
			node(rid, "note", "#bcf2db", label)
		}
		edge(owner, rid, "dashed", "")
	}

	var process func(a *catalog.Article)
	process = func(a *catalog.Article) {
		aid := "article " + a.ID
		if seen[aid] {
			return
		}
		label := "<B>" + html(a.ID) + "</B>"
		if a.Text != "" {
			label += `<BR/><FONT POINT-SIZE="8">` + html(a.Text) + `</FONT>`
		}
		node(aid, "box", "#2d93ad", label)
		relation(aid, a.Relation)

		for _, name := range a.Classes {
			cl, have := c.Class(name)
			if !have {
				continue
			}
			cid := "class " + cl.Name
			if !seen[cid] {
				node(cid, "folder", "#52aa5e", html(cl.Name))
				relation(cid, cl.Relation)
				for _, p := range cl.Properties {
					pid := "property " + p.Key()
					label := html(p.Name)
					if p.Obligatory {
						label = "<B>" + label + "</B>"
					}
					label += `<FONT POINT-SIZE="8"><BR/>` + html(string(p.Type)) + " " + html(string(p.Scope)) + `</FONT>`
					node(pid, "record", "#99ddc8", label)
					edge(cid, pid, "solid", "")
					relation(pid, p.Relation)
					for _, v := range p.Values {
						relation(pid, v.Relation)
					}
					props[p.Name] = append(props[p.Name], pid)
				}
			}
			edge(aid, cid, "solid", "")
		}

		for _, it := range a.Items {
			sub, have := lookup(c, it.Article)
			if !have {
				continue
			}
			process(sub)
			relation(aid, it.Relation)
			edge(aid, "article "+sub.ID, "bold", fmt.Sprintf("%d", it.Position))
		}
	}
	for _, a := range articles {
		process(a)
	}

	// Relation objects to the properties they mention.
	for _, o := range c.Relations {
		rid := "relation " + o.ID
		if !seen[rid] {
			continue
		}
		linked := make(map[string]bool)
		for _, r := range o.Relations {
			for _, n := range relationNodes(r) {
				expr.Walk(n, func(x expr.Node) {
					ref, is := x.(*expr.Ref)
					if !is {
						return
					}
					for _, pid := range props[ref.Name] {
						if !linked[pid] {
							linked[pid] = true
							edge(rid, pid, "dotted", "")
						}
					}
				})
			}
		}
	}

	fmt.Fprintf(w, "}\n")
	return w.Close()
}

// PNG generates a PNG image based on output from Dot.
//
// This function with write two files: basename.dot and basename.png,
// where the basename is the given string.
func PNG(c *catalog.Catalog, basename string, article string) (string, error) {
	dotname := basename + ".dot"
	pngname := basename + ".png"

	dotfile, err := os.Create(dotname)
	if err != nil {
		return pngname, err
	}
	if err := Dot(c, dotfile, article); err != nil {
		return pngname, err
	}
	if err := exec.Command("dot", "-Tpng", "-o", pngname, dotname).Run(); err != nil {
		return pngname, err
	}
	return pngname, nil
}

func lookup(c *catalog.Catalog, id string) (*catalog.Article, bool) {
	a, err := c.Article(id)
	return a, err == nil
}

func escape(s string) string {
	return strings.Replace(s, `"`, `\"`, -1)
}

// html escapes text for a Graphviz HTML-like label.
func html(s string) string {
	s = strings.Replace(s, "&", "&amp;", -1)
	s = strings.Replace(s, "<", "&lt;", -1)
	s = strings.Replace(s, ">", "&gt;", -1)
	return s
}
