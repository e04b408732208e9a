/* Copyright 2018 Comcast Cable Communications Management, LLC
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 * http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package tools

import (
	"fmt"
	"io"
	"strings"

	"github.com/Comcast/ocdrules/catalog"
	"github.com/Comcast/ocdrules/util"
)

type MermaidOpts struct {
	// ShowProperties adds the properties of each class.
	ShowProperties bool `json:"showProperties"`

	// ClassFill is the fill color of class nodes.
	ClassFill string `json:"classFill,omitempty"`

	// ItemFill is the fill color of bill-of-items articles.
	ItemFill string `json:"itemFill,omitempty"`
}

// Mermaid makes a Mermaid (https://mermaidjs.github.io/) input file
// for the structure of an article: its classes and, for a composite,
// its positions.  The empty article means every article.
func Mermaid(c *catalog.Catalog, w io.WriteCloser, opts *MermaidOpts, article string) error {

	if opts == nil {
		opts = &MermaidOpts{
			ShowProperties: true,
			ClassFill:      "#bcf2db",
			ItemFill:       "#99ddc8",
		}
	}

	articles := c.Articles
	if article != "" {
		a, err := c.Article(article)
		if err != nil {
			w.Close()
			return err
		}
		articles = []*catalog.Article{a}
	}

	fmt.Fprintf(w, "graph TB\n")

	nids := make(map[string]string)
	num := 0

	node := func(key, label, fill string, round bool) (string, bool) {
		if nid, already := nids[key]; already {
			return nid, false
		}
		num++
		nid := fmt.Sprintf("n%d", num)
		nids[key] = nid

		label = strings.Replace(label, `"`, `'`, -1)
		if round {
			fmt.Fprintf(w, "  %s(\"%s\")\n", nid, label)
		} else {
			fmt.Fprintf(w, "  %s[\"%s\"]\n", nid, label)
		}
		if fill != "" {
			fmt.Fprintf(w, "  style %s fill:%s\n", nid, fill)
		}
		return nid, true
	}

	var process func(a *catalog.Article, fill string) string
	process = func(a *catalog.Article, fill string) string {
		label := a.ID
		if a.Text != "" {
			label += "<br/>" + a.Text
		}
		nid, fresh := node("article "+a.ID, label, fill, false)
		if !fresh {
			return nid
		}
		for _, name := range a.Classes {
			cl, have := c.Class(name)
			if !have {
				continue
			}
			cid, fresh := node("class "+cl.Name, cl.Name, opts.ClassFill, true)
			if fresh && opts.ShowProperties {
				for _, p := range cl.Properties {
					pid, _ := node("property "+p.Key(), p.Name, "", true)
					fmt.Fprintf(w, "  %s --> %s\n", cid, pid)
				}
			}
			fmt.Fprintf(w, "  %s --> %s\n", nid, cid)
		}
		for _, it := range a.Items {
			sub, have := lookup(c, it.Article)
			if !have {
				continue
			}
			to := process(sub, opts.ItemFill)
			fmt.Fprintf(w, "  %s -- \"%d x%g\" --> %s\n", nid, it.Position, it.Quantity, to)
		}
		return nid
	}

	for _, a := range articles {
		process(a, "")
	}

	fmt.Fprintf(w, "\n")
	util.Logf("mermaid gen done")

	return w.Close()
}
