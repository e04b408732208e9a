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

// Package tools has catalog utilities: a lint-style analysis, Graphviz
// and Mermaid renderings, and an HTML catalog page.
package tools

import (
	"fmt"
	"sort"

	"github.com/Comcast/ocdrules/catalog"
	"github.com/Comcast/ocdrules/expr"
)

// CatalogAnalysis reports on the structure of a compiled catalog.
//
// Nothing reported here stops a catalog from compiling, but every
// finding is probably a mistake.
type CatalogAnalysis struct {
	catalog *catalog.Catalog

	Articles        int
	Classes         int
	Properties      int
	RelationObjects int
	Relations       int
	Kinds           map[catalog.Kind]int

	// UnusedClasses are classes that no article lists.
	UnusedClasses []string

	// UnusedProperties are relation-only or read-only properties
	// that no relation mentions.  Only relations can set them.
	UnusedProperties []string

	// UnboundRelations are relation objects that no article,
	// class, property, value or bill-of-items position names.
	UnboundRelations []string

	// UnknownRefs are property references that cannot resolve to
	// any property, given as "relation object: reference".
	UnknownRefs []string

	// UnknownTables are table calls naming tables the catalog
	// doesn't have.
	UnknownTables []string

	// Unpriced are articles without a sales base price row.
	Unpriced []string
}

// Analyze examines a compiled catalog.
func Analyze(c *catalog.Catalog) (*CatalogAnalysis, error) {
	if !c.Compiled() {
		return nil, &catalog.NotCompiled{Catalog: c}
	}

	a := CatalogAnalysis{
		catalog:         c,
		Articles:        len(c.Articles),
		Classes:         len(c.Classes),
		RelationObjects: len(c.Relations),
		Kinds:           make(map[catalog.Kind]int, 6),
	}

	usedClasses, bound := make(map[string]bool), make(map[string]bool)
	unknownRefs, unknownTables := make(map[string]bool), make(map[string]bool)
	unpriced, mentioned := make(map[string]bool), make(map[string]bool)

	// Every property name, and the names in each class.
	anywhere := make(map[string]bool, 32)
	inClass := make(map[string]map[string]bool, len(c.Classes))
	for _, cl := range c.Classes {
		bound[cl.Relation] = true
		names := make(map[string]bool, len(cl.Properties))
		for _, p := range cl.Properties {
			a.Properties++
			anywhere[p.Name] = true
			names[p.Name] = true
			bound[p.Relation] = true
			for _, v := range p.Values {
				bound[v.Relation] = true
			}
		}
		inClass[cl.Name] = names
	}

	for _, art := range c.Articles {
		bound[art.Relation] = true
		for _, name := range art.Classes {
			usedClasses[name] = true
		}
		for _, it := range art.Items {
			bound[it.Relation] = true
		}
		unpriced[art.ID] = true
	}
	for _, r := range c.Prices {
		if r.Level == catalog.Base && r.Kind == catalog.Sales {
			delete(unpriced, r.Article)
		}
	}

	for _, o := range c.Relations {
		for _, r := range o.Relations {
			a.Relations++
			a.Kinds[r.Kind]++

			var objects map[string]string
			if r.Constraint != nil {
				objects = make(map[string]string, len(r.Constraint.Objects))
				for _, ob := range r.Constraint.Objects {
					objects[ob.Var] = ob.Class
				}
			}

			for _, n := range relationNodes(r) {
				expr.Walk(n, func(x expr.Node) {
					switch vv := x.(type) {
					case *expr.TableCall:
						if _, have := c.Table(vv.Table); !have {
							unknownTables[o.ID+": "+vv.Table] = true
						}
					case *expr.Ref:
						mentioned[vv.Name] = true
						if !resolves(vv, objects, inClass, anywhere) {
							unknownRefs[o.ID+": "+vv.String()] = true
						}
					}
				})
			}
		}
	}

	unusedProps := make(map[string]bool)
	for _, cl := range c.Classes {
		for _, p := range cl.Properties {
			switch p.Scope {
			case catalog.RelationOnly, catalog.ReadOnlyVisible:
				if !mentioned[p.Name] {
					unusedProps[p.Key()] = true
				}
			}
		}
	}

	a.UnusedClasses = keysToStringSlice(diffKeys(inClass, usedClasses))
	a.UnusedProperties = keysToStringSlice(unusedProps)
	a.UnboundRelations = keysToStringSlice(diffKeys(relationIDs(c), bound))
	a.UnknownRefs = keysToStringSlice(unknownRefs)
	a.UnknownTables = keysToStringSlice(unknownTables)
	a.Unpriced = keysToStringSlice(unpriced)

	return &a, nil
}

// Findings lists the problems in a readable form.
func (a *CatalogAnalysis) Findings() []string {
	var acc []string
	add := func(what string, xs []string) {
		for _, x := range xs {
			acc = append(acc, fmt.Sprintf("%s: %s", what, x))
		}
	}
	add("unused class", a.UnusedClasses)
	add("unused property", a.UnusedProperties)
	add("unbound relation object", a.UnboundRelations)
	add("unknown reference", a.UnknownRefs)
	add("unknown table", a.UnknownTables)
	add("no base price", a.Unpriced)
	return acc
}

// relationNodes returns the expressions of a compiled relation.
func relationNodes(r *catalog.Relation) []expr.Node {
	var acc []expr.Node
	if r.Cond != nil {
		acc = append(acc, r.Cond)
	}
	if r.Program != nil {
		for _, s := range r.Program.Stmts {
			acc = append(acc, s.Target, s.X)
			if s.Cond != nil {
				acc = append(acc, s.Cond)
			}
		}
	}
	if k := r.Constraint; k != nil {
		if k.Condition != nil {
			acc = append(acc, k.Condition)
		}
		for _, x := range k.Restrictions {
			acc = append(acc, x.X)
			if x.Cond != nil {
				acc = append(acc, x.Cond)
			}
		}
		for _, ref := range k.Inferences {
			acc = append(acc, ref)
		}
	}
	return acc
}

// resolves reports whether a reference can name some property.
// References through $parent and $root can only be checked by name.
func resolves(r *expr.Ref, objects map[string]string, inClass map[string]map[string]bool, anywhere map[string]bool) bool {
	switch {
	case r.IsObjectVar():
		class, have := objects[r.Qualifier]
		if !have {
			return false
		}
		return inClass[class][r.Name]
	case r.Qualifier != "":
		names, have := inClass[r.Qualifier]
		if !have {
			return false
		}
		return names[r.Name]
	default:
		return anywhere[r.Name]
	}
}

func relationIDs(c *catalog.Catalog) map[string]bool {
	acc := make(map[string]bool, len(c.Relations))
	for _, o := range c.Relations {
		acc[o.ID] = true
	}
	return acc
}

// keysToStringSlice returns the sorted keys of a map.  The empty
// string is never a key of interest.
func keysToStringSlice(m map[string]bool) []string {
	list := make([]string, 0, len(m))
	for key := range m {
		if key == "" {
			continue
		}
		list = append(list, key)
	}
	sort.Strings(list)
	return list
}

// diffKeys identifies the keys present in 'all' but not in 'used'.
func diffKeys[V any](all map[string]V, used map[string]bool) map[string]bool {
	diff := make(map[string]bool)
	for key := range all {
		if !used[key] {
			diff[key] = true
		}
	}
	return diff
}
