// Package interpreters resolves relation-language dialect names to
// capability sets.
package interpreters

import (
	"strings"

	"github.com/Comcast/ocdrules/expr"
)

const (
	ocd1  expr.Capability = 0
	ocd2  = ocd1 | expr.CapStringFuncs | expr.CapConcat
	ocd3  = ocd2 | expr.CapTableCall | expr.CapObjectRefs
	ocd4  = ocd3 | expr.CapRangeIn
	sap46 = ocd4 | expr.CapWildcardIn
)

// Map is a dialect registry keyed by upper-case name.
type Map map[string]*expr.Dialect

// Find looks up a dialect by name, ignoring case.
func (m Map) Find(name string) (*expr.Dialect, bool) {
	d, have := m[strings.ToUpper(strings.TrimSpace(name))]
	return d, have
}

// Names lists the registered dialects.
func (m Map) Names() []string {
	acc := make([]string, 0, len(m))
	for name := range m {
		acc = append(acc, name)
	}
	return acc
}

// Resolve returns the dialect named by a catalog, with that
// catalog's feature flags applied.  An empty name means OCD_4.
func (m Map) Resolve(name string, wildcardIn bool, varCond string) (*expr.Dialect, bool) {
	if name == "" {
		name = "OCD_4"
	}
	d, have := m.Find(name)
	if !have {
		return nil, false
	}
	var extra expr.Capability
	if wildcardIn {
		extra = expr.CapWildcardIn
	}
	return d.With(extra, varCond), true
}

func add(m Map, name string, caps expr.Capability) {
	m[name] = &expr.Dialect{
		Name:    name,
		Caps:    caps,
		VarCond: expr.DefaultVarCond,
	}
}

// Standard returns the dialects a catalog may declare.
func Standard() Map {
	m := make(Map, 6)

	add(m, "OCD_1", ocd1)
	add(m, "OCD_2", ocd2)
	add(m, "OCD_3", ocd3)
	add(m, "OCD_4", ocd4)

	add(m, "SAP_3.1", ocd3) // Same features as OCD_3
	add(m, "SAP_4.6", sap46)

	return m
}
