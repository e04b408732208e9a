package core

import (
	"context"
	"strings"

	"github.com/Comcast/ocdrules/catalog"
	"github.com/Comcast/ocdrules/expr"
	"github.com/Comcast/ocdrules/util"
)

// Derivation is what the actions of one usage area computed for a
// State.
type Derivation struct {
	Usage catalog.Usage `json:"usage"`

	// Vars holds the final value of every relation variable,
	// including the preset ones.  Names are upper-case.
	Vars map[string]expr.Value `json:"vars,omitempty"`

	// VarConds are the derived variant conditions, upper-cased,
	// without duplicates, in the order they were first derived.
	VarConds []string `json:"varconds,omitempty"`

	// Helpers holds the relation-only properties at the end.
	Helpers map[string]expr.Value `json:"helpers,omitempty"`

	Traces *Traces `json:"traces,omitempty"`
}

// Var returns a relation variable.
func (d *Derivation) Var(name string) expr.Value {
	return d.Vars[strings.ToUpper(strings.TrimPrefix(name, "$"))]
}

// Derive runs the actions of a usage area (pricing, packaging, tax)
// in dispatch order against a State.  Preset relation variables are
// visible to the actions; names may carry a leading '$'.
//
// The actions may only assign relation variables and relation-only
// properties.  An action that tries anything else is skipped.  The
// State is not modified, so any number of Derives can run on the same
// State at once.
func (e *Engine) Derive(ctx context.Context, st *State, u catalog.Usage, preset map[string]expr.Value) (*Derivation, error) {
	a, err := e.article(st)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	e.Metrics.derivation(u)

	d := &Derivation{
		Usage:  u,
		Traces: NewTraces(),
	}
	p := e.newPass(a, st, d.Traces)
	p.restricted = true
	for name, v := range preset {
		p.vars[strings.ToUpper(strings.TrimPrefix(name, "$"))] = v
	}

	p.run(p.gather(u, catalog.Action))

	d.Vars = p.vars
	d.VarConds = p.varconds
	d.Helpers = p.helpers
	util.Logf("article %s: %s derivation: varconds %v", a.ID, u, d.VarConds)
	return d, nil
}

// Items returns the bill-of-items positions of a composite article
// that exist in the given configuration.  A position exists when all
// of its bill-of-items preconditions are true.
func (e *Engine) Items(ctx context.Context, st *State) ([]*catalog.BillOfItem, error) {
	a, err := e.article(st)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	e.Metrics.derivation(catalog.BillOfItems)

	p := e.newPass(a, st, nil)
	p.restricted = true
	var acc []*catalog.BillOfItem
ITEMS:
	for _, it := range a.Items {
		for _, r := range e.Catalog.RelationObject(it.Relation).Select(catalog.Precondition, catalog.BillOfItems) {
			b, err := expr.Test(p, r.Cond)
			if err != nil {
				util.Logf("article %s item %d: %s: %s", a.ID, it.Position, describe(r), err)
			}
			if !b.IsTrue() {
				continue ITEMS
			}
		}
		acc = append(acc, it)
	}
	return acc, nil
}
