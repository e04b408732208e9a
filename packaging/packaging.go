// Package packaging aggregates the packaging data of a configured
// article: the article's base entry plus one entry per variant
// condition that the packaging actions derive.
package packaging

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/Comcast/ocdrules/catalog"
	"github.com/Comcast/ocdrules/core"
	"github.com/Comcast/ocdrules/expr"
	"github.com/Comcast/ocdrules/util"
)

// ErrNoEntry occurs when no packaging row applies to an article.
var ErrNoEntry = errors.New("no packaging entry")

// Data is aggregated packaging data.
type Data struct {
	Article  string             `json:"article"`
	VarConds []string           `json:"varconds,omitempty"`
	Fields   map[string]float64 `json:"fields"`
}

// Names returns the field names in order.
func (d *Data) Names() []string {
	acc := make([]string, 0, len(d.Fields))
	for name := range d.Fields {
		acc = append(acc, name)
	}
	sort.Strings(acc)
	return acc
}

type Aggregator struct {
	Engine *core.Engine
}

func NewAggregator(e *core.Engine) *Aggregator {
	return &Aggregator{Engine: e}
}

// Aggregate determines the packaging data of a State.
func (g *Aggregator) Aggregate(ctx context.Context, st *core.State) (*Data, error) {
	c := g.Engine.Catalog
	d, err := g.Engine.Derive(ctx, st, catalog.Packaging, nil)
	if err != nil {
		return nil, err
	}
	acc := &Data{
		Article:  st.Article,
		VarConds: d.VarConds,
		Fields:   make(map[string]float64, 4),
	}

	found := 0
	if row := find(c.PackagingRows(st.Article), ""); row != nil {
		add(acc.Fields, row)
		found++
	}
	for _, vc := range d.VarConds {
		row := find(c.PackagingRows(st.Article), vc)
		if row == nil {
			row = find(c.PackagingRows(catalog.Wildcard), vc)
		}
		if row == nil {
			util.Logf("article %s: no packaging entry for %s", st.Article, vc)
			continue
		}
		add(acc.Fields, row)
		found++
	}
	if found == 0 {
		return nil, fmt.Errorf("%w: article %s", ErrNoEntry, st.Article)
	}
	return acc, nil
}

func find(rows []*catalog.PackagingRow, vc string) *catalog.PackagingRow {
	for _, r := range rows {
		if r.VarCond == vc {
			return r
		}
	}
	return nil
}

func add(fields map[string]float64, row *catalog.PackagingRow) {
	for name, x := range row.Fields {
		if f, have := row.Factors[name]; have {
			x *= f
		}
		fields[name] = expr.RoundHalfAway(fields[name]+x, 9)
	}
}
