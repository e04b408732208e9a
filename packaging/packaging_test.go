package packaging

import (
	"context"
	"testing"

	"github.com/Comcast/ocdrules/catalog"
	"github.com/Comcast/ocdrules/core"
	"github.com/Comcast/ocdrules/expr"

	"github.com/stretchr/testify/require"
)

func TestAggregate(t *testing.T) {
	c, err := catalog.Load("../catalogs/schrank.yaml")
	require.NoError(t, err)
	e, err := core.NewEngine(c)
	require.NoError(t, err)
	g := NewAggregator(e)
	ctx := context.Background()

	tests := []struct {
		breite float64
		weight float64
	}{
		{80, 40}, // 30 + 5 * 2
		{60, 32}, // wildcard row
		{40, 30}, // no row for B40
	}
	for _, tc := range tests {
		st, err := e.Initialize(ctx, "0816")
		require.NoError(t, err)
		if tc.breite == 40 {
			st, err = e.Apply(ctx, st, "Hoehe", expr.Str("4H"))
			require.NoError(t, err)
			// 40 was never a candidate under 5H.
			st, err = e.Reopen(ctx, st, "Breite")
			require.NoError(t, err)
		}
		st, err = e.Apply(ctx, st, "Breite", expr.Num(tc.breite))
		require.NoError(t, err)

		d, err := g.Aggregate(ctx, st)
		require.NoError(t, err)
		require.Equal(t, tc.weight, d.Fields["weight"], "B%v", tc.breite)
		require.Equal(t, 0.2, d.Fields["volume"])
		require.Equal(t, []string{"volume", "weight"}, d.Names())
	}

	st, err := e.Initialize(ctx, "0815")
	require.NoError(t, err)
	_, err = g.Aggregate(ctx, st)
	require.ErrorIs(t, err, ErrNoEntry)
}
