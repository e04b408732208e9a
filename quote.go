package ocdrules

import (
	"context"
	"errors"

	"github.com/Comcast/ocdrules/core"
	"github.com/Comcast/ocdrules/packaging"
	"github.com/Comcast/ocdrules/pricing"
	"github.com/Comcast/ocdrules/tax"
	"github.com/Comcast/ocdrules/variant"

	"golang.org/x/sync/errgroup"
)

// ErrNotComplete occurs when a quote is requested for a configuration
// that is not complete.
var ErrNotComplete = errors.New("configuration is not complete")

// QuoteRequest says what a Quote covers.
type QuoteRequest struct {
	Price pricing.Request `json:"price"`

	// Country enables the tax assessment of the net price.
	Country string `json:"country,omitempty"`
	Region  string `json:"region,omitempty"`
}

// Quote is everything derived from one settled configuration.
// Packaging and tax are nil when the catalog has no entry for them.
type Quote struct {
	ID                 string             `json:"id"`
	Article            string             `json:"article"`
	FinalArticleNumber string             `json:"finalArticleNumber"`
	Price              *pricing.Breakdown `json:"price"`
	Packaging          *packaging.Data    `json:"packaging,omitempty"`
	TaxCategories      tax.Categories     `json:"taxCategories,omitempty"`
	Tax                *tax.Assessment    `json:"tax,omitempty"`
}

// MakeQuote computes the final article number, the price, the
// packaging data and the taxes of a complete State.  The queries only
// read the State, so they run at the same time.
func MakeQuote(ctx context.Context, e *core.Engine, st *core.State, req QuoteRequest) (*Quote, error) {
	if !e.IsComplete(st) {
		return nil, ErrNotComplete
	}
	q := &Quote{
		ID:      st.ID,
		Article: st.Article,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		n, err := variant.NewGenerator(e.Catalog).FinalArticleNumber(st)
		q.FinalArticleNumber = n
		return err
	})
	g.Go(func() error {
		d, err := packaging.NewAggregator(e).Aggregate(ctx, st)
		if errors.Is(err, packaging.ErrNoEntry) {
			return nil
		}
		q.Packaging = d
		return err
	})
	g.Go(func() error {
		b, err := pricing.NewPricer(e).Price(ctx, st, req.Price)
		if err != nil {
			return err
		}
		q.Price = b
		if req.Country == "" {
			return nil
		}
		// The assessment needs the net price.
		r := tax.NewResolver(e)
		a, err := r.Calculate(ctx, st, req.Country, req.Region, b.Total)
		if errors.Is(err, tax.ErrUnresolved) {
			return nil
		}
		q.Tax = a
		return err
	})
	if req.Country != "" {
		g.Go(func() error {
			cs, err := tax.NewResolver(e).Categories(ctx, st, req.Country, req.Region)
			if errors.Is(err, tax.ErrUnresolved) {
				return nil
			}
			q.TaxCategories = cs
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return q, nil
}
