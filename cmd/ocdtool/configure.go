package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/Comcast/ocdrules"
	"github.com/Comcast/ocdrules/catalog"
	"github.com/Comcast/ocdrules/packaging"
	"github.com/Comcast/ocdrules/pricing"
	"github.com/Comcast/ocdrules/tax"
	"github.com/Comcast/ocdrules/variant"

	"github.com/jsccast/yaml"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

func (a *app) configureCmd() *cobra.Command {
	var f sessionFlags
	cmd := &cobra.Command{
		Use:   "configure ARTICLE",
		Short: "Configure an article and print the resulting state",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, st, err := a.session(cmd.Context(), args[0], &f, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			out := struct {
				State    interface{} `json:"state"`
				Complete bool        `json:"complete"`
			}{st, e.IsComplete(st)}
			return render(cmd.OutOrStdout(), f.output, out)
		},
	}
	f.add(cmd)
	return cmd
}

func (a *app) domainCmd() *cobra.Command {
	var f sessionFlags
	cmd := &cobra.Command{
		Use:   "domain ARTICLE PROPERTY",
		Short: "Print the values a property can take now",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, st, err := a.session(cmd.Context(), args[0], &f, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			vs, err := e.Domain(st, args[1])
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), f.output, vs)
		},
	}
	f.add(cmd)
	return cmd
}

func (a *app) priceCmd() *cobra.Command {
	var (
		f        sessionFlags
		currency string
		date     string
		qty      float64
		purchase bool
		convert  bool
		discs    string
	)
	cmd := &cobra.Command{
		Use:   "price ARTICLE",
		Short: "Price a configuration",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, st, err := a.session(cmd.Context(), args[0], &f, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			req, err := priceRequest(currency, date, qty, purchase)
			if err != nil {
				return err
			}
			p := pricing.NewPricer(e)
			if convert {
				if p.Converter, err = a.converter(); err != nil {
					return err
				}
			}
			if discs != "" {
				if req.Discounts, err = loadDiscounts(discs); err != nil {
					return err
				}
			}
			b, err := p.Price(cmd.Context(), st, req)
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), f.output, b)
		},
	}
	f.add(cmd)
	cmd.Flags().StringVar(&currency, "currency", a.cfg.Currency, "preferred currency")
	cmd.Flags().StringVar(&date, "price-date", "", "price date (2006-01-02, default today)")
	cmd.Flags().Float64Var(&qty, "qty", 1, "order quantity")
	cmd.Flags().BoolVar(&purchase, "purchase", false, "purchase prices instead of sales prices")
	cmd.Flags().BoolVar(&convert, "convert", false, "convert rows in other currencies (default rates, OCD_RATES overrides)")
	cmd.Flags().StringVar(&discs, "discounts", "", "YAML file of commercial discounts on the order value")
	return cmd
}

// converter has the default rates and the configured ones, which are
// units per euro.
func (a *app) converter() (*pricing.Converter, error) {
	c := pricing.NewConverter()
	for cur, s := range a.cfg.Rates {
		r, err := decimal.NewFromString(strings.TrimSpace(s))
		if err != nil {
			return nil, fmt.Errorf("rate for %s: %w", cur, err)
		}
		if err = c.SetPivotRate(cur, r); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func loadDiscounts(filename string) (*pricing.Discounts, error) {
	bs, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	var ds pricing.Discounts
	if err = yaml.Unmarshal(bs, &ds); err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}
	if err = ds.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}
	return &ds, nil
}

func priceRequest(currency, date string, qty float64, purchase bool) (pricing.Request, error) {
	req := pricing.Request{
		Kind:     catalog.Sales,
		Currency: strings.ToUpper(currency),
		Quantity: qty,
	}
	if purchase {
		req.Kind = catalog.Purchase
	}
	t, err := catalog.ParseDate(date)
	if err != nil {
		return req, err
	}
	req.Date = t
	return req, nil
}

func (a *app) variantCmd() *cobra.Command {
	var (
		f      sessionFlags
		scheme string
		code   bool
	)
	cmd := &cobra.Command{
		Use:   "variant ARTICLE",
		Short: "Print the final article number (or the variant code) of a configuration",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, st, err := a.session(cmd.Context(), args[0], &f, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			g := variant.NewGenerator(e.Catalog)
			var s string
			if code {
				s, err = g.Code(st, scheme)
			} else {
				s, err = g.Number(st, scheme)
			}
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), s)
			return err
		},
	}
	f.add(cmd)
	cmd.Flags().StringVar(&scheme, "scheme", "", "variant scheme (default: the article's)")
	cmd.Flags().BoolVar(&code, "code", false, "print only the variant code")
	return cmd
}

func (a *app) taxCmd() *cobra.Command {
	var (
		f       sessionFlags
		country string
		region  string
		net     string
	)
	cmd := &cobra.Command{
		Use:   "tax ARTICLE",
		Short: "Print the tax categories of a configuration, and the taxes on a net price",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if country == "" {
				return fmt.Errorf("no country (use --country or OCD_COUNTRY)")
			}
			e, st, err := a.session(cmd.Context(), args[0], &f, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			r := tax.NewResolver(e)
			out := struct {
				Categories tax.Categories  `json:"categories"`
				Tax        *tax.Assessment `json:"tax,omitempty"`
			}{}
			if out.Categories, err = r.Categories(cmd.Context(), st, country, region); err != nil {
				return err
			}
			if net != "" {
				amount, err := decimal.NewFromString(net)
				if err != nil {
					return err
				}
				if out.Tax, err = r.Calculate(cmd.Context(), st, country, region, amount); err != nil {
					return err
				}
			}
			return render(cmd.OutOrStdout(), f.output, out)
		},
	}
	f.add(cmd)
	cmd.Flags().StringVar(&country, "country", a.cfg.Country, "ISO country code")
	cmd.Flags().StringVar(&region, "region", "", "region within the country")
	cmd.Flags().StringVar(&net, "net", "", "net price to assess")
	return cmd
}

func (a *app) packagingCmd() *cobra.Command {
	var f sessionFlags
	cmd := &cobra.Command{
		Use:   "packaging ARTICLE",
		Short: "Print the packaging data of a configuration",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, st, err := a.session(cmd.Context(), args[0], &f, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			d, err := packaging.NewAggregator(e).Aggregate(cmd.Context(), st)
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), f.output, d)
		},
	}
	f.add(cmd)
	return cmd
}

func (a *app) quoteCmd() *cobra.Command {
	var (
		f       sessionFlags
		req     ocdrules.QuoteRequest
		date    string
		qty     float64
		country string
	)
	cmd := &cobra.Command{
		Use:   "quote ARTICLE",
		Short: "Print the number, price, packaging and taxes of a complete configuration",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, st, err := a.session(cmd.Context(), args[0], &f, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			if req.Price, err = priceRequest(a.cfg.Currency, date, qty, false); err != nil {
				return err
			}
			req.Country = strings.ToUpper(country)
			q, err := ocdrules.MakeQuote(cmd.Context(), e, st, req)
			if err != nil {
				if errors.Is(err, ocdrules.ErrNotComplete) {
					return fmt.Errorf("%w: missing %s", err, strconv.Quote(strings.Join(st.Missing, ", ")))
				}
				return err
			}
			return render(cmd.OutOrStdout(), f.output, q)
		},
	}
	f.add(cmd)
	cmd.Flags().StringVar(&date, "price-date", "", "price date (2006-01-02, default today)")
	cmd.Flags().Float64Var(&qty, "qty", 1, "order quantity")
	cmd.Flags().StringVar(&country, "country", a.cfg.Country, "ISO country code for taxes")
	cmd.Flags().StringVar(&req.Region, "region", "", "region within the country")
	return cmd
}
