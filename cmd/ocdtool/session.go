package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/Comcast/ocdrules/catalog"
	"github.com/Comcast/ocdrules/core"
	"github.com/Comcast/ocdrules/expr"

	"github.com/jsccast/yaml"
	"github.com/spf13/cobra"
)

// sessionFlags describe a configuration: the article's initial state
// followed by property changes in order.
type sessionFlags struct {
	sets   []string
	reopen []string
	date   string
	trace  bool
	output string
}

func (f *sessionFlags) add(cmd *cobra.Command) {
	cmd.Flags().StringArrayVarP(&f.sets, "set", "s", nil, "property change Name=Value, applied in order (repeatable)")
	cmd.Flags().StringArrayVar(&f.reopen, "reopen", nil, "restrictable property to give all of its values back after the changes (repeatable)")
	cmd.Flags().StringVar(&f.date, "date", "", "configuration date (2006-01-02)")
	cmd.Flags().BoolVar(&f.trace, "trace", false, "print evaluation traces to stderr")
	cmd.Flags().StringVarP(&f.output, "output", "o", "json", "output format (json or yaml)")
}

// session configures an article.
func (a *app) session(ctx context.Context, article string, f *sessionFlags, errs io.Writer) (*core.Engine, *core.State, error) {
	c, err := a.catalog(ctx)
	if err != nil {
		return nil, nil, err
	}
	e, err := core.NewEngine(c)
	if err != nil {
		return nil, nil, err
	}
	if f.date != "" || f.trace {
		ctl := e.Control.Copy()
		if ctl.Date, err = catalog.ParseDate(f.date); err != nil {
			return nil, nil, err
		}
		ctl.Trace = f.trace
		e.Control = ctl
	}

	st, err := e.Initialize(ctx, article)
	if err != nil {
		return nil, nil, err
	}
	art, err := c.Article(article)
	if err != nil {
		return nil, nil, err
	}

	for _, s := range f.sets {
		ch, err := parseChange(art, s)
		if err != nil {
			return nil, nil, err
		}
		stride, err := e.Step(ctx, st, ch)
		if err != nil {
			return nil, nil, err
		}
		if f.trace {
			for _, m := range stride.Traces.Messages {
				fmt.Fprintf(errs, "%s: %v\n", ch.Property, m)
			}
		}
		st = stride.To
	}
	for _, name := range f.reopen {
		if st, err = e.Reopen(ctx, st, strings.TrimSpace(name)); err != nil {
			return nil, nil, err
		}
	}
	return e, st, nil
}

// parseChange parses Name=Value.  Numeric properties get numbers,
// multi-valued properties take comma-separated values, and an empty
// value unsets the property.
func parseChange(a *catalog.Article, s string) (*core.Change, error) {
	name, x, ok := strings.Cut(s, "=")
	if !ok {
		return nil, fmt.Errorf("bad change %q (want Name=Value)", s)
	}
	name = strings.TrimSpace(name)
	p, have := a.Property(name)
	if !have {
		return nil, &catalog.UnknownProperty{Article: a.ID, Name: name}
	}
	ch := &core.Change{Property: name}
	if x == "" {
		return ch, nil
	}

	parts := []string{x}
	if p.MultiValued {
		parts = strings.Split(x, ",")
	}
	vs := make([]expr.Value, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if p.IsNumeric() {
			f, err := strconv.ParseFloat(part, 64)
			if err != nil {
				return nil, fmt.Errorf("%s: %q is not a number", name, part)
			}
			vs = append(vs, expr.Num(f))
		} else {
			vs = append(vs, expr.Str(part))
		}
	}
	if len(vs) == 1 {
		ch.Value = vs[0]
	} else {
		ch.Value = expr.SetOf(vs...)
	}
	return ch, nil
}

// render writes x as indented JSON or as YAML.
func render(w io.Writer, format string, x interface{}) error {
	js, err := json.MarshalIndent(x, "", "  ")
	if err != nil {
		return err
	}
	switch format {
	case "", "json":
		_, err = fmt.Fprintf(w, "%s\n", js)
		return err
	case "yaml":
		// Through JSON so that values render as themselves.
		var v interface{}
		if err := json.Unmarshal(js, &v); err != nil {
			return err
		}
		bs, err := yaml.Marshal(&v)
		if err != nil {
			return err
		}
		_, err = w.Write(bs)
		return err
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}
