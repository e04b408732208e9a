package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"time"

	"github.com/Comcast/ocdrules/catalog"
	"github.com/Comcast/ocdrules/cmd/ocdtool/store"
	"github.com/Comcast/ocdrules/tools"
	"github.com/Comcast/ocdrules/util"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
)

// expand resolves file patterns (with ** support).  A pattern that
// matches nothing is kept as is so that the caller reports it.
func expand(patterns []string) ([]string, error) {
	seen := make(map[string]bool)
	var acc []string
	for _, pat := range patterns {
		matches, err := doublestar.FilepathGlob(pat)
		if err != nil {
			return nil, fmt.Errorf("glob %q: %w", pat, err)
		}
		if len(matches) == 0 {
			matches = []string{pat}
		}
		for _, m := range matches {
			if !seen[m] {
				seen[m] = true
				acc = append(acc, m)
			}
		}
	}
	return acc, nil
}

// validate reports on one catalog file and says whether it compiled.
func validate(w io.Writer, filename string) bool {
	c, err := catalog.Load(filename)
	if err != nil {
		var ces catalog.CatalogErrors
		if errors.As(err, &ces) {
			for _, ce := range ces {
				fmt.Fprintf(w, "%s: %s\n", filename, ce)
			}
		} else {
			fmt.Fprintf(w, "%s: %s\n", filename, err)
		}
		return false
	}
	fmt.Fprintf(w, "%s: ok (%s %s, %d articles)\n", filename, c.Name, c.Version, len(c.Articles))
	return true
}

func (a *app) validateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate PATTERN...",
		Short: "Compile catalog files and report every problem",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			files, err := expand(args)
			if err != nil {
				return err
			}
			failed := 0
			for _, filename := range files {
				if !validate(cmd.OutOrStdout(), filename) {
					failed++
				}
			}
			if 0 < failed {
				return fmt.Errorf("%d of %d catalogs failed", failed, len(files))
			}
			return nil
		},
	}
}

func (a *app) analyzeCmd() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Look for likely mistakes in a catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.catalog(cmd.Context())
			if err != nil {
				return err
			}
			an, err := tools.Analyze(c)
			if err != nil {
				return err
			}
			if output != "" {
				return render(cmd.OutOrStdout(), output, an)
			}
			for _, f := range an.Findings() {
				fmt.Fprintln(cmd.OutOrStdout(), f)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "print the whole analysis (json or yaml)")
	return cmd
}

func (a *app) docCmd() *cobra.Command {
	var (
		css   []string
		graph bool
	)
	cmd := &cobra.Command{
		Use:   "doc",
		Short: "Write an HTML page documenting a catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.catalog(cmd.Context())
			if err != nil {
				return err
			}
			return tools.RenderCatalogPage(c, cmd.OutOrStdout(), css, graph)
		},
	}
	cmd.Flags().StringSliceVar(&css, "css", nil, "stylesheet URLs")
	cmd.Flags().BoolVar(&graph, "graph", false, "include a Mermaid structure graph")
	return cmd
}

func (a *app) articlesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "articles [PATTERN]",
		Short: "List the articles whose number matches a pattern (* and ?, any case)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.catalog(cmd.Context())
			if err != nil {
				return err
			}
			pattern := "*"
			if 0 < len(args) {
				pattern = args[0]
			}
			for _, art := range c.FindArticles(pattern) {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", art.ID, art.Text)
			}
			return nil
		},
	}
}

func (a *app) dotCmd() *cobra.Command {
	var mermaid bool
	cmd := &cobra.Command{
		Use:   "dot [ARTICLE]",
		Short: "Write a Graphviz (or Mermaid) graph of an article's structure",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.catalog(cmd.Context())
			if err != nil {
				return err
			}
			var article string
			if 0 < len(args) {
				article = args[0]
			}
			w := nopCloser{cmd.OutOrStdout()}
			if mermaid {
				return tools.Mermaid(c, w, nil, article)
			}
			return tools.Dot(c, w, article)
		},
	}
	cmd.Flags().BoolVar(&mermaid, "mermaid", false, "Mermaid instead of Graphviz")
	return cmd
}

func (a *app) watchCmd() *cobra.Command {
	var debounce time.Duration
	cmd := &cobra.Command{
		Use:   "watch PATTERN...",
		Short: "Validate catalog files again whenever they change",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			files, err := expand(args)
			if err != nil {
				return err
			}
			return watch(cmd.Context(), cmd.OutOrStdout(), files, debounce)
		},
	}
	cmd.Flags().DurationVar(&debounce, "debounce", 300*time.Millisecond, "wait for further changes this long")
	return cmd
}

// watch validates the files and then validates each file again after
// it changes, until the context is done.  Editors often replace a
// file, so the watches are on the directories.
func watch(ctx context.Context, w io.Writer, files []string, debounce time.Duration) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fsw.Close()

	wanted := make(map[string]bool, len(files))
	dirs := make(map[string]bool)
	for _, f := range files {
		abs, err := filepath.Abs(f)
		if err != nil {
			return err
		}
		wanted[abs] = true
		dirs[filepath.Dir(abs)] = true
		validate(w, f)
	}
	for dir := range dirs {
		if err := fsw.Add(dir); err != nil {
			return err
		}
	}

	pending := make(map[string]bool)
	timer := time.NewTimer(debounce)
	timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if !wanted[ev.Name] || !(ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create)) {
				continue
			}
			util.Logf("watch %s %s", ev.Op, ev.Name)
			pending[ev.Name] = true
			timer.Reset(debounce)
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			util.Logger.Warn("watch", "err", err)
		case <-timer.C:
			names := make([]string, 0, len(pending))
			for name := range pending {
				names = append(names, name)
			}
			sort.Strings(names)
			for _, name := range names {
				validate(w, name)
			}
			pending = make(map[string]bool)
		}
	}
}

func (a *app) importCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import PATTERN...",
		Short: "Store catalog files under their names",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			files, err := expand(args)
			if err != nil {
				return err
			}
			s, err := a.store(ctx)
			if err != nil {
				return err
			}
			defer s.Close(ctx)

			for _, filename := range files {
				doc, err := store.ReadDocument(filename)
				if err != nil {
					return fmt.Errorf("%s: %w", filename, err)
				}
				if err := s.Put(ctx, doc); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: imported as %s\n", filename, doc.Name)
			}
			return nil
		},
	}
}

func (a *app) listCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the stored catalogs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, err := a.store(ctx)
			if err != nil {
				return err
			}
			defer s.Close(ctx)

			docs, err := s.List(ctx)
			if err != nil {
				return err
			}
			for _, doc := range docs {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\t%s\n",
					doc.Name, doc.Version, doc.Imported.Format(time.RFC3339), doc.Origin)
			}
			return nil
		},
	}
}

func (a *app) removeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove NAME",
		Short: "Remove a stored catalog",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, err := a.store(ctx)
			if err != nil {
				return err
			}
			defer s.Close(ctx)
			return s.Remove(ctx, args[0])
		},
	}
}

type nopCloser struct {
	io.Writer
}

func (nopCloser) Close() error {
	return nil
}
