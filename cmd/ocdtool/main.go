/* Copyright 2019 Comcast Cable Communications Management, LLC
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

// Package main is a command-line tool for product catalogs: check
// them, configure articles, and query prices, variant codes, taxes
// and packaging data.
//
//   ocdtool validate 'catalogs/**/*.yaml'
//   ocdtool -c catalogs/schrank.yaml configure 0816 --set Breite=80
//   ocdtool -c catalogs/schrank.yaml price 0816 --set Breite=80 --qty 10
//
// Defaults come from the environment: OCD_CATALOG, OCD_CURRENCY,
// OCD_COUNTRY, OCD_RATES, OCD_STORE and OCD_LOG_LEVEL.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/Comcast/ocdrules/catalog"
	"github.com/Comcast/ocdrules/cmd/ocdtool/store"
	"github.com/Comcast/ocdrules/cmd/ocdtool/store/bolt"
	"github.com/Comcast/ocdrules/util"

	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/cobra"
)

// Config holds the environment defaults.
type Config struct {
	Catalog  string `envconfig:"CATALOG"`
	Currency string `envconfig:"CURRENCY"`
	Country  string `envconfig:"COUNTRY"`
	Store    string `envconfig:"STORE" default:"ocdtool.db"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	// Rates are units per euro, like CHF:0.95,USD:1.1.
	Rates map[string]string `envconfig:"RATES"`
}

// LoadConfig reads OCD_* environment variables.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("ocd", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func main() {
	cfg, err := LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := rootCmd(cfg).ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// app is what the commands share.
type app struct {
	cfg *Config
}

func rootCmd(cfg *Config) *cobra.Command {
	a := &app{cfg: cfg}

	cmd := &cobra.Command{
		Use:   "ocdtool",
		Short: "Product catalog configuration tool",
		Long: `ocdtool loads a product catalog and evaluates its relations.

A catalog is either a YAML or JSON file or the name of a catalog
imported into the store.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := util.ParseLevel(cfg.LogLevel)
			util.Logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
			util.Logging = level <= slog.LevelDebug
		},
	}

	cmd.PersistentFlags().StringVarP(&cfg.Catalog, "catalog", "c", cfg.Catalog, "catalog file or stored catalog name")
	cmd.PersistentFlags().StringVar(&cfg.Store, "store", cfg.Store, "catalog store (bbolt file)")
	cmd.PersistentFlags().StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level (debug, info, warn, error)")

	cmd.AddCommand(
		a.validateCmd(),
		a.analyzeCmd(),
		a.articlesCmd(),
		a.configureCmd(),
		a.domainCmd(),
		a.priceCmd(),
		a.variantCmd(),
		a.taxCmd(),
		a.packagingCmd(),
		a.quoteCmd(),
		a.docCmd(),
		a.dotCmd(),
		a.watchCmd(),
		a.importCmd(),
		a.listCmd(),
		a.removeCmd(),
	)

	return cmd
}

// catalog loads the catalog named by --catalog: a file if there is
// one, and otherwise a stored catalog.
func (a *app) catalog(ctx context.Context) (*catalog.Catalog, error) {
	name := a.cfg.Catalog
	if name == "" {
		return nil, fmt.Errorf("no catalog (use --catalog or OCD_CATALOG)")
	}
	if _, err := os.Stat(name); err == nil {
		return catalog.Load(name)
	}
	s, err := a.store(ctx)
	if err != nil {
		return nil, err
	}
	defer s.Close(ctx)
	return store.Load(ctx, s, name)
}

// store opens the catalog store.  The caller closes it.
func (a *app) store(ctx context.Context) (store.Storage, error) {
	var s store.Storage
	if a.cfg.Store == "" || a.cfg.Store == ":memory:" {
		s = store.NewMemStorage()
	} else {
		b, err := bolt.NewStorage(a.cfg.Store)
		if err != nil {
			return nil, err
		}
		b.Debug = util.Logging
		s = b
	}
	if err := s.Open(ctx); err != nil {
		return nil, err
	}
	return s, nil
}
