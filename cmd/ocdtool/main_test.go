package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Comcast/ocdrules/catalog"
	"github.com/Comcast/ocdrules/expr"
	. "github.com/Comcast/ocdrules/util/testutil"
)

const schrank = "../../catalogs/schrank.yaml"

func run(t *testing.T, cfg *Config, args ...string) (string, error) {
	t.Helper()
	cmd := rootCmd(cfg)
	var out, errs bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errs)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestLoadConfig(t *testing.T) {
	t.Setenv("OCD_CATALOG", "x.yaml")
	t.Setenv("OCD_COUNTRY", "AT")
	t.Setenv("OCD_RATES", "CHF:0.95,USD:1.1")
	cfg, err := LoadConfig()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Rates["CHF"] != "0.95" || len(cfg.Rates) != 2 {
		t.Fatal(cfg.Rates)
	}
	if cfg.Catalog != "x.yaml" || cfg.Country != "AT" || cfg.Store != "ocdtool.db" || cfg.LogLevel != "info" {
		t.Fatalf("%#v", cfg)
	}
}

func TestConfigure(t *testing.T) {
	out, err := run(t, &Config{Catalog: schrank}, "configure", "0816", "--set", "Breite=80", "--set", "Extras=L,T")
	if err != nil {
		t.Fatal(err)
	}
	var got struct {
		State struct {
			Values map[string]interface{} `json:"values"`
		} `json:"state"`
		Complete bool `json:"complete"`
	}
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatal(err)
	}
	if !got.Complete {
		t.Fatal(out)
	}
	if got.State.Values["Breite"] != 80.0 {
		t.Fatal(got.State.Values)
	}
	if xs, is := got.State.Values["Extras"].([]interface{}); !is || len(xs) != 2 {
		t.Fatal(got.State.Values["Extras"])
	}
}

func TestQueries(t *testing.T) {
	cfg := &Config{Catalog: schrank, Country: "DE"}

	out, err := run(t, cfg, "variant", "0815")
	if err != nil {
		t.Fatal(err)
	}
	if out != "0815-Schrank.Oberflaeche=03;Schrank.Hoehe=5H;Zubehoer=VOID\n" {
		t.Fatalf("%q", out)
	}

	out, err = run(t, cfg, "price", "0815", "--price-date", "2026-06-01")
	if err != nil {
		t.Fatal(err)
	}
	b, is := Dwimjs(out).(map[string]interface{})
	if !is || b["total"] != "110" || b["baseTotal"] != "100" {
		t.Fatal(out)
	}

	out, err = run(t, cfg, "price", "0816", "--set", "Breite=80", "--currency", "chf", "--convert", "--price-date", "2026-06-01")
	if err != nil {
		t.Fatal(err)
	}
	if b, is = Dwimjs(out).(map[string]interface{}); !is || b["total"] != "213.5" || b["currency"] != "CHF" {
		t.Fatal(out)
	}

	discs := filepath.Join(t.TempDir(), "discounts.yaml")
	if err := os.WriteFile(discs, []byte("discounts:\n  - {id: K, type: customer, percent: 10}\n"), 0644); err != nil {
		t.Fatal(err)
	}
	out, err = run(t, cfg, "price", "0815", "--price-date", "2026-06-01", "--qty", "2", "--discounts", discs)
	if err != nil {
		t.Fatal(err)
	}
	if b, is = Dwimjs(out).(map[string]interface{}); !is {
		t.Fatal(out)
	}
	if extra, is := b["extra"].(map[string]interface{}); !is || extra["net"] != "198" {
		t.Fatal(out)
	}

	out, err = run(t, cfg, "articles", "08?5")
	if err != nil {
		t.Fatal(err)
	}
	if out != "0815\tSchrank\n" {
		t.Fatalf("%q", out)
	}
	if out, err = run(t, cfg, "articles", "set*"); err != nil || out != "SET1\tSchrankset\n" {
		t.Fatalf("%q %v", out, err)
	}

	out, err = run(t, cfg, "tax", "0815", "--net", "110")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, `"VAT": "standard"`) {
		t.Fatal(out)
	}

	if _, err = run(t, cfg, "quote", "0816"); err == nil || !strings.Contains(err.Error(), "Breite") {
		t.Fatal(err)
	}

	out, err = run(t, cfg, "domain", "0816", "Breite", "--set", "Hoehe=4H")
	if err != nil {
		t.Fatal(err)
	}
	var vs []float64
	if err := json.Unmarshal([]byte(out), &vs); err != nil {
		t.Fatal(err)
	}
	if len(vs) != 1 || vs[0] != 60 {
		t.Fatal(vs)
	}

	out, err = run(t, cfg, "domain", "0816", "Breite", "--set", "Hoehe=4H", "--reopen", "Breite")
	if err != nil {
		t.Fatal(err)
	}
	vs = nil
	if err := json.Unmarshal([]byte(out), &vs); err != nil {
		t.Fatal(err)
	}
	if len(vs) != 2 || vs[0] != 40 || vs[1] != 60 {
		t.Fatal(vs)
	}
}

func TestValidate(t *testing.T) {
	out, err := run(t, &Config{}, "validate", "../../catalogs/*.yaml")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "ok (moebel 2026.1, 4 articles)") {
		t.Fatal(out)
	}
	if _, err = run(t, &Config{}, "validate", "nope.yaml"); err == nil {
		t.Fatal("expected an error")
	}
}

func TestImportList(t *testing.T) {
	cfg := &Config{Store: filepath.Join(t.TempDir(), "ocd.db")}
	if _, err := run(t, cfg, "import", schrank); err != nil {
		t.Fatal(err)
	}
	out, err := run(t, cfg, "list")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(out, "moebel\t2026.1\t") {
		t.Fatal(out)
	}

	// The stored catalog by name.
	cfg.Catalog = "moebel"
	if out, err = run(t, cfg, "variant", "0815", "--code"); err != nil {
		t.Fatal(err)
	}
	if out != "Schrank.Oberflaeche=03;Schrank.Hoehe=5H;Zubehoer=VOID\n" {
		t.Fatalf("%q", out)
	}

	if _, err = run(t, cfg, "remove", "moebel"); err != nil {
		t.Fatal(err)
	}
	if _, err = run(t, cfg, "variant", "0815"); err == nil {
		t.Fatal("expected an error")
	}
}

func TestParseChange(t *testing.T) {
	c, err := catalog.Load(schrank)
	if err != nil {
		t.Fatal(err)
	}
	a, err := c.Article("0816")
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		in   string
		want expr.Value
		err  bool
	}{
		{"Breite=60", expr.Num(60), false},
		{"Hoehe=4H", expr.Str("4H"), false},
		{"Extras=L, S", expr.SetOf(expr.Str("L"), expr.Str("S")), false},
		{"Extras=L", expr.Str("L"), false},
		{"Zubehoer=", expr.Undef, false},
		{"Breite=wide", expr.Undef, true},
		{"Nope=1", expr.Undef, true},
		{"Breite", expr.Undef, true},
	}
	for _, tc := range tests {
		ch, err := parseChange(a, tc.in)
		if tc.err {
			if err == nil {
				t.Fatalf("%s: expected an error", tc.in)
			}
			continue
		}
		if err != nil {
			t.Fatalf("%s: %s", tc.in, err)
		}
		if !ch.Value.Equal(tc.want) {
			t.Fatalf("%s: %s", tc.in, ch.Value)
		}
	}
}
