/* Copyright 2018-2019 Comcast Cable Communications Management, LLC
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

package tools

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Comcast/ocdrules/catalog"
)

func TestDot(t *testing.T) {
	c, err := catalog.Load("../catalogs/schrank.yaml")
	if err != nil {
		t.Fatal(err)
	}

	filename := filepath.Join(t.TempDir(), "g.dot")
	out, err := os.Create(filename)
	if err != nil {
		t.Fatal(err)
	}
	if err := Dot(c, out, "SET1"); err != nil {
		t.Fatal(err)
	}

	bs, err := os.ReadFile(filename)
	if err != nil {
		t.Fatal(err)
	}
	g := string(bs)
	for _, want := range []string{
		`"article SET1" -> "article 0816"`,
		`"class Korpus" -> "property Korpus.Breite"`,
		`"property Schrank.Hoehe" -> "relation RP_HOEHE"`,
		`"relation R_KORPUS" -> "property Korpus.Tiefe"`,
	} {
		if !strings.Contains(g, want) {
			t.Fatalf("missing %s in\n%s", want, g)
		}
	}
	if !strings.HasSuffix(g, "}\n") {
		t.Fatal("unterminated graph")
	}
}

func TestDotUnknownArticle(t *testing.T) {
	c, err := catalog.Load("../catalogs/schrank.yaml")
	if err != nil {
		t.Fatal(err)
	}
	out, err := os.Create(filepath.Join(t.TempDir(), "g.dot"))
	if err != nil {
		t.Fatal(err)
	}
	if err := Dot(c, out, "4711"); err == nil {
		t.Fatal("expected an error")
	}
}
