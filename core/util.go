/* Copyright 2018 Comcast Cable Communications Management, LLC
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

package core

import (
	"sort"
	"strings"
	"time"

	"github.com/Comcast/ocdrules/catalog"
	"github.com/Comcast/ocdrules/expr"
)

// Timestamp returns a string representing the current time in
// RFC3339Nano.
func Timestamp() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}

// Unquestion removes (so to speak) a leading question mark (if any).
func Unquestion(p string) string {
	if strings.HasPrefix(p, "?") {
		return p[1:]
	}
	return p
}

// canonical makes the value of a multi-valued property a Set in
// value-table order without duplicates.  Elements without a row go
// last in the order given.
func canonical(p *catalog.Property, v expr.Value) expr.Value {
	if !p.MultiValued || v.IsUndefined() {
		return v
	}
	rank := func(x expr.Value) int {
		for i, r := range p.Values {
			if !r.IsInterval() && r.V().Equal(x) {
				return i
			}
		}
		return len(p.Values)
	}
	acc := make([]expr.Value, 0, len(v.Elems()))
	for _, x := range v.Elems() {
		if !contains(acc, x) {
			acc = append(acc, x)
		}
	}
	sort.SliceStable(acc, func(i, j int) bool {
		return rank(acc[i]) < rank(acc[j])
	})
	return expr.SetOf(acc...)
}

func contains(vs []expr.Value, x expr.Value) bool {
	for _, v := range vs {
		if v.Equal(x) {
			return true
		}
	}
	return false
}

// intersect keeps the members of xs that are also in ys, in the order
// of xs.
func intersect(xs, ys []expr.Value) []expr.Value {
	acc := make([]expr.Value, 0, len(xs))
	for _, x := range xs {
		if contains(ys, x) {
			acc = append(acc, x)
		}
	}
	return acc
}

func copyValues(vs []expr.Value) []expr.Value {
	if vs == nil {
		return nil
	}
	acc := make([]expr.Value, len(vs))
	copy(acc, vs)
	return acc
}
