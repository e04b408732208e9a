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

// Package match implements the wildcard matcher used by IN lists
// and by article searches.
package match

import (
	"unicode/utf8"
)

type Matcher struct {
	// Any matches any run of characters, including an empty one.
	Any rune

	// One matches exactly one character.
	One rune

	// FoldCase makes the match case-insensitive for ASCII
	// letters.  Catalog values are case-sensitive, so the
	// default matcher leaves this off.
	FoldCase bool
}

var DefaultMatcher = &Matcher{
	Any: '*',
	One: '?',
}

// IsPattern reports whether s contains a wildcard character.
func (m *Matcher) IsPattern(s string) bool {
	for _, r := range s {
		if r == m.Any || r == m.One {
			return true
		}
	}
	return false
}

func (m *Matcher) same(a, b rune) bool {
	if a == b {
		return true
	}
	if !m.FoldCase {
		return false
	}
	return lower(a) == lower(b)
}

func lower(r rune) rune {
	if 'A' <= r && r <= 'Z' {
		return r + 'a' - 'A'
	}
	return r
}

// Match reports whether the whole of s matches the pattern.
//
// The matcher walks both strings once and backtracks only to the
// most recent Any, so the cost is O(len(pattern) * len(s)) in the
// worst case.
func (m *Matcher) Match(pattern, s string) bool {
	var (
		p, i         int // byte offsets into pattern and s
		starP, starI = -1, -1
	)
	for i < len(s) {
		if p < len(pattern) {
			pr, pw := utf8.DecodeRuneInString(pattern[p:])
			sr, sw := utf8.DecodeRuneInString(s[i:])
			switch {
			case pr == m.Any:
				starP, starI = p, i
				p += pw
				continue
			case pr == m.One || m.same(pr, sr):
				p += pw
				i += sw
				continue
			}
		}
		if starP < 0 {
			return false
		}
		// Let the last Any swallow one more character.
		_, sw := utf8.DecodeRuneInString(s[starI:])
		starI += sw
		i = starI
		_, pw := utf8.DecodeRuneInString(pattern[starP:])
		p = starP + pw
	}
	for p < len(pattern) {
		pr, pw := utf8.DecodeRuneInString(pattern[p:])
		if pr != m.Any {
			return false
		}
		p += pw
	}
	return true
}

// Wildcard matches s against pattern using the DefaultMatcher.
func Wildcard(pattern, s string) bool {
	return DefaultMatcher.Match(pattern, s)
}
