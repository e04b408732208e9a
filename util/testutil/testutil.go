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

package testutil

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
)

// JS renders its argument as JSON or as a string indicating an error.
func JS(x interface{}) string {
	bs, err := json.Marshal(&x)
	if err != nil {
		slog.Warn("testutil.JS", "err", err, "x", fmt.Sprintf("%#v", x))
		return fmt.Sprintf("%#v", x)
	}
	return string(bs)
}

// Dwimjs, when given a string or bytes that parse as JSON, returns
// the parsed data.  When given anything else, just returns what's
// given.
//
// See https://en.wikipedia.org/wiki/DWIM.
func Dwimjs(x interface{}) interface{} {
	switch vv := x.(type) {
	case []byte:
		var v interface{}
		if err := json.Unmarshal(vv, &v); err != nil {
			return x
		}
		return v
	case string:
		var v interface{}
		if err := json.Unmarshal([]byte(vv), &v); err != nil {
			return x
		}
		return v
	default:
		return x
	}
}

// Lines trims every line of s and drops the empty ones.  Handy for
// comparing rendered output against an indented literal.
func Lines(s string) []string {
	var acc []string
	for _, line := range strings.Split(s, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			acc = append(acc, line)
		}
	}
	return acc
}
