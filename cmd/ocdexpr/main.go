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

// Package main is a little command-line utility to evaluate a
// relation expression or program.
//
//   ocdexpr -e "Hoehe in ('4H', '5H') and Breite >= 60" -v '{"Hoehe":"5H","Breite":80}'
//   ocdexpr -p -e "\$VARCOND = 'B' || str(Breite)" -v '{"Breite":80}'
//   ocdexpr -c catalogs/schrank.yaml -e "table MASSE(HOEHE = Hoehe, BREITE = Breite)" -v '{"Hoehe":"6H","Breite":80}' -w true
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"runtime"
	"strings"
	"time"

	"github.com/Comcast/ocdrules/catalog"
	"github.com/Comcast/ocdrules/expr"
	"github.com/Comcast/ocdrules/interpreters"
)

func main() {
	var (
		source      = flag.String("e", "", "expression (or program with -p)")
		valuesJS    = flag.String("v", "{}", "property values in JSON")
		varsJS      = flag.String("vars", "{}", "relation variables in JSON")
		wantJS      = flag.String("w", "", "wanted result in JSON")
		dialectName = flag.String("d", "OCD_4", "dialect")
		catalogFile = flag.String("c", "", "catalog file for its dialect and tables")
		program     = flag.Bool("p", false, "parse a program and print its assignments")

		bench = flag.Int("bench", 0, "number of times to run (and report time)")
	)

	flag.Parse()

	ev := &evaluator{
		Values:  make(map[string]expr.Value),
		Vars:    make(map[string]expr.Value),
		Program: *program,
	}

	if err := json.Unmarshal([]byte(*valuesJS), &ev.Values); err != nil {
		panic(err)
	}
	var vars map[string]expr.Value
	if err := json.Unmarshal([]byte(*varsJS), &vars); err != nil {
		panic(err)
	}
	for name, v := range vars {
		ev.Vars[strings.ToUpper(strings.TrimPrefix(name, "$"))] = v
	}

	if *catalogFile != "" {
		c, err := catalog.Load(*catalogFile)
		if err != nil {
			panic(err)
		}
		ev.Dialect = c.Dialect()
		ev.Catalog = c
	} else {
		d, have := interpreters.Standard().Find(*dialectName)
		if !have {
			log.Fatalf("unknown dialect %q (have %s)", *dialectName, strings.Join(interpreters.Standard().Names(), ", "))
		}
		ev.Dialect = d
	}

	if err := ev.Parse(*source); err != nil {
		panic(err)
	}

	if 0 < *bench {
		var stats runtime.MemStats
		runtime.ReadMemStats(&stats)
		allocs := stats.TotalAlloc
		then := time.Now()
		for i := 0; i < *bench; i++ {
			if _, err := ev.Run(); err != nil {
				panic(err)
			}
		}
		elapsed := time.Now().Sub(then)
		meanNanos := elapsed.Nanoseconds() / int64(*bench)

		runtime.ReadMemStats(&stats)
		allocated := (stats.TotalAlloc - allocs) / uint64(*bench)

		log.Printf("%d iterations, %d mean ns/Run, %d mean bytes allocated per Run", *bench, meanNanos, allocated)
	}

	result, err := ev.Run()
	if err != nil {
		panic(err)
	}

	if *wantJS != "" {
		var want interface{}
		if err := json.Unmarshal([]byte(*wantJS), &want); err != nil {
			panic(err)
		}
		got, err := roundTrip(result)
		if err != nil {
			panic(err)
		}
		fmt.Printf("%v\n", equalJSON(want, got))
		return
	}

	js, err := json.Marshal(result)
	if err != nil {
		panic(err)
	}
	fmt.Printf("%s\n", js)
}

// evaluator runs one expression or program against fixed values.
type evaluator struct {
	Values  map[string]expr.Value
	Vars    map[string]expr.Value
	Dialect *expr.Dialect
	Catalog *catalog.Catalog
	Program bool

	node expr.Node
	prog *expr.Program
}

func (ev *evaluator) Parse(src string) error {
	var err error
	if ev.Program {
		ev.prog, err = expr.ParseProgram(src, ev.Dialect)
	} else {
		ev.node, err = expr.ParseExpr(src, ev.Dialect)
	}
	return err
}

// Run evaluates the expression, or runs the program and returns the
// values and variables it assigned.
func (ev *evaluator) Run() (interface{}, error) {
	if !ev.Program {
		return expr.Eval(ev, ev.node)
	}
	acc := &assignments{
		Values: make(map[string]expr.Value),
		Vars:   make(map[string]expr.Value),
	}
	if err := expr.Exec(ev, acc, ev.prog); err != nil {
		return nil, err
	}
	return acc, nil
}

// Lookup tries "Class.Name" before "Name".
func (ev *evaluator) Lookup(r *expr.Ref) expr.Value {
	if r.Qualifier != "" {
		if v, have := ev.Values[r.Qualifier+"."+r.Name]; have {
			return v
		}
	}
	if v, have := ev.Values[r.Name]; have {
		return v
	}
	return expr.Undef
}

func (ev *evaluator) Variable(name string) expr.Value {
	if v, have := ev.Vars[name]; have {
		return v
	}
	return expr.Undef
}

func (ev *evaluator) Table(name string) (*expr.Table, bool) {
	if ev.Catalog == nil {
		return nil, false
	}
	return ev.Catalog.Table(name)
}

type assignments struct {
	Values map[string]expr.Value `json:"values,omitempty"`
	Vars   map[string]expr.Value `json:"vars,omitempty"`
}

func (a *assignments) Assign(target expr.Node, v expr.Value) error {
	switch vv := target.(type) {
	case *expr.Var:
		a.Vars[vv.Name] = v
	case *expr.Ref:
		a.Values[vv.String()] = v
	default:
		return fmt.Errorf("can't assign to %s", target)
	}
	return nil
}

func roundTrip(x interface{}) (interface{}, error) {
	js, err := json.Marshal(x)
	if err != nil {
		return nil, err
	}
	var y interface{}
	if err = json.Unmarshal(js, &y); err != nil {
		return nil, err
	}
	return y, nil
}

// equalJSON compares decoded JSON.
func equalJSON(x, y interface{}) bool {
	xjs, err := json.Marshal(x)
	if err != nil {
		return false
	}
	yjs, err := json.Marshal(y)
	if err != nil {
		return false
	}
	return string(xjs) == string(yjs)
}
