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

// Package core provides the configuration engine: the gear that
// keeps the live State of one configurable article consistent with
// the relations of a compiled catalog.
//
// The primary type is Engine, and the primary methods are Initialize
// and Apply.  An Engine wraps a read-only *catalog.Catalog that any
// number of goroutines can share.  A State is a map from property
// names to values plus, for restrictable properties, a candidate
// value set.  Each State belongs to one caller; the Engine never
// modifies a State it was given.  Instead, Step returns a Stride that
// holds the new State and any trace messages.
//
// Every Step runs one evaluation pass:
//
//	reactions (once)
//	repeat until nothing changes (up to Control.Limit times):
//	    preconditions and selection conditions
//	    actions and constraints in dispatch order
//	post-reactions (once)
//
// Dispatch order is article, classes, evaluated properties and then
// their current values, with relations sorted by position.
// Relation-only (scope R) properties live in a store that belongs to
// the pass and is thrown away at its end.
//
// Derive runs the actions of another usage area (pricing, packaging,
// tax) against a settled State.  Those actions may only assign
// relation variables and relation-only properties.
package core
