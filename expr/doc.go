/* Copyright 2026 Comcast Cable Communications Management, LLC
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

// Package expr implements the relation language used by catalog
// rule programs: preconditions, selection conditions, actions,
// reactions and constraints.
//
// All dialects share one AST and one evaluator.  A Dialect carries a
// capability set that the parser consults; a construct outside that
// set is a parse error, so the evaluator never has to ask which
// dialect it is running.
//
// Logic is three-valued.  A reference to a property that has no value
// yields an Undefined Value, and Undefined flows through arithmetic
// and comparisons until a logical operator can decide without it.
// Undefined is never an error.
//
// Function calls fail closed: an invalid argument produces an
// *EvalError, and the caller is expected to abandon the one relation
// being evaluated.
package expr
