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

// Package catalog holds the load-time data of a product catalog:
// articles, property classes, properties and their value tables,
// relation objects, value combination tables, price and rounding
// rows, packaging rows and tax rows.
//
// A Catalog is decoded from YAML or JSON and then Compiled.  Compile
// parses every relation in the catalog's dialect, validates the rows
// and builds the lookup indexes.  A Catalog that fails to compile is
// rejected as a whole; sessions never see a partially parsed
// catalog.
//
// After Compile a Catalog is immutable and may be shared by any
// number of concurrent sessions.
package catalog
