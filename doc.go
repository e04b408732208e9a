// Package ocdrules provides a configuration rule evaluator and price
// determination engine for product catalogs.
//
// The engine is in package 'core', the downstream queries are in
// 'variant', 'pricing', 'tax' and 'packaging', and command-line tools
// are in `cmd`.  Quote runs all of the queries for one settled
// configuration.
package ocdrules
