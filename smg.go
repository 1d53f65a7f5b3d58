// Package smg evaluates C expressions against a symbolic memory graph.
//
// A symbolic memory graph (SMG) is a graph of memory objects connected by
// has-value edges (object, offset, size) -> value and points-to edges
// value -> (object, offset). The evaluators in this package translate C
// expressions into reads of the graph, address arithmetic and facts about
// symbolic values. Every evaluation returns a non-empty list of results
// because the graph may have to split into several concrete shapes to answer
// a query.
package smg

import (
	"fmt"
)

// Reserved symbolic value ids.
const (
	zeroID = 0
	trueID = 1

	firstFreshID = 16
)

// assert panics if condition is false.
func assert(condition bool, format string, args ...interface{}) {
	if !condition {
		panic(fmt.Sprintf("assert: "+format, args...))
	}
}
