package depgraph

import "github.com/raven-os/libnest/identifier"

// Query scans every package node in a graph and returns those whose id
// matches a requirement. Used by interactive commands like uninstall and
// reinstall that operate on the currently-resolved graph rather than the
// available cache.
type Query struct {
	graph   *Graph
	req     identifier.PackageRequirement
	precise bool
}

// NewQuery begins a query against graph for requirement req.
func NewQuery(graph *Graph, req identifier.PackageRequirement) *Query {
	return &Query{graph: graph, req: req}
}

// Precise switches the query's name test from substring containment to
// exact equality, for callers that must disambiguate a single installed
// package rather than list every interactively-matching one (e.g.
// reinstall), the same way the solver matches names.
func (q *Query) Precise() *Query {
	q.precise = true
	return q
}

// Perform returns every package id in the graph matching the query's
// requirement.
func (q *Query) Perform() []identifier.PackageID {
	var out []identifier.PackageID
	for _, n := range q.graph.AllNodes() {
		if n.Kind.IsGroup {
			continue
		}
		matches := q.req.Matches(n.Kind.PackageID)
		if q.precise {
			matches = q.req.MatchesPrecisely(n.Kind.PackageID)
		}
		if matches {
			out = append(out, n.Kind.PackageID)
		}
	}
	return out
}
