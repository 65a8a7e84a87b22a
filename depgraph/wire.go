package depgraph

import "sort"

// wireGraph is the on-disk JSON shape of a Graph: flat, ID-sorted slices
// instead of Go maps, so serialization is deterministic and a graph
// round-trips unchanged through its cache file.
type wireGraph struct {
	Nodes        []Node        `json:"nodes"`
	Requirements []Requirement `json:"requirements"`
	NextNodeID   NodeID        `json:"next_node_id"`
	NextReqID    ReqID         `json:"next_req_id"`
}

func (g *Graph) toWire() *wireGraph {
	w := &wireGraph{
		Nodes:        make([]Node, 0, len(g.nodes)),
		Requirements: make([]Requirement, 0, len(g.reqs)),
		NextNodeID:   g.nextNodeID,
		NextReqID:    g.nextReqID,
	}
	for _, n := range g.nodes {
		w.Nodes = append(w.Nodes, *n)
	}
	sort.Slice(w.Nodes, func(i, j int) bool { return w.Nodes[i].ID < w.Nodes[j].ID })

	for _, r := range g.reqs {
		w.Requirements = append(w.Requirements, *r)
	}
	sort.Slice(w.Requirements, func(i, j int) bool { return w.Requirements[i].ID < w.Requirements[j].ID })
	return w
}

func (w *wireGraph) toGraph() *Graph {
	g := &Graph{
		nodes:      make(map[NodeID]*Node, len(w.Nodes)),
		reqs:       make(map[ReqID]*Requirement, len(w.Requirements)),
		nodeNames:  make(map[NodeName]NodeID),
		nextNodeID: w.NextNodeID,
		nextReqID:  w.NextReqID,
	}
	for i := range w.Nodes {
		n := w.Nodes[i]
		// Copy each node's Requirements/Dependents slices so the clone
		// doesn't alias the source graph's backing arrays.
		n.Requirements = append([]ReqID(nil), n.Requirements...)
		n.Dependents = append([]ReqID(nil), n.Dependents...)
		g.nodes[n.ID] = &n
		g.nodeNames[nodeNameOf(n)] = n.ID
	}
	for i := range w.Requirements {
		r := w.Requirements[i]
		if r.Fulfilling != nil {
			v := *r.Fulfilling
			r.Fulfilling = &v
		}
		g.reqs[r.ID] = &r
	}
	return g
}
