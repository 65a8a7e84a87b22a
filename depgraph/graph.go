package depgraph

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/raven-os/libnest/identifier"
	"github.com/raven-os/libnest/lockfile"
	"github.com/raven-os/libnest/manifest"
)

// Graph is the persistent bipartite graph of nodes (packages or groups)
// and requirements. Node 0 is always the root group "@root".
//
// Mutation primitives keep both tables and the name index consistent or
// panic: a caller passing a NodeID/ReqID the graph doesn't know about is
// a programmer bug, not a data error, and is not recoverable.
type Graph struct {
	nodes      map[NodeID]*Node
	reqs       map[ReqID]*Requirement
	nodeNames  map[NodeName]NodeID
	nextNodeID NodeID
	nextReqID  ReqID
}

// New returns a fresh graph containing only the root group node.
func New() *Graph {
	g := &Graph{
		nodes:     make(map[NodeID]*Node),
		reqs:      make(map[ReqID]*Requirement),
		nodeNames: make(map[NodeName]NodeID),
	}
	root := &Node{ID: 0, Kind: GroupNodeKind(identifier.RootGroupName)}
	g.nodes[0] = root
	g.nodeNames[NodeNameForGroup(identifier.RootGroupName)] = 0
	g.nextNodeID = 1
	return g
}

// RootID is the NodeID of the root group, always 0.
const RootID NodeID = 0

// LoadFromCache deserializes the graph at path, or returns New() if the
// path does not exist.
func LoadFromCache(path string) (*Graph, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return New(), nil
		}
		return nil, errors.Wrapf(err, "reading dependency graph %s", path)
	}

	var w wireGraph
	if err := json.Unmarshal(b, &w); err != nil {
		return nil, errors.Wrapf(err, "decoding dependency graph %s", path)
	}
	return w.toGraph(), nil
}

// SaveToCache serializes the graph to path as pretty JSON followed by a
// trailing newline, creating parent directories as needed. ownership
// proves the caller holds the lock file; it is not otherwise consulted.
func (g *Graph) SaveToCache(path string, ownership *lockfile.Ownership) error {
	_ = ownership

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrapf(err, "creating dependency graph directory for %s", path)
	}

	w := g.toWire()
	b, err := json.MarshalIndent(w, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encoding dependency graph")
	}
	b = append(b, '\n')
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return errors.Wrapf(err, "writing dependency graph %s", path)
	}
	return nil
}

// Clone returns a deep copy of g. Used by callers that must solve a
// mutated copy while keeping the pre-solve graph for diffing.
func (g *Graph) Clone() *Graph {
	return g.toWire().toGraph()
}

// node returns the node for id, panicking if it is unknown: callers are
// expected to pass only NodeIDs this graph itself produced.
func (g *Graph) node(id NodeID) *Node {
	n, ok := g.nodes[id]
	if !ok {
		panic("depgraph: unknown node id")
	}
	return n
}

func (g *Graph) requirement(id ReqID) *Requirement {
	r, ok := g.reqs[id]
	if !ok {
		panic("depgraph: unknown requirement id")
	}
	return r
}

// Node looks up a node by id. ok is false if the graph has no such node
// (for read-only callers that shouldn't panic on a stale id, e.g. the
// differ walking two graphs).
func (g *Graph) Node(id NodeID) (Node, bool) {
	n, ok := g.nodes[id]
	if !ok {
		return Node{}, false
	}
	return *n, true
}

// Requirement looks up a requirement by id.
func (g *Graph) Requirement(id ReqID) (Requirement, bool) {
	r, ok := g.reqs[id]
	if !ok {
		return Requirement{}, false
	}
	return *r, true
}

// LookupName resolves a NodeName to its bound NodeID, if any.
func (g *Graph) LookupName(name NodeName) (NodeID, bool) {
	id, ok := g.nodeNames[name]
	return id, ok
}

// AddGroupNode creates a new group node bound to name, failing with
// GroupAlreadyExists if name is already bound.
func (g *Graph) AddGroupNode(name identifier.GroupName) (NodeID, error) {
	key := NodeNameForGroup(name)
	if _, exists := g.nodeNames[key]; exists {
		return 0, &Error{Kind: GroupAlreadyExists, Detail: string(name)}
	}

	id := g.nextNodeID
	g.nextNodeID++
	g.nodes[id] = &Node{ID: id, Kind: GroupNodeKind(name)}
	g.nodeNames[key] = id
	return id, nil
}

// AddPackageNode creates a new package node for m (pulled from repo),
// failing with PackageAlreadyExists if its full name is already bound.
// It inserts one Auto requirement per dependency in m.Dependencies.
func (g *Graph) AddPackageNode(repo identifier.RepositoryName, m manifest.Manifest) (NodeID, error) {
	full := m.FullName(repo)
	key := NodeNameForPackage(full)
	if _, exists := g.nodeNames[key]; exists {
		return 0, &Error{Kind: PackageAlreadyExists, Detail: full.String()}
	}

	id := identifier.PackageID{Repository: repo, Category: m.Category, Name: m.Name, Version: m.Version}
	nodeID := g.newPackageNode(full, id)

	if err := g.addAutoDependencies(nodeID, m); err != nil {
		return 0, err
	}
	return nodeID, nil
}

func (g *Graph) newPackageNode(full identifier.PackageFullName, id identifier.PackageID) NodeID {
	nodeID := g.nextNodeID
	g.nextNodeID++
	g.nodes[nodeID] = &Node{ID: nodeID, Kind: PackageNodeKind(id)}
	g.nodeNames[NodeNameForPackage(full)] = nodeID
	return nodeID
}

func (g *Graph) addAutoDependencies(nodeID NodeID, m manifest.Manifest) error {
	deps, err := m.ParsedDependencies()
	if err != nil {
		return errors.Wrapf(err, "parsing dependencies of %s#%s", m.Name, m.Version)
	}
	for full, vr := range deps {
		repo, cat := full.Repository, full.Category
		req := identifier.PackageRequirement{Repository: &repo, Category: &cat, Name: full.Name, VersionReq: vr}
		g.NodeAddRequirement(nodeID, PackageRequirementKind(req), Auto)
	}
	return nil
}

// NodeAddRequirement attaches a new, as-yet-unfulfilled requirement to
// parent.
func (g *Graph) NodeAddRequirement(parent NodeID, kind RequirementKind, method ManagementMethod) ReqID {
	node := g.node(parent)

	id := g.nextReqID
	g.nextReqID++
	g.reqs[id] = &Requirement{ID: id, Kind: kind, Method: method, FulfilledBy: parent}
	node.Requirements = append(node.Requirements, id)
	return id
}

// NodeRemoveRequirement removes every requirement of parent whose Kind
// equals kind (discriminant and value), unlinking each from its fulfilling
// node if bound. Returns the number of requirements removed.
func (g *Graph) NodeRemoveRequirement(parent NodeID, kind RequirementKind) int {
	node := g.node(parent)

	var kept []ReqID
	removed := 0
	for _, rid := range node.Requirements {
		req := g.reqs[rid]
		if requirementKindEquals(req.Kind, kind) {
			g.unlinkAndDropRequirement(rid)
			removed++
			continue
		}
		kept = append(kept, rid)
	}
	node.Requirements = kept
	return removed
}

// RemoveRequirement removes a single requirement, symmetrically unlinking
// its fulfilling node's Dependents entry if bound.
func (g *Graph) RemoveRequirement(id ReqID) {
	req := g.requirement(id)
	owner := g.node(req.FulfilledBy)
	owner.Requirements = removeReqID(owner.Requirements, id)
	g.unlinkAndDropRequirement(id)
}

// unlinkAndDropRequirement removes id's Dependents entry on its fulfilling
// node (if any) and deletes the requirement itself. It does not touch the
// owning node's Requirements list; callers that haven't already removed it
// from there must do so themselves.
func (g *Graph) unlinkAndDropRequirement(id ReqID) {
	req := g.reqs[id]
	if req.Fulfilling != nil {
		target := g.node(*req.Fulfilling)
		target.Dependents = removeReqID(target.Dependents, id)
	}
	delete(g.reqs, id)
}

// RemoveNode removes id and every requirement touching it, unlinking each
// far endpoint.
func (g *Graph) RemoveNode(id NodeID) {
	node := g.node(id)

	for _, rid := range node.Requirements {
		req := g.reqs[rid]
		if req.Fulfilling != nil {
			target := g.node(*req.Fulfilling)
			target.Dependents = removeReqID(target.Dependents, rid)
		}
		delete(g.reqs, rid)
	}
	for _, rid := range node.Dependents {
		req := g.reqs[rid]
		owner := g.node(req.FulfilledBy)
		owner.Requirements = removeReqID(owner.Requirements, rid)
		delete(g.reqs, rid)
	}

	delete(g.nodeNames, nodeNameOf(*node))
	delete(g.nodes, id)
}

func nodeNameOf(n Node) NodeName {
	if n.Kind.IsGroup {
		return NodeNameForGroup(n.Kind.Group)
	}
	return NodeNameForPackage(n.Kind.PackageID.FullName())
}

func requirementKindEquals(a, b RequirementKind) bool {
	if a.IsGroup != b.IsGroup {
		return false
	}
	if a.IsGroup {
		return a.Group == b.Group
	}
	return packageRequirementEquals(a.PackageReq, b.PackageReq)
}

func packageRequirementEquals(a, b identifier.PackageRequirement) bool {
	if a.Name != b.Name {
		return false
	}
	if (a.Repository == nil) != (b.Repository == nil) {
		return false
	}
	if a.Repository != nil && *a.Repository != *b.Repository {
		return false
	}
	if (a.Category == nil) != (b.Category == nil) {
		return false
	}
	if a.Category != nil && *a.Category != *b.Category {
		return false
	}
	return a.VersionReq.String() == b.VersionReq.String()
}

func removeReqID(s []ReqID, target ReqID) []ReqID {
	out := s[:0]
	for _, id := range s {
		if id != target {
			out = append(out, id)
		}
	}
	return out
}

// AllNodes returns every node in the graph, in no particular order.
func (g *Graph) AllNodes() []Node {
	out := make([]Node, 0, len(g.nodes))
	for _, n := range g.nodes {
		out = append(out, *n)
	}
	return out
}
