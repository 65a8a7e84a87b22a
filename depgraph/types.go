// Package depgraph implements the persistent dependency graph: a bipartite
// arena of package/group nodes and package/group requirements, a first-fit
// solver, an orphan sweep, an update pass, a differ that turns two related
// graphs into a linear transaction plan, and a query.
package depgraph

import (
	"github.com/raven-os/libnest/identifier"
)

// NodeID is a dense, monotonically-assigned node identifier. Node 0 is
// always the root group, "@root".
type NodeID int

// ReqID is a dense, monotonically-assigned requirement identifier.
type ReqID int

// ManagementMethod distinguishes requirements the solver inserted from a
// manifest's dependency list (Auto) from ones a user authored directly via
// install/group-add (Static). Update sweeps Auto requirements; Static ones
// survive it.
type ManagementMethod int

const (
	Auto ManagementMethod = iota
	Static
)

func (m ManagementMethod) String() string {
	if m == Static {
		return "static"
	}
	return "auto"
}

// NodeKind is the tagged union a Node carries: either a named group or a
// pinned package identity.
type NodeKind struct {
	IsGroup   bool
	Group     identifier.GroupName
	PackageID identifier.PackageID
}

// GroupNodeKind builds a NodeKind for a group node.
func GroupNodeKind(name identifier.GroupName) NodeKind {
	return NodeKind{IsGroup: true, Group: name}
}

// PackageNodeKind builds a NodeKind for a package node.
func PackageNodeKind(id identifier.PackageID) NodeKind {
	return NodeKind{PackageID: id}
}

// Node is one vertex of the graph: either a group or a pinned package,
// with its outgoing requirements and the requirements it fulfills.
type Node struct {
	ID   NodeID
	Kind NodeKind
	// Requirements are outgoing: things this node needs.
	Requirements []ReqID
	// Dependents are incoming: requirements this node fulfills.
	Dependents []ReqID
}

// RequirementKind is the tagged union a Requirement carries: either a named
// group reference or an abstract package requirement.
type RequirementKind struct {
	IsGroup    bool
	Group      identifier.GroupName
	PackageReq identifier.PackageRequirement
}

// GroupRequirementKind builds a RequirementKind referencing a group by name.
func GroupRequirementKind(name identifier.GroupName) RequirementKind {
	return RequirementKind{IsGroup: true, Group: name}
}

// PackageRequirementKind builds a RequirementKind wrapping an abstract
// package requirement.
func PackageRequirementKind(req identifier.PackageRequirement) RequirementKind {
	return RequirementKind{PackageReq: req}
}

// Requirement is one edge of the graph: a node's need for a group or a
// package, and (once solved) the node fulfilling it.
type Requirement struct {
	ID          ReqID
	Kind        RequirementKind
	Method      ManagementMethod
	FulfilledBy NodeID
	// Fulfilling is nil until solve binds this requirement to a node.
	Fulfilling *NodeID
}

// NodeName is the tagged union used by the graph's secondary index:
// group names and package full names share one namespace of bindable
// identities.
type NodeName struct {
	IsGroup bool
	Group   identifier.GroupName
	Package identifier.PackageFullName
}

// NodeNameForGroup builds the NodeName a group node is bound under.
func NodeNameForGroup(name identifier.GroupName) NodeName {
	return NodeName{IsGroup: true, Group: name}
}

// NodeNameForPackage builds the NodeName a package node is bound under.
func NodeNameForPackage(full identifier.PackageFullName) NodeName {
	return NodeName{Package: full}
}

func (n NodeName) String() string {
	if n.IsGroup {
		return string(n.Group)
	}
	return n.Package.String()
}
