package depgraph

import (
	"github.com/pkg/errors"

	"github.com/raven-os/libnest/cache/available"
	"github.com/raven-os/libnest/identifier"
)

// Solve runs a depth-first fixpoint over every unsolved requirement
// reachable from the root, querying cache for package candidates. It is
// idempotent: solving an already-solved graph is a no-op.
func (g *Graph) Solve(cache *available.Cache) error {
	visited := make(map[NodeID]bool)
	return g.solveFrom(cache, RootID, visited)
}

func (g *Graph) solveFrom(cache *available.Cache, id NodeID, visited map[NodeID]bool) error {
	// A visited node is revisited only if narrowing reset it mid-solve and
	// left it with fresh, unsolved requirements; a fully-solved node breaks
	// requirement cycles here.
	if visited[id] && !g.hasUnsolvedRequirement(id) {
		return nil
	}
	visited[id] = true

	node := g.node(id)
	for _, rid := range append([]ReqID(nil), node.Requirements...) {
		req, ok := g.reqs[rid]
		if !ok {
			// Dropped by a narrowing reset deeper in this walk.
			continue
		}

		if req.Fulfilling == nil {
			var target NodeID
			var err error
			if req.Kind.IsGroup {
				target, err = g.solveGroupRequirement(req.Kind.Group)
			} else {
				target, err = g.solvePackageRequirement(cache, req.Kind.PackageReq)
			}
			if err != nil {
				return err
			}

			req.Fulfilling = &target
			targetNode := g.node(target)
			targetNode.Dependents = append(targetNode.Dependents, rid)
		}

		if err := g.solveFrom(cache, *req.Fulfilling, visited); err != nil {
			return err
		}
	}
	return nil
}

func (g *Graph) hasUnsolvedRequirement(id NodeID) bool {
	for _, rid := range g.node(id).Requirements {
		if g.requirement(rid).Fulfilling == nil {
			return true
		}
	}
	return false
}

func (g *Graph) solveGroupRequirement(name identifier.GroupName) (NodeID, error) {
	id, ok := g.nodeNames[NodeNameForGroup(name)]
	if !ok {
		return 0, &Error{Kind: GroupNotFound, Detail: string(name)}
	}
	return id, nil
}

// solvePackageRequirement finds-or-creates a package node satisfying req,
// accumulating version constraints when narrowing an already-chosen
// version, and picking newest-first among candidates satisfying every
// accumulated constraint.
func (g *Graph) solvePackageRequirement(cache *available.Cache, req identifier.PackageRequirement) (NodeID, error) {
	existingID, existingFull, hasExisting := g.findPackageByShortName(req)

	// Step 2: already exactly satisfied.
	if hasExisting {
		existingNode := g.node(existingID)
		if req.MatchesPrecisely(existingNode.Kind.PackageID) {
			return existingID, nil
		}
	}

	// Step 3: accumulate constraints.
	constraints := []identifier.VersionRequirement{req.VersionReq}
	if hasExisting {
		existingNode := g.node(existingID)
		for _, rid := range existingNode.Dependents {
			dep := g.requirement(rid)
			if !dep.Kind.IsGroup {
				constraints = append(constraints, dep.Kind.PackageReq.VersionReq)
			}
		}
	}

	// Step 4: query newest-first, pick first satisfying every constraint.
	candidates, err := cache.Query(req.AnyVersionOf()).SetStrategy(available.AllMatchesSorted).Perform()
	if err != nil {
		return 0, errors.Wrap(err, "querying available cache")
	}

	var chosen *available.Package
	for i := range candidates {
		if satisfiesAll(candidates[i].ID.Version, constraints) {
			chosen = &candidates[i]
			break
		}
	}
	if chosen == nil {
		return 0, &Error{Kind: RequirementSolvingError, Detail: req.String()}
	}

	// Step 6: existing node narrows/replaces its version.
	if hasExisting {
		existingNode := g.node(existingID)
		for _, rid := range existingNode.Requirements {
			g.unlinkAndDropRequirement(rid)
		}
		existingNode.Requirements = nil
		existingNode.Kind = PackageNodeKind(chosen.ID)
		// The chosen candidate may come from a different repository than
		// the node it replaces; keep the name index in step.
		if newFull := chosen.ID.FullName(); newFull != existingFull {
			delete(g.nodeNames, NodeNameForPackage(existingFull))
			g.nodeNames[NodeNameForPackage(newFull)] = existingID
		}

		if err := g.addAutoDependencies(existingID, chosen.Manifest); err != nil {
			return 0, err
		}
		return existingID, nil
	}

	// Step 7: brand-new node.
	full := identifier.PackageFullName{Repository: chosen.ID.Repository, Category: chosen.ID.Category, Name: chosen.ID.Name}
	nodeID := g.newPackageNode(full, chosen.ID)
	if err := g.addAutoDependencies(nodeID, chosen.Manifest); err != nil {
		return 0, err
	}
	return nodeID, nil
}

func (g *Graph) findPackageByShortName(req identifier.PackageRequirement) (NodeID, identifier.PackageFullName, bool) {
	for name, id := range g.nodeNames {
		if name.IsGroup {
			continue
		}
		if identifier.MatchesShortName(req, name.Package) {
			return id, name.Package, true
		}
	}
	return 0, identifier.PackageFullName{}, false
}

func satisfiesAll(v identifier.Version, constraints []identifier.VersionRequirement) bool {
	for _, c := range constraints {
		if !c.Matches(v) {
			return false
		}
	}
	return true
}

// SweepOrphans removes every node unreachable from the root through
// requirement -> fulfilling edges.
func (g *Graph) SweepOrphans() {
	reachable := make(map[NodeID]bool)
	g.markReachable(RootID, reachable)

	var orphans []NodeID
	for id := range g.nodes {
		if !reachable[id] {
			orphans = append(orphans, id)
		}
	}
	for _, id := range orphans {
		g.RemoveNode(id)
	}
}

func (g *Graph) markReachable(id NodeID, reachable map[NodeID]bool) {
	if reachable[id] {
		return
	}
	reachable[id] = true
	node := g.node(id)
	for _, rid := range node.Requirements {
		req := g.requirement(rid)
		if req.Fulfilling != nil {
			g.markReachable(*req.Fulfilling, reachable)
		}
	}
}

// Update refreshes the graph to the latest versions allowed by Static
// requirements: Auto requirements are dropped entirely, Static ones are
// unbound, orphans are swept, then the graph is solved from scratch.
func (g *Graph) Update(cache *available.Cache) error {
	for _, node := range g.AllNodes() {
		n := g.node(node.ID)
		var kept []ReqID
		for _, rid := range n.Requirements {
			req := g.requirement(rid)
			switch req.Method {
			case Auto:
				g.unlinkAndDropRequirement(rid)
			case Static:
				if req.Fulfilling != nil {
					target := g.node(*req.Fulfilling)
					target.Dependents = removeReqID(target.Dependents, rid)
					req.Fulfilling = nil
				}
				kept = append(kept, rid)
			}
		}
		n.Requirements = kept
	}

	g.SweepOrphans()
	return g.Solve(cache)
}
