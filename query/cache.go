// Package query is a convenience layer over cache/available for
// interactive search, alongside depgraph's Query over the resolved graph: substring
// name matching against every version of every package the available
// cache knows about.
package query

import (
	"github.com/raven-os/libnest/cache/available"
	"github.com/raven-os/libnest/identifier"
	"github.com/raven-os/libnest/system"
)

// Cache searches an available cache for packages whose name contains a
// search term, case-sensitively (package names are already constrained to
// lowercase by identifier.ParsePackageName, so case folding would be a
// no-op).
type Cache struct {
	cache *available.Cache
}

// New wraps an available cache for interactive search.
func New(c *available.Cache) *Cache {
	return &Cache{cache: c}
}

// Search returns every package whose name contains term, one entry per
// matching version, newest-first within each package. Packages built for a
// foreign architecture are dropped; there is nothing an interactive caller
// could do with them.
func (c *Cache) Search(term identifier.PackageName) ([]available.Package, error) {
	req := identifier.PackageRequirement{Name: term, VersionReq: identifier.AnyVersion()}
	return c.cache.Query(req).
		SetStrategy(available.AllMatchesSorted).
		MatchNameContains().
		MatchingArch(system.CurrentArch()).
		Perform()
}
