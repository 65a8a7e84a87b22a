// Package available implements the available-package cache: a
// {cache_root}/{repo}/{category}/{name}/{version} tree of serialized
// manifests, queryable by requirement.
package available

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"

	"github.com/karrick/godirwalk"
	"github.com/pkg/errors"

	"github.com/raven-os/libnest/identifier"
	"github.com/raven-os/libnest/manifest"
	"github.com/raven-os/libnest/system"
)

// Cache is the available-package cache rooted at a directory.
type Cache struct {
	root string
}

// New returns a Cache rooted at root. The directory need not exist yet.
func New(root string) *Cache {
	return &Cache{root: root}
}

// Erase recursively removes the entire cache. Tolerant of non-existence.
func (c *Cache) Erase() error {
	if err := os.RemoveAll(c.root); err != nil {
		return errors.Wrapf(err, "erasing available cache %s", c.root)
	}
	return nil
}

// EraseRepository recursively removes one repository's subtree. Tolerant of
// non-existence.
func (c *Cache) EraseRepository(repo identifier.RepositoryName) error {
	dir := filepath.Join(c.root, string(repo))
	if err := os.RemoveAll(dir); err != nil {
		return errors.Wrapf(err, "erasing repository %s from available cache", repo)
	}
	return nil
}

// Update writes one package version's manifest to the cache, creating
// parent directories as needed. Manifests are immutable once cached; a
// second Update for the same id overwrites it wholesale.
func (c *Cache) Update(repo identifier.RepositoryName, m manifest.Manifest) error {
	dir := filepath.Join(c.root, string(repo), string(m.Category), string(m.Name))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrapf(err, "creating available cache directory %s", dir)
	}

	path := filepath.Join(dir, m.Version.String())
	b, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encoding manifest")
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return errors.Wrapf(err, "writing manifest %s", path)
	}
	return nil
}

// Package is one query result: a manifest paired with the identity it was
// filed under.
type Package struct {
	ID       identifier.PackageID
	Manifest manifest.Manifest
}

// Strategy controls how Query orders and deduplicates its results.
type Strategy int

const (
	// BestMatch returns the single newest satisfying version per
	// (repo, category, name).
	BestMatch Strategy = iota
	// AllMatchesUnsorted returns every satisfying version, in filesystem
	// iteration order.
	AllMatchesUnsorted
	// AllMatchesSorted returns every satisfying version, newest first.
	AllMatchesSorted
)

// Query searches the cache for packages matching req.
type Query struct {
	cache       *Cache
	req         identifier.PackageRequirement
	strategy    Strategy
	nameContain bool
	arch        *system.Arch
}

// Query begins a query against req, defaulting to BestMatch.
func (c *Cache) Query(req identifier.PackageRequirement) *Query {
	return &Query{cache: c, req: req, strategy: BestMatch}
}

// SetStrategy changes the query's result strategy and returns the query for
// chaining.
func (q *Query) SetStrategy(s Strategy) *Query {
	q.strategy = s
	return q
}

// MatchNameContains switches the package-name test at depth 3 from exact
// equality to substring containment, for interactive search callers (see
// query.Cache, a supplemented feature); the solver always uses the default
// exact match.
func (q *Query) MatchNameContains() *Query {
	q.nameContain = true
	return q
}

// MatchingArch drops packages whose manifest names an architecture other
// than a. Arch-agnostic manifests (an empty arch field) always pass.
func (q *Query) MatchingArch(a system.Arch) *Query {
	q.arch = &a
	return q
}

// Perform walks the cache tree and returns every package matching the
// query's requirement, per its strategy.
func (q *Query) Perform() ([]Package, error) {
	root := q.cache.root
	if _, err := os.Stat(root); os.IsNotExist(err) {
		return nil, nil
	}

	repoEntries, err := readDirNames(root, false)
	if err != nil {
		return nil, errors.Wrapf(err, "listing available cache %s", root)
	}

	type bucket struct {
		pkgs []Package
	}
	buckets := make(map[identifier.PackageFullName]*bucket)
	var bucketOrder []identifier.PackageFullName

	for _, repoName := range repoEntries {
		repo, err := identifier.ParseRepositoryName(repoName)
		if err != nil {
			continue
		}
		if q.req.Repository != nil && *q.req.Repository != repo {
			continue
		}

		repoDir := filepath.Join(root, repoName)
		catEntries, err := readDirNames(repoDir, false)
		if err != nil {
			return nil, errors.Wrapf(err, "listing repository %s", repoDir)
		}

		for _, catName := range catEntries {
			cat, err := identifier.ParseCategoryName(catName)
			if err != nil {
				continue
			}
			if q.req.Category != nil && *q.req.Category != cat {
				continue
			}

			catDir := filepath.Join(repoDir, catName)
			nameEntries, err := readDirNames(catDir, false)
			if err != nil {
				return nil, errors.Wrapf(err, "listing category %s", catDir)
			}

			for _, pkgName := range nameEntries {
				name, err := identifier.ParsePackageName(pkgName)
				if err != nil {
					continue
				}
				if q.nameContain {
					if !name.Contains(q.req.Name) {
						continue
					}
				} else if name != q.req.Name {
					continue
				}

				pkgDir := filepath.Join(catDir, pkgName)
				verEntries, err := readDirNames(pkgDir, true)
				if err != nil {
					return nil, errors.Wrapf(err, "listing package %s", pkgDir)
				}

				full := identifier.PackageFullName{Repository: repo, Category: cat, Name: name}
				b := buckets[full]
				if b == nil {
					b = &bucket{}
					buckets[full] = b
					bucketOrder = append(bucketOrder, full)
				}

				for _, verName := range verEntries {
					ver, err := identifier.ParseVersion(verName)
					if err != nil {
						continue
					}
					if !q.req.VersionReq.Matches(ver) {
						continue
					}

					m, err := readManifest(filepath.Join(pkgDir, verName))
					if err != nil {
						return nil, err
					}
					if q.arch != nil && !q.arch.Matches(m.Metadata.Arch) {
						continue
					}

					id := identifier.PackageID{Repository: repo, Category: cat, Name: name, Version: ver}
					b.pkgs = append(b.pkgs, Package{ID: id, Manifest: m})
				}
			}
		}
	}

	var results []Package
	for _, full := range bucketOrder {
		pkgs := buckets[full].pkgs
		switch q.strategy {
		case BestMatch:
			if len(pkgs) == 0 {
				continue
			}
			sortNewestFirst(pkgs)
			results = append(results, pkgs[0])
		case AllMatchesSorted:
			sortNewestFirst(pkgs)
			results = append(results, pkgs...)
		default: // AllMatchesUnsorted
			results = append(results, pkgs...)
		}
	}
	return results, nil
}

func sortNewestFirst(pkgs []Package) {
	sort.SliceStable(pkgs, func(i, j int) bool {
		return pkgs[j].ID.Version.Less(pkgs[i].ID.Version)
	})
}

func readManifest(path string) (manifest.Manifest, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return manifest.Manifest{}, errors.Wrapf(err, "reading manifest %s", path)
	}
	var m manifest.Manifest
	if err := json.Unmarshal(b, &m); err != nil {
		return manifest.Manifest{}, errors.Wrapf(err, "decoding manifest %s", path)
	}
	return m, nil
}

// readDirNames lists the immediate entries of dir by name, using
// godirwalk's scandir for the depth-indexed walk the query performs at each
// of its four levels (repo/category/name/version). With files false it keeps
// subdirectories (the repo, category and name levels); with files true it
// keeps regular files (the per-version manifest files). Non-existent
// directories yield an empty, error-free listing.
func readDirNames(dir string, files bool) ([]string, error) {
	entries, err := godirwalk.ReadDirents(dir, nil)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if (files && e.IsRegular()) || (!files && e.IsDir()) {
			names = append(names, e.Name())
		}
	}
	return names, nil
}
