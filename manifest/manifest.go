// Package manifest models package metadata: the per-version Manifest shipped
// inside a package archive and stored per version by the available cache,
// and the aggregated PackageManifest a repository's pull route returns.
package manifest

import (
	"fmt"
	"time"

	"github.com/pkg/errors"

	"github.com/raven-os/libnest/identifier"
)

// Kind distinguishes an effective package (ships a data tarball) from a
// virtual one (metadata-only, no files to install).
type Kind int

const (
	// Effective packages install files from a data tarball.
	Effective Kind = iota
	// Virtual packages carry no data; installing one is metadata-only.
	Virtual
)

func (k Kind) String() string {
	if k == Virtual {
		return "virtual"
	}
	return "effective"
}

// MarshalText/UnmarshalText let Kind serialize as the bare word
// "effective"/"virtual" in both TOML and JSON.
func (k Kind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

func (k *Kind) UnmarshalText(b []byte) error {
	switch string(b) {
	case "virtual":
		*k = Virtual
	case "effective", "":
		*k = Effective
	default:
		return fmt.Errorf("unknown package kind %q", string(b))
	}
	return nil
}

// Metadata holds the descriptive, non-structural fields of a package.
type Metadata struct {
	Description string   `toml:"description"`
	Tags        []string `toml:"tags,omitempty"`
	Maintainer  string   `toml:"maintainer"`
	Licenses    []string `toml:"licenses,omitempty"`
	Upstream    string   `toml:"upstream,omitempty"`
	// Arch is a supplemented field: the architecture
	// triple the package was built for, informational only.
	Arch string `toml:"arch,omitempty"`
}

// Manifest is a package manifest pinned to a single version: what ships
// inside a package archive's manifest.toml.
type Manifest struct {
	Name         identifier.PackageName  `toml:"name"`
	Category     identifier.CategoryName `toml:"category"`
	Version      identifier.Version      `toml:"version"`
	Slot         string                  `toml:"slot,omitempty"`
	Kind         Kind                    `toml:"kind"`
	Metadata     Metadata                `toml:"metadata"`
	WrapDate     time.Time               `toml:"wrap_date"`
	Dependencies map[string]string       `toml:"dependencies,omitempty"`
}

// FullName builds the PackageFullName this manifest belongs to, given the
// repository it was pulled from (the manifest itself never names its own
// repository; that's contextual to where it was fetched).
func (m Manifest) FullName(repo identifier.RepositoryName) identifier.PackageFullName {
	return identifier.PackageFullName{Repository: repo, Category: m.Category, Name: m.Name}
}

// VersionData is the per-version payload inside a PackageManifest: the same
// fields as Manifest, minus name/category (those are shared across all
// versions of the package).
type VersionData struct {
	Slot         string            `toml:"slot,omitempty"`
	Kind         Kind              `toml:"kind"`
	Metadata     Metadata          `toml:"metadata"`
	WrapDate     time.Time         `toml:"wrap_date"`
	Dependencies map[string]string `toml:"dependencies,omitempty"`
}

// PackageManifest aggregates every known version of one package; it is the
// shape of a pull response, which repository.Pull splits into one Manifest
// per version for the available cache.
type PackageManifest struct {
	Category identifier.CategoryName `toml:"category"`
	Name     identifier.PackageName  `toml:"name"`
	Versions map[string]VersionData  `toml:"versions"`
}

// Version projects one version out of a PackageManifest into a pinned
// Manifest. Conversions are one-way: a downloaded archive never
// reconstructs a PackageManifest from its own Manifest.
func (pm PackageManifest) Version(v identifier.Version) (Manifest, bool) {
	vd, ok := pm.Versions[v.String()]
	if !ok {
		return Manifest{}, false
	}
	return Manifest{
		Name:         pm.Name,
		Category:     pm.Category,
		Version:      v,
		Slot:         vd.Slot,
		Kind:         vd.Kind,
		Metadata:     vd.Metadata,
		WrapDate:     vd.WrapDate,
		Dependencies: vd.Dependencies,
	}, true
}

// AddVersion inserts or overwrites the data for one version. Manifests are
// immutable once in the available cache; a re-pull overwrites wholesale.
func (pm *PackageManifest) AddVersion(m Manifest) {
	if pm.Versions == nil {
		pm.Versions = make(map[string]VersionData)
	}
	pm.Category = m.Category
	pm.Name = m.Name
	pm.Versions[m.Version.String()] = VersionData{
		Slot:         m.Slot,
		Kind:         m.Kind,
		Metadata:     m.Metadata,
		WrapDate:     m.WrapDate,
		Dependencies: m.Dependencies,
	}
}

// ParsedDependencies parses m's wire-format dependency map (full name string
// -> version requirement string) into the typed form the dependency graph
// consumes when inserting Auto requirements.
func (m Manifest) ParsedDependencies() (map[identifier.PackageFullName]identifier.VersionRequirement, error) {
	out := make(map[identifier.PackageFullName]identifier.VersionRequirement, len(m.Dependencies))
	for nameStr, reqStr := range m.Dependencies {
		full, err := identifier.ParsePackageFullName(nameStr)
		if err != nil {
			return nil, errors.Wrapf(err, "dependency name %q of %s#%s", nameStr, m.Name, m.Version)
		}
		req, err := identifier.ParseVersionRequirement(reqStr)
		if err != nil {
			return nil, errors.Wrapf(err, "dependency requirement %q of %s#%s", reqStr, m.Name, m.Version)
		}
		out[full] = req
	}
	return out, nil
}
