package identifier

import (
	"fmt"
	"regexp"
)

// idRegex captures the full `repository::category/name#version` grammar.
// Each segment is individually optional in the source string so that
// fragments of it (a requirement, a short name, a full name) can share the
// same regex with differing capture expectations.
var idRegex = regexp.MustCompile(
	`^(?:(?P<repo>[a-z0-9\-]+)::)?` +
		`(?:(?P<cat>[a-z0-9\-]+)/)?` +
		`(?P<name>[a-z0-9\-\+]+)` +
		`(?:#(?P<ver>[^\s]+))?$`,
)

// PackageID uniquely identifies one version of one package within one
// repository: (repository, category, name, version).
type PackageID struct {
	Repository RepositoryName
	Category   CategoryName
	Name       PackageName
	Version    Version
}

// String formats id as "repo::cat/name#ver".
func (id PackageID) String() string {
	return fmt.Sprintf("%s::%s/%s#%s", id.Repository, id.Category, id.Name, id.Version)
}

// FullName drops the version, yielding a PackageFullName.
func (id PackageID) FullName() PackageFullName {
	return PackageFullName{Repository: id.Repository, Category: id.Category, Name: id.Name}
}

// ShortName drops the repository and version, yielding a PackageShortName.
func (id PackageID) ShortName() PackageShortName {
	return PackageShortName{Category: id.Category, Name: id.Name}
}

// ParsePackageID parses s as "repo::cat/name#ver"; all four segments must be
// present.
func ParsePackageID(s string) (PackageID, error) {
	m := matchID(s)
	if m == nil || m["repo"] == "" || m["cat"] == "" || m["ver"] == "" {
		return PackageID{}, &ParseError{Kind: InvalidFormat, Offending: s}
	}

	repo, err := ParseRepositoryName(m["repo"])
	if err != nil {
		return PackageID{}, err
	}
	cat, err := ParseCategoryName(m["cat"])
	if err != nil {
		return PackageID{}, err
	}
	name, err := ParsePackageName(m["name"])
	if err != nil {
		return PackageID{}, err
	}
	ver, err := ParseVersion(m["ver"])
	if err != nil {
		return PackageID{}, err
	}

	return PackageID{Repository: repo, Category: cat, Name: name, Version: ver}, nil
}

// PackageFullName identifies a package across all its versions within one
// repository: (repository, category, name).
type PackageFullName struct {
	Repository RepositoryName
	Category   CategoryName
	Name       PackageName
}

func (n PackageFullName) String() string {
	return fmt.Sprintf("%s::%s/%s", n.Repository, n.Category, n.Name)
}

// ParsePackageFullName parses s as "repo::cat/name"; version must be absent.
func ParsePackageFullName(s string) (PackageFullName, error) {
	m := matchID(s)
	if m == nil || m["repo"] == "" || m["cat"] == "" || m["ver"] != "" {
		return PackageFullName{}, &ParseError{Kind: InvalidFormat, Offending: s}
	}

	repo, err := ParseRepositoryName(m["repo"])
	if err != nil {
		return PackageFullName{}, err
	}
	cat, err := ParseCategoryName(m["cat"])
	if err != nil {
		return PackageFullName{}, err
	}
	name, err := ParsePackageName(m["name"])
	if err != nil {
		return PackageFullName{}, err
	}

	return PackageFullName{Repository: repo, Category: cat, Name: name}, nil
}

// PackageShortName identifies a package ignoring its repository:
// (category, name).
type PackageShortName struct {
	Category CategoryName
	Name     PackageName
}

func (n PackageShortName) String() string {
	return fmt.Sprintf("%s/%s", n.Category, n.Name)
}

// ParsePackageShortName parses s as "cat/name"; repository and version must
// be absent.
func ParsePackageShortName(s string) (PackageShortName, error) {
	m := matchID(s)
	if m == nil || m["repo"] != "" || m["cat"] == "" || m["ver"] != "" {
		return PackageShortName{}, &ParseError{Kind: InvalidFormat, Offending: s}
	}

	cat, err := ParseCategoryName(m["cat"])
	if err != nil {
		return PackageShortName{}, err
	}
	name, err := ParsePackageName(m["name"])
	if err != nil {
		return PackageShortName{}, err
	}

	return PackageShortName{Category: cat, Name: name}, nil
}

// matchID runs idRegex against s and returns the named captures, or nil if
// s didn't match at all.
func matchID(s string) map[string]string {
	match := idRegex.FindStringSubmatch(s)
	if match == nil {
		return nil
	}
	out := make(map[string]string, len(match))
	for i, name := range idRegex.SubexpNames() {
		if i == 0 || name == "" {
			continue
		}
		out[name] = match[i]
	}
	return out
}
