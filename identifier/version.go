package identifier

import (
	"github.com/Masterminds/semver/v3"
)

// Version is a total-ordered semantic version (major.minor.patch with
// optional prerelease/build metadata).
type Version struct {
	v *semver.Version
}

// ParseVersion parses s as a Version.
func ParseVersion(s string) (Version, error) {
	v, err := semver.NewVersion(s)
	if err != nil {
		return Version{}, &ParseError{Kind: InvalidVersion, Offending: s}
	}
	return Version{v: v}, nil
}

func (v Version) String() string {
	if v.v == nil {
		return ""
	}
	return v.v.Original()
}

// Compare returns -1, 0 or 1 depending on whether v is less than, equal to,
// or greater than other, in semver ordering.
func (v Version) Compare(other Version) int {
	return v.v.Compare(other.v)
}

// Less reports whether v sorts before other.
func (v Version) Less(other Version) bool {
	return v.Compare(other) < 0
}

// VersionRequirement is a semver-style predicate set over versions: `^`,
// `~`, `>=`, exact, or "any version".
type VersionRequirement struct {
	// constraint is nil for the "any version" requirement.
	constraint *semver.Constraints
	raw        string
}

// AnyVersion returns a requirement that matches every version.
func AnyVersion() VersionRequirement {
	return VersionRequirement{}
}

// ParseVersionRequirement parses s, a semver-style constraint expression
// (e.g. "^1.0", "~2.3", ">=1.2,<2", "1.4.2"), as a VersionRequirement.
func ParseVersionRequirement(s string) (VersionRequirement, error) {
	if s == "" || s == "*" {
		return AnyVersion(), nil
	}
	c, err := semver.NewConstraint(s)
	if err != nil {
		return VersionRequirement{}, &ParseError{Kind: InvalidVersion, Offending: s}
	}
	return VersionRequirement{constraint: c, raw: s}, nil
}

// Matches reports whether v satisfies the requirement.
func (r VersionRequirement) Matches(v Version) bool {
	if r.constraint == nil {
		return true
	}
	return r.constraint.Check(v.v)
}

// IsAny reports whether r matches every version.
func (r VersionRequirement) IsAny() bool {
	return r.constraint == nil
}

func (r VersionRequirement) String() string {
	if r.constraint == nil {
		return "*"
	}
	return r.raw
}
