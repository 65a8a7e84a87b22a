package identifier

// PackageRequirement is an abstract requirement over a package: an optional
// repository, an optional category, a package name test, and a version
// requirement. It is what users author (`install core::sys/hello#^1.0`) and
// what the solver matches against candidates in the available cache.
type PackageRequirement struct {
	Repository *RepositoryName
	Category   *CategoryName
	Name       PackageName
	VersionReq VersionRequirement
}

// ParsePackageRequirement parses s as "[repo::][cat/]name[#ver]". Any
// segment other than name may be omitted.
func ParsePackageRequirement(s string) (PackageRequirement, error) {
	m := matchID(s)
	if m == nil || m["name"] == "" {
		return PackageRequirement{}, &ParseError{Kind: InvalidPackageRequirement, Offending: s}
	}

	req := PackageRequirement{}

	if m["repo"] != "" {
		repo, err := ParseRepositoryName(m["repo"])
		if err != nil {
			return PackageRequirement{}, &ParseError{Kind: InvalidPackageRequirement, Offending: s}
		}
		req.Repository = &repo
	}
	if m["cat"] != "" {
		cat, err := ParseCategoryName(m["cat"])
		if err != nil {
			return PackageRequirement{}, &ParseError{Kind: InvalidPackageRequirement, Offending: s}
		}
		req.Category = &cat
	}

	name, err := ParsePackageName(m["name"])
	if err != nil {
		return PackageRequirement{}, &ParseError{Kind: InvalidPackageRequirement, Offending: s}
	}
	req.Name = name

	if m["ver"] != "" {
		vr, err := ParseVersionRequirement(m["ver"])
		if err != nil {
			return PackageRequirement{}, &ParseError{Kind: InvalidPackageRequirement, Offending: s}
		}
		req.VersionReq = vr
	} else {
		req.VersionReq = AnyVersion()
	}

	return req, nil
}

// AnyVersionOf returns a copy of req with its version predicate cleared, the
// name and location predicates preserved.
func (req PackageRequirement) AnyVersionOf() PackageRequirement {
	req.VersionReq = AnyVersion()
	return req
}

// Matches reports whether id satisfies req, using substring containment for
// the name test. Used by interactive search.
func (req PackageRequirement) Matches(id PackageID) bool {
	return req.matchesLocationAndVersion(id) && id.Name.Contains(req.Name)
}

// MatchesPrecisely reports whether id satisfies req, using exact equality
// for the name test. Used by the solver.
func (req PackageRequirement) MatchesPrecisely(id PackageID) bool {
	return req.matchesLocationAndVersion(id) && id.Name == req.Name
}

func (req PackageRequirement) matchesLocationAndVersion(id PackageID) bool {
	if req.Repository != nil && *req.Repository != id.Repository {
		return false
	}
	if req.Category != nil && *req.Category != id.Category {
		return false
	}
	return req.VersionReq.Matches(id.Version)
}

func (req PackageRequirement) String() string {
	s := ""
	if req.Repository != nil {
		s += string(*req.Repository) + "::"
	}
	if req.Category != nil {
		s += string(*req.Category) + "/"
	}
	s += string(req.Name)
	if !req.VersionReq.IsAny() {
		s += "#" + req.VersionReq.String()
	}
	return s
}

// MatchesShortName reports whether req's (category, name), plus repository
// if req names one, identify the same package as full, precisely. Used by
// the solver to find an existing node to narrow/replace.
func MatchesShortName(req PackageRequirement, full PackageFullName) bool {
	if req.Name != full.Name {
		return false
	}
	if req.Category != nil && *req.Category != full.Category {
		return false
	}
	if req.Repository != nil && *req.Repository != full.Repository {
		return false
	}
	return true
}
