package identifier

// MarshalText/UnmarshalText let the name and version types serialize
// directly as TOML/JSON scalars (both pelletier/go-toml/v2 and
// encoding/json honor encoding.Text(Un)Marshaler).

func (n RepositoryName) MarshalText() ([]byte, error) { return []byte(n), nil }
func (n *RepositoryName) UnmarshalText(b []byte) error {
	v, err := ParseRepositoryName(string(b))
	if err != nil {
		return err
	}
	*n = v
	return nil
}

func (n CategoryName) MarshalText() ([]byte, error) { return []byte(n), nil }
func (n *CategoryName) UnmarshalText(b []byte) error {
	v, err := ParseCategoryName(string(b))
	if err != nil {
		return err
	}
	*n = v
	return nil
}

func (n PackageName) MarshalText() ([]byte, error) { return []byte(n), nil }
func (n *PackageName) UnmarshalText(b []byte) error {
	v, err := ParsePackageName(string(b))
	if err != nil {
		return err
	}
	*n = v
	return nil
}

func (n GroupName) MarshalText() ([]byte, error) { return []byte(n), nil }
func (n *GroupName) UnmarshalText(b []byte) error {
	v, err := ParseGroupName(string(b))
	if err != nil {
		return err
	}
	*n = v
	return nil
}

func (v Version) MarshalText() ([]byte, error) { return []byte(v.String()), nil }
func (v *Version) UnmarshalText(b []byte) error {
	parsed, err := ParseVersion(string(b))
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

func (r VersionRequirement) MarshalText() ([]byte, error) { return []byte(r.String()), nil }
func (r *VersionRequirement) UnmarshalText(b []byte) error {
	parsed, err := ParseVersionRequirement(string(b))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

func (id PackageID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }
func (id *PackageID) UnmarshalText(b []byte) error {
	parsed, err := ParsePackageID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (n PackageFullName) MarshalText() ([]byte, error) { return []byte(n.String()), nil }
func (n *PackageFullName) UnmarshalText(b []byte) error {
	parsed, err := ParsePackageFullName(string(b))
	if err != nil {
		return err
	}
	*n = parsed
	return nil
}
