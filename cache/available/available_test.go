package available

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raven-os/libnest/identifier"
	"github.com/raven-os/libnest/manifest"
	"github.com/raven-os/libnest/system"
)

func mustManifest(t *testing.T, repo, cat, name, ver string) (identifier.RepositoryName, manifest.Manifest) {
	t.Helper()
	r, err := identifier.ParseRepositoryName(repo)
	require.NoError(t, err)
	c, err := identifier.ParseCategoryName(cat)
	require.NoError(t, err)
	n, err := identifier.ParsePackageName(name)
	require.NoError(t, err)
	v, err := identifier.ParseVersion(ver)
	require.NoError(t, err)
	return r, manifest.Manifest{Category: c, Name: n, Version: v, Kind: manifest.Effective}
}

func TestQueryEmptyCacheReturnsNilNoError(t *testing.T) {
	c := New(t.TempDir() + "/nonexistent")
	req, err := identifier.ParsePackageRequirement("hello")
	require.NoError(t, err)

	pkgs, err := c.Query(req).Perform()
	require.NoError(t, err)
	assert.Empty(t, pkgs)
}

func TestQueryBestMatchPicksNewest(t *testing.T) {
	c := New(t.TempDir())

	repo, m1 := mustManifest(t, "core", "sys", "hello", "1.0.0")
	_, m2 := mustManifest(t, "core", "sys", "hello", "1.1.0")
	require.NoError(t, c.Update(repo, m1))
	require.NoError(t, c.Update(repo, m2))

	req, err := identifier.ParsePackageRequirement("core::sys/hello#^1.0")
	require.NoError(t, err)

	pkgs, err := c.Query(req).Perform()
	require.NoError(t, err)
	require.Len(t, pkgs, 1)
	assert.Equal(t, "1.1.0", pkgs[0].ID.Version.String())
}

func TestQueryAllMatchesSortedNewestFirst(t *testing.T) {
	c := New(t.TempDir())
	repo, m1 := mustManifest(t, "core", "sys", "hello", "1.0.0")
	_, m2 := mustManifest(t, "core", "sys", "hello", "1.2.0")
	_, m3 := mustManifest(t, "core", "sys", "hello", "1.1.0")
	require.NoError(t, c.Update(repo, m1))
	require.NoError(t, c.Update(repo, m2))
	require.NoError(t, c.Update(repo, m3))

	req, err := identifier.ParsePackageRequirement("core::sys/hello")
	require.NoError(t, err)

	pkgs, err := c.Query(req).SetStrategy(AllMatchesSorted).Perform()
	require.NoError(t, err)
	require.Len(t, pkgs, 3)
	assert.Equal(t, []string{"1.2.0", "1.1.0", "1.0.0"}, []string{
		pkgs[0].ID.Version.String(), pkgs[1].ID.Version.String(), pkgs[2].ID.Version.String(),
	})
}

func TestQueryOnlyReturnsMatchingPackages(t *testing.T) {
	c := New(t.TempDir())
	repo, m1 := mustManifest(t, "core", "sys", "hello", "1.0.0")
	_, m2 := mustManifest(t, "core", "lib", "libhello", "1.0.0")
	require.NoError(t, c.Update(repo, m1))
	require.NoError(t, c.Update(repo, m2))

	req, err := identifier.ParsePackageRequirement("core::sys/hello")
	require.NoError(t, err)

	pkgs, err := c.Query(req).SetStrategy(AllMatchesUnsorted).Perform()
	require.NoError(t, err)
	for _, p := range pkgs {
		assert.True(t, req.MatchesPrecisely(p.ID))
	}
}

func TestQueryMatchingArchDropsForeignManifests(t *testing.T) {
	c := New(t.TempDir())

	repo, m1 := mustManifest(t, "core", "sys", "hello", "1.0.0")
	_, m2 := mustManifest(t, "core", "sys", "hello", "1.1.0")
	m2.Metadata.Arch = "mips64-plan9"
	_, m3 := mustManifest(t, "core", "sys", "hello", "1.2.0")
	m3.Metadata.Arch = string(system.CurrentArch())
	require.NoError(t, c.Update(repo, m1))
	require.NoError(t, c.Update(repo, m2))
	require.NoError(t, c.Update(repo, m3))

	req, err := identifier.ParsePackageRequirement("core::sys/hello")
	require.NoError(t, err)

	pkgs, err := c.Query(req).SetStrategy(AllMatchesSorted).MatchingArch(system.CurrentArch()).Perform()
	require.NoError(t, err)
	require.Len(t, pkgs, 2, "the arch-agnostic and native manifests survive, the foreign one is dropped")
	assert.Equal(t, "1.2.0", pkgs[0].ID.Version.String())
	assert.Equal(t, "1.0.0", pkgs[1].ID.Version.String())
}

func TestEraseRepositoryIsTolerantOfNonExistence(t *testing.T) {
	c := New(t.TempDir())
	repo, _ := identifier.ParseRepositoryName("ghost")
	assert.NoError(t, c.EraseRepository(repo))
}
