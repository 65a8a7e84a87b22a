package installed_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/raven-os/libnest/cache/installed"
	"github.com/raven-os/libnest/identifier"
)

func mustID(t *testing.T, s string) identifier.PackageID {
	t.Helper()
	id, err := identifier.ParsePackageID(s)
	require.NoError(t, err)
	return id
}

func TestSaveLoadRoundTrip(t *testing.T) {
	c := installed.New(t.TempDir())
	id := mustID(t, "core::sys-apps/foo#1.0.0")

	var log installed.Log
	log.Add("/etc/foo.conf", installed.File)
	log.Add("/etc", installed.Directory)

	require.NoError(t, c.Save(id, log))
	require.True(t, c.HasPackage(id))

	loaded, ok, err := c.Load(id)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, log, loaded)
}

func TestLoadMissingReturnsNotOK(t *testing.T) {
	c := installed.New(t.TempDir())
	id := mustID(t, "core::sys-apps/foo#1.0.0")

	_, ok, err := c.Load(id)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestReversedWalksBackToFront(t *testing.T) {
	var log installed.Log
	log.Add("/a", installed.Directory)
	log.Add("/a/b", installed.File)
	log.Add("/a/b/c", installed.File)

	rev := log.Reversed()
	require.Equal(t, []string{"/a/b/c", "/a/b", "/a"}, []string{rev[0].Path, rev[1].Path, rev[2].Path})
}

func TestRemoveIsTolerantOfNonExistence(t *testing.T) {
	c := installed.New(t.TempDir())
	id := mustID(t, "core::sys-apps/foo#1.0.0")
	require.NoError(t, c.Remove(id))
}
