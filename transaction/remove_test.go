package transaction_test

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raven-os/libnest/cache/downloaded"
	"github.com/raven-os/libnest/cache/installed"
	"github.com/raven-os/libnest/identifier"
	"github.com/raven-os/libnest/transaction"
)

// buildDataWithDirs is like buildData but also logs explicit directory
// entries for each path component, the way a real packaging tool would
// record ownership of a shared directory such as /usr/share/doc.
func buildDataWithDirs(t *testing.T, dirs []string, files map[string]string) []byte {
	t.Helper()

	var tarBuf bytes.Buffer
	tw := tar.NewWriter(&tarBuf)
	for _, dir := range dirs {
		hdr := &tar.Header{Name: dir, Typeflag: tar.TypeDir, Mode: 0o755}
		require.NoError(t, tw.WriteHeader(hdr))
	}
	for name, content := range files {
		hdr := &tar.Header{Name: name, Mode: 0o644, Size: int64(len(content))}
		require.NoError(t, tw.WriteHeader(hdr))
		_, err := tw.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, tw.Close())

	var gzBuf bytes.Buffer
	gw := gzip.NewWriter(&gzBuf)
	_, err := gw.Write(tarBuf.Bytes())
	require.NoError(t, err)
	require.NoError(t, gw.Close())
	return gzBuf.Bytes()
}

func TestRemoveDeletesLoggedFilesInReverseOrder(t *testing.T) {
	ctx, id := newTestContext(t)
	require.NoError(t, transaction.Install(ctx, id))

	require.NoError(t, transaction.Remove(ctx, id))

	_, err := os.Stat(filepath.Join(ctx.Root, "etc", "hello.conf"))
	assert.True(t, os.IsNotExist(err))

	_, ok, err := ctx.Installed.Load(id)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRemoveLeavesSharedDirectoryUntilLastOwnerGone(t *testing.T) {
	root := t.TempDir()
	downloadedDir := t.TempDir()
	installedDir := t.TempDir()
	dc := downloaded.New(downloadedDir)
	ic := installed.New(installedDir)
	ctx := transaction.Context{Root: root, Downloaded: dc, Installed: ic, Extractor: transaction.NewExtractor()}

	idA, err := identifier.ParsePackageID("core::sys/pkg-a#1.0.0")
	require.NoError(t, err)
	idB, err := identifier.ParsePackageID("core::sys/pkg-b#1.0.0")
	require.NoError(t, err)

	manifestFor := func(name string) string {
		return `
name = "` + name + `"
category = "sys"
version = "1.0.0"
kind = "effective"

[metadata]
description = "shared-dir test"
`
	}

	sharedDirs := []string{"/usr", "/usr/share", "/usr/share/doc"}
	dataA := buildDataWithDirs(t, sharedDirs, map[string]string{"/usr/share/doc/a.txt": "a"})
	require.NoError(t, dc.Store(idA, bytes.NewReader(buildArchive(t, manifestFor("pkg-a"), dataA))))
	dataB := buildDataWithDirs(t, sharedDirs, map[string]string{"/usr/share/doc/b.txt": "b"})
	require.NoError(t, dc.Store(idB, bytes.NewReader(buildArchive(t, manifestFor("pkg-b"), dataB))))

	require.NoError(t, transaction.Install(ctx, idA))
	require.NoError(t, transaction.Install(ctx, idB))

	sharedDir := filepath.Join(root, "usr", "share", "doc")
	entries, err := os.ReadDir(sharedDir)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	require.NoError(t, transaction.Remove(ctx, idA))
	_, err = os.Stat(sharedDir)
	require.NoError(t, err, "shared dir survives while pkg-b still owns a file in it")

	require.NoError(t, transaction.Remove(ctx, idB))
	_, err = os.Stat(sharedDir)
	assert.True(t, os.IsNotExist(err), "shared dir removed once its last owner is gone")
}

func TestRemoveMissingLogFails(t *testing.T) {
	ctx, id := newTestContext(t)

	err := transaction.Remove(ctx, id)
	require.Error(t, err)

	var removeErr *transaction.RemoveError
	require.ErrorAs(t, err, &removeErr)
	assert.Equal(t, transaction.LogFileLoadError, removeErr.Kind)
}
