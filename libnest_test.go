package libnest_test

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raven-os/libnest"
	"github.com/raven-os/libnest/cache/available"
	"github.com/raven-os/libnest/cache/downloaded"
	"github.com/raven-os/libnest/cache/installed"
	"github.com/raven-os/libnest/config"
	"github.com/raven-os/libnest/depgraph"
	"github.com/raven-os/libnest/identifier"
	"github.com/raven-os/libnest/lockfile"
	"github.com/raven-os/libnest/manifest"
	"github.com/raven-os/libnest/repository"
)

func newEnvironment(cfg *config.Config, fetcher repository.Fetcher) *libnest.Environment {
	return &libnest.Environment{
		Config:     cfg,
		Lock:       lockfile.New(cfg.Paths.Lock),
		Available:  available.New(cfg.Paths.Available),
		Downloaded: downloaded.New(cfg.Paths.Downloaded),
		Installed:  installed.New(cfg.Paths.Installed),
		Fetcher:    fetcher,
	}
}

func TestOpenLoadsConfigAndBuildsCaches(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.toml")

	toml := `
[paths]
root = "` + dir + `"
available = "` + filepath.Join(dir, "available") + `"
downloaded = "` + filepath.Join(dir, "downloaded") + `"
installed = "` + filepath.Join(dir, "installed") + `"
depgraph = "` + filepath.Join(dir, "depgraph.json") + `"
lock = "` + filepath.Join(dir, "lock") + `"

[repositories.core]
mirrors = ["http://mirror.example"]
`
	require.NoError(t, os.WriteFile(configPath, []byte(toml), 0o644))

	env, err := libnest.Open(configPath)
	require.NoError(t, err)
	require.NotNil(t, env.Available)
	require.NotNil(t, env.Downloaded)
	require.NotNil(t, env.Installed)
	require.NotNil(t, env.Fetcher)
	assert.Equal(t, dir, env.Config.Paths.Root)
}

type staticArchiveFetcher struct {
	archive []byte
}

func (f *staticArchiveFetcher) Fetch(url string) (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(f.archive)), nil
}

func buildHelloArchive(t *testing.T) []byte {
	t.Helper()

	var tarData bytes.Buffer
	tw := tar.NewWriter(&tarData)
	content := []byte("hi")
	require.NoError(t, tw.WriteHeader(&tar.Header{Name: "/etc/hello.conf", Mode: 0o644, Size: int64(len(content))}))
	_, err := tw.Write(content)
	require.NoError(t, err)
	require.NoError(t, tw.Close())

	var gz bytes.Buffer
	gw := gzip.NewWriter(&gz)
	_, err = gw.Write(tarData.Bytes())
	require.NoError(t, err)
	require.NoError(t, gw.Close())

	var archive bytes.Buffer
	outer := tar.NewWriter(&archive)
	addFile := func(name string, content []byte) {
		require.NoError(t, outer.WriteHeader(&tar.Header{Name: name, Mode: 0o644, Size: int64(len(content))}))
		_, err := outer.Write(content)
		require.NoError(t, err)
	}
	addFile("manifest.toml", []byte(`
name = "hello"
category = "sys"
version = "1.0.0"
kind = "effective"

[metadata]
description = "a test package"
`))
	addFile("data.tar.gz", gz.Bytes())
	require.NoError(t, outer.Close())
	return archive.Bytes()
}

type noopNotifier struct{}

func (noopNotifier) NewStep(step int, isRetry bool)                      {}
func (noopNotifier) Progress(current, max int)                           {}
func (noopNotifier) FinishTransaction(t depgraph.Transaction, err error) {}
func (noopNotifier) Warning(err error)                                   {}

func TestApplyInstallsPackageDownloadsAndPersistsGraph(t *testing.T) {
	dir := t.TempDir()
	root := filepath.Join(dir, "root")
	require.NoError(t, os.MkdirAll(root, 0o755))

	cfg := &config.Config{
		Paths: config.Paths{
			Root:       root,
			Available:  filepath.Join(dir, "available"),
			Downloaded: filepath.Join(dir, "downloaded"),
			Installed:  filepath.Join(dir, "installed"),
			DepGraph:   filepath.Join(dir, "depgraph.json"),
			Lock:       filepath.Join(dir, "lock"),
		},
		Repositories: map[string]config.Repository{
			"core": {Mirrors: []string{"http://mirror.example"}},
		},
	}

	env := newEnvironment(cfg, &staticArchiveFetcher{archive: buildHelloArchive(t)})

	v, err := identifier.ParseVersion("1.0.0")
	require.NoError(t, err)
	repoName, err := identifier.ParseRepositoryName("core")
	require.NoError(t, err)
	m := manifest.Manifest{
		Name:     "hello",
		Category: "sys",
		Version:  v,
		Kind:     manifest.Effective,
		Metadata: manifest.Metadata{Description: "a test package"},
	}
	require.NoError(t, env.Available.Update(repoName, m))

	req, err := identifier.ParsePackageRequirement("core::sys/hello#1.0.0")
	require.NoError(t, err)

	txns, err := env.Apply(context.Background(), false, func(g *depgraph.Graph) error {
		g.NodeAddRequirement(depgraph.RootID, depgraph.PackageRequirementKind(req), depgraph.Static)
		return nil
	}, noopNotifier{}, func(w *repository.Warning) {})
	require.NoError(t, err)
	require.Len(t, txns, 1)
	assert.Equal(t, depgraph.InstallTxn, txns[0].Kind)

	content, err := os.ReadFile(filepath.Join(root, "etc", "hello.conf"))
	require.NoError(t, err)
	assert.Equal(t, "hi", string(content))

	reloaded, err := depgraph.LoadFromCache(cfg.Paths.DepGraph)
	require.NoError(t, err)
	found := false
	for _, n := range reloaded.AllNodes() {
		if !n.Kind.IsGroup && n.Kind.PackageID.Name == "hello" {
			found = true
		}
	}
	assert.True(t, found, "the persisted graph must contain the installed package node")
}

func TestApplyRunsAgainWithoutDuplicateTransactions(t *testing.T) {
	dir := t.TempDir()
	root := filepath.Join(dir, "root")
	require.NoError(t, os.MkdirAll(root, 0o755))

	cfg := &config.Config{
		Paths: config.Paths{
			Root:       root,
			Available:  filepath.Join(dir, "available"),
			Downloaded: filepath.Join(dir, "downloaded"),
			Installed:  filepath.Join(dir, "installed"),
			DepGraph:   filepath.Join(dir, "depgraph.json"),
			Lock:       filepath.Join(dir, "lock"),
		},
		Repositories: map[string]config.Repository{
			"core": {Mirrors: []string{"http://mirror.example"}},
		},
	}

	env := newEnvironment(cfg, &staticArchiveFetcher{archive: buildHelloArchive(t)})

	v, err := identifier.ParseVersion("1.0.0")
	require.NoError(t, err)
	repoName, err := identifier.ParseRepositoryName("core")
	require.NoError(t, err)
	m := manifest.Manifest{Name: "hello", Category: "sys", Version: v, Kind: manifest.Effective}
	require.NoError(t, env.Available.Update(repoName, m))

	req, err := identifier.ParsePackageRequirement("core::sys/hello#1.0.0")
	require.NoError(t, err)
	addReq := func(g *depgraph.Graph) error {
		g.NodeAddRequirement(depgraph.RootID, depgraph.PackageRequirementKind(req), depgraph.Static)
		return nil
	}

	_, err = env.Apply(context.Background(), false, addReq, noopNotifier{}, func(w *repository.Warning) {})
	require.NoError(t, err)

	txns, err := env.Apply(context.Background(), false, func(g *depgraph.Graph) error { return nil }, noopNotifier{}, func(w *repository.Warning) {})
	require.NoError(t, err)
	assert.Empty(t, txns, "re-applying with no mutation must produce no further transactions")
}

func TestMutateScratchAndMergeScratchInstallViaGroup(t *testing.T) {
	dir := t.TempDir()
	root := filepath.Join(dir, "root")
	require.NoError(t, os.MkdirAll(root, 0o755))

	cfg := &config.Config{
		Paths: config.Paths{
			Root:            root,
			Available:       filepath.Join(dir, "available"),
			Downloaded:      filepath.Join(dir, "downloaded"),
			Installed:       filepath.Join(dir, "installed"),
			DepGraph:        filepath.Join(dir, "depgraph.json"),
			ScratchDepGraph: filepath.Join(dir, "scratch_depgraph.json"),
			Lock:            filepath.Join(dir, "lock"),
		},
		Repositories: map[string]config.Repository{
			"core": {Mirrors: []string{"http://mirror.example"}},
		},
	}

	env := newEnvironment(cfg, &staticArchiveFetcher{archive: buildHelloArchive(t)})

	v, err := identifier.ParseVersion("1.0.0")
	require.NoError(t, err)
	repoName, err := identifier.ParseRepositoryName("core")
	require.NoError(t, err)
	m := manifest.Manifest{Name: "hello", Category: "sys", Version: v, Kind: manifest.Effective}
	require.NoError(t, env.Available.Update(repoName, m))

	req, err := identifier.ParsePackageRequirement("core::sys/hello#1.0.0")
	require.NoError(t, err)

	require.NoError(t, env.MutateScratch(func(g *depgraph.Graph) error {
		if _, err := g.AddGroupNode("@editors"); err != nil {
			return err
		}
		g.NodeAddRequirement(depgraph.RootID, depgraph.GroupRequirementKind("@editors"), depgraph.Static)
		groupID, _ := g.LookupName(depgraph.NodeNameForGroup("@editors"))
		g.NodeAddRequirement(groupID, depgraph.PackageRequirementKind(req), depgraph.Static)
		return nil
	}))

	_, err = os.Stat(cfg.Paths.DepGraph)
	assert.True(t, os.IsNotExist(err), "merge must not have run yet: the persisted graph must be untouched")

	txns, err := env.MergeScratch(context.Background(), false, noopNotifier{}, func(w *repository.Warning) {})
	require.NoError(t, err)
	require.Len(t, txns, 1)
	assert.Equal(t, depgraph.InstallTxn, txns[0].Kind)

	_, err = os.Stat(cfg.Paths.ScratchDepGraph)
	assert.True(t, os.IsNotExist(err), "merge must remove the scratch graph once applied")

	reloaded, err := depgraph.LoadFromCache(cfg.Paths.DepGraph)
	require.NoError(t, err)
	found := false
	for _, n := range reloaded.AllNodes() {
		if !n.Kind.IsGroup && n.Kind.PackageID.Name == "hello" {
			found = true
		}
	}
	assert.True(t, found, "merge must persist the staged install into the real dependency graph")

	txns, err = env.MergeScratch(context.Background(), false, noopNotifier{}, func(w *repository.Warning) {})
	assert.Error(t, err, "merge without a staged scratch graph must fail")
	assert.Nil(t, txns)
}

func TestReinstallReplacesPackageWithoutMutatingGraph(t *testing.T) {
	dir := t.TempDir()
	root := filepath.Join(dir, "root")
	require.NoError(t, os.MkdirAll(root, 0o755))

	cfg := &config.Config{
		Paths: config.Paths{
			Root:            root,
			Available:       filepath.Join(dir, "available"),
			Downloaded:      filepath.Join(dir, "downloaded"),
			Installed:       filepath.Join(dir, "installed"),
			DepGraph:        filepath.Join(dir, "depgraph.json"),
			ScratchDepGraph: filepath.Join(dir, "scratch_depgraph.json"),
			Lock:            filepath.Join(dir, "lock"),
		},
		Repositories: map[string]config.Repository{
			"core": {Mirrors: []string{"http://mirror.example"}},
		},
	}

	env := newEnvironment(cfg, &staticArchiveFetcher{archive: buildHelloArchive(t)})

	v, err := identifier.ParseVersion("1.0.0")
	require.NoError(t, err)
	repoName, err := identifier.ParseRepositoryName("core")
	require.NoError(t, err)
	m := manifest.Manifest{Name: "hello", Category: "sys", Version: v, Kind: manifest.Effective}
	require.NoError(t, env.Available.Update(repoName, m))

	req, err := identifier.ParsePackageRequirement("core::sys/hello#1.0.0")
	require.NoError(t, err)
	_, err = env.Apply(context.Background(), false, func(g *depgraph.Graph) error {
		g.NodeAddRequirement(depgraph.RootID, depgraph.PackageRequirementKind(req), depgraph.Static)
		return nil
	}, noopNotifier{}, func(w *repository.Warning) {})
	require.NoError(t, err)

	before, err := depgraph.LoadFromCache(cfg.Paths.DepGraph)
	require.NoError(t, err)

	var id identifier.PackageID
	for _, n := range before.AllNodes() {
		if !n.Kind.IsGroup && n.Kind.PackageID.Name == "hello" {
			id = n.Kind.PackageID
		}
	}
	require.NotEmpty(t, id.Name)

	require.NoError(t, env.Reinstall(context.Background(), false, []identifier.PackageID{id}, noopNotifier{}, func(w *repository.Warning) {}))

	content, err := os.ReadFile(filepath.Join(root, "etc", "hello.conf"))
	require.NoError(t, err)
	assert.Equal(t, "hi", string(content))

	after, err := depgraph.LoadFromCache(cfg.Paths.DepGraph)
	require.NoError(t, err)
	assert.ElementsMatch(t, before.AllNodes(), after.AllNodes(), "reinstall must not mutate the persisted dependency graph")
}
