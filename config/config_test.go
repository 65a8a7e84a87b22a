package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `
[paths]
root = "/"
available = "/var/nest/available"
downloaded = "/var/nest/downloaded"
installed = "/var/nest/installed"
depgraph = "/var/nest/depgraph"
lock = "/var/lock/nest"

[repositories.core]
mirrors = ["https://a.example.com", "https://b.example.com"]
`

func TestLoadParsesRepositoriesAndPaths(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/var/nest/available", cfg.Paths.Available)
	require.Contains(t, cfg.Repositories, "core")
	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.Repositories["core"].Mirrors)

	names, err := cfg.RepositoryNames()
	require.NoError(t, err)
	require.Len(t, names, 1)
	assert.Equal(t, "core", names[0].String())
}

func TestPathsChrootedRewritesUnderRoot(t *testing.T) {
	p := DefaultPaths()
	chrooted := p.Chrooted("/mnt/target")

	assert.Equal(t, "/mnt/target", chrooted.Root)
	assert.Equal(t, "/mnt/target/var/nest/available", chrooted.Available)
	assert.Equal(t, "/mnt/target/var/lock/nest", chrooted.Lock)
}
