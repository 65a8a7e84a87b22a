// Package config models the on-disk TOML configuration nest reads at
// startup: filesystem layout paths and repository mirror lists.
package config

import (
	"os"

	"github.com/pelletier/go-toml/v2"
	"github.com/pkg/errors"

	"github.com/raven-os/libnest/chroot"
	"github.com/raven-os/libnest/identifier"
)

// Paths is the `[paths]` table: every location nest touches on disk.
type Paths struct {
	Root       string `toml:"root"`
	Available  string `toml:"available"`
	Downloaded string `toml:"downloaded"`
	Installed  string `toml:"installed"`
	DepGraph   string `toml:"depgraph"`
	// ScratchDepGraph is the staging copy of the dependency graph CLI
	// "group"/"requirement" edit commands mutate and solve against,
	// leaving the persisted DepGraph untouched until "merge" diffs and
	// applies it.
	ScratchDepGraph string `toml:"scratch_depgraph"`
	Lock            string `toml:"lock"`
}

// DefaultPaths returns the standard nest filesystem layout, rooted at "/".
func DefaultPaths() Paths {
	return Paths{
		Root:            "/",
		Available:       "/var/nest/available",
		Downloaded:      "/var/nest/downloaded",
		Installed:       "/var/nest/installed",
		DepGraph:        "/var/nest/depgraph",
		ScratchDepGraph: "/var/nest/scratch_depgraph",
		Lock:            "/var/lock/nest",
	}
}

// Chrooted rewrites every configured path by prepending root: the root
// path itself is replaced outright, and every other path is reinterpreted
// as content under the new root so it can never escape it.
func (p Paths) Chrooted(root string) Paths {
	r := chroot.Root(root)
	return Paths{
		Root:            root,
		Available:       r.WithContent(p.Available),
		Downloaded:      r.WithContent(p.Downloaded),
		Installed:       r.WithContent(p.Installed),
		DepGraph:        r.WithContent(p.DepGraph),
		ScratchDepGraph: r.WithContent(p.ScratchDepGraph),
		Lock:            r.WithContent(p.Lock),
	}
}

// Repository is one `[repositories.<name>]` table: an ordered list of
// mirrors to try, in priority order.
type Repository struct {
	Mirrors []string `toml:"mirrors"`
}

// Config is the full parsed contents of /etc/nest/config.toml.
type Config struct {
	Paths        Paths                 `toml:"paths"`
	Repositories map[string]Repository `toml:"repositories"`
}

// Load reads and parses the TOML configuration at path.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading config %s", path)
	}

	cfg := &Config{Paths: DefaultPaths()}
	if err := toml.Unmarshal(b, cfg); err != nil {
		return nil, errors.Wrapf(err, "parsing config %s", path)
	}
	return cfg, nil
}

// RepositoryNames returns the configured repository names, each parsed and
// validated as an identifier.RepositoryName.
func (c *Config) RepositoryNames() ([]identifier.RepositoryName, error) {
	names := make([]identifier.RepositoryName, 0, len(c.Repositories))
	for n := range c.Repositories {
		name, err := identifier.ParseRepositoryName(n)
		if err != nil {
			return nil, errors.Wrapf(err, "repository name %q in config", n)
		}
		names = append(names, name)
	}
	return names, nil
}
