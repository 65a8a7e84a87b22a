// Package downloaded implements the downloaded-package cache: one archive
// file per package id, with hash verification and scoped exploration.
package downloaded

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/raven-os/libnest/identifier"
	"github.com/raven-os/libnest/npf"
)

// Cache is the downloaded-archive cache rooted at a directory.
type Cache struct {
	root string
}

// New returns a Cache rooted at root.
func New(root string) *Cache {
	return &Cache{root: root}
}

// path returns {root}/{repo}/{cat}/{name}/{name}-{ver}.nest.
func (c *Cache) path(id identifier.PackageID) string {
	fileName := string(id.Name) + "-" + id.Version.String() + ".nest"
	return filepath.Join(c.root, string(id.Repository), string(id.Category), string(id.Name), fileName)
}

// HasPackage reports whether an archive for id is present.
func (c *Cache) HasPackage(id identifier.PackageID) bool {
	_, err := os.Stat(c.path(id))
	return err == nil
}

// HasPackageMatchingHash streams the archive for id through SHA-256 and
// compares it (as uppercase hex) to expectedHex.
func (c *Cache) HasPackageMatchingHash(id identifier.PackageID, expectedHex string) (bool, error) {
	f, err := os.Open(c.path(id))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, errors.Wrapf(err, "opening archive for %s", id)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return false, errors.Wrapf(err, "hashing archive for %s", id)
	}

	actual := strings.ToUpper(hex.EncodeToString(h.Sum(nil)))
	return actual == strings.ToUpper(expectedHex), nil
}

// Store copies r into the cache as id's archive, creating parent
// directories as needed.
func (c *Cache) Store(id identifier.PackageID, r io.Reader) error {
	path := c.path(id)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrapf(err, "creating downloaded cache directory for %s", id)
	}

	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "creating archive file for %s", id)
	}
	defer f.Close()

	if _, err := io.Copy(f, r); err != nil {
		return errors.Wrapf(err, "writing archive for %s", id)
	}
	return nil
}

// ExplorePackage opens id's archive and extracts it into a fresh temp
// directory, returning an npf.Explorer scoped to that directory.
func (c *Cache) ExplorePackage(id identifier.PackageID) (*npf.Explorer, error) {
	path := c.path(id)
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "opening archive %s", path)
	}
	defer f.Close()

	return npf.Explore(f)
}

// RemovePackage deletes id's archive. Tolerant of non-existence.
func (c *Cache) RemovePackage(id identifier.PackageID) error {
	if err := os.Remove(c.path(id)); err != nil && !os.IsNotExist(err) {
		return errors.Wrapf(err, "removing archive for %s", id)
	}
	return nil
}
