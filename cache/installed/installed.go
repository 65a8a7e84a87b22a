// Package installed implements the installed-package cache: one file-log
// per installed package version, recording every path the package's
// archive placed on disk, in extraction order.
package installed

import (
	"archive/tar"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/raven-os/libnest/identifier"
)

// FileType mirrors the entry types a tar header can carry, so a Log can
// later decide how to remove each path without re-reading the archive.
type FileType int

const (
	Directory FileType = iota
	File
	Symlink
	BlockDevice
	CharacterDevice
	FIFO
	Link
)

// FileTypeFromTarFlag maps a tar.Header.Typeflag to a FileType.
func FileTypeFromTarFlag(flag byte) FileType {
	switch flag {
	case tar.TypeDir:
		return Directory
	case tar.TypeSymlink:
		return Symlink
	case tar.TypeBlock:
		return BlockDevice
	case tar.TypeChar:
		return CharacterDevice
	case tar.TypeFifo:
		return FIFO
	case tar.TypeLink:
		return Link
	default:
		return File
	}
}

// Entry is one path the package's archive placed on disk.
type Entry struct {
	Path     string   `json:"path"`
	FileType FileType `json:"file_type"`
}

// Log is the ordered list of entries an effective package's install wrote.
// Order is extraction order; Reversed walks it back-to-front so directories
// are emptied before removal.
type Log struct {
	Entries []Entry `json:"entries"`
}

// Add appends an entry in extraction order.
func (l *Log) Add(path string, ft FileType) {
	l.Entries = append(l.Entries, Entry{Path: path, FileType: ft})
}

// Reversed returns l's entries in reverse order, for removal.
func (l *Log) Reversed() []Entry {
	out := make([]Entry, len(l.Entries))
	for i, e := range l.Entries {
		out[len(l.Entries)-1-i] = e
	}
	return out
}

// Cache is the installed-log cache rooted at a directory.
type Cache struct {
	root string
}

// New returns a Cache rooted at root.
func New(root string) *Cache {
	return &Cache{root: root}
}

// path returns {root}/{repo}/{cat}/{name}/{ver}.
func (c *Cache) path(id identifier.PackageID) string {
	return filepath.Join(c.root, string(id.Repository), string(id.Category), string(id.Name), id.Version.String())
}

// Save writes log as pretty-printed JSON for id, creating parent
// directories as needed.
func (c *Cache) Save(id identifier.PackageID, log Log) error {
	path := c.path(id)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrapf(err, "creating installed cache directory for %s", id)
	}

	b, err := json.MarshalIndent(log, "", "  ")
	if err != nil {
		return errors.Wrapf(err, "marshaling install log for %s", id)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return errors.Wrapf(err, "writing install log for %s", id)
	}
	return nil
}

// Load reads id's install log. ok is false if no log exists for id.
func (c *Cache) Load(id identifier.PackageID) (Log, bool, error) {
	path := c.path(id)
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Log{}, false, nil
		}
		return Log{}, false, errors.Wrapf(err, "reading install log for %s", id)
	}

	var log Log
	if err := json.Unmarshal(b, &log); err != nil {
		return Log{}, false, errors.Wrapf(err, "parsing install log for %s", id)
	}
	return log, true, nil
}

// Remove deletes id's log file itself (not the files it lists; that is
// the transaction engine's job). Tolerant of non-existence.
func (c *Cache) Remove(id identifier.PackageID) error {
	if err := os.Remove(c.path(id)); err != nil && !os.IsNotExist(err) {
		return errors.Wrapf(err, "removing install log for %s", id)
	}
	return nil
}

// HasPackage reports whether a log exists for id, i.e. whether id is
// currently recorded as installed.
func (c *Cache) HasPackage(id identifier.PackageID) bool {
	_, err := os.Stat(c.path(id))
	return err == nil
}
