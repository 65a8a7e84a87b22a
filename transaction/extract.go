package transaction

import (
	"archive/tar"
	"compress/gzip"
	"io"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/raven-os/libnest/cache/installed"
	"github.com/raven-os/libnest/chroot"
)

// Extractor abstracts the archive extractor: given a gzip-compressed tar
// stream and a root, scan it for conflicts or extract it onto disk. The
// default implementation streams archive/tar + compress/gzip directly.
type Extractor interface {
	ScanConflicts(r io.Reader, root string) (installed.Log, error)
	Extract(r io.Reader, root string) error
}

type defaultExtractor struct{}

// NewExtractor returns the default stdlib-backed Extractor.
func NewExtractor() Extractor { return defaultExtractor{} }

// ScanConflicts iterates entries without extracting, building the Log
// that Install will persist before ever touching disk.
func (defaultExtractor) ScanConflicts(r io.Reader, root string) (installed.Log, error) {
	tr, closeFn, err := openTar(r)
	if err != nil {
		return installed.Log{}, err
	}
	defer closeFn()

	var log installed.Log
	rootPath := chroot.Root(root)

	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return log, nil
		}
		if err != nil {
			return installed.Log{}, &InstallError{Kind: InvalidPackageData, Cause: err}
		}

		abs := rootPath.WithContent(hdr.Name)
		if err := checkConflict(abs, hdr); err != nil {
			return installed.Log{}, err
		}
		log.Add(abs, installed.FileTypeFromTarFlag(hdr.Typeflag))
	}
}

// checkConflict applies the conflict rule: directory-over-directory is
// fine, directory-over-a-symlink-to-a-directory is fine, anything else
// pre-existing is a conflict.
func checkConflict(abs string, hdr *tar.Header) error {
	lst, err := os.Lstat(abs)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return &InstallError{Kind: InvalidPackageData, Path: abs, Cause: err}
	}

	if hdr.Typeflag == tar.TypeDir {
		if lst.IsDir() {
			return nil
		}
		if lst.Mode()&os.ModeSymlink != 0 {
			if target, err := os.Stat(abs); err == nil && target.IsDir() {
				return nil
			}
		}
	}
	return &InstallError{Kind: FileAlreadyExists, Path: abs}
}

// Extract writes every entry in r onto disk under root, following the
// same iteration order ScanConflicts used.
func (defaultExtractor) Extract(r io.Reader, root string) error {
	tr, closeFn, err := openTar(r)
	if err != nil {
		return err
	}
	defer closeFn()

	rootPath := chroot.Root(root)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return &InstallError{Kind: ExtractError, Cause: err}
		}

		abs := rootPath.WithContent(hdr.Name)
		if err := extractEntry(tr, rootPath, abs, hdr); err != nil {
			return err
		}
	}
}

func extractEntry(tr *tar.Reader, rootPath chroot.Root, abs string, hdr *tar.Header) error {
	switch hdr.Typeflag {
	case tar.TypeDir:
		if err := os.MkdirAll(abs, os.FileMode(hdr.Mode)); err != nil {
			return &InstallError{Kind: ExtractError, Path: abs, Cause: err}
		}
	case tar.TypeSymlink:
		os.Remove(abs)
		if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
			return &InstallError{Kind: ExtractError, Path: abs, Cause: err}
		}
		if err := os.Symlink(hdr.Linkname, abs); err != nil {
			return &InstallError{Kind: ExtractError, Path: abs, Cause: err}
		}
	case tar.TypeLink:
		if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
			return &InstallError{Kind: ExtractError, Path: abs, Cause: err}
		}
		linkTarget := rootPath.WithContent(hdr.Linkname)
		if err := os.Link(linkTarget, abs); err != nil {
			return &InstallError{Kind: ExtractError, Path: abs, Cause: err}
		}
	default:
		if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
			return &InstallError{Kind: ExtractError, Path: abs, Cause: err}
		}
		f, err := os.OpenFile(abs, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, os.FileMode(hdr.Mode))
		if err != nil {
			return &InstallError{Kind: ExtractError, Path: abs, Cause: err}
		}
		_, err = io.Copy(f, tr)
		f.Close()
		if err != nil {
			return &InstallError{Kind: ExtractError, Path: abs, Cause: err}
		}
	}
	return nil
}

// openTar wraps r in a gzip reader then a tar reader, returning a close
// function for the gzip reader (r itself is the caller's to close).
func openTar(r io.Reader) (*tar.Reader, func(), error) {
	gzr, err := gzip.NewReader(r)
	if err != nil {
		return nil, nil, errors.Wrap(err, "opening gzip stream")
	}
	return tar.NewReader(gzr), func() { gzr.Close() }, nil
}
