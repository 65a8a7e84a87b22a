// Package npf implements scoped extraction of a Nest Package File: a tar
// archive bundling manifest.toml (mandatory), data.tar.gz (optional), and
// instructions.sh (optional).
package npf

import (
	"archive/tar"
	"io"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
	"github.com/pkg/errors"

	"github.com/raven-os/libnest/manifest"
)

const (
	manifestFile     = "manifest.toml"
	dataFile         = "data.tar.gz"
	instructionsFile = "instructions.sh"
)

// TarReader streams tar entries; archive/tar.Reader already satisfies this
// interface, which is what Explore uses by default. It exists as a seam so
// a caller can replace the concrete tar decoder.
type TarReader interface {
	Next() (*tar.Header, error)
	Read(p []byte) (int, error)
}

// Error kinds for npf exploration.
type Error struct {
	Kind     ErrorKind
	Relative string
	Cause    error
}

// ErrorKind discriminates npf failures.
type ErrorKind int

const (
	UnpackError ErrorKind = iota
	MissingManifest
	InvalidManifest
	FileNotFound
	FileIOError
)

func (e *Error) Error() string {
	switch e.Kind {
	case MissingManifest:
		return "package archive has no manifest.toml"
	case InvalidManifest:
		return errors.Wrap(e.Cause, "invalid manifest.toml").Error()
	case FileNotFound:
		return "file not found in package archive: " + e.Relative
	case FileIOError:
		return errors.Wrapf(e.Cause, "I/O error on %s", e.Relative).Error()
	default:
		return errors.Wrap(e.Cause, "failed to unpack package archive").Error()
	}
}

func (e *Error) Unwrap() error { return e.Cause }

// Explorer is a scoped extraction of a package archive into a temp
// directory. Close removes that directory; callers must always Close an
// Explorer, on every exit path, including error returns from later use.
type Explorer struct {
	dir             string
	manifest        manifest.Manifest
	hasData         bool
	hasInstructions bool
}

// Explore unpacks r (a tar stream) into a fresh uniquely-named temp
// directory and parses its mandatory manifest.toml.
func Explore(r io.Reader) (*Explorer, error) {
	return explore(tar.NewReader(r))
}

// ExploreWith is Explore with an injected TarReader, for tests or alternate
// tar implementations.
func ExploreWith(tr TarReader) (*Explorer, error) {
	return explore(tr)
}

func explore(tr TarReader) (*Explorer, error) {
	dir, err := os.MkdirTemp("", "nest-npf-")
	if err != nil {
		return nil, &Error{Kind: UnpackError, Cause: errors.Wrap(err, "creating temp dir")}
	}

	ex := &Explorer{dir: dir}
	if err := ex.unpack(tr); err != nil {
		os.RemoveAll(dir)
		return nil, err
	}

	if err := ex.loadManifest(); err != nil {
		os.RemoveAll(dir)
		return nil, err
	}

	return ex, nil
}

func (e *Explorer) unpack(tr TarReader) error {
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return &Error{Kind: UnpackError, Cause: err}
		}

		name := filepath.Clean(hdr.Name)
		switch name {
		case manifestFile, dataFile, instructionsFile:
		default:
			continue
		}

		dest := filepath.Join(e.dir, name)
		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(dest, 0o755); err != nil {
				return &Error{Kind: UnpackError, Relative: name, Cause: err}
			}
		default:
			f, err := os.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, os.FileMode(hdr.Mode))
			if err != nil {
				return &Error{Kind: UnpackError, Relative: name, Cause: err}
			}
			_, err = io.Copy(f, tr)
			f.Close()
			if err != nil {
				return &Error{Kind: UnpackError, Relative: name, Cause: err}
			}
			if name == dataFile {
				e.hasData = true
			}
			if name == instructionsFile {
				e.hasInstructions = true
			}
		}
	}
}

func (e *Explorer) loadManifest() error {
	path := filepath.Join(e.dir, manifestFile)
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Error{Kind: MissingManifest}
		}
		return &Error{Kind: FileIOError, Relative: manifestFile, Cause: err}
	}

	var m manifest.Manifest
	if err := toml.Unmarshal(b, &m); err != nil {
		return &Error{Kind: InvalidManifest, Relative: manifestFile, Cause: err}
	}
	e.manifest = m
	return nil
}

// Manifest returns the archive's parsed manifest.
func (e *Explorer) Manifest() manifest.Manifest { return e.manifest }

// HasData reports whether the archive carried a data.tar.gz. Consistent
// with the manifest's Kind: effective packages have one, virtual packages
// don't.
func (e *Explorer) HasData() bool { return e.hasData }

// HasInstructions reports whether the archive carried an instructions.sh.
func (e *Explorer) HasInstructions() bool { return e.hasInstructions }

// DataReader opens the archive's data.tar.gz for reading, or FileNotFound
// if it has none.
func (e *Explorer) DataReader() (io.ReadCloser, error) {
	if !e.hasData {
		return nil, &Error{Kind: FileNotFound, Relative: dataFile}
	}
	f, err := os.Open(filepath.Join(e.dir, dataFile))
	if err != nil {
		return nil, &Error{Kind: FileIOError, Relative: dataFile, Cause: err}
	}
	return f, nil
}

// InstructionsSource returns the raw contents of instructions.sh, or
// ("", false) if the archive has none.
func (e *Explorer) InstructionsSource() (string, bool, error) {
	if !e.hasInstructions {
		return "", false, nil
	}
	b, err := os.ReadFile(filepath.Join(e.dir, instructionsFile))
	if err != nil {
		return "", false, &Error{Kind: FileIOError, Relative: instructionsFile, Cause: err}
	}
	return string(b), true, nil
}

// Close removes the explorer's temp directory. Safe to call multiple
// times.
func (e *Explorer) Close() error {
	if e.dir == "" {
		return nil
	}
	err := os.RemoveAll(e.dir)
	e.dir = ""
	return err
}
