// Package lockfile provides the single process-wide exclusive lock that
// serializes every mutating nest operation. Ownership of the lock is a
// scoped token: depgraph.Graph.SaveToCache takes an *Ownership as proof the
// caller actually holds it. The graph mutation primitives and the
// transaction functions take no *Ownership argument.
package lockfile

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	flock "github.com/theckman/go-flock"
)

// ErrLocked is returned by Acquire when should_wait is false and another
// process already holds the lock.
var ErrLocked = errors.New("lock file is held by another process")

// Lock wraps the configured lock file path.
type Lock struct {
	path string
}

// New returns a Lock for the given path. The path's parent directory is not
// required to exist yet; Acquire creates it.
func New(path string) *Lock {
	return &Lock{path: path}
}

// Ownership is proof that the caller acquired the lock. In this module only
// depgraph.Graph.SaveToCache requires a *Ownership argument; graph mutation
// and transaction functions do not. Release gives up the lock; a failed release is
// treated as unrecoverable, since a stuck advisory lock would silently
// let a second process believe it is safe to mutate state concurrently.
type Ownership struct {
	fl *flock.Flock
}

// Acquire takes the exclusive lock. If shouldWait is true, Acquire blocks
// until the lock is available; otherwise it returns ErrLocked immediately
// if another process holds it.
func (l *Lock) Acquire(shouldWait bool) (*Ownership, error) {
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return nil, errors.Wrapf(err, "creating parent directory of lock file %s", l.path)
	}

	fl := flock.NewFlock(l.path)

	var locked bool
	var err error
	if shouldWait {
		err = fl.Lock()
		locked = err == nil
	} else {
		locked, err = fl.TryLock()
	}
	if err != nil {
		return nil, errors.Wrapf(err, "acquiring lock file %s", l.path)
	}
	if !locked {
		return nil, ErrLocked
	}

	return &Ownership{fl: fl}, nil
}

// Release gives up the lock. It panics on failure: the caller cannot
// continue safely once it no longer knows whether it still holds the
// lock.
func (o *Ownership) Release() {
	if o == nil || o.fl == nil {
		return
	}
	if err := o.fl.Unlock(); err != nil {
		panic(errors.Wrap(err, "releasing lock file"))
	}
}
