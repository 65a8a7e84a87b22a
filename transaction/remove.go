package transaction

import (
	"os"

	"github.com/raven-os/libnest/cache/installed"
	"github.com/raven-os/libnest/identifier"
	"github.com/raven-os/libnest/manifest"
)

// Remove uninstalls a package: load the install log, run before_remove,
// walk the log in reverse deleting files (tolerating ones already gone,
// collecting the first failure), delete the log, then run after_remove.
func Remove(ctx Context, id identifier.PackageID) error {
	log, ok, err := ctx.Installed.Load(id)
	if err != nil {
		return &RemoveError{Kind: LogFileLoadError, Cause: err}
	}
	if !ok {
		return &RemoveError{Kind: LogFileLoadError, Path: id.String()}
	}

	explorer, err := ctx.Downloaded.ExplorePackage(id)
	if err != nil {
		return &RemoveError{Kind: InvalidCachedPackageFile, Cause: err}
	}
	defer explorer.Close()

	source, hasInstructions, err := explorer.InstructionsSource()
	if err != nil {
		return &RemoveError{Kind: InvalidCachedPackageFile, Cause: err}
	}

	if err := RunHook(ctx.Root, source, hasInstructions, BeforeRemove); err != nil {
		return &RemoveError{Kind: PreRemoveInstructionsFailure, Cause: err}
	}

	if explorer.Manifest().Kind == manifest.Effective {
		if err := removeLoggedFiles(log); err != nil {
			return err
		}
	}

	if err := ctx.Installed.Remove(id); err != nil {
		return &RemoveError{Kind: LogFileRemoveError, Cause: err}
	}

	if err := RunHook(ctx.Root, source, hasInstructions, AfterRemove); err != nil {
		return &RemoveError{Kind: PostRemoveInstructionsFailure, Cause: err}
	}
	return nil
}

// removeLoggedFiles walks log in reverse order, removing each entry and
// collecting the first failure while continuing through the rest.
func removeLoggedFiles(log installed.Log) error {
	var firstErr error
	for _, entry := range log.Reversed() {
		if err := removeLoggedEntry(entry); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func removeLoggedEntry(entry installed.Entry) error {
	lst, err := os.Lstat(entry.Path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return &RemoveError{Kind: FileRemoveError, Path: entry.Path, Cause: err}
	}

	if entry.FileType == installed.Directory {
		if lst.Mode()&os.ModeSymlink != 0 {
			return nil
		}
		entries, err := os.ReadDir(entry.Path)
		if err != nil {
			return &RemoveError{Kind: FileRemoveError, Path: entry.Path, Cause: err}
		}
		if len(entries) > 0 {
			return nil
		}
		if err := os.Remove(entry.Path); err != nil {
			return &RemoveError{Kind: FileRemoveError, Path: entry.Path, Cause: err}
		}
		return nil
	}

	if err := os.Remove(entry.Path); err != nil && !os.IsNotExist(err) {
		return &RemoveError{Kind: FileRemoveError, Path: entry.Path, Cause: err}
	}
	return nil
}
