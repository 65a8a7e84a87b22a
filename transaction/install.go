// Package transaction implements the concrete install/remove/upgrade/pull
// primitives that mutate a real filesystem under a chroot-style root, plus
// instruction-script execution and batch orchestration.
package transaction

import (
	"github.com/raven-os/libnest/cache/downloaded"
	"github.com/raven-os/libnest/cache/installed"
	"github.com/raven-os/libnest/identifier"
	"github.com/raven-os/libnest/manifest"
	"github.com/raven-os/libnest/npf"
)

// Context bundles everything a transaction needs to execute against a
// configured root: the downloaded/installed caches and the extractor
// collaborator.
type Context struct {
	Root       string
	Downloaded *downloaded.Cache
	Installed  *installed.Cache
	Extractor  Extractor
}

// Install installs a downloaded package: explore the archive, run
// before_install, conflict-scan and log the data tarball
// before ever extracting a byte, extract, then run after_install.
func Install(ctx Context, id identifier.PackageID) error {
	explorer, err := ctx.Downloaded.ExplorePackage(id)
	if err != nil {
		return &InstallError{Kind: InvalidPackageFile, Cause: err}
	}
	defer explorer.Close()

	source, hasInstructions, err := explorer.InstructionsSource()
	if err != nil {
		return &InstallError{Kind: InvalidPackageFile, Cause: err}
	}

	if err := RunHook(ctx.Root, source, hasInstructions, BeforeInstall); err != nil {
		return &InstallError{Kind: PreInstallInstructionsFailure, Cause: err}
	}

	var log installed.Log
	m := explorer.Manifest()
	if m.Kind == manifest.Effective {
		log, err = scanConflicts(ctx, explorer)
		if err != nil {
			return err
		}
	}

	if err := ctx.Installed.Save(id, log); err != nil {
		return &InstallError{Kind: LogCreationError, Cause: err}
	}

	if m.Kind == manifest.Effective {
		if err := extractData(ctx, explorer); err != nil {
			return err
		}
	}

	if err := RunHook(ctx.Root, source, hasInstructions, AfterInstall); err != nil {
		return &InstallError{Kind: PostInstallInstructionsFailure, Cause: err}
	}
	return nil
}

// scanConflicts opens the archive's data tarball once to build the
// install log and detect conflicts, without writing anything to disk.
func scanConflicts(ctx Context, explorer *npf.Explorer) (installed.Log, error) {
	r, err := explorer.DataReader()
	if err != nil {
		return installed.Log{}, &InstallError{Kind: InvalidPackageData, Cause: err}
	}
	defer r.Close()

	return ctx.Extractor.ScanConflicts(r, ctx.Root)
}

// extractData re-opens the archive's data tarball from the start and
// extracts every entry onto disk.
func extractData(ctx Context, explorer *npf.Explorer) error {
	r, err := explorer.DataReader()
	if err != nil {
		return &InstallError{Kind: InvalidPackageData, Cause: err}
	}
	defer r.Close()

	return ctx.Extractor.Extract(r, ctx.Root)
}
