package transaction

import (
	"fmt"

	"github.com/pkg/errors"
)

// InstallErrorKind discriminates install-time failures.
type InstallErrorKind int

const (
	FileAlreadyExists InstallErrorKind = iota
	PackageAlreadyInstalled
	InvalidPackageFile
	InvalidPackageData
	ExtractError
	LogCreationError
	PreInstallInstructionsFailure
	PostInstallInstructionsFailure
)

func (k InstallErrorKind) String() string {
	switch k {
	case FileAlreadyExists:
		return "file already exists"
	case PackageAlreadyInstalled:
		return "package already installed"
	case InvalidPackageFile:
		return "invalid package file"
	case InvalidPackageData:
		return "invalid package data"
	case ExtractError:
		return "extract error"
	case LogCreationError:
		return "log creation error"
	case PreInstallInstructionsFailure:
		return "pre-install instructions failure"
	case PostInstallInstructionsFailure:
		return "post-install instructions failure"
	default:
		return "install error"
	}
}

// InstallError reports why installing a package failed.
type InstallError struct {
	Kind  InstallErrorKind
	Path  string
	Cause error
}

func (e *InstallError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Path)
	}
	return errors.Wrap(e.Cause, e.Kind.String()).Error()
}

func (e *InstallError) Unwrap() error { return e.Cause }

// RemoveErrorKind discriminates remove-time failures.
type RemoveErrorKind int

const (
	LogFileLoadError RemoveErrorKind = iota
	FileRemoveError
	LogFileRemoveError
	PreRemoveInstructionsFailure
	PostRemoveInstructionsFailure
	InvalidCachedPackageFile
)

func (k RemoveErrorKind) String() string {
	switch k {
	case LogFileLoadError:
		return "log file load error"
	case FileRemoveError:
		return "file remove error"
	case LogFileRemoveError:
		return "log file remove error"
	case PreRemoveInstructionsFailure:
		return "pre-remove instructions failure"
	case PostRemoveInstructionsFailure:
		return "post-remove instructions failure"
	case InvalidCachedPackageFile:
		return "invalid cached package file"
	default:
		return "remove error"
	}
}

// RemoveError reports why removing a package failed.
type RemoveError struct {
	Kind  RemoveErrorKind
	Path  string
	Cause error
}

func (e *RemoveError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Path)
	}
	return errors.Wrap(e.Cause, e.Kind.String()).Error()
}

func (e *RemoveError) Unwrap() error { return e.Cause }
