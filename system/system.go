// Package system detects the running architecture triple. Manifests carry
// it as an informational field and available-cache queries may filter on
// it.
package system

import "runtime"

// Arch is a triple of the form "{goarch}-{goos}", close enough to a full
// target triple to serve its informational purpose.
type Arch string

// CurrentArch returns the triple for the architecture this process is
// running on.
func CurrentArch() Arch {
	return Arch(runtime.GOARCH + "-" + runtime.GOOS)
}

// Matches reports whether a manifest's arch field is either empty
// (arch-agnostic) or equal to a, exactly.
func (a Arch) Matches(manifestArch string) bool {
	return manifestArch == "" || manifestArch == string(a)
}

func (a Arch) String() string { return string(a) }
