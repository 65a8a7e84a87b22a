package depgraph

import "fmt"

// ErrorKind discriminates dependency-graph failures that are data-level
// (reported to the caller), as opposed to invariant violations (which
// panic; see Graph doc comment).
type ErrorKind int

const (
	UnknownPackage ErrorKind = iota
	PackageAlreadyExists
	GroupAlreadyExists
	RequirementSolvingError
	GroupNotFound
)

func (k ErrorKind) String() string {
	switch k {
	case UnknownPackage:
		return "unknown package"
	case PackageAlreadyExists:
		return "package already exists"
	case GroupAlreadyExists:
		return "group already exists"
	case RequirementSolvingError:
		return "requirement solving error"
	case GroupNotFound:
		return "group not found"
	default:
		return "dependency graph error"
	}
}

// Error reports a data-level dependency-graph failure.
type Error struct {
	Kind   ErrorKind
	Detail string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
}
