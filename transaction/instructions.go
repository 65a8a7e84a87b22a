package transaction

import (
	"bytes"
	"os/exec"
	"syscall"

	"github.com/pkg/errors"
)

// Hook names the four lifecycle points an instructions.sh may define.
// Any subset may be present; absent ones are no-ops.
type Hook string

const (
	BeforeInstall Hook = "before_install"
	AfterInstall  Hook = "after_install"
	BeforeRemove  Hook = "before_remove"
	AfterRemove   Hook = "after_remove"
)

// prelude defines empty stubs for every hook so a script that defines only
// a subset of them can still be called uniformly.
const prelude = `before_install() { :; }
after_install() { :; }
before_remove() { :; }
after_remove() { :; }
`

var candidateShells = []string{"/bin/sh", "/bin/bash"}

// findShell searches root for a usable shell, verifying each candidate is
// executable by invoking it with "-c :".
func findShell(root string) (string, error) {
	for _, candidate := range candidateShells {
		cmd := exec.Command(candidate, "-c", ":")
		cmd.SysProcAttr = &syscall.SysProcAttr{Chroot: root}
		cmd.Dir = "/"
		if err := cmd.Run(); err == nil {
			return candidate, nil
		}
	}
	return "", &InstructionsError{Kind: CannotFindShell}
}

// RunHook executes hook inside a chroot at root. No instructions.sh at
// all means "no hooks needed, proceed": shell discovery is skipped
// entirely and RunHook is a no-op.
func RunHook(root string, source string, hasInstructions bool, hook Hook) error {
	if !hasInstructions {
		return nil
	}

	shell, err := findShell(root)
	if err != nil {
		return err
	}

	full := prelude + "\n" + source + "\n" + string(hook) + "\n"

	var stdout, stderr bytes.Buffer
	cmd := exec.Command(shell, "-c", full)
	cmd.SysProcAttr = &syscall.SysProcAttr{Chroot: root}
	cmd.Dir = "/"
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if _, ok := err.(*exec.ExitError); ok {
			return &InstructionsError{
				Kind:   FailureExitStatus,
				Hook:   hook,
				Output: stdout.String() + stderr.String(),
			}
		}
		return &InstructionsError{Kind: CannotExecuteShell, Hook: hook, Cause: err}
	}
	return nil
}

// InstructionsError reports a failure executing a package's instruction
// script.
type InstructionsError struct {
	Kind   InstructionsErrorKind
	Hook   Hook
	Output string
	Cause  error
}

// InstructionsErrorKind discriminates instruction-execution failures.
type InstructionsErrorKind int

const (
	CannotReadInstructions InstructionsErrorKind = iota
	CannotFindShell
	CannotExecuteShell
	FailureExitStatus
)

func (e *InstructionsError) Error() string {
	switch e.Kind {
	case CannotFindShell:
		return "cannot find a usable shell inside the target root"
	case FailureExitStatus:
		return errors.Errorf("instruction hook %s exited with failure:\n%s", e.Hook, e.Output).Error()
	case CannotExecuteShell:
		return errors.Wrapf(e.Cause, "cannot execute shell for hook %s", e.Hook).Error()
	default:
		return errors.Wrap(e.Cause, "cannot read instructions").Error()
	}
}

func (e *InstructionsError) Unwrap() error { return e.Cause }
