package main

import (
	"context"
	"flag"
	"fmt"

	"github.com/raven-os/libnest/depgraph"
	"github.com/raven-os/libnest/identifier"
)

// uninstallCommand drops a static requirement from the root group; the
// package itself is removed only once SweepOrphans finds nothing else
// reaching it.
type uninstallCommand struct {
	shouldWait bool
}

func (c *uninstallCommand) Name() string      { return "uninstall" }
func (c *uninstallCommand) Args() string      { return "<package...>" }
func (c *uninstallCommand) ShortHelp() string { return "remove one or more packages" }
func (c *uninstallCommand) LongHelp() string {
	return "Uninstall removes each argument's matching static requirement from the\nroot group, solves, and applies the resulting transactions. A package\nstill required by something else is left in place."
}

func (c *uninstallCommand) Register(fs *flag.FlagSet) {
	fs.BoolVar(&c.shouldWait, "wait", false, "block until the lock is free instead of failing immediately")
}

func (c *uninstallCommand) Run(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("uninstall: at least one package requirement is required")
	}

	reqs := make([]identifier.PackageRequirement, 0, len(args))
	for _, a := range args {
		req, err := identifier.ParsePackageRequirement(a)
		if err != nil {
			return err
		}
		reqs = append(reqs, req)
	}

	env, err := openEnvironment()
	if err != nil {
		return err
	}

	txns, err := env.Apply(context.Background(), c.shouldWait, func(g *depgraph.Graph) error {
		for _, req := range reqs {
			if n := g.NodeRemoveRequirement(depgraph.RootID, depgraph.PackageRequirementKind(req)); n == 0 {
				return fmt.Errorf("uninstall: %s is not a root requirement", req)
			}
		}
		return nil
	}, cliNotifier{}, onWarning)
	if err != nil {
		return err
	}

	if len(txns) == 0 {
		fmt.Println("nothing to do")
	}
	return nil
}
