package main

import (
	"context"
	"flag"
	"fmt"

	"github.com/raven-os/libnest/depgraph"
	"github.com/raven-os/libnest/identifier"
)

// installCommand adds a static package requirement to the root group and
// runs the solve/diff/apply pipeline.
type installCommand struct {
	shouldWait bool
}

func (c *installCommand) Name() string      { return "install" }
func (c *installCommand) Args() string      { return "<package...>" }
func (c *installCommand) ShortHelp() string { return "install one or more packages" }
func (c *installCommand) LongHelp() string {
	return "Install parses each argument as a package requirement (e.g.\ncore::sys/hello#^1.0.0), attaches it to the root group as a static\nrequirement, solves, and applies the resulting transactions."
}

func (c *installCommand) Register(fs *flag.FlagSet) {
	fs.BoolVar(&c.shouldWait, "wait", false, "block until the lock is free instead of failing immediately")
}

func (c *installCommand) Run(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("install: at least one package requirement is required")
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
			g.NodeAddRequirement(depgraph.RootID, depgraph.PackageRequirementKind(req), depgraph.Static)
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
