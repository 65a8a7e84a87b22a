package main

import (
	"context"
	"flag"
	"fmt"

	"github.com/raven-os/libnest/depgraph"
	"github.com/raven-os/libnest/identifier"
)

// reinstallCommand downloads a fresh archive for each currently-installed
// package matching a requirement and replaces it in place, without
// touching the dependency graph.
type reinstallCommand struct {
	shouldWait bool
}

func (c *reinstallCommand) Name() string      { return "reinstall" }
func (c *reinstallCommand) Args() string      { return "<package...>" }
func (c *reinstallCommand) ShortHelp() string { return "reinstall one or more installed packages" }
func (c *reinstallCommand) LongHelp() string {
	return "Reinstall downloads a fresh archive for each argument's matching\ninstalled package and replaces it in place. Each argument must match\nexactly one currently-installed package."
}

func (c *reinstallCommand) Register(fs *flag.FlagSet) {
	fs.BoolVar(&c.shouldWait, "wait", false, "block until the lock is free instead of failing immediately")
}

func (c *reinstallCommand) Run(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("reinstall: at least one package requirement is required")
	}

	env, err := openEnvironment()
	if err != nil {
		return err
	}

	g, err := depgraph.LoadFromCache(env.Config.Paths.DepGraph)
	if err != nil {
		return err
	}

	ids := make([]identifier.PackageID, 0, len(args))
	for _, a := range args {
		req, err := identifier.ParsePackageRequirement(a)
		if err != nil {
			return err
		}

		matches := depgraph.NewQuery(g, req).Precise().Perform()
		switch len(matches) {
		case 0:
			return fmt.Errorf("reinstall: no package matches the %s requirement", a)
		case 1:
			ids = append(ids, matches[0])
		default:
			return fmt.Errorf("reinstall: multiple installed packages match the %s requirement, please disambiguate", a)
		}
	}

	fmt.Println("downloading packages...")
	return env.Reinstall(context.Background(), c.shouldWait, ids, cliNotifier{}, onWarning)
}
