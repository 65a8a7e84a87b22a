package main

import (
	"context"
	"flag"
	"fmt"

	"github.com/raven-os/libnest/depgraph"
)

// upgradeCommand recomputes every Auto requirement's target against the
// current available cache, re-solving from the graph's Static
// requirements.
type upgradeCommand struct {
	shouldWait bool
}

func (c *upgradeCommand) Name() string      { return "upgrade" }
func (c *upgradeCommand) Args() string      { return "" }
func (c *upgradeCommand) ShortHelp() string { return "upgrade every installed package to the newest version allowed" }
func (c *upgradeCommand) LongHelp() string {
	return "Upgrade unbinds every requirement and re-solves from scratch against the\ncurrent available cache, so each package moves to the newest version its\nremaining Static requirements still allow."
}

func (c *upgradeCommand) Register(fs *flag.FlagSet) {
	fs.BoolVar(&c.shouldWait, "wait", false, "block until the lock is free instead of failing immediately")
}

func (c *upgradeCommand) Run(args []string) error {
	if len(args) != 0 {
		return fmt.Errorf("upgrade: takes no arguments")
	}

	env, err := openEnvironment()
	if err != nil {
		return err
	}

	txns, err := env.Apply(context.Background(), c.shouldWait, func(g *depgraph.Graph) error {
		return g.Update(env.Available)
	}, cliNotifier{}, onWarning)
	if err != nil {
		return err
	}

	if len(txns) == 0 {
		fmt.Println("already up to date")
	}
	return nil
}
