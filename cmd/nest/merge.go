package main

import (
	"context"
	"flag"
	"fmt"
)

// mergeCommand diffs the staged scratch dependency graph against the
// persisted one and applies the resulting transactions.
type mergeCommand struct {
	shouldWait bool
}

func (c *mergeCommand) Name() string      { return "merge" }
func (c *mergeCommand) Args() string      { return "" }
func (c *mergeCommand) ShortHelp() string { return "apply staged group/requirement edits" }
func (c *mergeCommand) LongHelp() string {
	return "Merge diffs the staged scratch dependency graph (written by group and\nrequirement) against the persisted one, downloads what installs or\nupgrades need, applies the resulting transactions in order, and\nreplaces the persisted graph with the staged one."
}

func (c *mergeCommand) Register(fs *flag.FlagSet) {
	fs.BoolVar(&c.shouldWait, "wait", false, "block until the lock is free instead of failing immediately")
}

func (c *mergeCommand) Run(args []string) error {
	if len(args) != 0 {
		return fmt.Errorf("merge: takes no arguments")
	}

	env, err := openEnvironment()
	if err != nil {
		return err
	}

	txns, err := env.MergeScratch(context.Background(), c.shouldWait, cliNotifier{}, onWarning)
	if err != nil {
		return err
	}

	if len(txns) == 0 {
		fmt.Println("all the given requirements are already satisfied, nothing to do")
	}
	return nil
}
