package main

import (
	"flag"
	"fmt"

	"github.com/raven-os/libnest/identifier"
)

// pullCommand refreshes the available cache from configured mirrors. With
// no arguments it pulls every configured repository.
type pullCommand struct{}

func (c *pullCommand) Name() string      { return "pull" }
func (c *pullCommand) Args() string      { return "[repository...]" }
func (c *pullCommand) ShortHelp() string { return "refresh the available cache from the configured mirrors" }
func (c *pullCommand) LongHelp() string {
	return "Pull fetches each named repository's package list from its mirrors and\nupdates the available cache. With no repository named, every repository\nconfigured in config.toml is pulled."
}
func (c *pullCommand) Register(fs *flag.FlagSet) {}

func (c *pullCommand) Run(args []string) error {
	env, err := openEnvironment()
	if err != nil {
		return err
	}

	names := args
	if len(names) == 0 {
		all, err := env.Config.RepositoryNames()
		if err != nil {
			return err
		}
		for _, n := range all {
			names = append(names, string(n))
		}
	}

	for _, n := range names {
		repo, err := identifier.ParseRepositoryName(n)
		if err != nil {
			return err
		}
		vlogf("pulling %s", repo)
		if err := env.Pull(repo, onWarning); err != nil {
			return err
		}
		fmt.Printf("pulled %s\n", repo)
	}
	return nil
}
