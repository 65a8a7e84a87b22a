package main

import (
	"flag"
	"fmt"
	"sort"

	"github.com/raven-os/libnest/depgraph"
)

// listCommand prints the packages currently tracked by the persisted
// dependency graph.
type listCommand struct {
	withDeps bool
}

func (c *listCommand) Name() string      { return "list" }
func (c *listCommand) Args() string      { return "" }
func (c *listCommand) ShortHelp() string { return "list installed packages" }
func (c *listCommand) LongHelp() string {
	return "List prints, one per line, every package reachable through a Static\nrequirement in the dependency graph. With --with-deps, every package\nnode is printed instead, including those pulled in only as dependencies."
}

func (c *listCommand) Register(fs *flag.FlagSet) {
	fs.BoolVar(&c.withDeps, "with-deps", false, "include packages pulled in only as dependencies")
}

func (c *listCommand) Run(args []string) error {
	if len(args) != 0 {
		return fmt.Errorf("list: takes no arguments")
	}

	env, err := openEnvironment()
	if err != nil {
		return err
	}

	g, err := depgraph.LoadFromCache(env.Config.Paths.DepGraph)
	if err != nil {
		return err
	}

	var names []string
	if c.withDeps {
		for _, n := range g.AllNodes() {
			if !n.Kind.IsGroup {
				names = append(names, n.Kind.PackageID.FullName().String())
			}
		}
	} else {
		for _, n := range g.AllNodes() {
			for _, rid := range n.Requirements {
				req, ok := g.Requirement(rid)
				if !ok || req.Method != depgraph.Static || req.Fulfilling == nil {
					continue
				}
				target, ok := g.Node(*req.Fulfilling)
				if !ok || target.Kind.IsGroup {
					continue
				}
				names = append(names, target.Kind.PackageID.FullName().String())
			}
		}
	}

	sort.Strings(names)
	for _, n := range names {
		fmt.Println(n)
	}
	return nil
}
