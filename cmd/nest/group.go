package main

import (
	"flag"
	"fmt"
	"sort"

	"github.com/raven-os/libnest"
	"github.com/raven-os/libnest/depgraph"
	"github.com/raven-os/libnest/identifier"
)

// groupCommand edits the staged scratch dependency graph's group tree.
// Changes only take
// effect once "merge" diffs the scratch graph against the persisted one.
type groupCommand struct{}

func (c *groupCommand) Name() string      { return "group" }
func (c *groupCommand) Args() string      { return "add <parent-group> <group...> | remove <group...> | list" }
func (c *groupCommand) ShortHelp() string { return "add, remove or list requirement groups" }
func (c *groupCommand) LongHelp() string {
	return "Group stages a change to the dependency graph's group tree: \"add\" creates\nnew groups under an existing parent as a static requirement, \"remove\"\ndrops a group requirement from the root group, and \"list\" prints every\ngroup currently staged. Run \"merge\" to apply staged changes."
}

func (c *groupCommand) Register(fs *flag.FlagSet) {}

func (c *groupCommand) Run(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("group: expected a subcommand (add, remove, list)")
	}

	env, err := openEnvironment()
	if err != nil {
		return err
	}

	switch args[0] {
	case "add":
		return c.add(env, args[1:])
	case "remove":
		return c.remove(env, args[1:])
	case "list":
		return c.list(env, args[1:])
	default:
		return fmt.Errorf("group: unknown subcommand %q", args[0])
	}
}

func (c *groupCommand) add(env *libnest.Environment, args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("group add: expected <parent-group> <group...>")
	}

	parent, err := identifier.ParseGroupName(args[0])
	if err != nil {
		return err
	}
	var children []identifier.GroupName
	for _, a := range args[1:] {
		name, err := identifier.ParseGroupName(a)
		if err != nil {
			return err
		}
		children = append(children, name)
	}

	return env.MutateScratch(func(g *depgraph.Graph) error {
		parentID, ok := g.LookupName(depgraph.NodeNameForGroup(parent))
		if !ok {
			return fmt.Errorf("group add: unknown parent group %s", parent)
		}
		for _, name := range children {
			fmt.Printf("adding group %s with parent group %s...\n", name, parent)
			if _, err := g.AddGroupNode(name); err != nil {
				return err
			}
			g.NodeAddRequirement(parentID, depgraph.GroupRequirementKind(name), depgraph.Static)
		}
		return nil
	})
}

func (c *groupCommand) remove(env *libnest.Environment, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("group remove: expected <group...>")
	}

	var names []identifier.GroupName
	for _, a := range args {
		name, err := identifier.ParseGroupName(a)
		if err != nil {
			return err
		}
		names = append(names, name)
	}

	return env.MutateScratch(func(g *depgraph.Graph) error {
		for _, name := range names {
			fmt.Printf("removing group %s...\n", name)
			g.NodeRemoveRequirement(depgraph.RootID, depgraph.GroupRequirementKind(name))
		}
		return nil
	})
}

func (c *groupCommand) list(env *libnest.Environment, args []string) error {
	if len(args) != 0 {
		return fmt.Errorf("group list: takes no arguments")
	}

	g, err := env.LoadScratchGraph()
	if err != nil {
		return err
	}

	var names []string
	for _, n := range g.AllNodes() {
		if n.Kind.IsGroup {
			names = append(names, string(n.Kind.Group))
		}
	}
	sort.Strings(names)
	for _, n := range names {
		fmt.Println(n)
	}
	return nil
}
