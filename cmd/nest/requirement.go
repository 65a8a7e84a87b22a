package main

import (
	"flag"
	"fmt"

	"github.com/raven-os/libnest"
	"github.com/raven-os/libnest/cache/available"
	"github.com/raven-os/libnest/depgraph"
	"github.com/raven-os/libnest/identifier"
)

// requirementCommand edits a group's package requirements in the staged
// scratch dependency graph.
type requirementCommand struct{}

func (c *requirementCommand) Name() string { return "requirement" }
func (c *requirementCommand) Args() string {
	return "add <group> <package...> | remove <group> <package...>"
}
func (c *requirementCommand) ShortHelp() string { return "add or remove package requirements of a group" }
func (c *requirementCommand) LongHelp() string {
	return "Requirement stages a change to one group's package requirements: \"add\"\nresolves each argument against the available cache and pins the best\nmatch's location while keeping the requested version bound, \"remove\"\ndrops a matching requirement. Run \"merge\" to apply staged changes."
}

func (c *requirementCommand) Register(fs *flag.FlagSet) {}

func (c *requirementCommand) Run(args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("requirement: expected a subcommand and a group (add|remove <group> <package...>)")
	}

	env, err := openEnvironment()
	if err != nil {
		return err
	}

	group, err := identifier.ParseGroupName(args[1])
	if err != nil {
		return err
	}

	switch args[0] {
	case "add":
		return c.add(env, group, args[2:])
	case "remove":
		return c.remove(env, group, args[2:])
	default:
		return fmt.Errorf("requirement: unknown subcommand %q", args[0])
	}
}

func (c *requirementCommand) add(env *libnest.Environment, group identifier.GroupName, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("requirement add: expected <package...>")
	}

	reqs := make([]identifier.PackageRequirement, 0, len(args))
	for _, a := range args {
		req, err := identifier.ParsePackageRequirement(a)
		if err != nil {
			return err
		}
		reqs = append(reqs, req)
	}

	return env.MutateScratch(func(g *depgraph.Graph) error {
		groupID, ok := g.LookupName(depgraph.NodeNameForGroup(group))
		if !ok {
			return fmt.Errorf("requirement add: unknown group %s", group)
		}

		for _, req := range reqs {
			matches, err := env.Available.Query(req).SetStrategy(available.BestMatch).Perform()
			if err != nil {
				return err
			}
			if len(matches) > 1 {
				for _, m := range matches {
					fmt.Println(m.ID)
				}
				return fmt.Errorf("requirement add: unable to select a best match for %s", req)
			}
			if len(matches) == 0 {
				return fmt.Errorf("requirement add: no package found for requirement %s", req)
			}

			full := matches[0].ID.FullName()
			repo, cat := full.Repository, full.Category
			pinned := identifier.PackageRequirement{Repository: &repo, Category: &cat, Name: full.Name, VersionReq: req.VersionReq}

			fmt.Printf("adding requirement %s to group %s...\n", pinned, group)
			g.NodeAddRequirement(groupID, depgraph.PackageRequirementKind(pinned), depgraph.Static)
		}
		return nil
	})
}

func (c *requirementCommand) remove(env *libnest.Environment, group identifier.GroupName, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("requirement remove: expected <package...>")
	}

	reqs := make([]identifier.PackageRequirement, 0, len(args))
	for _, a := range args {
		req, err := identifier.ParsePackageRequirement(a)
		if err != nil {
			return err
		}
		reqs = append(reqs, req)
	}

	return env.MutateScratch(func(g *depgraph.Graph) error {
		groupID, ok := g.LookupName(depgraph.NodeNameForGroup(group))
		if !ok {
			return fmt.Errorf("requirement remove: unknown group %s", group)
		}

		for _, req := range reqs {
			matches, err := env.Available.Query(req).SetStrategy(available.AllMatchesUnsorted).Perform()
			if err != nil {
				return err
			}

			groupNode, ok := g.Node(groupID)
			if !ok {
				return fmt.Errorf("requirement remove: unknown group %s", group)
			}

			found := false
			for _, rid := range groupNode.Requirements {
				r, ok := g.Requirement(rid)
				if !ok || r.Kind.IsGroup {
					continue
				}
				for _, m := range matches {
					if identifier.MatchesShortName(r.Kind.PackageReq, m.ID.FullName()) {
						fmt.Printf("removing requirement %s from group %s...\n", r.Kind.PackageReq, group)
						g.RemoveRequirement(rid)
						found = true
						break
					}
				}
				if found {
					break
				}
			}
			if !found {
				return fmt.Errorf("requirement remove: unable to find a staged requirement matching %s", req)
			}
		}
		return nil
	})
}
