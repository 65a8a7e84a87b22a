// Command nest is the thin reference CLI over the core library: it parses
// arguments, builds a libnest.Environment from the configured paths, and
// calls straight into the core's solve/diff/apply pipeline.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
)

var (
	verbose    = flag.Bool("v", false, "enable verbose logging")
	configPath = flag.String("config", "/etc/nest/config.toml", "path to the nest configuration file")
	chrootPath = flag.String("chroot", "", "reinterpret every configured path under this root")
)

// command is the contract every subcommand implements: one flag set per
// subcommand, registered and dispatched by name.
type command interface {
	Name() string
	Args() string
	ShortHelp() string
	LongHelp() string
	Register(*flag.FlagSet)
	Run(args []string) error
}

func main() {
	commands := []command{
		&pullCommand{},
		&installCommand{},
		&uninstallCommand{},
		&upgradeCommand{},
		&reinstallCommand{},
		&listCommand{},
		&groupCommand{},
		&requirementCommand{},
		&mergeCommand{},
	}

	usage := func() {
		fmt.Fprintln(os.Stderr, "Usage: nest [--config path] [--chroot path] [-v] <command>")
		fmt.Fprintln(os.Stderr)
		fmt.Fprintln(os.Stderr, "Commands:")
		w := tabwriter.NewWriter(os.Stderr, 0, 4, 2, ' ', 0)
		for _, c := range commands {
			fmt.Fprintf(w, "\t%s\t%s\n", c.Name(), c.ShortHelp())
		}
		w.Flush()
	}

	flag.Parse()
	args := flag.Args()

	if len(args) == 0 || strings.ToLower(args[0]) == "help" || strings.ToLower(args[0]) == "-h" {
		usage()
		os.Exit(1)
	}

	for _, c := range commands {
		if c.Name() != args[0] {
			continue
		}

		fs := flag.NewFlagSet(c.Name(), flag.ExitOnError)
		fs.BoolVar(verbose, "v", *verbose, "enable verbose logging")
		c.Register(fs)
		resetUsage(fs, c.Name(), c.Args(), c.LongHelp())

		if err := fs.Parse(args[1:]); err != nil {
			fs.Usage()
			os.Exit(1)
		}

		if err := c.Run(fs.Args()); err != nil {
			fmt.Fprintf(os.Stderr, "nest %s: %v\n", c.Name(), err)
			os.Exit(1)
		}
		return
	}

	fmt.Fprintf(os.Stderr, "nest: no such command %q\n", args[0])
	usage()
	os.Exit(1)
}

func resetUsage(fs *flag.FlagSet, name, args, longHelp string) {
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: nest %s %s\n", name, args)
		fmt.Fprintln(os.Stderr, longHelp)
		fs.PrintDefaults()
	}
}

// resolvedConfigPath returns the --config flag, cleaned; chroot rewriting of
// the configured paths happens after config.Load via config.Paths.Chrooted,
// applied inside openEnvironment.
func resolvedConfigPath() string {
	return filepath.Clean(*configPath)
}

func vlogf(format string, args ...interface{}) {
	if *verbose {
		fmt.Fprintf(os.Stderr, format+"\n", args...)
	}
}
