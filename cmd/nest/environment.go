package main

import (
	"os"

	"github.com/raven-os/libnest"
	"github.com/raven-os/libnest/config"
	"github.com/raven-os/libnest/depgraph"
	"github.com/raven-os/libnest/nlog"
	"github.com/raven-os/libnest/repository"
)

// out carries every line the CLI prints: progress to stdout, warnings and
// errors to stderr.
var out = nlog.New(os.Stdout, os.Stderr)

// openEnvironment loads the configured Environment, applying --chroot if
// given.
func openEnvironment() (*libnest.Environment, error) {
	env, err := libnest.Open(resolvedConfigPath())
	if err != nil {
		return nil, err
	}
	if *chrootPath != "" {
		chrooted := env.Config.Paths.Chrooted(*chrootPath)
		env.Config = &config.Config{Paths: chrooted, Repositories: env.Config.Repositories}
	}
	return env, nil
}

// cliNotifier renders the core's abstract progress events to the terminal.
type cliNotifier struct{}

func (cliNotifier) NewStep(step int, isRetry bool) {
	if isRetry {
		vlogf("retrying step %d", step+1)
		return
	}
	vlogf("step %d", step+1)
}

func (cliNotifier) Progress(current, max int) {
	vlogf("progress: %d/%d", current, max)
}

func (cliNotifier) FinishTransaction(t depgraph.Transaction, err error) {
	label := transactionLabel(t)
	if err != nil {
		out.Errf("%s failed: %v", label, err)
		return
	}
	out.Printf("%s: done", label)
}

func (cliNotifier) Warning(err error) {
	out.Warnf("%v", err)
}

func transactionLabel(t depgraph.Transaction) string {
	switch t.Kind {
	case depgraph.InstallTxn:
		return "install " + t.PackageID.String()
	case depgraph.RemoveTxn:
		return "remove " + t.PackageID.String()
	case depgraph.UpgradeTxn:
		return "upgrade " + t.OldID.String() + " -> " + t.NewID.String()
	case depgraph.PullTxn:
		return "pull " + string(t.Repository)
	default:
		return "transaction"
	}
}

func onWarning(w *repository.Warning) {
	out.Warnf("%v", w)
}
