package transaction

import (
	"github.com/raven-os/libnest/cache/available"
	"github.com/raven-os/libnest/depgraph"
	"github.com/raven-os/libnest/identifier"
	"github.com/raven-os/libnest/repository"
)

// Repositories maps a configured repository name to its mirror list, the
// shape a batch's Pull transactions need.
type Repositories map[identifier.RepositoryName][]string

// PullContext bundles what a Pull transaction needs beyond Context: the
// available cache it repopulates, the configured mirrors, and the fetcher
// collaborator.
type PullContext struct {
	Available *available.Cache
	Mirrors   Repositories
	Fetcher   repository.Fetcher
}

// Perform executes one depgraph.Transaction against ctx, dispatching on
// its kind: Install and Remove call straight through; Upgrade
// runs Remove then Install sequentially with no shared state; Pull delegates to repository.Pull.
func Perform(ctx Context, pull PullContext, t depgraph.Transaction, onWarning func(*repository.Warning)) error {
	switch t.Kind {
	case depgraph.InstallTxn:
		return Install(ctx, t.PackageID)
	case depgraph.RemoveTxn:
		return Remove(ctx, t.PackageID)
	case depgraph.UpgradeTxn:
		if err := Remove(ctx, t.OldID); err != nil {
			return err
		}
		return Install(ctx, t.NewID)
	case depgraph.PullTxn:
		mirrors := pull.Mirrors[t.Repository]
		return repository.Pull(t.Repository, mirrors, pull.Fetcher, pull.Available, onWarning)
	default:
		return nil
	}
}
