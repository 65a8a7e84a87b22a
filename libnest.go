// Package libnest ties the leaf packages of this module into the
// solve/diff/apply pipeline a front-end drives: load config, acquire the
// lock, load the persisted dependency graph, mutate a clone, solve, diff old against new, download
// what the diff needs, apply the resulting transactions in order, then
// persist the new graph. cmd/nest is the thin command-line front-end that
// drives an Environment; this file is the library surface it drives.
package libnest

import (
	"context"
	"os"

	"github.com/pkg/errors"

	"github.com/raven-os/libnest/cache/available"
	"github.com/raven-os/libnest/cache/downloaded"
	"github.com/raven-os/libnest/cache/installed"
	"github.com/raven-os/libnest/config"
	"github.com/raven-os/libnest/depgraph"
	"github.com/raven-os/libnest/identifier"
	"github.com/raven-os/libnest/lockfile"
	"github.com/raven-os/libnest/repository"
	"github.com/raven-os/libnest/transaction"
)

// DownloadConcurrency bounds how many archives Environment.Apply fetches at
// once. Downloads are the only parallel work; every filesystem mutation
// stays on the caller's thread.
const DownloadConcurrency = 4

// Environment bundles every leaf package's state for one configured nest
// root.
type Environment struct {
	Config     *config.Config
	Lock       *lockfile.Lock
	Available  *available.Cache
	Downloaded *downloaded.Cache
	Installed  *installed.Cache
	Fetcher    repository.Fetcher
}

// Open reads the TOML configuration at configPath and builds the caches it
// names.
func Open(configPath string) (*Environment, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	return &Environment{
		Config:     cfg,
		Lock:       lockfile.New(cfg.Paths.Lock),
		Available:  available.New(cfg.Paths.Available),
		Downloaded: downloaded.New(cfg.Paths.Downloaded),
		Installed:  installed.New(cfg.Paths.Installed),
		Fetcher:    repository.NewHTTPFetcher(),
	}, nil
}

// mirrors reshapes the configured repositories into the map transaction.Pull
// and transaction.DownloadQueue expect.
func (e *Environment) mirrors() (transaction.Repositories, error) {
	out := make(transaction.Repositories, len(e.Config.Repositories))
	for n, r := range e.Config.Repositories {
		name, err := identifier.ParseRepositoryName(n)
		if err != nil {
			return nil, errors.Wrapf(err, "repository name %q in config", n)
		}
		out[name] = r.Mirrors
	}
	return out, nil
}

// Pull refreshes one repository's available cache from its configured
// mirrors.
func (e *Environment) Pull(repo identifier.RepositoryName, onWarning func(*repository.Warning)) error {
	ownership, err := e.Lock.Acquire(true)
	if err != nil {
		return err
	}
	defer ownership.Release()

	mirrors, err := e.mirrors()
	if err != nil {
		return err
	}
	return repository.Pull(repo, mirrors[repo], e.Fetcher, e.Available, onWarning)
}

// Mutation describes a caller's intended change to the dependency graph:
// add/remove a requirement under some group, or recompute every Auto
// requirement's target (depgraph.Update). It runs against a clone, never
// the loaded graph directly, so a failure never corrupts the persisted
// state.
type Mutation func(g *depgraph.Graph) error

// Apply runs the full control flow of a mutating verb: acquire the lock,
// load the persisted graph, mutate a clone, solve it, diff old
// against new, download what installs/upgrades need, apply the resulting
// transactions in strict order, then persist the new graph. It returns the
// transactions actually attempted (useful for reporting even on failure).
func (e *Environment) Apply(ctx context.Context, shouldWaitForLock bool, mutate Mutation, notifier transaction.Notifier, onWarning func(*repository.Warning)) ([]depgraph.Transaction, error) {
	ownership, err := e.Lock.Acquire(shouldWaitForLock)
	if err != nil {
		return nil, err
	}
	defer ownership.Release()

	oldGraph, err := depgraph.LoadFromCache(e.Config.Paths.DepGraph)
	if err != nil {
		return nil, err
	}

	newGraph := oldGraph.Clone()
	if err := mutate(newGraph); err != nil {
		return nil, err
	}
	if err := newGraph.Solve(e.Available); err != nil {
		return nil, err
	}
	newGraph.SweepOrphans()

	txns := depgraph.CoalesceUpgrades(depgraph.Diff(oldGraph, newGraph))

	if err := e.runTransactions(ctx, txns, notifier, onWarning); err != nil {
		return txns, err
	}

	if err := newGraph.SaveToCache(e.Config.Paths.DepGraph, ownership); err != nil {
		return txns, err
	}
	return txns, nil
}

// runTransactions downloads every archive an Install or Upgrade transaction
// in txns will need, then runs the batch through an Orchestrator. It is the
// shared tail end of Apply, MergeScratch and Reinstall.
func (e *Environment) runTransactions(ctx context.Context, txns []depgraph.Transaction, notifier transaction.Notifier, onWarning func(*repository.Warning)) error {
	mirrors, err := e.mirrors()
	if err != nil {
		return err
	}

	if err := e.downloadFor(ctx, txns, mirrors, onWarning); err != nil {
		return err
	}

	orch := transaction.Orchestrator{
		Transactions: txns,
		Context: transaction.Context{
			Root:       e.Config.Paths.Root,
			Downloaded: e.Downloaded,
			Installed:  e.Installed,
			Extractor:  transaction.NewExtractor(),
		},
		Pull: transaction.PullContext{
			Available: e.Available,
			Mirrors:   mirrors,
			Fetcher:   e.Fetcher,
		},
	}
	return orch.Perform(notifier)
}

// downloadFor fetches every archive an Install or Upgrade transaction in
// txns will need before the Orchestrator runs, using a bounded worker
// pool.
func (e *Environment) downloadFor(ctx context.Context, txns []depgraph.Transaction, mirrors transaction.Repositories, onWarning func(*repository.Warning)) error {
	var ids []identifier.PackageID
	for _, t := range txns {
		switch t.Kind {
		case depgraph.InstallTxn:
			ids = append(ids, t.PackageID)
		case depgraph.UpgradeTxn:
			ids = append(ids, t.NewID)
		}
	}
	if len(ids) == 0 {
		return nil
	}

	queue := transaction.NewDownloadQueue(DownloadConcurrency, mirrors, e.Fetcher)
	return queue.Run(ctx, ids, e.Downloaded.Store, onWarning)
}

// LoadScratchGraph loads the staging graph CLI group/requirement edit
// commands mutate, falling back to the persisted dependency graph if no
// edit is currently staged.
func (e *Environment) LoadScratchGraph() (*depgraph.Graph, error) {
	if _, err := os.Stat(e.Config.Paths.ScratchDepGraph); err == nil {
		return depgraph.LoadFromCache(e.Config.Paths.ScratchDepGraph)
	}
	g, err := depgraph.LoadFromCache(e.Config.Paths.DepGraph)
	if err != nil {
		return nil, err
	}
	return g.Clone(), nil
}

// MutateScratch applies mutate to the staged scratch graph (creating it
// from the persisted graph if nothing is staged yet), solves it against
// the available cache, and writes it back to scratch_depgraph without
// touching the persisted graph or installing anything: group/requirement
// edits only take effect once "merge" diffs and applies them.
func (e *Environment) MutateScratch(mutate Mutation) error {
	ownership, err := e.Lock.Acquire(true)
	if err != nil {
		return err
	}
	defer ownership.Release()

	g, err := e.LoadScratchGraph()
	if err != nil {
		return err
	}
	if err := mutate(g); err != nil {
		return err
	}
	if err := g.Solve(e.Available); err != nil {
		return err
	}
	return g.SaveToCache(e.Config.Paths.ScratchDepGraph, ownership)
}

// MergeScratch diffs the persisted dependency graph against the staged
// scratch graph, applies the resulting transactions, persists the scratch
// graph as the new depgraph, and clears the staging file.
func (e *Environment) MergeScratch(ctx context.Context, shouldWaitForLock bool, notifier transaction.Notifier, onWarning func(*repository.Warning)) ([]depgraph.Transaction, error) {
	ownership, err := e.Lock.Acquire(shouldWaitForLock)
	if err != nil {
		return nil, err
	}
	defer ownership.Release()

	if _, err := os.Stat(e.Config.Paths.ScratchDepGraph); err != nil {
		return nil, errors.Wrap(err, "no scratch dependency graph found; run group/requirement edits first")
	}

	oldGraph, err := depgraph.LoadFromCache(e.Config.Paths.DepGraph)
	if err != nil {
		return nil, err
	}
	newGraph, err := depgraph.LoadFromCache(e.Config.Paths.ScratchDepGraph)
	if err != nil {
		return nil, err
	}

	txns := depgraph.CoalesceUpgrades(depgraph.Diff(oldGraph, newGraph))

	if err := e.runTransactions(ctx, txns, notifier, onWarning); err != nil {
		return txns, err
	}

	if err := newGraph.SaveToCache(e.Config.Paths.DepGraph, ownership); err != nil {
		return txns, err
	}
	if err := os.Remove(e.Config.Paths.ScratchDepGraph); err != nil && !os.IsNotExist(err) {
		return txns, errors.Wrap(err, "removing scratch dependency graph")
	}
	return txns, nil
}

// Reinstall re-runs Remove then Install for each of ids without touching
// the dependency graph: an Upgrade whose old and new ids are equal, which
// downloads a fresh copy of each archive and replaces the on-disk package
// in place.
func (e *Environment) Reinstall(ctx context.Context, shouldWaitForLock bool, ids []identifier.PackageID, notifier transaction.Notifier, onWarning func(*repository.Warning)) error {
	ownership, err := e.Lock.Acquire(shouldWaitForLock)
	if err != nil {
		return err
	}
	defer ownership.Release()

	txns := make([]depgraph.Transaction, len(ids))
	for i, id := range ids {
		txns[i] = depgraph.Transaction{Kind: depgraph.UpgradeTxn, OldID: id, NewID: id}
	}
	return e.runTransactions(ctx, txns, notifier, onWarning)
}
