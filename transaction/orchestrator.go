package transaction

import (
	"github.com/raven-os/libnest/depgraph"
	"github.com/raven-os/libnest/repository"
)

// Notifier receives the abstract progress events an Orchestrator emits as
// it works through a batch. The core defines the contract; a CLI renders
// them.
type Notifier interface {
	NewStep(step int, isRetry bool)
	Progress(current, max int)
	FinishTransaction(t depgraph.Transaction, err error)
	Warning(err error)
}

// Orchestrator holds an ordered batch of transactions and runs them
// sequentially, stopping at the first failure.
type Orchestrator struct {
	Transactions []depgraph.Transaction
	Context      Context
	Pull         PullContext
}

// Perform runs every transaction in order, notifying notifier of progress
// and outcome. It returns the first error encountered, having already
// notified the caller of that transaction's failure; subsequent
// transactions in the batch are never attempted.
func (o *Orchestrator) Perform(notifier Notifier) error {
	max := len(o.Transactions)
	for i, t := range o.Transactions {
		notifier.NewStep(i, false)
		notifier.Progress(i, max)

		err := Perform(o.Context, o.Pull, t, func(w *repository.Warning) {
			notifier.Warning(w)
		})
		notifier.FinishTransaction(t, err)
		if err != nil {
			return err
		}
	}
	notifier.Progress(max, max)
	return nil
}
