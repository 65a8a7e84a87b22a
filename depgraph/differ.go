package depgraph

import "github.com/raven-os/libnest/identifier"

// TransactionKind discriminates the four transaction shapes the
// differ/repository can emit.
type TransactionKind int

const (
	InstallTxn TransactionKind = iota
	RemoveTxn
	UpgradeTxn
	PullTxn
)

// Transaction is a concrete unit of work the transaction engine can
// execute without further planning: install/remove one package, upgrade
// one to another, or pull one repository.
type Transaction struct {
	Kind TransactionKind

	// PackageID is set for Install and Remove.
	PackageID identifier.PackageID

	// OldID, NewID are set for Upgrade.
	OldID identifier.PackageID
	NewID identifier.PackageID

	// Repository is set for Pull.
	Repository identifier.RepositoryName
}

// Diff walks left and right from their respective roots in lockstep,
// emitting a post-order transaction list: a node present only in left
// emits Remove after its children, a node present only in right emits
// Install after its children, a node present in both emits nothing unless
// it is a package whose id differs between the two graphs, in which case it
// emits an adjacent Remove(left)+Install(right) pair after its children. A
// shared tainted-id set prevents revisiting a node reached through more
// than one path.
func Diff(left, right *Graph) []Transaction {
	tainted := make(map[NodeID]bool)
	var out []Transaction
	diffNode(left, right, RootID, tainted, &out)
	return out
}

func diffNode(left, right *Graph, id NodeID, tainted map[NodeID]bool, out *[]Transaction) {
	if tainted[id] {
		return
	}
	tainted[id] = true

	leftNode, inLeft := left.Node(id)
	rightNode, inRight := right.Node(id)

	switch {
	case inLeft && !inRight:
		recurseInto(left, leftNode, tainted, out, left, right)
		if !leftNode.Kind.IsGroup {
			*out = append(*out, Transaction{Kind: RemoveTxn, PackageID: leftNode.Kind.PackageID})
		}
	case !inLeft && inRight:
		recurseInto(right, rightNode, tainted, out, left, right)
		if !rightNode.Kind.IsGroup {
			*out = append(*out, Transaction{Kind: InstallTxn, PackageID: rightNode.Kind.PackageID})
		}
	case inLeft && inRight:
		recurseInto(left, leftNode, tainted, out, left, right)
		recurseInto(right, rightNode, tainted, out, left, right)
		// The solver narrows a node's version in place, so the same id can
		// name two different package versions across a clone boundary.
		// Emitting the pair adjacently lets CoalesceUpgrades fold it.
		if !leftNode.Kind.IsGroup && !rightNode.Kind.IsGroup &&
			leftNode.Kind.PackageID.String() != rightNode.Kind.PackageID.String() {
			*out = append(*out,
				Transaction{Kind: RemoveTxn, PackageID: leftNode.Kind.PackageID},
				Transaction{Kind: InstallTxn, PackageID: rightNode.Kind.PackageID})
		}
	}
}

func recurseInto(owner *Graph, node Node, tainted map[NodeID]bool, out *[]Transaction, left, right *Graph) {
	for _, rid := range node.Requirements {
		req, ok := owner.Requirement(rid)
		if !ok || req.Fulfilling == nil {
			continue
		}
		diffNode(left, right, *req.Fulfilling, tainted, out)
	}
}

// CoalesceUpgrades merges adjacent Remove(old)+Install(new) pairs sharing
// a full name into a single Upgrade transaction; libnest applies it to
// every Diff result before running the transactions.
func CoalesceUpgrades(txns []Transaction) []Transaction {
	out := make([]Transaction, 0, len(txns))
	for i := 0; i < len(txns); i++ {
		if txns[i].Kind == RemoveTxn && i+1 < len(txns) && txns[i+1].Kind == InstallTxn &&
			txns[i].PackageID.FullName() == txns[i+1].PackageID.FullName() {
			out = append(out, Transaction{Kind: UpgradeTxn, OldID: txns[i].PackageID, NewID: txns[i+1].PackageID})
			i++
			continue
		}
		out = append(out, txns[i])
	}
	return out
}
