package transaction

import (
	"github.com/ngaut/log"
	"github.com/pingcap/errors"

	"github.com/docstore-dev/docstore/storage"
	"github.com/docstore-dev/docstore/transaction/latches"
)

// State is the lifecycle of one invocation. Every invocation ends in exactly
// one of StateCommitted or StateRolledBack; no intermediate state is
// externally observable.
type State int

const (
	StateOpen State = iota
	StateCommitting
	StateCommitted
	StateRolledBack
)

func (s State) String() string {
	switch s {
	case StateOpen:
		return "Open"
	case StateCommitting:
		return "Committing"
	case StateCommitted:
		return "Committed"
	case StateRolledBack:
		return "RolledBack"
	}
	return "Unknown"
}

// Coordinator wraps script executions in atomic units. It owns the partition
// latch table; one Coordinator is shared by all invocations against a store.
type Coordinator struct {
	storage storage.Storage
	latches *latches.Latches
}

func NewCoordinator(s storage.Storage) *Coordinator {
	return &Coordinator{
		storage: s,
		latches: latches.NewLatches(),
	}
}

// Run executes fn inside a transaction scoped to one partition and resolves
// it to a single commit-or-rollback decision:
//
//   - fn returns nil: the buffer is applied to the store in one atomic batch
//     (StateCommitted), unless the store rejects it, in which case nothing is
//     applied (StateRolledBack, ErrStoreConflict).
//   - fn returns an error: the buffer is discarded (StateRolledBack) and the
//     error is returned unchanged.
//
// The partition latch is held from before fn starts until the terminal state
// is reached, so invocations on the same partition are serialized while
// different partitions proceed concurrently.
func (co *Coordinator) Run(scope Scope, fn func(*DocTxn) error) (State, error) {
	latchKey := scope.LatchKey()
	co.latches.WaitForLatch(latchKey)
	defer co.latches.ReleaseLatch(latchKey)

	reader, err := co.storage.Reader()
	if err != nil {
		return StateRolledBack, errors.Trace(err)
	}
	defer reader.Close()

	txn := NewDocTxn(reader, scope)
	if err := fn(txn); err != nil {
		log.Debugf("transaction on %s/%s partition %q rolled back: %v",
			scope.Database, scope.Container, scope.Partition, err)
		return StateRolledBack, err
	}

	// Committing: apply the whole buffer as one batch. The store validates
	// the batch against committed state and applies all of it or none of it.
	if err := co.storage.Write(txn.Writes()); err != nil {
		log.Debugf("transaction on %s/%s partition %q rejected by store: %v",
			scope.Database, scope.Container, scope.Partition, err)
		return StateRolledBack, &ErrStoreConflict{Cause: err}
	}

	log.Debugf("transaction on %s/%s partition %q committed, %d writes",
		scope.Database, scope.Container, scope.Partition, len(txn.Writes()))
	return StateCommitted, nil
}
