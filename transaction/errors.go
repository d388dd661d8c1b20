package transaction

import (
	"fmt"
)

// ErrDocumentExists is returned when a create targets an id which is already
// staged in the same transaction. A conflict with committed state is only
// detected at commit time and surfaces as ErrStoreConflict.
type ErrDocumentExists struct {
	ID string
}

func (e *ErrDocumentExists) Error() string {
	return fmt.Sprintf("document already exists: %q", e.ID)
}

// ErrDocumentNotFound is returned by reads, replaces, and deletes targeting a
// document which neither the buffer nor committed state contains.
type ErrDocumentNotFound struct {
	ID string
}

func (e *ErrDocumentNotFound) Error() string {
	return fmt.Sprintf("document not found: %q", e.ID)
}

// ErrCrossPartition is returned when a script operation targets a partition
// other than the one the invocation was declared against. It is fatal to the
// invocation: the transaction rolls back.
type ErrCrossPartition struct {
	Declared string
	Actual   string
}

func (e *ErrCrossPartition) Error() string {
	return fmt.Sprintf("cross-partition access: invocation is scoped to partition %q, document targets %q", e.Declared, e.Actual)
}

// ErrStoreConflict is returned when the store rejects the transaction's batch
// at commit time, e.g. a buffered create collides with a committed document.
// The transaction rolls back; none of its writes are applied.
type ErrStoreConflict struct {
	Cause error
}

func (e *ErrStoreConflict) Error() string {
	return fmt.Sprintf("store rejected commit: %s", e.Cause)
}
