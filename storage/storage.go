package storage

// Storage represents the committed document store. Modifications are applied
// in batches; one batch is all-or-nothing. A batch is validated in order
// against the state it would produce: a Create of an existing key, or a
// Replace/Delete of a missing key, rejects the whole batch and leaves the
// store untouched. Readers opened before a batch is applied never observe any
// of its effects.
type Storage interface {
	Start() error
	Stop() error
	Reader() (StorageReader, error)
	Write(batch []Modify) error
}

// StorageReader is a coherent read-only view of committed state. Get returns
// (nil, nil) for a missing key. Iter returns an iterator positioned at the
// first key with the given prefix; the iterator is only valid while it stays
// within the prefix.
type StorageReader interface {
	Get(key []byte) ([]byte, error)
	Iter(prefix []byte) DocIterator
	Close()
}

// DocIterator iterates keys sharing one prefix in ascending key order. Calling
// Iter again with the same prefix restarts the scan.
type DocIterator interface {
	Valid() bool
	Next()
	Key() []byte
	Value() ([]byte, error)
	Close()
}
