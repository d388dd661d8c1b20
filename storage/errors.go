package storage

import "fmt"

// ErrKeyExists is returned by Write when a Create in the batch targets a key
// which is already present. The batch is not applied.
type ErrKeyExists struct {
	Key []byte
}

func (e *ErrKeyExists) Error() string {
	return fmt.Sprintf("key already exists: %q", e.Key)
}

// ErrKeyNotFound is returned by Write when a Replace or Delete in the batch
// targets a missing key. The batch is not applied.
type ErrKeyNotFound struct {
	Key []byte
}

func (e *ErrKeyNotFound) Error() string {
	return fmt.Sprintf("key not found: %q", e.Key)
}
