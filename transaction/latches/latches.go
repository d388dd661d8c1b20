package latches

import (
	"sync"
)

// Latching serializes stored procedure invocations which target the same
// partition. A latch is a per-partition lock, keyed by the encoded
// (database, container, partition) prefix. Invocations on different
// partitions never contend; two invocations on the same partition run one
// after the other, each holding the latch from Open through its terminal
// state.
//
// Latching is implemented with a single map from latch keys to a Go
// WaitGroup. Access to the map is guarded by a mutex so acquiring and
// releasing are atomic. Entries are removed on release, so the map only ever
// holds in-flight partitions.

type Latches struct {
	// Before running a transaction on a partition, the thread must hold the
	// latch for that partition. latchMap maps each held latch key to a
	// WaitGroup; threads finding a partition latched wait on that WaitGroup.
	latchMap   map[string]*sync.WaitGroup
	latchGuard sync.Mutex
}

// NewLatches creates a new Latches object. There should be one, shared
// between all invocations against one store.
func NewLatches() *Latches {
	return &Latches{
		latchMap: make(map[string]*sync.WaitGroup),
	}
}

// AcquireLatch tries to latch the given partition key. On success nil is
// returned. If the partition is already latched, the holder's WaitGroup is
// returned for the caller to wait on.
func (l *Latches) AcquireLatch(key []byte) *sync.WaitGroup {
	l.latchGuard.Lock()
	defer l.latchGuard.Unlock()

	if wg, ok := l.latchMap[string(key)]; ok {
		return wg
	}

	wg := new(sync.WaitGroup)
	wg.Add(1)
	l.latchMap[string(key)] = wg
	return nil
}

// ReleaseLatch releases the latch for key and wakes any waiting threads. The
// entry is deleted, so the map does not grow with the partition key space.
func (l *Latches) ReleaseLatch(key []byte) {
	l.latchGuard.Lock()
	defer l.latchGuard.Unlock()

	wg := l.latchMap[string(key)]
	delete(l.latchMap, string(key))
	wg.Done()
}

// WaitForLatch latches key, waiting for the current holder if there is one.
// It may block for an unbounded length of time.
func (l *Latches) WaitForLatch(key []byte) {
	for {
		wg := l.AcquireLatch(key)
		if wg == nil {
			return
		}
		wg.Wait()
	}
}
