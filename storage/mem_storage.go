package storage

import (
	"bytes"
	"sync"

	"github.com/petar/GoLLRB/llrb"
	"github.com/pingcap/errors"
)

// MemStorage is a Storage backed by an in-memory LLRB tree. Data is not
// written to disk. It is used for tests and for `engine = "memory"`
// deployments.
type MemStorage struct {
	mu   sync.RWMutex
	tree *llrb.LLRB
}

func NewMemStorage() *MemStorage {
	return &MemStorage{
		tree: llrb.New(),
	}
}

func (s *MemStorage) Start() error {
	return nil
}

func (s *MemStorage) Stop() error {
	return nil
}

func (s *MemStorage) Reader() (StorageReader, error) {
	return &memReader{inner: s}, nil
}

// Write validates the whole batch before touching the tree, so a rejected
// batch leaves no partial state. Validation runs in batch order against an
// overlay of the effects of earlier modifications in the same batch.
func (s *MemStorage) Write(batch []Modify) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	overlay := make(map[string]bool, len(batch))
	exists := func(key []byte) bool {
		if present, ok := overlay[string(key)]; ok {
			return present
		}
		return s.tree.Has(memItem{key: key})
	}

	for _, m := range batch {
		switch data := m.Data.(type) {
		case Create:
			if exists(data.Key) {
				return &ErrKeyExists{Key: data.Key}
			}
			overlay[string(data.Key)] = true
		case Replace:
			if !exists(data.Key) {
				return &ErrKeyNotFound{Key: data.Key}
			}
			overlay[string(data.Key)] = true
		case Put:
			overlay[string(data.Key)] = true
		case Delete:
			if !exists(data.Key) {
				return &ErrKeyNotFound{Key: data.Key}
			}
			overlay[string(data.Key)] = false
		default:
			return errors.Errorf("unsupported modify %v", m.Data)
		}
	}

	for _, m := range batch {
		switch data := m.Data.(type) {
		case Create:
			s.tree.ReplaceOrInsert(memItem{key: data.Key, value: data.Value})
		case Replace:
			s.tree.ReplaceOrInsert(memItem{key: data.Key, value: data.Value})
		case Put:
			s.tree.ReplaceOrInsert(memItem{key: data.Key, value: data.Value})
		case Delete:
			s.tree.Delete(memItem{key: data.Key})
		}
	}

	return nil
}

// Len returns the number of stored keys, for tests.
func (s *MemStorage) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tree.Len()
}

type memItem struct {
	key   []byte
	value []byte
}

func (it memItem) Less(than llrb.Item) bool {
	other := than.(memItem)
	return bytes.Compare(it.key, other.key) < 0
}

type memReader struct {
	inner *MemStorage
}

func (r *memReader) Get(key []byte) ([]byte, error) {
	r.inner.mu.RLock()
	defer r.inner.mu.RUnlock()
	result := r.inner.tree.Get(memItem{key: key})
	if result == nil {
		return nil, nil
	}
	return result.(memItem).value, nil
}

func (r *memReader) Iter(prefix []byte) DocIterator {
	r.inner.mu.RLock()
	defer r.inner.mu.RUnlock()

	// Snapshot the matching range so iteration does not hold the lock.
	var items []memItem
	r.inner.tree.AscendGreaterOrEqual(memItem{key: prefix}, func(i llrb.Item) bool {
		item := i.(memItem)
		if !bytes.HasPrefix(item.key, prefix) {
			return false
		}
		items = append(items, item)
		return true
	})
	return &memIterator{items: items}
}

func (r *memReader) Close() {
}

type memIterator struct {
	items []memItem
	pos   int
}

func (it *memIterator) Valid() bool {
	return it.pos < len(it.items)
}

func (it *memIterator) Next() {
	it.pos++
}

func (it *memIterator) Key() []byte {
	return it.items[it.pos].key
}

func (it *memIterator) Value() ([]byte, error) {
	return it.items[it.pos].value, nil
}

func (it *memIterator) Close() {
}
