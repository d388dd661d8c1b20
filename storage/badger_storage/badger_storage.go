package badger_storage

import (
	"github.com/Connor1996/badger"
	"github.com/Connor1996/badger/y"
	"github.com/pingcap/errors"

	"github.com/docstore-dev/docstore/storage"
)

// BadgerStorage is a persistent Storage backed by badger. One batch is applied
// inside a single badger update transaction, so validation and application are
// atomic with respect to concurrent readers.
type BadgerStorage struct {
	dbPath string
	db     *badger.DB
}

func NewBadgerStorage(dbPath string) *BadgerStorage {
	return &BadgerStorage{dbPath: dbPath}
}

func (s *BadgerStorage) Start() error {
	opts := badger.DefaultOptions
	opts.Dir = s.dbPath
	opts.ValueDir = s.dbPath
	db, err := badger.Open(opts)
	if err != nil {
		return errors.WithStack(err)
	}
	s.db = db
	return nil
}

func (s *BadgerStorage) Stop() error {
	if s.db == nil {
		return nil
	}
	return errors.WithStack(s.db.Close())
}

func (s *BadgerStorage) Reader() (storage.StorageReader, error) {
	return &badgerReader{txn: s.db.NewTransaction(false)}, nil
}

func (s *BadgerStorage) Write(batch []storage.Modify) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		// Reads inside the update transaction observe the pending writes of
		// earlier modifications in the same batch, so in-order validation
		// comes for free.
		for _, m := range batch {
			switch data := m.Data.(type) {
			case storage.Create:
				_, err := txn.Get(data.Key)
				if err == nil {
					return &storage.ErrKeyExists{Key: data.Key}
				}
				if err != badger.ErrKeyNotFound {
					return err
				}
				if err := txn.Set(data.Key, data.Value); err != nil {
					return err
				}
			case storage.Replace:
				if _, err := txn.Get(data.Key); err != nil {
					if err == badger.ErrKeyNotFound {
						return &storage.ErrKeyNotFound{Key: data.Key}
					}
					return err
				}
				if err := txn.Set(data.Key, data.Value); err != nil {
					return err
				}
			case storage.Put:
				if err := txn.Set(data.Key, data.Value); err != nil {
					return err
				}
			case storage.Delete:
				if _, err := txn.Get(data.Key); err != nil {
					if err == badger.ErrKeyNotFound {
						return &storage.ErrKeyNotFound{Key: data.Key}
					}
					return err
				}
				if err := txn.Delete(data.Key); err != nil {
					return err
				}
			default:
				return errors.Errorf("unsupported modify %v", m.Data)
			}
		}
		return nil
	})
	switch err.(type) {
	case *storage.ErrKeyExists, *storage.ErrKeyNotFound:
		return err
	}
	return errors.WithStack(err)
}

type badgerReader struct {
	txn *badger.Txn
}

func (r *badgerReader) Get(key []byte) ([]byte, error) {
	item, err := r.txn.Get(key)
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return nil, nil
		}
		return nil, errors.WithStack(err)
	}
	value, err := item.ValueCopy(nil)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return value, nil
}

func (r *badgerReader) Iter(prefix []byte) storage.DocIterator {
	iter := r.txn.NewIterator(badger.DefaultIteratorOptions)
	iter.Seek(prefix)
	return &badgerIterator{iter: iter, prefix: prefix}
}

func (r *badgerReader) Close() {
	r.txn.Discard()
}

type badgerIterator struct {
	iter   *badger.Iterator
	prefix []byte
}

func (it *badgerIterator) Valid() bool {
	return it.iter.ValidForPrefix(it.prefix)
}

func (it *badgerIterator) Next() {
	it.iter.Next()
}

func (it *badgerIterator) Key() []byte {
	return y.SafeCopy(nil, it.iter.Item().Key())
}

func (it *badgerIterator) Value() ([]byte, error) {
	value, err := it.iter.Item().ValueCopy(nil)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return value, nil
}

func (it *badgerIterator) Close() {
	it.iter.Close()
}
