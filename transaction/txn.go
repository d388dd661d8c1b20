package transaction

import (
	"github.com/pingcap/errors"

	"github.com/docstore-dev/docstore/document"
	"github.com/docstore-dev/docstore/storage"
)

// Scope identifies the partition one invocation is bound to, together with
// the container's partition key field.
type Scope struct {
	Database          string
	Container         string
	Partition         string
	PartitionKeyField string
}

// LatchKey is the latch identity of the scope's partition.
func (s Scope) LatchKey() []byte {
	return storage.PartitionPrefix(s.Database, s.Container, s.Partition)
}

// DocTxn buffers the writes of one stored procedure invocation and provides
// the coherent view the running script reads from: committed state plus the
// buffer's pending effects, filtered to the invocation's partition
// (read-your-own-writes). The buffer is owned exclusively by the invocation
// and is never visible to concurrent readers.
type DocTxn struct {
	Reader storage.StorageReader
	Scope  Scope

	writes []storage.Modify
	// staged maps document ids to their pending state: the pending document,
	// or nil for a pending delete. stagedOrder preserves buffer order for
	// query results.
	staged      map[string]document.Document
	stagedOrder []string
}

func NewDocTxn(reader storage.StorageReader, scope Scope) *DocTxn {
	return &DocTxn{
		Reader: reader,
		Scope:  scope,
		staged: make(map[string]document.Document),
	}
}

// Writes returns the transaction buffer: every pending modification in the
// order the script issued them.
func (txn *DocTxn) Writes() []storage.Modify {
	return txn.writes
}

// GetDocument returns the document with the given id as the transaction sees
// it: the staged version if the buffer holds one, the committed version
// otherwise.
func (txn *DocTxn) GetDocument(id string) (document.Document, error) {
	if doc, ok := txn.staged[id]; ok {
		if doc == nil {
			return nil, &ErrDocumentNotFound{ID: id}
		}
		return doc.Clone(), nil
	}
	return txn.committed(id)
}

func (txn *DocTxn) committed(id string) (document.Document, error) {
	value, err := txn.Reader.Get(storage.DocKey(txn.Scope.Database, txn.Scope.Container, txn.Scope.Partition, id))
	if err != nil {
		return nil, errors.Trace(err)
	}
	if value == nil {
		return nil, &ErrDocumentNotFound{ID: id}
	}
	return document.Unmarshal(value)
}

// Query scans the partition with the given predicate over the transaction's
// coherent view: committed documents first (excluding ones the buffer
// overrides), then staged documents in buffer order.
func (txn *DocTxn) Query(filters []document.Filter) ([]document.Document, error) {
	results := []document.Document{}

	prefix := txn.Scope.LatchKey()
	iter := txn.Reader.Iter(prefix)
	defer iter.Close()
	for ; iter.Valid(); iter.Next() {
		id, err := storage.TrailingSegment(prefix, iter.Key())
		if err != nil {
			return nil, errors.Trace(err)
		}
		if _, overridden := txn.staged[id]; overridden {
			continue
		}
		value, err := iter.Value()
		if err != nil {
			return nil, errors.Trace(err)
		}
		doc, err := document.Unmarshal(value)
		if err != nil {
			return nil, errors.Trace(err)
		}
		if document.MatchAll(filters, doc) {
			results = append(results, doc)
		}
	}

	for _, id := range txn.stagedOrder {
		doc := txn.staged[id]
		if doc == nil {
			continue
		}
		if document.MatchAll(filters, doc) {
			results = append(results, doc.Clone())
		}
	}

	return results, nil
}

// CreateDocument validates and buffers a create. The document store is not
// touched; a conflict with committed state is only found at commit. A missing
// id is assigned. Returns the document as it will be committed.
func (txn *DocTxn) CreateDocument(doc document.Document) (document.Document, error) {
	doc = doc.Clone()
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	if err := txn.checkPartition(doc); err != nil {
		return nil, err
	}
	doc.AssignID()
	id := doc.ID()

	if staged, ok := txn.staged[id]; ok && staged != nil {
		return nil, &ErrDocumentExists{ID: id}
	}

	value, err := doc.Marshal()
	if err != nil {
		return nil, errors.Trace(err)
	}
	txn.append(id, doc, storage.Modify{Data: storage.Create{
		Key:   txn.docKey(id),
		Value: value,
	}})
	return doc.Clone(), nil
}

// ReplaceDocument validates and buffers a full replacement of an existing
// document.
func (txn *DocTxn) ReplaceDocument(doc document.Document) (document.Document, error) {
	doc = doc.Clone()
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	if err := txn.checkPartition(doc); err != nil {
		return nil, err
	}
	id := doc.ID()
	if id == "" {
		return nil, &document.ErrInvalidDocument{Reason: "replace requires an id"}
	}
	if _, err := txn.GetDocument(id); err != nil {
		return nil, err
	}

	value, err := doc.Marshal()
	if err != nil {
		return nil, errors.Trace(err)
	}

	// If this transaction created the document, the committed store has no
	// version to replace; fold the replacement into the buffered create.
	if txn.replaceBufferedCreate(id, doc, value) {
		return doc.Clone(), nil
	}

	txn.append(id, doc, storage.Modify{Data: storage.Replace{
		Key:   txn.docKey(id),
		Value: value,
	}})
	return doc.Clone(), nil
}

// DeleteDocument buffers the removal of an existing document.
func (txn *DocTxn) DeleteDocument(id string) error {
	if _, err := txn.GetDocument(id); err != nil {
		return err
	}

	// A document created in this same transaction is simply dropped from the
	// buffer; the store never sees either operation.
	if txn.dropBufferedCreate(id) {
		return nil
	}

	txn.append(id, nil, storage.Modify{Data: storage.Delete{
		Key: txn.docKey(id),
	}})
	return nil
}

func (txn *DocTxn) checkPartition(doc document.Document) error {
	actual := doc.StringField(txn.Scope.PartitionKeyField)
	if actual != txn.Scope.Partition {
		return &ErrCrossPartition{Declared: txn.Scope.Partition, Actual: actual}
	}
	return nil
}

func (txn *DocTxn) docKey(id string) []byte {
	return storage.DocKey(txn.Scope.Database, txn.Scope.Container, txn.Scope.Partition, id)
}

func (txn *DocTxn) append(id string, doc document.Document, m storage.Modify) {
	if _, ok := txn.staged[id]; !ok {
		txn.stagedOrder = append(txn.stagedOrder, id)
	}
	txn.staged[id] = doc
	txn.writes = append(txn.writes, m)
}

// replaceBufferedCreate rewrites a pending Create of id in place. Returns
// false if the buffer holds no create for id.
func (txn *DocTxn) replaceBufferedCreate(id string, doc document.Document, value []byte) bool {
	key := txn.docKey(id)
	for i := range txn.writes {
		if create, ok := txn.writes[i].Data.(storage.Create); ok && string(create.Key) == string(key) {
			txn.writes[i].Data = storage.Create{Key: create.Key, Value: value}
			txn.staged[id] = doc
			return true
		}
	}
	return false
}

// dropBufferedCreate removes a pending Create of id from the buffer. Returns
// false if the buffer holds no create for id.
func (txn *DocTxn) dropBufferedCreate(id string) bool {
	key := txn.docKey(id)
	for i := range txn.writes {
		if create, ok := txn.writes[i].Data.(storage.Create); ok && string(create.Key) == string(key) {
			txn.writes = append(txn.writes[:i], txn.writes[i+1:]...)
			txn.staged[id] = nil
			return true
		}
	}
	return false
}
