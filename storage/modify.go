package storage

// Create inserts a new key. Applying a batch containing a Create for a key
// which already exists fails the whole batch.
type Create struct {
	Key   []byte
	Value []byte
}

// Replace overwrites an existing key. Applying a batch containing a Replace
// for a missing key fails the whole batch.
type Replace struct {
	Key   []byte
	Value []byte
}

// Put sets a key unconditionally. It is used for metadata (catalog and
// procedure definitions), never for documents.
type Put struct {
	Key   []byte
	Value []byte
}

// Delete removes an existing key. Applying a batch containing a Delete for a
// missing key fails the whole batch.
type Delete struct {
	Key []byte
}

// Modify is a single modification to the underlying store. Data must be one of
// Create, Replace, Put, or Delete.
type Modify struct {
	Data interface{}
}

func (m *Modify) Key() []byte {
	switch d := m.Data.(type) {
	case Create:
		return d.Key
	case Replace:
		return d.Key
	case Put:
		return d.Key
	case Delete:
		return d.Key
	}
	return nil
}

func (m *Modify) Value() []byte {
	switch d := m.Data.(type) {
	case Create:
		return d.Value
	case Replace:
		return d.Value
	case Put:
		return d.Value
	}
	return nil
}
