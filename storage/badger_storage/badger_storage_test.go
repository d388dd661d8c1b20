package badger_storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docstore-dev/docstore/storage"
)

func newTestStorage(t *testing.T) *BadgerStorage {
	s := NewBadgerStorage(t.TempDir())
	require.NoError(t, s.Start())
	t.Cleanup(func() {
		require.NoError(t, s.Stop())
	})
	return s
}

func TestBadgerWriteAndGet(t *testing.T) {
	s := newTestStorage(t)
	require.NoError(t, s.Write([]storage.Modify{
		{Data: storage.Create{Key: []byte("k1"), Value: []byte("v1")}},
	}))

	reader, err := s.Reader()
	require.NoError(t, err)
	defer reader.Close()

	value, err := reader.Get([]byte("k1"))
	require.NoError(t, err)
	assert.Equal(t, []byte("v1"), value)

	value, err = reader.Get([]byte("missing"))
	require.NoError(t, err)
	assert.Nil(t, value)
}

func TestBadgerBatchIsAtomic(t *testing.T) {
	s := newTestStorage(t)
	require.NoError(t, s.Write([]storage.Modify{
		{Data: storage.Create{Key: []byte("existing"), Value: []byte("v")}},
	}))

	err := s.Write([]storage.Modify{
		{Data: storage.Create{Key: []byte("new"), Value: []byte("v")}},
		{Data: storage.Create{Key: []byte("existing"), Value: []byte("v2")}},
	})
	require.Error(t, err)
	assert.IsType(t, &storage.ErrKeyExists{}, err)

	reader, _ := s.Reader()
	defer reader.Close()
	value, err := reader.Get([]byte("new"))
	require.NoError(t, err)
	assert.Nil(t, value)
}

func TestBadgerBatchValidatesInOrder(t *testing.T) {
	s := newTestStorage(t)

	// Replace of a key created earlier in the same batch is legal.
	require.NoError(t, s.Write([]storage.Modify{
		{Data: storage.Create{Key: []byte("k"), Value: []byte("v1")}},
		{Data: storage.Replace{Key: []byte("k"), Value: []byte("v2")}},
	}))

	reader, _ := s.Reader()
	defer reader.Close()
	value, err := reader.Get([]byte("k"))
	require.NoError(t, err)
	assert.Equal(t, []byte("v2"), value)
}

func TestBadgerIterPrefix(t *testing.T) {
	s := newTestStorage(t)
	require.NoError(t, s.Write([]storage.Modify{
		{Data: storage.Put{Key: []byte("a/1"), Value: []byte("1")}},
		{Data: storage.Put{Key: []byte("a/2"), Value: []byte("2")}},
		{Data: storage.Put{Key: []byte("b/1"), Value: []byte("3")}},
	}))

	reader, _ := s.Reader()
	defer reader.Close()

	var keys []string
	iter := reader.Iter([]byte("a/"))
	defer iter.Close()
	for ; iter.Valid(); iter.Next() {
		keys = append(keys, string(iter.Key()))
	}
	assert.Equal(t, []string{"a/1", "a/2"}, keys)
}

func TestBadgerSnapshotReaderIgnoresLaterWrites(t *testing.T) {
	s := newTestStorage(t)
	reader, err := s.Reader()
	require.NoError(t, err)
	defer reader.Close()

	require.NoError(t, s.Write([]storage.Modify{
		{Data: storage.Create{Key: []byte("k"), Value: []byte("v")}},
	}))

	value, err := reader.Get([]byte("k"))
	require.NoError(t, err)
	assert.Nil(t, value)
}
