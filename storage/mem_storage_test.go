package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemStorageWriteAndGet(t *testing.T) {
	s := NewMemStorage()
	err := s.Write([]Modify{
		{Data: Create{Key: []byte("k1"), Value: []byte("v1")}},
		{Data: Create{Key: []byte("k2"), Value: []byte("v2")}},
	})
	require.NoError(t, err)

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

func TestMemStorageBatchIsAtomic(t *testing.T) {
	s := NewMemStorage()
	require.NoError(t, s.Write([]Modify{
		{Data: Create{Key: []byte("existing"), Value: []byte("v")}},
	}))

	// The second create collides, so the first create must not apply either.
	err := s.Write([]Modify{
		{Data: Create{Key: []byte("new"), Value: []byte("v")}},
		{Data: Create{Key: []byte("existing"), Value: []byte("v2")}},
	})
	require.Error(t, err)
	assert.IsType(t, &ErrKeyExists{}, err)

	reader, _ := s.Reader()
	defer reader.Close()
	value, err := reader.Get([]byte("new"))
	require.NoError(t, err)
	assert.Nil(t, value)
	value, err = reader.Get([]byte("existing"))
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), value)
}

func TestMemStorageReplaceAndDeleteRequireKey(t *testing.T) {
	s := NewMemStorage()

	err := s.Write([]Modify{{Data: Replace{Key: []byte("k"), Value: []byte("v")}}})
	assert.IsType(t, &ErrKeyNotFound{}, err)

	err = s.Write([]Modify{{Data: Delete{Key: []byte("k")}}})
	assert.IsType(t, &ErrKeyNotFound{}, err)

	// A batch may create a key and mutate it in the same breath.
	err = s.Write([]Modify{
		{Data: Create{Key: []byte("k"), Value: []byte("v1")}},
		{Data: Replace{Key: []byte("k"), Value: []byte("v2")}},
	})
	require.NoError(t, err)

	reader, _ := s.Reader()
	defer reader.Close()
	value, _ := reader.Get([]byte("k"))
	assert.Equal(t, []byte("v2"), value)
}

func TestMemStorageDeleteThenCreate(t *testing.T) {
	s := NewMemStorage()
	require.NoError(t, s.Write([]Modify{{Data: Create{Key: []byte("k"), Value: []byte("old")}}}))
	require.NoError(t, s.Write([]Modify{
		{Data: Delete{Key: []byte("k")}},
		{Data: Create{Key: []byte("k"), Value: []byte("new")}},
	}))

	reader, _ := s.Reader()
	defer reader.Close()
	value, _ := reader.Get([]byte("k"))
	assert.Equal(t, []byte("new"), value)
}

func TestMemStorageIterPrefix(t *testing.T) {
	s := NewMemStorage()
	require.NoError(t, s.Write([]Modify{
		{Data: Put{Key: []byte("a/1"), Value: []byte("1")}},
		{Data: Put{Key: []byte("a/2"), Value: []byte("2")}},
		{Data: Put{Key: []byte("b/1"), Value: []byte("3")}},
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

	// Scans are restartable.
	iter2 := reader.Iter([]byte("a/"))
	defer iter2.Close()
	assert.True(t, iter2.Valid())
	assert.Equal(t, "a/1", string(iter2.Key()))
}
