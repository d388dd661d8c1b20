package storage

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDocKeyRoundTrip(t *testing.T) {
	key := DocKey("db", "users", "1234", "doc-1")
	db, ctn, partition, id, err := DecodeDocKey(key)
	require.NoError(t, err)
	assert.Equal(t, "db", db)
	assert.Equal(t, "users", ctn)
	assert.Equal(t, "1234", partition)
	assert.Equal(t, "doc-1", id)
}

func TestPartitionPrefixCoversOwnDocsOnly(t *testing.T) {
	prefix := PartitionPrefix("db", "users", "1234")
	inside := DocKey("db", "users", "1234", "doc-1")
	otherPartition := DocKey("db", "users", "12345", "doc-1")
	otherContainer := DocKey("db", "orders", "1234", "doc-1")

	assert.True(t, bytes.HasPrefix(inside, prefix))
	assert.False(t, bytes.HasPrefix(otherPartition, prefix))
	assert.False(t, bytes.HasPrefix(otherContainer, prefix))
}

func TestContainerPrefixCoversAllPartitions(t *testing.T) {
	prefix := ContainerPrefix("db", "users")
	assert.True(t, bytes.HasPrefix(DocKey("db", "users", "1", "a"), prefix))
	assert.True(t, bytes.HasPrefix(DocKey("db", "users", "2", "b"), prefix))
	assert.False(t, bytes.HasPrefix(DocKey("db", "orders", "1", "a"), prefix))
}

func TestTrailingSegment(t *testing.T) {
	prefix := PartitionPrefix("db", "users", "1234")
	key := DocKey("db", "users", "1234", "doc-7")
	id, err := TrailingSegment(prefix, key)
	require.NoError(t, err)
	assert.Equal(t, "doc-7", id)
}

func TestMetaKeysDisjointFromDocKeys(t *testing.T) {
	doc := DocKey("db", "users", "1234", "doc-1")
	assert.False(t, bytes.HasPrefix(doc, DatabaseMetaPrefix()))
	assert.False(t, bytes.HasPrefix(doc, ContainerMetaPrefix()))
	assert.False(t, bytes.HasPrefix(doc, AllProceduresPrefix()))
}

func TestDecodeDocKeyRejectsMetaKey(t *testing.T) {
	_, _, _, _, err := DecodeDocKey(DatabaseMetaKey("db"))
	assert.Error(t, err)
}
