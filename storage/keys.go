package storage

import (
	"github.com/pingcap/errors"

	"github.com/docstore-dev/docstore/util/codec"
)

// Key layout. Every key starts with a one byte namespace tag followed by one
// or more memcomparable-encoded string segments. Because segment encoding is
// self-delimiting, the concatenation of a tag and any leading subset of
// segments is a valid scan prefix.
//
//   'd' enc(db) enc(container) enc(partition) enc(id)  -> document body
//   'm' 'd' enc(db)                                    -> database meta
//   'm' 'c' enc(db) enc(container)                     -> container meta
//   'm' 'p' enc(db) enc(container) enc(id)             -> procedure definition

const (
	tagDoc  = byte('d')
	tagMeta = byte('m')

	metaDatabase  = byte('d')
	metaContainer = byte('c')
	metaProcedure = byte('p')
)

func appendSegments(key []byte, segments ...string) []byte {
	for _, s := range segments {
		key = append(key, codec.EncodeBytes([]byte(s))...)
	}
	return key
}

// DocKey returns the key of a single document.
func DocKey(db, container, partition, id string) []byte {
	return appendSegments([]byte{tagDoc}, db, container, partition, id)
}

// PartitionPrefix returns the scan prefix covering every document of one
// partition.
func PartitionPrefix(db, container, partition string) []byte {
	return appendSegments([]byte{tagDoc}, db, container, partition)
}

// ContainerPrefix returns the scan prefix covering every document of a
// container, all partitions included.
func ContainerPrefix(db, container string) []byte {
	return appendSegments([]byte{tagDoc}, db, container)
}

// DecodeDocKey splits a document key back into its segments.
func DecodeDocKey(key []byte) (db, container, partition, id string, err error) {
	if len(key) == 0 || key[0] != tagDoc {
		return "", "", "", "", errors.Errorf("not a document key: %q", key)
	}
	rest := key[1:]
	segments := make([]string, 0, 4)
	for len(rest) > 0 {
		var seg []byte
		rest, seg, err = codec.DecodeBytes(rest)
		if err != nil {
			return "", "", "", "", errors.Trace(err)
		}
		segments = append(segments, string(seg))
	}
	if len(segments) != 4 {
		return "", "", "", "", errors.Errorf("malformed document key: %q", key)
	}
	return segments[0], segments[1], segments[2], segments[3], nil
}

// DatabaseMetaKey returns the metadata key of a database.
func DatabaseMetaKey(db string) []byte {
	return appendSegments([]byte{tagMeta, metaDatabase}, db)
}

// DatabaseMetaPrefix covers the metadata of every database.
func DatabaseMetaPrefix() []byte {
	return []byte{tagMeta, metaDatabase}
}

// ContainerMetaKey returns the metadata key of a container.
func ContainerMetaKey(db, container string) []byte {
	return appendSegments([]byte{tagMeta, metaContainer}, db, container)
}

// ContainerMetaPrefix covers the metadata of every container.
func ContainerMetaPrefix() []byte {
	return []byte{tagMeta, metaContainer}
}

// ProcedureKey returns the metadata key of a stored procedure definition.
func ProcedureKey(db, container, id string) []byte {
	return appendSegments([]byte{tagMeta, metaProcedure}, db, container, id)
}

// ProcedurePrefix covers the procedure definitions of one container.
func ProcedurePrefix(db, container string) []byte {
	return appendSegments([]byte{tagMeta, metaProcedure}, db, container)
}

// AllProceduresPrefix covers every procedure definition in the store.
func AllProceduresPrefix() []byte {
	return []byte{tagMeta, metaProcedure}
}

// TrailingSegment decodes the last segment of key after prefix. It is used to
// recover a document id or procedure id from a scanned key without decoding
// the whole key.
func TrailingSegment(prefix, key []byte) (string, error) {
	if len(key) < len(prefix) {
		return "", errors.Errorf("key %q shorter than prefix %q", key, prefix)
	}
	_, seg, err := codec.DecodeBytes(key[len(prefix):])
	if err != nil {
		return "", errors.Trace(err)
	}
	return string(seg), nil
}
