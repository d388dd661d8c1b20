package document

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/pingcap/errors"
)

// FieldID is the mandatory unique identifier field of every document.
const FieldID = "id"

// Document is a JSON-like mapping of field names to values: strings, numbers,
// booleans, null, and nested objects/arrays. Once committed a document is
// immutable except by full replacement.
type Document map[string]interface{}

// ErrInvalidDocument is returned when a document fails shape validation.
type ErrInvalidDocument struct {
	Reason string
}

func (e *ErrInvalidDocument) Error() string {
	return fmt.Sprintf("invalid document: %s", e.Reason)
}

// ID returns the document id, or "" if the document has none yet.
func (d Document) ID() string {
	id, _ := d[FieldID].(string)
	return id
}

// SetID assigns the document id.
func (d Document) SetID(id string) {
	d[FieldID] = id
}

// AssignID gives the document a fresh unique id if it does not carry one.
func (d Document) AssignID() {
	if d.ID() == "" {
		d.SetID(uuid.New().String())
	}
}

// StringField returns the named top level field as a string. Non-string and
// missing fields return "".
func (d Document) StringField(name string) string {
	s, _ := d[name].(string)
	return s
}

// Validate checks the document shape: the value must be JSON-marshalable and
// an `id` field, if present, must be a non-empty string.
func (d Document) Validate() error {
	if d == nil {
		return &ErrInvalidDocument{Reason: "document is null"}
	}
	if id, ok := d[FieldID]; ok {
		s, isString := id.(string)
		if !isString {
			return &ErrInvalidDocument{Reason: "id must be a string"}
		}
		if s == "" {
			return &ErrInvalidDocument{Reason: "id must not be empty"}
		}
	}
	if _, err := json.Marshal(d); err != nil {
		return &ErrInvalidDocument{Reason: err.Error()}
	}
	return nil
}

// Clone returns a deep copy. The copy shares no mutable state with the
// original, so callers can hand documents to scripts without aliasing the
// transaction buffer.
func (d Document) Clone() Document {
	if d == nil {
		return nil
	}
	return Document(cloneValue(map[string]interface{}(d)).(map[string]interface{}))
}

func cloneValue(v interface{}) interface{} {
	switch x := v.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(x))
		for k, e := range x {
			out[k] = cloneValue(e)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(x))
		for i, e := range x {
			out[i] = cloneValue(e)
		}
		return out
	default:
		return x
	}
}

// Marshal encodes the document body for storage.
func (d Document) Marshal() ([]byte, error) {
	data, err := json.Marshal(d)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return data, nil
}

// Unmarshal decodes a stored document body.
func Unmarshal(data []byte) (Document, error) {
	var d Document
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, errors.WithStack(err)
	}
	return d, nil
}
