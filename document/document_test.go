package document

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAssignID(t *testing.T) {
	doc := Document{"name": "Alice"}
	doc.AssignID()
	assert.NotEmpty(t, doc.ID())

	// An explicit id is kept.
	doc = Document{"id": "fixed", "name": "Bob"}
	doc.AssignID()
	assert.Equal(t, "fixed", doc.ID())
}

func TestValidate(t *testing.T) {
	assert.NoError(t, Document{"name": "Alice"}.Validate())
	assert.NoError(t, Document{"id": "a", "nested": map[string]interface{}{"x": 1}}.Validate())

	var nilDoc Document
	assert.Error(t, nilDoc.Validate())
	assert.Error(t, Document{"id": 42}.Validate())
	assert.Error(t, Document{"id": ""}.Validate())
	assert.Error(t, Document{"ch": make(chan int)}.Validate())
}

func TestCloneIsDeep(t *testing.T) {
	doc := Document{
		"id":     "a",
		"nested": map[string]interface{}{"x": "old"},
		"list":   []interface{}{"one"},
	}
	clone := doc.Clone()
	clone["nested"].(map[string]interface{})["x"] = "new"
	clone["list"].([]interface{})[0] = "two"

	assert.Equal(t, "old", doc["nested"].(map[string]interface{})["x"])
	assert.Equal(t, "one", doc["list"].([]interface{})[0])
}

func TestMarshalRoundTrip(t *testing.T) {
	doc := Document{"id": "a", "name": "Alice", "age": float64(30)}
	data, err := doc.Marshal()
	require.NoError(t, err)
	decoded, err := Unmarshal(data)
	require.NoError(t, err)
	assert.Equal(t, doc, decoded)
}
