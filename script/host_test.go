package script

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docstore-dev/docstore/document"
	"github.com/docstore-dev/docstore/registry"
	"github.com/docstore-dev/docstore/storage"
	"github.com/docstore-dev/docstore/transaction"
)

func newTestTxn(t *testing.T, mem *storage.MemStorage) *transaction.DocTxn {
	reader, err := mem.Reader()
	require.NoError(t, err)
	t.Cleanup(reader.Close)
	return transaction.NewDocTxn(reader, transaction.Scope{
		Database:          "db",
		Container:         "users",
		Partition:         "1234",
		PartitionKeyField: "partitionKey",
	})
}

func run(t *testing.T, txn *transaction.DocTxn, body string, args ...interface{}) (interface{}, error) {
	t.Helper()
	host := NewHost(txn, time.Second)
	return host.Run(&registry.Definition{ID: "proc", Body: body}, args)
}

func TestCreateItemProcedure(t *testing.T) {
	txn := newTestTxn(t, storage.NewMemStorage())

	resp, err := run(t, txn, `
		function (doc) {
			createDocument(doc, function (err, created) {
				if (err) throw err;
				setResponseBody(created.id);
			});
		}
	`, map[string]interface{}{"name": "Alice", "partitionKey": "1234"})
	require.NoError(t, err)

	id, ok := resp.(string)
	require.True(t, ok)
	assert.NotEmpty(t, id)

	// The created document is in the buffer under that id.
	doc, err := txn.GetDocument(id)
	require.NoError(t, err)
	assert.Equal(t, "Alice", doc.StringField("name"))
	assert.Len(t, txn.Writes(), 1)
}

func TestNestedCallbacksRunInOrder(t *testing.T) {
	txn := newTestTxn(t, storage.NewMemStorage())

	resp, err := run(t, txn, `
		function () {
			createDocument({id: "a", partitionKey: "1234"}, function (err) {
				if (err) throw err;
				createDocument({id: "b", partitionKey: "1234"}, function (err) {
					if (err) throw err;
					queryDocuments(null, function (err, items) {
						if (err) throw err;
						setResponseBody(items.length);
					});
				});
			});
		}
	`)
	require.NoError(t, err)
	assert.Equal(t, int64(2), resp)
}

func TestThrowInCallbackFailsInvocation(t *testing.T) {
	txn := newTestTxn(t, storage.NewMemStorage())

	_, err := run(t, txn, `
		function () {
			createDocument({id: "a", partitionKey: "1234"}, function (err) {
				if (err) throw err;
				createDocument({id: "a", partitionKey: "1234"}, function (err) {
					if (err) throw err;
				});
			});
		}
	`)
	require.Error(t, err)
	assert.IsType(t, &Error{}, err)
}

func TestLastSetResponseWins(t *testing.T) {
	txn := newTestTxn(t, storage.NewMemStorage())

	resp, err := run(t, txn, `
		function () {
			setResponseBody("first");
			setResponseBody("second");
			if (getResponseBody() !== "second") throw "mismatch";
		}
	`)
	require.NoError(t, err)
	assert.Equal(t, "second", resp)
}

func TestExecutionBudget(t *testing.T) {
	txn := newTestTxn(t, storage.NewMemStorage())
	host := NewHost(txn, 50*time.Millisecond)

	_, err := host.Run(&registry.Definition{ID: "spin", Body: `function () { while (true) {} }`}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "execution budget exceeded")
}

func TestBodyMustBeFunction(t *testing.T) {
	txn := newTestTxn(t, storage.NewMemStorage())

	_, err := run(t, txn, `var x = 42;`)
	require.Error(t, err)
	assert.IsType(t, &Error{}, err)
}

func TestNamedFunctionProgramResolves(t *testing.T) {
	txn := newTestTxn(t, storage.NewMemStorage())
	host := NewHost(txn, time.Second)

	resp, err := host.Run(&registry.Definition{
		ID:   "greet",
		Body: `function greet(name) { setResponseBody("hello " + name); }`,
	}, []interface{}{"world"})
	require.NoError(t, err)
	assert.Equal(t, "hello world", resp)
}

func TestCrossPartitionIsFatalEvenIfCaught(t *testing.T) {
	txn := newTestTxn(t, storage.NewMemStorage())

	_, err := run(t, txn, `
		function () {
			try {
				createDocument({id: "x", partitionKey: "9999"});
			} catch (e) {
				// swallowed on purpose
			}
			setResponseBody("survived");
		}
	`)
	require.Error(t, err)
	assert.IsType(t, &transaction.ErrCrossPartition{}, err)
	assert.Empty(t, txn.Writes())
}

func TestOperationErrorDeliveredToCallback(t *testing.T) {
	txn := newTestTxn(t, storage.NewMemStorage())

	resp, err := run(t, txn, `
		function () {
			replaceDocument({id: "missing", partitionKey: "1234"}, function (err) {
				setResponseBody(err ? "got error" : "no error");
			});
		}
	`)
	require.NoError(t, err)
	assert.Equal(t, "got error", resp)
}

func TestQueryWithFilterObject(t *testing.T) {
	mem := storage.NewMemStorage()
	value, err := document.Document{"id": "a", "partitionKey": "1234", "name": "Carol"}.Marshal()
	require.NoError(t, err)
	require.NoError(t, mem.Write([]storage.Modify{{Data: storage.Create{
		Key:   storage.DocKey("db", "users", "1234", "a"),
		Value: value,
	}}}))
	txn := newTestTxn(t, mem)

	resp, err := run(t, txn, `
		function () {
			queryDocuments({field: "name", op: "=", value: "Carol"}, function (err, items) {
				if (err) throw err;
				setResponseBody(items.length === 1 ? items[0].name : "wrong count");
			});
		}
	`)
	require.NoError(t, err)
	assert.Equal(t, "Carol", resp)
}
