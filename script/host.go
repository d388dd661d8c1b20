package script

import (
	"fmt"
	"time"

	"github.com/dop251/goja"

	"github.com/docstore-dev/docstore/document"
	"github.com/docstore-dev/docstore/registry"
	"github.com/docstore-dev/docstore/transaction"
)

// Error is an uncaught failure inside a stored procedure: a thrown value, a
// body which is not a function, or an exceeded execution budget. It always
// causes the invocation's transaction to roll back.
type Error struct {
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("script runtime error: %s", e.Message)
}

// Host executes one stored procedure body in isolation. The script sees four
// container primitives — createDocument, replaceDocument, deleteDocument,
// queryDocuments — all asynchronous with callback completion, plus
// setResponseBody/getResponseBody. Every primitive routes through the
// invocation's DocTxn, so the script reads its own pending writes and the
// whole chain resolves to a single commit/rollback decision.
//
// Callbacks are sequenced on a continuation queue local to the invocation:
// a primitive stages its effect immediately but runs the completion callback
// only after the current script step returns. Callbacks may issue further
// primitives, nesting arbitrarily, yet no two steps of the same invocation
// ever run concurrently.
type Host struct {
	vm    *goja.Runtime
	txn   *transaction.DocTxn
	queue []continuation

	budget   time.Duration
	response interface{}
	hasResp  bool
	// fatal holds an engine-level error (e.g. cross-partition access) which
	// fails the invocation even if the script swallows the thrown exception.
	fatal error
}

type continuation func() error

// NewHost creates a host bound to one transaction. budget is the wall-clock
// execution limit; zero means no limit.
func NewHost(txn *transaction.DocTxn, budget time.Duration) *Host {
	h := &Host{
		vm:     goja.New(),
		txn:    txn,
		budget: budget,
	}
	h.vm.Set("createDocument", h.createDocument)
	h.vm.Set("replaceDocument", h.replaceDocument)
	h.vm.Set("deleteDocument", h.deleteDocument)
	h.vm.Set("queryDocuments", h.queryDocuments)
	h.vm.Set("setResponseBody", h.setResponseBody)
	h.vm.Set("getResponseBody", h.getResponseBody)
	return h
}

// ResponseBody returns the script-set response body, or nil if the script
// never set one.
func (h *Host) ResponseBody() interface{} {
	return h.response
}

// Run resolves the procedure body to a function, invokes it with args, and
// drains the continuation queue until the invocation settles. It returns the
// script-set response body, or an error if the script (or any of its
// callbacks) threw, exceeded its budget, or touched a foreign partition.
func (h *Host) Run(def *registry.Definition, args []interface{}) (interface{}, error) {
	if h.budget > 0 {
		timer := time.AfterFunc(h.budget, func() {
			h.vm.Interrupt("execution budget exceeded")
		})
		defer timer.Stop()
	}

	fn, err := h.resolve(def)
	if err != nil {
		return nil, err
	}

	callArgs := make([]goja.Value, len(args))
	for i, a := range args {
		callArgs[i] = h.vm.ToValue(a)
	}

	if _, err := fn(goja.Undefined(), callArgs...); err != nil {
		return nil, h.classify(err)
	}

	// Drain nested continuations. A callback may enqueue further work; any
	// uncaught throw short-circuits the rest of the chain.
	for len(h.queue) > 0 {
		next := h.queue[0]
		h.queue = h.queue[1:]
		if err := next(); err != nil {
			return nil, h.classify(err)
		}
	}

	if h.fatal != nil {
		return nil, h.fatal
	}
	return h.response, nil
}

// resolve turns the stored body into a callable. A body which is a single
// function literal is used directly; otherwise the body is evaluated as a
// program expected to declare a function named after the procedure id.
func (h *Host) resolve(def *registry.Definition) (goja.Callable, error) {
	if v, err := h.vm.RunString("(" + def.Body + ")"); err == nil {
		if fn, ok := goja.AssertFunction(v); ok {
			return fn, nil
		}
	}
	if _, err := h.vm.RunString(def.Body); err != nil {
		return nil, h.classify(err)
	}
	if v := h.vm.GlobalObject().Get(def.ID); v != nil {
		if fn, ok := goja.AssertFunction(v); ok {
			return fn, nil
		}
	}
	return nil, &Error{Message: fmt.Sprintf("procedure %q does not evaluate to a function", def.ID)}
}

func (h *Host) classify(err error) error {
	if h.fatal != nil {
		return h.fatal
	}
	switch x := err.(type) {
	case *goja.InterruptedError:
		return &Error{Message: "execution budget exceeded"}
	case *goja.Exception:
		return &Error{Message: x.Value().String()}
	}
	return &Error{Message: err.Error()}
}

// fail aborts the current script step by throwing err into the runtime. For
// engine-level violations the error is also pinned so a catching script
// cannot recover the invocation.
func (h *Host) fail(err error) {
	if _, ok := err.(*transaction.ErrCrossPartition); ok {
		h.fatal = err
	}
	panic(h.vm.NewGoError(err))
}

// complete schedules cb(err, result) on the continuation queue. Without a
// callback a failed operation throws instead.
func (h *Host) complete(cbVal goja.Value, opErr error, result goja.Value) {
	cb, hasCb := goja.AssertFunction(cbVal)
	if !hasCb {
		if opErr != nil {
			h.fail(opErr)
		}
		return
	}

	errVal := goja.Value(goja.Null())
	if opErr != nil {
		errVal = h.vm.NewGoError(opErr)
	}
	if result == nil {
		result = goja.Null()
	}
	h.queue = append(h.queue, func() error {
		_, err := cb(goja.Undefined(), errVal, result)
		return err
	})
}

func (h *Host) exportDocument(v goja.Value) (document.Document, error) {
	exported := v.Export()
	m, ok := exported.(map[string]interface{})
	if !ok {
		return nil, &document.ErrInvalidDocument{Reason: "document must be an object"}
	}
	return document.Document(m), nil
}

// createDocument(doc, callback(err, created))
func (h *Host) createDocument(call goja.FunctionCall) goja.Value {
	doc, err := h.exportDocument(call.Argument(0))
	if err != nil {
		h.fail(err)
	}
	created, err := h.txn.CreateDocument(doc)
	if err != nil {
		if _, ok := err.(*transaction.ErrCrossPartition); ok {
			h.fail(err)
		}
		h.complete(call.Argument(1), err, nil)
		return h.vm.ToValue(false)
	}
	h.complete(call.Argument(1), nil, h.vm.ToValue(map[string]interface{}(created)))
	return h.vm.ToValue(true)
}

// replaceDocument(doc, callback(err, replaced))
func (h *Host) replaceDocument(call goja.FunctionCall) goja.Value {
	doc, err := h.exportDocument(call.Argument(0))
	if err != nil {
		h.fail(err)
	}
	replaced, err := h.txn.ReplaceDocument(doc)
	if err != nil {
		if _, ok := err.(*transaction.ErrCrossPartition); ok {
			h.fail(err)
		}
		h.complete(call.Argument(1), err, nil)
		return h.vm.ToValue(false)
	}
	h.complete(call.Argument(1), nil, h.vm.ToValue(map[string]interface{}(replaced)))
	return h.vm.ToValue(true)
}

// deleteDocument(id, callback(err))
func (h *Host) deleteDocument(call goja.FunctionCall) goja.Value {
	id := call.Argument(0).String()
	if err := h.txn.DeleteDocument(id); err != nil {
		h.complete(call.Argument(1), err, nil)
		return h.vm.ToValue(false)
	}
	h.complete(call.Argument(1), nil, nil)
	return h.vm.ToValue(true)
}

// queryDocuments(filter, callback(err, items)). filter is a clause object
// {field, op, value}, an array of clauses, or null for all documents of the
// partition.
func (h *Host) queryDocuments(call goja.FunctionCall) goja.Value {
	filters, err := h.exportFilters(call.Argument(0))
	if err != nil {
		h.fail(err)
	}
	docs, err := h.txn.Query(filters)
	if err != nil {
		h.complete(call.Argument(1), err, nil)
		return h.vm.ToValue(false)
	}
	items := make([]interface{}, len(docs))
	for i, doc := range docs {
		items[i] = map[string]interface{}(doc)
	}
	h.complete(call.Argument(1), nil, h.vm.ToValue(items))
	return h.vm.ToValue(true)
}

func (h *Host) exportFilters(v goja.Value) ([]document.Filter, error) {
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return nil, nil
	}
	exported := v.Export()
	switch x := exported.(type) {
	case map[string]interface{}:
		f, err := filterFromMap(x)
		if err != nil {
			return nil, err
		}
		return []document.Filter{f}, nil
	case []interface{}:
		filters := make([]document.Filter, 0, len(x))
		for _, e := range x {
			m, ok := e.(map[string]interface{})
			if !ok {
				return nil, &document.ErrInvalidFilter{Reason: "filter array elements must be objects"}
			}
			f, err := filterFromMap(m)
			if err != nil {
				return nil, err
			}
			filters = append(filters, f)
		}
		return filters, nil
	}
	return nil, &document.ErrInvalidFilter{Reason: "filter must be an object or an array of objects"}
}

func filterFromMap(m map[string]interface{}) (document.Filter, error) {
	field, _ := m["field"].(string)
	op, _ := m["op"].(string)
	f := document.Filter{Field: field, Op: op, Value: m["value"]}
	if err := f.Validate(); err != nil {
		return document.Filter{}, err
	}
	return f, nil
}

// setResponseBody(value). May be called repeatedly; the last call wins.
func (h *Host) setResponseBody(call goja.FunctionCall) goja.Value {
	h.response = call.Argument(0).Export()
	h.hasResp = true
	return goja.Undefined()
}

// getResponseBody() returns the current response body.
func (h *Host) getResponseBody(call goja.FunctionCall) goja.Value {
	if !h.hasResp {
		return goja.Null()
	}
	return h.vm.ToValue(h.response)
}
