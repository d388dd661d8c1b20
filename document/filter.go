package document

import (
	"encoding/json"
	"fmt"
)

// Filter is one predicate clause over a top level document field. A query
// carries a conjunction of clauses; an empty conjunction matches every
// document. This is deliberately not a query language: the engine only needs
// a `scan(predicate)` collaborator, not a parser.
type Filter struct {
	Field string      `json:"field"`
	Op    string      `json:"op"`
	Value interface{} `json:"value"`
}

const (
	OpEq  = "="
	OpNeq = "!="
	OpLt  = "<"
	OpLte = "<="
	OpGt  = ">"
	OpGte = ">="
)

// Validate rejects unknown operators and empty field names.
func (f Filter) Validate() error {
	if f.Field == "" {
		return &ErrInvalidFilter{Reason: "filter field must not be empty"}
	}
	switch f.Op {
	case OpEq, OpNeq, OpLt, OpLte, OpGt, OpGte:
		return nil
	}
	return &ErrInvalidFilter{Reason: fmt.Sprintf("unknown operator %q", f.Op)}
}

type ErrInvalidFilter struct {
	Reason string
}

func (e *ErrInvalidFilter) Error() string {
	return fmt.Sprintf("invalid filter: %s", e.Reason)
}

// Match reports whether the document satisfies the clause. Missing fields
// never match. Values of different types only compare under = and !=.
func (f Filter) Match(d Document) bool {
	actual, ok := d[f.Field]
	if !ok {
		return false
	}
	switch f.Op {
	case OpEq:
		return valueEqual(actual, f.Value)
	case OpNeq:
		return !valueEqual(actual, f.Value)
	}

	cmp, comparable := valueCompare(actual, f.Value)
	if !comparable {
		return false
	}
	switch f.Op {
	case OpLt:
		return cmp < 0
	case OpLte:
		return cmp <= 0
	case OpGt:
		return cmp > 0
	case OpGte:
		return cmp >= 0
	}
	return false
}

// MatchAll reports whether the document satisfies every clause.
func MatchAll(filters []Filter, d Document) bool {
	for _, f := range filters {
		if !f.Match(d) {
			return false
		}
	}
	return true
}

func valueEqual(a, b interface{}) bool {
	if na, aok := asNumber(a); aok {
		nb, bok := asNumber(b)
		return bok && na == nb
	}
	switch x := a.(type) {
	case nil:
		return b == nil
	case string:
		s, ok := b.(string)
		return ok && x == s
	case bool:
		t, ok := b.(bool)
		return ok && x == t
	}
	// Objects and arrays never compare equal to a filter value.
	return false
}

func valueCompare(a, b interface{}) (int, bool) {
	if na, aok := asNumber(a); aok {
		nb, bok := asNumber(b)
		if !bok {
			return 0, false
		}
		switch {
		case na < nb:
			return -1, true
		case na > nb:
			return 1, true
		}
		return 0, true
	}
	sa, aok := a.(string)
	sb, bok := b.(string)
	if !aok || !bok {
		return 0, false
	}
	switch {
	case sa < sb:
		return -1, true
	case sa > sb:
		return 1, true
	}
	return 0, true
}

// asNumber normalizes the numeric types that JSON decoding and the script
// runtime produce.
func asNumber(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}
