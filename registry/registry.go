package registry

import (
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/pingcap/errors"

	"github.com/docstore-dev/docstore/storage"
)

// Definition is a named, server-resident stored procedure. Definitions are
// immutable after creation; re-registering the same id replaces the old
// definition wholesale.
type Definition struct {
	ID   string `json:"id"`
	Body string `json:"body"`
}

type ErrProcedureNotFound struct {
	ID string
}

func (e *ErrProcedureNotFound) Error() string {
	return fmt.Sprintf("stored procedure not found: %q", e.ID)
}

// Registry stores procedure definitions per container. Registrations are
// serialized under a mutex; Resolve reads an immutable snapshot published via
// atomic.Value, so lookups on the execution path take no lock.
type Registry struct {
	mu       sync.Mutex
	storage  storage.Storage
	snapshot atomic.Value // map[containerKey]map[string]*Definition
}

type containerKey struct {
	Database  string
	Container string
}

func NewRegistry(s storage.Storage) *Registry {
	r := &Registry{storage: s}
	r.snapshot.Store(map[containerKey]map[string]*Definition{})
	return r
}

// Load rebuilds the registry from storage metadata. Called once at startup.
func (r *Registry) Load() error {
	reader, err := r.storage.Reader()
	if err != nil {
		return errors.Trace(err)
	}
	defer reader.Close()

	procs := map[containerKey]map[string]*Definition{}
	iter := reader.Iter(storage.AllProceduresPrefix())
	defer iter.Close()
	for ; iter.Valid(); iter.Next() {
		value, err := iter.Value()
		if err != nil {
			return errors.Trace(err)
		}
		var stored storedDefinition
		if err := json.Unmarshal(value, &stored); err != nil {
			return errors.WithStack(err)
		}
		key := containerKey{Database: stored.Database, Container: stored.Container}
		if procs[key] == nil {
			procs[key] = map[string]*Definition{}
		}
		procs[key][stored.ID] = &Definition{ID: stored.ID, Body: stored.Body}
	}

	r.snapshot.Store(procs)
	return nil
}

type storedDefinition struct {
	Database  string `json:"database"`
	Container string `json:"container"`
	ID        string `json:"id"`
	Body      string `json:"body"`
}

// Register stores a definition for a container, replacing any existing
// definition with the same id. It has no effect on documents.
func (r *Registry) Register(db, container string, def *Definition) error {
	if def.ID == "" {
		return errors.New("procedure id must not be empty")
	}
	if def.Body == "" {
		return errors.New("procedure body must not be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	value, err := json.Marshal(&storedDefinition{
		Database:  db,
		Container: container,
		ID:        def.ID,
		Body:      def.Body,
	})
	if err != nil {
		return errors.WithStack(err)
	}
	err = r.storage.Write([]storage.Modify{
		{Data: storage.Put{Key: storage.ProcedureKey(db, container, def.ID), Value: value}},
	})
	if err != nil {
		return errors.Trace(err)
	}

	key := containerKey{Database: db, Container: container}
	next := r.cloneSnapshot()
	if next[key] == nil {
		next[key] = map[string]*Definition{}
	}
	next[key][def.ID] = &Definition{ID: def.ID, Body: def.Body}
	r.snapshot.Store(next)
	return nil
}

// Unregister removes a definition.
func (r *Registry) Unregister(db, container, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := containerKey{Database: db, Container: container}
	current := r.load()
	if _, ok := current[key][id]; !ok {
		return &ErrProcedureNotFound{ID: id}
	}
	err := r.storage.Write([]storage.Modify{
		{Data: storage.Delete{Key: storage.ProcedureKey(db, container, id)}},
	})
	if err != nil {
		return errors.Trace(err)
	}

	next := r.cloneSnapshot()
	delete(next[key], id)
	r.snapshot.Store(next)
	return nil
}

// DropContainer forgets every definition of a container. Storage metadata is
// purged by the catalog's container drop, so only the snapshot changes here.
func (r *Registry) DropContainer(db, container string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	next := r.cloneSnapshot()
	delete(next, containerKey{Database: db, Container: container})
	r.snapshot.Store(next)
}

// DropDatabase forgets the definitions of every container of a database.
func (r *Registry) DropDatabase(db string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	next := r.cloneSnapshot()
	for key := range next {
		if key.Database == db {
			delete(next, key)
		}
	}
	r.snapshot.Store(next)
}

// Resolve returns the definition registered under id, without locking.
func (r *Registry) Resolve(db, container, id string) (*Definition, error) {
	key := containerKey{Database: db, Container: container}
	def, ok := r.load()[key][id]
	if !ok {
		return nil, &ErrProcedureNotFound{ID: id}
	}
	return def, nil
}

// List returns the definitions of a container sorted by id.
func (r *Registry) List(db, container string) []*Definition {
	key := containerKey{Database: db, Container: container}
	procs := r.load()[key]
	defs := make([]*Definition, 0, len(procs))
	for _, def := range procs {
		defs = append(defs, def)
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].ID < defs[j].ID })
	return defs
}

func (r *Registry) load() map[containerKey]map[string]*Definition {
	return r.snapshot.Load().(map[containerKey]map[string]*Definition)
}

// cloneSnapshot copies the outer and per-container maps. Definitions are
// immutable so they are shared.
func (r *Registry) cloneSnapshot() map[containerKey]map[string]*Definition {
	current := r.load()
	next := make(map[containerKey]map[string]*Definition, len(current))
	for key, procs := range current {
		copied := make(map[string]*Definition, len(procs))
		for id, def := range procs {
			copied[id] = def
		}
		next[key] = copied
	}
	return next
}
