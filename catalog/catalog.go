package catalog

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/ngaut/log"
	"github.com/pingcap/errors"

	"github.com/docstore-dev/docstore/storage"
)

// Catalog tracks databases and their containers. The in-memory maps are
// authoritative; every mutation is mirrored to storage metadata keys so a
// restart recovers the full catalog.
type Catalog struct {
	mu      sync.RWMutex
	storage storage.Storage
	dbs     map[string]*Database
}

type Database struct {
	Name       string
	containers map[string]*Container
}

// Container is the unit documents and stored procedures belong to. Documents
// are placed by the value of the partition key field named by
// PartitionKeyPath (e.g. "/partitionKey").
type Container struct {
	Database         string `json:"database"`
	Name             string `json:"name"`
	PartitionKeyPath string `json:"partitionKeyPath"`
}

// PartitionKeyField returns the document field name the partition key path
// points at.
func (c *Container) PartitionKeyField() string {
	return strings.TrimPrefix(c.PartitionKeyPath, "/")
}

type ErrDatabaseExists struct{ Name string }

func (e *ErrDatabaseExists) Error() string {
	return fmt.Sprintf("database already exists: %q", e.Name)
}

type ErrDatabaseNotFound struct{ Name string }

func (e *ErrDatabaseNotFound) Error() string {
	return fmt.Sprintf("database not found: %q", e.Name)
}

type ErrContainerExists struct{ Database, Name string }

func (e *ErrContainerExists) Error() string {
	return fmt.Sprintf("container already exists: %q in database %q", e.Name, e.Database)
}

type ErrContainerNotFound struct{ Database, Name string }

func (e *ErrContainerNotFound) Error() string {
	return fmt.Sprintf("container not found: %q in database %q", e.Name, e.Database)
}

func NewCatalog(s storage.Storage) *Catalog {
	return &Catalog{
		storage: s,
		dbs:     make(map[string]*Database),
	}
}

// Load rebuilds the catalog from storage metadata. Called once at startup,
// before the catalog is shared.
func (c *Catalog) Load() error {
	reader, err := c.storage.Reader()
	if err != nil {
		return errors.Trace(err)
	}
	defer reader.Close()

	iter := reader.Iter(storage.DatabaseMetaPrefix())
	for ; iter.Valid(); iter.Next() {
		name, err := storage.TrailingSegment(storage.DatabaseMetaPrefix(), iter.Key())
		if err != nil {
			return errors.Trace(err)
		}
		c.dbs[name] = &Database{Name: name, containers: make(map[string]*Container)}
	}
	iter.Close()

	iter = reader.Iter(storage.ContainerMetaPrefix())
	defer iter.Close()
	for ; iter.Valid(); iter.Next() {
		value, err := iter.Value()
		if err != nil {
			return errors.Trace(err)
		}
		var ctn Container
		if err := json.Unmarshal(value, &ctn); err != nil {
			return errors.WithStack(err)
		}
		db, ok := c.dbs[ctn.Database]
		if !ok {
			return errors.Errorf("container %q references unknown database %q", ctn.Name, ctn.Database)
		}
		db.containers[ctn.Name] = &ctn
	}

	log.Debugf("catalog loaded: %d databases", len(c.dbs))
	return nil
}

// CreateDatabase creates a new database. Creating a database which already
// exists fails with ErrDatabaseExists; callers treat that as informational.
func (c *Catalog) CreateDatabase(name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.dbs[name]; ok {
		return &ErrDatabaseExists{Name: name}
	}
	err := c.storage.Write([]storage.Modify{
		{Data: storage.Put{Key: storage.DatabaseMetaKey(name), Value: []byte(name)}},
	})
	if err != nil {
		return errors.Trace(err)
	}
	c.dbs[name] = &Database{Name: name, containers: make(map[string]*Container)}
	return nil
}

// DropDatabase removes a database, its containers, and all their documents.
func (c *Catalog) DropDatabase(name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	db, ok := c.dbs[name]
	if !ok {
		return &ErrDatabaseNotFound{Name: name}
	}

	batch := []storage.Modify{
		{Data: storage.Delete{Key: storage.DatabaseMetaKey(name)}},
	}
	for _, ctn := range db.containers {
		batch = append(batch, storage.Modify{Data: storage.Delete{Key: storage.ContainerMetaKey(name, ctn.Name)}})
		purge, err := c.purgeBatch(storage.ContainerPrefix(name, ctn.Name))
		if err != nil {
			return errors.Trace(err)
		}
		batch = append(batch, purge...)
		purge, err = c.purgeBatch(storage.ProcedurePrefix(name, ctn.Name))
		if err != nil {
			return errors.Trace(err)
		}
		batch = append(batch, purge...)
	}
	if err := c.storage.Write(batch); err != nil {
		return errors.Trace(err)
	}
	delete(c.dbs, name)
	return nil
}

// CreateContainer creates a container in an existing database.
func (c *Catalog) CreateContainer(dbName, name, partitionKeyPath string) (*Container, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	db, ok := c.dbs[dbName]
	if !ok {
		return nil, &ErrDatabaseNotFound{Name: dbName}
	}
	if _, ok := db.containers[name]; ok {
		return nil, &ErrContainerExists{Database: dbName, Name: name}
	}
	if !strings.HasPrefix(partitionKeyPath, "/") || len(partitionKeyPath) < 2 {
		return nil, errors.Errorf("invalid partition key path %q", partitionKeyPath)
	}

	ctn := &Container{Database: dbName, Name: name, PartitionKeyPath: partitionKeyPath}
	value, err := json.Marshal(ctn)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	err = c.storage.Write([]storage.Modify{
		{Data: storage.Put{Key: storage.ContainerMetaKey(dbName, name), Value: value}},
	})
	if err != nil {
		return nil, errors.Trace(err)
	}
	db.containers[name] = ctn
	return ctn, nil
}

// DropContainer removes a container, purging its documents and procedure
// definitions.
func (c *Catalog) DropContainer(dbName, name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	db, ok := c.dbs[dbName]
	if !ok {
		return &ErrDatabaseNotFound{Name: dbName}
	}
	if _, ok := db.containers[name]; !ok {
		return &ErrContainerNotFound{Database: dbName, Name: name}
	}

	batch := []storage.Modify{
		{Data: storage.Delete{Key: storage.ContainerMetaKey(dbName, name)}},
	}
	purge, err := c.purgeBatch(storage.ContainerPrefix(dbName, name))
	if err != nil {
		return errors.Trace(err)
	}
	batch = append(batch, purge...)
	purge, err = c.purgeBatch(storage.ProcedurePrefix(dbName, name))
	if err != nil {
		return errors.Trace(err)
	}
	batch = append(batch, purge...)

	if err := c.storage.Write(batch); err != nil {
		return errors.Trace(err)
	}
	delete(db.containers, name)
	return nil
}

// GetContainer resolves a container reference.
func (c *Catalog) GetContainer(dbName, name string) (*Container, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	db, ok := c.dbs[dbName]
	if !ok {
		return nil, &ErrDatabaseNotFound{Name: dbName}
	}
	ctn, ok := db.containers[name]
	if !ok {
		return nil, &ErrContainerNotFound{Database: dbName, Name: name}
	}
	return ctn, nil
}

// Databases lists database names, for the management API.
func (c *Catalog) Databases() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	names := make([]string, 0, len(c.dbs))
	for name := range c.dbs {
		names = append(names, name)
	}
	return names
}

// Containers lists the containers of one database.
func (c *Catalog) Containers(dbName string) ([]*Container, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	db, ok := c.dbs[dbName]
	if !ok {
		return nil, &ErrDatabaseNotFound{Name: dbName}
	}
	ctns := make([]*Container, 0, len(db.containers))
	for _, ctn := range db.containers {
		ctns = append(ctns, ctn)
	}
	return ctns, nil
}

func (c *Catalog) purgeBatch(prefix []byte) ([]storage.Modify, error) {
	reader, err := c.storage.Reader()
	if err != nil {
		return nil, errors.Trace(err)
	}
	defer reader.Close()

	var batch []storage.Modify
	iter := reader.Iter(prefix)
	defer iter.Close()
	for ; iter.Valid(); iter.Next() {
		key := append([]byte(nil), iter.Key()...)
		batch = append(batch, storage.Modify{Data: storage.Delete{Key: key}})
	}
	return batch, nil
}
