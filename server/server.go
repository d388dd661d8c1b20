package server

import (
	"github.com/juju/ratelimit"
	"github.com/ngaut/log"
	"github.com/pingcap/errors"

	"github.com/docstore-dev/docstore/catalog"
	"github.com/docstore-dev/docstore/config"
	"github.com/docstore-dev/docstore/document"
	"github.com/docstore-dev/docstore/registry"
	"github.com/docstore-dev/docstore/script"
	"github.com/docstore-dev/docstore/storage"
	"github.com/docstore-dev/docstore/transaction"
)

// Server is the public surface of the document store: resource management,
// procedure registration, document reads and queries, and the execution
// dispatcher for stored procedures.
type Server struct {
	conf        *config.Config
	storage     storage.Storage
	catalog     *catalog.Catalog
	registry    *registry.Registry
	coordinator *transaction.Coordinator
	limiter     *ratelimit.Bucket
}

// NewServer builds a server over a started storage engine, recovering the
// catalog and procedure registry from storage metadata.
func NewServer(conf *config.Config, s storage.Storage) (*Server, error) {
	cat := catalog.NewCatalog(s)
	if err := cat.Load(); err != nil {
		return nil, errors.Trace(err)
	}
	reg := registry.NewRegistry(s)
	if err := reg.Load(); err != nil {
		return nil, errors.Trace(err)
	}

	svr := &Server{
		conf:        conf,
		storage:     s,
		catalog:     cat,
		registry:    reg,
		coordinator: transaction.NewCoordinator(s),
	}
	if conf.ExecRateLimit > 0 {
		svr.limiter = ratelimit.NewBucketWithRate(conf.ExecRateLimit, conf.ExecRateBurst)
	}
	return svr, nil
}

// CreateDatabase creates a database. An existing database is an informational
// conflict, not a failure of the store.
func (svr *Server) CreateDatabase(name string) error {
	return svr.catalog.CreateDatabase(name)
}

// DropDatabase removes a database and everything in it.
func (svr *Server) DropDatabase(name string) error {
	svr.registry.DropDatabase(name)
	return svr.catalog.DropDatabase(name)
}

// CreateContainer creates a container in a database.
func (svr *Server) CreateContainer(db, name, partitionKeyPath string) (*catalog.Container, error) {
	return svr.catalog.CreateContainer(db, name, partitionKeyPath)
}

// DropContainer removes a container, its documents, and its procedures.
func (svr *Server) DropContainer(db, name string) error {
	if err := svr.catalog.DropContainer(db, name); err != nil {
		return err
	}
	svr.registry.DropContainer(db, name)
	return nil
}

// Databases lists database names.
func (svr *Server) Databases() []string {
	return svr.catalog.Databases()
}

// Containers lists the containers of a database.
func (svr *Server) Containers(db string) ([]*catalog.Container, error) {
	return svr.catalog.Containers(db)
}

// RegisterProcedure stores a procedure definition on a container, replacing
// any previous definition with the same id.
func (svr *Server) RegisterProcedure(db, container string, def *registry.Definition) error {
	if _, err := svr.catalog.GetContainer(db, container); err != nil {
		return err
	}
	return svr.registry.Register(db, container, def)
}

// UnregisterProcedure removes a procedure definition.
func (svr *Server) UnregisterProcedure(db, container, id string) error {
	if _, err := svr.catalog.GetContainer(db, container); err != nil {
		return err
	}
	return svr.registry.Unregister(db, container, id)
}

// Procedures lists the procedure definitions of a container.
func (svr *Server) Procedures(db, container string) ([]*registry.Definition, error) {
	if _, err := svr.catalog.GetContainer(db, container); err != nil {
		return nil, err
	}
	return svr.registry.List(db, container), nil
}

// Execute runs a stored procedure atomically against one partition and
// returns the script-set response body. On any script failure the
// transaction is rolled back and the error is returned; the store is exactly
// as if the invocation never ran.
func (svr *Server) Execute(db, container, partitionKey, procID string, args []interface{}) (interface{}, error) {
	ctn, err := svr.catalog.GetContainer(db, container)
	if err != nil {
		return nil, err
	}
	def, err := svr.registry.Resolve(db, container, procID)
	if err != nil {
		return nil, err
	}
	if svr.limiter != nil {
		svr.limiter.Wait(1)
	}

	scope := transaction.Scope{
		Database:          db,
		Container:         container,
		Partition:         partitionKey,
		PartitionKeyField: ctn.PartitionKeyField(),
	}

	var response interface{}
	state, err := svr.coordinator.Run(scope, func(txn *transaction.DocTxn) error {
		host := script.NewHost(txn, svr.conf.ExecTimeout)
		resp, err := host.Run(def, args)
		response = resp
		return err
	})
	if err != nil {
		return nil, err
	}
	log.Debugf("procedure %q on %s/%s partition %q finished: %s", procID, db, container, partitionKey, state)
	return response, nil
}

// ReadDocument is a point read of committed state. Uncommitted transaction
// buffers are never visible here.
func (svr *Server) ReadDocument(db, container, partitionKey, id string) (document.Document, error) {
	if _, err := svr.catalog.GetContainer(db, container); err != nil {
		return nil, err
	}
	reader, err := svr.storage.Reader()
	if err != nil {
		return nil, errors.Trace(err)
	}
	defer reader.Close()

	value, err := reader.Get(storage.DocKey(db, container, partitionKey, id))
	if err != nil {
		return nil, errors.Trace(err)
	}
	if value == nil {
		return nil, &transaction.ErrDocumentNotFound{ID: id}
	}
	return document.Unmarshal(value)
}

// QueryDocuments scans committed state with a predicate. With crossPartition
// set, every partition of the container is scanned; otherwise the scan is
// scoped to partitionKey.
func (svr *Server) QueryDocuments(db, container, partitionKey string, filters []document.Filter, crossPartition bool) ([]document.Document, error) {
	if _, err := svr.catalog.GetContainer(db, container); err != nil {
		return nil, err
	}
	for _, f := range filters {
		if err := f.Validate(); err != nil {
			return nil, err
		}
	}

	reader, err := svr.storage.Reader()
	if err != nil {
		return nil, errors.Trace(err)
	}
	defer reader.Close()

	prefix := storage.PartitionPrefix(db, container, partitionKey)
	if crossPartition {
		prefix = storage.ContainerPrefix(db, container)
	}

	results := []document.Document{}
	iter := reader.Iter(prefix)
	defer iter.Close()
	for ; iter.Valid(); iter.Next() {
		value, err := iter.Value()
		if err != nil {
			return nil, errors.Trace(err)
		}
		doc, err := document.Unmarshal(value)
		if err != nil {
			return nil, errors.Trace(err)
		}
		if document.MatchAll(filters, doc) {
			results = append(results, doc)
		}
	}
	return results, nil
}

// Stop shuts the underlying storage down.
func (svr *Server) Stop() error {
	return svr.storage.Stop()
}
