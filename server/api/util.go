package api

import (
	"encoding/json"
	"io/ioutil"
	"net/http"

	"github.com/pingcap/errors"
	"github.com/unrolled/render"

	"github.com/docstore-dev/docstore/catalog"
	"github.com/docstore-dev/docstore/document"
	"github.com/docstore-dev/docstore/registry"
	"github.com/docstore-dev/docstore/script"
	"github.com/docstore-dev/docstore/storage"
	"github.com/docstore-dev/docstore/transaction"
)

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// errorResp maps engine errors onto HTTP status codes:
//
//   409 management conflicts (already exists) and commit-time store conflicts
//   404 missing databases, containers, procedures, and documents
//   400 invalid documents/filters and cross-partition access
//   500 script runtime failures and everything unexpected
//
// Management conflicts are informational: the caller learns the resource was
// already there, nothing about the store changed.
func errorResp(rd *render.Render, w http.ResponseWriter, err error) {
	cause := errors.Cause(err)
	switch cause.(type) {
	case *catalog.ErrDatabaseExists, *catalog.ErrContainerExists:
		rd.JSON(w, http.StatusConflict, errorBody{Code: "ResourceAlreadyExists", Message: cause.Error()})
	case *catalog.ErrDatabaseNotFound, *catalog.ErrContainerNotFound:
		rd.JSON(w, http.StatusNotFound, errorBody{Code: "ResourceNotFound", Message: cause.Error()})
	case *registry.ErrProcedureNotFound:
		rd.JSON(w, http.StatusNotFound, errorBody{Code: "ProcedureNotFound", Message: cause.Error()})
	case *transaction.ErrDocumentNotFound:
		rd.JSON(w, http.StatusNotFound, errorBody{Code: "NotFound", Message: cause.Error()})
	case *transaction.ErrStoreConflict, *storage.ErrKeyExists:
		rd.JSON(w, http.StatusConflict, errorBody{Code: "Conflict", Message: cause.Error()})
	case *transaction.ErrCrossPartition:
		rd.JSON(w, http.StatusBadRequest, errorBody{Code: "CrossPartitionViolation", Message: cause.Error()})
	case *document.ErrInvalidDocument, *document.ErrInvalidFilter:
		rd.JSON(w, http.StatusBadRequest, errorBody{Code: "BadRequest", Message: cause.Error()})
	case *script.Error:
		rd.JSON(w, http.StatusInternalServerError, errorBody{Code: "ScriptRuntimeError", Message: cause.Error()})
	default:
		rd.JSON(w, http.StatusInternalServerError, errorBody{Code: "InternalError", Message: err.Error()})
	}
}

func readJSON(r *http.Request, target interface{}) error {
	data, err := ioutil.ReadAll(r.Body)
	if err != nil {
		return errors.WithStack(err)
	}
	if err := json.Unmarshal(data, target); err != nil {
		return errors.WithStack(err)
	}
	return nil
}

func badRequest(rd *render.Render, w http.ResponseWriter, err error) {
	rd.JSON(w, http.StatusBadRequest, errorBody{Code: "BadRequest", Message: err.Error()})
}
