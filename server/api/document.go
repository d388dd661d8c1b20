package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/unrolled/render"

	"github.com/docstore-dev/docstore/document"
	"github.com/docstore-dev/docstore/server"
)

type documentHandler struct {
	svr *server.Server
	rd  *render.Render
}

func newDocumentHandler(svr *server.Server, rd *render.Render) *documentHandler {
	return &documentHandler{svr: svr, rd: rd}
}

func (h *documentHandler) Get(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	partitionKey := r.URL.Query().Get("partitionKey")
	doc, err := h.svr.ReadDocument(vars["db"], vars["container"], partitionKey, vars["id"])
	if err != nil {
		errorResp(h.rd, w, err)
		return
	}
	h.rd.JSON(w, http.StatusOK, doc)
}

type queryRequest struct {
	PartitionKey   string            `json:"partitionKey"`
	Filters        []document.Filter `json:"filters"`
	CrossPartition bool              `json:"crossPartition"`
}

func (h *documentHandler) Query(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	var req queryRequest
	if err := readJSON(r, &req); err != nil {
		badRequest(h.rd, w, err)
		return
	}
	docs, err := h.svr.QueryDocuments(vars["db"], vars["container"], req.PartitionKey, req.Filters, req.CrossPartition)
	if err != nil {
		errorResp(h.rd, w, err)
		return
	}
	h.rd.JSON(w, http.StatusOK, docs)
}
