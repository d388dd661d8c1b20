package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/unrolled/render"

	"github.com/docstore-dev/docstore/server"
)

type containerHandler struct {
	svr *server.Server
	rd  *render.Render
}

func newContainerHandler(svr *server.Server, rd *render.Render) *containerHandler {
	return &containerHandler{svr: svr, rd: rd}
}

type createContainerRequest struct {
	Name             string `json:"name"`
	PartitionKeyPath string `json:"partitionKeyPath"`
}

func (h *containerHandler) Create(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	var req createContainerRequest
	if err := readJSON(r, &req); err != nil {
		badRequest(h.rd, w, err)
		return
	}
	ctn, err := h.svr.CreateContainer(vars["db"], req.Name, req.PartitionKeyPath)
	if err != nil {
		errorResp(h.rd, w, err)
		return
	}
	h.rd.JSON(w, http.StatusCreated, ctn)
}

func (h *containerHandler) Delete(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	if err := h.svr.DropContainer(vars["db"], vars["container"]); err != nil {
		errorResp(h.rd, w, err)
		return
	}
	h.rd.JSON(w, http.StatusOK, nil)
}

func (h *containerHandler) List(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	ctns, err := h.svr.Containers(vars["db"])
	if err != nil {
		errorResp(h.rd, w, err)
		return
	}
	h.rd.JSON(w, http.StatusOK, ctns)
}
