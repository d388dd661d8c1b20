package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/unrolled/render"

	"github.com/docstore-dev/docstore/registry"
	"github.com/docstore-dev/docstore/server"
)

type procedureHandler struct {
	svr *server.Server
	rd  *render.Render
}

func newProcedureHandler(svr *server.Server, rd *render.Render) *procedureHandler {
	return &procedureHandler{svr: svr, rd: rd}
}

func (h *procedureHandler) Register(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	var def registry.Definition
	if err := readJSON(r, &def); err != nil {
		badRequest(h.rd, w, err)
		return
	}
	if err := h.svr.RegisterProcedure(vars["db"], vars["container"], &def); err != nil {
		errorResp(h.rd, w, err)
		return
	}
	h.rd.JSON(w, http.StatusCreated, map[string]string{"id": def.ID})
}

func (h *procedureHandler) Unregister(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	if err := h.svr.UnregisterProcedure(vars["db"], vars["container"], vars["id"]); err != nil {
		errorResp(h.rd, w, err)
		return
	}
	h.rd.JSON(w, http.StatusOK, nil)
}

func (h *procedureHandler) List(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	defs, err := h.svr.Procedures(vars["db"], vars["container"])
	if err != nil {
		errorResp(h.rd, w, err)
		return
	}
	h.rd.JSON(w, http.StatusOK, defs)
}

type executeRequest struct {
	PartitionKey string        `json:"partitionKey"`
	Args         []interface{} `json:"args"`
}

type executeResponse struct {
	Response interface{} `json:"response"`
}

func (h *procedureHandler) Execute(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	var req executeRequest
	if err := readJSON(r, &req); err != nil {
		badRequest(h.rd, w, err)
		return
	}
	resp, err := h.svr.Execute(vars["db"], vars["container"], req.PartitionKey, vars["id"], req.Args)
	if err != nil {
		errorResp(h.rd, w, err)
		return
	}
	h.rd.JSON(w, http.StatusOK, executeResponse{Response: resp})
}
