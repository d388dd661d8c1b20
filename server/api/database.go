package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/unrolled/render"

	"github.com/docstore-dev/docstore/server"
)

type databaseHandler struct {
	svr *server.Server
	rd  *render.Render
}

func newDatabaseHandler(svr *server.Server, rd *render.Render) *databaseHandler {
	return &databaseHandler{svr: svr, rd: rd}
}

type createDatabaseRequest struct {
	Name string `json:"name"`
}

func (h *databaseHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createDatabaseRequest
	if err := readJSON(r, &req); err != nil {
		badRequest(h.rd, w, err)
		return
	}
	if req.Name == "" {
		h.rd.JSON(w, http.StatusBadRequest, errorBody{Code: "BadRequest", Message: "database name must not be empty"})
		return
	}
	if err := h.svr.CreateDatabase(req.Name); err != nil {
		errorResp(h.rd, w, err)
		return
	}
	h.rd.JSON(w, http.StatusCreated, map[string]string{"name": req.Name})
}

func (h *databaseHandler) Delete(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	if err := h.svr.DropDatabase(vars["db"]); err != nil {
		errorResp(h.rd, w, err)
		return
	}
	h.rd.JSON(w, http.StatusOK, nil)
}

func (h *databaseHandler) List(w http.ResponseWriter, r *http.Request) {
	h.rd.JSON(w, http.StatusOK, h.svr.Databases())
}
