package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/unrolled/render"
	"github.com/urfave/negroni"

	"github.com/docstore-dev/docstore/server"
)

const pingAPI = "/ping"

func createRouter(prefix string, svr *server.Server) *mux.Router {
	rd := render.New(render.Options{
		IndentJSON: true,
	})

	router := mux.NewRouter().PathPrefix(prefix).Subrouter()

	databaseHandler := newDatabaseHandler(svr, rd)
	router.HandleFunc("/api/v1/databases", databaseHandler.List).Methods("GET")
	router.HandleFunc("/api/v1/databases", databaseHandler.Create).Methods("POST")
	router.HandleFunc("/api/v1/databases/{db}", databaseHandler.Delete).Methods("DELETE")

	containerHandler := newContainerHandler(svr, rd)
	router.HandleFunc("/api/v1/databases/{db}/containers", containerHandler.List).Methods("GET")
	router.HandleFunc("/api/v1/databases/{db}/containers", containerHandler.Create).Methods("POST")
	router.HandleFunc("/api/v1/databases/{db}/containers/{container}", containerHandler.Delete).Methods("DELETE")

	procedureHandler := newProcedureHandler(svr, rd)
	router.HandleFunc("/api/v1/databases/{db}/containers/{container}/procedures", procedureHandler.List).Methods("GET")
	router.HandleFunc("/api/v1/databases/{db}/containers/{container}/procedures", procedureHandler.Register).Methods("POST")
	router.HandleFunc("/api/v1/databases/{db}/containers/{container}/procedures/{id}", procedureHandler.Unregister).Methods("DELETE")
	router.HandleFunc("/api/v1/databases/{db}/containers/{container}/procedures/{id}/execute", procedureHandler.Execute).Methods("POST")

	documentHandler := newDocumentHandler(svr, rd)
	router.HandleFunc("/api/v1/databases/{db}/containers/{container}/documents/{id}", documentHandler.Get).Methods("GET")
	router.HandleFunc("/api/v1/databases/{db}/containers/{container}/query", documentHandler.Query).Methods("POST")

	router.HandleFunc(pingAPI, func(w http.ResponseWriter, r *http.Request) {}).Methods("GET")

	return router
}

// NewHandler creates the HTTP handler of the store's public API.
func NewHandler(svr *server.Server) http.Handler {
	engine := negroni.New()
	recovery := negroni.NewRecovery()
	engine.Use(recovery)
	router := createRouter("", svr)
	engine.UseHandler(router)
	return engine
}
