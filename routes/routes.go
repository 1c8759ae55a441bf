package routes

import (
	"github.com/gorilla/mux"
	"github.com/wkalt/bindec/schemastore"
	"github.com/wkalt/bindec/storage"
	"github.com/wkalt/bindec/util/mw"
)

/*
HTTP routes for the decode service. Schemas are managed by name; decode
endpoints accept either a raw payload in the request body or the ID of an
object held by the configured storage provider.
*/

////////////////////////////////////////////////////////////////////////////////

// MakeRoutes returns the service router.
func MakeRoutes(store *schemastore.SchemaStore, provider storage.Provider) *mux.Router {
	r := mux.NewRouter()
	r.Use(mw.WithRequestID)
	r.HandleFunc("/schemas", newListSchemasHandler(store)).Methods("GET")
	r.HandleFunc("/schemas/{name}", newPutSchemaHandler(store)).Methods("PUT")
	r.HandleFunc("/schemas/{name}", newGetSchemaHandler(store)).Methods("GET")
	r.HandleFunc("/schemas/{name}", newDeleteSchemaHandler(store)).Methods("DELETE")
	r.HandleFunc("/decode/{schema}", newDecodeHandler(store)).Methods("POST")
	r.HandleFunc("/decode/{schema}/objects/{id}", newDecodeObjectHandler(store, provider)).Methods("POST")
	return r
}
