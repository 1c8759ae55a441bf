package routes

import (
	"errors"
	"io"
	"net/http"

	"github.com/goccy/go-json"
	"github.com/gorilla/mux"
	"github.com/wkalt/bindec/schemastore"
	"github.com/wkalt/bindec/util/httputil"
)

func newListSchemasHandler(store *schemastore.SchemaStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		names, err := store.List(ctx)
		if err != nil {
			httputil.InternalServerError(ctx, w, "failed to list schemas: %s", err)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(names); err != nil {
			httputil.InternalServerError(ctx, w, "failed to encode response: %s", err)
			return
		}
	}
}

func newPutSchemaHandler(store *schemastore.SchemaStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		name := mux.Vars(r)["name"]
		definition, err := io.ReadAll(r.Body)
		if err != nil {
			httputil.BadRequest(ctx, w, "failed to read request body: %s", err)
			return
		}
		if err := store.Put(ctx, name, string(definition)); err != nil {
			httputil.BadRequest(ctx, w, "%w", err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func newGetSchemaHandler(store *schemastore.SchemaStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		name := mux.Vars(r)["name"]
		definition, err := store.Get(ctx, name)
		if err != nil {
			if errors.Is(err, schemastore.ErrSchemaNotFound) {
				httputil.NotFound(ctx, w, "schema %s not found", name)
				return
			}
			httputil.InternalServerError(ctx, w, "failed to read schema: %s", err)
			return
		}
		w.Header().Set("Content-Type", "text/plain")
		if _, err := w.Write([]byte(definition)); err != nil {
			httputil.InternalServerError(ctx, w, "failed to write response: %s", err)
			return
		}
	}
}

func newDeleteSchemaHandler(store *schemastore.SchemaStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		name := mux.Vars(r)["name"]
		if err := store.Delete(ctx, name); err != nil {
			httputil.InternalServerError(ctx, w, "failed to delete schema: %s", err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
