package routes

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/goccy/go-json"
	"github.com/gorilla/mux"
	"github.com/wkalt/bindec/decode"
	"github.com/wkalt/bindec/schema"
	"github.com/wkalt/bindec/schemastore"
	"github.com/wkalt/bindec/storage"
	"github.com/wkalt/bindec/util/httputil"
)

/*
Decode handlers. Compile defaults come from query parameters (order,
float_order, encoding, hex), so the same stored schema can decode payloads
from either endianness. The map parameter switches the result shape from an
order-preserving JSON object to a plain map.
*/

////////////////////////////////////////////////////////////////////////////////

func compileOptions(r *http.Request) schemastore.CompileOptions {
	q := r.URL.Query()
	return schemastore.CompileOptions{
		Order:      q.Get("order"),
		FloatOrder: q.Get("float_order"),
		Encoding:   q.Get("encoding"),
		BytesAsHex: q.Get("hex") == "true",
	}
}

func decodeAndRespond(
	ctx context.Context,
	w http.ResponseWriter,
	compiled *schema.Compiled,
	source io.ReadSeeker,
	asMap bool,
) {
	var result any
	var err error
	if asMap {
		result, err = decode.DecodeMap(compiled, source)
	} else {
		result, err = decode.Decode(compiled, source)
	}
	if err != nil {
		httputil.UnprocessableEntity(ctx, w, "%w", err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(result); err != nil {
		httputil.InternalServerError(ctx, w, "failed to encode response: %s", err)
		return
	}
}

func newDecodeHandler(store *schemastore.SchemaStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		name := mux.Vars(r)["schema"]
		compiled, err := store.Compiled(ctx, name, compileOptions(r))
		if err != nil {
			if errors.Is(err, schemastore.ErrSchemaNotFound) {
				httputil.NotFound(ctx, w, "schema %s not found", name)
				return
			}
			httputil.BadRequest(ctx, w, "%w", err)
			return
		}
		payload, err := io.ReadAll(r.Body)
		if err != nil {
			httputil.BadRequest(ctx, w, "failed to read request body: %s", err)
			return
		}
		decodeAndRespond(ctx, w, compiled, bytes.NewReader(payload), r.URL.Query().Get("map") == "true")
	}
}

func newDecodeObjectHandler(store *schemastore.SchemaStore, provider storage.Provider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		name := mux.Vars(r)["schema"]
		id := mux.Vars(r)["id"]
		compiled, err := store.Compiled(ctx, name, compileOptions(r))
		if err != nil {
			if errors.Is(err, schemastore.ErrSchemaNotFound) {
				httputil.NotFound(ctx, w, "schema %s not found", name)
				return
			}
			httputil.BadRequest(ctx, w, "%w", err)
			return
		}
		object, err := provider.Get(ctx, id)
		if err != nil {
			if errors.Is(err, storage.ErrObjectNotFound) {
				httputil.NotFound(ctx, w, "object %s not found", id)
				return
			}
			httputil.InternalServerError(ctx, w, "failed to get object: %s", err)
			return
		}
		defer object.Close()
		decodeAndRespond(ctx, w, compiled, object, r.URL.Query().Get("map") == "true")
	}
}
