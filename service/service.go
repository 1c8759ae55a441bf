package service

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"

	_ "github.com/mattn/go-sqlite3" // sqlite driver
	"github.com/wkalt/bindec/dsl"
	"github.com/wkalt/bindec/routes"
	"github.com/wkalt/bindec/schemastore"
	"github.com/wkalt/bindec/storage"
	"github.com/wkalt/bindec/util/log"
)

/*
The decode service: a schema registry plus decode endpoints over HTTP.
*/

////////////////////////////////////////////////////////////////////////////////

// Start runs the service until the server fails.
func Start(ctx context.Context, opts ...Option) error {
	cfg := config{
		port:   8089,
		dbPath: "bindec.db",
		funcs:  dsl.Builtins(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.provider == nil {
		cfg.provider = storage.NewDirectoryStore("data")
	}
	db, err := sql.Open("sqlite3", cfg.dbPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	store, err := schemastore.NewSchemaStore(ctx, db, cfg.funcs)
	if err != nil {
		return fmt.Errorf("failed to open schema store: %w", err)
	}
	r := routes.MakeRoutes(store, cfg.provider)
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.port),
		Handler: r,
	}
	log.Infow(ctx, "Starting server", "port", cfg.port, "storage", cfg.provider.String())
	if err := srv.ListenAndServe(); err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}
