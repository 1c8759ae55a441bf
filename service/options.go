package service

import (
	"github.com/wkalt/bindec/dsl"
	"github.com/wkalt/bindec/storage"
)

type config struct {
	port     int
	dbPath   string
	provider storage.Provider
	funcs    dsl.FuncMap
}

// Option configures the service.
type Option func(*config)

// WithPort sets the listen port. The default is 8089.
func WithPort(port int) Option {
	return func(c *config) { c.port = port }
}

// WithDatabasePath sets the sqlite database path for the schema store. The
// default is bindec.db in the working directory.
func WithDatabasePath(path string) Option {
	return func(c *config) { c.dbPath = path }
}

// WithStorageProvider sets the object store backing the object decode
// endpoint. The default is a directory store over ./data.
func WithStorageProvider(provider storage.Provider) Option {
	return func(c *config) { c.provider = provider }
}

// WithFuncs sets the transform registry for apply expressions. The default
// is dsl.Builtins.
func WithFuncs(funcs dsl.FuncMap) Option {
	return func(c *config) { c.funcs = funcs }
}
