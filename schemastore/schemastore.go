package schemastore

import (
	"context"
	"database/sql"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/spaolacci/murmur3"
	"github.com/wkalt/bindec/dsl"
	"github.com/wkalt/bindec/schema"
	"github.com/wkalt/bindec/util"
)

/*
SchemaStore is a named schema registry backed by a SQL database. Schemas
are stored as definition text and compiled on demand; compiled schemas are
cached in an LRU keyed by a hash of the definition and the compile options,
since a compiled schema is immutable and safe to share across decode
calls. The only database that has been used or tested is SQLite.
*/

////////////////////////////////////////////////////////////////////////////////

// ErrSchemaNotFound indicates the named schema does not exist in the store.
var ErrSchemaNotFound = errors.New("schema not found")

// SchemaStore stores named schema definitions.
type SchemaStore struct {
	db    *sql.DB
	cache *util.LRU[uint64, *schema.Compiled]
	funcs dsl.FuncMap
}

// NewSchemaStore creates a schema store over db, resolving apply transforms
// against funcs.
func NewSchemaStore(ctx context.Context, db *sql.DB, funcs dsl.FuncMap) (*SchemaStore, error) {
	if _, err := db.ExecContext(ctx,
		"create table if not exists schemas (name text primary key, definition text not null)"); err != nil {
		return nil, fmt.Errorf("failed to create schemas table: %w", err)
	}
	return &SchemaStore{
		db:    db,
		cache: util.NewLRU[uint64, *schema.Compiled](256),
		funcs: funcs,
	}, nil
}

// Put stores a schema definition under a name, replacing any existing
// definition. The definition is parsed first; invalid definitions are
// rejected.
func (s *SchemaStore) Put(ctx context.Context, name string, definition string) error {
	if _, err := dsl.Parse([]byte(definition), s.funcs); err != nil {
		return fmt.Errorf("invalid schema definition: %w", err)
	}
	_, err := s.db.ExecContext(ctx,
		"insert into schemas (name, definition) values ($1, $2) on conflict (name) do update set definition = $2",
		name, definition)
	if err != nil {
		return fmt.Errorf("failed to store schema: %w", err)
	}
	return nil
}

// Get returns the definition text of a named schema.
func (s *SchemaStore) Get(ctx context.Context, name string) (string, error) {
	var definition string
	err := s.db.QueryRowContext(ctx,
		"select definition from schemas where name = $1", name).Scan(&definition)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrSchemaNotFound
		}
		return "", fmt.Errorf("failed to read schema: %w", err)
	}
	return definition, nil
}

// List returns the names of all stored schemas.
func (s *SchemaStore) List(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "select name from schemas order by name")
	if err != nil {
		return nil, fmt.Errorf("failed to list schemas: %w", err)
	}
	defer rows.Close()
	names := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan schema name: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list schemas: %w", err)
	}
	return names, nil
}

// Delete removes a named schema.
func (s *SchemaStore) Delete(ctx context.Context, name string) error {
	if _, err := s.db.ExecContext(ctx, "delete from schemas where name = $1", name); err != nil {
		return fmt.Errorf("failed to delete schema: %w", err)
	}
	return nil
}

// CompileOptions selects the defaults a schema is compiled with. The zero
// value means little-endian, utf-8, raw bytes.
type CompileOptions struct {
	Order      string // "little" or "big"
	FloatOrder string // "" follows Order
	Encoding   string
	BytesAsHex bool
}

func (o CompileOptions) signature() string {
	return fmt.Sprintf("%s|%s|%s|%t", o.Order, o.FloatOrder, o.Encoding, o.BytesAsHex)
}

func parseOrder(name string) (binary.ByteOrder, error) {
	switch name {
	case "", "little":
		return binary.LittleEndian, nil
	case "big":
		return binary.BigEndian, nil
	default:
		return nil, fmt.Errorf("unknown byte order %q", name)
	}
}

// SchemaOptions converts to schema compile options.
func (o CompileOptions) SchemaOptions() ([]schema.Option, error) {
	opts := []schema.Option{}
	order, err := parseOrder(o.Order)
	if err != nil {
		return nil, err
	}
	opts = append(opts, schema.WithByteOrder(order))
	if o.FloatOrder != "" {
		forder, err := parseOrder(o.FloatOrder)
		if err != nil {
			return nil, err
		}
		opts = append(opts, schema.WithFloatByteOrder(forder))
	}
	if o.Encoding != "" {
		opts = append(opts, schema.WithEncoding(o.Encoding))
	}
	if o.BytesAsHex {
		opts = append(opts, schema.WithBytesAsHex())
	}
	return opts, nil
}

// Compiled returns the compiled form of a named schema under the given
// compile options, consulting the cache first.
func (s *SchemaStore) Compiled(
	ctx context.Context, name string, opts CompileOptions,
) (*schema.Compiled, error) {
	definition, err := s.Get(ctx, name)
	if err != nil {
		return nil, err
	}
	key := murmur3.Sum64(append([]byte(definition), []byte(opts.signature())...))
	if compiled, ok := s.cache.Get(key); ok {
		return compiled, nil
	}
	schemaOpts, err := opts.SchemaOptions()
	if err != nil {
		return nil, err
	}
	parsed, err := dsl.Parse([]byte(definition), s.funcs)
	if err != nil {
		return nil, fmt.Errorf("failed to parse schema %s: %w", name, err)
	}
	compiled, err := parsed.Schema.Compile(schemaOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to compile schema %s: %w", name, err)
	}
	s.cache.Put(key, compiled)
	return compiled, nil
}
