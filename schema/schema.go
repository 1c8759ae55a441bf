package schema

/*
Package schema contains the descriptor vocabulary for binary record layouts
and the compiler that lowers user-authored schemas into the canonical form
consumed by the decoder.

A Schema is an ordered list of named field descriptors. Descriptor slots
that accept a nested layout are typed any, because three shapes are legal
there: another *Node, a bare literal (which lowers to a constant), or a
*Schema (which lowers to a sub-record). The compiler validates those slots
and bakes in all defaults - byte orders, text encoding, the hex rendering
of bytes fields - so the decoder is a flat walk with no default resolution
of its own.
*/

////////////////////////////////////////////////////////////////////////////////

// Kind enumerates the descriptor node kinds. The set is closed; the decoder
// matches exhaustively over it.
type Kind int

const (
	KindInt Kind = iota + 1
	KindFloat
	KindUvarint
	KindStr
	KindBytes
	KindBytesHex // bytes field compiled under hex mode
	KindList
	KindStruct
	KindConst
	KindVar
	KindMatch
	KindFunc
	KindSeek
	KindPos
	KindPeek
	KindGroup
	KindBool
)

// String returns the name of the kind.
func (k Kind) String() string {
	switch k {
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindUvarint:
		return "uvarint"
	case KindStr:
		return "str"
	case KindBytes:
		return "bytes"
	case KindBytesHex:
		return "bytes(hex)"
	case KindList:
		return "list"
	case KindStruct:
		return "struct"
	case KindConst:
		return "const"
	case KindVar:
		return "var"
	case KindMatch:
		return "match"
	case KindFunc:
		return "func"
	case KindSeek:
		return "seek"
	case KindPos:
		return "pos"
	case KindPeek:
		return "peek"
	case KindGroup:
		return "group"
	case KindBool:
		return "bool"
	default:
		return "unknown"
	}
}

// Order is a descriptor-level byte order. OrderDefault defers to the
// compile-call default; an explicit order on a descriptor always wins.
type Order int

const (
	OrderDefault Order = iota
	OrderLittle
	OrderBig
)

// Transform is the calling contract for derived (func) fields. The decoded
// members of the associated group arrive as positional arguments, in group
// order. Transforms are supplied by the caller and opaque to the engine; an
// error return aborts the decode.
type Transform func(args ...any) (any, error)

// Node is a single field descriptor. Which members are meaningful depends
// on Kind; unused members are ignored by the compiler.
type Node struct {
	Kind Kind

	// Int, Float
	Bits   int
	Order  Order
	Signed bool

	// Str, Bytes
	Len      any
	Encoding string

	// List
	Count any
	Elem  any // also the peek target

	// Const
	Value any

	// Var
	Name string

	// Match
	Cond    any
	Results []any

	// Func
	Fn   Transform
	Args []any

	// Group
	Members []any

	// Seek
	Offset any
	Whence int
}

// Field is a named descriptor within a schema. Node may be a *Node, a bare
// int or string literal, or a nested *Schema.
type Field struct {
	Name string
	Node any
}

// Schema is an ordered set of named field descriptors. Field names must be
// unique within a schema; at decode time later fields may reference earlier
// ones by name, across sub-record boundaries.
type Schema struct {
	Fields []Field
}

// New returns a schema over the given fields.
func New(fields ...Field) *Schema {
	return &Schema{Fields: fields}
}

// Add appends a field and returns the schema, for chained construction.
func (s *Schema) Add(name string, node any) *Schema {
	s.Fields = append(s.Fields, Field{Name: name, Node: node})
	return s
}
