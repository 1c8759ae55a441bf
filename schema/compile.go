package schema

import (
	"encoding/binary"
	"fmt"
)

/*
The compiler lowers a *Schema of descriptor nodes into a *Compiled of
canonical nodes. Compilation is a depth-first walk: every "default" slot is
resolved here (integer order, float order, text encoding, hex mode), widths
are converted from bits to bytes, and bare literals and nested schemas are
lowered to const and struct nodes. The float order follows the integer
order unless explicitly overridden. Defaults do not vary per nesting level:
a nested schema compiles with the same configuration as its parent.

A Compiled is immutable after construction and safe to share across
concurrent decode calls, since each call carries its own binding context
and byte source.
*/

////////////////////////////////////////////////////////////////////////////////

// CNode is the canonical, default-resolved form of a descriptor node.
type CNode struct {
	Kind Kind

	// Int, Float: width in bytes and resolved order.
	Size   int
	Signed bool
	Order  binary.ByteOrder

	// Str, Bytes
	Len      *CNode
	Encoding string

	// List
	Count *CNode
	Elem  *CNode // also the peek target

	// Const
	Value any

	// Var
	Name string

	// Struct
	Struct *Compiled

	// Match
	Cond    *CNode
	Results []*CNode

	// Func
	Fn   Transform
	Args *CNode

	// Group
	Members []*CNode

	// Seek
	Offset *CNode
	Whence int
}

// CField is a named canonical node.
type CField struct {
	Name string
	Node *CNode
}

// Compiled is a compiled schema, ready for decoding.
type Compiled struct {
	Fields []CField
}

type compileConfig struct {
	order      binary.ByteOrder
	floatOrder binary.ByteOrder
	encoding   string
	bytesAsHex bool
}

// Option configures a compile call.
type Option func(*compileConfig)

// WithByteOrder sets the default integer byte order. The default is little
// endian.
func WithByteOrder(o binary.ByteOrder) Option {
	return func(c *compileConfig) { c.order = o }
}

// WithFloatByteOrder sets the float byte order independently of the integer
// order. If unset, floats follow the integer order.
func WithFloatByteOrder(o binary.ByteOrder) Option {
	return func(c *compileConfig) { c.floatOrder = o }
}

// WithEncoding sets the default text encoding. The default is utf-8.
func WithEncoding(encoding string) Option {
	return func(c *compileConfig) { c.encoding = encoding }
}

// WithBytesAsHex renders all bytes fields in the schema as lowercase hex
// strings instead of raw bytes.
func WithBytesAsHex() Option {
	return func(c *compileConfig) { c.bytesAsHex = true }
}

// Compile lowers the schema to canonical form with the supplied defaults
// baked in.
func (s *Schema) Compile(opts ...Option) (*Compiled, error) {
	cfg := compileConfig{
		order:    binary.LittleEndian,
		encoding: "utf-8",
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.floatOrder == nil {
		cfg.floatOrder = cfg.order
	}
	return compileSchema(s, cfg)
}

func compileSchema(s *Schema, cfg compileConfig) (*Compiled, error) {
	seen := make(map[string]bool, len(s.Fields))
	compiled := &Compiled{Fields: make([]CField, 0, len(s.Fields))}
	for _, f := range s.Fields {
		if seen[f.Name] {
			return nil, CompileError{Field: f.Name, Reason: "duplicate field name"}
		}
		seen[f.Name] = true
		cn, err := compileValue(f.Node, cfg)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", f.Name, err)
		}
		compiled.Fields = append(compiled.Fields, CField{Name: f.Name, Node: cn})
	}
	return compiled, nil
}

// compileValue lowers one descriptor slot. Legal inputs are *Node, bare int
// or string literals, and nested *Schema values; anything else is a compile
// error.
func compileValue(v any, cfg compileConfig) (*CNode, error) {
	switch v := v.(type) {
	case *Node:
		return compileNode(v, cfg)
	case int:
		return &CNode{Kind: KindConst, Value: int64(v)}, nil
	case int64:
		return &CNode{Kind: KindConst, Value: v}, nil
	case string:
		return &CNode{Kind: KindConst, Value: v}, nil
	case *Schema:
		nested, err := compileSchema(v, cfg)
		if err != nil {
			return nil, err
		}
		return &CNode{Kind: KindStruct, Struct: nested}, nil
	default:
		return nil, CompileError{Reason: fmt.Sprintf("unsupported descriptor value %T", v)}
	}
}

func compileNode(n *Node, cfg compileConfig) (*CNode, error) {
	switch n.Kind {
	case KindInt:
		size, err := byteWidth(n.Bits)
		if err != nil {
			return nil, err
		}
		return &CNode{
			Kind:   KindInt,
			Size:   size,
			Signed: n.Signed,
			Order:  resolveOrder(n.Order, cfg.order),
		}, nil
	case KindFloat:
		if n.Bits != 32 && n.Bits != 64 {
			return nil, CompileError{Reason: fmt.Sprintf("float width must be 32 or 64 bits, got %d", n.Bits)}
		}
		return &CNode{
			Kind:  KindFloat,
			Size:  n.Bits / 8,
			Order: resolveOrder(n.Order, cfg.floatOrder),
		}, nil
	case KindUvarint, KindPos, KindBool:
		return &CNode{Kind: n.Kind}, nil
	case KindStr:
		length, err := compileValue(n.Len, cfg)
		if err != nil {
			return nil, fmt.Errorf("str length: %w", err)
		}
		encoding := n.Encoding
		if encoding == "" {
			encoding = cfg.encoding
		}
		return &CNode{Kind: KindStr, Len: length, Encoding: encoding}, nil
	case KindBytes:
		length, err := compileValue(n.Len, cfg)
		if err != nil {
			return nil, fmt.Errorf("bytes length: %w", err)
		}
		kind := KindBytes
		if cfg.bytesAsHex {
			kind = KindBytesHex
		}
		return &CNode{Kind: kind, Len: length}, nil
	case KindList:
		count, err := compileValue(n.Count, cfg)
		if err != nil {
			return nil, fmt.Errorf("list count: %w", err)
		}
		elem, err := compileValue(n.Elem, cfg)
		if err != nil {
			return nil, fmt.Errorf("list element: %w", err)
		}
		return &CNode{Kind: KindList, Count: count, Elem: elem}, nil
	case KindConst:
		value, err := normalizeLiteral(n.Value)
		if err != nil {
			return nil, err
		}
		return &CNode{Kind: KindConst, Value: value}, nil
	case KindVar:
		if n.Name == "" {
			return nil, CompileError{Reason: "var descriptor requires a field name"}
		}
		return &CNode{Kind: KindVar, Name: n.Name}, nil
	case KindMatch:
		cond, err := compileValue(n.Cond, cfg)
		if err != nil {
			return nil, fmt.Errorf("match condition: %w", err)
		}
		results := make([]*CNode, 0, len(n.Results))
		for i, r := range n.Results {
			cr, err := compileValue(r, cfg)
			if err != nil {
				return nil, fmt.Errorf("match branch %d: %w", i, err)
			}
			results = append(results, cr)
		}
		return &CNode{Kind: KindMatch, Cond: cond, Results: results}, nil
	case KindFunc:
		if n.Fn == nil {
			return nil, CompileError{Reason: "func descriptor requires a transform"}
		}
		args, err := compileValue(Group(n.Args...), cfg)
		if err != nil {
			return nil, fmt.Errorf("func arguments: %w", err)
		}
		return &CNode{Kind: KindFunc, Fn: n.Fn, Args: args}, nil
	case KindGroup:
		members := make([]*CNode, 0, len(n.Members))
		for i, m := range n.Members {
			cm, err := compileValue(m, cfg)
			if err != nil {
				return nil, fmt.Errorf("group member %d: %w", i, err)
			}
			members = append(members, cm)
		}
		return &CNode{Kind: KindGroup, Members: members}, nil
	case KindSeek:
		offset, err := compileValue(n.Offset, cfg)
		if err != nil {
			return nil, fmt.Errorf("seek offset: %w", err)
		}
		return &CNode{Kind: KindSeek, Offset: offset, Whence: n.Whence}, nil
	case KindPeek:
		elem, err := compileValue(n.Elem, cfg)
		if err != nil {
			return nil, fmt.Errorf("peek target: %w", err)
		}
		return &CNode{Kind: KindPeek, Elem: elem}, nil
	default:
		return nil, CompileError{Reason: fmt.Sprintf("unrecognized descriptor kind %d", n.Kind)}
	}
}

func byteWidth(bits int) (int, error) {
	if bits <= 0 || bits%8 != 0 {
		return 0, CompileError{Reason: fmt.Sprintf("integer width must be a positive multiple of 8 bits, got %d", bits)}
	}
	if bits > 64 {
		return 0, CompileError{Reason: fmt.Sprintf("integer width exceeds 64 bits: %d", bits)}
	}
	return bits / 8, nil
}

func resolveOrder(o Order, fallback binary.ByteOrder) binary.ByteOrder {
	switch o {
	case OrderLittle:
		return binary.LittleEndian
	case OrderBig:
		return binary.BigEndian
	default:
		return fallback
	}
}

func normalizeLiteral(v any) (any, error) {
	switch v := v.(type) {
	case int:
		return int64(v), nil
	case int64:
		return v, nil
	case string:
		return v, nil
	default:
		return nil, CompileError{Reason: fmt.Sprintf("const literal must be an integer or string, got %T", v)}
	}
}
