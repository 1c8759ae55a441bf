package dsl

import (
	"fmt"
	"io"

	"github.com/wkalt/bindec/schema"
)

/*
This file transforms the participle AST into a *schema.Schema. The AST does
not leave the dsl package. Primitive type names resolve through a fixed
table; any other bare identifier in type position must name a struct
defined earlier in the document, which lowers to a sub-record.
*/

////////////////////////////////////////////////////////////////////////////////

var (
	primitives = map[string]func() *schema.Node{ // nolint:gochecknoglobals
		"u8":      func() *schema.Node { return schema.UInt(8) },
		"u16":     func() *schema.Node { return schema.UInt(16) },
		"u32":     func() *schema.Node { return schema.UInt(32) },
		"u64":     func() *schema.Node { return schema.UInt(64) },
		"u16le":   func() *schema.Node { return schema.UIntLE(16) },
		"u32le":   func() *schema.Node { return schema.UIntLE(32) },
		"u64le":   func() *schema.Node { return schema.UIntLE(64) },
		"u16be":   func() *schema.Node { return schema.UIntBE(16) },
		"u32be":   func() *schema.Node { return schema.UIntBE(32) },
		"u64be":   func() *schema.Node { return schema.UIntBE(64) },
		"i8":      func() *schema.Node { return schema.Int(8) },
		"i16":     func() *schema.Node { return schema.Int(16) },
		"i32":     func() *schema.Node { return schema.Int(32) },
		"i64":     func() *schema.Node { return schema.Int(64) },
		"i16le":   func() *schema.Node { return schema.IntLE(16) },
		"i32le":   func() *schema.Node { return schema.IntLE(32) },
		"i64le":   func() *schema.Node { return schema.IntLE(64) },
		"i16be":   func() *schema.Node { return schema.IntBE(16) },
		"i32be":   func() *schema.Node { return schema.IntBE(32) },
		"i64be":   func() *schema.Node { return schema.IntBE(64) },
		"f32":     func() *schema.Node { return schema.Float(32) },
		"f64":     func() *schema.Node { return schema.Float(64) },
		"f32le":   func() *schema.Node { return schema.FloatLE(32) },
		"f64le":   func() *schema.Node { return schema.FloatLE(64) },
		"f32be":   func() *schema.Node { return schema.FloatBE(32) },
		"f64be":   func() *schema.Node { return schema.FloatBE(64) },
		"uvarint": schema.Uvarint,
		"bool":    schema.Bool,
		"pos":     schema.Pos,
	}

	whences = map[string]int{ // nolint:gochecknoglobals
		"start":   io.SeekStart,
		"current": io.SeekCurrent,
		"end":     io.SeekEnd,
	}
)

// Primitive returns the descriptor for a primitive type name, if the name
// is one.
func Primitive(name string) (*schema.Node, bool) {
	ctor, ok := primitives[name]
	if !ok {
		return nil, false
	}
	return ctor(), true
}

// Parsed is a schema definition lowered to engine descriptors.
type Parsed struct {
	Name   string
	Schema *schema.Schema
}

var schemaParser = NewParser() // nolint:gochecknoglobals

// Parse parses a schema definition and returns descriptors for its root
// struct. Transforms referenced by apply expressions are resolved against
// funcs.
func Parse(def []byte, funcs FuncMap) (*Parsed, error) {
	ast, err := schemaParser.ParseBytes("", def)
	if err != nil {
		return nil, fmt.Errorf("failed to parse schema definition: %w", err)
	}
	return transformAST(ast, funcs)
}

type transformer struct {
	funcs   FuncMap
	defined map[string]*schema.Schema
}

func transformAST(doc *Document, funcs FuncMap) (*Parsed, error) {
	t := &transformer{funcs: funcs, defined: map[string]*schema.Schema{}}
	var root *StructDef
	for _, def := range doc.Structs {
		if _, ok := t.defined[def.Name]; ok {
			return nil, fmt.Errorf("struct %s defined twice", def.Name)
		}
		s, err := t.transformFields(def.Fields)
		if err != nil {
			return nil, fmt.Errorf("struct %s: %w", def.Name, err)
		}
		t.defined[def.Name] = s
		root = def
	}
	return &Parsed{Name: root.Name, Schema: t.defined[root.Name]}, nil
}

func (t *transformer) transformFields(fields []*FieldDef) (*schema.Schema, error) {
	s := schema.New()
	for _, f := range fields {
		node, err := t.transformType(f.Type)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", f.Name, err)
		}
		s.Add(f.Name, node)
	}
	return s, nil
}

func (t *transformer) transformArg(a *Arg) (any, error) {
	if a.Int != nil {
		return int64(*a.Int), nil
	}
	return t.transformType(a.Type)
}

func (t *transformer) transformArgs(args []*Arg) ([]any, error) {
	out := make([]any, 0, len(args))
	for _, a := range args {
		v, err := t.transformArg(a)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func (t *transformer) transformType(e *TypeExpr) (any, error) {
	switch {
	case e.Str != nil:
		length, err := t.transformArg(e.Str.Len)
		if err != nil {
			return nil, err
		}
		if e.Str.Encoding != nil {
			return schema.StrEnc(length, *e.Str.Encoding), nil
		}
		return schema.Str(length), nil
	case e.Bytes != nil:
		length, err := t.transformArg(e.Bytes.Len)
		if err != nil {
			return nil, err
		}
		return schema.Bytes(length), nil
	case e.List != nil:
		count, err := t.transformArg(e.List.Count)
		if err != nil {
			return nil, err
		}
		elem, err := t.transformArg(e.List.Elem)
		if err != nil {
			return nil, err
		}
		return schema.List(count, elem), nil
	case e.Match != nil:
		cond, err := t.transformArg(e.Match.Cond)
		if err != nil {
			return nil, err
		}
		results, err := t.transformArgs(e.Match.Results)
		if err != nil {
			return nil, err
		}
		return schema.Match(cond, results...), nil
	case e.Group != nil:
		members, err := t.transformArgs(e.Group.Members)
		if err != nil {
			return nil, err
		}
		return schema.Group(members...), nil
	case e.Apply != nil:
		fn, ok := t.funcs[e.Apply.Fn]
		if !ok {
			return nil, fmt.Errorf("unknown transform %q", e.Apply.Fn)
		}
		args, err := t.transformArgs(e.Apply.Args)
		if err != nil {
			return nil, err
		}
		return schema.Func(fn, args...), nil
	case e.Seek != nil:
		offset, err := t.transformArg(e.Seek.Offset)
		if err != nil {
			return nil, err
		}
		whence := io.SeekStart
		if e.Seek.Whence != nil {
			whence = whences[*e.Seek.Whence]
		}
		return schema.SeekMode(offset, whence), nil
	case e.Peek != nil:
		target, err := t.transformType(e.Peek.Type)
		if err != nil {
			return nil, err
		}
		return schema.Peek(target), nil
	case e.Const != nil:
		if e.Const.Str != nil {
			return schema.Const(*e.Const.Str), nil
		}
		return schema.Const(int64(*e.Const.Int)), nil
	case e.Var != nil:
		return schema.Var(e.Var.Name), nil
	case e.Inline != nil:
		return t.transformFields(e.Inline.Fields)
	case e.Prim != "":
		if node, ok := Primitive(e.Prim); ok {
			return node, nil
		}
		if nested, ok := t.defined[e.Prim]; ok {
			return nested, nil
		}
		return nil, fmt.Errorf("unknown type %q", e.Prim)
	default:
		return nil, fmt.Errorf("empty type expression")
	}
}
