package schemafile

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/wkalt/bindec/dsl"
	"github.com/wkalt/bindec/schema"
	"gopkg.in/yaml.v3"
)

/*
Schema documents on disk. Two forms are supported: the textual definition
language (any extension other than yaml), and a YAML document that carries
compile defaults alongside the field tree:

	name: frame
	order: big
	fields:
	  - name: width
	    type: u16
	  - name: label
	    type: str
	    length: u8
	  - name: pixels
	    type: list
	    count: uvarint
	    elem:
	      type: u8

In descriptor positions (length, count, elem, ...) a bare integer is a
constant and a bare string is a type name; anything richer is written as a
nested mapping. String constants always use the explicit const form.
*/

////////////////////////////////////////////////////////////////////////////////

// SchemaFile is a loaded schema document: descriptors plus the compile
// defaults the document requested.
type SchemaFile struct {
	Name    string
	Schema  *schema.Schema
	Options []schema.Option
}

// Load reads a schema document from disk, dispatching on the file
// extension.
func Load(path string, funcs dsl.FuncMap) (*SchemaFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read schema file: %w", err)
	}
	switch filepath.Ext(path) {
	case ".yaml", ".yml":
		return ParseYAML(data, funcs)
	default:
		return ParseText(data, funcs)
	}
}

// ParseText parses a textual schema definition.
func ParseText(data []byte, funcs dsl.FuncMap) (*SchemaFile, error) {
	parsed, err := dsl.Parse(data, funcs)
	if err != nil {
		return nil, err
	}
	return &SchemaFile{Name: parsed.Name, Schema: parsed.Schema}, nil
}

type document struct {
	Name       string       `yaml:"name"`
	Order      string       `yaml:"order"`
	FloatOrder string       `yaml:"float_order"`
	Encoding   string       `yaml:"encoding"`
	BytesAsHex bool         `yaml:"bytes_as_hex"`
	Fields     []*fieldSpec `yaml:"fields"`
}

type fieldSpec struct {
	Name     string       `yaml:"name"`
	Type     string       `yaml:"type"`
	Encoding string       `yaml:"encoding"`
	Length   *yaml.Node   `yaml:"length"`
	Count    *yaml.Node   `yaml:"count"`
	Elem     *yaml.Node   `yaml:"elem"`
	Value    *yaml.Node   `yaml:"value"`
	Field    string       `yaml:"field"`
	Cond     *yaml.Node   `yaml:"cond"`
	Results  []*yaml.Node `yaml:"results"`
	Members  []*yaml.Node `yaml:"members"`
	Fn       string       `yaml:"fn"`
	Args     []*yaml.Node `yaml:"args"`
	Offset   *yaml.Node   `yaml:"offset"`
	Whence   string       `yaml:"whence"`
	Target   *yaml.Node   `yaml:"target"`
	Fields   []*fieldSpec `yaml:"fields"`
}

// ParseYAML parses a YAML schema document.
func ParseYAML(data []byte, funcs dsl.FuncMap) (*SchemaFile, error) {
	doc := document{}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse yaml schema: %w", err)
	}
	t := &transformer{funcs: funcs}
	s, err := t.fields(doc.Fields)
	if err != nil {
		return nil, err
	}
	opts, err := documentOptions(doc)
	if err != nil {
		return nil, err
	}
	return &SchemaFile{Name: doc.Name, Schema: s, Options: opts}, nil
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

func documentOptions(doc document) ([]schema.Option, error) {
	opts := []schema.Option{}
	order, err := parseOrder(doc.Order)
	if err != nil {
		return nil, err
	}
	opts = append(opts, schema.WithByteOrder(order))
	if doc.FloatOrder != "" {
		forder, err := parseOrder(doc.FloatOrder)
		if err != nil {
			return nil, err
		}
		opts = append(opts, schema.WithFloatByteOrder(forder))
	}
	if doc.Encoding != "" {
		opts = append(opts, schema.WithEncoding(doc.Encoding))
	}
	if doc.BytesAsHex {
		opts = append(opts, schema.WithBytesAsHex())
	}
	return opts, nil
}

type transformer struct {
	funcs dsl.FuncMap
}

func (t *transformer) fields(specs []*fieldSpec) (*schema.Schema, error) {
	s := schema.New()
	for _, spec := range specs {
		node, err := t.descriptor(spec)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", spec.Name, err)
		}
		s.Add(spec.Name, node)
	}
	return s, nil
}

// node lowers a descriptor position: integer scalars are constants, string
// scalars are type names, mappings are full field specs.
func (t *transformer) node(n *yaml.Node, what string) (any, error) {
	if n == nil {
		return nil, fmt.Errorf("missing %s", what)
	}
	if n.Kind == yaml.ScalarNode {
		var i int64
		if err := n.Decode(&i); err == nil {
			return i, nil
		}
		var s string
		if err := n.Decode(&s); err == nil {
			if prim, ok := dsl.Primitive(s); ok {
				return prim, nil
			}
			return nil, fmt.Errorf("%s: unknown type %q", what, s)
		}
	}
	if n.Kind == yaml.MappingNode {
		spec := fieldSpec{}
		if err := n.Decode(&spec); err != nil {
			return nil, fmt.Errorf("%s: %w", what, err)
		}
		return t.descriptor(&spec)
	}
	return nil, fmt.Errorf("%s: expected an integer, type name, or mapping", what)
}

func (t *transformer) nodes(ns []*yaml.Node, what string) ([]any, error) {
	out := make([]any, 0, len(ns))
	for i, n := range ns {
		v, err := t.node(n, fmt.Sprintf("%s %d", what, i))
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func (t *transformer) descriptor(spec *fieldSpec) (any, error) {
	if prim, ok := dsl.Primitive(spec.Type); ok {
		return prim, nil
	}
	switch spec.Type {
	case "str":
		length, err := t.node(spec.Length, "length")
		if err != nil {
			return nil, err
		}
		if spec.Encoding != "" {
			return schema.StrEnc(length, spec.Encoding), nil
		}
		return schema.Str(length), nil
	case "bytes":
		length, err := t.node(spec.Length, "length")
		if err != nil {
			return nil, err
		}
		return schema.Bytes(length), nil
	case "list":
		count, err := t.node(spec.Count, "count")
		if err != nil {
			return nil, err
		}
		elem, err := t.node(spec.Elem, "elem")
		if err != nil {
			return nil, err
		}
		return schema.List(count, elem), nil
	case "const":
		if spec.Value == nil {
			return nil, fmt.Errorf("const requires a value")
		}
		var i int64
		if err := spec.Value.Decode(&i); err == nil {
			return schema.Const(i), nil
		}
		var s string
		if err := spec.Value.Decode(&s); err == nil {
			return schema.Const(s), nil
		}
		return nil, fmt.Errorf("const value must be an integer or string")
	case "var":
		if spec.Field == "" {
			return nil, fmt.Errorf("var requires a field name")
		}
		return schema.Var(spec.Field), nil
	case "match":
		cond, err := t.node(spec.Cond, "cond")
		if err != nil {
			return nil, err
		}
		results, err := t.nodes(spec.Results, "result")
		if err != nil {
			return nil, err
		}
		return schema.Match(cond, results...), nil
	case "group":
		members, err := t.nodes(spec.Members, "member")
		if err != nil {
			return nil, err
		}
		return schema.Group(members...), nil
	case "apply":
		fn, ok := t.funcs[spec.Fn]
		if !ok {
			return nil, fmt.Errorf("unknown transform %q", spec.Fn)
		}
		args, err := t.nodes(spec.Args, "arg")
		if err != nil {
			return nil, err
		}
		return schema.Func(fn, args...), nil
	case "seek":
		offset, err := t.node(spec.Offset, "offset")
		if err != nil {
			return nil, err
		}
		whence, err := parseWhence(spec.Whence)
		if err != nil {
			return nil, err
		}
		return schema.SeekMode(offset, whence), nil
	case "peek":
		target, err := t.node(spec.Target, "target")
		if err != nil {
			return nil, err
		}
		return schema.Peek(target), nil
	case "struct":
		return t.fields(spec.Fields)
	default:
		return nil, fmt.Errorf("unknown type %q", spec.Type)
	}
}

func parseWhence(name string) (int, error) {
	switch strings.ToLower(name) {
	case "", "start":
		return io.SeekStart, nil
	case "current":
		return io.SeekCurrent, nil
	case "end":
		return io.SeekEnd, nil
	default:
		return 0, fmt.Errorf("unknown seek whence %q", name)
	}
}
