package decode

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"io"
	"math"

	"github.com/wkalt/bindec/schema"
)

/*
The stream interpreter. A decode call walks a compiled schema against a
seekable byte source, one field at a time in declared order, and records
every named result in a flat binding context. The context is scoped to the
top-level call: nested sub-records share it, so a field bound deep inside a
sub-record stays visible to later fields anywhere in the call tree, and a
later binding of the same name shadows the earlier one. Schemas rely on
this, so it is preserved as-is.

All fixed-size reads are strict: fewer bytes than requested is a
ShortReadError, never silent truncation.

Decoded value types: signed integers are int64, unsigned integers and
varints are uint64, floats are float64, text and hex-mode bytes are string,
raw bytes are []byte, lists and groups are []any, sub-records are *Record
(or map[string]any in map mode), pos captures are int64, and seeks yield
the int64 sentinel -1.
*/

////////////////////////////////////////////////////////////////////////////////

type decoder struct {
	r     io.ReadSeeker
	ctx   map[string]any
	asMap bool
}

// Decode walks the compiled schema against r and returns an ordered record.
// The byte source must not be shared with a concurrent decode call.
func Decode(c *schema.Compiled, r io.ReadSeeker) (*Record, error) {
	d := &decoder{r: r, ctx: make(map[string]any)}
	v, err := d.decodeStruct(c)
	if err != nil {
		return nil, err
	}
	return v.(*Record), nil
}

// DecodeMap is Decode with map-shaped results, including nested sub-records.
func DecodeMap(c *schema.Compiled, r io.ReadSeeker) (map[string]any, error) {
	d := &decoder{r: r, ctx: make(map[string]any), asMap: true}
	v, err := d.decodeStruct(c)
	if err != nil {
		return nil, err
	}
	return v.(map[string]any), nil
}

// DecodeBytes decodes an in-memory byte block.
func DecodeBytes(c *schema.Compiled, data []byte) (*Record, error) {
	return Decode(c, bytes.NewReader(data))
}

// DecodeBytesMap decodes an in-memory byte block with map-shaped results.
func DecodeBytesMap(c *schema.Compiled, data []byte) (map[string]any, error) {
	return DecodeMap(c, bytes.NewReader(data))
}

// DecodeSchema compiles s with the supplied options and decodes r. Callers
// decoding repeatedly should compile once and use Decode.
func DecodeSchema(s *schema.Schema, r io.ReadSeeker, opts ...schema.Option) (*Record, error) {
	c, err := s.Compile(opts...)
	if err != nil {
		return nil, err
	}
	return Decode(c, r)
}

// DecodeSchemaBytes compiles s and decodes an in-memory byte block.
func DecodeSchemaBytes(s *schema.Schema, data []byte, opts ...schema.Option) (*Record, error) {
	return DecodeSchema(s, bytes.NewReader(data), opts...)
}

// decodeStruct decodes one schema's fields in declared order, binding each
// result by name. Failures wrap the field name and canonical node.
func (d *decoder) decodeStruct(c *schema.Compiled) (any, error) {
	if d.asMap {
		out := make(map[string]any, len(c.Fields))
		for _, f := range c.Fields {
			v, err := d.decodeNode(f.Node)
			if err != nil {
				return nil, FieldError{Field: f.Name, Node: f.Node, Err: err}
			}
			d.ctx[f.Name] = v
			out[f.Name] = v
		}
		return out, nil
	}
	rec := newRecord(len(c.Fields))
	for _, f := range c.Fields {
		v, err := d.decodeNode(f.Node)
		if err != nil {
			return nil, FieldError{Field: f.Name, Node: f.Node, Err: err}
		}
		d.ctx[f.Name] = v
		rec.set(f.Name, v)
	}
	return rec, nil
}

func (d *decoder) decodeNode(n *schema.CNode) (any, error) {
	switch n.Kind {
	case schema.KindInt:
		return d.decodeInt(n)
	case schema.KindFloat:
		return d.decodeFloat(n)
	case schema.KindUvarint:
		return d.decodeUvarint()
	case schema.KindStr:
		return d.decodeStr(n)
	case schema.KindBytes:
		return d.decodeBytes(n)
	case schema.KindBytesHex:
		raw, err := d.decodeBytes(n)
		if err != nil {
			return nil, err
		}
		return hex.EncodeToString(raw.([]byte)), nil
	case schema.KindList:
		return d.decodeList(n)
	case schema.KindStruct:
		return d.decodeStruct(n.Struct)
	case schema.KindConst:
		return n.Value, nil
	case schema.KindVar:
		v, ok := d.ctx[n.Name]
		if !ok {
			return nil, NameNotBoundError{Name: n.Name}
		}
		return v, nil
	case schema.KindMatch:
		return d.decodeMatch(n)
	case schema.KindFunc:
		return d.decodeFunc(n)
	case schema.KindSeek:
		return d.decodeSeek(n)
	case schema.KindPos:
		return d.tell()
	case schema.KindPeek:
		return d.decodePeek(n)
	case schema.KindGroup:
		return d.decodeGroup(n.Members)
	case schema.KindBool:
		return d.decodeBool()
	default:
		panic(fmt.Sprintf("unknown canonical node kind: %d", n.Kind))
	}
}

func (d *decoder) readFull(n int, typeName string) ([]byte, error) {
	buf := make([]byte, n)
	if _, err := io.ReadFull(d.r, buf); err != nil {
		return nil, ShortReadError{typeName}
	}
	return buf, nil
}

func (d *decoder) tell() (int64, error) {
	pos, err := d.r.Seek(0, io.SeekCurrent)
	if err != nil {
		return 0, fmt.Errorf("failed to read stream position: %w", err)
	}
	return pos, nil
}

func (d *decoder) decodeInt(n *schema.CNode) (any, error) {
	buf, err := d.readFull(n.Size, "int")
	if err != nil {
		return nil, err
	}
	var u uint64
	if n.Order == binary.ByteOrder(binary.BigEndian) {
		for _, b := range buf {
			u = u<<8 | uint64(b)
		}
	} else {
		for i := len(buf) - 1; i >= 0; i-- {
			u = u<<8 | uint64(buf[i])
		}
	}
	if !n.Signed {
		return u, nil
	}
	// Two's-complement sign extension for widths under 64 bits.
	if n.Size < 8 && u&(1<<(uint(n.Size)*8-1)) != 0 {
		u |= ^uint64(0) << (uint(n.Size) * 8)
	}
	return int64(u), nil
}

func (d *decoder) decodeFloat(n *schema.CNode) (any, error) {
	buf, err := d.readFull(n.Size, "float")
	if err != nil {
		return nil, err
	}
	if n.Size == 4 {
		return float64(math.Float32frombits(n.Order.Uint32(buf))), nil
	}
	return math.Float64frombits(n.Order.Uint64(buf)), nil
}

// decodeUvarint reads an unsigned LEB128 varint: 7 data bits per byte,
// least-significant group first, high bit as continuation.
func (d *decoder) decodeUvarint() (any, error) {
	var value uint64
	var shift uint
	buf := make([]byte, 1)
	for {
		if _, err := io.ReadFull(d.r, buf); err != nil {
			return nil, ShortReadError{"uvarint"}
		}
		b := buf[0]
		if shift > 63 {
			return nil, fmt.Errorf("uvarint overflows 64 bits")
		}
		value |= uint64(b&0x7F) << shift
		if b&0x80 == 0 {
			return value, nil
		}
		shift += 7
	}
}

func (d *decoder) decodeBool() (any, error) {
	buf, err := d.readFull(1, "bool")
	if err != nil {
		return nil, err
	}
	return buf[0] != 0, nil
}

// decodeLength evaluates a length/count descriptor to a non-negative int.
func (d *decoder) decodeLength(n *schema.CNode, what string) (int, error) {
	v, err := d.decodeNode(n)
	if err != nil {
		return 0, err
	}
	count, ok := asInt(v)
	if !ok {
		return 0, fmt.Errorf("%s did not decode to an integer: %T", what, v)
	}
	if count < 0 {
		return 0, fmt.Errorf("negative %s: %d", what, count)
	}
	if count > math.MaxInt {
		return 0, fmt.Errorf("%s exceeds int range: %d", what, count)
	}
	return int(count), nil
}

func (d *decoder) decodeStr(n *schema.CNode) (any, error) {
	length, err := d.decodeLength(n.Len, "string length")
	if err != nil {
		return nil, err
	}
	buf, err := d.readFull(length, "str")
	if err != nil {
		return nil, err
	}
	return decodeText(buf, n.Encoding)
}

func (d *decoder) decodeBytes(n *schema.CNode) (any, error) {
	length, err := d.decodeLength(n.Len, "bytes length")
	if err != nil {
		return nil, err
	}
	buf, err := d.readFull(length, "bytes")
	if err != nil {
		return nil, err
	}
	return buf, nil
}

func (d *decoder) decodeList(n *schema.CNode) (any, error) {
	count, err := d.decodeLength(n.Count, "list count")
	if err != nil {
		return nil, err
	}
	// Cap the preallocation so a hostile count fails on the first short
	// element read instead of in make.
	capacity := count
	if capacity > 4096 {
		capacity = 4096
	}
	items := make([]any, 0, capacity)
	for i := 0; i < count; i++ {
		item, err := d.decodeNode(n.Elem)
		if err != nil {
			return nil, fmt.Errorf("list item %d: %w", i, err)
		}
		items = append(items, item)
	}
	return items, nil
}

func (d *decoder) decodeMatch(n *schema.CNode) (any, error) {
	v, err := d.decodeNode(n.Cond)
	if err != nil {
		return nil, fmt.Errorf("match condition: %w", err)
	}
	index, ok := asInt(v)
	if !ok {
		return nil, fmt.Errorf("match condition did not decode to an integer: %T", v)
	}
	if index < 0 || index >= int64(len(n.Results)) {
		return nil, VariantRangeError{Index: index, Branches: len(n.Results)}
	}
	return d.decodeNode(n.Results[index])
}

func (d *decoder) decodeGroup(members []*schema.CNode) ([]any, error) {
	values := make([]any, 0, len(members))
	for i, m := range members {
		v, err := d.decodeNode(m)
		if err != nil {
			return nil, fmt.Errorf("group member %d: %w", i, err)
		}
		values = append(values, v)
	}
	return values, nil
}

func (d *decoder) decodeFunc(n *schema.CNode) (any, error) {
	args, err := d.decodeGroup(n.Args.Members)
	if err != nil {
		return nil, err
	}
	v, err := n.Fn(args...)
	if err != nil {
		return nil, TransformError{Err: err}
	}
	return v, nil
}

func (d *decoder) decodeSeek(n *schema.CNode) (any, error) {
	v, err := d.decodeNode(n.Offset)
	if err != nil {
		return nil, fmt.Errorf("seek offset: %w", err)
	}
	offset, ok := asInt(v)
	if !ok {
		return nil, fmt.Errorf("seek offset did not decode to an integer: %T", v)
	}
	if _, err := d.r.Seek(offset, n.Whence); err != nil {
		return nil, fmt.Errorf("seek failure: %w", err)
	}
	// Seeks produce no data; the sentinel should not be treated as a value.
	return int64(-1), nil
}

func (d *decoder) decodePeek(n *schema.CNode) (any, error) {
	pos, err := d.tell()
	if err != nil {
		return nil, err
	}
	v, err := d.decodeNode(n.Elem)
	if err != nil {
		return nil, err
	}
	if _, err := d.r.Seek(pos, io.SeekStart); err != nil {
		return nil, fmt.Errorf("failed to rewind after peek: %w", err)
	}
	return v, nil
}

// asInt normalizes the integer-valued decode results usable as counts,
// offsets, and match indexes.
func asInt(v any) (int64, bool) {
	switch v := v.(type) {
	case int64:
		return v, true
	case uint64:
		if v > math.MaxInt64 {
			return 0, false
		}
		return int64(v), true
	case int:
		return int64(v), true
	default:
		return 0, false
	}
}
