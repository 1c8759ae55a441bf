package decode_test

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/wkalt/bindec/decode"
	"github.com/wkalt/bindec/schema"
	"google.golang.org/protobuf/encoding/protowire"
)

func mustCompile(t *testing.T, s *schema.Schema, opts ...schema.Option) *schema.Compiled {
	t.Helper()
	compiled, err := s.Compile(opts...)
	require.NoError(t, err)
	return compiled
}

func decodeOne(t *testing.T, node *schema.Node, data []byte, opts ...schema.Option) any {
	t.Helper()
	compiled := mustCompile(t, schema.New().Add("x", node), opts...)
	rec, err := decode.DecodeBytes(compiled, data)
	require.NoError(t, err)
	v, ok := rec.Get("x")
	require.True(t, ok)
	return v
}

func TestIntegers(t *testing.T) {
	t.Run("unsigned widths little endian", func(t *testing.T) {
		buf := make([]byte, 8)
		binary.LittleEndian.PutUint64(buf, 0xdeadbeefcafef00d)
		require.Equal(t, uint64(0x0d), decodeOne(t, schema.UInt(8), buf))
		require.Equal(t, uint64(0xf00d), decodeOne(t, schema.UInt(16), buf))
		require.Equal(t, uint64(0xcafef00d), decodeOne(t, schema.UInt(32), buf))
		require.Equal(t, uint64(0xdeadbeefcafef00d), decodeOne(t, schema.UInt(64), buf))
	})
	t.Run("unsigned widths big endian", func(t *testing.T) {
		buf := make([]byte, 8)
		binary.BigEndian.PutUint64(buf, 0xdeadbeefcafef00d)
		require.Equal(t, uint64(0xde), decodeOne(t, schema.UIntBE(8), buf))
		require.Equal(t, uint64(0xdead), decodeOne(t, schema.UIntBE(16), buf))
		require.Equal(t, uint64(0xdeadbeef), decodeOne(t, schema.UIntBE(32), buf))
		require.Equal(t, uint64(0xdeadbeefcafef00d), decodeOne(t, schema.UIntBE(64), buf))
	})
	t.Run("signed values sign extend", func(t *testing.T) {
		require.Equal(t, int64(-1), decodeOne(t, schema.Int(8), []byte{0xff}))
		require.Equal(t, int64(-2), decodeOne(t, schema.Int(16), []byte{0xfe, 0xff}))
		require.Equal(t, int64(-2), decodeOne(t, schema.IntBE(16), []byte{0xff, 0xfe}))
		require.Equal(t, int64(127), decodeOne(t, schema.Int(8), []byte{0x7f}))
		require.Equal(t, int64(math.MinInt64),
			decodeOne(t, schema.IntBE(64), []byte{0x80, 0, 0, 0, 0, 0, 0, 0}))
	})
	t.Run("explicit order beats compile default", func(t *testing.T) {
		data := []byte{0x01, 0x02}
		require.Equal(t, uint64(0x0102), decodeOne(t, schema.UIntBE(16), data))
		require.Equal(t, uint64(0x0102),
			decodeOne(t, schema.UIntBE(16), data, schema.WithByteOrder(binary.LittleEndian)))
		require.Equal(t, uint64(0x0102),
			decodeOne(t, schema.UInt(16), data, schema.WithByteOrder(binary.BigEndian)))
	})
	t.Run("odd width 24 bits", func(t *testing.T) {
		require.Equal(t, uint64(0x030201), decodeOne(t, schema.UInt(24), []byte{0x01, 0x02, 0x03}))
		require.Equal(t, int64(-1), decodeOne(t, schema.Int(24), []byte{0xff, 0xff, 0xff}))
	})
	t.Run("truncated input", func(t *testing.T) {
		compiled := mustCompile(t, schema.New().Add("x", schema.UInt(32)))
		_, err := decode.DecodeBytes(compiled, []byte{0x01, 0x02})
		require.ErrorIs(t, err, decode.ShortReadError{})
	})
}

func TestFloats(t *testing.T) {
	cases := []float64{0, 1.5, -2.25, math.Pi, math.Inf(1)}
	for _, want := range cases {
		t.Run(fmt.Sprintf("f64 %v", want), func(t *testing.T) {
			buf := make([]byte, 8)
			binary.LittleEndian.PutUint64(buf, math.Float64bits(want))
			require.Equal(t, want, decodeOne(t, schema.Float(64), buf))

			binary.BigEndian.PutUint64(buf, math.Float64bits(want))
			require.Equal(t, want, decodeOne(t, schema.FloatBE(64), buf))
		})
	}
	t.Run("f32 widens to float64", func(t *testing.T) {
		buf := make([]byte, 4)
		binary.LittleEndian.PutUint32(buf, math.Float32bits(1.25))
		require.Equal(t, float64(1.25), decodeOne(t, schema.Float(32), buf))
	})
	t.Run("float order follows int order by default", func(t *testing.T) {
		buf := make([]byte, 8)
		binary.BigEndian.PutUint64(buf, math.Float64bits(3.5))
		require.Equal(t, 3.5,
			decodeOne(t, schema.Float(64), buf, schema.WithByteOrder(binary.BigEndian)))
	})
	t.Run("float order override is independent", func(t *testing.T) {
		buf := make([]byte, 8)
		binary.BigEndian.PutUint64(buf, math.Float64bits(3.5))
		require.Equal(t, 3.5,
			decodeOne(t, schema.Float(64), buf, schema.WithFloatByteOrder(binary.BigEndian)))
	})
}

func TestUvarint(t *testing.T) {
	t.Run("round trip against protowire", func(t *testing.T) {
		for _, want := range []uint64{0, 1, 127, 128, 300, 1 << 20, math.MaxUint64} {
			data := protowire.AppendVarint(nil, want)
			require.Equal(t, want, decodeOne(t, schema.Uvarint(), data))
		}
	})
	t.Run("truncated varint", func(t *testing.T) {
		compiled := mustCompile(t, schema.New().Add("x", schema.Uvarint()))
		_, err := decode.DecodeBytes(compiled, []byte{0x80, 0x80})
		require.ErrorIs(t, err, decode.ShortReadError{})
	})
	t.Run("overlong varint", func(t *testing.T) {
		data := bytes.Repeat([]byte{0x80}, 10)
		data = append(data, 0x01)
		compiled := mustCompile(t, schema.New().Add("x", schema.Uvarint()))
		_, err := decode.DecodeBytes(compiled, data)
		require.ErrorContains(t, err, "overflows 64 bits")
	})
}

func TestBool(t *testing.T) {
	require.Equal(t, false, decodeOne(t, schema.Bool(), []byte{0x00}))
	require.Equal(t, true, decodeOne(t, schema.Bool(), []byte{0x01}))
	require.Equal(t, true, decodeOne(t, schema.Bool(), []byte{0xff}))
}

func TestStrings(t *testing.T) {
	t.Run("length prefix from stream", func(t *testing.T) {
		require.Equal(t, "hello", decodeOne(t, schema.Str(schema.UInt(8)), []byte("\x05hello")))
	})
	t.Run("constant length", func(t *testing.T) {
		require.Equal(t, "hi", decodeOne(t, schema.Str(2), []byte("hi there")))
	})
	t.Run("invalid utf-8", func(t *testing.T) {
		compiled := mustCompile(t, schema.New().Add("x", schema.Str(2)))
		_, err := decode.DecodeBytes(compiled, []byte{0xff, 0xfe})
		require.ErrorIs(t, err, decode.TextDecodingError{})
	})
	t.Run("latin-1 via encoding override", func(t *testing.T) {
		v := decodeOne(t, schema.StrEnc(2, "latin1"), []byte{0xe9, 0x21})
		require.Equal(t, "é!", v)
	})
	t.Run("unknown encoding", func(t *testing.T) {
		compiled := mustCompile(t, schema.New().Add("x", schema.Str(1)),
			schema.WithEncoding("not-a-charset"))
		_, err := decode.DecodeBytes(compiled, []byte{0x41})
		require.ErrorIs(t, err, decode.TextDecodingError{})
	})
	t.Run("short payload", func(t *testing.T) {
		compiled := mustCompile(t, schema.New().Add("x", schema.Str(schema.UInt(8))))
		_, err := decode.DecodeBytes(compiled, []byte{0x05, 'h', 'i'})
		require.ErrorIs(t, err, decode.ShortReadError{})
	})
}

func TestBytes(t *testing.T) {
	t.Run("raw bytes", func(t *testing.T) {
		v := decodeOne(t, schema.Bytes(3), []byte{0xde, 0xad, 0xbe, 0xef})
		require.Equal(t, []byte{0xde, 0xad, 0xbe}, v)
	})
	t.Run("hex mode", func(t *testing.T) {
		v := decodeOne(t, schema.Bytes(3), []byte{0xde, 0xad, 0xbe}, schema.WithBytesAsHex())
		require.Equal(t, "deadbe", v)
	})
	t.Run("negative length from reference", func(t *testing.T) {
		s := schema.New().
			Add("n", schema.Int(8)).
			Add("data", schema.Bytes(schema.Var("n")))
		compiled := mustCompile(t, s)
		_, err := decode.DecodeBytes(compiled, []byte{0xff})
		require.ErrorContains(t, err, "negative")
	})
}

func TestLists(t *testing.T) {
	t.Run("count from stream", func(t *testing.T) {
		v := decodeOne(t, schema.List(schema.UInt(8), schema.UInt(8)), []byte{3, 1, 2, 3})
		require.Equal(t, []any{uint64(1), uint64(2), uint64(3)}, v)
	})
	t.Run("constant count zero", func(t *testing.T) {
		v := decodeOne(t, schema.List(schema.Const(0), schema.UInt(8)), []byte{})
		require.Equal(t, []any{}, v)
	})
	t.Run("constant count consumes exactly", func(t *testing.T) {
		s := schema.New().
			Add("xs", schema.List(schema.Const(3), schema.UInt(8))).
			Add("tail", schema.UInt(8))
		rec, err := decode.DecodeBytes(mustCompile(t, s), []byte{1, 2, 3, 9})
		require.NoError(t, err)
		tail, _ := rec.Get("tail")
		require.Equal(t, uint64(9), tail)
	})
	t.Run("short element aborts", func(t *testing.T) {
		compiled := mustCompile(t, schema.New().Add("x", schema.List(schema.Const(3), schema.UInt(16))))
		_, err := decode.DecodeBytes(compiled, []byte{1, 0, 2})
		require.ErrorIs(t, err, decode.ShortReadError{})
		require.ErrorContains(t, err, "list item 1")
	})
	t.Run("huge count fails without allocating", func(t *testing.T) {
		compiled := mustCompile(t, schema.New().Add("x", schema.List(schema.Const(int64(1)<<40), schema.UInt(8))))
		_, err := decode.DecodeBytes(compiled, []byte{})
		require.Error(t, err)
	})
	t.Run("list of structs", func(t *testing.T) {
		elem := schema.New().
			Add("a", schema.UInt(8)).
			Add("b", schema.UInt(8))
		v := decodeOne(t, schema.List(schema.Const(2), elem), []byte{1, 2, 3, 4})
		items, ok := v.([]any)
		require.True(t, ok)
		require.Len(t, items, 2)
		second := items[1].(*decode.Record)
		b, _ := second.Get("b")
		require.Equal(t, uint64(4), b)
	})
}

func TestConstAndVar(t *testing.T) {
	t.Run("const reads nothing", func(t *testing.T) {
		s := schema.New().
			Add("tag", schema.Const("header")).
			Add("n", schema.UInt(8))
		rec, err := decode.DecodeBytes(mustCompile(t, s), []byte{7})
		require.NoError(t, err)
		tag, _ := rec.Get("tag")
		require.Equal(t, "header", tag)
		n, _ := rec.Get("n")
		require.Equal(t, uint64(7), n)
	})
	t.Run("bare literal lowers to const", func(t *testing.T) {
		s := schema.New().Add("version", 3)
		rec, err := decode.DecodeBytes(mustCompile(t, s), []byte{})
		require.NoError(t, err)
		v, _ := rec.Get("version")
		require.Equal(t, int64(3), v)
	})
	t.Run("var reads back a binding", func(t *testing.T) {
		s := schema.New().
			Add("n", schema.UInt(8)).
			Add("again", schema.Var("n"))
		rec, err := decode.DecodeBytes(mustCompile(t, s), []byte{42})
		require.NoError(t, err)
		v, _ := rec.Get("again")
		require.Equal(t, uint64(42), v)
	})
	t.Run("unbound name", func(t *testing.T) {
		compiled := mustCompile(t, schema.New().Add("x", schema.Var("missing")))
		_, err := decode.DecodeBytes(compiled, []byte{})
		require.ErrorIs(t, err, decode.NameNotBoundError{})
	})
	t.Run("bindings cross sub-record boundaries", func(t *testing.T) {
		inner := schema.New().Add("c", schema.Var("a"))
		s := schema.New().
			Add("a", schema.UInt(8)).
			Add("b", inner).
			Add("after", schema.Var("c"))
		rec, err := decode.DecodeBytes(mustCompile(t, s), []byte{5})
		require.NoError(t, err)
		b, _ := rec.Get("b")
		c, _ := b.(*decode.Record).Get("c")
		require.Equal(t, uint64(5), c)
		after, _ := rec.Get("after")
		require.Equal(t, uint64(5), after)
	})
	t.Run("later binding shadows earlier", func(t *testing.T) {
		inner := schema.New().Add("a", schema.UInt(8))
		s := schema.New().
			Add("a", schema.UInt(8)).
			Add("sub", inner).
			Add("ref", schema.Var("a"))
		rec, err := decode.DecodeBytes(mustCompile(t, s), []byte{1, 2})
		require.NoError(t, err)
		ref, _ := rec.Get("ref")
		require.Equal(t, uint64(2), ref)
	})
}

func TestMatch(t *testing.T) {
	branches := []any{"x", "y", "z"}
	t.Run("selects by index", func(t *testing.T) {
		v := decodeOne(t, schema.Match(schema.Const(1), branches...), []byte{})
		require.Equal(t, "y", v)
	})
	t.Run("condition from stream", func(t *testing.T) {
		v := decodeOne(t, schema.Match(schema.UInt(8), branches...), []byte{2})
		require.Equal(t, "z", v)
	})
	t.Run("out of range", func(t *testing.T) {
		compiled := mustCompile(t, schema.New().Add("x", schema.Match(schema.Const(5), branches...)))
		_, err := decode.DecodeBytes(compiled, []byte{})
		require.ErrorIs(t, err, decode.VariantRangeError{})
		var vre decode.VariantRangeError
		require.ErrorAs(t, err, &vre)
		require.Equal(t, int64(5), vre.Index)
		require.Equal(t, 3, vre.Branches)
	})
	t.Run("selected branch decodes from stream", func(t *testing.T) {
		m := schema.Match(schema.UInt(8), schema.UInt(16), schema.Str(schema.UInt(8)))
		require.Equal(t, "ok", decodeOne(t, m, []byte{1, 2, 'o', 'k'}))
	})
}

func TestFuncAndGroup(t *testing.T) {
	sum := func(args ...any) (any, error) {
		var total int64 = 0
		for _, a := range args {
			switch v := a.(type) {
			case uint64:
				total += int64(v)
			case int64:
				total += v
			}
		}
		return total, nil
	}
	t.Run("group decodes members in order", func(t *testing.T) {
		v := decodeOne(t, schema.Group(schema.UInt(8), schema.UInt(8)), []byte{1, 2})
		require.Equal(t, []any{uint64(1), uint64(2)}, v)
	})
	t.Run("func applies transform to group", func(t *testing.T) {
		v := decodeOne(t, schema.Func(sum, schema.UInt(8), schema.UInt(8), schema.Const(10)), []byte{1, 2})
		require.Equal(t, int64(13), v)
	})
	t.Run("transform failure propagates", func(t *testing.T) {
		boom := errors.New("boom")
		fail := func(args ...any) (any, error) { return nil, boom }
		compiled := mustCompile(t, schema.New().Add("x", schema.Func(fail)))
		_, err := decode.DecodeBytes(compiled, []byte{})
		require.ErrorIs(t, err, decode.TransformError{})
		require.ErrorIs(t, err, boom)
	})
}

func TestSeekPosPeek(t *testing.T) {
	t.Run("seek then pos", func(t *testing.T) {
		s := schema.New().
			Add("skip", schema.Seek(schema.Const(4))).
			Add("where", schema.Pos())
		rec, err := decode.DecodeBytes(mustCompile(t, s), []byte{0, 1, 2, 3, 4, 5})
		require.NoError(t, err)
		skip, _ := rec.Get("skip")
		require.Equal(t, int64(-1), skip)
		where, _ := rec.Get("where")
		require.Equal(t, int64(4), where)
	})
	t.Run("seek from end", func(t *testing.T) {
		s := schema.New().
			Add("skip", schema.SeekMode(schema.Const(-1), io.SeekEnd)).
			Add("last", schema.UInt(8))
		rec, err := decode.DecodeBytes(mustCompile(t, s), []byte{1, 2, 3})
		require.NoError(t, err)
		last, _ := rec.Get("last")
		require.Equal(t, uint64(3), last)
	})
	t.Run("invalid whence treated as start", func(t *testing.T) {
		s := schema.New().
			Add("skip", schema.SeekMode(schema.Const(1), 99)).
			Add("v", schema.UInt(8))
		rec, err := decode.DecodeBytes(mustCompile(t, s), []byte{1, 2, 3})
		require.NoError(t, err)
		v, _ := rec.Get("v")
		require.Equal(t, uint64(2), v)
	})
	t.Run("peek restores position", func(t *testing.T) {
		s := schema.New().
			Add("ahead", schema.Peek(schema.UInt(16))).
			Add("first", schema.UInt(8))
		rec, err := decode.DecodeBytes(mustCompile(t, s), []byte{0x01, 0x02})
		require.NoError(t, err)
		ahead, _ := rec.Get("ahead")
		require.Equal(t, uint64(0x0201), ahead)
		first, _ := rec.Get("first")
		require.Equal(t, uint64(1), first)
	})
	t.Run("peek restores position across nested seeks", func(t *testing.T) {
		s := schema.New().
			Add("first", schema.UInt(8)).
			Add("ahead", schema.Peek(schema.Group(schema.Seek(schema.Const(0)), schema.UInt(8)))).
			Add("second", schema.UInt(8))
		rec, err := decode.DecodeBytes(mustCompile(t, s), []byte{0xaa, 0xbb})
		require.NoError(t, err)
		ahead, _ := rec.Get("ahead")
		require.Equal(t, []any{int64(-1), uint64(0xaa)}, ahead)
		second, _ := rec.Get("second")
		require.Equal(t, uint64(0xbb), second)
	})
	t.Run("pos consumes nothing", func(t *testing.T) {
		s := schema.New().
			Add("p0", schema.Pos()).
			Add("v", schema.UInt(8)).
			Add("p1", schema.Pos())
		rec, err := decode.DecodeBytes(mustCompile(t, s), []byte{9})
		require.NoError(t, err)
		p0, _ := rec.Get("p0")
		p1, _ := rec.Get("p1")
		require.Equal(t, int64(0), p0)
		require.Equal(t, int64(1), p1)
	})
}

func TestEndToEnd(t *testing.T) {
	t.Run("length prefixed list", func(t *testing.T) {
		s := schema.New().
			Add("count", schema.UInt(8)).
			Add("items", schema.List(schema.Var("count"), schema.UInt(8)))
		rec, err := decode.DecodeBytes(mustCompile(t, s), []byte{0x03, 0x01, 0x02, 0x03})
		require.NoError(t, err)
		count, _ := rec.Get("count")
		require.Equal(t, uint64(3), count)
		items, _ := rec.Get("items")
		require.Equal(t, []any{uint64(1), uint64(2), uint64(3)}, items)
	})
	t.Run("map mode nests maps", func(t *testing.T) {
		inner := schema.New().Add("v", schema.UInt(8))
		s := schema.New().Add("sub", inner)
		m, err := decode.DecodeBytesMap(mustCompile(t, s), []byte{7})
		require.NoError(t, err)
		require.Equal(t, map[string]any{"sub": map[string]any{"v": uint64(7)}}, m)
	})
	t.Run("decode schema convenience", func(t *testing.T) {
		s := schema.New().Add("v", schema.UInt(16))
		rec, err := decode.DecodeSchemaBytes(s, []byte{0x01, 0x00}, schema.WithByteOrder(binary.BigEndian))
		require.NoError(t, err)
		v, _ := rec.Get("v")
		require.Equal(t, uint64(0x100), v)
	})
}

func TestFieldErrors(t *testing.T) {
	t.Run("wraps field name and cause", func(t *testing.T) {
		s := schema.New().
			Add("ok", schema.UInt(8)).
			Add("bad", schema.UInt(32))
		_, err := decode.DecodeBytes(mustCompile(t, s), []byte{1, 2})
		require.ErrorIs(t, err, decode.FieldError{})
		require.ErrorIs(t, err, decode.ShortReadError{})
		var fe decode.FieldError
		require.ErrorAs(t, err, &fe)
		require.Equal(t, "bad", fe.Field)
	})
	t.Run("nested failures chain outermost first", func(t *testing.T) {
		inner := schema.New().Add("deep", schema.UInt(16))
		s := schema.New().Add("sub", inner)
		_, err := decode.DecodeBytes(mustCompile(t, s), []byte{1})
		require.ErrorContains(t, err, "field sub")
		require.ErrorContains(t, err, "field deep")
	})
}

func TestRecord(t *testing.T) {
	s := schema.New().
		Add("b", schema.UInt(8)).
		Add("a", schema.UInt(8))
	rec, err := decode.DecodeBytes(mustCompile(t, s), []byte{1, 2})
	require.NoError(t, err)
	t.Run("preserves declaration order", func(t *testing.T) {
		require.Equal(t, []string{"b", "a"}, rec.Names())
		name, v := rec.FieldAt(1)
		require.Equal(t, "a", name)
		require.Equal(t, uint64(2), v)
	})
	t.Run("json preserves order", func(t *testing.T) {
		data, err := rec.MarshalJSON()
		require.NoError(t, err)
		require.Equal(t, `{"b":1,"a":2}`, string(data))
	})
	t.Run("map conversion", func(t *testing.T) {
		require.Equal(t, map[string]any{"b": uint64(1), "a": uint64(2)}, rec.Map())
	})
}
