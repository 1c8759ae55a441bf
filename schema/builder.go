package schema

import "io"

/*
Constructor functions for descriptor nodes. These carry no decoding behavior
of their own; they only populate Node values. The sized-primitive builders
take a width in bits and fix signedness and byte order by which constructor
was used. Widths are validated at compile time, not here.
*/

////////////////////////////////////////////////////////////////////////////////

func intNode(bits int, order Order, signed bool) *Node {
	return &Node{Kind: KindInt, Bits: bits, Order: order, Signed: signed}
}

// Int returns a signed integer descriptor in the compile-call byte order.
func Int(bits int) *Node { return intNode(bits, OrderDefault, true) }

// UInt returns an unsigned integer descriptor in the compile-call byte order.
func UInt(bits int) *Node { return intNode(bits, OrderDefault, false) }

// IntBE returns a signed big-endian integer descriptor.
func IntBE(bits int) *Node { return intNode(bits, OrderBig, true) }

// IntLE returns a signed little-endian integer descriptor.
func IntLE(bits int) *Node { return intNode(bits, OrderLittle, true) }

// UIntBE returns an unsigned big-endian integer descriptor.
func UIntBE(bits int) *Node { return intNode(bits, OrderBig, false) }

// UIntLE returns an unsigned little-endian integer descriptor.
func UIntLE(bits int) *Node { return intNode(bits, OrderLittle, false) }

// Float returns an IEEE-754 float descriptor in the compile-call float order.
func Float(bits int) *Node { return &Node{Kind: KindFloat, Bits: bits} }

// FloatBE returns a big-endian float descriptor.
func FloatBE(bits int) *Node { return &Node{Kind: KindFloat, Bits: bits, Order: OrderBig} }

// FloatLE returns a little-endian float descriptor.
func FloatLE(bits int) *Node { return &Node{Kind: KindFloat, Bits: bits, Order: OrderLittle} }

// Str returns a length-delimited text descriptor. The length may be a
// descriptor, a literal, or anything else that lowers to one.
func Str(length any) *Node { return &Node{Kind: KindStr, Len: length} }

// StrEnc returns a text descriptor with an explicit encoding, overriding the
// compile-call default.
func StrEnc(length any, encoding string) *Node {
	return &Node{Kind: KindStr, Len: length, Encoding: encoding}
}

// Bytes returns a length-delimited raw bytes descriptor. Whether it decodes
// to raw bytes or a lowercase hex string is decided by the compile-call hex
// flag, for all bytes fields at once.
func Bytes(length any) *Node { return &Node{Kind: KindBytes, Len: length} }

// List returns a repeated descriptor: count is decoded first, then the
// element descriptor is decoded that many times.
func List(count, elem any) *Node { return &Node{Kind: KindList, Count: count, Elem: elem} }

// Const returns a descriptor for a literal value that is never read from the
// stream. Bare int and string literals in descriptor slots lower to this
// automatically.
func Const(v any) *Node { return &Node{Kind: KindConst, Value: v} }

// Var returns a back-reference to a previously decoded field. The name is
// resolved in the per-call binding context, which is flat across sub-record
// nesting.
func Var(name string) *Node { return &Node{Kind: KindVar, Name: name} }

// Match returns a conditional variant descriptor. The condition is decoded
// to an integer which indexes directly into results; an out-of-range index
// is a decode failure.
func Match(cond any, results ...any) *Node {
	return &Node{Kind: KindMatch, Cond: cond, Results: results}
}

// Func returns a derived-value descriptor. The arguments are decoded as a
// group and passed positionally to fn.
func Func(fn Transform, args ...any) *Node {
	return &Node{Kind: KindFunc, Fn: fn, Args: args}
}

// Group returns an ordered sequence descriptor. Members decode in order into
// a slice; a group binds no names of its own.
func Group(members ...any) *Node { return &Node{Kind: KindGroup, Members: members} }

// Seek returns an absolute seek descriptor.
func Seek(offset any) *Node { return SeekMode(offset, io.SeekStart) }

// SeekMode returns a seek descriptor with an explicit whence. Values outside
// {SeekStart, SeekCurrent, SeekEnd} are normalized to SeekStart.
func SeekMode(offset any, whence int) *Node {
	if whence != io.SeekStart && whence != io.SeekCurrent && whence != io.SeekEnd {
		whence = io.SeekStart
	}
	return &Node{Kind: KindSeek, Offset: offset, Whence: whence}
}

// Peek returns a lookahead descriptor: v is decoded and the stream position
// is then restored, regardless of how many bytes the nested decode moved.
func Peek(v any) *Node { return &Node{Kind: KindPeek, Elem: v} }

// Uvarint returns an unsigned LEB128 varint descriptor.
func Uvarint() *Node { return &Node{Kind: KindUvarint} }

// Pos returns a descriptor that captures the current absolute stream offset
// without consuming input.
func Pos() *Node { return &Node{Kind: KindPos} }

// Bool returns a single-byte boolean descriptor.
func Bool() *Node { return &Node{Kind: KindBool} }
