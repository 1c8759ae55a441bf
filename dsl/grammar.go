package dsl

import (
	"strconv"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

/*
This file contains a participle grammar for the bindec schema definition
language. A definition is a sequence of struct blocks; each field names a
descriptor from the engine's vocabulary. Structs may reference structs
defined earlier in the same document, and the last struct in the document
is the root record:

	struct header {
	  magic: const(0x89)
	  size:  u16be
	}

	struct frame {
	  hdr:   header
	  count: uvarint
	  items: list(var(count), str(u8))
	  crc:   bytes(4)
	}
*/

////////////////////////////////////////////////////////////////////////////////

var (
	Options = []participle.Option{ // nolint:gochecknoglobals
		participle.Lexer(
			lexer.MustSimple([]lexer.SimpleRule{
				{Name: "comment", Pattern: `#[^\n]*`},
				{Name: "whitespace", Pattern: `\s+`},
				{Name: "String", Pattern: `"(?:\\.|[^"])*"`},
				{Name: "Int", Pattern: `[-+]?(?:0x[0-9a-fA-F]+|\d+)`},
				{Name: "Ident", Pattern: `[a-zA-Z_][a-zA-Z0-9_]*`},
				{Name: "Punct", Pattern: `[{}(),:|]`},
			}),
		),
		participle.Unquote("String"),
	}
)

// Integer is an integer literal, accepting decimal and 0x hex forms.
type Integer int64

// Capture parses the literal token.
func (i *Integer) Capture(values []string) error {
	v, err := strconv.ParseInt(values[0], 0, 64)
	if err != nil {
		return err
	}
	*i = Integer(v)
	return nil
}

// Document is a parsed schema definition.
type Document struct {
	Structs []*StructDef `@@+`
}

// StructDef is a named struct block.
type StructDef struct {
	Name   string      `"struct" @Ident`
	Fields []*FieldDef `"{" @@* "}"`
}

// FieldDef is one named field within a struct block.
type FieldDef struct {
	Name string    `@Ident ":"`
	Type *TypeExpr `@@`
}

// TypeExpr is a descriptor expression.
type TypeExpr struct {
	Str    *StrExpr    `@@`
	Bytes  *BytesExpr  `| @@`
	List   *ListExpr   `| @@`
	Match  *MatchExpr  `| @@`
	Group  *GroupExpr  `| @@`
	Apply  *ApplyExpr  `| @@`
	Seek   *SeekExpr   `| @@`
	Peek   *PeekExpr   `| @@`
	Const  *ConstExpr  `| @@`
	Var    *VarExpr    `| @@`
	Inline *StructBody `| @@`
	Prim   string      `| @Ident`
}

// Arg is a descriptor argument: an integer literal or a nested descriptor.
type Arg struct {
	Int  *Integer  `@Int`
	Type *TypeExpr `| @@`
}

// StrExpr is a length-delimited text descriptor with an optional encoding.
type StrExpr struct {
	Len      *Arg    `"str" "(" @@`
	Encoding *string `("," @String)? ")"`
}

// BytesExpr is a length-delimited raw bytes descriptor.
type BytesExpr struct {
	Len *Arg `"bytes" "(" @@ ")"`
}

// ListExpr is a repeated descriptor.
type ListExpr struct {
	Count *Arg `"list" "(" @@ ","`
	Elem  *Arg `@@ ")"`
}

// MatchExpr is a conditional variant descriptor.
type MatchExpr struct {
	Cond    *Arg   `"match" "(" @@ ")"`
	Results []*Arg `"{" @@ ("|" @@)* "}"`
}

// GroupExpr is an ordered sequence descriptor.
type GroupExpr struct {
	Members []*Arg `"group" "(" @@ ("," @@)* ")"`
}

// ApplyExpr is a derived-value descriptor naming a registered transform.
type ApplyExpr struct {
	Fn   string `"apply" @Ident`
	Args []*Arg `"(" @@ ("," @@)* ")"`
}

// SeekExpr moves the stream position. The whence keyword defaults to start.
type SeekExpr struct {
	Offset *Arg    `"seek" "(" @@`
	Whence *string `("," @("start" | "current" | "end"))? ")"`
}

// PeekExpr decodes its target and rewinds.
type PeekExpr struct {
	Type *TypeExpr `"peek" "(" @@ ")"`
}

// ConstExpr is a literal descriptor.
type ConstExpr struct {
	Int *Integer `"const" "(" ( @Int`
	Str *string  `| @String ) ")"`
}

// VarExpr is a back-reference to an earlier field.
type VarExpr struct {
	Name string `"var" "(" @Ident ")"`
}

// StructBody is an inline anonymous sub-record.
type StructBody struct {
	Fields []*FieldDef `"struct" "{" @@* "}"`
}

// NewParser returns a new schema definition parser.
func NewParser() *participle.Parser[Document] {
	return participle.MustBuild[Document](Options...)
}
