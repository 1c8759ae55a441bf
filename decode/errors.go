package decode

import (
	"fmt"

	"github.com/wkalt/bindec/schema"
)

/*
Decode failures are typed so callers can distinguish truncated input from
schema-level problems. No failure is recovered internally: the first failing
field aborts the whole decode call and surfaces wrapped in a FieldError
identifying the schema position.
*/

////////////////////////////////////////////////////////////////////////////////

// ShortReadError indicates the byte source could not supply the bytes a
// decoding routine required.
type ShortReadError struct {
	typeName string
}

func (e ShortReadError) Error() string {
	return "short read on " + e.typeName
}

func (e ShortReadError) Is(target error) bool {
	_, ok := target.(ShortReadError)
	return ok
}

// NameNotBoundError indicates a back-reference to a field that has not been
// decoded earlier in the call. Forward references are not supported.
type NameNotBoundError struct {
	Name string
}

func (e NameNotBoundError) Error() string {
	return fmt.Sprintf("name %q not bound", e.Name)
}

func (e NameNotBoundError) Is(target error) bool {
	_, ok := target.(NameNotBoundError)
	return ok
}

// VariantRangeError indicates a match condition value that does not index
// any result branch.
type VariantRangeError struct {
	Index    int64
	Branches int
}

func (e VariantRangeError) Error() string {
	return fmt.Sprintf("variant index %d out of range for %d branches", e.Index, e.Branches)
}

func (e VariantRangeError) Is(target error) bool {
	_, ok := target.(VariantRangeError)
	return ok
}

// TextDecodingError indicates bytes that are not valid under the resolved
// text encoding, or an encoding the runtime does not know.
type TextDecodingError struct {
	Encoding string
	Err      error
}

func (e TextDecodingError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid %s text: %s", e.Encoding, e.Err)
	}
	return fmt.Sprintf("invalid %s text", e.Encoding)
}

func (e TextDecodingError) Is(target error) bool {
	_, ok := target.(TextDecodingError)
	return ok
}

func (e TextDecodingError) Unwrap() error {
	return e.Err
}

// TransformError indicates a derived-value transform that failed. The
// transform's own error is preserved as the cause.
type TransformError struct {
	Err error
}

func (e TransformError) Error() string {
	return "transform failed: " + e.Err.Error()
}

func (e TransformError) Is(target error) bool {
	_, ok := target.(TransformError)
	return ok
}

func (e TransformError) Unwrap() error {
	return e.Err
}

// FieldError wraps any failure raised while decoding a single field. It
// carries the field name and the failing canonical node; the original error
// is preserved as the cause. Nested sub-record failures produce a chain of
// FieldErrors, outermost field first.
type FieldError struct {
	Field string
	Node  *schema.CNode
	Err   error
}

func (e FieldError) Error() string {
	return fmt.Sprintf("field %s: %s", e.Field, e.Err)
}

func (e FieldError) Is(target error) bool {
	_, ok := target.(FieldError)
	return ok
}

func (e FieldError) Unwrap() error {
	return e.Err
}

// Detail describes the failing schema position, for error responses.
func (e FieldError) Detail() string {
	return fmt.Sprintf("failed decoding field %q (%s descriptor)", e.Field, e.Node.Kind)
}
