package decode

import (
	"bytes"

	"github.com/goccy/go-json"
)

/*
Record is the structured result of a decode call: one entry per schema
field, in declared order. It marshals to a JSON object preserving that
order, which map results cannot do.
*/

////////////////////////////////////////////////////////////////////////////////

// Record holds decoded field values in schema order.
type Record struct {
	names  []string
	values []any
	index  map[string]int
}

func newRecord(capacity int) *Record {
	return &Record{
		names:  make([]string, 0, capacity),
		values: make([]any, 0, capacity),
		index:  make(map[string]int, capacity),
	}
}

func (r *Record) set(name string, value any) {
	r.index[name] = len(r.names)
	r.names = append(r.names, name)
	r.values = append(r.values, value)
}

// Len returns the number of fields.
func (r *Record) Len() int {
	return len(r.names)
}

// Get returns the value of the named field.
func (r *Record) Get(name string) (any, bool) {
	i, ok := r.index[name]
	if !ok {
		return nil, false
	}
	return r.values[i], true
}

// Names returns the field names in schema order.
func (r *Record) Names() []string {
	return r.names
}

// FieldAt returns the name and value at position i.
func (r *Record) FieldAt(i int) (string, any) {
	return r.names[i], r.values[i]
}

// Map returns the record as a map. Nested records are converted
// recursively; field order is lost.
func (r *Record) Map() map[string]any {
	out := make(map[string]any, len(r.names))
	for i, name := range r.names {
		out[name] = mapValue(r.values[i])
	}
	return out
}

func mapValue(v any) any {
	switch v := v.(type) {
	case *Record:
		return v.Map()
	case []any:
		out := make([]any, len(v))
		for i, e := range v {
			out[i] = mapValue(e)
		}
		return out
	default:
		return v
	}
}

// MarshalJSON renders the record as a JSON object with fields in schema
// order.
func (r *Record) MarshalJSON() ([]byte, error) {
	buf := &bytes.Buffer{}
	buf.WriteByte('{')
	for i, name := range r.names {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(name)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		value, err := json.Marshal(r.values[i])
		if err != nil {
			return nil, err
		}
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
