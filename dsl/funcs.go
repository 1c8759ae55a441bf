package dsl

import (
	"fmt"
	"unicode/utf8"

	"github.com/relvacode/iso8601"
	"github.com/wkalt/bindec/schema"
)

/*
Named transforms for apply expressions. Schema text cannot carry closures,
so derived fields in the DSL name a transform registered in a FuncMap.
Callers may extend Builtins or supply their own map.
*/

////////////////////////////////////////////////////////////////////////////////

// FuncMap maps transform names to their implementations.
type FuncMap map[string]schema.Transform

// Builtins returns the standard transform set.
func Builtins() FuncMap {
	return FuncMap{
		"add":     addTransform,
		"mul":     mulTransform,
		"utf8":    utf8Transform,
		"iso8601": iso8601Transform,
	}
}

func numeric(v any) (float64, bool, error) {
	switch v := v.(type) {
	case int64:
		return float64(v), true, nil
	case uint64:
		return float64(v), true, nil
	case int:
		return float64(v), true, nil
	case float64:
		return float64(v), false, nil
	default:
		return 0, false, fmt.Errorf("expected a numeric argument, got %T", v)
	}
}

// addTransform sums its arguments. The result is an int64 if all arguments
// are integers, else a float64.
func addTransform(args ...any) (any, error) {
	var sum float64
	integral := true
	for _, a := range args {
		f, isInt, err := numeric(a)
		if err != nil {
			return nil, err
		}
		integral = integral && isInt
		sum += f
	}
	if integral {
		return int64(sum), nil
	}
	return sum, nil
}

// mulTransform multiplies its arguments, with the same result typing as add.
func mulTransform(args ...any) (any, error) {
	product := 1.0
	integral := true
	for _, a := range args {
		f, isInt, err := numeric(a)
		if err != nil {
			return nil, err
		}
		integral = integral && isInt
		product *= f
	}
	if integral {
		return int64(product), nil
	}
	return product, nil
}

// utf8Transform reinterprets a decoded bytes field as utf-8 text.
func utf8Transform(args ...any) (any, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("utf8 expects one argument, got %d", len(args))
	}
	data, ok := args[0].([]byte)
	if !ok {
		return nil, fmt.Errorf("utf8 expects a bytes argument, got %T", args[0])
	}
	if !utf8.Valid(data) {
		return nil, fmt.Errorf("invalid utf-8 text")
	}
	return string(data), nil
}

// iso8601Transform parses a decoded timestamp string and returns unix
// nanoseconds.
func iso8601Transform(args ...any) (any, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("iso8601 expects one argument, got %d", len(args))
	}
	s, ok := args[0].(string)
	if !ok {
		return nil, fmt.Errorf("iso8601 expects a string argument, got %T", args[0])
	}
	t, err := iso8601.ParseString(s)
	if err != nil {
		return nil, fmt.Errorf("failed to parse timestamp: %w", err)
	}
	return t.UnixNano(), nil
}
