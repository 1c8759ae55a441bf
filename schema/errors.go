package schema

// CompileError indicates a schema that cannot be lowered to canonical form:
// a malformed descriptor, an illegal width, or a value that is neither a
// descriptor, a literal, nor a nested schema. The schema is unusable.
type CompileError struct {
	Field  string
	Reason string
}

func (e CompileError) Error() string {
	if e.Field != "" {
		return "field " + e.Field + ": " + e.Reason
	}
	return e.Reason
}

func (e CompileError) Is(target error) bool {
	_, ok := target.(CompileError)
	return ok
}
