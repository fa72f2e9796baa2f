package catalog

import "fmt"

// SchemaDecodeError reports a form whose definition could not be decoded.
// The form is skipped; the remaining forms are still normalized.
type SchemaDecodeError struct {
	FormCode string
	Err      error
}

func (e *SchemaDecodeError) Error() string {
	return fmt.Sprintf("catalog: form %s: decode definition: %v", e.FormCode, e.Err)
}

func (e *SchemaDecodeError) Unwrap() error { return e.Err }

// ElementFlattenError reports an element that could not be flattened. By
// default the element is replaced by a placeholder record; in strict mode the
// error aborts normalization.
type ElementFlattenError struct {
	FormCode string
	Element  string
	Path     string
	Err      error
}

func (e *ElementFlattenError) Error() string {
	name := e.Element
	if name == "" {
		name = e.Path
	}
	return fmt.Sprintf("catalog: form %s: element %s: %v", e.FormCode, name, e.Err)
}

func (e *ElementFlattenError) Unwrap() error { return e.Err }
