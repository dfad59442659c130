package xmltree

import "fmt"

// NotFoundError reports a required element or attribute that is absent
// from the document. Path is computed from the document root.
type NotFoundError struct {
	Path string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("element not found: path=%q", e.Path)
}

// ConvertError reports a converter that rejected the raw value found at
// Path.
type ConvertError struct {
	Path  string
	Value string
	Err   error
}

func (e *ConvertError) Error() string {
	return fmt.Sprintf("converting element: path=%q raw=%q: %v", e.Path, e.Value, e.Err)
}

func (e *ConvertError) Unwrap() error {
	return e.Err
}
