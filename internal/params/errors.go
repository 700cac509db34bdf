package params

import "fmt"

// TemplateNotFoundError is returned when the template file does not exist or
// cannot be read.
type TemplateNotFoundError struct {
	Path string
	Err  error
}

func (e *TemplateNotFoundError) Error() string {
	return fmt.Sprintf("parameter template %q not found: %v", e.Path, e.Err)
}

func (e *TemplateNotFoundError) Unwrap() error { return e.Err }

// MalformedTemplateError is returned when the template is not a YAML mapping.
type MalformedTemplateError struct {
	Path string
	Err  error
}

func (e *MalformedTemplateError) Error() string {
	return fmt.Sprintf("parameter template %q is malformed: %v", e.Path, e.Err)
}

func (e *MalformedTemplateError) Unwrap() error { return e.Err }
