package validation

import (
	"errors"
	"strings"
)

// FieldError represents a validation failure scoped to a specific field.
type FieldError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e FieldError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	if e.Message == "" {
		return e.Field
	}
	return e.Field + ": " + e.Message
}

// Errors aggregates multiple field errors.
type Errors []FieldError

// Error implements the error interface.
func (errs Errors) Error() string {
	if len(errs) == 0 {
		return ""
	}
	parts := make([]string, len(errs))
	for i, err := range errs {
		parts[i] = err.Error()
	}
	return strings.Join(parts, "; ")
}

// Fields lists the distinct field names in the order they first failed.
func (errs Errors) Fields() []string {
	seen := make(map[string]struct{}, len(errs))
	fields := make([]string, 0, len(errs))
	for _, err := range errs {
		if _, ok := seen[err.Field]; ok {
			continue
		}
		seen[err.Field] = struct{}{}
		fields = append(fields, err.Field)
	}
	return fields
}

// For returns the errors recorded against field.
func (errs Errors) For(field string) Errors {
	var out Errors
	for _, err := range errs {
		if err.Field == field {
			out = append(out, err)
		}
	}
	return out
}

// Append flattens err into dst. Plain errors become field-less entries.
func Append(dst Errors, err error) Errors {
	if err == nil {
		return dst
	}
	switch v := err.(type) {
	case Errors:
		return append(dst, v...)
	case *Errors:
		return append(dst, (*v)...)
	case FieldError:
		return append(dst, v)
	case *FieldError:
		return append(dst, *v)
	}
	var multi Errors
	if errors.As(err, &multi) {
		return append(dst, multi...)
	}
	var ferr FieldError
	if errors.As(err, &ferr) {
		return append(dst, ferr)
	}
	return append(dst, FieldError{Message: err.Error()})
}

// OrNil returns errs as an error, or nil when empty.
func (errs Errors) OrNil() error {
	if len(errs) == 0 {
		return nil
	}
	return errs
}
