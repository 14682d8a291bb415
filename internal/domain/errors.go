package domain

import "errors"

// Field names reported by ValidationError.
const (
	FieldID          = "id"
	FieldName        = "name"
	FieldPricePence  = "pricePence"
	FieldDescription = "description"
	FieldUpdatedAt   = "updatedAt"
)

// ErrValidation matches every *ValidationError via errors.Is.
var ErrValidation = errors.New("domain: validation failed")

// ValidationError reports the first field that failed NewDevice.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

func invalid(field, msg string) error {
	return &ValidationError{Field: field, Message: msg}
}
