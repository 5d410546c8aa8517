package contact

import (
	"errors"
	"fmt"
)

// Sentinel errors for the contact service layer.
var (
	ErrNotFound       = errors.New("contact not found")
	ErrDuplicateEmail = errors.New("email already exists")
)

// ValidationError reports a field that failed format validation.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
