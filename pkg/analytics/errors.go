package analytics

import (
	"errors"
	"fmt"
	"strconv"
)

// InvalidInputError reports a malformed record handed to an analyzer, such
// as a transaction with no timestamp. Invalid input is surfaced to the
// caller immediately and never retried.
type InvalidInputError struct {
	Index  int    // position of the offending record
	Field  string // field that is malformed
	Reason string
}

// Error implements the error interface.
func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("invalid input record [index=%d, field=%s]: %s", e.Index, e.Field, e.Reason)
}

// NewInvalidInputError creates a new InvalidInputError.
func NewInvalidInputError(index int, field, reason string) *InvalidInputError {
	return &InvalidInputError{Index: index, Field: field, Reason: reason}
}

// IsInvalidInput reports whether err is an InvalidInputError.
func IsInvalidInput(err error) bool {
	var ie *InvalidInputError
	return errors.As(err, &ie)
}

func formatAmount(amount float64) string {
	return strconv.FormatFloat(amount, 'f', 2, 64)
}
