package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation is returned when a required field is missing or malformed.
	ErrValidation = errors.New("validation failed")
	// ErrForeignKey is returned when a record references a row that does not exist.
	ErrForeignKey = errors.New("dangling foreign reference")
	// ErrHashFormat is returned when a stored password value is not a valid hash.
	ErrHashFormat = errors.New("malformed password hash")
	// ErrTransactionState is returned when an operation targets an already resolved scope.
	ErrTransactionState = errors.New("transaction scope already resolved")
)

func missing(field string) error {
	return fmt.Errorf("%w: %s is required", ErrValidation, field)
}
