package strategy

import (
	"errors"
	"fmt"
)

// ErrInvalidOperation is returned for operations that cannot be built.
var ErrInvalidOperation = errors.New("strategy: invalid operation")

// InvalidOperationError is returned when an operation is malformed, for
// example an insert without columns.
type InvalidOperationError struct {
	Op     OpKind
	Table  string
	Reason string
}

// Error returns the error string.
func (e *InvalidOperationError) Error() string {
	if e.Table == "" {
		return fmt.Sprintf("strategy: invalid %s operation: %s", e.Op, e.Reason)
	}
	return fmt.Sprintf("strategy: invalid %s operation on %q: %s", e.Op, e.Table, e.Reason)
}

// Is reports whether the target error matches ErrInvalidOperation.
func (e *InvalidOperationError) Is(err error) bool {
	return err == ErrInvalidOperation
}

// IsInvalidOperation returns a boolean indicating whether the error is an invalid operation error.
func IsInvalidOperation(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, ErrInvalidOperation)
}
