package sqlbind

import (
	"errors"
	"fmt"

	"github.com/syssam/sqlbind/conversion"
	"github.com/syssam/sqlbind/dialect"
	"github.com/syssam/sqlbind/dialect/sql/sqlerr"
	"github.com/syssam/sqlbind/strategy"
)

// Standard sentinel errors for common operations.
var (
	// ErrNotFound is returned when a requested entity does not exist.
	ErrNotFound = errors.New("sqlbind: entity not found")

	// ErrNotSingular is returned when a query that expects exactly one result
	// returns multiple results.
	ErrNotSingular = errors.New("sqlbind: entity not singular")

	// ErrTxStarted is returned when attempting to start a new transaction
	// within an existing transaction.
	ErrTxStarted = errors.New("sqlbind: cannot start a transaction within a transaction")

	// ErrMissingDriver is returned by NewClient when no driver is configured.
	ErrMissingDriver = errors.New("sqlbind: missing driver")
)

// NotFoundError represents an error when an entity is not found.
type NotFoundError struct {
	label string
	id    any // Optional: the ID that was searched for
}

// Error returns the error string.
func (e *NotFoundError) Error() string {
	if e.id != nil {
		return fmt.Sprintf("sqlbind: %s not found (id=%v)", e.label, e.id)
	}
	return fmt.Sprintf("sqlbind: %s not found", e.label)
}

// Is reports whether the target error matches NotFoundError.
// This allows errors.Is(notFoundErr, ErrNotFound) to return true.
func (e *NotFoundError) Is(err error) bool {
	return err == ErrNotFound
}

// Label returns the entity label.
func (e *NotFoundError) Label() string {
	return e.label
}

// ID returns the ID that was searched for, if available.
func (e *NotFoundError) ID() any {
	return e.id
}

// NewNotFoundError returns a new NotFoundError for the given entity type.
func NewNotFoundError(label string) *NotFoundError {
	return &NotFoundError{label: label}
}

// NewNotFoundErrorWithID returns a new NotFoundError with the ID that was searched for.
func NewNotFoundErrorWithID(label string, id any) *NotFoundError {
	return &NotFoundError{label: label, id: id}
}

// IsNotFound returns true if the error is a NotFoundError.
func IsNotFound(err error) bool {
	if err == nil {
		return false
	}
	var e *NotFoundError
	return errors.As(err, &e) || errors.Is(err, ErrNotFound)
}

// NotSingularError represents an error when a query by id returns more
// than one row.
type NotSingularError struct {
	label string
}

// Error returns the error string.
func (e *NotSingularError) Error() string {
	return fmt.Sprintf("sqlbind: %s not singular", e.label)
}

// Is reports whether the target error matches ErrNotSingular.
func (e *NotSingularError) Is(err error) bool {
	return err == ErrNotSingular
}

// NewNotSingularError returns a new NotSingularError for the given entity type.
func NewNotSingularError(label string) *NotSingularError {
	return &NotSingularError{label: label}
}

// IsNotSingular returns true if the error is a NotSingularError.
func IsNotSingular(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, ErrNotSingular)
}

// RollbackError wraps a failed rollback. It unwraps to the error that
// caused the rollback.
type RollbackError struct {
	Err      error
	Rollback error
}

// Error returns the error string.
func (e *RollbackError) Error() string {
	return fmt.Sprintf("sqlbind: %v: rolling back transaction: %v", e.Err, e.Rollback)
}

// Unwrap returns the error that caused the rollback.
func (e *RollbackError) Unwrap() error {
	return e.Err
}

// QueryError wraps a query error with additional context.
type QueryError struct {
	Entity string // Entity type being queried
	Op     string // Operation (e.g., "get", "select")
	Err    error  // Underlying error
}

// Error returns the error string.
func (e *QueryError) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("sqlbind: querying %s (%s): %v", e.Entity, e.Op, e.Err)
	}
	return fmt.Sprintf("sqlbind: querying %s: %v", e.Entity, e.Err)
}

// Unwrap returns the underlying error.
func (e *QueryError) Unwrap() error {
	return e.Err
}

// NewQueryError returns a new QueryError.
func NewQueryError(entity, op string, err error) *QueryError {
	return &QueryError{Entity: entity, Op: op, Err: err}
}

// IsQueryError returns true if the error is a QueryError.
func IsQueryError(err error) bool {
	if err == nil {
		return false
	}
	var e *QueryError
	return errors.As(err, &e)
}

// MutationError wraps a mutation error with additional context.
type MutationError struct {
	Entity string // Entity type being mutated
	Op     string // Operation (e.g., "insert", "update", "delete")
	Err    error  // Underlying error
}

// Error returns the error string.
func (e *MutationError) Error() string {
	return fmt.Sprintf("sqlbind: %s %s: %v", e.Op, e.Entity, e.Err)
}

// Unwrap returns the underlying error.
func (e *MutationError) Unwrap() error {
	return e.Err
}

// NewMutationError returns a new MutationError.
func NewMutationError(entity, op string, err error) *MutationError {
	return &MutationError{Entity: entity, Op: op, Err: err}
}

// IsMutationError returns true if the error is a MutationError.
func IsMutationError(err error) bool {
	if err == nil {
		return false
	}
	var e *MutationError
	return errors.As(err, &e)
}

// IsUnsupportedDialect returns true if no dialect could be resolved for
// the connection.
func IsUnsupportedDialect(err error) bool {
	return err != nil && errors.Is(err, dialect.ErrUnsupportedDialect)
}

// IsConversionNotSupported returns true if a value could not be converted
// to or from its store representation.
func IsConversionNotSupported(err error) bool {
	return err != nil && errors.Is(err, conversion.ErrConversionNotSupported)
}

// IsInvalidOperation returns true if a statement could not be built from
// the requested operation.
func IsInvalidOperation(err error) bool {
	return strategy.IsInvalidOperation(err)
}

// IsConstraintError returns true if the error resulted from a database
// constraint violation.
func IsConstraintError(err error) bool {
	var e *sqlerr.Error
	return errors.As(err, &e) && e.Kind == sqlerr.ConstraintViolation
}

// IsRetryable returns true if the error is a transient database failure
// (connectivity or timeout) and the operation may be retried.
func IsRetryable(err error) bool {
	var e *sqlerr.Error
	return errors.As(err, &e) && e.Retryable()
}
