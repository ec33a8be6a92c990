// Package sqlerr translates native database driver errors into a portable
// error taxonomy.
//
// Drivers report failures with their own codes: PostgreSQL uses SQLSTATE
// values ("23505"), MySQL uses error numbers (1062), SQLite uses result codes
// (2067). A Translator maps them onto a Kind that callers can act upon without
// knowing the driver, for example to decide whether an operation may be
// retried:
//
//	if err := drv.Exec(ctx, query, args, nil); err != nil {
//	    e := sqlerr.NewTranslator(dialect.Postgres).Translate("insert", query, err)
//	    if e.Retryable() {
//	        // retry later.
//	    }
//	    if errors.Is(e, sqlerr.ErrUniqueConstraint) {
//	        // duplicate key.
//	    }
//	}
package sqlerr

import (
	"errors"
	"fmt"
	"strings"
)

// Kind is a portable classification of a database failure.
type Kind uint8

// Error kinds.
const (
	// Uncategorized is used for failures no rule recognizes.
	Uncategorized Kind = iota
	// ConstraintViolation is an integrity constraint failure (unique, foreign key, check, not null).
	ConstraintViolation
	// DataError is a value that does not fit its column: truncation, overflow or type mismatch.
	DataError
	// Connectivity is a broken, refused or exhausted connection.
	Connectivity
	// Authorization is a failed login or a missing privilege.
	Authorization
	// Timeout is a statement, lock or context timeout, including deadlock victims.
	Timeout
	// BadGrammar is a statement the database cannot parse or resolve.
	BadGrammar
)

var kindNames = [...]string{
	Uncategorized:       "uncategorized",
	ConstraintViolation: "constraint violation",
	DataError:           "data error",
	Connectivity:        "connectivity",
	Authorization:       "authorization",
	Timeout:             "timeout",
	BadGrammar:          "bad grammar",
}

// String returns the kind name.
func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", k)
}

// Retryable reports if failures of this kind are transient.
func (k Kind) Retryable() bool {
	return k == Connectivity || k == Timeout
}

// ConstraintType refines ConstraintViolation errors.
type ConstraintType uint8

// Constraint types.
const (
	UnknownConstraint ConstraintType = iota
	Unique
	ForeignKey
	Check
	NotNull
)

var constraintNames = [...]string{
	UnknownConstraint: "",
	Unique:            "unique",
	ForeignKey:        "foreign key",
	Check:             "check",
	NotNull:           "not null",
}

// String returns the constraint type name.
func (c ConstraintType) String() string {
	if int(c) < len(constraintNames) {
		return constraintNames[c]
	}
	return fmt.Sprintf("ConstraintType(%d)", c)
}

// Error is a translated database error. It keeps the native error, code and
// message for diagnostics.
type Error struct {
	Kind       Kind
	Constraint ConstraintType // Set for ConstraintViolation errors, if known.
	Code       string         // Native driver code, e.g. "23505" or "1062".
	SQLState   string         // SQLSTATE, if the driver reports one.
	Message    string         // Native message.
	Op         string         // Operation that failed, e.g. "insert".
	Query      string         // Statement that failed.
	Err        error          // Native error.
}

// Error returns the error string.
func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString("sqlerr: ")
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	b.WriteString(e.Kind.String())
	if e.Constraint != UnknownConstraint {
		fmt.Fprintf(&b, " (%s)", e.Constraint)
	}
	if e.Code != "" {
		fmt.Fprintf(&b, " [%s]", e.Code)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	return b.String()
}

// Unwrap returns the native error.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is a sentinel of the same kind. Sentinels with a
// constraint type only match errors of that constraint type.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || t.Err != nil || t.Code != "" {
		return false
	}
	return t.Kind == e.Kind && (t.Constraint == UnknownConstraint || t.Constraint == e.Constraint)
}

// Retryable reports if the failure is transient.
func (e *Error) Retryable() bool {
	return e.Kind.Retryable()
}

// Sentinel errors for errors.Is checks.
var (
	ErrUncategorized        = &Error{Kind: Uncategorized}
	ErrConstraint           = &Error{Kind: ConstraintViolation}
	ErrUniqueConstraint     = &Error{Kind: ConstraintViolation, Constraint: Unique}
	ErrForeignKeyConstraint = &Error{Kind: ConstraintViolation, Constraint: ForeignKey}
	ErrCheckConstraint      = &Error{Kind: ConstraintViolation, Constraint: Check}
	ErrNotNullConstraint    = &Error{Kind: ConstraintViolation, Constraint: NotNull}
	ErrData                 = &Error{Kind: DataError}
	ErrConnectivity         = &Error{Kind: Connectivity}
	ErrAuthorization        = &Error{Kind: Authorization}
	ErrTimeout              = &Error{Kind: Timeout}
	ErrBadGrammar           = &Error{Kind: BadGrammar}
)

// IsConstraintError returns true if the error resulted from a database constraint violation.
func IsConstraintError(err error) bool {
	return is(err, ErrConstraint)
}

// IsUniqueConstraintError reports if the error resulted from a DB uniqueness constraint violation.
// e.g. duplicate value in unique index.
func IsUniqueConstraintError(err error) bool {
	return is(err, ErrUniqueConstraint)
}

// IsForeignKeyConstraintError reports if the error resulted from a database foreign-key constraint violation.
// e.g. parent row does not exist.
func IsForeignKeyConstraintError(err error) bool {
	return is(err, ErrForeignKeyConstraint)
}

// IsCheckConstraintError reports if the error resulted from a database check constraint violation.
func IsCheckConstraintError(err error) bool {
	return is(err, ErrCheckConstraint)
}

// IsRetryable reports if err is a transient database failure.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	return Translate(err).Retryable()
}

func is(err error, target *Error) bool {
	if err == nil {
		return false
	}
	return errors.Is(Translate(err), target)
}
