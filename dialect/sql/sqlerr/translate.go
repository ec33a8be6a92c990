package sqlerr

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"io"
	"net"
	"strconv"
	"strings"
	"syscall"

	"github.com/syssam/sqlbind/dialect"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
)

// Translator maps native driver errors to *Error. Translate must return nil
// for a nil error and a non-nil *Error otherwise. Implementations are
// stateless and safe for concurrent use.
type Translator interface {
	Translate(op, query string, err error) *Error
}

// TranslatorFunc adapts a function to the Translator interface.
type TranslatorFunc func(op, query string, err error) *Error

// Translate calls f(op, query, err).
func (f TranslatorFunc) Translate(op, query string, err error) *Error {
	return f(op, query, err)
}

// NewTranslator returns a Translator that resolves the native codes of
// generic driver errors (errors exposing Code() or Number() methods)
// using the code table of the given dialect. Errors of the known driver
// types (*pq.Error, *mysql.MySQLError) use their own table.
func NewTranslator(name string) Translator {
	return &codeTranslator{table: tables[name]}
}

// defaultTranslator does not assume a dialect.
var defaultTranslator = NewTranslator("")

// Translate translates err without assuming a dialect.
func Translate(err error) *Error {
	return defaultTranslator.Translate("", "", err)
}

type codeTranslator struct {
	table *codeTable
}

// Translate implements Translator.
func (t *codeTranslator) Translate(op, query string, err error) *Error {
	if err == nil {
		return nil
	}
	if e := (*Error)(nil); errors.As(err, &e) {
		return e
	}
	e := &Error{Op: op, Query: query, Err: err, Message: err.Error()}
	n, ok := nativeOf(err)
	if ok {
		e.Code, e.SQLState = n.code, n.state
		if n.message != "" {
			e.Message = n.message
		}
		table := t.table
		if n.dialect != "" {
			table = tables[n.dialect]
		}
		if c, ok := table.lookup(n.code); ok {
			return e.classify(c)
		}
		if c, ok := lookupSQLState(n.state); ok {
			return e.classify(c)
		}
	}
	if c, ok := fromGoError(err); ok {
		return e.classify(c)
	}
	if c, ok := fromMessage(err.Error()); ok {
		return e.classify(c)
	}
	return e
}

func (e *Error) classify(c class) *Error {
	e.Kind, e.Constraint = c.kind, c.constraint
	return e
}

type (
	// sqlStateError is implemented by errors that provide SQLSTATE codes (pgx).
	sqlStateError interface{ SQLState() string }
	// stringCoder is implemented by errors with string codes.
	stringCoder interface{ Code() string }
	// intCoder is implemented by modernc.org/sqlite and godror errors.
	intCoder interface{ Code() int }
	// errorNumberer is implemented by errors with numeric MySQL-style codes.
	errorNumberer interface{ Number() uint16 }
	// mssqlError is implemented by github.com/microsoft/go-mssqldb errors.
	mssqlError interface{ SQLErrorNumber() int32 }
)

// native is the code information extracted from a driver error.
type native struct {
	dialect string // Set when the error type identifies the driver.
	code    string
	state   string
	message string
}

func nativeOf(err error) (native, bool) {
	if e := (*pq.Error)(nil); errors.As(err, &e) {
		return native{dialect: dialect.Postgres, code: string(e.Code), state: string(e.Code), message: e.Message}, true
	}
	if e := (*mysql.MySQLError)(nil); errors.As(err, &e) {
		n := native{dialect: dialect.MySQL, code: strconv.Itoa(int(e.Number)), message: e.Message}
		if e.SQLState != [5]byte{} {
			n.state = string(e.SQLState[:])
		}
		return n, true
	}
	var (
		n     native
		found bool
	)
	if e, ok := asError[sqlStateError](err); ok {
		n.state, found = e.SQLState(), true
	}
	if e, ok := asError[stringCoder](err); ok {
		n.code, found = e.Code(), true
		if n.state == "" && isSQLState(n.code) {
			n.state = n.code
		}
	}
	if n.code == "" {
		if e, ok := asError[intCoder](err); ok {
			n.code, found = strconv.Itoa(e.Code()), true
		} else if e, ok := asError[errorNumberer](err); ok {
			n.code, found = strconv.Itoa(int(e.Number())), true
		} else if e, ok := asError[mssqlError](err); ok {
			n.code, found = strconv.Itoa(int(e.SQLErrorNumber())), true
		}
	}
	return n, found
}

// isSQLState reports if s looks like a 5 character SQLSTATE.
func isSQLState(s string) bool {
	if len(s) != 5 {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < '0' || c > '9') && (c < 'A' || c > 'Z') {
			return false
		}
	}
	return true
}

func fromGoError(err error) (class, bool) {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return class{kind: Timeout}, true
	case errors.Is(err, driver.ErrBadConn),
		errors.Is(err, sql.ErrConnDone),
		errors.Is(err, mysql.ErrInvalidConn),
		errors.Is(err, io.ErrUnexpectedEOF),
		errors.Is(err, syscall.ECONNRESET),
		errors.Is(err, syscall.ECONNREFUSED),
		errors.Is(err, syscall.ECONNABORTED),
		errors.Is(err, syscall.EPIPE):
		return class{kind: Connectivity}, true
	}
	// syscall.Errno also implements net.Error, only network errors count here.
	if e, ok := asError[net.Error](err); ok && !isErrno(e) {
		if e.Timeout() {
			return class{kind: Timeout}, true
		}
		return class{kind: Connectivity}, true
	}
	return class{}, false
}

func isErrno(err error) bool {
	_, ok := err.(syscall.Errno)
	return ok
}

// messages is the fallback for drivers that do not expose codes. Rules are
// checked in order.
var messages = []struct {
	class
	substrings []string
}{
	{class{ConstraintViolation, Unique}, []string{"UNIQUE constraint failed", "violates unique constraint", "Duplicate entry", "duplicate key"}},
	{class{ConstraintViolation, ForeignKey}, []string{"FOREIGN KEY constraint failed", "violates foreign key constraint", "a foreign key constraint fails"}},
	{class{ConstraintViolation, Check}, []string{"CHECK constraint failed", "violates check constraint"}},
	{class{ConstraintViolation, NotNull}, []string{"NOT NULL constraint failed", "violates not-null constraint", "cannot be null"}},
	{class{kind: Authorization}, []string{"permission denied", "Access denied", "authentication failed", "attempt to write a readonly database"}},
	{class{kind: Timeout}, []string{"database is locked", "Lock wait timeout", "deadlock", "statement timeout", "canceling statement due to"}},
	{class{kind: Connectivity}, []string{"connection refused", "connection reset", "broken pipe", "bad connection", "server closed the connection"}},
	{class{kind: BadGrammar}, []string{"syntax error", "no such table", "no such column"}},
	{class{kind: DataError}, []string{"value too long", "out of range", "invalid input syntax", "Data too long", "datatype mismatch"}},
}

func fromMessage(msg string) (class, bool) {
	for _, m := range messages {
		if containsAny(msg, m.substrings...) {
			return m.class, true
		}
	}
	return class{}, false
}

// asError attempts to extract an error implementing interface T from the error chain.
func asError[T any](err error) (T, bool) {
	var target T
	for err != nil {
		if e, ok := err.(T); ok {
			return e, true
		}
		err = errors.Unwrap(err)
	}
	return target, false
}

// containsAny returns true if s contains any of the substrings.
func containsAny(s string, substrings ...string) bool {
	for _, sub := range substrings {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
