package dialect

import (
	"errors"
	"fmt"
)

// ErrUnsupportedDialect is returned when no dialect matches a connection.
var ErrUnsupportedDialect = errors.New("dialect: unsupported dialect")

// Metadata identifies the database engine behind a connection.
type Metadata struct {
	// Name is the driver name used to open the connection, e.g. "postgres".
	Name string
	// Driver is the Go type of the database/sql driver, e.g. "*pq.Driver".
	Driver string
	// Version is the server version string, if known.
	Version string
}

// String returns a short description of the metadata.
func (md Metadata) String() string {
	s := fmt.Sprintf("name=%q", md.Name)
	if md.Driver != "" {
		s += fmt.Sprintf(" driver=%s", md.Driver)
	}
	if md.Version != "" {
		s += fmt.Sprintf(" version=%q", md.Version)
	}
	return s
}

// UnsupportedDialectError is returned when a dialect cannot be determined
// for a connection. Provide a dialect explicitly in that case.
type UnsupportedDialectError struct {
	Metadata Metadata
}

// Error returns the error string.
func (e *UnsupportedDialectError) Error() string {
	return fmt.Sprintf("dialect: cannot determine a dialect for %s, please provide a dialect", e.Metadata)
}

// Is reports whether the target error matches ErrUnsupportedDialect.
func (e *UnsupportedDialectError) Is(err error) bool {
	return err == ErrUnsupportedDialect
}

// Registry resolves dialects from connection metadata. The first dialect
// that matches wins. A Registry is immutable and safe for concurrent use.
type Registry struct {
	dialects []*Dialect
}

// NewRegistry returns a registry that tries the given dialects in order.
func NewRegistry(ds ...*Dialect) *Registry {
	return &Registry{dialects: append([]*Dialect(nil), ds...)}
}

// DefaultRegistry returns a registry of all built-in dialects.
func DefaultRegistry() *Registry {
	return NewRegistry(Dialects()...)
}

// Resolve returns the first dialect matching md.
func (r *Registry) Resolve(md Metadata) (*Dialect, error) {
	for _, d := range r.dialects {
		if d.Matches(md) {
			return d, nil
		}
	}
	return nil, &UnsupportedDialectError{Metadata: md}
}

// Dialects returns the dialects of the registry in resolution order.
func (r *Registry) Dialects() []*Dialect {
	return append([]*Dialect(nil), r.dialects...)
}
