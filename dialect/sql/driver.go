package sql

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"iter"
	"sync"

	"github.com/syssam/sqlbind/dialect"

	"golang.org/x/sync/singleflight"
)

// Driver is a dialect.Driver implementation for SQL based databases.
type Driver struct {
	Conn
	dialect string
	cache   *resolveCache
}

// resolveCache holds the dialects resolved for a driver, per registry.
type resolveCache struct {
	group    singleflight.Group
	dialects sync.Map // *dialect.Registry => *dialect.Dialect
}

// NewDriver creates a new Driver with the given Conn and driver name.
func NewDriver(name string, c Conn) *Driver {
	return &Driver{dialect: name, Conn: c, cache: &resolveCache{}}
}

// Open wraps the database/sql.Open method and returns a dialect.Driver that implements the dialect.Driver interface.
func Open(name, source string) (*Driver, error) {
	db, err := sql.Open(name, source)
	if err != nil {
		return nil, err
	}
	return NewDriver(name, Conn{db}), nil
}

// OpenDB wraps the given database/sql.DB method with a Driver.
func OpenDB(name string, db *sql.DB) *Driver {
	return NewDriver(name, Conn{db})
}

// DB returns the underlying *sql.DB instance.
func (d Driver) DB() *sql.DB {
	return d.ExecQuerier.(*sql.DB)
}

// Dialect implements the dialect.Dialect method. Driver names that identify
// a built-in dialect ("pgx", "sqlite3", or names of wrapping telemetry
// drivers like "mysql-otel") are reported with the dialect name.
func (d Driver) Dialect() string {
	if dl, err := dialect.DefaultRegistry().Resolve(dialect.Metadata{Name: d.dialect}); err == nil {
		return dl.Name()
	}
	return d.dialect
}

// Metadata returns the connection metadata known without a round trip.
func (d Driver) Metadata() dialect.Metadata {
	md := dialect.Metadata{Name: d.dialect}
	if db, ok := d.ExecQuerier.(*sql.DB); ok {
		md.Driver = fmt.Sprintf("%T", db.Driver())
	}
	return md
}

// versionProbes are the statements used to ask a server for its version,
// tried in order.
var versionProbes = []struct {
	query  string
	prefix string
}{
	{query: "SELECT version()"},
	{query: "SELECT sqlite_version()", prefix: "SQLite "},
	{query: "SELECT @@VERSION"},
	{query: "SELECT @@version_comment"},
	{query: "SELECT banner FROM v$version"},
}

// ProbeVersion asks the server for its version string. It returns the
// answer of the first probe statement the server accepts.
func (d Driver) ProbeVersion(ctx context.Context) (string, error) {
	var errs []error
	for v, err := range d.probeVersions(ctx) {
		if err == nil {
			return v, nil
		}
		errs = append(errs, err)
	}
	return "", fmt.Errorf("dialect/sql: probe version: %w", errors.Join(errs...))
}

// probeVersions yields the answer, or the error, of every probe statement.
func (d Driver) probeVersions(ctx context.Context) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		for _, p := range versionProbes {
			v, err := d.queryString(ctx, p.query)
			if err == nil {
				v = p.prefix + v
			}
			if !yield(v, err) || ctx.Err() != nil {
				return
			}
		}
	}
}

func (d Driver) queryString(ctx context.Context, query string) (string, error) {
	rows := &Rows{}
	if err := d.Query(ctx, query, []any{}, rows); err != nil {
		return "", err
	}
	defer rows.Close()
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return "", err
		}
		return "", sql.ErrNoRows
	}
	var s sql.NullString
	if err := rows.Scan(&s); err != nil {
		return "", err
	}
	return s.String, rows.Err()
}

// ResolveDialect returns the dialect of the connection from the given
// registry. The connection metadata is matched first, and the server is
// asked for its version only if that fails. The result is cached, and
// concurrent first calls share one resolution.
func (d Driver) ResolveDialect(ctx context.Context, r *dialect.Registry) (*dialect.Dialect, error) {
	if v, ok := d.cache.dialects.Load(r); ok {
		return v.(*dialect.Dialect), nil
	}
	v, err, _ := d.cache.group.Do(fmt.Sprintf("%p", r), func() (any, error) {
		if v, ok := d.cache.dialects.Load(r); ok {
			return v, nil
		}
		dl, err := d.resolve(ctx, r)
		if err != nil {
			return nil, err
		}
		d.cache.dialects.Store(r, dl)
		return dl, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*dialect.Dialect), nil
}

func (d Driver) resolve(ctx context.Context, r *dialect.Registry) (*dialect.Dialect, error) {
	md := d.Metadata()
	dl, err := r.Resolve(md)
	if err == nil {
		return dl, nil
	}
	for v, perr := range d.probeVersions(ctx) {
		if perr != nil {
			continue
		}
		md.Version = v
		if dl, err = r.Resolve(md); err == nil {
			return dl, nil
		}
	}
	return nil, err
}

// Tx starts and returns a transaction.
func (d *Driver) Tx(ctx context.Context) (dialect.Tx, error) {
	return d.BeginTx(ctx, nil)
}

// BeginTx starts a transaction with options.
func (d *Driver) BeginTx(ctx context.Context, opts *TxOptions) (dialect.Tx, error) {
	tx, err := d.DB().BeginTx(ctx, opts)
	if err != nil {
		return nil, err
	}
	return &Tx{
		Conn: Conn{tx},
		Tx:   tx,
	}, nil
}

// Close closes the underlying connection.
func (d *Driver) Close() error { return d.DB().Close() }

// Tx implements dialect.Tx interface.
type Tx struct {
	Conn
	driver.Tx
}

// ExecQuerier wraps the standard Exec and Query methods.
type ExecQuerier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// Conn implements dialect.ExecQuerier given ExecQuerier.
type Conn struct {
	ExecQuerier
}

// Exec implements the dialect.Exec method.
func (c Conn) Exec(ctx context.Context, query string, args, v any) error {
	argv, ok := args.([]any)
	if !ok {
		return fmt.Errorf("dialect/sql: invalid type %T. expect []any for args", args)
	}
	switch v := v.(type) {
	case nil:
		if _, err := c.ExecContext(ctx, query, argv...); err != nil {
			return fmt.Errorf("dialect/sql: exec: %w", err)
		}
	case *sql.Result:
		res, err := c.ExecContext(ctx, query, argv...)
		if err != nil {
			return fmt.Errorf("dialect/sql: exec: %w", err)
		}
		*v = res
	default:
		return fmt.Errorf("dialect/sql: invalid type %T. expect *sql.Result", v)
	}
	return nil
}

// Query implements the dialect.Query method.
func (c Conn) Query(ctx context.Context, query string, args, v any) error {
	vr, ok := v.(*Rows)
	if !ok {
		return fmt.Errorf("dialect/sql: invalid type %T. expect *sql.Rows", v)
	}
	argv, ok := args.([]any)
	if !ok {
		return fmt.Errorf("dialect/sql: invalid type %T. expect []any for args", args)
	}
	rows, err := c.QueryContext(ctx, query, argv...)
	if err != nil {
		return fmt.Errorf("dialect/sql: query: %w", err)
	}
	*vr = Rows{rows}
	return nil
}

var _ dialect.Driver = (*Driver)(nil)

type (
	// Rows wraps the sql.Rows to avoid locks copy.
	Rows struct{ ColumnScanner }
	// Result is an alias to sql.Result.
	Result = sql.Result
	// NullString is an alias to sql.NullString.
	NullString = sql.NullString
	// TxOptions holds the transaction options to be used in DB.BeginTx.
	TxOptions = sql.TxOptions
)

// ColumnScanner is the interface that wraps the standard
// sql.Rows methods used for scanning database rows.
type ColumnScanner interface {
	Close() error
	ColumnTypes() ([]*sql.ColumnType, error)
	Columns() ([]string, error)
	Err() error
	Next() bool
	NextResultSet() bool
	Scan(dest ...any) error
}
