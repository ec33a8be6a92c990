package dialect

import (
	"context"
	"fmt"
	"reflect"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// Dialect names for supported databases.
const (
	Postgres  = "postgres"
	MySQL     = "mysql"
	SQLite    = "sqlite"
	H2        = "h2"
	SQLServer = "sqlserver"
	Oracle    = "oracle"
)

// ExecQuerier wraps the 2 database operations.
type ExecQuerier interface {
	// Exec executes a query that does not return records. For example, in SQL, INSERT or UPDATE.
	// It scans the result into the pointer v. For SQL drivers, it is dialect/sql.Result.
	Exec(ctx context.Context, query string, args, v any) error
	// Query executes a query that returns rows, typically a SELECT in SQL.
	// It scans the result into the pointer v. For SQL drivers, it is *dialect/sql.Rows.
	Query(ctx context.Context, query string, args, v any) error
}

// Driver is the interface that wraps all necessary operations for statement execution.
type Driver interface {
	ExecQuerier
	// Tx starts and returns a new transaction.
	Tx(context.Context) (Tx, error)
	// Close closes the underlying connection.
	Close() error
	// Dialect returns the dialect name of the driver.
	Dialect() string
}

// Tx wraps the Exec and Query operations in transaction.
type Tx interface {
	ExecQuerier
	Commit() error
	Rollback() error
}

// Kind is the placeholder syntax a dialect's driver understands.
type Kind uint8

const (
	// Positional placeholders carry no index, e.g. "?". The bind position
	// is inferred from the order of appearance.
	Positional Kind = iota + 1
	// Indexed placeholders carry their position, e.g. "$1", "$2".
	Indexed
	// Named placeholders carry a name, e.g. "@P0_email" or ":P0_email".
	Named
)

var kindNames = [...]string{
	Positional: "positional",
	Indexed:    "indexed",
	Named:      "named",
}

// String returns the kind name.
func (k Kind) String() string {
	if k == 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("Kind(%d)", k)
	}
	return kindNames[k]
}

// limitStyle selects how a dialect renders a row limit.
type limitStyle uint8

const (
	limitClause  limitStyle = iota // LIMIT n
	fetchNext                      // OFFSET 0 ROWS FETCH NEXT n ROWS ONLY
	fetchFirst                     // FETCH FIRST n ROWS ONLY
)

// Dialect is the capability profile of one database engine: placeholder
// syntax, natively bindable types and engine identification. Dialect values
// are immutable and safe to share between goroutines.
type Dialect struct {
	name    string
	kind    Kind
	simple  *SimpleTypes
	markers BindMarkersFactory
	quote   [2]byte
	limit   limitStyle
	// aliases are matched case-insensitively against connection metadata.
	aliases []string
}

// Name returns the dialect name, e.g. "postgres".
func (d *Dialect) Name() string { return d.name }

// Kind returns the placeholder kind of the dialect.
func (d *Dialect) Kind() Kind { return d.kind }

// SimpleTypes returns the set of types the driver binds without conversion.
func (d *Dialect) SimpleTypes() *SimpleTypes { return d.simple }

// IsSimpleType reports if values of type t can be passed to the driver as is.
func (d *Dialect) IsSimpleType(t reflect.Type) bool { return d.simple.IsSimple(t) }

// BindMarkers returns a new BindMarkers for a single binding pass.
func (d *Dialect) BindMarkers() BindMarkers { return d.markers.Create() }

// BindMarkersFactory returns the factory used by BindMarkers.
func (d *Dialect) BindMarkersFactory() BindMarkersFactory { return d.markers }

// Quote quotes the given identifier. Identifiers qualified with a
// schema ("public.users") are quoted per part, and closing quote
// characters inside a part are doubled.
func (d *Dialect) Quote(ident string) string {
	if ident == "*" {
		return ident
	}
	parts := strings.Split(ident, ".")
	var b strings.Builder
	for i, p := range parts {
		if i > 0 {
			b.WriteByte('.')
		}
		b.WriteByte(d.quote[0])
		b.WriteString(strings.ReplaceAll(p, string(d.quote[1]), string(d.quote[1])+string(d.quote[1])))
		b.WriteByte(d.quote[1])
	}
	return b.String()
}

// Limit returns the clause that restricts a SELECT to n rows.
func (d *Dialect) Limit(n int) string {
	switch d.limit {
	case fetchNext:
		return fmt.Sprintf("OFFSET 0 ROWS FETCH NEXT %d ROWS ONLY", n)
	case fetchFirst:
		return fmt.Sprintf("FETCH FIRST %d ROWS ONLY", n)
	default:
		return fmt.Sprintf("LIMIT %d", n)
	}
}

// Matches reports if the connection metadata identifies this dialect.
// An alias matches at the start of a word, e.g. "postgres" matches
// "PostgreSQL 16.2". Aliases of two characters or less must match a
// whole word.
func (d *Dialect) Matches(md Metadata) bool {
	for _, f := range []string{md.Name, md.Driver, md.Version} {
		f = strings.ToLower(f)
		if f == "" {
			continue
		}
		for _, a := range d.aliases {
			if matchWord(f, a) {
				return true
			}
		}
	}
	return false
}

// matchWord reports if alias occurs in s at a word boundary.
func matchWord(s, alias string) bool {
	for i := 0; i+len(alias) <= len(s); {
		j := strings.Index(s[i:], alias)
		if j < 0 {
			return false
		}
		start, end := i+j, i+j+len(alias)
		if (start == 0 || !isWordByte(s[start-1])) && (len(alias) > 2 || end == len(s) || !isWordByte(s[end])) {
			return true
		}
		i = start + 1
	}
	return false
}

func isWordByte(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= '0' && c <= '9'
}

// Equal reports if d and o have the same capabilities.
func (d *Dialect) Equal(o *Dialect) bool {
	if d == nil || o == nil {
		return d == o
	}
	return d.name == o.name && d.kind == o.kind && d.simple.Equal(o.simple)
}

// String implements fmt.Stringer.
func (d *Dialect) String() string { return d.name }

var (
	postgres = &Dialect{
		name: Postgres,
		kind: Indexed,
		simple: NewSimpleTypes(
			reflect.TypeFor[uuid.UUID](),
			reflect.TypeFor[pq.StringArray](),
			reflect.TypeFor[pq.Int64Array](),
			reflect.TypeFor[pq.Float64Array](),
			reflect.TypeFor[pq.BoolArray](),
			reflect.TypeFor[pq.ByteaArray](),
		),
		markers: IndexedMarkers("$", 1),
		quote:   [2]byte{'"', '"'},
		aliases: []string{"postgres", "pgx", "pq", "cockroach"},
	}
	h2 = &Dialect{
		name:    H2,
		kind:    Indexed,
		simple:  NewSimpleTypes(reflect.TypeFor[uuid.UUID]()),
		markers: IndexedMarkers("$", 1),
		quote:   [2]byte{'"', '"'},
		aliases: []string{"h2"},
	}
	mysql = &Dialect{
		name:    MySQL,
		kind:    Positional,
		simple:  NewSimpleTypes(reflect.TypeFor[uint64]()),
		markers: AnonymousMarkers("?"),
		quote:   [2]byte{'`', '`'},
		aliases: []string{"mysql", "mariadb"},
	}
	sqlite = &Dialect{
		name:    SQLite,
		kind:    Positional,
		simple:  NewSimpleTypes(),
		markers: AnonymousMarkers("?"),
		quote:   [2]byte{'"', '"'},
		aliases: []string{"sqlite"},
	}
	sqlserver = &Dialect{
		name:    SQLServer,
		kind:    Named,
		simple:  NewSimpleTypes(reflect.TypeFor[uuid.UUID]()),
		markers: NamedMarkers("@", "P", 32),
		quote:   [2]byte{'[', ']'},
		limit:   fetchNext,
		aliases: []string{"sqlserver", "mssql", "microsoft sql server"},
	}
	oracle = &Dialect{
		name:    Oracle,
		kind:    Named,
		simple:  NewSimpleTypes(),
		markers: NamedMarkers(":", "P", 30),
		quote:   [2]byte{'"', '"'},
		limit:   fetchFirst,
		aliases: []string{"oracle", "godror", "goora"},
	}
)

// Dialects returns the built-in dialects in resolution order.
func Dialects() []*Dialect {
	return []*Dialect{postgres, mysql, sqlite, h2, sqlserver, oracle}
}

// Lookup returns the built-in dialect with the given name.
func Lookup(name string) (*Dialect, error) {
	for _, d := range Dialects() {
		if strings.EqualFold(d.name, name) {
			return d, nil
		}
	}
	return nil, &UnsupportedDialectError{Metadata: Metadata{Name: name}}
}
