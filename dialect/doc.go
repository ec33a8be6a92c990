// Package dialect describes the database engines supported by sqlbind.
//
// A Dialect bundles what differs between database/sql drivers: the
// placeholder syntax, the set of Go types a driver binds without
// conversion, and how to identify the engine from connection metadata.
//
// # Supported Dialects
//
//	dialect.Postgres  = "postgres"   $1, $2, ...       (indexed)
//	dialect.H2        = "h2"         $1, $2, ...       (indexed)
//	dialect.MySQL     = "mysql"      ?, ?, ...         (positional)
//	dialect.SQLite    = "sqlite"     ?, ?, ...         (positional)
//	dialect.SQLServer = "sqlserver"  @P0_name, ...     (named)
//	dialect.Oracle    = "oracle"     :P0_name, ...     (named)
//
// Named dialects use the name hint passed to BindMarkers.NextHint;
// positional and indexed dialects ignore it.
//
// # Bind Markers
//
// BindMarkers is created per statement and hands out one BindMarker per
// parameter:
//
//	d, _ := dialect.Lookup(dialect.Postgres)
//	markers := d.BindMarkers()
//	m1 := markers.NextHint("name")  // $1
//	m2 := markers.NextHint("email") // $2
//
//	args := dialect.NewArgs()
//	m1.Bind(args, "a8m")
//	m2.BindNull(args, reflect.TypeFor[string]())
//	db.ExecContext(ctx, "UPDATE users SET name = "+m1.Placeholder()+", email = "+m2.Placeholder(), args.Values()...)
//
// # Resolution
//
// A Registry picks the dialect of a connection:
//
//	d, err := dialect.DefaultRegistry().Resolve(dialect.Metadata{Name: "pgx"})
//	if errors.Is(err, dialect.ErrUnsupportedDialect) {
//	    // configure the dialect explicitly.
//	}
//
// # Sub-packages
//
//   - dialect/sql: database/sql driver, metadata probing and statistics
//   - dialect/sql/sqlerr: translation of native driver errors
package dialect
