// Package sql provides a database/sql backed dialect.Driver.
//
// A Driver executes statements built by the strategy package and knows how
// to identify the database engine behind its connection:
//
//	drv, err := sql.Open("pgx", dsn)
//	if err != nil {
//	    return err
//	}
//	d, err := drv.ResolveDialect(ctx, dialect.DefaultRegistry())
//
// Resolution matches the driver name and the driver type first. If neither
// identifies a dialect (for example a telemetry wrapper registered under its
// own name), the server is asked for its version. The resolved dialect is
// cached per driver and registry.
//
// # Statistics and Debugging
//
// StatsDriver counts statements, slow queries and errors. Errors are counted
// by their sqlerr.Kind, so transient failures can be told apart from
// constraint violations:
//
//	drv := sql.NewStatsDriver(base,
//	    sql.WithSlowThreshold(200*time.Millisecond),
//	    sql.WithSlowQueryLogger(logger),
//	)
//	fmt.Println(drv.QueryStats().Stats())
//
// DebugDriver logs every statement and transaction boundary.
package sql
