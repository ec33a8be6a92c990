package sql

import (
	"context"
	"testing"

	"github.com/syssam/sqlbind/dialect"

	"github.com/DATA-DOG/go-sqlmock"
)

func BenchmarkDriver_Dialect(b *testing.B) {
	for _, name := range []string{dialect.SQLite, "pgx", "mysql-otel", "custom"} {
		b.Run(name, func(b *testing.B) {
			drv := NewDriver(name, Conn{})
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				drv.Dialect()
			}
		})
	}
}

func BenchmarkDriver_ResolveDialect(b *testing.B) {
	db, _, err := sqlmock.New()
	if err != nil {
		b.Fatal(err)
	}
	defer db.Close()
	var (
		drv = OpenDB(dialect.Postgres, db)
		r   = dialect.DefaultRegistry()
		ctx = context.Background()
	)
	b.ReportAllocs()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			if _, err := drv.ResolveDialect(ctx, r); err != nil {
				b.Error(err)
			}
		}
	})
}
