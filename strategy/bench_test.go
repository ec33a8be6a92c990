package strategy

import (
	"testing"

	"github.com/syssam/sqlbind/dialect"
)

func BenchmarkBuild_Insert(b *testing.B) {
	for _, name := range []string{dialect.Postgres, dialect.MySQL, dialect.SQLServer} {
		b.Run(name, func(b *testing.B) {
			s := newStrategy(b, name)
			u := &User{ID: 1, Name: "a8m", Email: "a8m@example.com"}
			b.ReportAllocs()
			b.ResetTimer()
			for b.Loop() {
				if _, err := s.Insert(u); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

func BenchmarkBuild_Select(b *testing.B) {
	s := newStrategy(b, dialect.Postgres)
	op := Select("users", "id", "name", "email").
		Filter(And(EQ("name", "a8m"), In("id", 1, 2, 3))).
		Order(Desc("id")).
		Take(10)
	b.ReportAllocs()
	for b.Loop() {
		stmt, err := s.Build(op)
		if err != nil {
			b.Fatal(err)
		}
		_ = stmt.Args()
	}
}
