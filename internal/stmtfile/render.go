package stmtfile

import (
	"errors"
	"fmt"
	"io"

	"github.com/syssam/sqlbind/strategy"
)

// Render builds every statement of f with each of the strategies, and
// writes the SQL text and the bindings to w. Statements that fail to build
// are reported in place, and the joined errors are returned.
func Render(w io.Writer, f *File, ss ...*strategy.Strategy) error {
	var errs []error
	for _, s := range f.Statements {
		op, err := s.Operation()
		if err != nil {
			fmt.Fprintf(w, "-- %s\nerror: %v\n\n", s.Name, err)
			errs = append(errs, err)
			continue
		}
		for _, st := range ss {
			fmt.Fprintf(w, "-- %s [%s]\n", s.Name, st.Dialect().Name())
			stmt, err := st.Build(op)
			if err != nil {
				fmt.Fprintf(w, "error: %v\n\n", err)
				errs = append(errs, fmt.Errorf("%s [%s]: %w", s.Name, st.Dialect().Name(), err))
				continue
			}
			fmt.Fprintf(w, "%s\n\n", stmt)
		}
	}
	return errors.Join(errs...)
}
