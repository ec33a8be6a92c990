// Command sqlbind renders the statements of a YAML file for one or all
// dialects, or executes them against a database.
//
//	sqlbind render statements.yaml --dialect all
//	sqlbind render statements.yaml --dialect sqlserver --watch
//	sqlbind exec statements.yaml --driver postgres --dsn "$DATABASE_URL"
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/fsnotify/fsnotify"
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	"github.com/spf13/cobra"
	_ "modernc.org/sqlite"

	"github.com/syssam/sqlbind"
	"github.com/syssam/sqlbind/config"
	"github.com/syssam/sqlbind/dialect"
	"github.com/syssam/sqlbind/dialect/sql"
	"github.com/syssam/sqlbind/internal/logger"
	"github.com/syssam/sqlbind/internal/stmtfile"
	"github.com/syssam/sqlbind/mapping"
	"github.com/syssam/sqlbind/strategy"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

// app holds the state shared by the subcommands.
type app struct {
	configPath string
	dialect    string
	naming     string
	logLevel   string

	cfg    *config.Config
	log    *slog.Logger
	closer io.Closer
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "sqlbind",
		Short: "Render and execute dialect-agnostic SQL statements",
		Long: `sqlbind builds the statements described in a YAML file with the bind
markers, quoting and paging syntax of each SQL dialect. Statements can be
printed with their ordered bindings, or executed against a database.`,
		SilenceUsage:      true,
		PersistentPreRunE: a.setup,
		PersistentPostRun: func(*cobra.Command, []string) {
			if a.closer != nil {
				a.closer.Close()
			}
		},
	}
	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "sqlbind.yaml", "Path to the configuration file")
	root.PersistentFlags().StringVarP(&a.dialect, "dialect", "d", "", fmt.Sprintf(`Dialect name (%s), or "all"`, strings.Join(dialects(), ", ")))
	root.PersistentFlags().StringVar(&a.naming, "naming", "", `Naming strategy: "snake_case" or "singular"`)
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "Log level: DEBUG, INFO, WARN or ERROR")
	root.AddCommand(a.renderCmd(), a.execCmd())
	return root
}

// setup loads the configuration, applies flag overrides and creates the logger.
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	flags := cmd.Flags()
	if flags.Changed("dialect") {
		cfg.Dialect = a.dialect
	}
	if flags.Changed("naming") {
		cfg.Naming = a.naming
	}
	if flags.Changed("log-level") {
		cfg.Log.Level = a.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	l, closer, err := logger.New(cfg.Log, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	a.cfg, a.log, a.closer = cfg, l, closer
	return nil
}

func (a *app) renderCmd() *cobra.Command {
	var watch bool
	cmd := &cobra.Command{
		Use:   "render FILE",
		Short: "Print the statements of FILE with their bindings",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ss, err := a.strategies()
			if err != nil {
				return err
			}
			path, out := args[0], cmd.OutOrStdout()
			err = a.render(out, path, ss)
			if !watch {
				return err
			}
			a.log.Info("watching statement file", "path", path)
			return a.watch(cmd.Context(), path, func() {
				fmt.Fprintf(out, "-- reloaded %s\n\n", path)
				a.render(out, path, ss)
			})
		},
	}
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "Render again when the file changes")
	return cmd
}

func (a *app) render(w io.Writer, path string, ss []*strategy.Strategy) error {
	f, err := stmtfile.Load(path)
	if err != nil {
		a.log.Error("load statements", "error", err)
		return err
	}
	if err := stmtfile.Render(w, f, ss...); err != nil {
		a.log.Error("render statements", "error", err)
		return err
	}
	a.log.Debug("rendered statements", "path", path, "statements", len(f.Statements), "dialects", len(ss))
	return nil
}

// strategies returns a strategy for every configured dialect.
func (a *app) strategies() ([]*strategy.Strategy, error) {
	ds, err := a.cfg.Dialects()
	if err != nil {
		return nil, err
	}
	naming, err := a.cfg.NamingStrategy()
	if err != nil {
		return nil, err
	}
	ss := make([]*strategy.Strategy, 0, len(ds))
	for _, d := range ds {
		s, err := strategy.New(strategy.Config{Dialect: d, Mapping: mapping.NewContext(naming)})
		if err != nil {
			return nil, err
		}
		ss = append(ss, s)
	}
	return ss, nil
}

// watch calls fn every time the file at path is written, until ctx is done.
func (a *app) watch(ctx context.Context, path string, fn func()) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch %s: %w", path, err)
	}
	defer w.Close()
	// Editors often replace the file on save, so the directory is watched.
	if err := w.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("watch %s: %w", path, err)
	}
	name := filepath.Clean(path)
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) == name && ev.Has(fsnotify.Write|fsnotify.Create) {
				a.log.Debug("statement file changed", "op", ev.Op.String())
				fn()
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			a.log.Warn("watch statement file", "error", err)
		}
	}
}

func (a *app) execCmd() *cobra.Command {
	var driverName, dsn string
	cmd := &cobra.Command{
		Use:   "exec FILE",
		Short: "Execute the statements of FILE in a transaction",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := stmtfile.Load(args[0])
			if err != nil {
				return err
			}
			return a.exec(cmd.Context(), cmd.OutOrStdout(), driverName, dsn, f)
		},
	}
	cmd.Flags().StringVar(&driverName, "driver", "", "database/sql driver name: postgres, mysql or sqlite")
	cmd.Flags().StringVar(&dsn, "dsn", "", "Data source name")
	cmd.MarkFlagRequired("driver")
	cmd.MarkFlagRequired("dsn")
	return cmd
}

func (a *app) exec(ctx context.Context, w io.Writer, driverName, dsn string, f *stmtfile.File) error {
	naming, err := a.cfg.NamingStrategy()
	if err != nil {
		return err
	}
	opts := []sql.StatsOption{sql.WithSlowThreshold(a.cfg.Stats.SlowThreshold)}
	if a.cfg.Stats.SlowThreshold > 0 {
		opts = append(opts, sql.WithSlowQueryLogger(a.log))
	}
	stats, qs, err := sql.OpenWithStats(driverName, dsn, opts...)
	if err != nil {
		return err
	}
	var drv dialect.Driver = stats
	if a.log.Enabled(ctx, slog.LevelDebug) {
		drv = sql.NewDebugDriver(stats, sql.DebugWithLogger(a.log))
	}
	copts := []sqlbind.Option{
		sqlbind.WithDriver(drv),
		sqlbind.WithLogger(a.log),
		sqlbind.WithNamingStrategy(naming),
	}
	if ds, err := a.cfg.Dialects(); err == nil && len(ds) == 1 {
		copts = append(copts, sqlbind.WithDialect(ds[0]))
	}
	client, err := sqlbind.NewClient(ctx, copts...)
	if err != nil {
		drv.Close()
		return err
	}
	defer client.Close()
	a.log.Debug("connected", "driver", driverName, "dialect", client.Dialect().Name())

	err = client.Tx(ctx, func(tx *sqlbind.Client) error {
		for _, s := range f.Statements {
			op, err := s.Operation()
			if err != nil {
				return err
			}
			fmt.Fprintf(w, "-- %s\n", s.Name)
			if op.Kind == strategy.OpSelect {
				if err := tx.Query(ctx, op, printRow(w)); err != nil {
					return err
				}
				continue
			}
			n, err := tx.Exec(ctx, op)
			if err != nil {
				return err
			}
			fmt.Fprintf(w, "%d rows affected\n", n)
		}
		return nil
	})
	a.log.Info("query stats", "stats", qs.Stats().String())
	if err != nil {
		a.log.Error("execute statements", "error", err, "retryable", sqlbind.IsRetryable(err))
	}
	return err
}

// printRow returns a row callback that prints the row as column=value pairs.
func printRow(w io.Writer) func(strategy.Scanner) error {
	return func(rows strategy.Scanner) error {
		columns, err := rows.Columns()
		if err != nil {
			return err
		}
		values := make([]any, len(columns))
		dest := make([]any, len(columns))
		for i := range values {
			dest[i] = &values[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return err
		}
		for i, c := range columns {
			if i > 0 {
				fmt.Fprint(w, "\t")
			}
			v := values[i]
			if b, ok := v.([]byte); ok {
				v = string(b)
			}
			fmt.Fprintf(w, "%s=%v", c, v)
		}
		fmt.Fprintln(w)
		return nil
	}
}

// dialects lists the names of the built-in dialects, for help texts.
func dialects() []string {
	var names []string
	for _, d := range dialect.Dialects() {
		names = append(names, d.Name())
	}
	return names
}
