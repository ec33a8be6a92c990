package sqlbind

import (
	"context"
	"fmt"
	"reflect"

	"github.com/syssam/sqlbind/dialect"
	"github.com/syssam/sqlbind/dialect/sql"
	"github.com/syssam/sqlbind/mapping"
	"github.com/syssam/sqlbind/strategy"
)

// Client executes statements built by a strategy. It is safe for
// concurrent use, except for clients passed to Tx callbacks.
type Client struct {
	config   Config
	conn     dialect.ExecQuerier
	strategy *strategy.Strategy
	// tx is set for clients bound to a transaction.
	tx bool
}

// Dialect returns the dialect of the client.
func (c *Client) Dialect() *dialect.Dialect { return c.strategy.Dialect() }

// Strategy returns the strategy used to build statements.
func (c *Client) Strategy() *strategy.Strategy { return c.strategy }

// Close closes the underlying driver.
func (c *Client) Close() error {
	if c.tx {
		return fmt.Errorf("sqlbind: cannot close a transactional client")
	}
	return c.config.Driver.Close()
}

// Insert inserts the entity v.
func (c *Client) Insert(ctx context.Context, v any) error {
	e, err := c.entity(v)
	if err != nil {
		return err
	}
	stmt, err := c.strategy.Insert(v)
	if err != nil {
		return NewMutationError(e.Name, "insert", err)
	}
	if _, err := c.exec(ctx, "insert", stmt); err != nil {
		return NewMutationError(e.Name, "insert", err)
	}
	return nil
}

// Update updates the entity v by its id. It returns a NotFoundError if no
// row was updated. MySQL reports changed rows only, unless the connection
// is opened with clientFoundRows=true.
func (c *Client) Update(ctx context.Context, v any) error {
	e, err := c.entity(v)
	if err != nil {
		return err
	}
	stmt, err := c.strategy.Update(v)
	if err != nil {
		return NewMutationError(e.Name, "update", err)
	}
	n, err := c.exec(ctx, "update", stmt)
	if err != nil {
		return NewMutationError(e.Name, "update", err)
	}
	if n == 0 {
		return NewNotFoundErrorWithID(e.Name, idOf(e, v))
	}
	return nil
}

// Delete deletes the entity v by its id and returns the number of deleted rows.
func (c *Client) Delete(ctx context.Context, v any) (int64, error) {
	e, err := c.entity(v)
	if err != nil {
		return 0, err
	}
	stmt, err := c.strategy.Delete(v)
	if err != nil {
		return 0, NewMutationError(e.Name, "delete", err)
	}
	n, err := c.exec(ctx, "delete", stmt)
	if err != nil {
		return 0, NewMutationError(e.Name, "delete", err)
	}
	return n, nil
}

// Get reads the entity with the given id into dst, a pointer to a mapped
// struct. It returns a NotFoundError if there is no such row.
func (c *Client) Get(ctx context.Context, dst, id any) error {
	e, err := c.entity(dst)
	if err != nil {
		return err
	}
	stmt, err := c.strategy.SelectByID(dst, id)
	if err != nil {
		return NewQueryError(e.Name, "get", err)
	}
	found := 0
	err = c.query(ctx, "get", stmt, func(rows strategy.Scanner) error {
		if found++; found > 1 {
			return NewNotSingularError(e.Name)
		}
		return c.strategy.Scan(rows, dst)
	})
	switch {
	case err != nil:
		return NewQueryError(e.Name, "get", err)
	case found == 0:
		return NewNotFoundErrorWithID(e.Name, id)
	}
	return nil
}

// Select reads the entities matching the options into dst, a pointer to a
// slice of mapped structs or struct pointers.
func (c *Client) Select(ctx context.Context, dst any, opts ...strategy.SelectOption) error {
	sv := reflect.ValueOf(dst)
	if sv.Kind() != reflect.Pointer || sv.IsNil() || sv.Elem().Kind() != reflect.Slice {
		return fmt.Errorf("sqlbind: select into %T: expect a pointer to a slice", dst)
	}
	slice := sv.Elem()
	et := slice.Type().Elem()
	st, ptr := et, et.Kind() == reflect.Pointer
	if ptr {
		st = et.Elem()
	}
	e, err := c.entity(st)
	if err != nil {
		return err
	}
	stmt, err := c.strategy.Select(st, opts...)
	if err != nil {
		return NewQueryError(e.Name, "select", err)
	}
	err = c.query(ctx, "select", stmt, func(rows strategy.Scanner) error {
		item := reflect.New(st)
		if err := c.strategy.Scan(rows, item.Interface()); err != nil {
			return err
		}
		if !ptr {
			item = item.Elem()
		}
		slice.Set(reflect.Append(slice, item))
		return nil
	})
	if err != nil {
		return NewQueryError(e.Name, "select", err)
	}
	return nil
}

// Exec builds and executes an insert, update or delete operation, and
// returns the number of affected rows.
func (c *Client) Exec(ctx context.Context, op *strategy.Operation) (int64, error) {
	if op != nil && op.Kind == strategy.OpSelect {
		return 0, &strategy.InvalidOperationError{Op: op.Kind, Table: op.Table, Reason: "use Query for select operations"}
	}
	stmt, err := c.strategy.Build(op)
	if err != nil {
		return 0, err
	}
	n, err := c.exec(ctx, op.Kind.String(), stmt)
	if err != nil {
		return 0, NewMutationError(op.Table, op.Kind.String(), err)
	}
	return n, nil
}

// Query builds and executes a select operation, and calls fn for every row.
func (c *Client) Query(ctx context.Context, op *strategy.Operation, fn func(strategy.Scanner) error) error {
	if op != nil && op.Kind != strategy.OpSelect {
		return &strategy.InvalidOperationError{Op: op.Kind, Table: op.Table, Reason: "use Exec for write operations"}
	}
	stmt, err := c.strategy.Build(op)
	if err != nil {
		return err
	}
	if err := c.query(ctx, "select", stmt, fn); err != nil {
		return NewQueryError(op.Table, "select", err)
	}
	return nil
}

// Tx runs fn in a transaction. The transaction is committed if fn returns
// nil, and rolled back otherwise.
func (c *Client) Tx(ctx context.Context, fn func(tx *Client) error) error {
	if c.tx {
		return ErrTxStarted
	}
	tx, err := c.config.Driver.Tx(ctx)
	if err != nil {
		return c.translate(ctx, "begin", "", err)
	}
	txc := &Client{config: c.config, conn: tx, strategy: c.strategy, tx: true}
	if err := fn(txc); err != nil {
		if rerr := tx.Rollback(); rerr != nil {
			return &RollbackError{Err: err, Rollback: c.translate(ctx, "rollback", "", rerr)}
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return c.translate(ctx, "commit", "", err)
	}
	return nil
}

func (c *Client) exec(ctx context.Context, op string, stmt *strategy.Statement) (int64, error) {
	var res sql.Result
	if err := c.conn.Exec(ctx, stmt.SQL, stmt.Args(), &res); err != nil {
		return 0, c.translate(ctx, op, stmt.SQL, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, c.translate(ctx, op, stmt.SQL, err)
	}
	return n, nil
}

func (c *Client) query(ctx context.Context, op string, stmt *strategy.Statement, fn func(strategy.Scanner) error) error {
	rows := &sql.Rows{}
	if err := c.conn.Query(ctx, stmt.SQL, stmt.Args(), rows); err != nil {
		return c.translate(ctx, op, stmt.SQL, err)
	}
	defer rows.Close()
	for rows.Next() {
		if err := fn(rows); err != nil {
			return err
		}
	}
	if err := rows.Err(); err != nil {
		return c.translate(ctx, op, stmt.SQL, err)
	}
	return nil
}

// translate translates a driver error and logs it.
func (c *Client) translate(ctx context.Context, op, query string, err error) error {
	e := c.config.Translator.Translate(op, query, err)
	c.config.Logger.DebugContext(ctx, "statement failed",
		"op", op,
		"kind", e.Kind.String(),
		"code", e.Code,
		"retryable", e.Retryable(),
		"query", query,
		"error", err,
	)
	return e
}

func (c *Client) entity(v any) (*mapping.Entity, error) {
	e, err := c.strategy.Mapping().Entity(v)
	if err != nil {
		return nil, fmt.Errorf("sqlbind: %w", err)
	}
	return e, nil
}

// idOf returns the id of the entity v, or nil.
func idOf(e *mapping.Entity, v any) any {
	rv := reflect.Indirect(reflect.ValueOf(v))
	if e.ID == nil || !rv.IsValid() {
		return nil
	}
	if f := e.ID.Value(rv); f.IsValid() {
		return f.Interface()
	}
	return nil
}
