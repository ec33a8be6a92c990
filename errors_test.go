package sqlbind_test

import (
	"errors"
	"fmt"
	"reflect"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"

	"github.com/syssam/sqlbind"
	"github.com/syssam/sqlbind/conversion"
	"github.com/syssam/sqlbind/dialect"
	"github.com/syssam/sqlbind/dialect/sql/sqlerr"
	"github.com/syssam/sqlbind/strategy"
)

func TestNotFoundError(t *testing.T) {
	t.Run("Error", func(t *testing.T) {
		err := sqlbind.NewNotFoundError("User")
		assert.Equal(t, "sqlbind: User not found", err.Error())
		err = sqlbind.NewNotFoundErrorWithID("User", 42)
		assert.Equal(t, "sqlbind: User not found (id=42)", err.Error())
		assert.Equal(t, "User", err.Label())
		assert.Equal(t, 42, err.ID())
	})

	t.Run("Is", func(t *testing.T) {
		err := sqlbind.NewNotFoundError("Post")
		assert.True(t, errors.Is(err, sqlbind.ErrNotFound))
	})

	t.Run("IsNotFound", func(t *testing.T) {
		err := sqlbind.NewNotFoundError("Comment")
		assert.True(t, sqlbind.IsNotFound(err))

		// Wrapped error
		wrapped := fmt.Errorf("wrapper: %w", err)
		assert.True(t, sqlbind.IsNotFound(wrapped))

		// Sentinel error
		assert.True(t, sqlbind.IsNotFound(sqlbind.ErrNotFound))

		// Non-matching error
		assert.False(t, sqlbind.IsNotFound(errors.New("other error")))
		assert.False(t, sqlbind.IsNotFound(nil))
	})
}

func TestNotSingularError(t *testing.T) {
	t.Run("Error", func(t *testing.T) {
		err := sqlbind.NewNotSingularError("User")
		assert.Equal(t, "sqlbind: User not singular", err.Error())
	})

	t.Run("IsNotSingular", func(t *testing.T) {
		err := sqlbind.NewNotSingularError("Comment")
		assert.True(t, sqlbind.IsNotSingular(err))
		assert.True(t, sqlbind.IsNotSingular(fmt.Errorf("wrapper: %w", err)))
		assert.True(t, sqlbind.IsNotSingular(sqlbind.ErrNotSingular))
		assert.False(t, sqlbind.IsNotSingular(errors.New("other error")))
		assert.False(t, sqlbind.IsNotSingular(nil))
	})
}

func TestRollbackError(t *testing.T) {
	underlying := errors.New("timeout")
	err := &sqlbind.RollbackError{Err: underlying, Rollback: errors.New("connection lost")}
	assert.Equal(t, "sqlbind: timeout: rolling back transaction: connection lost", err.Error())
	assert.True(t, errors.Is(err, underlying))
}

func TestQueryMutationError(t *testing.T) {
	native := &mysql.MySQLError{Number: 1062, Message: "Duplicate entry"}
	translated := sqlerr.NewTranslator(dialect.MySQL).Translate("insert", "INSERT ...", native)

	qerr := sqlbind.NewQueryError("User", "get", translated)
	assert.Equal(t, "sqlbind: querying User (get): "+translated.Error(), qerr.Error())
	assert.Equal(t, "sqlbind: querying User: x", sqlbind.NewQueryError("User", "", errors.New("x")).Error())
	assert.True(t, sqlbind.IsQueryError(qerr))
	assert.False(t, sqlbind.IsQueryError(nil))

	merr := sqlbind.NewMutationError("User", "insert", translated)
	assert.Equal(t, "sqlbind: insert User: "+translated.Error(), merr.Error())
	assert.True(t, sqlbind.IsMutationError(merr))
	assert.False(t, sqlbind.IsMutationError(qerr))

	// The chain unwraps to the translated error and to the native error.
	assert.True(t, sqlbind.IsConstraintError(merr))
	assert.True(t, errors.Is(merr, sqlerr.ErrUniqueConstraint))
	var me *mysql.MySQLError
	assert.ErrorAs(t, merr, &me)
}

func TestErrorHelpers(t *testing.T) {
	tests := []struct {
		name string
		err  error
		is   func(error) bool
		want bool
	}{
		{"unsupported dialect", &dialect.UnsupportedDialectError{Metadata: dialect.Metadata{Name: "db2"}}, sqlbind.IsUnsupportedDialect, true},
		{"unsupported dialect wrapped", fmt.Errorf("x: %w", dialect.ErrUnsupportedDialect), sqlbind.IsUnsupportedDialect, true},
		{"unsupported dialect nil", nil, sqlbind.IsUnsupportedDialect, false},
		{"conversion", &conversion.ConversionNotSupportedError{Type: reflect.TypeFor[chan int](), Direction: conversion.Writing}, sqlbind.IsConversionNotSupported, true},
		{"conversion other", errors.New("x"), sqlbind.IsConversionNotSupported, false},
		{"invalid operation", &strategy.InvalidOperationError{Op: strategy.OpInsert, Reason: "no columns"}, sqlbind.IsInvalidOperation, true},
		{"invalid operation nil", nil, sqlbind.IsInvalidOperation, false},
		{"constraint", sqlerr.Translate(&pq.Error{Code: "23505"}), sqlbind.IsConstraintError, true},
		{"constraint native", &pq.Error{Code: "23505"}, sqlbind.IsConstraintError, false},
		{"constraint nil", nil, sqlbind.IsConstraintError, false},
		{"retryable", sqlerr.Translate(&pq.Error{Code: "08006"}), sqlbind.IsRetryable, true},
		{"retryable grammar", sqlerr.Translate(&pq.Error{Code: "42601"}), sqlbind.IsRetryable, false},
		{"retryable nil", nil, sqlbind.IsRetryable, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.is(tt.err))
		})
	}
}

func TestSentinelErrors(t *testing.T) {
	assert.Contains(t, sqlbind.ErrNotFound.Error(), "not found")
	assert.Contains(t, sqlbind.ErrNotSingular.Error(), "not singular")
	assert.Contains(t, sqlbind.ErrTxStarted.Error(), "transaction")
	assert.Contains(t, sqlbind.ErrMissingDriver.Error(), "driver")
}

// BenchmarkErrors benchmarks error creation and checking.
func BenchmarkErrors(b *testing.B) {
	b.Run("NewNotFoundError", func(b *testing.B) {
		for b.Loop() {
			_ = sqlbind.NewNotFoundError("User")
		}
	})

	b.Run("IsNotFound", func(b *testing.B) {
		err := sqlbind.NewNotFoundError("User")
		for b.Loop() {
			_ = sqlbind.IsNotFound(err)
		}
	})

	b.Run("IsConstraintError", func(b *testing.B) {
		err := sqlbind.NewMutationError("User", "insert", sqlerr.Translate(&pq.Error{Code: "23505"}))
		for b.Loop() {
			_ = sqlbind.IsConstraintError(err)
		}
	})
}
