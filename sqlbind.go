// Package sqlbind executes mapped entities and statements against SQL
// databases of different dialects, with one code path for all of them.
//
// A Client resolves the dialect of its connection once, builds statements
// with the dialect's bind markers, and translates native driver errors into
// the portable taxonomy of package sqlerr:
//
//	client, err := sqlbind.Open(ctx, "postgres", dsn)
//	if err != nil {
//		return err
//	}
//	defer client.Close()
//
//	u := &User{Name: "a8m", Email: "a8m@example.com"}
//	if err := client.Insert(ctx, u); sqlbind.IsConstraintError(err) {
//		// duplicate email
//	}
package sqlbind

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/syssam/sqlbind/conversion"
	"github.com/syssam/sqlbind/dialect"
	"github.com/syssam/sqlbind/dialect/sql"
	"github.com/syssam/sqlbind/dialect/sql/sqlerr"
	"github.com/syssam/sqlbind/mapping"
	"github.com/syssam/sqlbind/strategy"
)

// Config holds the dependencies of a Client. It is populated by options.
type Config struct {
	// Driver executes statements. Required.
	Driver dialect.Driver
	// Dialect skips dialect resolution if set.
	Dialect *dialect.Dialect
	// Registry resolves the dialect of the driver. Defaults to
	// dialect.DefaultRegistry().
	Registry *dialect.Registry
	// NamingStrategy names tables and columns. Defaults to mapping.SnakeCase.
	NamingStrategy mapping.NamingStrategy
	// Converters are the custom conversions.
	Converters []*conversion.Converter
	// Translator translates driver errors. Defaults to the translator of
	// the resolved dialect.
	Translator sqlerr.Translator
	// Logger receives debug records of failed statements. Defaults to
	// slog.Default().
	Logger *slog.Logger
}

// Option configures a Client.
type Option func(*Config)

// WithDriver sets the driver used to execute statements.
func WithDriver(drv dialect.Driver) Option {
	return func(c *Config) {
		c.Driver = drv
	}
}

// WithDialect sets the dialect and skips resolution.
func WithDialect(d *dialect.Dialect) Option {
	return func(c *Config) {
		c.Dialect = d
	}
}

// WithRegistry sets the registry used to resolve the dialect.
func WithRegistry(r *dialect.Registry) Option {
	return func(c *Config) {
		c.Registry = r
	}
}

// WithNamingStrategy sets the naming strategy of mapped entities.
func WithNamingStrategy(s mapping.NamingStrategy) Option {
	return func(c *Config) {
		c.NamingStrategy = s
	}
}

// WithConverters adds custom converters.
func WithConverters(cs ...*conversion.Converter) Option {
	return func(c *Config) {
		c.Converters = append(c.Converters, cs...)
	}
}

// WithTranslator sets the error translator.
func WithTranslator(t sqlerr.Translator) Option {
	return func(c *Config) {
		c.Translator = t
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Config) {
		c.Logger = l
	}
}

// NewClient creates a client from the given options. If no dialect is
// configured, it is resolved from the driver, which may query the server.
func NewClient(ctx context.Context, opts ...Option) (*Client, error) {
	cfg := Config{}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.Driver == nil {
		return nil, ErrMissingDriver
	}
	if cfg.Registry == nil {
		cfg.Registry = dialect.DefaultRegistry()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Dialect == nil {
		d, err := resolveDialect(ctx, cfg.Driver, cfg.Registry)
		if err != nil {
			return nil, fmt.Errorf("sqlbind: resolve dialect: %w", err)
		}
		cfg.Dialect = d
	}
	s, err := strategy.New(strategy.Config{
		Dialect:     cfg.Dialect,
		Mapping:     mapping.NewContext(cfg.NamingStrategy),
		Conversions: conversion.New(cfg.Converters...),
	})
	if err != nil {
		return nil, err
	}
	if cfg.Translator == nil {
		cfg.Translator = sqlerr.NewTranslator(cfg.Dialect.Name())
	}
	return &Client{
		config:   cfg,
		conn:     cfg.Driver,
		strategy: s,
	}, nil
}

// Open opens a database/sql connection and creates a client for it.
func Open(ctx context.Context, driverName, dataSourceName string, opts ...Option) (*Client, error) {
	drv, err := sql.Open(driverName, dataSourceName)
	if err != nil {
		return nil, err
	}
	c, err := NewClient(ctx, append([]Option{WithDriver(drv)}, opts...)...)
	if err != nil {
		drv.Close()
		return nil, err
	}
	return c, nil
}

// dialectResolver is implemented by drivers that can identify the database
// they are connected to, like *sql.Driver.
type dialectResolver interface {
	ResolveDialect(context.Context, *dialect.Registry) (*dialect.Dialect, error)
}

func resolveDialect(ctx context.Context, drv dialect.Driver, r *dialect.Registry) (*dialect.Dialect, error) {
	if dr, ok := drv.(dialectResolver); ok {
		return dr.ResolveDialect(ctx, r)
	}
	return r.Resolve(dialect.Metadata{Name: drv.Dialect()})
}
