// Package migrations carries the embedded Postgres schema and applies it with goose.
package migrations

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

const (
	driverName = "pgx"
	dialect    = "postgres"
	directory  = "sql"
)

//go:embed sql/*.sql
var files embed.FS

var errEmptyDSN = errors.New("migrations: database url is required")

// Files exposes the embedded migration scripts.
func Files() fs.FS {
	return files
}

// gooseUpContext is replaced in tests.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// Up applies every pending migration to db.
func Up(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(files)
	if err := goose.SetDialect(dialect); err != nil {
		return fmt.Errorf("migrations: dialect: %w", err)
	}
	if err := gooseUpContext(ctx, db, directory); err != nil {
		return fmt.Errorf("migrations: up: %w", err)
	}
	return nil
}

// Run opens dsn through pgx and applies pending migrations.
func Run(ctx context.Context, dsn string) error {
	if dsn == "" {
		return errEmptyDSN
	}
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return fmt.Errorf("migrations: open: %w", err)
	}
	defer db.Close()
	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("migrations: ping: %w", err)
	}
	return Up(ctx, db)
}
