package db

import (
	"context"
	"embed"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

//go:embed schema/*.sql
var embedMigrations embed.FS

// Migrate runs a goose command ("up", "down", "status", ...) against the pool.
func Migrate(ctx context.Context, pool *pgxpool.Pool, command string) error {
	conn := stdlib.OpenDBFromPool(pool)
	defer conn.Close()

	goose.SetBaseFS(embedMigrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}

	if err := goose.RunContext(ctx, command, conn, "schema"); err != nil {
		return fmt.Errorf("failed to run migrations (%s): %w", command, err)
	}
	return nil
}
