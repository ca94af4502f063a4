package db

import (
	"context"
	_ "embed"
	"fmt"
	"time"

	"github.com/chatapp/realtime-chat/internal/logging"

	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed schema.sql
var schema string

var Pool *pgxpool.Pool

// InitDB initializes the PostgreSQL connection pool
func InitDB(ctx context.Context, connString string) error {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return fmt.Errorf("unable to parse connection string: %w", err)
	}

	config.MaxConns = 10
	config.MinConns = 2
	config.MaxConnLifetime = time.Hour
	config.MaxConnIdleTime = 30 * time.Minute

	Pool, err = pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return fmt.Errorf("unable to create connection pool: %w", err)
	}

	if err := Pool.Ping(ctx); err != nil {
		return fmt.Errorf("unable to ping database: %w", err)
	}

	logging.Info().Int32("max_conns", config.MaxConns).Msg("connected to PostgreSQL")
	return nil
}

// Migrate applies the idempotent schema.
func Migrate(ctx context.Context) error {
	if _, err := Pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// ResetPresence marks every user offline. The connection registry does not
// survive a restart, so stale ONLINE rows are cleared at startup.
func ResetPresence(ctx context.Context) error {
	_, err := Pool.Exec(ctx, `UPDATE users SET status = 'OFFLINE' WHERE status <> 'OFFLINE'`)
	return err
}

// CloseDB closes the database connection pool
func CloseDB() {
	if Pool != nil {
		Pool.Close()
	}
}
