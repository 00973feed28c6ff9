// Package db opens the shared Postgres connection pool and, in dev mode,
// bootstraps the banking schema with deterministic seed data.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	_ "github.com/jackc/pgx/v5/stdlib"
)

// Open connects to the database and verifies reachability, retrying the
// initial ping with exponential backoff so the service tolerates a slow
// database start. Pool limits mirror the configured size plus overflow.
func Open(ctx context.Context, databaseURL string, poolSize, maxOverflow int, log *slog.Logger) (*sql.DB, error) {
	if databaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	pool, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	pool.SetMaxOpenConns(poolSize + maxOverflow)
	pool.SetMaxIdleConns(poolSize)
	pool.SetConnMaxIdleTime(5 * time.Minute)

	policy := backoff.NewExponentialBackOff()
	policy.MaxElapsedTime = 30 * time.Second
	err = backoff.Retry(func() error {
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := pool.PingContext(pingCtx); err != nil {
			if log != nil {
				log.Warn("database not reachable yet, retrying", "error", err)
			}
			return err
		}
		return nil
	}, backoff.WithContext(policy, ctx))
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("database unreachable: %w", err)
	}

	if log != nil {
		log.Info("database connected", "maxOpenConns", poolSize+maxOverflow)
	}
	return pool, nil
}

// Ping reports whether the database currently answers.
func Ping(ctx context.Context, pool *sql.DB) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	return pool.PingContext(ctx)
}
