package db

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
)

var schemaDDL = `
CREATE TABLE IF NOT EXISTS customers (
	id          INTEGER PRIMARY KEY,
	name        VARCHAR(255) NOT NULL,
	email       VARCHAR(255) NOT NULL UNIQUE,
	created_at  TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS accounts (
	id              INTEGER PRIMARY KEY,
	customer_id     INTEGER NOT NULL REFERENCES customers(id),
	account_number  VARCHAR(50) NOT NULL,
	balance         DECIMAL(15,2) NOT NULL DEFAULT 0,
	created_at      TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS transactions (
	id          INTEGER PRIMARY KEY,
	account_id  INTEGER NOT NULL REFERENCES accounts(id),
	type        VARCHAR(10) NOT NULL CHECK (type IN ('credit','debit')),
	amount      DECIMAL(15,2) NOT NULL,
	created_at  TIMESTAMP NOT NULL
);
`

var seedStatements = []string{
	`INSERT INTO customers (id, name, email, created_at) VALUES
		(1, 'Alice Johnson', 'alice@example.com', NOW() - INTERVAL '730 days'),
		(2, 'Bob Smith', 'bob@example.com', NOW() - INTERVAL '600 days'),
		(3, 'Carol Williams', 'carol@example.com', NOW() - INTERVAL '500 days'),
		(4, 'David Brown', 'david@example.com', NOW() - INTERVAL '400 days'),
		(5, 'Eva Martinez', 'eva@example.com', NOW() - INTERVAL '300 days')
	ON CONFLICT (id) DO NOTHING`,
	`INSERT INTO accounts (id, customer_id, account_number, balance, created_at) VALUES
		(1, 1, 'ACC-1001', 15000.00, NOW() - INTERVAL '700 days'),
		(2, 1, 'ACC-1002', 3200.50, NOW() - INTERVAL '690 days'),
		(3, 2, 'ACC-1003', 22000.00, NOW() - INTERVAL '580 days'),
		(4, 3, 'ACC-1004', 8750.25, NOW() - INTERVAL '480 days'),
		(5, 4, 'ACC-1005', 31000.00, NOW() - INTERVAL '380 days'),
		(6, 5, 'ACC-1006', 4500.75, NOW() - INTERVAL '280 days')
	ON CONFLICT (id) DO NOTHING`,
	`INSERT INTO transactions (id, account_id, type, amount, created_at) VALUES
		(1, 1, 'credit', 2500.00, NOW() - INTERVAL '30 days'),
		(2, 1, 'debit', 120.45, NOW() - INTERVAL '28 days'),
		(3, 2, 'debit', 54.99, NOW() - INTERVAL '25 days'),
		(4, 3, 'credit', 8000.00, NOW() - INTERVAL '20 days'),
		(5, 3, 'debit', 310.10, NOW() - INTERVAL '18 days'),
		(6, 4, 'credit', 1250.00, NOW() - INTERVAL '15 days'),
		(7, 5, 'debit', 89.00, NOW() - INTERVAL '10 days'),
		(8, 5, 'credit', 4300.00, NOW() - INTERVAL '7 days'),
		(9, 6, 'debit', 42.50, NOW() - INTERVAL '3 days'),
		(10, 6, 'credit', 980.00, NOW() - INTERVAL '1 day')
	ON CONFLICT (id) DO NOTHING`,
}

// Seed creates the banking tables if absent and inserts the deterministic
// development data set. Intended for dev and demo environments only;
// production databases are provisioned out of band.
func Seed(ctx context.Context, pool *sql.DB, log *slog.Logger) error {
	if _, err := pool.ExecContext(ctx, schemaDDL); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	for _, stmt := range seedStatements {
		if _, err := pool.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to seed data: %w", err)
		}
	}
	if log != nil {
		log.Info("seed data ensured")
	}
	return nil
}
