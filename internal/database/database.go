package database

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
)

type Options struct {
	Addr        string
	Database    string
	Username    string
	Password    string
	DialTimeout time.Duration
}

// NewClickHouseConnection opens and pings a ClickHouse connection.
func NewClickHouseConnection(ctx context.Context, opts Options) (clickhouse.Conn, error) {
	if opts.DialTimeout <= 0 {
		opts.DialTimeout = 5 * time.Second
	}

	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{opts.Addr},
		Auth: clickhouse.Auth{
			Database: opts.Database,
			Username: opts.Username,
			Password: opts.Password,
		},
		DialTimeout: opts.DialTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("error connecting to ClickHouse: %w", err)
	}

	if err := conn.Ping(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("ClickHouse ping failed: %w", err)
	}

	slog.Info("connected to ClickHouse", "addr", opts.Addr, "database", opts.Database)
	return conn, nil
}

// Ledger rows are versioned by run_at so repeated refreshes collapse on merge.
// A group that drops out of the feed keeps its last row; summaries are read
// from the latest run only.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS roi_ledger (
		group_key String,
		identity_key String,
		transaction_id String,
		type LowCardinality(String),
		status LowCardinality(String),
		currency LowCardinality(String),
		amount Float64,
		reference String,
		investment_id String,
		label String,
		effective_at Nullable(DateTime64(3, 'UTC')),
		effective_raw String,
		run_at DateTime64(3, 'UTC')
	) ENGINE = ReplacingMergeTree(run_at)
	ORDER BY group_key`,
	`CREATE TABLE IF NOT EXISTS roi_daily_summary (
		date Date,
		type LowCardinality(String),
		currency LowCardinality(String),
		transaction_count UInt64,
		total_amount Float64,
		run_at DateTime64(3, 'UTC')
	) ENGINE = ReplacingMergeTree(run_at)
	ORDER BY (date, type, currency)`,
}

// EnsureSchema creates the ledger tables if they do not exist.
func EnsureSchema(ctx context.Context, conn clickhouse.Conn) error {
	for _, ddl := range schema {
		if err := conn.Exec(ctx, ddl); err != nil {
			return fmt.Errorf("error creating ClickHouse schema: %w", err)
		}
	}
	return nil
}
