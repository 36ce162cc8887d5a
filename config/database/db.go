package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"newsnotes/config"
	"newsnotes/pkg/logger"

	_ "github.com/lib/pq"
)

// retryDelay is the pause between failed pings.
var retryDelay = 2 * time.Second

// Connect opens the Postgres pool and pings it, retrying a few times in case
// of temporary DNS/network blips.
func Connect(ctx context.Context, cfg config.Database) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	if err := ping(ctx, db, cfg.Retries); err != nil {
		db.Close()
		return nil, err
	}
	logger.Sugar.Info("Successfully connected to the database")
	return db, nil
}

func ping(ctx context.Context, db *sql.DB, retries int) error {
	var err error
	for i := 0; i < retries; i++ {
		if err = db.PingContext(ctx); err == nil {
			return nil
		}
		logger.Sugar.Infof("Database connection failed, retrying in %s... (%v)", retryDelay, err)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(retryDelay):
		}
	}
	return fmt.Errorf("could not connect to database after %d attempts: %w", retries, err)
}

// ServerTime runs SELECT NOW(), the cheapest query that proves the
// connection can execute statements.
func ServerTime(ctx context.Context, db *sql.DB) (time.Time, error) {
	var now time.Time
	if err := db.QueryRowContext(ctx, "SELECT NOW()").Scan(&now); err != nil {
		return time.Time{}, fmt.Errorf("query failed: %w", err)
	}
	return now, nil
}
