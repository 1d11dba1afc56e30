// Package database opens the Postgres pool that holds applications, job
// postings and notifications, the Redis client behind the job cache and the
// notification channels, and the optional Elasticsearch client for search.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"hireflow/internal/common/config"

	_ "github.com/lib/pq"
)

// Pool defaults used when the config leaves a value at zero.
const (
	DefaultMaxConnections = 10
	DefaultMaxIdle        = 2
	DefaultConnLifetime   = 5 * time.Minute
)

type PostgresClient struct {
	DB *sql.DB
}

// NewPostgres opens the pool without dialing; Ping checks reachability.
func NewPostgres(cfg config.PostgresConfig) (*PostgresClient, error) {
	db, err := sql.Open("postgres", cfg.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("open postgres %s/%s: %w", cfg.Host, cfg.Database, err)
	}

	maxOpen, maxIdle, lifetime := poolSettings(cfg)
	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(maxIdle)
	db.SetConnMaxLifetime(lifetime)
	db.SetConnMaxIdleTime(lifetime)

	return &PostgresClient{DB: db}, nil
}

func poolSettings(cfg config.PostgresConfig) (maxOpen, maxIdle int, lifetime time.Duration) {
	maxOpen, maxIdle, lifetime = cfg.MaxConnections, cfg.MaxIdle, config.GetDuration(cfg.ConnLifetime)
	if maxOpen <= 0 {
		maxOpen = DefaultMaxConnections
	}
	if maxIdle <= 0 {
		maxIdle = DefaultMaxIdle
	}
	if maxIdle > maxOpen {
		maxIdle = maxOpen
	}
	if lifetime <= 0 {
		lifetime = DefaultConnLifetime
	}
	return maxOpen, maxIdle, lifetime
}

func (c *PostgresClient) Ping(ctx context.Context) error {
	if err := c.DB.PingContext(ctx); err != nil {
		return fmt.Errorf("postgres ping failed: %w", err)
	}
	return nil
}

func (c *PostgresClient) Close() error {
	if c.DB != nil {
		return c.DB.Close()
	}
	return nil
}

func (c *PostgresClient) GetDB() *sql.DB {
	return c.DB
}
