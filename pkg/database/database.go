// Package database persists pool snapshots to PostgreSQL so health history
// survives restarts. Credentials are never written.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"

	"proxypool/pkg/models"
)

type DB struct {
	*bun.DB
}

// Open prepares a connection pool without touching the network.
func Open(cfg Config) *DB {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(cfg.DSN())))
	return &DB{bun.NewDB(sqldb, pgdialect.New())}
}

// NewDB opens the database and checks it is reachable.
func NewDB(ctx context.Context, cfg Config) (*DB, error) {
	db := Open(cfg)

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return db, nil
}

// InitSchema creates the snapshot table and its indexes if they don't exist
func (db *DB) InitSchema(ctx context.Context) error {
	_, err := db.NewCreateTable().
		Model((*models.ProxyDescriptor)(nil)).
		IfNotExists().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to create table: %w", err)
	}

	_, err = db.NewCreateIndex().
		Model((*models.ProxyDescriptor)(nil)).
		Index("proxy_descriptors_provider_idx").
		IfNotExists().
		Column("provider").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}
	return nil
}
