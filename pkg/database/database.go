package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config selects a database/sql driver and its data source.
type Config struct {
	Driver string `envconfig:"SQL_DRIVER" default:"sqlite"`
	DSN    string `envconfig:"SQL_DSN" default:"file:data/data.db?mode=ro"`
}

// Open opens a handle and verifies it with a ping. Callers own Close.
func (c Config) Open(ctx context.Context) (*sql.DB, error) {
	if c.Driver == "" {
		return nil, fmt.Errorf("sql driver is empty")
	}
	db, err := sql.Open(c.Driver, c.DSN)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", c.Driver, err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", c.Driver, err)
	}
	return db, nil
}

// OpenSQLite opens a writable SQLite file used for local indexes.
func OpenSQLite(ctx context.Context, path string) (*sql.DB, error) {
	return Config{Driver: DriverSQLite, DSN: path}.Open(ctx)
}
