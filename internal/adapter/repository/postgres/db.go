// Package postgres persists recurrence rules and ingested price history
// using database/sql over lib/pq.
package postgres

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq" // postgres driver registration
)

// Pool sizing for a single-instance API: short rule CRUD statements plus
// range reads over price_history
const (
	maxOpenConns    = 10
	maxIdleConns    = 5
	connMaxLifetime = 30 * time.Minute
)

// DB is the sql connection pool shared by the rule and price repositories
type DB struct {
	*sql.DB
}

// NewDB opens a pool for the given lib/pq connection string and verifies the
// server is reachable before handing it out
func NewDB(connectionString string) (*DB, error) {
	db, err := sql.Open("postgres", connectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	db.SetMaxOpenConns(maxOpenConns)
	db.SetMaxIdleConns(maxIdleConns)
	db.SetConnMaxLifetime(connMaxLifetime)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{DB: db}, nil
}

// Close releases the pool
func (db *DB) Close() error {
	return db.DB.Close()
}
