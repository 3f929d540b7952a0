// Package sqlite provides a SQLite-backed journal driver.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/papercomputeco/reckon/pkg/journal/sqldb"
)

// Driver implements journal.Driver using SQLite.
type Driver struct {
	*sqldb.Driver
}

// NewDriver opens the journal at dbPath, creating the schema if needed. The
// dbPath can be a file path or ":memory:".
func NewDriver(ctx context.Context, dbPath string) (*Driver, error) {
	// Open the database using the github.com/mattn/go-sqlite3 driver (registered as "sqlite3")
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// An in-memory database lives and dies with its connection.
	db.SetMaxOpenConns(1)

	d := &Driver{Driver: &sqldb.Driver{DB: db, Dialect: sqldb.SQLite}}
	if err := d.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return d, nil
}
