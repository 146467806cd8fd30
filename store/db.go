package store

import (
	"context"
	"fmt"
)

// DB is an open database reached through a registered driver.
// It is safe for concurrent use; repositories built on it share the connection.
type DB struct {
	desc     Descriptor
	database Database
}

// Open resolves dsn to a registered driver and opens the database it names.
// Conventions are registered before the first connection.
func Open(ctx context.Context, dsn string) (*DB, error) {
	RegisterConventions()

	desc, err := ParseDescriptor(dsn)
	if err != nil {
		return nil, err
	}
	driver, ok := drivers.Lookup(desc.Scheme)
	if !ok {
		return nil, &ConfigurationError{Reason: fmt.Sprintf("no driver for scheme %q", desc.Scheme)}
	}
	if err := ctx.Err(); err != nil {
		return nil, &CancelledError{Operation: "open", Err: err}
	}
	database, err := driver.Open(ctx, desc)
	if err != nil {
		if ctx.Err() != nil {
			return nil, &CancelledError{Operation: "open", Err: ctx.Err()}
		}
		return nil, &ConfigurationError{Reason: "open " + desc.Redacted(), Err: err}
	}
	return &DB{desc: desc, database: database}, nil
}

// OpenDatabase wraps an already open Database, for drivers configured in code.
func OpenDatabase(desc Descriptor, database Database) *DB {
	RegisterConventions()
	return &DB{desc: desc, database: database}
}

// Descriptor returns the descriptor the DB was opened with.
func (db *DB) Descriptor() Descriptor {
	return db.desc
}

// Close closes the underlying connection.
func (db *DB) Close(ctx context.Context) error {
	return db.database.Close(ctx)
}
