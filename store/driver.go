package store

import "context"

// Driver opens databases for one descriptor scheme.
// Implementations must be comparable (typically a pointer).
type Driver interface {
	Open(ctx context.Context, d Descriptor) (Database, error)
}

// ConventionRegistrar is implemented by drivers that derive their document
// codecs from the process-wide Conventions.
type ConventionRegistrar interface {
	RegisterConventions(c Conventions)
}

// Database is an open connection to one database of a store.
type Database interface {
	// Collection returns a handle to the named collection. It fails if the
	// store rejects the collection (missing table, bad credentials, ...).
	Collection(ctx context.Context, name string) (Collection, error)

	// Close releases the connection.
	Close(ctx context.Context) error
}

// Match selects the document a replace applies to.
type Match struct {
	ID ID

	// Version must equal the stored version when CheckVersion is set.
	Version      int64
	CheckVersion bool
}

// SortOrder orders multi-document reads by ID.
type SortOrder int

const (
	// SortNone leaves the order to the driver.
	SortNone SortOrder = iota
	// SortAscending returns the oldest IDs first.
	SortAscending
	// SortDescending returns the newest IDs first.
	SortDescending
)

// Query describes a multi-document read.
type Query struct {
	// Filter restricts the result; nil matches every document.
	Filter Filter

	Sort SortOrder

	// Skip and Limit are applied after filtering and sorting (0 = no limit).
	Skip  int64
	Limit int64
}

// Collection is the handle a driver gives to a repository for one collection.
// Implementations must be safe for concurrent use and must not retry.
//
// out arguments are pointers to an entity struct (FindOne, FindOneAndDelete)
// or to a slice of entity structs (Find).
type Collection interface {
	Name() string

	// InsertOne stores doc as a new document. It returns an error wrapping
	// ErrDuplicateKey when a document with the same ID exists.
	InsertOne(ctx context.Context, id ID, doc any) error

	// ReplaceOne replaces the whole document selected by m. matched is false
	// when no document satisfied m.
	ReplaceOne(ctx context.Context, m Match, doc any) (matched bool, err error)

	FindOne(ctx context.Context, id ID, out any) (found bool, err error)

	// FindOneAndDelete atomically removes the document and decodes its last value.
	FindOneAndDelete(ctx context.Context, id ID, out any) (found bool, err error)

	Find(ctx context.Context, q Query, out any) error
}
