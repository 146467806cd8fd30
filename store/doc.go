// Package store provides a generic entity repository over schemaless document stores.
//
// A repository is bound to one entity type and stores it in a collection
// named after the type ("Ticket" is stored in "Tickets", "Category" in
// "Categories"). The backing store is chosen by the scheme of a connection
// descriptor; drivers register themselves from init, the way database/sql
// drivers do:
//
//	import (
//	    "github.com/jacentio/docket/store"
//	    _ "github.com/jacentio/docket/driver/mongodb"
//	)
//
//	db, err := store.Open(ctx, "mongodb://localhost:27017/events")
//	tickets, err := store.NewRepository[Ticket](ctx, db)
//
// # Entity Interfaces
//
// Entities embed [Base] and name their type:
//
//	type Ticket struct {
//	    store.Base `bson:",inline"`
//	    EventName  string `bson:"eventName"`
//	}
//
//	func (*Ticket) EntityType() string { return "Ticket" }
//
// # Operations
//
// [Repository.Insert] stamps both audit timestamps and assigns an ID.
// [Repository.Update] advances updatedAt and the version and replaces the
// whole document. By default the last write wins; [WithOptimisticConcurrency]
// rejects updates made from a stale copy. Get and Delete return nil when
// nothing is stored under the ID.
//
// [Repository.SearchFor] takes a store-neutral [Filter]:
//
//	store.And(store.Eq("eventName", "Gala"), store.Lt("price", 50))
//
// # Errors
//
//   - [ErrConfiguration] - descriptor missing, malformed or unknown
//   - [ErrCollectionSetup] - the store refused the collection
//   - [ErrDuplicateEntity] - insert with an existing ID
//   - [ErrEntityNotFound] - update of a missing entity
//   - [ErrConcurrencyConflict] - version check failed
//   - [ErrCancelled] - the context ended first
package store
