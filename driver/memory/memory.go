// Package memory is an in-process document store.
//
// Importing it registers the "memory" scheme. Databases are named by the
// descriptor path and shared by every Open of the same name within the
// process:
//
//	db, err := store.Open(ctx, "memory:///events")
package memory

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"sync"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/jacentio/docket/internal/attr"
	"github.com/jacentio/docket/store"
)

// Scheme is the descriptor scheme served by this package.
const Scheme = "memory"

func init() {
	store.Register(Scheme, defaultDriver)
}

var defaultDriver = &Driver{}

// Driver opens named in-memory databases.
type Driver struct {
	mu  sync.Mutex
	dbs map[string]*Database
}

// Open returns the database named by d, creating it on first use.
func (drv *Driver) Open(ctx context.Context, d store.Descriptor) (store.Database, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	drv.mu.Lock()
	defer drv.mu.Unlock()
	if drv.dbs == nil {
		drv.dbs = make(map[string]*Database)
	}
	db, ok := drv.dbs[d.Database]
	if !ok {
		db = New(d.Database)
		drv.dbs[d.Database] = db
	}
	return db, nil
}

// RegisterConventions implements store.ConventionRegistrar.
func (drv *Driver) RegisterConventions(c store.Conventions) {
	attr.Configure(c)
}

// Drop discards the named database of the registered driver.
func Drop(name string) {
	defaultDriver.mu.Lock()
	defer defaultDriver.mu.Unlock()
	delete(defaultDriver.dbs, name)
}

type document = map[string]types.AttributeValue

// Database holds collections of encoded documents.
type Database struct {
	name string

	mu          sync.RWMutex
	collections map[string]map[store.ID]document
}

// New creates an empty database that is not reachable through Open.
func New(name string) *Database {
	return &Database{
		name:        name,
		collections: make(map[string]map[store.ID]document),
	}
}

// Name returns the database name.
func (db *Database) Name() string {
	return db.name
}

// Collection returns the named collection, creating it if needed.
func (db *Database) Collection(ctx context.Context, name string) (store.Collection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if name == "" {
		return nil, fmt.Errorf("memory: empty collection name")
	}
	db.mu.Lock()
	defer db.mu.Unlock()
	if _, ok := db.collections[name]; !ok {
		db.collections[name] = make(map[store.ID]document)
	}
	return &Collection{db: db, name: name}, nil
}

// Len returns the number of documents in the named collection.
func (db *Database) Len(collection string) int {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return len(db.collections[collection])
}

// Close is a no-op; contents stay available to later Opens.
func (db *Database) Close(context.Context) error {
	return nil
}

// Collection is a handle to one collection of a Database.
type Collection struct {
	db   *Database
	name string
}

var _ store.Collection = (*Collection)(nil)

func (c *Collection) Name() string { return c.name }

func (c *Collection) docs() map[store.ID]document {
	return c.db.collections[c.name]
}

// InsertOne stores doc under id.
func (c *Collection) InsertOne(ctx context.Context, id store.ID, doc any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	item, err := attr.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal document: %w", err)
	}

	c.db.mu.Lock()
	defer c.db.mu.Unlock()
	if _, exists := c.docs()[id]; exists {
		return fmt.Errorf("%w: %s %s", store.ErrDuplicateKey, c.name, id)
	}
	c.docs()[id] = item
	return nil
}

// ReplaceOne replaces the document selected by m.
func (c *Collection) ReplaceOne(ctx context.Context, m store.Match, doc any) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	item, err := attr.Marshal(doc)
	if err != nil {
		return false, fmt.Errorf("marshal document: %w", err)
	}

	c.db.mu.Lock()
	defer c.db.mu.Unlock()
	cur, exists := c.docs()[m.ID]
	if !exists {
		return false, nil
	}
	if m.CheckVersion && storedVersion(cur) != m.Version {
		return false, nil
	}
	c.docs()[m.ID] = item
	return true, nil
}

// FindOne decodes the document with id into out.
func (c *Collection) FindOne(ctx context.Context, id store.ID, out any) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	c.db.mu.RLock()
	item, ok := c.docs()[id]
	c.db.mu.RUnlock()
	if !ok {
		return false, nil
	}
	if err := attr.Unmarshal(item, out); err != nil {
		return false, fmt.Errorf("unmarshal document: %w", err)
	}
	return true, nil
}

// FindOneAndDelete removes the document with id and decodes it into out.
func (c *Collection) FindOneAndDelete(ctx context.Context, id store.ID, out any) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	c.db.mu.Lock()
	item, ok := c.docs()[id]
	delete(c.docs(), id)
	c.db.mu.Unlock()
	if !ok {
		return false, nil
	}
	if err := attr.Unmarshal(item, out); err != nil {
		return false, fmt.Errorf("unmarshal document: %w", err)
	}
	return true, nil
}

// Find decodes the matching documents into out. Results are ordered by ID
// unless SortDescending is requested.
func (c *Collection) Find(ctx context.Context, q store.Query, out any) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	type entry struct {
		id   store.ID
		item document
	}
	var matched []entry

	c.db.mu.RLock()
	for id, item := range c.docs() {
		ok, err := attr.Match(item, q.Filter)
		if err != nil {
			c.db.mu.RUnlock()
			return err
		}
		if ok {
			matched = append(matched, entry{id: id, item: item})
		}
	}
	c.db.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		if q.Sort == store.SortDescending {
			return matched[i].id.Compare(matched[j].id) > 0
		}
		return matched[i].id.Compare(matched[j].id) < 0
	})

	if q.Skip > 0 {
		if q.Skip >= int64(len(matched)) {
			matched = nil
		} else {
			matched = matched[q.Skip:]
		}
	}
	if q.Limit > 0 && int64(len(matched)) > q.Limit {
		matched = matched[:q.Limit]
	}

	items := make([]document, len(matched))
	for i, e := range matched {
		items[i] = e.item
	}
	if err := attr.UnmarshalList(items, out); err != nil {
		return fmt.Errorf("unmarshal documents: %w", err)
	}
	return nil
}

func storedVersion(item document) int64 {
	n, ok := item[store.ActiveConventions().VersionField].(*types.AttributeValueMemberN)
	if !ok {
		return 0
	}
	v, _ := strconv.ParseInt(n.Value, 10, 64)
	return v
}
