package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Operation names used in logs, metrics and errors.
const (
	opInsert     = "insert"
	opUpdate     = "update"
	opGet        = "get"
	opDelete     = "delete"
	opGetAll     = "get_all"
	opPagination = "pagination"
	opSearch     = "search"
)

// Store is the set of operations a repository offers for entities of type PT.
type Store[PT Entity] interface {
	Insert(ctx context.Context, entity PT) (PT, error)
	Update(ctx context.Context, entity PT) (PT, error)
	Get(ctx context.Context, id ID) (PT, error)
	Delete(ctx context.Context, id ID) (PT, error)
	GetAll(ctx context.Context) ([]PT, error)
	Pagination(ctx context.Context, top, skip int, ascending bool) ([]PT, error)
	SearchFor(ctx context.Context, filter Filter) ([]PT, error)
}

// Repository stores entities of type T in the collection named after T.
// It is safe for concurrent use.
type Repository[T any, PT EntityPtr[T]] struct {
	coll      Collection
	name      string
	db        *DB
	owned     bool
	logger    *zap.Logger
	metrics   *Metrics
	clock     func() time.Time
	precision time.Duration
	strict    bool
}

// NewRepository binds a repository for T to db. The collection handle is
// obtained once here; failures are reported as *CollectionSetupError.
func NewRepository[T any, PT EntityPtr[T]](ctx context.Context, db *DB, opts ...Option) (*Repository[T, PT], error) {
	if db == nil {
		return nil, &ConfigurationError{Reason: "nil database"}
	}
	o := newOptions(opts)
	name := CollectionNameOf[T, PT]()

	coll, err := db.database.Collection(ctx, name)
	if err != nil {
		return nil, &CollectionSetupError{Collection: name, Err: err}
	}

	precision := ActiveConventions().TimePrecision
	if precision <= 0 {
		precision = time.Millisecond
	}
	r := &Repository[T, PT]{
		coll:      coll,
		name:      name,
		db:        db,
		logger:    o.logger.With(zap.String("collection", name)),
		metrics:   o.metrics,
		clock:     o.clock,
		precision: precision,
		strict:    o.strict,
	}
	r.logger.Debug("repository ready", zap.String("scheme", db.desc.Scheme), zap.Bool("optimistic", o.strict))
	return r, nil
}

// Connect opens dsn and binds a repository for T to it. The repository owns
// the connection; Close releases it.
func Connect[T any, PT EntityPtr[T]](ctx context.Context, dsn string, opts ...Option) (*Repository[T, PT], error) {
	db, err := Open(ctx, dsn)
	if err != nil {
		return nil, err
	}
	r, err := NewRepository[T, PT](ctx, db, opts...)
	if err != nil {
		_ = db.Close(context.WithoutCancel(ctx))
		return nil, err
	}
	r.owned = true
	return r, nil
}

// Collection returns the name of the backing collection.
func (r *Repository[T, PT]) Collection() string {
	return r.name
}

// Close releases the connection if the repository was built by Connect.
func (r *Repository[T, PT]) Close(ctx context.Context) error {
	if !r.owned {
		return nil
	}
	return r.db.Close(ctx)
}

// Insert stores entity as a new document. Both audit timestamps are set to
// now and a zero ID is replaced with a fresh one; the version is left as is.
// An existing ID fails with *DuplicateEntityError.
// On failure entity is left as it was passed in.
func (r *Repository[T, PT]) Insert(ctx context.Context, entity PT) (_ PT, err error) {
	start := time.Now()
	defer func() { r.record(opInsert, start, err) }()

	if err := ctx.Err(); err != nil {
		return nil, &CancelledError{Operation: opInsert, Err: err}
	}

	prevID, prevCreated, prevUpdated := entity.GetID(), entity.GetCreatedAt(), entity.GetUpdatedAt()
	now := r.now()
	entity.SetCreatedAt(now)
	entity.SetUpdatedAt(now)
	if prevID.IsZero() {
		entity.SetID(NewID())
	}

	if err := r.coll.InsertOne(ctx, entity.GetID(), entity); err != nil {
		entity.SetID(prevID)
		entity.SetCreatedAt(prevCreated)
		entity.SetUpdatedAt(prevUpdated)
		if errors.Is(err, ErrDuplicateKey) {
			return nil, &DuplicateEntityError{Collection: r.name, Entity: entity, Err: err}
		}
		return nil, r.classify(ctx, opInsert, err)
	}
	return entity, nil
}

// Update replaces the stored document with entity. updatedAt moves forward,
// the version goes up by one and createdAt is kept as the caller holds it.
// A zero ID or an ID with no stored document fails with *EntityNotFoundError.
// On failure entity is left as it was passed in.
func (r *Repository[T, PT]) Update(ctx context.Context, entity PT) (_ PT, err error) {
	start := time.Now()
	defer func() { r.record(opUpdate, start, err) }()

	if err := ctx.Err(); err != nil {
		return nil, &CancelledError{Operation: opUpdate, Err: err}
	}

	id := entity.GetID()
	if id.IsZero() {
		return nil, &EntityNotFoundError{Collection: r.name, ID: id}
	}

	prevVersion, prevUpdated := entity.GetVersion(), entity.GetUpdatedAt()
	now := r.now()
	if !now.After(prevUpdated) {
		now = prevUpdated.Truncate(r.precision).Add(r.precision)
	}
	entity.SetUpdatedAt(now)
	entity.SetVersion(prevVersion + 1)

	match := Match{ID: id}
	if r.strict {
		match.Version = prevVersion
		match.CheckVersion = true
	}

	matched, err := r.coll.ReplaceOne(ctx, match, entity)
	if err != nil {
		entity.SetVersion(prevVersion)
		entity.SetUpdatedAt(prevUpdated)
		return nil, r.classify(ctx, opUpdate, err)
	}
	if !matched {
		entity.SetVersion(prevVersion)
		entity.SetUpdatedAt(prevUpdated)
		return nil, r.mismatch(ctx, id, prevVersion)
	}
	return entity, nil
}

// mismatch explains a replace that matched nothing.
func (r *Repository[T, PT]) mismatch(ctx context.Context, id ID, expected int64) error {
	if !r.strict {
		return &EntityNotFoundError{Collection: r.name, ID: id}
	}
	found, err := r.coll.FindOne(ctx, id, PT(new(T)))
	if err != nil {
		return r.classify(ctx, opUpdate, err)
	}
	if found {
		return &ConcurrencyConflictError{Collection: r.name, ID: id, Expected: expected}
	}
	return &EntityNotFoundError{Collection: r.name, ID: id}
}

// Get returns the entity with id, or nil if there is none.
func (r *Repository[T, PT]) Get(ctx context.Context, id ID) (_ PT, err error) {
	start := time.Now()
	defer func() { r.record(opGet, start, err) }()

	if err := ctx.Err(); err != nil {
		return nil, &CancelledError{Operation: opGet, Err: err}
	}
	out := PT(new(T))
	found, err := r.coll.FindOne(ctx, id, out)
	if err != nil {
		return nil, r.classify(ctx, opGet, err)
	}
	if !found {
		return nil, nil
	}
	return out, nil
}

// Delete removes the entity with id and returns its last stored value,
// or nil if there was none.
func (r *Repository[T, PT]) Delete(ctx context.Context, id ID) (_ PT, err error) {
	start := time.Now()
	defer func() { r.record(opDelete, start, err) }()

	if err := ctx.Err(); err != nil {
		return nil, &CancelledError{Operation: opDelete, Err: err}
	}
	out := PT(new(T))
	found, err := r.coll.FindOneAndDelete(ctx, id, out)
	if err != nil {
		return nil, r.classify(ctx, opDelete, err)
	}
	if !found {
		return nil, nil
	}
	return out, nil
}

// GetAll returns every entity in the collection, in no particular order.
func (r *Repository[T, PT]) GetAll(ctx context.Context) (_ []PT, err error) {
	start := time.Now()
	defer func() { r.record(opGetAll, start, err) }()

	return r.find(ctx, opGetAll, Query{})
}

// Pagination returns at most top entities after skipping skip, ordered by ID.
// A non-positive top yields an empty page; a negative skip counts as 0.
func (r *Repository[T, PT]) Pagination(ctx context.Context, top, skip int, ascending bool) (_ []PT, err error) {
	start := time.Now()
	defer func() { r.record(opPagination, start, err) }()

	if top <= 0 {
		if err := ctx.Err(); err != nil {
			return nil, &CancelledError{Operation: opPagination, Err: err}
		}
		return []PT{}, nil
	}
	if skip < 0 {
		skip = 0
	}
	q := Query{Sort: SortDescending, Skip: int64(skip), Limit: int64(top)}
	if ascending {
		q.Sort = SortAscending
	}
	return r.find(ctx, opPagination, q)
}

// SearchFor returns every entity matching filter, in no particular order.
// A nil filter matches every entity. Malformed filters fail with an error
// wrapping ErrInvalidFilter.
func (r *Repository[T, PT]) SearchFor(ctx context.Context, filter Filter) (_ []PT, err error) {
	start := time.Now()
	defer func() { r.record(opSearch, start, err) }()

	if filter != nil {
		if err := ValidateFilter(filter); err != nil {
			return nil, err
		}
	}
	return r.find(ctx, opSearch, Query{Filter: filter})
}

func (r *Repository[T, PT]) find(ctx context.Context, op string, q Query) ([]PT, error) {
	if err := ctx.Err(); err != nil {
		return nil, &CancelledError{Operation: op, Err: err}
	}
	var docs []T
	if err := r.coll.Find(ctx, q, &docs); err != nil {
		return nil, r.classify(ctx, op, err)
	}
	out := make([]PT, len(docs))
	for i := range docs {
		out[i] = PT(&docs[i])
	}
	return out, nil
}

// now returns the current time in UTC at the stored precision.
func (r *Repository[T, PT]) now() time.Time {
	return r.clock().UTC().Truncate(r.precision)
}

// classify turns a driver error into the error returned to callers.
func (r *Repository[T, PT]) classify(ctx context.Context, op string, err error) error {
	if cerr := ctx.Err(); cerr != nil {
		return &CancelledError{Operation: op, Err: cerr}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return &CancelledError{Operation: op, Err: err}
	}
	return fmt.Errorf("docket: %s %s: %w", op, r.name, err)
}

func (r *Repository[T, PT]) record(op string, start time.Time, err error) {
	elapsed := time.Since(start)
	outcome := Outcome(err)
	if r.metrics != nil {
		r.metrics.observe(op, r.name, outcome, elapsed)
	}

	fields := []zap.Field{zap.String("operation", op), zap.Duration("elapsed", elapsed)}
	switch outcome {
	case OutcomeOK:
		r.logger.Debug("repository operation", fields...)
	case OutcomeError:
		r.logger.Error("repository operation failed", append(fields, zap.Error(err))...)
	default:
		r.logger.Warn("repository operation rejected", append(fields, zap.String("outcome", outcome), zap.Error(err))...)
	}
}
