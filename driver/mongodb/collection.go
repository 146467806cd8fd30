package mongodb

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/jacentio/docket/store"
)

// Collection is one MongoDB collection.
type Collection struct {
	coll        *mongo.Collection
	conventions store.Conventions
}

var _ store.Collection = (*Collection)(nil)

func (c *Collection) Name() string { return c.coll.Name() }

func (c *Collection) byID(id store.ID) bson.D {
	return bson.D{{Key: c.conventions.IDField, Value: bson.ObjectID(id)}}
}

// InsertOne inserts doc; the unique _id index rejects duplicates.
func (c *Collection) InsertOne(ctx context.Context, id store.ID, doc any) error {
	_, err := c.coll.InsertOne(ctx, doc)
	if mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("%w: %s %s: %v", store.ErrDuplicateKey, c.Name(), id, err)
	}
	return err
}

// ReplaceOne replaces the document matching m.
func (c *Collection) ReplaceOne(ctx context.Context, m store.Match, doc any) (bool, error) {
	filter := c.byID(m.ID)
	if m.CheckVersion {
		filter = append(filter, bson.E{Key: c.conventions.VersionField, Value: m.Version})
	}
	res, err := c.coll.ReplaceOne(ctx, filter, doc)
	if err != nil {
		return false, err
	}
	return res.MatchedCount > 0, nil
}

// FindOne decodes the document with id into out.
func (c *Collection) FindOne(ctx context.Context, id store.ID, out any) (bool, error) {
	err := c.coll.FindOne(ctx, c.byID(id)).Decode(out)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// FindOneAndDelete removes the document with id and decodes it into out.
func (c *Collection) FindOneAndDelete(ctx context.Context, id store.ID, out any) (bool, error) {
	err := c.coll.FindOneAndDelete(ctx, c.byID(id)).Decode(out)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Find runs q and decodes every result into out.
func (c *Collection) Find(ctx context.Context, q store.Query, out any) error {
	filter := bson.D{}
	if q.Filter != nil {
		var err error
		if filter, err = Translate(q.Filter); err != nil {
			return err
		}
	}

	opts := options.Find()
	switch q.Sort {
	case store.SortAscending:
		opts.SetSort(bson.D{{Key: c.conventions.IDField, Value: 1}})
	case store.SortDescending:
		opts.SetSort(bson.D{{Key: c.conventions.IDField, Value: -1}})
	}
	if q.Skip > 0 {
		opts.SetSkip(q.Skip)
	}
	if q.Limit > 0 {
		opts.SetLimit(q.Limit)
	}

	cursor, err := c.coll.Find(ctx, filter, opts)
	if err != nil {
		return err
	}
	return cursor.All(ctx, out)
}
