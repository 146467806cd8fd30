package dynamo

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"golang.org/x/sync/errgroup"

	"github.com/jacentio/docket/internal/attr"
	"github.com/jacentio/docket/internal/shard"
	"github.com/jacentio/docket/store"
)

// maxParallelQueries bounds the shard fan-out of Find.
const maxParallelQueries = 16

// Collection is the set of items of one collection in the table.
type Collection struct {
	db   *Database
	name string
}

var _ store.Collection = (*Collection)(nil)

func (c *Collection) Name() string { return c.name }

func (c *Collection) table() *string { return aws.String(c.db.opts.Table) }

func idField() string { return store.ActiveConventions().IDField }

// key returns the primary key of the item holding id.
func (c *Collection) key(id store.ID) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		PartitionKeyAttr: &types.AttributeValueMemberS{Value: shard.PartitionKey(c.name, id.String(), c.db.opts.Shards)},
		idField():        &types.AttributeValueMemberS{Value: id.String()},
	}
}

// item encodes doc and adds the partition key.
func (c *Collection) item(id store.ID, doc any) (map[string]types.AttributeValue, error) {
	item, err := attr.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("marshal document: %w", err)
	}
	for k, v := range c.key(id) {
		item[k] = v
	}
	return item, nil
}

// InsertOne puts the item on the condition that no item has its key.
func (c *Collection) InsertOne(ctx context.Context, id store.ID, doc any) error {
	item, err := c.item(id, doc)
	if err != nil {
		return err
	}
	expr, err := expression.NewBuilder().
		WithCondition(expression.AttributeNotExists(expression.Name(idField()))).
		Build()
	if err != nil {
		return fmt.Errorf("build condition: %w", err)
	}

	_, err = c.db.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:                c.table(),
		Item:                     item,
		ConditionExpression:      expr.Condition(),
		ExpressionAttributeNames: expr.Names(),
	})
	var ccf *types.ConditionalCheckFailedException
	if errors.As(err, &ccf) {
		return fmt.Errorf("%w: %s %s", store.ErrDuplicateKey, c.name, id)
	}
	return err
}

// ReplaceOne puts the item on the condition that it exists, at m.Version
// when CheckVersion is set.
func (c *Collection) ReplaceOne(ctx context.Context, m store.Match, doc any) (bool, error) {
	item, err := c.item(m.ID, doc)
	if err != nil {
		return false, err
	}
	cond := expression.AttributeExists(expression.Name(idField()))
	if m.CheckVersion {
		version := expression.Name(store.ActiveConventions().VersionField)
		cond = cond.And(version.Equal(expression.Value(m.Version)))
	}
	expr, err := expression.NewBuilder().WithCondition(cond).Build()
	if err != nil {
		return false, fmt.Errorf("build condition: %w", err)
	}

	_, err = c.db.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:                 c.table(),
		Item:                      item,
		ConditionExpression:       expr.Condition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
	var ccf *types.ConditionalCheckFailedException
	if errors.As(err, &ccf) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// FindOne reads the item with a strongly consistent read.
func (c *Collection) FindOne(ctx context.Context, id store.ID, out any) (bool, error) {
	result, err := c.db.api.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      c.table(),
		Key:            c.key(id),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return false, err
	}
	if len(result.Item) == 0 {
		return false, nil
	}
	if err := attr.Unmarshal(result.Item, out); err != nil {
		return false, fmt.Errorf("unmarshal document: %w", err)
	}
	return true, nil
}

// FindOneAndDelete deletes the item and decodes the old image.
func (c *Collection) FindOneAndDelete(ctx context.Context, id store.ID, out any) (bool, error) {
	result, err := c.db.api.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName:    c.table(),
		Key:          c.key(id),
		ReturnValues: types.ReturnValueAllOld,
	})
	if err != nil {
		return false, err
	}
	if len(result.Attributes) == 0 {
		return false, nil
	}
	if err := attr.Unmarshal(result.Attributes, out); err != nil {
		return false, fmt.Errorf("unmarshal document: %w", err)
	}
	return true, nil
}

// Find queries every shard of the collection in parallel and merges the
// results by ID.
func (c *Collection) Find(ctx context.Context, q store.Query, out any) error {
	var filter *expression.ConditionBuilder
	if q.Filter != nil {
		cond, err := condition(q.Filter)
		if err != nil {
			return err
		}
		filter = &cond
	}

	// Each shard is sorted, so no shard contributes more than skip+limit items.
	var want int64
	if q.Limit > 0 {
		want = q.Skip + q.Limit
	}

	partitions := shard.Partitions(c.name, c.db.opts.Shards)
	results := make([][]map[string]types.AttributeValue, len(partitions))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelQueries)
	for i, pk := range partitions {
		g.Go(func() error {
			items, err := c.queryPartition(ctx, pk, filter, q.Sort != store.SortDescending, want)
			if err != nil {
				return fmt.Errorf("query %s: %w", pk, err)
			}
			results[i] = items
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	items := merge(results, q.Sort == store.SortDescending)
	if q.Skip > 0 {
		if q.Skip >= int64(len(items)) {
			items = nil
		} else {
			items = items[q.Skip:]
		}
	}
	if q.Limit > 0 && int64(len(items)) > q.Limit {
		items = items[:q.Limit]
	}

	if err := attr.UnmarshalList(items, out); err != nil {
		return fmt.Errorf("unmarshal documents: %w", err)
	}
	return nil
}

// queryPartition pages through one partition. want > 0 stops paging once
// that many items are collected.
func (c *Collection) queryPartition(ctx context.Context, pk string, filter *expression.ConditionBuilder, ascending bool, want int64) ([]map[string]types.AttributeValue, error) {
	builder := expression.NewBuilder().
		WithKeyCondition(expression.Key(PartitionKeyAttr).Equal(expression.Value(pk)))
	if filter != nil {
		builder = builder.WithFilter(*filter)
	}
	expr, err := builder.Build()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var items []map[string]types.AttributeValue
	var lastEvaluatedKey map[string]types.AttributeValue
	for {
		result, err := c.db.api.Query(ctx, &dynamodb.QueryInput{
			TableName:                 c.table(),
			KeyConditionExpression:    expr.KeyCondition(),
			FilterExpression:          expr.Filter(),
			ExpressionAttributeNames:  expr.Names(),
			ExpressionAttributeValues: expr.Values(),
			ScanIndexForward:          aws.Bool(ascending),
			ExclusiveStartKey:         lastEvaluatedKey,
		})
		if err != nil {
			return nil, err
		}
		items = append(items, result.Items...)

		if want > 0 && int64(len(items)) >= want {
			return items[:want], nil
		}
		lastEvaluatedKey = result.LastEvaluatedKey
		if len(lastEvaluatedKey) == 0 {
			return items, nil
		}
	}
}

// merge combines per-shard results into one list ordered by ID.
func merge(shards [][]map[string]types.AttributeValue, descending bool) []map[string]types.AttributeValue {
	var all []map[string]types.AttributeValue
	for _, items := range shards {
		all = append(all, items...)
	}
	if len(shards) == 1 {
		return all
	}
	field := idField()
	sort.SliceStable(all, func(i, j int) bool {
		a, b := sortKey(all[i], field), sortKey(all[j], field)
		if descending {
			return a > b
		}
		return a < b
	})
	return all
}

func sortKey(item map[string]types.AttributeValue, field string) string {
	if s, ok := item[field].(*types.AttributeValueMemberS); ok {
		return s.Value
	}
	return ""
}
