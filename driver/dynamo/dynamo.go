// Package dynamo stores collections in a single DynamoDB table.
//
// Importing it registers the "dynamodb" scheme:
//
//	dynamodb://localhost:8000/docket?region=eu-west-1&shards=4&create=true
//
// The descriptor path names the table. Host, when present, overrides the
// AWS endpoint (plain HTTP unless tls=true). Credentials come from the
// default AWS chain; profile selects a shared-config profile.
//
// Every document is one item. Its partition key "pk" is the collection name
// plus a shard suffix ("Tickets#03") and its sort key is "_id". Spreading a
// collection over shards raises write throughput; reads of a whole
// collection query every shard in parallel.
package dynamo

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/jacentio/docket/internal/attr"
	"github.com/jacentio/docket/internal/shard"
	"github.com/jacentio/docket/store"
)

// Scheme is the descriptor scheme served by this package.
const Scheme = "dynamodb"

// PartitionKeyAttr is the table's partition key attribute. Entities must not
// use it as a field name.
const PartitionKeyAttr = "pk"

// tableWait bounds how long Collection waits for a created table.
const tableWait = 2 * time.Minute

func init() {
	store.Register(Scheme, &Driver{})
}

// API is the subset of *dynamodb.Client used by this package.
type API interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	DescribeTable(ctx context.Context, params *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error)
	CreateTable(ctx context.Context, params *dynamodb.CreateTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error)
}

var _ API = (*dynamodb.Client)(nil)

// Driver opens DynamoDB tables.
type Driver struct{}

// Open builds a client from the default AWS configuration and d's parameters.
func (drv *Driver) Open(ctx context.Context, d store.Descriptor) (store.Database, error) {
	shards, err := d.IntParam("shards", 1)
	if err != nil {
		return nil, err
	}
	create, err := d.BoolParam("create", false)
	if err != nil {
		return nil, err
	}
	useTLS, err := d.BoolParam("tls", false)
	if err != nil {
		return nil, err
	}

	var loadOpts []func(*config.LoadOptions) error
	if region := d.Param("region", ""); region != "" {
		loadOpts = append(loadOpts, config.WithRegion(region))
	}
	if profile := d.Param("profile", ""); profile != "" {
		loadOpts = append(loadOpts, config.WithSharedConfigProfile(profile))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
		if d.Host == "" {
			return
		}
		scheme := "http"
		if useTLS {
			scheme = "https"
		}
		o.BaseEndpoint = aws.String(scheme + "://" + d.Host)
	})

	return NewDatabase(client, Options{
		Table:       d.Database,
		Shards:      shards,
		CreateTable: create,
	}), nil
}

// RegisterConventions implements store.ConventionRegistrar.
func (drv *Driver) RegisterConventions(c store.Conventions) {
	attr.Configure(c)
}

// Options configures a Database.
type Options struct {
	// Table is the DynamoDB table holding every collection.
	Table string

	// Shards is the number of partitions per collection.
	// Default: 1. Max: 256.
	Shards int

	// CreateTable creates the table on first use if it does not exist.
	CreateTable bool
}

func (o *Options) validate() {
	o.Shards = shard.Clamp(o.Shards)
}

// Database is one DynamoDB table.
type Database struct {
	api  API
	opts Options

	mu    sync.Mutex
	ready bool
}

// NewDatabase wraps a client. Use it with store.OpenDatabase to configure
// the client in code.
func NewDatabase(api API, opts Options) *Database {
	opts.validate()
	return &Database{api: api, opts: opts}
}

// Collection verifies the table once and returns a handle for name.
func (db *Database) Collection(ctx context.Context, name string) (store.Collection, error) {
	if name == "" {
		return nil, errors.New("dynamo: empty collection name")
	}
	if err := db.ensureTable(ctx); err != nil {
		return nil, err
	}
	return &Collection{db: db, name: name}, nil
}

// Close is a no-op; the SDK client holds no connection state.
func (db *Database) Close(context.Context) error {
	return nil
}

// ensureTable checks that the table exists with the expected key schema,
// creating it when allowed.
func (db *Database) ensureTable(ctx context.Context) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if db.ready {
		return nil
	}

	out, err := db.api.DescribeTable(ctx, &dynamodb.DescribeTableInput{
		TableName: aws.String(db.opts.Table),
	})
	var notFound *types.ResourceNotFoundException
	switch {
	case errors.As(err, &notFound) && db.opts.CreateTable:
		if err := db.createTable(ctx); err != nil {
			return err
		}
	case err != nil:
		return fmt.Errorf("describe table %s: %w", db.opts.Table, err)
	default:
		if err := checkKeySchema(out.Table); err != nil {
			return fmt.Errorf("table %s: %w", db.opts.Table, err)
		}
	}

	db.ready = true
	return nil
}

func (db *Database) createTable(ctx context.Context) error {
	idField := store.ActiveConventions().IDField
	_, err := db.api.CreateTable(ctx, &dynamodb.CreateTableInput{
		TableName: aws.String(db.opts.Table),
		AttributeDefinitions: []types.AttributeDefinition{
			{AttributeName: aws.String(PartitionKeyAttr), AttributeType: types.ScalarAttributeTypeS},
			{AttributeName: aws.String(idField), AttributeType: types.ScalarAttributeTypeS},
		},
		KeySchema: []types.KeySchemaElement{
			{AttributeName: aws.String(PartitionKeyAttr), KeyType: types.KeyTypeHash},
			{AttributeName: aws.String(idField), KeyType: types.KeyTypeRange},
		},
		BillingMode: types.BillingModePayPerRequest,
		StreamSpecification: &types.StreamSpecification{
			StreamEnabled:  aws.Bool(true),
			StreamViewType: types.StreamViewTypeNewAndOldImages,
		},
	})
	var inUse *types.ResourceInUseException
	if err != nil && !errors.As(err, &inUse) {
		return fmt.Errorf("create table %s: %w", db.opts.Table, err)
	}

	waiter := dynamodb.NewTableExistsWaiter(db.api)
	if err := waiter.Wait(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(db.opts.Table)}, tableWait); err != nil {
		return fmt.Errorf("wait for table %s: %w", db.opts.Table, err)
	}
	return nil
}

func checkKeySchema(table *types.TableDescription) error {
	if table == nil {
		return errors.New("no table description")
	}
	idField := store.ActiveConventions().IDField
	var hash, rng string
	for _, k := range table.KeySchema {
		switch k.KeyType {
		case types.KeyTypeHash:
			hash = aws.ToString(k.AttributeName)
		case types.KeyTypeRange:
			rng = aws.ToString(k.AttributeName)
		}
	}
	if hash != PartitionKeyAttr || rng != idField {
		return fmt.Errorf("key schema (%q, %q), want (%q, %q)", hash, rng, PartitionKeyAttr, idField)
	}
	return nil
}
