// Package stream decodes DynamoDB Streams records of a docket table into
// typed entity changes.
package stream

import (
	"context"
	"fmt"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"

	"github.com/jacentio/docket/driver/dynamo"
	"github.com/jacentio/docket/internal/attr"
	"github.com/jacentio/docket/internal/shard"
	"github.com/jacentio/docket/store"
)

// Kind is the type of change a record describes.
type Kind string

const (
	Inserted Kind = "INSERT"
	Modified Kind = "MODIFY"
	Removed  Kind = "REMOVE"
)

// Change is one decoded stream record. Old is nil for inserts and New is nil
// for removals; either may also be nil if the stream view omits the image.
type Change[PT store.Entity] struct {
	Kind       Kind
	EventID    string
	Collection string
	ID         store.ID
	Old        PT
	New        PT
}

// Handler delivers the changes of one entity type's collection to a callback.
// Records of other collections are skipped.
type Handler[T any, PT store.EntityPtr[T]] struct {
	collection string
	fn         func(context.Context, Change[PT]) error
	logger     *zap.Logger
}

// NewHandler creates a handler for the collection of T.
func NewHandler[T any, PT store.EntityPtr[T]](fn func(context.Context, Change[PT]) error, logger *zap.Logger) *Handler[T, PT] {
	if logger == nil {
		logger = zap.NewNop()
	}
	collection := store.CollectionNameOf[T, PT]()
	return &Handler[T, PT]{
		collection: collection,
		fn:         fn,
		logger:     logger.With(zap.String("collection", collection)),
	}
}

// HandleEvent processes a batch of stream records in order.
// This function is designed to be used as an AWS Lambda handler.
func (h *Handler[T, PT]) HandleEvent(ctx context.Context, event events.DynamoDBEvent) error {
	for _, record := range event.Records {
		if err := h.processRecord(ctx, record); err != nil {
			h.logger.Error("failed to process record",
				zap.String("eventID", record.EventID),
				zap.Error(err),
			)
			return err // Will retry, eventually DLQ
		}
	}
	return nil
}

// processRecord decodes a single record and hands it to the callback.
// Records that cannot be decoded are logged and dropped.
func (h *Handler[T, PT]) processRecord(ctx context.Context, record events.DynamoDBEventRecord) error {
	collection, ok := shard.Collection(getStringAttr(record.Change.Keys, dynamo.PartitionKeyAttr))
	if !ok || collection != h.collection {
		return nil
	}

	kind := Kind(record.EventName)
	switch kind {
	case Inserted, Modified, Removed:
	default:
		h.logger.Warn("skipping record with unknown event name",
			zap.String("eventID", record.EventID),
			zap.String("eventName", record.EventName),
		)
		return nil
	}

	change, err := h.decodeRecord(kind, collection, record)
	if err != nil {
		h.logger.Error("skipping undecodable record",
			zap.String("eventID", record.EventID),
			zap.Error(err),
		)
		return nil
	}

	h.logger.Debug("processing change",
		zap.String("eventID", record.EventID),
		zap.String("kind", string(kind)),
		zap.Stringer("id", change.ID),
	)
	return h.fn(ctx, change)
}

func (h *Handler[T, PT]) decodeRecord(kind Kind, collection string, record events.DynamoDBEventRecord) (Change[PT], error) {
	change := Change[PT]{
		Kind:       kind,
		EventID:    record.EventID,
		Collection: collection,
	}
	id, err := store.ParseID(getStringAttr(record.Change.Keys, store.ActiveConventions().IDField))
	if err != nil {
		return change, err
	}
	change.ID = id
	if change.Old, err = h.decode(record.Change.OldImage); err != nil {
		return change, fmt.Errorf("old image: %w", err)
	}
	if change.New, err = h.decode(record.Change.NewImage); err != nil {
		return change, fmt.Errorf("new image: %w", err)
	}
	return change, nil
}

func (h *Handler[T, PT]) decode(image map[string]events.DynamoDBAttributeValue) (PT, error) {
	if len(image) == 0 {
		return nil, nil
	}
	out := PT(new(T))
	if err := attr.Unmarshal(ConvertImage(image), out); err != nil {
		return nil, err
	}
	return out, nil
}

// getStringAttr extracts a string attribute from a DynamoDB stream image.
func getStringAttr(image map[string]events.DynamoDBAttributeValue, key string) string {
	if v, ok := image[key]; ok && v.DataType() == events.DataTypeString {
		return v.String()
	}
	return ""
}

// ConvertImage converts a DynamoDB stream image to SDK attribute values.
func ConvertImage(image map[string]events.DynamoDBAttributeValue) map[string]types.AttributeValue {
	if image == nil {
		return nil
	}
	result := make(map[string]types.AttributeValue, len(image))
	for k, v := range image {
		if av := convert(v); av != nil {
			result[k] = av
		}
	}
	return result
}

func convert(v events.DynamoDBAttributeValue) types.AttributeValue {
	switch v.DataType() {
	case events.DataTypeString:
		return &types.AttributeValueMemberS{Value: v.String()}
	case events.DataTypeNumber:
		return &types.AttributeValueMemberN{Value: v.Number()}
	case events.DataTypeBinary:
		return &types.AttributeValueMemberB{Value: v.Binary()}
	case events.DataTypeBoolean:
		return &types.AttributeValueMemberBOOL{Value: v.Boolean()}
	case events.DataTypeNull:
		return &types.AttributeValueMemberNULL{Value: true}
	case events.DataTypeStringSet:
		return &types.AttributeValueMemberSS{Value: v.StringSet()}
	case events.DataTypeNumberSet:
		return &types.AttributeValueMemberNS{Value: v.NumberSet()}
	case events.DataTypeBinarySet:
		return &types.AttributeValueMemberBS{Value: v.BinarySet()}
	case events.DataTypeList:
		list := v.List()
		out := make([]types.AttributeValue, 0, len(list))
		for _, item := range list {
			if av := convert(item); av != nil {
				out = append(out, av)
			}
		}
		return &types.AttributeValueMemberL{Value: out}
	case events.DataTypeMap:
		return &types.AttributeValueMemberM{Value: ConvertImage(v.Map())}
	default:
		return nil
	}
}
