// Package attr converts entities to and from DynamoDB attribute values and
// evaluates store filters against them.
package attr

import (
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/jacentio/docket/store"
)

// TimeLayout is a fixed-width UTC layout, so stored times sort as strings.
const TimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

var (
	mu     sync.RWMutex
	tagKey = store.DefaultConventions().TagKey
)

// Configure applies the conventions. Drivers call it from RegisterConventions.
func Configure(c store.Conventions) {
	if c.TagKey == "" {
		return
	}
	mu.Lock()
	defer mu.Unlock()
	tagKey = c.TagKey
}

// TagKey returns the struct tag used to name attributes.
func TagKey() string {
	mu.RLock()
	defer mu.RUnlock()
	return tagKey
}

func encoderOptions(o *attributevalue.EncoderOptions) {
	o.TagKey = TagKey()
	o.EncodeTime = encodeTime
}

func decoderOptions(o *attributevalue.DecoderOptions) {
	o.TagKey = TagKey()
}

func encodeTime(t time.Time) (types.AttributeValue, error) {
	return &types.AttributeValueMemberS{Value: t.UTC().Format(TimeLayout)}, nil
}

// Marshal encodes an entity into an item.
func Marshal(v any) (map[string]types.AttributeValue, error) {
	return attributevalue.MarshalMapWithOptions(v, encoderOptions)
}

// Value encodes a single value, as used in filters.
func Value(v any) (types.AttributeValue, error) {
	return attributevalue.MarshalWithOptions(v, encoderOptions)
}

// Unmarshal decodes an item into out, a pointer to an entity.
func Unmarshal(item map[string]types.AttributeValue, out any) error {
	return attributevalue.UnmarshalMapWithOptions(item, out, decoderOptions)
}

// UnmarshalList decodes items into out, a pointer to a slice of entities.
func UnmarshalList(items []map[string]types.AttributeValue, out any) error {
	if items == nil {
		items = []map[string]types.AttributeValue{}
	}
	return attributevalue.UnmarshalListOfMapsWithOptions(items, out, decoderOptions)
}
