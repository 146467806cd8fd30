package store

import (
	"bytes"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.mongodb.org/mongo-driver/v2/bson"
)

// Document field names shared by every stored entity.
const (
	FieldID        = "_id"
	FieldCreatedAt = "createdAt"
	FieldUpdatedAt = "updatedAt"
	FieldVersion   = "version"
	FieldMetadata  = "metadata"
)

// ID identifies a document within its collection.
// It has the layout of a MongoDB ObjectID (timestamp, random value, counter),
// so IDs generated by one process sort in creation order.
type ID [12]byte

// NilID is the zero ID carried by entities that were never persisted.
var NilID ID

// NewID returns a fresh, globally unique ID.
func NewID() ID {
	return ID(bson.NewObjectID())
}

// ParseID parses the display form produced by ID.String.
func ParseID(s string) (ID, error) {
	oid, err := bson.ObjectIDFromHex(s)
	if err != nil {
		return NilID, fmt.Errorf("%w: %q", ErrInvalidID, s)
	}
	return ID(oid), nil
}

// MustParseID is like ParseID but panics on malformed input.
func MustParseID(s string) ID {
	id, err := ParseID(s)
	if err != nil {
		panic(err)
	}
	return id
}

// String returns the 24-character lowercase hex display form.
func (id ID) String() string {
	return bson.ObjectID(id).Hex()
}

// IsZero reports whether id is NilID.
func (id ID) IsZero() bool {
	return id == NilID
}

// Compare orders IDs bytewise, which matches the order of their display forms.
func (id ID) Compare(other ID) int {
	return bytes.Compare(id[:], other[:])
}

// Timestamp returns the creation time encoded in the ID.
func (id ID) Timestamp() time.Time {
	return bson.ObjectID(id).Timestamp()
}

// MarshalText implements encoding.TextMarshaler.
func (id ID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (id *ID) UnmarshalText(text []byte) error {
	parsed, err := ParseID(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// MarshalDynamoDBAttributeValue stores the ID as its display string so that
// sort keys order the same way IDs do.
func (id ID) MarshalDynamoDBAttributeValue() (types.AttributeValue, error) {
	return &types.AttributeValueMemberS{Value: id.String()}, nil
}

// UnmarshalDynamoDBAttributeValue implements attributevalue.Unmarshaler.
func (id *ID) UnmarshalDynamoDBAttributeValue(av types.AttributeValue) error {
	switch v := av.(type) {
	case *types.AttributeValueMemberS:
		return id.UnmarshalText([]byte(v.Value))
	case *types.AttributeValueMemberNULL:
		*id = NilID
		return nil
	default:
		return fmt.Errorf("%w: unexpected attribute type %T", ErrInvalidID, av)
	}
}

// Entity is the capability set every stored type provides: identity, audit
// timestamps, a version counter and a metadata bag. Embedding Base in a struct
// and adding EntityType satisfies it for the struct's pointer type.
type Entity interface {
	// EntityType returns the canonical type name (e.g., "Ticket").
	// The collection name is derived from it.
	EntityType() string

	GetID() ID
	SetID(ID)
	GetCreatedAt() time.Time
	SetCreatedAt(time.Time)
	GetUpdatedAt() time.Time
	SetUpdatedAt(time.Time)
	GetVersion() int64
	SetVersion(int64)
	GetMetadata() map[string]any
	// IDString returns the display form of the ID.
	IDString() string
}

// EntityPtr constrains PT to be a pointer to T that implements Entity.
type EntityPtr[T any] interface {
	*T
	Entity
}

// Base holds the fields shared by every stored entity. Embed it with
// `bson:",inline"`.
//
// Version counts updates. Add-or-update callers treat 0 as "never saved".
type Base struct {
	ID        ID             `bson:"_id"`
	CreatedAt time.Time      `bson:"createdAt"`
	UpdatedAt time.Time      `bson:"updatedAt"`
	Version   int64          `bson:"version"`
	Metadata  map[string]any `bson:"metadata,omitempty"`
}

// GetID returns the entity's ID.
func (b *Base) GetID() ID { return b.ID }

// SetID sets the entity's ID.
func (b *Base) SetID(id ID) { b.ID = id }

// GetCreatedAt returns when the entity was first stored.
func (b *Base) GetCreatedAt() time.Time { return b.CreatedAt }

// SetCreatedAt sets the creation timestamp.
func (b *Base) SetCreatedAt(t time.Time) { b.CreatedAt = t }

// GetUpdatedAt returns when the entity was last stored.
func (b *Base) GetUpdatedAt() time.Time { return b.UpdatedAt }

// SetUpdatedAt sets the last-update timestamp.
func (b *Base) SetUpdatedAt(t time.Time) { b.UpdatedAt = t }

// GetVersion returns the number of stored updates.
func (b *Base) GetVersion() int64 { return b.Version }

// SetVersion sets the version counter.
func (b *Base) SetVersion(v int64) { b.Version = v }

// IsPersisted reports whether the entity has been stored at least once.
func (b *Base) IsPersisted() bool { return b.Version > 0 }

// IDString returns the display form of the entity's ID.
func (b *Base) IDString() string { return b.ID.String() }

// GetMetadata returns the metadata bag, allocating it on first use.
func (b *Base) GetMetadata() map[string]any {
	if b.Metadata == nil {
		b.Metadata = make(map[string]any)
	}
	return b.Metadata
}
