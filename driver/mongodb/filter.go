package mongodb

import (
	"fmt"
	"regexp"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/jacentio/docket/store"
)

// Translate converts f into a MongoDB query document. NULL fields count as
// missing, matching the other drivers.
func Translate(f store.Filter) (bson.D, error) {
	switch f := f.(type) {
	case store.Condition:
		return translateCondition(f)
	case *store.Condition:
		return translateCondition(*f)
	case store.Logical:
		return translateLogical(f)
	case *store.Logical:
		return translateLogical(*f)
	default:
		return nil, fmt.Errorf("%w: unsupported filter %T", store.ErrInvalidFilter, f)
	}
}

func translateLogical(l store.Logical) (bson.D, error) {
	subs := make(bson.A, 0, len(l.Filters))
	for _, sub := range l.Filters {
		d, err := Translate(sub)
		if err != nil {
			return nil, err
		}
		subs = append(subs, d)
	}
	if len(subs) == 0 {
		return nil, fmt.Errorf("%w: empty %s", store.ErrInvalidFilter, l.Operator)
	}

	switch l.Operator {
	case store.LogicalAnd:
		return bson.D{{Key: "$and", Value: subs}}, nil
	case store.LogicalOr:
		return bson.D{{Key: "$or", Value: subs}}, nil
	case store.LogicalNot:
		return bson.D{{Key: "$nor", Value: subs[:1]}}, nil
	default:
		return nil, fmt.Errorf("%w: unknown logical operator %q", store.ErrInvalidFilter, l.Operator)
	}
}

func translateCondition(c store.Condition) (bson.D, error) {
	field := c.Field
	op := func(name string, v any) (bson.D, error) {
		return bson.D{{Key: field, Value: bson.D{{Key: name, Value: v}}}}, nil
	}

	switch c.Operator {
	case store.OpEq:
		return bson.D{{Key: field, Value: value(field, c.Value)}}, nil
	case store.OpNe:
		return op("$ne", value(field, c.Value))
	case store.OpGt:
		return op("$gt", value(field, c.Value))
	case store.OpGte:
		return op("$gte", value(field, c.Value))
	case store.OpLt:
		return op("$lt", value(field, c.Value))
	case store.OpLte:
		return op("$lte", value(field, c.Value))
	case store.OpIn:
		vs, ok := c.Value.([]any)
		if !ok || len(vs) == 0 {
			return nil, fmt.Errorf("%w: %s in: want non-empty []any", store.ErrInvalidFilter, field)
		}
		in := make(bson.A, len(vs))
		for i, v := range vs {
			in[i] = value(field, v)
		}
		return op("$in", in)
	case store.OpExists:
		if want, _ := c.Value.(bool); want {
			return bson.D{{Key: field, Value: bson.D{{Key: "$exists", Value: true}, {Key: "$ne", Value: nil}}}}, nil
		}
		return bson.D{{Key: field, Value: nil}}, nil
	case store.OpContains:
		s, _ := c.Value.(string)
		return bson.D{{Key: field, Value: bson.D{{Key: "$type", Value: "string"}, {Key: "$regex", Value: regexp.QuoteMeta(s)}}}}, nil
	case store.OpBeginsWith:
		s, _ := c.Value.(string)
		return bson.D{{Key: field, Value: bson.D{{Key: "$type", Value: "string"}, {Key: "$regex", Value: "^" + regexp.QuoteMeta(s)}}}}, nil
	default:
		return nil, fmt.Errorf("%w: unknown operator %q", store.ErrInvalidFilter, c.Operator)
	}
}

// value converts IDs, and hex strings compared with the ID field, to ObjectIDs.
func value(field string, v any) any {
	switch v := v.(type) {
	case store.ID:
		return bson.ObjectID(v)
	case string:
		if field == store.FieldID {
			if id, err := store.ParseID(v); err == nil {
				return bson.ObjectID(id)
			}
		}
	}
	return v
}
