package attr

import (
	"bytes"
	"fmt"
	"math/big"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/jacentio/docket/store"
)

// Match reports whether item satisfies f. Field names may be dotted paths
// into nested maps. Comparisons between different attribute types are false;
// Ne also matches items that lack the field.
func Match(item map[string]types.AttributeValue, f store.Filter) (bool, error) {
	switch f := f.(type) {
	case nil:
		return true, nil
	case store.Condition:
		return matchCondition(item, f)
	case *store.Condition:
		return matchCondition(item, *f)
	case store.Logical:
		return matchLogical(item, f)
	case *store.Logical:
		return matchLogical(item, *f)
	default:
		return false, fmt.Errorf("%w: unsupported filter %T", store.ErrInvalidFilter, f)
	}
}

func matchLogical(item map[string]types.AttributeValue, l store.Logical) (bool, error) {
	switch l.Operator {
	case store.LogicalAnd:
		for _, sub := range l.Filters {
			ok, err := Match(item, sub)
			if err != nil || !ok {
				return false, err
			}
		}
		return true, nil
	case store.LogicalOr:
		for _, sub := range l.Filters {
			ok, err := Match(item, sub)
			if err != nil {
				return false, err
			}
			if ok {
				return true, nil
			}
		}
		return false, nil
	case store.LogicalNot:
		if len(l.Filters) != 1 {
			return false, fmt.Errorf("%w: not takes one filter", store.ErrInvalidFilter)
		}
		ok, err := Match(item, l.Filters[0])
		return !ok, err
	default:
		return false, fmt.Errorf("%w: unknown logical operator %q", store.ErrInvalidFilter, l.Operator)
	}
}

func matchCondition(item map[string]types.AttributeValue, c store.Condition) (bool, error) {
	got, present := Field(item, c.Field)
	if present {
		if _, null := got.(*types.AttributeValueMemberNULL); null {
			got, present = nil, false
		}
	}

	switch c.Operator {
	case store.OpExists:
		want, _ := c.Value.(bool)
		return present == want, nil
	case store.OpContains, store.OpBeginsWith:
		s, ok := got.(*types.AttributeValueMemberS)
		needle, _ := c.Value.(string)
		if !ok {
			return false, nil
		}
		if c.Operator == store.OpContains {
			return strings.Contains(s.Value, needle), nil
		}
		return strings.HasPrefix(s.Value, needle), nil
	case store.OpIn:
		vs, _ := c.Value.([]any)
		for _, v := range vs {
			ok, err := equalTo(got, present, v)
			if err != nil || ok {
				return ok, err
			}
		}
		return false, nil
	case store.OpEq:
		return equalTo(got, present, c.Value)
	case store.OpNe:
		ok, err := equalTo(got, present, c.Value)
		return !ok, err
	case store.OpGt, store.OpGte, store.OpLt, store.OpLte:
	default:
		return false, fmt.Errorf("%w: unknown operator %q", store.ErrInvalidFilter, c.Operator)
	}

	if !present || c.Value == nil {
		return false, nil
	}
	want, err := Value(c.Value)
	if err != nil {
		return false, fmt.Errorf("%w: %s: %v", store.ErrInvalidFilter, c.Field, err)
	}
	cmp, ok := Compare(got, want)
	if !ok {
		return false, nil
	}
	switch c.Operator {
	case store.OpGt:
		return cmp > 0, nil
	case store.OpGte:
		return cmp >= 0, nil
	case store.OpLt:
		return cmp < 0, nil
	default:
		return cmp <= 0, nil
	}
}

func equalTo(got types.AttributeValue, present bool, v any) (bool, error) {
	if v == nil {
		return !present, nil
	}
	if !present {
		return false, nil
	}
	want, err := Value(v)
	if err != nil {
		return false, fmt.Errorf("%w: %v", store.ErrInvalidFilter, err)
	}
	cmp, ok := Compare(got, want)
	if ok {
		return cmp == 0, nil
	}
	if gb, ok := got.(*types.AttributeValueMemberBOOL); ok {
		if wb, ok := want.(*types.AttributeValueMemberBOOL); ok {
			return gb.Value == wb.Value, nil
		}
	}
	return false, nil
}

// Field resolves a dotted path in item.
func Field(item map[string]types.AttributeValue, path string) (types.AttributeValue, bool) {
	var cur types.AttributeValue = &types.AttributeValueMemberM{Value: item}
	for _, part := range strings.Split(path, ".") {
		m, ok := cur.(*types.AttributeValueMemberM)
		if !ok {
			return nil, false
		}
		cur, ok = m.Value[part]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// Compare orders two scalar attribute values of the same type: numbers
// numerically, strings and binaries bytewise. ok is false for any other pair.
func Compare(a, b types.AttributeValue) (cmp int, ok bool) {
	switch a := a.(type) {
	case *types.AttributeValueMemberS:
		if b, isS := b.(*types.AttributeValueMemberS); isS {
			return strings.Compare(a.Value, b.Value), true
		}
	case *types.AttributeValueMemberN:
		if b, isN := b.(*types.AttributeValueMemberN); isN {
			x, okx := new(big.Float).SetString(a.Value)
			y, oky := new(big.Float).SetString(b.Value)
			if okx && oky {
				return x.Cmp(y), true
			}
		}
	case *types.AttributeValueMemberB:
		if b, isB := b.(*types.AttributeValueMemberB); isB {
			return bytes.Compare(a.Value, b.Value), true
		}
	}
	return 0, false
}
