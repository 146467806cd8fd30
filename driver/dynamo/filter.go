package dynamo

import (
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"

	"github.com/jacentio/docket/internal/attr"
	"github.com/jacentio/docket/store"
)

// condition translates f into a filter expression. It follows the semantics
// of attr.Match: NULL attributes count as missing and Ne matches items
// without the field.
func condition(f store.Filter) (expression.ConditionBuilder, error) {
	switch f := f.(type) {
	case store.Condition:
		return conditionFor(f)
	case *store.Condition:
		return conditionFor(*f)
	case store.Logical:
		return logicalFor(f)
	case *store.Logical:
		return logicalFor(*f)
	default:
		return expression.ConditionBuilder{}, fmt.Errorf("%w: unsupported filter %T", store.ErrInvalidFilter, f)
	}
}

func logicalFor(l store.Logical) (expression.ConditionBuilder, error) {
	conds := make([]expression.ConditionBuilder, 0, len(l.Filters))
	for _, sub := range l.Filters {
		c, err := condition(sub)
		if err != nil {
			return expression.ConditionBuilder{}, err
		}
		conds = append(conds, c)
	}
	if len(conds) == 0 {
		return expression.ConditionBuilder{}, fmt.Errorf("%w: empty %s", store.ErrInvalidFilter, l.Operator)
	}

	switch l.Operator {
	case store.LogicalAnd:
		if len(conds) == 1 {
			return conds[0], nil
		}
		return expression.And(conds[0], conds[1], conds[2:]...), nil
	case store.LogicalOr:
		if len(conds) == 1 {
			return conds[0], nil
		}
		return expression.Or(conds[0], conds[1], conds[2:]...), nil
	case store.LogicalNot:
		return expression.Not(conds[0]), nil
	default:
		return expression.ConditionBuilder{}, fmt.Errorf("%w: unknown logical operator %q", store.ErrInvalidFilter, l.Operator)
	}
}

func conditionFor(c store.Condition) (expression.ConditionBuilder, error) {
	name := expression.Name(c.Field)
	present := expression.AttributeExists(name).And(expression.Not(expression.AttributeType(name, expression.Null)))
	absent := expression.AttributeNotExists(name).Or(expression.AttributeType(name, expression.Null))

	switch c.Operator {
	case store.OpEq:
		if c.Value == nil {
			return absent, nil
		}
		return name.Equal(operand(c.Value)), nil
	case store.OpNe:
		if c.Value == nil {
			return present, nil
		}
		return expression.AttributeNotExists(name).Or(name.NotEqual(operand(c.Value))), nil
	case store.OpGt:
		return name.GreaterThan(operand(c.Value)), nil
	case store.OpGte:
		return name.GreaterThanEqual(operand(c.Value)), nil
	case store.OpLt:
		return name.LessThan(operand(c.Value)), nil
	case store.OpLte:
		return name.LessThanEqual(operand(c.Value)), nil
	case store.OpIn:
		vs, ok := c.Value.([]any)
		if !ok || len(vs) == 0 {
			return expression.ConditionBuilder{}, fmt.Errorf("%w: %s in: want non-empty []any", store.ErrInvalidFilter, c.Field)
		}
		rest := make([]expression.OperandBuilder, 0, len(vs)-1)
		for _, v := range vs[1:] {
			rest = append(rest, operand(v))
		}
		return name.In(operand(vs[0]), rest...), nil
	case store.OpExists:
		if want, _ := c.Value.(bool); want {
			return present, nil
		}
		return absent, nil
	case store.OpContains:
		s, _ := c.Value.(string)
		return expression.AttributeType(name, expression.String).And(name.Contains(s)), nil
	case store.OpBeginsWith:
		s, _ := c.Value.(string)
		return name.BeginsWith(s), nil
	default:
		return expression.ConditionBuilder{}, fmt.Errorf("%w: unknown operator %q", store.ErrInvalidFilter, c.Operator)
	}
}

// operand encodes v the way stored documents encode it.
func operand(v any) expression.ValueBuilder {
	if t, ok := v.(time.Time); ok {
		return expression.Value(t.UTC().Format(attr.TimeLayout))
	}
	return expression.Value(v)
}
