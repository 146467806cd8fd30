package store

import (
	"fmt"
	"reflect"
	"time"
)

// Operator is a field comparison.
type Operator string

const (
	OpEq         Operator = "eq"
	OpNe         Operator = "ne"
	OpGt         Operator = "gt"
	OpGte        Operator = "gte"
	OpLt         Operator = "lt"
	OpLte        Operator = "lte"
	OpIn         Operator = "in"
	OpExists     Operator = "exists"
	OpContains   Operator = "contains"
	OpBeginsWith Operator = "begins_with"
)

// LogicalOperator combines filters.
type LogicalOperator string

const (
	LogicalAnd LogicalOperator = "and"
	LogicalOr  LogicalOperator = "or"
	LogicalNot LogicalOperator = "not"
)

// Filter is a store-neutral predicate over document fields. Drivers
// translate it into their native query language.
type Filter interface {
	isFilter()
}

// Condition compares one document field with a value. Field uses document
// names (the bson tag), e.g. "eventName" or "_id".
type Condition struct {
	Field    string
	Operator Operator

	// Value is a []any for OpIn, a bool for OpExists and a string for
	// OpContains and OpBeginsWith.
	Value any
}

// Logical combines sub-filters.
type Logical struct {
	Operator LogicalOperator
	Filters  []Filter
}

func (Condition) isFilter() {}
func (Logical) isFilter()   {}

// Eq matches documents whose field equals v.
func Eq(field string, v any) Filter { return Condition{Field: field, Operator: OpEq, Value: v} }

// Ne matches documents whose field differs from v.
func Ne(field string, v any) Filter { return Condition{Field: field, Operator: OpNe, Value: v} }

// Gt matches documents whose field is greater than v.
func Gt(field string, v any) Filter { return Condition{Field: field, Operator: OpGt, Value: v} }

// Gte matches documents whose field is at least v.
func Gte(field string, v any) Filter { return Condition{Field: field, Operator: OpGte, Value: v} }

// Lt matches documents whose field is less than v.
func Lt(field string, v any) Filter { return Condition{Field: field, Operator: OpLt, Value: v} }

// Lte matches documents whose field is at most v.
func Lte(field string, v any) Filter { return Condition{Field: field, Operator: OpLte, Value: v} }

// In matches documents whose field equals any of vs.
func In(field string, vs ...any) Filter {
	return Condition{Field: field, Operator: OpIn, Value: vs}
}

// Exists matches documents that have (or, with false, lack) the field.
func Exists(field string, exists bool) Filter {
	return Condition{Field: field, Operator: OpExists, Value: exists}
}

// Contains matches string fields containing substr.
func Contains(field, substr string) Filter {
	return Condition{Field: field, Operator: OpContains, Value: substr}
}

// BeginsWith matches string fields starting with prefix.
func BeginsWith(field, prefix string) Filter {
	return Condition{Field: field, Operator: OpBeginsWith, Value: prefix}
}

// And matches documents that satisfy every filter in fs.
func And(fs ...Filter) Filter { return Logical{Operator: LogicalAnd, Filters: fs} }

// Or matches documents that satisfy at least one filter in fs.
func Or(fs ...Filter) Filter { return Logical{Operator: LogicalOr, Filters: fs} }

// Not matches documents that do not satisfy f.
func Not(f Filter) Filter { return Logical{Operator: LogicalNot, Filters: []Filter{f}} }

// ValidateFilter reports whether f can be translated by every driver.
// Errors wrap ErrInvalidFilter.
func ValidateFilter(f Filter) error {
	switch f := f.(type) {
	case nil:
		return fmt.Errorf("%w: nil filter", ErrInvalidFilter)
	case Condition:
		return validateCondition(f)
	case *Condition:
		if f == nil {
			return fmt.Errorf("%w: nil condition", ErrInvalidFilter)
		}
		return validateCondition(*f)
	case Logical:
		return validateLogical(f)
	case *Logical:
		if f == nil {
			return fmt.Errorf("%w: nil logical filter", ErrInvalidFilter)
		}
		return validateLogical(*f)
	default:
		return fmt.Errorf("%w: unsupported filter %T", ErrInvalidFilter, f)
	}
}

func validateCondition(c Condition) error {
	if c.Field == "" {
		return fmt.Errorf("%w: empty field name", ErrInvalidFilter)
	}
	switch c.Operator {
	case OpEq, OpNe, OpGt, OpGte, OpLt, OpLte:
		if c.Value == nil && c.Operator != OpEq && c.Operator != OpNe {
			return fmt.Errorf("%w: %s %s nil", ErrInvalidFilter, c.Field, c.Operator)
		}
		if !scalar(c.Value) {
			return fmt.Errorf("%w: %s %s: unsupported value %T", ErrInvalidFilter, c.Field, c.Operator, c.Value)
		}
	case OpIn:
		vs, ok := c.Value.([]any)
		if !ok || len(vs) == 0 {
			return fmt.Errorf("%w: %s in: want non-empty []any, got %T", ErrInvalidFilter, c.Field, c.Value)
		}
		for _, v := range vs {
			if v == nil || !scalar(v) {
				return fmt.Errorf("%w: %s in: unsupported value %T", ErrInvalidFilter, c.Field, v)
			}
		}
	case OpExists:
		if _, ok := c.Value.(bool); !ok {
			return fmt.Errorf("%w: %s exists: want bool, got %T", ErrInvalidFilter, c.Field, c.Value)
		}
	case OpContains, OpBeginsWith:
		if _, ok := c.Value.(string); !ok {
			return fmt.Errorf("%w: %s %s: want string, got %T", ErrInvalidFilter, c.Field, c.Operator, c.Value)
		}
	default:
		return fmt.Errorf("%w: unknown operator %q", ErrInvalidFilter, c.Operator)
	}
	return nil
}

func validateLogical(l Logical) error {
	switch l.Operator {
	case LogicalAnd, LogicalOr:
		if len(l.Filters) == 0 {
			return fmt.Errorf("%w: empty %s", ErrInvalidFilter, l.Operator)
		}
	case LogicalNot:
		if len(l.Filters) != 1 {
			return fmt.Errorf("%w: not takes one filter, got %d", ErrInvalidFilter, len(l.Filters))
		}
	default:
		return fmt.Errorf("%w: unknown logical operator %q", ErrInvalidFilter, l.Operator)
	}
	for _, sub := range l.Filters {
		if err := ValidateFilter(sub); err != nil {
			return err
		}
	}
	return nil
}

// scalar reports whether v is a value every driver can compare:
// nil, bool, string, a number, a time.Time or an ID.
func scalar(v any) bool {
	switch v.(type) {
	case nil, bool, string, ID, time.Time:
		return true
	}
	switch reflect.ValueOf(v).Kind() {
	case reflect.Bool, reflect.String,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}
