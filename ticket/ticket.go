// Package ticket stores event tickets.
package ticket

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/jacentio/docket/store"
)

// Document field names.
const (
	FieldPrice     = "price"
	FieldEventName = "eventName"
	FieldDiscount  = "discount"
)

// Ticket is an entry ticket for an event. Discount is a percentage.
type Ticket struct {
	store.Base `bson:",inline"`
	Price      float64 `bson:"price" validate:"gte=0"`
	EventName  string  `bson:"eventName" validate:"required,max=200"`
	Discount   int     `bson:"discount" validate:"gte=0,lte=100"`
}

// EntityType implements store.Entity. Tickets are stored in "Tickets".
func (*Ticket) EntityType() string { return "Ticket" }

// FinalPrice returns the price after the discount.
func (t *Ticket) FinalPrice() float64 {
	return t.Price * float64(100-t.Discount) / 100
}

// ErrInvalid is matched by every *ValidationError.
var ErrInvalid = errors.New("ticket: invalid ticket")

// FieldError describes one rejected field.
type FieldError struct {
	Field string
	Rule  string
	Param string
}

func (e FieldError) String() string {
	switch e.Rule {
	case "required":
		return fmt.Sprintf("%s is required", e.Field)
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", e.Field, e.Param)
	case "gte":
		return fmt.Sprintf("%s must be at least %s", e.Field, e.Param)
	case "lte":
		return fmt.Sprintf("%s must be at most %s", e.Field, e.Param)
	default:
		return fmt.Sprintf("%s is invalid", e.Field)
	}
}

// ValidationError reports a ticket rejected before reaching the store.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	msgs := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		msgs[i] = f.String()
	}
	return fmt.Sprintf("%s: %s", ErrInvalid, strings.Join(msgs, "; "))
}

func (e *ValidationError) Is(target error) bool { return target == ErrInvalid }

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// Report document field names.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("bson"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	return v
}

// Validate checks t against its field rules.
func Validate(t *Ticket) error {
	if t == nil {
		return &ValidationError{Fields: []FieldError{{Field: "ticket", Rule: "required"}}}
	}
	err := validate.Struct(t)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	fields := make([]FieldError, len(verrs))
	for i, fe := range verrs {
		fields[i] = FieldError{Field: fe.Field(), Rule: fe.Tag(), Param: fe.Param()}
	}
	return &ValidationError{Fields: fields}
}

// ByEventName matches tickets for the named event.
func ByEventName(name string) store.Filter {
	return store.Eq(FieldEventName, name)
}

// PricedBetween matches tickets with min <= price <= max.
func PricedBetween(min, max float64) store.Filter {
	return store.And(store.Gte(FieldPrice, min), store.Lte(FieldPrice, max))
}

// Discounted matches tickets with a non-zero discount.
func Discounted() store.Filter {
	return store.Gt(FieldDiscount, 0)
}
