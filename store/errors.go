package store

import (
	"errors"
	"fmt"
)

var (
	// ErrConfiguration is matched by every *ConfigurationError.
	ErrConfiguration = errors.New("docket: invalid configuration")

	// ErrCollectionSetup is matched by every *CollectionSetupError.
	ErrCollectionSetup = errors.New("docket: collection setup failed")

	// ErrDuplicateEntity is matched by every *DuplicateEntityError.
	ErrDuplicateEntity = errors.New("docket: entity already exists")

	// ErrEntityNotFound is matched by every *EntityNotFoundError.
	ErrEntityNotFound = errors.New("docket: entity not found")

	// ErrConcurrencyConflict is matched by every *ConcurrencyConflictError.
	ErrConcurrencyConflict = errors.New("docket: entity was modified concurrently")

	// ErrCancelled is matched by every *CancelledError.
	ErrCancelled = errors.New("docket: operation cancelled")

	// ErrDuplicateKey is returned by drivers when an insert collides with an
	// existing document ID.
	ErrDuplicateKey = errors.New("docket: duplicate key")

	// ErrInvalidID is returned when an ID display string cannot be parsed.
	ErrInvalidID = errors.New("docket: invalid id")

	// ErrInvalidFilter is returned by SearchFor for malformed filters.
	ErrInvalidFilter = errors.New("docket: invalid filter")
)

// ConfigurationError reports a missing or malformed connection descriptor.
type ConfigurationError struct {
	Reason string
	Err    error
}

func (e *ConfigurationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", ErrConfiguration, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s: %s", ErrConfiguration, e.Reason)
}

func (e *ConfigurationError) Unwrap() error        { return e.Err }
func (e *ConfigurationError) Is(target error) bool { return target == ErrConfiguration }

// CollectionSetupError reports that the store refused a collection handle.
type CollectionSetupError struct {
	Collection string
	Err        error
}

func (e *CollectionSetupError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrCollectionSetup, e.Collection, e.Err)
}

func (e *CollectionSetupError) Unwrap() error        { return e.Err }
func (e *CollectionSetupError) Is(target error) bool { return target == ErrCollectionSetup }

// DuplicateEntityError reports an insert whose ID already exists.
type DuplicateEntityError struct {
	Collection string
	Entity     Entity
	Err        error
}

func (e *DuplicateEntityError) Error() string {
	return fmt.Sprintf("%s: %s %s", ErrDuplicateEntity, e.Collection, e.Entity.GetID())
}

func (e *DuplicateEntityError) Unwrap() error        { return e.Err }
func (e *DuplicateEntityError) Is(target error) bool { return target == ErrDuplicateEntity }

// EntityNotFoundError reports an update that matched no document.
type EntityNotFoundError struct {
	Collection string
	ID         ID
}

func (e *EntityNotFoundError) Error() string {
	return fmt.Sprintf("%s: %s %s", ErrEntityNotFound, e.Collection, e.ID)
}

func (e *EntityNotFoundError) Is(target error) bool { return target == ErrEntityNotFound }

// ConcurrencyConflictError reports a version-checked update that found the
// document at a different version. Only returned with WithOptimisticConcurrency.
type ConcurrencyConflictError struct {
	Collection string
	ID         ID
	Expected   int64
}

func (e *ConcurrencyConflictError) Error() string {
	return fmt.Sprintf("%s: %s %s (expected version %d)", ErrConcurrencyConflict, e.Collection, e.ID, e.Expected)
}

func (e *ConcurrencyConflictError) Is(target error) bool { return target == ErrConcurrencyConflict }

// CancelledError reports an operation abandoned because its context ended.
// Unwrap yields the context error.
type CancelledError struct {
	Operation string
	Err       error
}

func (e *CancelledError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrCancelled, e.Operation, e.Err)
}

func (e *CancelledError) Unwrap() error        { return e.Err }
func (e *CancelledError) Is(target error) bool { return target == ErrCancelled }
