package ticket

import (
	"context"

	"github.com/jacentio/docket/store"
)

// Service stores tickets. Insert, Update and Save validate before writing.
type Service struct {
	*store.Repository[Ticket, *Ticket]
}

var _ store.Store[*Ticket] = (*Service)(nil)

// NewService binds a ticket service to db.
func NewService(ctx context.Context, db *store.DB, opts ...store.Option) (*Service, error) {
	repo, err := store.NewRepository[Ticket](ctx, db, opts...)
	if err != nil {
		return nil, err
	}
	return &Service{Repository: repo}, nil
}

// Connect opens dsn and binds a ticket service that owns the connection.
func Connect(ctx context.Context, dsn string, opts ...store.Option) (*Service, error) {
	repo, err := store.Connect[Ticket](ctx, dsn, opts...)
	if err != nil {
		return nil, err
	}
	return &Service{Repository: repo}, nil
}

// Insert validates t and stores it as a new ticket.
func (s *Service) Insert(ctx context.Context, t *Ticket) (*Ticket, error) {
	if err := Validate(t); err != nil {
		return nil, err
	}
	return s.Repository.Insert(ctx, t)
}

// Update validates t and replaces the stored ticket.
func (s *Service) Update(ctx context.Context, t *Ticket) (*Ticket, error) {
	if err := Validate(t); err != nil {
		return nil, err
	}
	return s.Repository.Update(ctx, t)
}

// Save inserts a ticket that was never saved (version 0) at version 1, and
// updates any other ticket. The version is incremented once per save.
func (s *Service) Save(ctx context.Context, t *Ticket) (*Ticket, error) {
	if err := Validate(t); err != nil {
		return nil, err
	}
	if t.Version != 0 {
		return s.Repository.Update(ctx, t)
	}

	t.Version = 1
	saved, err := s.Repository.Insert(ctx, t)
	if err != nil {
		t.Version = 0
		return nil, err
	}
	return saved, nil
}

// FindByEventName returns the tickets for the named event.
func (s *Service) FindByEventName(ctx context.Context, name string) ([]*Ticket, error) {
	return s.SearchFor(ctx, ByEventName(name))
}
