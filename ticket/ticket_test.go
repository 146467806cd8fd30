package ticket_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jacentio/docket/driver/memory"
	"github.com/jacentio/docket/store"
	"github.com/jacentio/docket/ticket"
)

func newService(t *testing.T) *ticket.Service {
	t.Helper()
	name := strings.ReplaceAll(t.Name(), "/", "_")
	svc, err := ticket.Connect(context.Background(), "memory:///"+name)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = svc.Close(context.Background())
		memory.Drop(name)
	})
	return svc
}

func TestTicket_CollectionName(t *testing.T) {
	assert.Equal(t, "Tickets", store.CollectionNameOf[ticket.Ticket]())
}

func TestTicket_FinalPrice(t *testing.T) {
	tk := &ticket.Ticket{Price: 80, Discount: 25}
	assert.InDelta(t, 60.0, tk.FinalPrice(), 1e-9)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		ticket *ticket.Ticket
		fields []string
	}{
		{"valid", &ticket.Ticket{EventName: "Gala", Price: 10, Discount: 5}, nil},
		{"free", &ticket.Ticket{EventName: "Open Day"}, nil},
		{"missing event", &ticket.Ticket{Price: 10}, []string{"eventName"}},
		{"negative price", &ticket.Ticket{EventName: "Gala", Price: -1}, []string{"price"}},
		{"discount over 100", &ticket.Ticket{EventName: "Gala", Discount: 101}, []string{"discount"}},
		{"long name", &ticket.Ticket{EventName: strings.Repeat("x", 201)}, []string{"eventName"}},
		{"several", &ticket.Ticket{Price: -1, Discount: -1}, []string{"price", "eventName", "discount"}},
		{"nil", nil, []string{"ticket"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ticket.Validate(tt.ticket)
			if tt.fields == nil {
				assert.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, ticket.ErrInvalid)
			var verr *ticket.ValidationError
			require.ErrorAs(t, err, &verr)
			var got []string
			for _, f := range verr.Fields {
				got = append(got, f.Field)
			}
			assert.ElementsMatch(t, tt.fields, got)
		})
	}
}

func TestValidationError_Message(t *testing.T) {
	err := ticket.Validate(&ticket.Ticket{Discount: 150})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "eventName is required")
	assert.Contains(t, err.Error(), "discount must be at most 100")
}

func TestService_InsertRejectsInvalid(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	_, err := svc.Insert(ctx, &ticket.Ticket{Price: 5})
	assert.ErrorIs(t, err, ticket.ErrInvalid)

	all, err := svc.GetAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestService_SaveInsertsThenUpdates(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	tk := &ticket.Ticket{EventName: "Gala", Price: 40}
	saved, err := svc.Save(ctx, tk)
	require.NoError(t, err)
	assert.Equal(t, int64(1), saved.Version)
	assert.False(t, saved.ID.IsZero())
	assert.Equal(t, saved.CreatedAt, saved.UpdatedAt)

	saved.Discount = 10
	updated, err := svc.Save(ctx, saved)
	require.NoError(t, err)
	assert.Equal(t, int64(2), updated.Version)

	stored, err := svc.Get(ctx, tk.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, int64(2), stored.Version)
	assert.Equal(t, 10, stored.Discount)
	assert.Equal(t, "Gala", stored.EventName)
}

func TestService_SaveDuplicateRestoresVersion(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	first, err := svc.Save(ctx, &ticket.Ticket{EventName: "Gala"})
	require.NoError(t, err)

	dup := &ticket.Ticket{EventName: "Other"}
	dup.ID = first.ID
	_, err = svc.Save(ctx, dup)
	assert.ErrorIs(t, err, store.ErrDuplicateEntity)
	assert.Equal(t, int64(0), dup.Version)
}

func TestService_UpdateMissing(t *testing.T) {
	svc := newService(t)
	tk := &ticket.Ticket{EventName: "Gala"}
	tk.ID = store.NewID()
	tk.Version = 3

	_, err := svc.Save(context.Background(), tk)
	assert.ErrorIs(t, err, store.ErrEntityNotFound)
	assert.Equal(t, int64(3), tk.Version)
}

func TestService_Search(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	for _, tk := range []*ticket.Ticket{
		{EventName: "Gala", Price: 20},
		{EventName: "Gala", Price: 80, Discount: 10},
		{EventName: "Concert", Price: 50},
	} {
		_, err := svc.Save(ctx, tk)
		require.NoError(t, err)
	}

	gala, err := svc.FindByEventName(ctx, "Gala")
	require.NoError(t, err)
	assert.Len(t, gala, 2)

	mid, err := svc.SearchFor(ctx, ticket.PricedBetween(20, 50))
	require.NoError(t, err)
	assert.Len(t, mid, 2)

	discounted, err := svc.SearchFor(ctx, ticket.Discounted())
	require.NoError(t, err)
	require.Len(t, discounted, 1)
	assert.Equal(t, 80.0, discounted[0].Price)

	page, err := svc.Pagination(ctx, 2, 0, false)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "Concert", page[0].EventName)
}

func TestService_Delete(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	tk, err := svc.Save(ctx, &ticket.Ticket{EventName: "Gala"})
	require.NoError(t, err)

	deleted, err := svc.Delete(ctx, tk.ID)
	require.NoError(t, err)
	require.NotNil(t, deleted)
	assert.Equal(t, "Gala", deleted.EventName)

	gone, err := svc.Get(ctx, tk.ID)
	require.NoError(t, err)
	assert.Nil(t, gone)
}
