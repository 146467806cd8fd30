package main

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/pflag"

	"github.com/jacentio/docket/store"
	"github.com/jacentio/docket/ticket"
)

// action runs a parsed command against the ticket store.
type action func(ctx context.Context, svc *ticket.Service, out io.Writer) error

type command struct {
	summary string
	parse   func(args []string) (action, error)
}

var commands = map[string]command{
	"list":   {summary: "list every ticket", parse: parseList},
	"page":   {summary: "list one page of tickets in ID order", parse: parsePage},
	"get":    {summary: "show a ticket", parse: parseGet},
	"add":    {summary: "add a ticket", parse: parseAdd},
	"update": {summary: "change fields of a ticket", parse: parseUpdate},
	"delete": {summary: "delete a ticket and show what was removed", parse: parseDelete},
	"search": {summary: "find tickets by event and price", parse: parseSearch},
}

func newFlagSet(name string) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

func parseFlags(fs *pflag.FlagSet, args []string, positional int) ([]string, error) {
	if err := fs.Parse(args); err != nil {
		return nil, usagef("%s: %v", fs.Name(), err)
	}
	if fs.NArg() != positional {
		return nil, usagef("%s: expected %d argument(s), got %d", fs.Name(), positional, fs.NArg())
	}
	return fs.Args(), nil
}

func parseID(cmd, s string) (store.ID, error) {
	id, err := store.ParseID(s)
	if err != nil {
		return store.NilID, usagef("%s: %v", cmd, err)
	}
	return id, nil
}

func parseList(args []string) (action, error) {
	if _, err := parseFlags(newFlagSet("list"), args, 0); err != nil {
		return nil, err
	}
	return func(ctx context.Context, svc *ticket.Service, out io.Writer) error {
		tickets, err := svc.GetAll(ctx)
		if err != nil {
			return err
		}
		return printTickets(out, tickets)
	}, nil
}

func parsePage(args []string) (action, error) {
	fs := newFlagSet("page")
	top := fs.Int("top", 20, "maximum number of tickets")
	skip := fs.Int("skip", 0, "number of tickets to skip")
	desc := fs.Bool("desc", false, "newest first")
	if _, err := parseFlags(fs, args, 0); err != nil {
		return nil, err
	}
	return func(ctx context.Context, svc *ticket.Service, out io.Writer) error {
		tickets, err := svc.Pagination(ctx, *top, *skip, !*desc)
		if err != nil {
			return err
		}
		return printTickets(out, tickets)
	}, nil
}

func parseGet(args []string) (action, error) {
	fs := newFlagSet("get")
	rest, err := parseFlags(fs, args, 1)
	if err != nil {
		return nil, err
	}
	id, err := parseID("get", rest[0])
	if err != nil {
		return nil, err
	}
	return func(ctx context.Context, svc *ticket.Service, out io.Writer) error {
		t, err := svc.Get(ctx, id)
		if err != nil {
			return err
		}
		if t == nil {
			return fmt.Errorf("ticket %s: %w", id, store.ErrEntityNotFound)
		}
		return printTickets(out, []*ticket.Ticket{t})
	}, nil
}

func parseAdd(args []string) (action, error) {
	fs := newFlagSet("add")
	event := fs.String("event", "", "event name")
	price := fs.Float64("price", 0, "ticket price")
	discount := fs.Int("discount", 0, "discount percentage")
	if _, err := parseFlags(fs, args, 0); err != nil {
		return nil, err
	}
	return func(ctx context.Context, svc *ticket.Service, out io.Writer) error {
		t, err := svc.Save(ctx, &ticket.Ticket{EventName: *event, Price: *price, Discount: *discount})
		if err != nil {
			return err
		}
		return printTickets(out, []*ticket.Ticket{t})
	}, nil
}

func parseUpdate(args []string) (action, error) {
	fs := newFlagSet("update")
	event := fs.String("event", "", "new event name")
	price := fs.Float64("price", 0, "new price")
	discount := fs.Int("discount", 0, "new discount percentage")
	rest, err := parseFlags(fs, args, 1)
	if err != nil {
		return nil, err
	}
	id, err := parseID("update", rest[0])
	if err != nil {
		return nil, err
	}
	return func(ctx context.Context, svc *ticket.Service, out io.Writer) error {
		t, err := svc.Get(ctx, id)
		if err != nil {
			return err
		}
		if t == nil {
			return fmt.Errorf("ticket %s: %w", id, store.ErrEntityNotFound)
		}
		if fs.Changed("event") {
			t.EventName = *event
		}
		if fs.Changed("price") {
			t.Price = *price
		}
		if fs.Changed("discount") {
			t.Discount = *discount
		}
		if t, err = svc.Update(ctx, t); err != nil {
			return err
		}
		return printTickets(out, []*ticket.Ticket{t})
	}, nil
}

func parseDelete(args []string) (action, error) {
	rest, err := parseFlags(newFlagSet("delete"), args, 1)
	if err != nil {
		return nil, err
	}
	id, err := parseID("delete", rest[0])
	if err != nil {
		return nil, err
	}
	return func(ctx context.Context, svc *ticket.Service, out io.Writer) error {
		t, err := svc.Delete(ctx, id)
		if err != nil {
			return err
		}
		if t == nil {
			return fmt.Errorf("ticket %s: %w", id, store.ErrEntityNotFound)
		}
		return printTickets(out, []*ticket.Ticket{t})
	}, nil
}

func parseSearch(args []string) (action, error) {
	fs := newFlagSet("search")
	event := fs.String("event", "", "exact event name")
	minPrice := fs.Float64("min-price", 0, "lowest price")
	maxPrice := fs.Float64("max-price", 0, "highest price")
	discounted := fs.Bool("discounted", false, "only discounted tickets")
	if _, err := parseFlags(fs, args, 0); err != nil {
		return nil, err
	}

	var filters []store.Filter
	if fs.Changed("event") {
		filters = append(filters, ticket.ByEventName(*event))
	}
	if fs.Changed("min-price") {
		filters = append(filters, store.Gte(ticket.FieldPrice, *minPrice))
	}
	if fs.Changed("max-price") {
		filters = append(filters, store.Lte(ticket.FieldPrice, *maxPrice))
	}
	if *discounted {
		filters = append(filters, ticket.Discounted())
	}
	if len(filters) == 0 {
		return nil, usagef("search: at least one criterion is required")
	}

	return func(ctx context.Context, svc *ticket.Service, out io.Writer) error {
		tickets, err := svc.SearchFor(ctx, store.And(filters...))
		if err != nil {
			return err
		}
		return printTickets(out, tickets)
	}, nil
}

// printTickets writes one tab-separated line per ticket:
// id, event, price, discount, final price, version.
func printTickets(w io.Writer, tickets []*ticket.Ticket) error {
	for _, t := range tickets {
		_, err := fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\t%d\n",
			t.ID, t.EventName,
			strconv.FormatFloat(t.Price, 'f', 2, 64),
			t.Discount,
			strconv.FormatFloat(t.FinalPrice(), 'f', 2, 64),
			t.Version,
		)
		if err != nil {
			return err
		}
	}
	return nil
}
