package store

import (
	"sync"
	"time"
)

// Conventions fix how entity structs map onto store documents.
type Conventions struct {
	// TagKey is the struct tag that names document fields.
	TagKey string

	// IDField and VersionField name the identity and version fields.
	IDField      string
	VersionField string

	// TimePrecision is the resolution audit timestamps are truncated to,
	// the finest every driver round-trips losslessly.
	TimePrecision time.Duration
}

// DefaultConventions returns the conventions RegisterConventions installs.
func DefaultConventions() Conventions {
	return Conventions{
		TagKey:        "bson",
		IDField:       FieldID,
		VersionField:  FieldVersion,
		TimePrecision: time.Millisecond,
	}
}

var (
	setupMu            sync.Mutex
	conventionsOnce    sync.Once
	conventionsApplied bool
	active             = DefaultConventions()
	applied            []Driver
)

// RegisterConventions installs the process-wide conventions and hands them to
// every registered driver. Only the first call has an effect; it is safe to
// call from many goroutines. Open calls it.
func RegisterConventions() {
	conventionsOnce.Do(func() {
		setupMu.Lock()
		defer setupMu.Unlock()
		for _, d := range drivers.all() {
			if cr, ok := d.(ConventionRegistrar); ok {
				cr.RegisterConventions(active)
				applied = append(applied, d)
			}
		}
		conventionsApplied = true
	})
}

// ActiveConventions returns the installed conventions.
func ActiveConventions() Conventions {
	return active
}

func appliedTo(d Driver) bool {
	for _, a := range applied {
		if a == d {
			return true
		}
	}
	return false
}
