package store

import (
	"fmt"
	"sort"
	"sync"
)

// Registry maps descriptor schemes to drivers.
type Registry struct {
	mu      sync.RWMutex
	drivers map[string]Driver
}

// NewRegistry creates a new empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		drivers: make(map[string]Driver),
	}
}

// Register adds a driver for scheme.
// It panics if driver is nil or the scheme is already taken.
func (r *Registry) Register(scheme string, driver Driver) {
	if driver == nil {
		panic("docket: Register driver is nil")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.drivers[scheme]; dup {
		panic(fmt.Sprintf("docket: Register called twice for scheme %q", scheme))
	}
	r.drivers[scheme] = driver
}

// Lookup returns the driver registered for scheme.
func (r *Registry) Lookup(scheme string) (Driver, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.drivers[scheme]
	return d, ok
}

// Schemes returns the registered schemes in sorted order.
func (r *Registry) Schemes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	schemes := make([]string, 0, len(r.drivers))
	for s := range r.drivers {
		schemes = append(schemes, s)
	}
	sort.Strings(schemes)
	return schemes
}

// all returns the registered drivers, each once, in scheme order.
func (r *Registry) all() []Driver {
	seen := make(map[Driver]struct{})
	var out []Driver
	for _, s := range r.Schemes() {
		d, _ := r.Lookup(s)
		if _, ok := seen[d]; ok {
			continue
		}
		seen[d] = struct{}{}
		out = append(out, d)
	}
	return out
}

var drivers = NewRegistry()

// Register makes a driver available to Open under scheme.
// Drivers call it from init. If the conventions are already registered the
// driver receives them immediately.
func Register(scheme string, driver Driver) {
	setupMu.Lock()
	defer setupMu.Unlock()
	drivers.Register(scheme, driver)
	if conventionsApplied {
		if cr, ok := driver.(ConventionRegistrar); ok && !appliedTo(driver) {
			cr.RegisterConventions(active)
			applied = append(applied, driver)
		}
	}
}

// Drivers returns the registered schemes in sorted order.
func Drivers() []string {
	return drivers.Schemes()
}
