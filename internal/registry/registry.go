package registry

import (
	"sort"

	"github.com/berth-dev/berth/internal/errors"
)

// Record represents one provisioned project.
type Record struct {
	// Name is the unique registry key, derived from the project path.
	Name string

	// Path is the absolute project directory.
	Path string

	// Domain is the local domain registered for the project, if any.
	Domain string

	// ProxyService is the compose service the domain proxies to. Set
	// exactly when Domain is set.
	ProxyService string

	// ProxySecure reports whether the domain was registered with HTTPS.
	ProxySecure bool

	// Ports maps port-variable names (APP_PORT, VITE_PORT, ...) to the
	// TCP ports allocated for them.
	Ports map[string]int

	// Extra holds unknown key=value pairs found in the registry file.
	// They are preserved across load and save so newer berth versions
	// can add keys without older ones destroying them.
	Extra map[string]string
}

// PortNames returns the record's port-variable names, sorted.
func (r *Record) PortNames() []string {
	names := make([]string, 0, len(r.Ports))
	for name := range r.Ports {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Validate checks the record's internal consistency.
func (r *Record) Validate() error {
	if r.Name == "" {
		return errors.Newf(errors.CategoryRegistry, "record has no name")
	}
	if r.Path == "" {
		return errors.Newf(errors.CategoryRegistry, "record %q has no path", r.Name)
	}
	if (r.Domain == "") != (r.ProxyService == "") {
		return errors.Newf(errors.CategoryRegistry,
			"record %q must set domain and proxy_service together", r.Name)
	}
	if r.ProxySecure && r.Domain == "" {
		return errors.Newf(errors.CategoryRegistry,
			"record %q sets proxy_secure without a domain", r.Name)
	}
	for name, port := range r.Ports {
		if port <= 0 || port > 65535 {
			return errors.Newf(errors.CategoryRegistry,
				"record %q port %s=%d is out of range", r.Name, name, port)
		}
	}
	return nil
}

// Registry is the in-memory form of the shared project registry.
type Registry struct {
	records map[string]*Record
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{records: make(map[string]*Record)}
}

// Len returns the number of records.
func (g *Registry) Len() int {
	return len(g.records)
}

// Get returns the record with the given name.
func (g *Registry) Get(name string) (*Record, bool) {
	rec, ok := g.records[name]
	return rec, ok
}

// FindByPath returns the record registered for the given path, if any.
func (g *Registry) FindByPath(path string) *Record {
	for _, rec := range g.records {
		if rec.Path == path {
			return rec
		}
	}
	return nil
}

// Names returns all record names, sorted.
func (g *Registry) Names() []string {
	names := make([]string, 0, len(g.records))
	for name := range g.records {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Records returns all records sorted by name.
func (g *Registry) Records() []*Record {
	recs := make([]*Record, 0, len(g.records))
	for _, name := range g.Names() {
		recs = append(recs, g.records[name])
	}
	return recs
}

// Ports returns every allocated port mapped to the name of the record
// holding it.
func (g *Registry) Ports() map[int]string {
	ports := make(map[int]string)
	for name, rec := range g.records {
		for _, port := range rec.Ports {
			ports[port] = name
		}
	}
	return ports
}

// PortOwner returns the name of the record holding the given port.
func (g *Registry) PortOwner(port int) (string, bool) {
	for name, rec := range g.records {
		for _, p := range rec.Ports {
			if p == port {
				return name, true
			}
		}
	}
	return "", false
}

// Add inserts a record, enforcing name uniqueness and global port
// uniqueness.
func (g *Registry) Add(rec *Record) error {
	if err := rec.Validate(); err != nil {
		return err
	}
	if _, exists := g.records[rec.Name]; exists {
		return errors.Newf(errors.CategoryRegistry, "record %q already exists", rec.Name)
	}
	for varName, port := range rec.Ports {
		if owner, taken := g.PortOwner(port); taken {
			return errors.Newf(errors.CategoryRegistry,
				"port %d (%s) is already held by %q", port, varName, owner)
		}
	}
	g.records[rec.Name] = rec
	return nil
}

// Remove deletes the record with the given name and returns it, or nil
// if no such record exists.
func (g *Registry) Remove(name string) *Record {
	rec, ok := g.records[name]
	if !ok {
		return nil
	}
	delete(g.records, name)
	return rec
}

// validate checks the cross-record invariants: unique names are
// structural, so only global port uniqueness remains.
func (g *Registry) validate() error {
	owners := make(map[int]string)
	for _, name := range g.Names() {
		rec := g.records[name]
		if err := rec.Validate(); err != nil {
			return err
		}
		for varName, port := range rec.Ports {
			if owner, taken := owners[port]; taken {
				return errors.Newf(errors.CategoryRegistry,
					"port %d (%s of %q) is also held by %q", port, varName, name, owner)
			}
			owners[port] = name
		}
	}
	return nil
}
