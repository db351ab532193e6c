// Package scope rewrites queries so scoped resources never leave the
// resolved brand. Every scoped table registers a descriptor naming its path
// to the brands table; the scoper turns that path into joins and filters.
package scope

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

var (
	ErrUnknownKind = errors.New("unknown_resource_kind")
	ErrNoScope     = errors.New("missing_brand_scope")
	// ErrNotVisible covers rows outside the caller's scope. It maps to the
	// same response as a missing row so existence cannot be probed.
	ErrNotVisible = errors.New("resource_not_visible")
)

// Hop is one parent step on the path to the brand column. LocalColumn lives
// on the previous table and references Table's primary key.
type Hop struct {
	Table            string
	LocalColumn      string
	SoftDeleteColumn string
}

// EdgeHop scopes many-to-many resources: rows qualify when an EXISTS over
// the join table reaches at least one in-scope row of TargetKind.
type EdgeHop struct {
	JoinTable    string
	LocalColumn  string
	RemoteColumn string
	TargetKind   string
}

// Descriptor is one table's registration. BrandColumn names the brand
// foreign key on the table itself, or on the last hop table when Hops walk
// up through parents. Edge kinds scope through a join table instead and
// carry no path of their own.
type Descriptor struct {
	Kind             string
	Table            string
	BrandColumn      string
	SoftDeleteColumn string
	Hops             []Hop
	Edge             *EdgeHop
}

func (d Descriptor) validate() error {
	if d.Kind == "" || d.Table == "" {
		return fmt.Errorf("scope descriptor needs kind and table")
	}
	if d.Edge != nil {
		if d.BrandColumn != "" || len(d.Hops) > 0 {
			return fmt.Errorf("scope descriptor %s: edge kinds carry no direct path", d.Kind)
		}
		return nil
	}
	if d.BrandColumn == "" {
		return fmt.Errorf("scope descriptor %s: brand column required", d.Kind)
	}
	return nil
}

// brandTable is the table the brand column lives on.
func (d Descriptor) brandTable() string {
	if len(d.Hops) == 0 {
		return d.Table
	}
	return d.Hops[len(d.Hops)-1].Table
}

// Registry holds every scoped kind. Registration happens during fx
// provision; lookups are read-mostly.
type Registry struct {
	mu    sync.RWMutex
	kinds map[string]Descriptor
}

func NewRegistry() *Registry {
	return &Registry{kinds: make(map[string]Descriptor)}
}

func (r *Registry) Register(d Descriptor) error {
	if err := d.validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.kinds[d.Kind]; exists {
		return fmt.Errorf("scope descriptor %s already registered", d.Kind)
	}
	r.kinds[d.Kind] = d
	return nil
}

// MustRegister panics on a bad descriptor. Descriptors are static wiring;
// a bad one is a programming error.
func (r *Registry) MustRegister(d Descriptor) {
	if err := r.Register(d); err != nil {
		panic(err)
	}
}

func (r *Registry) Get(kind string) (Descriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.kinds[kind]
	return d, ok
}

// Kinds returns the registered kinds in stable order.
func (r *Registry) Kinds() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.kinds))
	for kind := range r.kinds {
		out = append(out, kind)
	}
	sort.Strings(out)
	return out
}
