package store

import (
	"fmt"
	"sort"
	"sync"

	"github.com/ValentinKolb/typedkv/lib/db"
)

// Registry binds segments of an engine to store names. Every segment can be
// bound once per process; the binding stays fixed until the process exits.
type Registry struct {
	mu      sync.Mutex
	factory db.Factory
	bound   map[db.SegmentID]string
}

// NewRegistry creates a registry that opens segments with factory
func NewRegistry(factory db.Factory) *Registry {
	return &Registry{
		factory: factory,
		bound:   make(map[db.SegmentID]string),
	}
}

// Bind opens the map for segment and records it under name.
// Binding a segment twice is an error.
func (r *Registry) Bind(segment db.SegmentID, name string) (db.KVDB, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := segment.Validate(); err != nil {
		return nil, err
	}
	if other, ok := r.bound[segment]; ok {
		return nil, fmt.Errorf("segment %d is already bound to %q", segment, other)
	}

	database, err := r.factory(segment)
	if err != nil {
		return nil, fmt.Errorf("failed to open segment %d for %q: %w", segment, name, err)
	}
	r.bound[segment] = name
	return database, nil
}

// MustBind is Bind for process start-up, it panics on error.
func (r *Registry) MustBind(segment db.SegmentID, name string) db.KVDB {
	database, err := r.Bind(segment, name)
	if err != nil {
		panic(err)
	}
	return database
}

// Segments returns the bound segments in ascending order
func (r *Registry) Segments() []db.SegmentID {
	r.mu.Lock()
	defer r.mu.Unlock()

	ids := make([]db.SegmentID, 0, len(r.bound))
	for id := range r.bound {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Name returns the store name bound to segment
func (r *Registry) Name(segment db.SegmentID) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	name, ok := r.bound[segment]
	return name, ok
}
