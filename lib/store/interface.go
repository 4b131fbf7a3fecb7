package store

// --------------------------------------------------------------------------
// Entries, Filters and Sorters
// --------------------------------------------------------------------------

// Entry is one (key, value) pair of a store
type Entry[K, V any] struct {
	Key   K
	Value V
}

// Filter is a predicate over the entries of one entity type.
type Filter[K, V any] interface {
	Matches(key K, value V) bool
}

// FilterFunc adapts a function to the Filter interface
type FilterFunc[K, V any] func(key K, value V) bool

func (f FilterFunc[K, V]) Matches(key K, value V) bool {
	return f(key, value)
}

// Sorter orders the entries of one entity type. Sort may reorder the slice
// in place and returns it.
type Sorter[K, V any] interface {
	Sort(entries []Entry[K, V]) []Entry[K, V]
}

// KeyGenerator returns the next key for a kind. idalloc.Allocator.Next has
// this signature.
type KeyGenerator func(kind string) (uint64, error)

// --------------------------------------------------------------------------
// Capability Interfaces
// --------------------------------------------------------------------------

// Queryable is a store that can be read.
// Every method returns a *Error (or nil), backend failures are Unexpected.
type Queryable[K, V any] interface {
	// Size returns the number of entries.
	Size() (n uint64, err error)
	// Get returns the entry for key or NotFound.
	Get(key K) (entry Entry[K, V], err error)
	// GetOpt is Get without NotFound. The boolean reports whether the key exists.
	GetOpt(key K) (entry Entry[K, V], ok bool, err error)
	// GetMany returns the entries for keys, absent keys are skipped.
	GetMany(keys []K) (entries []Entry[K, V], err error)
	// GetAll returns all entries in key order.
	GetAll() (entries []Entry[K, V], err error)
	// GetPaginated sorts all entries and returns one page of them.
	GetPaginated(limit, page uint64, sorter Sorter[K, V]) (p Page[Entry[K, V]], err error)
	// Find returns the first entry in key order that matches filter.
	Find(filter Filter[K, V]) (entry Entry[K, V], ok bool, err error)
	// Filter returns all entries that match filter, in key order.
	Filter(filter Filter[K, V]) (entries []Entry[K, V], err error)
	// FilterPaginated filters, sorts and returns one page of the matches.
	FilterPaginated(limit, page uint64, sorter Sorter[K, V], filter Filter[K, V]) (p Page[Entry[K, V]], err error)
	// ContainsKey reports whether key exists.
	ContainsKey(key K) (ok bool, err error)
	// LastKey returns the largest key.
	LastKey() (key K, ok bool, err error)
}

// Updateable is a store whose existing entries can be changed or removed.
type Updateable[K, V any] interface {
	// Update replaces the value of an existing key or returns NotFound.
	Update(key K, value V) (entry Entry[K, V], err error)
	// UpdateMany updates all entries or none: NotFound if any key is absent.
	UpdateMany(entries []Entry[K, V]) (updated []Entry[K, V], err error)
	// Upsert inserts or replaces the value of key.
	Upsert(key K, value V) (entry Entry[K, V], err error)
	// Remove deletes key or returns NotFound.
	Remove(key K) (err error)
	// RemoveMany deletes keys, absent keys are skipped.
	RemoveMany(keys []K) (err error)
	// Clear removes all entries. Id counters are not reset.
	Clear() (err error)
}

// Insertable is an auto-keyed store.
type Insertable[V any] interface {
	// Insert stores value under the key produced by next or returns Duplicate.
	Insert(value V, next KeyGenerator) (entry Entry[uint64, V], err error)
}

// InsertableByKey is an externally keyed store.
type InsertableByKey[K, V any] interface {
	// InsertByKey stores value under key or returns Duplicate.
	InsertByKey(key K, value V) (entry Entry[K, V], err error)
}

// AutoKeyed combines the capabilities of a store with uint64 keys that
// are allocated by an id generator.
type AutoKeyed[V any] interface {
	Queryable[uint64, V]
	Updateable[uint64, V]
	Insertable[V]
}

// Keyed combines the capabilities of an externally keyed store.
type Keyed[K, V any] interface {
	Queryable[K, V]
	Updateable[K, V]
	InsertableByKey[K, V]
}
