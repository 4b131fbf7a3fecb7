package idalloc

import (
	"math"
	"sync"

	"github.com/ValentinKolb/typedkv/lib/db"
	"github.com/ValentinKolb/typedkv/lib/store"
	"github.com/ValentinKolb/typedkv/lib/store/codec"
	"github.com/ValentinKolb/typedkv/lib/store/lstore"
	"github.com/lni/dragonboat/v4/logger"
)

var log = logger.GetLogger("store")

// Source is the data map of a kind. The allocator reads its largest key to
// seed a counter that was never issued. db.KVDB satisfies it.
type Source interface {
	Last() (key, value []byte, ok bool, err error)
}

// maxSwapAttempts bounds the retries of Next when other allocators sharing
// the counter map keep winning the compare-and-swap
const maxSwapAttempts = 64

// Allocator hands out strictly increasing uint64 ids per kind. Counters are
// persisted in their own store and are never reset by clearing a data store.
//
// Several allocators may share one counter map (replicas of a dstore
// segment). Each increment is committed with CompareAndSwap, so no id is
// issued twice across them.
type Allocator struct {
	mu       sync.Mutex
	db       db.KVDB
	counters *lstore.Store[string, uint64]
	values   codec.Msgpack[uint64]
	sources  map[string]Source
}

// New creates an allocator that keeps its counters in database.
func New(database db.KVDB) *Allocator {
	return &Allocator{
		db:       database,
		counters: lstore.New[string, uint64]("id_allocator", database, codec.StringKey{}, codec.Msgpack[uint64]{}),
		sources:  make(map[string]Source),
	}
}

// Register sets the data map used to bootstrap the counter of kind.
func (a *Allocator) Register(kind string, source Source) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.sources[kind] = source
}

// Get returns the last id issued for kind.
func (a *Allocator) Get(kind string) (uint64, bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	entry, ok, err := a.counters.GetOpt(kind)
	return entry.Value, ok, err
}

// GetAll returns the last issued id of every kind.
func (a *Allocator) GetAll() (map[string]uint64, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	entries, err := a.counters.GetAll()
	if err != nil {
		return nil, err
	}
	all := make(map[string]uint64, len(entries))
	for _, e := range entries {
		all[e.Key] = e.Value
	}
	return all, nil
}

// Next issues the next id for kind. A counter that was never issued starts
// after the largest key of the registered source, or at 1. The new value is
// committed only if the counter is still the one that was read, otherwise
// Next reads again.
//
// Next refuses to wrap: once MaxUint64 was issued it returns Unexpected.
func (a *Allocator) Next(kind string) (uint64, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	key := codec.StringKey{}.EncodeKey(kind)
	for attempt := 0; attempt < maxSwapAttempts; attempt++ {
		current, ok, err := a.db.Get(key)
		if err != nil {
			return 0, unexpected(kind, err)
		}

		var last uint64
		if ok {
			if last, err = a.values.Unmarshal(current); err != nil {
				return 0, unexpected(kind, err)
			}
		} else {
			current = nil
			if last, err = a.seed(kind); err != nil {
				return 0, err
			}
		}

		if last == math.MaxUint64 {
			return 0, store.Unexpected().
				WithMethod("next").
				WithInfo(kind).
				WithMessage("id space exhausted")
		}

		next := last + 1
		encoded, err := a.values.Marshal(next)
		if err != nil {
			return 0, unexpected(kind, err)
		}
		swapped, err := a.db.CompareAndSwap(key, current, encoded)
		if err != nil {
			return 0, unexpected(kind, err)
		}
		if swapped {
			return next, nil
		}
		log.Debugf("counter %q changed concurrently, retrying (%d/%d)", kind, attempt+1, maxSwapAttempts)
	}

	return 0, store.Unexpected().
		WithMethod("next").
		WithInfo(kind).
		WithMessagef("counter still contended after %d attempts", maxSwapAttempts)
}

func unexpected(kind string, err error) error {
	return store.Unexpected().WithMethod("next").WithInfo(kind).WithMessage(err.Error())
}

// seed returns the largest key of the kind's source, or 0
func (a *Allocator) seed(kind string) (uint64, error) {
	source, ok := a.sources[kind]
	if !ok {
		return 0, nil
	}

	rawKey, _, ok, err := source.Last()
	if err != nil {
		return 0, unexpected(kind, err)
	}
	if !ok {
		return 0, nil
	}

	key, err := codec.Uint64Key{}.DecodeKey(rawKey)
	if err != nil {
		return 0, unexpected(kind, err)
	}
	return key, nil
}
