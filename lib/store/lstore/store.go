package lstore

import (
	"sync"

	"github.com/ValentinKolb/typedkv/lib/db"
	"github.com/ValentinKolb/typedkv/lib/store"
	"github.com/ValentinKolb/typedkv/lib/store/codec"
	"github.com/lni/dragonboat/v4/logger"
)

var log = logger.GetLogger("store")

// Store is a typed store over one ordered map. Every operation holds the
// store lock for its whole duration, so each operation is atomic with
// respect to all others on the same store. Checks that guard a write (insert,
// update, update_many) use the conditional writes of the map, so they also
// hold when several processes share a replicated map.
type Store[K, V any] struct {
	mu     sync.RWMutex
	name   string
	db     db.KVDB
	keys   codec.KeyCodec[K]
	values codec.Codec[V]
}

// New creates a typed store named name on top of database.
func New[K, V any](name string, database db.KVDB, keys codec.KeyCodec[K], values codec.Codec[V]) *Store[K, V] {
	log.Debugf("created store %q on %s segment %d", name, database.GetInfo().DbType, database.GetInfo().Segment)
	return &Store[K, V]{
		name:   name,
		db:     database,
		keys:   keys,
		values: values,
	}
}

// Name returns the store name, it is attached to every error as info.
func (s *Store[K, V]) Name() string {
	return s.name
}

// DB returns the underlying ordered map.
func (s *Store[K, V]) DB() db.KVDB {
	return s.db
}

// --------------------------------------------------------------------------
// Error helpers
// --------------------------------------------------------------------------

func (s *Store[K, V]) notFound(method string, key K) error {
	return store.NotFound().
		WithMethod(method).
		WithInfo(s.name).
		WithMessagef("key %v not found", key)
}

func (s *Store[K, V]) duplicate(method string, key K) error {
	return store.Duplicate().
		WithMethod(method).
		WithInfo(s.name).
		WithMessagef("key %v already exists", key)
}

func (s *Store[K, V]) unexpected(method string, err error) error {
	log.Warningf("%s.%s failed: %v", s.name, method, err)
	return store.Unexpected().
		WithMethod(method).
		WithInfo(s.name).
		WithMessage(err.Error())
}

// --------------------------------------------------------------------------
// Internal helpers (callers hold the lock)
// --------------------------------------------------------------------------

func (s *Store[K, V]) get(method string, key K) (store.Entry[K, V], bool, error) {
	raw, ok, err := s.db.Get(s.keys.EncodeKey(key))
	if err != nil {
		return store.Entry[K, V]{}, false, s.unexpected(method, err)
	}
	if !ok {
		return store.Entry[K, V]{}, false, nil
	}
	value, err := s.values.Unmarshal(raw)
	if err != nil {
		return store.Entry[K, V]{}, false, s.unexpected(method, err)
	}
	return store.Entry[K, V]{Key: key, Value: value}, true, nil
}

func (s *Store[K, V]) has(method string, key K) (bool, error) {
	ok, err := s.db.Has(s.keys.EncodeKey(key))
	if err != nil {
		return false, s.unexpected(method, err)
	}
	return ok, nil
}

func (s *Store[K, V]) put(method string, key K, value V) (store.Entry[K, V], error) {
	raw, err := s.values.Marshal(value)
	if err != nil {
		return store.Entry[K, V]{}, s.unexpected(method, err)
	}
	if _, _, err := s.db.Insert(s.keys.EncodeKey(key), raw); err != nil {
		return store.Entry[K, V]{}, s.unexpected(method, err)
	}
	return store.Entry[K, V]{Key: key, Value: value}, nil
}

// insertIfAbsent writes value only if key is absent, the check and the write
// are one call on the map
func (s *Store[K, V]) insertIfAbsent(method string, key K, value V) (store.Entry[K, V], error) {
	raw, err := s.values.Marshal(value)
	if err != nil {
		return store.Entry[K, V]{}, s.unexpected(method, err)
	}
	_, inserted, err := s.db.InsertIfAbsent(s.keys.EncodeKey(key), raw)
	if err != nil {
		return store.Entry[K, V]{}, s.unexpected(method, err)
	}
	if !inserted {
		return store.Entry[K, V]{}, s.duplicate(method, key)
	}
	return store.Entry[K, V]{Key: key, Value: value}, nil
}

// scan decodes all entries in key order until fn returns false
func (s *Store[K, V]) scan(method string, fn func(entry store.Entry[K, V]) bool) error {
	var decodeErr error
	err := s.db.Iterate(func(rawKey, rawValue []byte) bool {
		key, err := s.keys.DecodeKey(rawKey)
		if err != nil {
			decodeErr = err
			return false
		}
		value, err := s.values.Unmarshal(rawValue)
		if err != nil {
			decodeErr = err
			return false
		}
		return fn(store.Entry[K, V]{Key: key, Value: value})
	})
	if err == nil {
		err = decodeErr
	}
	if err != nil {
		return s.unexpected(method, err)
	}
	return nil
}

func (s *Store[K, V]) filter(method string, filter store.Filter[K, V]) ([]store.Entry[K, V], error) {
	entries := []store.Entry[K, V]{}
	err := s.scan(method, func(entry store.Entry[K, V]) bool {
		if filter == nil || filter.Matches(entry.Key, entry.Value) {
			entries = append(entries, entry)
		}
		return true
	})
	return entries, err
}

func paginate[K, V any](entries []store.Entry[K, V], limit, page uint64, sorter store.Sorter[K, V]) store.Page[store.Entry[K, V]] {
	if sorter != nil {
		entries = sorter.Sort(entries)
	}
	return store.Paginate(entries, limit, page)
}

// --------------------------------------------------------------------------
// Interface Methods - Queries (docu see store/interface.go)
// --------------------------------------------------------------------------

func (s *Store[K, V]) Size() (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n, err := s.db.Len()
	if err != nil {
		return 0, s.unexpected("size", err)
	}
	return n, nil
}

func (s *Store[K, V]) Get(key K) (store.Entry[K, V], error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok, err := s.get("get", key)
	if err != nil {
		return entry, err
	}
	if !ok {
		return entry, s.notFound("get", key)
	}
	return entry, nil
}

func (s *Store[K, V]) GetOpt(key K) (store.Entry[K, V], bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.get("get_opt", key)
}

func (s *Store[K, V]) GetMany(keys []K) ([]store.Entry[K, V], error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := make([]store.Entry[K, V], 0, len(keys))
	for _, key := range keys {
		entry, ok, err := s.get("get_many", key)
		if err != nil {
			return nil, err
		}
		if ok {
			entries = append(entries, entry)
		}
	}
	return entries, nil
}

func (s *Store[K, V]) GetAll() ([]store.Entry[K, V], error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.filter("get_all", nil)
}

func (s *Store[K, V]) GetPaginated(limit, page uint64, sorter store.Sorter[K, V]) (store.Page[store.Entry[K, V]], error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries, err := s.filter("get_paginated", nil)
	if err != nil {
		return store.Page[store.Entry[K, V]]{}, err
	}
	return paginate(entries, limit, page, sorter), nil
}

func (s *Store[K, V]) Find(filter store.Filter[K, V]) (store.Entry[K, V], bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var found store.Entry[K, V]
	var ok bool
	err := s.scan("find", func(entry store.Entry[K, V]) bool {
		if filter == nil || filter.Matches(entry.Key, entry.Value) {
			found, ok = entry, true
			return false
		}
		return true
	})
	return found, ok, err
}

func (s *Store[K, V]) Filter(filter store.Filter[K, V]) ([]store.Entry[K, V], error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.filter("filter", filter)
}

func (s *Store[K, V]) FilterPaginated(limit, page uint64, sorter store.Sorter[K, V], filter store.Filter[K, V]) (store.Page[store.Entry[K, V]], error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries, err := s.filter("filter_paginated", filter)
	if err != nil {
		return store.Page[store.Entry[K, V]]{}, err
	}
	return paginate(entries, limit, page, sorter), nil
}

func (s *Store[K, V]) ContainsKey(key K) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.has("contains_key", key)
}

func (s *Store[K, V]) LastKey() (K, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var zero K
	rawKey, _, ok, err := s.db.Last()
	if err != nil {
		return zero, false, s.unexpected("last_key", err)
	}
	if !ok {
		return zero, false, nil
	}
	key, err := s.keys.DecodeKey(rawKey)
	if err != nil {
		return zero, false, s.unexpected("last_key", err)
	}
	return key, true, nil
}

// --------------------------------------------------------------------------
// Interface Methods - Updates (docu see store/interface.go)
// --------------------------------------------------------------------------

func (s *Store[K, V]) Update(key K, value V) (store.Entry[K, V], error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := s.values.Marshal(value)
	if err != nil {
		return store.Entry[K, V]{}, s.unexpected("update", err)
	}
	_, replaced, err := s.db.Replace(s.keys.EncodeKey(key), raw)
	if err != nil {
		return store.Entry[K, V]{}, s.unexpected("update", err)
	}
	if !replaced {
		return store.Entry[K, V]{}, s.notFound("update", key)
	}
	return store.Entry[K, V]{Key: key, Value: value}, nil
}

// UpdateMany replaces all entries in one call on the map. A missing key
// leaves the store unchanged.
func (s *Store[K, V]) UpdateMany(entries []store.Entry[K, V]) ([]store.Entry[K, V], error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	keys := make([][]byte, len(entries))
	values := make([][]byte, len(entries))
	for i, e := range entries {
		raw, err := s.values.Marshal(e.Value)
		if err != nil {
			return nil, s.unexpected("update_many", err)
		}
		keys[i], values[i] = s.keys.EncodeKey(e.Key), raw
	}

	missing, err := s.db.ReplaceAll(keys, values)
	if err != nil {
		return nil, s.unexpected("update_many", err)
	}
	if missing >= 0 {
		return nil, s.notFound("update_many", entries[missing].Key)
	}

	updated := make([]store.Entry[K, V], len(entries))
	copy(updated, entries)
	return updated, nil
}

func (s *Store[K, V]) Upsert(key K, value V) (store.Entry[K, V], error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.put("upsert", key, value)
}

func (s *Store[K, V]) Remove(key K) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, removed, err := s.db.Remove(s.keys.EncodeKey(key))
	if err != nil {
		return s.unexpected("remove", err)
	}
	if !removed {
		return s.notFound("remove", key)
	}
	return nil
}

func (s *Store[K, V]) RemoveMany(keys []K) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, key := range keys {
		if _, _, err := s.db.Remove(s.keys.EncodeKey(key)); err != nil {
			return s.unexpected("remove_many", err)
		}
	}
	return nil
}

func (s *Store[K, V]) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.db.Clear(); err != nil {
		return s.unexpected("clear", err)
	}
	return nil
}

// --------------------------------------------------------------------------
// Keying Modes
// --------------------------------------------------------------------------

// AutoStore is a store whose uint64 keys come from an id generator. The
// store name doubles as the allocator kind.
type AutoStore[V any] struct {
	*Store[uint64, V]
}

// NewAutoStore creates an auto-keyed store.
func NewAutoStore[V any](name string, database db.KVDB, values codec.Codec[V]) *AutoStore[V] {
	return &AutoStore[V]{Store: New[uint64, V](name, database, codec.Uint64Key{}, values)}
}

// Kind returns the allocator kind of the store
func (s *AutoStore[V]) Kind() string {
	return s.name
}

// Insert allocates a key with next and stores value under it. next runs
// while the store lock is held; it must not call back into this store.
func (s *AutoStore[V]) Insert(value V, next store.KeyGenerator) (store.Entry[uint64, V], error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key, err := next(s.name)
	if err != nil {
		return store.Entry[uint64, V]{}, store.AsError(err).WithMethod("insert").WithInfo(s.name)
	}
	return s.insertIfAbsent("insert", key, value)
}

// KeyedStore is a store whose keys are supplied by the caller.
type KeyedStore[K, V any] struct {
	*Store[K, V]
}

// NewKeyedStore creates an externally keyed store.
func NewKeyedStore[K, V any](name string, database db.KVDB, keys codec.KeyCodec[K], values codec.Codec[V]) *KeyedStore[K, V] {
	return &KeyedStore[K, V]{Store: New[K, V](name, database, keys, values)}
}

func (s *KeyedStore[K, V]) InsertByKey(key K, value V) (store.Entry[K, V], error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.insertIfAbsent("insert", key, value)
}

// compile time checks
var (
	_ store.AutoKeyed[struct{}]     = (*AutoStore[struct{}])(nil)
	_ store.Keyed[string, struct{}] = (*KeyedStore[string, struct{}])(nil)
)
