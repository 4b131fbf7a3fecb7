package maple

import (
	"bytes"
	"fmt"
	"io"
	"sync"

	"github.com/ValentinKolb/typedkv/lib/db"
	"github.com/ValentinKolb/typedkv/lib/db/util"
	"github.com/google/btree"
	"github.com/puzpuzpuz/xsync/v3"
)

// --------------------------------------------------------------------------
// Constants
// --------------------------------------------------------------------------

const defaultDegree = 32 // btree node degree

// --------------------------------------------------------------------------
// Core Maple database structure
// --------------------------------------------------------------------------

type item struct {
	key   []byte
	value []byte
}

func lessItem(a, b item) bool {
	return bytes.Compare(a.key, b.key) < 0
}

// mapleImpl is an in-memory ordered map backed by a btree.
// Reads take the read lock, writes the write lock, so every call is atomic.
type mapleImpl struct {
	mu      sync.RWMutex
	tree    *btree.BTreeG[item]
	degree  int
	segment db.SegmentID
}

// DBOptions configures the mapleImpl behavior during initialization
type DBOptions struct {
	Degree int // btree degree (0 = default)
}

// DefaultOptions returns the default mapleImpl options
func DefaultOptions() *DBOptions {
	return &DBOptions{
		Degree: defaultDegree,
	}
}

// --------------------------------------------------------------------------
// Initialization and Setup
// --------------------------------------------------------------------------

// NewMapleDB creates a new standalone MapleDB instance with the specified options (optional).
func NewMapleDB(opts *DBOptions) db.KVDB {
	return newMaple(0, opts)
}

func newMaple(segment db.SegmentID, opts *DBOptions) *mapleImpl {
	if opts == nil {
		opts = DefaultOptions()
	}
	degree := opts.Degree
	if degree < 2 {
		degree = defaultDegree
	}
	return &mapleImpl{
		tree:    btree.NewG[item](degree, lessItem),
		degree:  degree,
		segment: segment,
	}
}

// NewFactory returns a db.Factory whose maps live in memory for the lifetime
// of the factory. Opening the same segment twice returns the same map.
func NewFactory(opts *DBOptions) db.Factory {
	segments := xsync.NewMapOf[db.SegmentID, *mapleImpl]()
	return func(segment db.SegmentID) (db.KVDB, error) {
		if err := segment.Validate(); err != nil {
			return nil, err
		}
		m, _ := segments.LoadOrCompute(segment, func() *mapleImpl {
			return newMaple(segment, opts)
		})
		return m, nil
	}
}

// --------------------------------------------------------------------------
// Interface Methods - Write Operations (docu see db.KVDB)
// --------------------------------------------------------------------------

func (maple *mapleImpl) Insert(key, value []byte) ([]byte, bool, error) {
	maple.mu.Lock()
	defer maple.mu.Unlock()

	prev, replaced := maple.tree.ReplaceOrInsert(item{
		key:   util.CopyBytes(key),
		value: util.CopyBytes(value),
	})
	if !replaced {
		return nil, false, nil
	}
	return prev.value, true, nil
}

func (maple *mapleImpl) Remove(key []byte) ([]byte, bool, error) {
	maple.mu.Lock()
	defer maple.mu.Unlock()

	prev, removed := maple.tree.Delete(item{key: key})
	if !removed {
		return nil, false, nil
	}
	return prev.value, true, nil
}

func (maple *mapleImpl) Clear() error {
	maple.mu.Lock()
	defer maple.mu.Unlock()

	maple.tree.Clear(false)
	return nil
}

// --------------------------------------------------------------------------
// Interface Methods - Conditional Write Operations (docu see db.KVDB)
// --------------------------------------------------------------------------

func (maple *mapleImpl) InsertIfAbsent(key, value []byte) ([]byte, bool, error) {
	maple.mu.Lock()
	defer maple.mu.Unlock()

	if it, ok := maple.tree.Get(item{key: key}); ok {
		return util.CopyBytes(it.value), false, nil
	}
	maple.tree.ReplaceOrInsert(item{key: util.CopyBytes(key), value: util.CopyBytes(value)})
	return nil, true, nil
}

func (maple *mapleImpl) Replace(key, value []byte) ([]byte, bool, error) {
	maple.mu.Lock()
	defer maple.mu.Unlock()

	if !maple.tree.Has(item{key: key}) {
		return nil, false, nil
	}
	prev, _ := maple.tree.ReplaceOrInsert(item{key: util.CopyBytes(key), value: util.CopyBytes(value)})
	return prev.value, true, nil
}

func (maple *mapleImpl) ReplaceAll(keys, values [][]byte) (int, error) {
	if len(keys) != len(values) {
		return -1, fmt.Errorf("maple: %d keys but %d values", len(keys), len(values))
	}

	maple.mu.Lock()
	defer maple.mu.Unlock()

	for i, key := range keys {
		if !maple.tree.Has(item{key: key}) {
			return i, nil
		}
	}
	for i, key := range keys {
		maple.tree.ReplaceOrInsert(item{key: util.CopyBytes(key), value: util.CopyBytes(values[i])})
	}
	return -1, nil
}

func (maple *mapleImpl) CompareAndSwap(key, expected, value []byte) (bool, error) {
	maple.mu.Lock()
	defer maple.mu.Unlock()

	it, ok := maple.tree.Get(item{key: key})
	if !util.Matches(it.value, ok, expected) {
		return false, nil
	}
	maple.tree.ReplaceOrInsert(item{key: util.CopyBytes(key), value: util.CopyBytes(value)})
	return true, nil
}

// --------------------------------------------------------------------------
// Interface Methods - Query Operations (docu see db.KVDB)
// --------------------------------------------------------------------------

func (maple *mapleImpl) Len() (uint64, error) {
	maple.mu.RLock()
	defer maple.mu.RUnlock()

	return uint64(maple.tree.Len()), nil
}

func (maple *mapleImpl) Get(key []byte) ([]byte, bool, error) {
	maple.mu.RLock()
	defer maple.mu.RUnlock()

	it, ok := maple.tree.Get(item{key: key})
	if !ok {
		return nil, false, nil
	}
	return util.CopyBytes(it.value), true, nil
}

func (maple *mapleImpl) Has(key []byte) (bool, error) {
	maple.mu.RLock()
	defer maple.mu.RUnlock()

	return maple.tree.Has(item{key: key}), nil
}

func (maple *mapleImpl) Iterate(fn func(key, value []byte) bool) error {
	maple.mu.RLock()
	defer maple.mu.RUnlock()

	maple.tree.Ascend(func(it item) bool {
		return fn(util.CopyBytes(it.key), util.CopyBytes(it.value))
	})
	return nil
}

func (maple *mapleImpl) Last() ([]byte, []byte, bool, error) {
	maple.mu.RLock()
	defer maple.mu.RUnlock()

	it, ok := maple.tree.Max()
	if !ok {
		return nil, nil, false, nil
	}
	return util.CopyBytes(it.key), util.CopyBytes(it.value), true, nil
}

// --------------------------------------------------------------------------
// Interface Methods - Persistence Operations (docu see db.KVDB)
// --------------------------------------------------------------------------

// Save writes a consistent snapshot of the map. The read lock is held for
// the whole write, so concurrent writers wait until the snapshot is done.
func (maple *mapleImpl) Save(w io.Writer) error {
	maple.mu.RLock()
	defer maple.mu.RUnlock()

	return util.WriteSnapshot(w, uint64(maple.tree.Len()), func(emit func(key, value []byte) error) error {
		var err error
		maple.tree.Ascend(func(it item) bool {
			err = emit(it.key, it.value)
			return err == nil
		})
		return err
	})
}

// Load replaces the contents of the map. On error the previous contents are kept.
func (maple *mapleImpl) Load(r io.Reader) error {
	tree := btree.NewG[item](maple.degree, lessItem)

	err := util.ReadSnapshot(r, func(key, value []byte) error {
		tree.ReplaceOrInsert(item{key: key, value: value})
		return nil
	})
	if err != nil {
		return fmt.Errorf("maple: failed to load snapshot: %w", err)
	}

	maple.mu.Lock()
	maple.tree = tree
	maple.mu.Unlock()
	return nil
}

func (maple *mapleImpl) GetInfo() db.DatabaseInfo {
	maple.mu.RLock()
	defer maple.mu.RUnlock()

	return db.DatabaseInfo{
		Segment: maple.segment,
		Len:     uint64(maple.tree.Len()),
		DbType:  db.ImplMaple,
		Durable: false,
	}
}

// Close is a no-op; the map stays usable so a factory can hand it out again.
func (maple *mapleImpl) Close() error {
	return nil
}
