package badgerdb

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/ValentinKolb/typedkv/lib/db"
	"github.com/ValentinKolb/typedkv/lib/db/util"
	"github.com/dgraph-io/badger/v3"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/puzpuzpuz/xsync/v3"
)

var log = logger.GetLogger("db")

// --------------------------------------------------------------------------
// Engine
// --------------------------------------------------------------------------

// Options configures the badger engine
type Options struct {
	Dir        string // directory of the badger database (ignored if InMemory)
	InMemory   bool   // keep everything in memory, used by tests
	SyncWrites bool   // fsync after every write
}

// Engine owns one badger database. Every segment is a one-byte key prefix
// inside it, so all segments share one directory and one value log.
type Engine struct {
	bdb      *badger.DB
	segments *xsync.MapOf[db.SegmentID, *segmentImpl]
}

// Open opens (or creates) the badger database described by opts.
func Open(opts Options) (*Engine, error) {
	bopts := badger.DefaultOptions(opts.Dir).
		WithInMemory(opts.InMemory).
		WithSyncWrites(opts.SyncWrites).
		WithLogger(log)
	if opts.InMemory {
		bopts = bopts.WithDir("").WithValueDir("")
	}

	bdb, err := badger.Open(bopts)
	if err != nil {
		return nil, fmt.Errorf("badger: failed to open %q: %w", opts.Dir, err)
	}

	return &Engine{
		bdb:      bdb,
		segments: xsync.NewMapOf[db.SegmentID, *segmentImpl](),
	}, nil
}

// Segment opens the map bound to segment. It has the signature of db.Factory.
func (e *Engine) Segment(segment db.SegmentID) (db.KVDB, error) {
	if err := segment.Validate(); err != nil {
		return nil, err
	}
	s, _ := e.segments.LoadOrCompute(segment, func() *segmentImpl {
		return &segmentImpl{
			bdb:    e.bdb,
			id:     segment,
			prefix: []byte{byte(segment)},
		}
	})
	return s, nil
}

// Close closes the badger database. All segments become unusable.
func (e *Engine) Close() error {
	return e.bdb.Close()
}

// --------------------------------------------------------------------------
// Segment
// --------------------------------------------------------------------------

// segmentImpl implements db.KVDB for one key prefix.
// Writes are serialized by mu, so read-modify-write transactions never
// conflict; reads run in badger read transactions and see a snapshot.
type segmentImpl struct {
	mu     sync.Mutex
	bdb    *badger.DB
	id     db.SegmentID
	prefix []byte
}

func (s *segmentImpl) key(k []byte) []byte {
	out := make([]byte, 0, len(s.prefix)+len(k))
	out = append(out, s.prefix...)
	return append(out, k...)
}

// upper is the smallest key of the next segment
func (s *segmentImpl) upper() []byte {
	return []byte{s.prefix[0] + 1}
}

func getValue(txn *badger.Txn, key []byte) ([]byte, bool, error) {
	item, err := txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	value, err := item.ValueCopy(nil)
	if err != nil {
		return nil, false, err
	}
	return value, true, nil
}

// --------------------------------------------------------------------------
// Interface Methods - Write Operations (docu see db.KVDB)
// --------------------------------------------------------------------------

func (s *segmentImpl) Insert(key, value []byte) (prev []byte, replaced bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := s.key(key)
	err = s.bdb.Update(func(txn *badger.Txn) error {
		prev, replaced, err = getValue(txn, k)
		if err != nil {
			return err
		}
		return txn.Set(k, util.CopyBytes(value))
	})
	if err != nil {
		return nil, false, fmt.Errorf("badger: insert failed: %w", err)
	}
	return prev, replaced, nil
}

func (s *segmentImpl) Remove(key []byte) (prev []byte, removed bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := s.key(key)
	err = s.bdb.Update(func(txn *badger.Txn) error {
		prev, removed, err = getValue(txn, k)
		if err != nil || !removed {
			return err
		}
		return txn.Delete(k)
	})
	if err != nil {
		return nil, false, fmt.Errorf("badger: remove failed: %w", err)
	}
	return prev, removed, nil
}

func (s *segmentImpl) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.bdb.DropPrefix(s.prefix); err != nil {
		return fmt.Errorf("badger: clear of segment %d failed: %w", s.id, err)
	}
	return nil
}

// --------------------------------------------------------------------------
// Interface Methods - Conditional Write Operations (docu see db.KVDB)
// --------------------------------------------------------------------------

func (s *segmentImpl) InsertIfAbsent(key, value []byte) (existing []byte, inserted bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := s.key(key)
	err = s.bdb.Update(func(txn *badger.Txn) error {
		var found bool
		existing, found, err = getValue(txn, k)
		if err != nil || found {
			return err
		}
		inserted = true
		return txn.Set(k, util.CopyBytes(value))
	})
	if err != nil {
		return nil, false, fmt.Errorf("badger: insert if absent failed: %w", err)
	}
	return existing, inserted, nil
}

func (s *segmentImpl) Replace(key, value []byte) (prev []byte, replaced bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := s.key(key)
	err = s.bdb.Update(func(txn *badger.Txn) error {
		prev, replaced, err = getValue(txn, k)
		if err != nil || !replaced {
			return err
		}
		return txn.Set(k, util.CopyBytes(value))
	})
	if err != nil {
		return nil, false, fmt.Errorf("badger: replace failed: %w", err)
	}
	return prev, replaced, nil
}

// ReplaceAll checks and writes in one transaction, a missing key discards it.
func (s *segmentImpl) ReplaceAll(keys, values [][]byte) (missing int, err error) {
	if len(keys) != len(values) {
		return -1, fmt.Errorf("badger: %d keys but %d values", len(keys), len(values))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	missing = -1
	err = s.bdb.Update(func(txn *badger.Txn) error {
		for i, key := range keys {
			_, err := txn.Get(s.key(key))
			if errors.Is(err, badger.ErrKeyNotFound) {
				missing = i
				return nil
			}
			if err != nil {
				return err
			}
		}
		for i, key := range keys {
			if err := txn.Set(s.key(key), util.CopyBytes(values[i])); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return -1, fmt.Errorf("badger: replace all failed: %w", err)
	}
	return missing, nil
}

func (s *segmentImpl) CompareAndSwap(key, expected, value []byte) (swapped bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := s.key(key)
	err = s.bdb.Update(func(txn *badger.Txn) error {
		current, present, err := getValue(txn, k)
		if err != nil || !util.Matches(current, present, expected) {
			return err
		}
		swapped = true
		return txn.Set(k, util.CopyBytes(value))
	})
	if err != nil {
		return false, fmt.Errorf("badger: compare and swap failed: %w", err)
	}
	return swapped, nil
}

// --------------------------------------------------------------------------
// Interface Methods - Query Operations (docu see db.KVDB)
// --------------------------------------------------------------------------

func (s *segmentImpl) Len() (n uint64, err error) {
	err = s.bdb.View(func(txn *badger.Txn) error {
		n = s.count(txn)
		return nil
	})
	return n, err
}

func (s *segmentImpl) count(txn *badger.Txn) uint64 {
	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues = false
	opts.Prefix = s.prefix

	it := txn.NewIterator(opts)
	defer it.Close()

	var n uint64
	for it.Seek(s.prefix); it.ValidForPrefix(s.prefix); it.Next() {
		n++
	}
	return n
}

func (s *segmentImpl) Get(key []byte) (value []byte, loaded bool, err error) {
	err = s.bdb.View(func(txn *badger.Txn) error {
		value, loaded, err = getValue(txn, s.key(key))
		return err
	})
	if err != nil {
		return nil, false, fmt.Errorf("badger: get failed: %w", err)
	}
	return value, loaded, nil
}

func (s *segmentImpl) Has(key []byte) (loaded bool, err error) {
	err = s.bdb.View(func(txn *badger.Txn) error {
		_, err := txn.Get(s.key(key))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		loaded = err == nil
		return err
	})
	return loaded, err
}

func (s *segmentImpl) Iterate(fn func(key, value []byte) bool) error {
	return s.bdb.View(func(txn *badger.Txn) error {
		return s.iterate(txn, func(key, value []byte) error {
			if !fn(key, value) {
				return errStop
			}
			return nil
		})
	})
}

var errStop = errors.New("stop iteration")

// iterate walks the segment in ascending order and strips the prefix.
// Returning errStop from fn ends the walk without an error.
func (s *segmentImpl) iterate(txn *badger.Txn, fn func(key, value []byte) error) error {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = s.prefix

	it := txn.NewIterator(opts)
	defer it.Close()

	for it.Seek(s.prefix); it.ValidForPrefix(s.prefix); it.Next() {
		item := it.Item()
		value, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		key := item.KeyCopy(nil)[len(s.prefix):]
		if err := fn(key, value); err != nil {
			if errors.Is(err, errStop) {
				return nil
			}
			return err
		}
	}
	return nil
}

func (s *segmentImpl) Last() (key, value []byte, ok bool, err error) {
	err = s.bdb.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true

		it := txn.NewIterator(opts)
		defer it.Close()

		// a reverse seek lands on the largest key <= upper; upper itself
		// belongs to the next segment and is skipped
		upper := s.upper()
		it.Seek(upper)
		if it.Valid() && bytes.Equal(it.Item().Key(), upper) {
			it.Next()
		}
		if !it.ValidForPrefix(s.prefix) {
			return nil
		}

		item := it.Item()
		v, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		key = item.KeyCopy(nil)[len(s.prefix):]
		value = v
		ok = true
		return nil
	})
	if err != nil {
		return nil, nil, false, fmt.Errorf("badger: last failed: %w", err)
	}
	return key, value, ok, nil
}

// --------------------------------------------------------------------------
// Interface Methods - Persistence Operations (docu see db.KVDB)
// --------------------------------------------------------------------------

// Save writes the segment from a single read transaction, so the snapshot
// is a consistent cut.
func (s *segmentImpl) Save(w io.Writer) error {
	return s.bdb.View(func(txn *badger.Txn) error {
		return util.WriteSnapshot(w, s.count(txn), func(emit func(key, value []byte) error) error {
			return s.iterate(txn, emit)
		})
	})
}

// Load reads the whole snapshot before touching the segment, so a broken
// stream leaves the current contents in place.
func (s *segmentImpl) Load(r io.Reader) error {
	type entry struct{ key, value []byte }
	var entries []entry

	err := util.ReadSnapshot(r, func(key, value []byte) error {
		entries = append(entries, entry{s.key(key), value})
		return nil
	})
	if err != nil {
		return fmt.Errorf("badger: failed to load snapshot: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.bdb.DropPrefix(s.prefix); err != nil {
		return fmt.Errorf("badger: failed to drop segment %d: %w", s.id, err)
	}

	wb := s.bdb.NewWriteBatch()
	for _, e := range entries {
		if err := wb.Set(e.key, e.value); err != nil {
			wb.Cancel()
			return fmt.Errorf("badger: failed to write snapshot entry: %w", err)
		}
	}
	return wb.Flush()
}

func (s *segmentImpl) GetInfo() db.DatabaseInfo {
	n, err := s.Len()
	if err != nil {
		log.Warningf("badger: failed to count segment %d: %v", s.id, err)
	}
	return db.DatabaseInfo{
		Segment: s.id,
		Len:     n,
		DbType:  db.ImplBadger,
		Durable: true,
	}
}

// Close is a no-op. The badger database is closed by Engine.Close.
func (s *segmentImpl) Close() error {
	return nil
}
