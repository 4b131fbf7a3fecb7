package db

import (
	"fmt"
	"io"
)

// --------------------------------------------------------------------------
// Helper Types
// --------------------------------------------------------------------------

type Implementation string

const (
	ImplMaple  Implementation = "maple"
	ImplBadger Implementation = "badger"
	ImplDStore Implementation = "dstore"
)

// SegmentID identifies one ordered map inside an engine.
// Valid ids are 0..MaxSegmentID; 255 is reserved.
type SegmentID uint8

const MaxSegmentID SegmentID = 254

// Validate returns an error if the segment id is out of range
func (id SegmentID) Validate() error {
	if id > MaxSegmentID {
		return fmt.Errorf("segment id %d out of range (max %d)", id, MaxSegmentID)
	}
	return nil
}

type DatabaseInfo struct {
	Segment SegmentID      `json:"segment"`
	Len     uint64         `json:"len"`
	DbType  Implementation `json:"db_type"`
	Durable bool           `json:"durable"`
}

// Factory opens the map bound to a segment. Opening the same segment
// twice must return the same map (same identity, same contents).
type Factory func(segment SegmentID) (KVDB, error)

// --------------------------------------------------------------------------
// Database Interface
// --------------------------------------------------------------------------

// KVDB defines an ordered key-value map over byte keys and values.
// Keys are ordered bytewise (bytes.Compare). Implementations must be safe
// for concurrent use; every single call is atomic, but no guarantee is
// given across calls.
type KVDB interface {

	// --------------------------------------------------------------------------
	// Write Operations
	// --------------------------------------------------------------------------

	// Insert stores value under key and returns the previous value, if any.
	Insert(key, value []byte) (prev []byte, replaced bool, err error)

	// Remove deletes key and returns the removed value, if any.
	Remove(key []byte) (prev []byte, removed bool, err error)

	// Clear removes all entries. The map keeps its segment identity.
	Clear() (err error)

	// --------------------------------------------------------------------------
	// Conditional Write Operations
	// --------------------------------------------------------------------------

	// Each of these checks and writes in one atomic step. Replicated engines
	// apply them as a single log entry, so the check holds on every replica.

	// InsertIfAbsent stores value under key only if key is absent.
	// If the key exists, nothing is written and its current value is returned.
	InsertIfAbsent(key, value []byte) (existing []byte, inserted bool, err error)

	// Replace stores value under key only if key exists and returns the previous value.
	Replace(key, value []byte) (prev []byte, replaced bool, err error)

	// ReplaceAll replaces the values of all keys or of none. missing is the
	// index of the first absent key, or -1 if every key was replaced.
	ReplaceAll(keys, values [][]byte) (missing int, err error)

	// CompareAndSwap stores value under key if the current value equals
	// expected. A nil expected requires the key to be absent.
	CompareAndSwap(key, expected, value []byte) (swapped bool, err error)

	// --------------------------------------------------------------------------
	// Query Operations
	// --------------------------------------------------------------------------

	// Len returns the number of entries.
	Len() (n uint64, err error)

	// Get retrieves the value for an exact key.
	// The boolean return value indicates whether a value for the key was found.
	Get(key []byte) (value []byte, loaded bool, err error)

	// Has checks whether a key exists.
	Has(key []byte) (loaded bool, err error)

	// Iterate calls fn for every entry in ascending key order until fn returns false.
	// The entries seen by one call form a consistent snapshot. Keys and values
	// passed to fn are owned by the caller.
	Iterate(fn func(key, value []byte) bool) (err error)

	// Last returns the entry with the largest key.
	Last() (key, value []byte, ok bool, err error)

	// --------------------------------------------------------------------------
	// Persistence Operations
	// --------------------------------------------------------------------------

	// Save writes all entries to the provided io.Writer.
	Save(w io.Writer) (err error)

	// Load replaces the contents with the data provided by an io.Reader.
	Load(r io.Reader) (err error)

	// GetInfo returns information about the database.
	GetInfo() (info DatabaseInfo)

	// Close releases the map. Engines that share one backing store between
	// segments keep it open until the engine itself is closed.
	Close() (err error)
}
