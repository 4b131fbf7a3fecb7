package cell

import (
	"sync"

	"github.com/ValentinKolb/typedkv/lib/db"
	"github.com/ValentinKolb/typedkv/lib/store"
	"github.com/ValentinKolb/typedkv/lib/store/codec"
)

// slot is the only key a cell ever writes
var slot = []byte{0}

// Cell is a persistent one-slot store for a single value of type T.
type Cell[T any] struct {
	mu    sync.RWMutex
	name  string
	db    db.KVDB
	codec codec.Codec[T]
}

// New creates a cell named name on top of database.
func New[T any](name string, database db.KVDB, c codec.Codec[T]) *Cell[T] {
	return &Cell[T]{
		name:  name,
		db:    database,
		codec: c,
	}
}

// Get returns the value or NotFound if the cell was never set.
func (c *Cell[T]) Get() (T, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var zero T
	raw, ok, err := c.db.Get(slot)
	if err != nil {
		return zero, store.Unexpected().WithMethod("get").WithInfo(c.name).WithMessage(err.Error())
	}
	if !ok {
		return zero, store.NotFound().WithMethod("get").WithInfo(c.name).WithMessage("cell is not set")
	}
	value, err := c.codec.Unmarshal(raw)
	if err != nil {
		return zero, store.Unexpected().WithMethod("get").WithInfo(c.name).WithMessage(err.Error())
	}
	return value, nil
}

// Set replaces the value of the cell.
func (c *Cell[T]) Set(value T) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	raw, err := c.codec.Marshal(value)
	if err != nil {
		return store.Unexpected().WithMethod("set").WithInfo(c.name).WithMessage(err.Error())
	}
	if _, _, err := c.db.Insert(slot, raw); err != nil {
		return store.Unexpected().WithMethod("set").WithInfo(c.name).WithMessage(err.Error())
	}
	return nil
}

// Clear unsets the cell.
func (c *Cell[T]) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, _, err := c.db.Remove(slot); err != nil {
		return store.Unexpected().WithMethod("clear").WithInfo(c.name).WithMessage(err.Error())
	}
	return nil
}
