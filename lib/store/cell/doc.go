// Package cell provides a persistent one-slot store. A Cell holds at most one
// value in its own segment; Get returns NotFound until the first Set.
//
// The remote clients read the peer address from a cell before every call,
// and the cli keeps the configured peer in a cell backed by badger.
package cell
