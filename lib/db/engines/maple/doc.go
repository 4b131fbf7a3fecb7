// Package maple implements an in-memory ordered key-value map (KVDB) on top of
// a google/btree. It provides a complete implementation of the db.KVDB
// interface with a focus on thread safety and predictable ordering.
//
// Key Components:
//
//   - mapleImpl: The database structure implementing db.KVDB. It holds one
//     btree of (key, value) items ordered bytewise by key and guards it with a
//     sync.RWMutex. Reads (Get, Has, Len, Iterate, Last) share the read lock,
//     writes (Insert, Remove, Clear, Load) take the write lock, so every call
//     is atomic.
//
//   - Factory: NewFactory returns a db.Factory that keeps one map per segment
//     in an xsync.MapOf. Opening a segment twice returns the same map, which is
//     what the typed stores rely on when several of them are bound at start-up.
//
// Copy Semantics:
//
//   - Insert copies key and value before storing them, and all read methods
//     return copies. Callers may reuse or mutate their buffers freely.
//
// Persistence:
//
//   - Save and Load use the shared snapshot format from lib/db/util. Save holds
//     the read lock for the whole write, so the snapshot is a consistent cut.
//     Load builds a new tree first and swaps it in only if the whole stream was
//     read, so a broken snapshot leaves the map untouched.
//
//   - The maple engine is ephemeral. Data outlives a process only when the
//     caller saves it, or when maple is used as the state machine of the
//     dstore engine, where raft snapshots go through Save/Load.
package maple
