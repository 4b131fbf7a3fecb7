// Package util provides helpers shared by the db.KVDB engines.
//
// The package contains:
//   - snapshot: the engine independent Save/Load stream format, so a snapshot
//     written by one engine (e.g. a dstore raft snapshot backed by maple) can be
//     loaded into any other engine
//   - functions: hash functions, used to derive raft replica ids from names,
//     and the expected-value check shared by the CompareAndSwap implementations
package util
