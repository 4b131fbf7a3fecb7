// Package dstore implements a replicated db.KVDB engine using the Dragonboat
// RAFT consensus library. Every segment is its own raft shard whose state
// machine holds an in-memory maple map, so a typed store bound to a dstore
// segment is linearizable across all replicas.
//
// Architecture:
//
//   - Engine: Owns the NodeHost and starts one concurrent replica per segment
//     on first use. The raft shard id is the segment id plus a configurable
//     offset (default 1).
//
//   - Segment map (storeImpl): Implements db.KVDB. Writes are serialized into a
//     Command and proposed with SyncPropose; the previous value (Insert, Remove)
//     travels back in the sm.Result. Reads use SyncRead, GetInfo uses StaleRead.
//
//   - State Machine: A Dragonboat IConcurrentStateMachine holding a maple map.
//     Update applies commands, Lookup answers queries.
//
//   - Communication Protocol: Defined in the internal package.
//
// Iteration:
//
//	Iterate and Save fetch all entries of the shard in one linearizable read and
//	work on that copy, so the callback never runs inside the state machine.
//
// Snapshotting and Recovery:
//
//	PrepareSnapshot copies the map while dragonboat holds back updates, so a
//	snapshot is a consistent cut of the applied log. SaveSnapshot writes that
//	copy, RecoverFromSnapshot loads it into a fresh map. Load on a segment map
//	proposes the whole snapshot as one command so all replicas switch at the
//	same index.
//
// Error Handling and Retries:
//
//	ErrSystemBusy and ErrShardNotReady (e.g. no leader yet) are retried after
//	a short pause, up to Options.Retries attempts. Every attempt is bounded by
//	Options.Timeout. Other errors are returned wrapped.
//
// Usage:
//
//	nh, err := dragonboat.NewNodeHost(nodeHostConfig)
//	if err != nil { ... }
//
//	engine := dstore.NewEngine(nh, dstore.Options{
//		InitialMembers: members,
//		RaftConfig:     serverConfig.ToDragonboatConfig,
//		Timeout:        5 * time.Second,
//	})
//
//	groups, err := engine.Segment(100)
package dstore
