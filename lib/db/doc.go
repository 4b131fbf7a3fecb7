// Package db provides a standardized interface for ordered key-value maps.
// It defines the KVDB interface that all storage engines implement, so the
// typed stores in lib/store can run on any of them without code changes.
//
// Key Components:
//
//   - KVDB Interface: An ordered map over byte keys and byte values. Keys are
//     compared bytewise; typed keys are encoded with an order preserving key
//     codec (see lib/store/codec) so byte order equals key order. Besides the
//     basic operations (Insert, Get, Has, Remove, Len) the interface offers
//     ascending iteration, access to the largest key (Last, used to bootstrap
//     id counters), Clear and snapshot persistence (Save, Load).
//
//   - Segments: A SegmentID names one map inside an engine. Valid ids are
//     0..254, 255 is reserved. A Factory opens the map bound to a segment and
//     returns the same map for the same id.
//
//   - Implementation Identifiers: The Implementation type provides string
//     constants for the engines (maple, badger, dstore).
//
//   - Database Information: DatabaseInfo reports segment, length, engine and
//     whether the engine is durable.
//
// Related Packages:
//
// The engines/maple package provides an in-memory engine on a btree.
// The engines/badgerdb package provides a durable engine on badger, with one
// key prefix per segment. The engines/dstore package replicates a maple map
// per segment with raft (dragonboat).
//
// The util package contains the shared snapshot format and hash helpers.
//
// The testing package (lib/db/testing) provides standardized tests and
// benchmarks for KVDB implementations:
//   - RunKVDBTests: Runs a standardized test suite to validate implementations
//   - RunKVDBBenchmarks: Provides performance benchmarks for comparing implementations
package db
