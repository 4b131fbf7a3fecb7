// Package common provides core data structures and utilities shared across
// the RPC layer of typedkv. It defines the message protocol, the payloads of
// every store operation, peer addresses, configuration structures and the
// logger setup.
//
// Key Components:
//
//   - Message: Core data structure for all RPC communication. The arguments
//     of a request and the result of a response are msgpack encoded into the
//     payload; a failed response carries the kind, message, info and method
//     of a *store.Error.
//
//   - MessageType: Enumeration of the store operations. The String form is
//     the wire method name (size, get, get_many, ... remove_many).
//
//   - KeyArgs, KeysArgs, PageArgs, FilterArgs, EntryArgs, ...: Generic payloads
//     shared by the clients and the server adapters.
//
//   - PeerAddress: Endpoint and shard id of a store, written as endpoint#shard.
//
//   - ServerConfig: Configuration of a storage peer, including the served
//     shards, the storage engine, RAFT parameters and the transport.
//     Provides utilities for converting to Dragonboat-specific configurations.
//
//   - ClientConfig: Configuration of the CLI client, controlling connection
//     parameters, timeouts and the local state directory.
//
//   - Logger: Custom logging implementation that integrates with Dragonboat's
//     logging system while providing consistent formatting across the application.
package common
