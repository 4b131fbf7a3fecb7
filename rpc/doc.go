// Package rpc provides the remote procedure call layer of typedkv. It lets
// clients use the typed entity stores of a storage peer across network
// boundaries.
//
// The package is organized into several subpackages:
//
//   - common: Core data structures and utilities used across the RPC system,
//     including the Message protocol, peer addresses, configuration structures
//     and logging.
//
//   - transport: Network communication abstractions with pluggable implementations
//     (TCP, Unix sockets, HTTP).
//
//   - serializer: Message serialization with multiple format options (Binary,
//     msgpack, JSON, GOB) for converting between Message objects and byte arrays.
//
//   - client: Typed remote clients for auto-keyed and externally keyed stores.
//     Every failure is reported as a *store.Error.
//
//   - server: The RPC server that routes requests by shard id to generic store
//     adapters.
//
// Request arguments and results are msgpack encoded into the payload of a
// Message, so the serializers and transports never depend on the entity
// types.
package rpc
