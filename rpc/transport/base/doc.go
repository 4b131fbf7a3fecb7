// Package base provides the socket transport shared by the tcp and unix
// packages. It implements RPC communication independent of the network
// protocol and is extended with protocol-specific connectors.
//
// The package focuses on:
//   - Protocol-agnostic client and server transport implementations
//   - Frame-based message protocol with shardID and requestID tracking
//   - Lazily dialed connection pools per endpoint
//   - Response correlation through a pending request map per connection
//
// Key Components:
//
//   - IClientConnector/IServerConnector: Interfaces for protocol-specific operations
//     that allow extending the base transport with different network protocols.
//
//   - clientTransport: Keeps one pool of ConnectionsPerEndpoint connections for
//     every endpoint it was asked to reach. Connections are dialed on first use and
//     replaced on the next request once they broke. Requests are never retried.
//
//   - serverTransport: Accepts connections and runs the handler for every frame in
//     a bounded number of workers per connection. Responses carry the requestID of
//     their request and may be written out of order.
//
// Frame format (all integers big endian):
//
//	shardID (8) | requestID (8) | length (4) | payload (length)
//
// Performance Optimizations:
//
//   - Buffer Pooling: The server uses a sync.Pool to reuse read buffers.
//
//   - Frame Batching: Frames are written with net.Buffers, combining header and
//     payload into a single write operation.
//
// Thread Safety:
//
//	All public methods are thread-safe. Writes to a connection are serialized by
//	a mutex, reads happen in one goroutine per connection.
package base
