// Package transport defines the network layer of the typedkv RPC system.
// A transport moves opaque byte slices between a client and the shard of a
// storage peer; it knows nothing about messages or stores.
//
// The package focuses on:
//   - Supporting shard-based request routing
//   - Enabling multiple transport implementations (HTTP, TCP, Unix sockets)
//   - Addressing the peer per request, so a client can follow a changed peer
//     address without reconnecting explicitly
//
// Key Components:
//
//   - IRPCClientTransport: Interface for client-side transport implementations that
//     handles connection management and request sending.
//
//   - IRPCServerTransport: Interface for server-side transport implementations that
//     receives requests and routes them to appropriate handlers.
//
//   - ServerHandleFunc: Function type for request handling callbacks.
//
// Timeouts come from the transport configuration and the request context.
// Transports never retry; a failed request is reported to the caller.
package transport
