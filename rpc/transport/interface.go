package transport

import (
	"context"

	"github.com/ValentinKolb/typedkv/rpc/common"
)

// --------------------------------------------------------------------------
// Server Transport
// --------------------------------------------------------------------------

// ServerHandleFunc is a function type that handles incoming requests
// This function is called by a server transport layer when a request is received
// It takes a shardId and a request as parameters and returns a response
type ServerHandleFunc func(shardId uint64, req []byte) (resp []byte)

// IRPCServerTransport is the interface for the RPC transport layer
type IRPCServerTransport interface {
	// RegisterHandler registers a handler for the transport layer
	// This handler should be called when a request is received
	// The transport layer is responsible for routing the request to the appropriate shard
	RegisterHandler(handler ServerHandleFunc)
	// Listen starts the transport layer and serves requests until ctx is done.
	// It returns nil after a shutdown through ctx.
	Listen(ctx context.Context, config common.ServerConfig) error
}

// --------------------------------------------------------------------------
// Client Transport
// --------------------------------------------------------------------------

// IRPCClientTransport is the interface for the RPC client transport.
// Connections are opened lazily per endpoint. A failed request is not retried.
type IRPCClientTransport interface {
	// Send sends a request to the shard on endpoint and returns the response
	Send(ctx context.Context, endpoint string, shardId uint64, req []byte) (resp []byte, err error)
	// Close closes all connections
	Close() error
}
