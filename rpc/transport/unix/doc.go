// Package unix implements the typedkv RPC transport over Unix domain sockets,
// for clients and storage peers on the same machine.
//
// This package extends the base transport layer with Unix socket-specific
// connectors while inheriting framing, connection pooling and request
// correlation from the base package. The server removes a stale socket file
// before it listens.
package unix
