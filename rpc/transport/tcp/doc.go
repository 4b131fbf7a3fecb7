// Package tcp implements TCP socket based transport for the typedkv RPC
// system. It provides concrete implementations of the base package's connector
// interfaces and applies the socket options of the configuration (no delay,
// keep alive, linger and buffer sizes) to every connection.
//
// See the base package documentation for the framing, connection pooling and
// request correlation shared by all socket transports.
package tcp
