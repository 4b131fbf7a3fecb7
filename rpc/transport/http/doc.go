// Package http implements an HTTP-based transport layer for the typedkv RPC
// system.
//
// Key Components:
//
//   - httpClientTransport: Implements IRPCClientTransport. Every request is a
//     POST of the serialized message to <endpoint>/<shardId>; the endpoint is
//     chosen per request. Idle connections are pooled by net/http.
//
//   - httpServerTransport: Implements IRPCServerTransport. Routes POST
//     /{shardId} to the registered handler and serves the VictoriaMetrics
//     registry in prometheus format on GET /metrics.
//
// Non 200 responses are transport errors. Store failures travel inside the
// serialized message with status 200.
//
// Thread Safety:
//
//	Both transports are safe for concurrent use.
package http
