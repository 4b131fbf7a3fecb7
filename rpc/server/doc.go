// Package server implements the RPC server of typedkv. It routes framed
// requests from a transport to the typed entity stores of the process.
//
// Every store is served under a shard id. The shard's adapter knows the
// concrete key, value, filter and sorter types of its store: it decodes the
// msgpack payload of a request into those types, calls the store and
// encodes the result into the response. Store failures travel back as the
// kind, message, info and method fields of the response, so a client can
// rebuild the same *store.Error.
//
// Key Components:
//
//   - IRPCServerAdapter: handles one request against one store.
//
//   - NewAutoStoreAdapter / NewKeyedStoreAdapter: generic adapters for
//     auto-keyed (uint64 ids from the allocator) and externally keyed stores.
//     A request carries a list of filters that are combined with AND.
//
//   - RPCServer: keeps the shards in a lock free map, registers its Handle
//     method at the transport and records per method request counters and
//     durations with VictoriaMetrics.
//
//   - RegisterEntityShards: serves the group, profile and notification
//     stores under the shard ids of the server config.
//
// Usage Example:
//
//	registry := store.NewRegistry(maple.NewFactory(nil))
//	stores := entities.MustOpen(registry, entities.DefaultLayout())
//
//	s := server.NewRPCServer(config, tcp.NewTCPServerTransport(), serializer.NewBinarySerializer())
//	if err := server.RegisterEntityShards(s, stores, config.Shards); err != nil {
//	  log.Fatalf("failed to register shards: %v", err)
//	}
//	if err := s.Serve(ctx); err != nil {
//	  log.Fatalf("server error: %v", err)
//	}
//
// Unknown shards, unknown message types and undecodable payloads are
// answered with an Unexpected error response. The server never drops a
// request without a response.
package server
