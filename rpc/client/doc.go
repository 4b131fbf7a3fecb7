// Package client implements the remote storage clients of typedkv. A client
// offers the operations of a typed store and forwards every call to the
// storage peer via RPC.
//
// The package focuses on:
//   - Typed remote access with the same key, value, filter and sorter types
//     as the store on the peer
//   - Integration with the transport and serialization layers
//   - Mapping of every failure to a *store.Error
//
// Key Components:
//
//   - Client: the operations shared by all stores (size, get, get_many,
//     get_all, get_paginated, find, filter, filter_paginated, update,
//     update_many, remove, remove_many).
//
//   - AutoClient: adds Insert for auto-keyed stores, the peer allocates the id.
//
//   - KeyedClient: adds InsertByKey for externally keyed stores.
//
//   - PeerSource: where the client reads the peer address from on every call,
//     usually a cell.Cell[common.PeerAddress].
//
// Usage Example:
//
//	peer := cell.New[common.PeerAddress]("peer", stateDB, codec.Msgpack[common.PeerAddress]{})
//	_ = peer.Set(common.PeerAddress{Endpoint: "localhost:8080", Shard: 100})
//
//	groups := client.NewGroupClient(peer, tcp.NewTCPClientTransport(config), serializer.NewBinarySerializer())
//	entry, err := groups.Insert(ctx, entities.Group{Name: "chess"})
//	matches, err := groups.Filter(ctx, entities.GroupByName("ali"))
//
// Error Handling:
//
//   - Without a peer address every call fails with NotFound before anything
//     is sent.
//
//   - Transport and decoding failures are Unexpected with the message
//     "failed to call peer" and the peer address and raw error as info.
//
//   - Failures reported by the peer are returned with their original kind,
//     message, info and method.
//
// Requests are not cached, retried or deduplicated. Timeouts are configured
// on the transport.
//
// Thread Safety:
//
//	All clients are safe for concurrent use by multiple goroutines.
package client
