// Package idalloc implements the id allocator for auto-keyed stores.
//
// Every kind (usually the store name) has its own counter. Next reads the
// last issued id, adds one and commits it with CompareAndSwap on the counter
// map. Goroutines of one process are serialized by a mutex; allocators of
// different processes sharing a replicated counter map retry when the swap
// fails. Ids are unique and strictly increasing in both cases. Counters live
// in their own segment and survive a Clear of the data store, which prevents
// key reuse after a wipe.
//
// Bootstrap: when a kind has no counter yet (e.g. data written before the
// allocator existed), the largest key of the kind's registered data map is
// used as the last issued id. An empty map yields 1 as first id.
//
// Overflow: the allocator never wraps. After MaxUint64 was issued, Next
// returns an Unexpected error.
//
// Usage:
//
//	alloc := idalloc.New(registry.MustBind(1, "id_allocator"))
//	groupsDB := registry.MustBind(100, "groups")
//	alloc.Register("groups", groupsDB)
//
//	groups := lstore.NewAutoStore[Group]("groups", groupsDB, codec.Msgpack[Group]{})
//	entry, err := groups.Insert(group, alloc.Next)
package idalloc
