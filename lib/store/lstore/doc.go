// Package lstore implements typed stores on top of any db.KVDB.
//
// A Store[K, V] encodes keys with a codec.KeyCodec and values with a
// codec.Codec and implements store.Queryable and store.Updateable. Two keying
// modes are built on it:
//
//   - AutoStore[V]: uint64 keys taken from a store.KeyGenerator on insert,
//     usually idalloc.Allocator.Next. The store name is the allocator kind.
//   - KeyedStore[K, V]: keys supplied by the caller, e.g. a principal name.
//
// Consistency:
//
// Every operation takes the store lock for its whole duration (read lock for
// queries, write lock for updates). Composite operations like UpdateMany,
// RemoveMany or FilterPaginated are therefore atomic with respect to every
// other operation on the same store. UpdateMany checks all keys before the
// first write and leaves the store unchanged if one is missing.
//
// Errors:
//
// All methods return *store.Error values. The error method is the wire name
// of the operation (get, update_many, ...), the info is the store name.
// Backend and codec failures are logged and reported as Unexpected.
//
// Ordering:
//
// GetAll, Filter and Find visit entries in the byte order of the encoded keys.
// For AutoStore this is numeric order, because ids are encoded big endian.
package lstore
