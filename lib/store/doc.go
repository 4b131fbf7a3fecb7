// Package store defines the typed storage layer that sits between the raw
// ordered maps of package db and the entity stores used by the RPC server.
//
// The package focuses on:
//   - Capability interfaces (Queryable, Updateable, Insertable, InsertableByKey)
//     and their composites AutoKeyed and Keyed
//   - A closed error model shared by stores, the id allocator and remote clients
//   - Filter, sort and pagination helpers used by every entity type
//   - A registry that binds engine segments to store names
//
// Key Components:
//
//   - Error: Every failure carries one of four kinds (NotFound, Duplicate,
//     Unauthorized, Unexpected) plus optional message, info and method fields.
//     The With* builders return copies, so a sentinel can be enriched safely:
//
//     err := store.NotFound().WithMethod("get").WithInfo("groups")
//     if errors.Is(err, store.ErrNotFound) { ... }
//
//     Errors that are not *Error are treated as Unexpected (see KindOf, AsError).
//
//   - Filters: A Filter is a predicate over (key, value). MatchAll combines a
//     list of filters with logical AND; an empty list matches all entries.
//     ContainsFold and EqualFold implement the lower-case string matching used
//     by the entity filters, DateRange the timestamp windows.
//
//   - Sorters and Pages: A Sorter reorders a slice of entries (SortStable keeps
//     key order for equal fields). Paginate cuts one zero-based page out of the
//     sorted slice and reports totals, the number of pages and whether more
//     pages follow.
//
//   - Registry: Each store lives in its own segment of an engine. The registry
//     opens segments through a db.Factory and refuses to bind a segment twice.
//
// Implementations:
//
//   - lstore: local typed stores over any db.KVDB (auto keyed and keyed)
//   - idalloc: persistent per-kind id counters used as KeyGenerator
//   - cell: a single persisted value, e.g. a configured peer address
//   - codec: key and value encodings (big endian ids, msgpack, json)
package store
