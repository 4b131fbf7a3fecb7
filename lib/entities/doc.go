// Package entities contains the entity types stored by typedkv together with
// their filters and sorters.
//
// Every entity is a plain struct that can be encoded with msgpack. Timestamps
// are unix nanoseconds (uint64). Filters are tagged structs: Kind selects the
// predicate and only the fields belonging to that kind are read. This keeps
// filters serializable, so a client can send them to the peer that owns the
// store. A list of filters is combined with store.MatchAll (logical AND).
//
// Entities:
//
//   - Group: auto keyed (uint64). Filters by name (case-insensitive substring),
//     owner, ids, tag, update and creation time. Sorts by name, creation time,
//     update time and member count.
//   - Profile: keyed by principal. Filters by username and display name
//     (substring), email, city, country, skill (case-insensitive equality) and
//     time ranges. Sorts by creation or update time.
//   - Notification: auto keyed. Filters by ids, type, actionable flag, the
//     principal that processed it and sender. Sorts by creation or update time.
//
// The zero value of every sorter orders by creation time, ascending.
//
// Open binds the stores of a Layout in a store.Registry:
//
//	registry := store.NewRegistry(maple.NewFactory(nil))
//	stores := entities.MustOpen(registry, entities.DefaultLayout())
//	entry, err := stores.Groups.Insert(group, stores.IDs.Next)
package entities
