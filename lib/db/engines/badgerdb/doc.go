// Package badgerdb implements a durable db.KVDB engine on top of badger (v3).
//
// One Engine owns one badger directory. Every segment is stored under a
// one-byte key prefix (the segment id), so all typed stores of a process
// share one database and one value log:
//
//	[segment id][encoded key] -> value
//
// Ordering: badger keeps keys sorted bytewise, which matches the KVDB
// contract once the prefix is stripped. Last uses a reverse iterator seeded
// with the first key of the next segment.
//
// Concurrency: writes on a segment are serialized by a mutex, so the
// read-modify-write transactions of Insert and Remove never conflict. Reads
// run in read-only transactions and see a consistent snapshot.
//
// Clear and Load drop the segment's prefix with DropPrefix. Segment maps do
// not own the database; call Engine.Close on shutdown.
package badgerdb
