package internal

// QueryType defines the possible queries for the state machine.
type QueryType uint8

const (
	QueryTGet       QueryType = iota // Retrieve an entry by key.
	QueryTHas                        // Check if a key exists.
	QueryTLen                        // Number of entries.
	QueryTLast                       // Entry with the largest key.
	QueryTEntries                    // All entries in ascending order.
	QueryTGetDBInfo                  // Retrieve metadata about the database underlying the machine.
)

func (q QueryType) String() string {
	switch q {
	case QueryTGet:
		return "Get"
	case QueryTHas:
		return "Has"
	case QueryTLen:
		return "Len"
	case QueryTLast:
		return "Last"
	case QueryTEntries:
		return "Entries"
	case QueryTGetDBInfo:
		return "GetDBInfo"
	default:
		return "Unknown"
	}
}

// Query defines the structure for lookup requests (read-only) sent via SyncRead or StaleRead
type Query struct {
	Type QueryType // The type of Query to perform.
	Key  []byte    // The key for the Query (empty for some queries).
}

// QueryResult is the result of a QueryTGet or QueryTLast operation.
// All other query results are primitive types or predefined structs
// (bool, uint64, []Entry, db.DatabaseInfo).
type QueryResult struct {
	Ok    bool
	Key   []byte
	Value []byte
}

// Entry is one key value pair of a QueryTEntries result
type Entry struct {
	Key   []byte
	Value []byte
}
