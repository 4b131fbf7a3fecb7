// Package internal provides the communication protocol structures and serialization
// logic for the dstore engine. It defines the format used to transmit operations
// between a segment map and the replicated state machine.
//
// This package is intended for internal use by the dstore implementation and should
// not be imported directly by external code.
//
// The package consists of two main components:
//
//   - Command System: Defines write operations (Insert, Remove, Clear, Load) that
//     modify the state of the map. Commands are serialized and proposed to the RAFT
//     shard, executed on the state machine, and produce a result code plus the
//     previous value (for Insert and Remove).
//
//   - Query System: Defines read operations (Get, Has, Len, Last, Entries, GetDBInfo).
//     Queries are executed locally on the state machine and therefore do not
//     require serialization.
//
// Command Format:
//
//	- 1 byte: Command type (Insert, Remove, Clear, Load)
//	- 4 bytes: Key length (uint32, big endian)
//	- N bytes: Key data
//	- M bytes: Value data (Insert: the value, Load: a snapshot stream)
//
// Result Format:
//
//	The sm.Result of an applied command carries one of the Result* codes in
//	Value. For ResultPresent, Data holds the previous value; for ResultError,
//	Data holds the error message.
package internal
