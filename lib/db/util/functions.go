package util

import "bytes"

// --------------------------------------------------------------------------
// Hash Functions
// --------------------------------------------------------------------------

// HashString generates a hash value for a string with a seed.
// It uses FNV-1a, which is fast and stable across processes. The serve command
// uses it to turn replica names like "node-1" into raft replica ids.
func HashString(s string, seed uint64) uint64 {
	const (
		offset64 = 14695981039346656037
		prime64  = 1099511628211
	)

	hash := uint64(offset64) ^ seed

	for i := 0; i < len(s); i++ {
		hash ^= uint64(s[i])
		hash *= prime64
	}

	// raft reserves replica id 0
	if hash == 0 {
		hash = 1
	}
	return hash
}

// --------------------------------------------------------------------------
// Conditional Writes
// --------------------------------------------------------------------------

// Matches reports whether the current state of a key satisfies the expected
// value of a compare-and-swap. A nil expected matches only an absent key.
func Matches(current []byte, present bool, expected []byte) bool {
	if expected == nil {
		return !present
	}
	return present && bytes.Equal(current, expected)
}
