package store

import (
	"cmp"
	"slices"
	"strings"
)

// --------------------------------------------------------------------------
// Filter Combination
// --------------------------------------------------------------------------

// MatchAll combines filters with logical AND. An empty list matches every
// entry. Filters that need OR semantics express it inside one filter
// (e.g. "one of these ids").
func MatchAll[K, V any, F Filter[K, V]](filters []F) Filter[K, V] {
	return FilterFunc[K, V](func(key K, value V) bool {
		for _, f := range filters {
			if !f.Matches(key, value) {
				return false
			}
		}
		return true
	})
}

// --------------------------------------------------------------------------
// Predicate Helpers
// --------------------------------------------------------------------------

// ContainsFold reports whether needle is contained in s after lower-casing
// both. The comparison is not locale aware.
func ContainsFold(s, needle string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(needle))
}

// EqualFold reports whether a and b are equal after lower-casing both.
// Unlike strings.EqualFold it does not apply Unicode case folding.
func EqualFold(a, b string) bool {
	return strings.ToLower(a) == strings.ToLower(b)
}

// DateRange is a range of timestamps (unix nanoseconds). An End of zero
// means the range is open towards the future.
type DateRange struct {
	Start uint64 `codec:"start" json:"start"`
	End   uint64 `codec:"end" json:"end"`
}

// IsWithin reports whether Start <= t <= End
func (r DateRange) IsWithin(t uint64) bool {
	return t >= r.Start && t <= r.End
}

// IsAfterStart reports whether t >= Start
func (r DateRange) IsAfterStart(t uint64) bool {
	return t >= r.Start
}

// Matches uses IsWithin for closed ranges and IsAfterStart for open ones.
func (r DateRange) Matches(t uint64) bool {
	if r.End > 0 {
		return r.IsWithin(t)
	}
	return r.IsAfterStart(t)
}

// --------------------------------------------------------------------------
// Sort Helpers
// --------------------------------------------------------------------------

// SortDirection is the direction of a sorter
type SortDirection string

const (
	Asc  SortDirection = "asc"
	Desc SortDirection = "desc"
)

// SortStable sorts entries by the value returned from field. The sort is
// stable, so entries with equal fields keep their key order.
func SortStable[K, V any, T cmp.Ordered](entries []Entry[K, V], dir SortDirection, field func(key K, value V) T) []Entry[K, V] {
	slices.SortStableFunc(entries, func(a, b Entry[K, V]) int {
		c := cmp.Compare(field(a.Key, a.Value), field(b.Key, b.Value))
		if dir == Desc {
			return -c
		}
		return c
	})
	return entries
}
