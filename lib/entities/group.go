package entities

import (
	"slices"

	"github.com/ValentinKolb/typedkv/lib/store"
)

// --------------------------------------------------------------------------
// Group
// --------------------------------------------------------------------------

// Group is an auto-keyed entity, its key is a uint64 id issued by the
// allocator under KindGroups.
type Group struct {
	Name        string   `codec:"name" json:"name"`
	Description string   `codec:"description" json:"description"`
	Owner       string   `codec:"owner" json:"owner"`
	Tags        []string `codec:"tags" json:"tags"`
	Members     []string `codec:"members" json:"members"`
	CreatedOn   uint64   `codec:"created_on" json:"created_on"`
	UpdatedOn   uint64   `codec:"updated_on" json:"updated_on"`
}

// MemberCount returns the number of members of the group
func (g Group) MemberCount() int {
	return len(g.Members)
}

// --------------------------------------------------------------------------
// Group Filters
// --------------------------------------------------------------------------

// GroupFilterKind selects the field a GroupFilter tests
type GroupFilterKind string

const (
	GroupFilterName      GroupFilterKind = "name"
	GroupFilterOwner     GroupFilterKind = "owner"
	GroupFilterIDs       GroupFilterKind = "ids"
	GroupFilterTag       GroupFilterKind = "tag"
	GroupFilterUpdatedOn GroupFilterKind = "updated_on"
	GroupFilterCreatedOn GroupFilterKind = "created_on"
)

// GroupFilter is a tagged filter. Only the fields belonging to Kind are used.
type GroupFilter struct {
	Kind  GroupFilterKind `codec:"kind" json:"kind"`
	Text  string          `codec:"text,omitempty" json:"text,omitempty"`
	IDs   []uint64        `codec:"ids,omitempty" json:"ids,omitempty"`
	Range store.DateRange `codec:"range,omitempty" json:"range,omitempty"`
}

func GroupByName(name string) GroupFilter {
	return GroupFilter{Kind: GroupFilterName, Text: name}
}

func GroupByOwner(owner string) GroupFilter {
	return GroupFilter{Kind: GroupFilterOwner, Text: owner}
}

func GroupByIDs(ids ...uint64) GroupFilter {
	return GroupFilter{Kind: GroupFilterIDs, IDs: ids}
}

func GroupByTag(tag string) GroupFilter {
	return GroupFilter{Kind: GroupFilterTag, Text: tag}
}

func GroupUpdatedOn(r store.DateRange) GroupFilter {
	return GroupFilter{Kind: GroupFilterUpdatedOn, Range: r}
}

func GroupCreatedOn(r store.DateRange) GroupFilter {
	return GroupFilter{Kind: GroupFilterCreatedOn, Range: r}
}

// Matches implements store.Filter. Unknown kinds match nothing.
func (f GroupFilter) Matches(id uint64, g Group) bool {
	switch f.Kind {
	case GroupFilterName:
		return store.ContainsFold(g.Name, f.Text)
	case GroupFilterOwner:
		return g.Owner == f.Text
	case GroupFilterIDs:
		return slices.Contains(f.IDs, id)
	case GroupFilterTag:
		return slices.ContainsFunc(g.Tags, func(t string) bool { return store.EqualFold(t, f.Text) })
	case GroupFilterUpdatedOn:
		return f.Range.Matches(g.UpdatedOn)
	case GroupFilterCreatedOn:
		return f.Range.Matches(g.CreatedOn)
	default:
		return false
	}
}

// --------------------------------------------------------------------------
// Group Sorting
// --------------------------------------------------------------------------

// GroupSortField selects the field a GroupSort orders by
type GroupSortField string

const (
	GroupSortName        GroupSortField = "name"
	GroupSortCreatedOn   GroupSortField = "created_on"
	GroupSortUpdatedOn   GroupSortField = "updated_on"
	GroupSortMemberCount GroupSortField = "member_count"
)

// GroupSort orders groups. The zero value sorts by creation time, ascending.
type GroupSort struct {
	Field     GroupSortField      `codec:"field" json:"field"`
	Direction store.SortDirection `codec:"direction" json:"direction"`
}

// Sort implements store.Sorter
func (s GroupSort) Sort(entries []store.Entry[uint64, Group]) []store.Entry[uint64, Group] {
	switch s.Field {
	case GroupSortName:
		return store.SortStable(entries, s.Direction, func(_ uint64, g Group) string { return g.Name })
	case GroupSortUpdatedOn:
		return store.SortStable(entries, s.Direction, func(_ uint64, g Group) uint64 { return g.UpdatedOn })
	case GroupSortMemberCount:
		return store.SortStable(entries, s.Direction, func(_ uint64, g Group) int { return g.MemberCount() })
	default:
		return store.SortStable(entries, s.Direction, func(_ uint64, g Group) uint64 { return g.CreatedOn })
	}
}
