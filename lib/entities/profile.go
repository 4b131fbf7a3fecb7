package entities

import (
	"slices"

	"github.com/ValentinKolb/typedkv/lib/store"
)

// --------------------------------------------------------------------------
// Profile
// --------------------------------------------------------------------------

// Profile is keyed externally by the principal of its owner. Skills,
// interests and causes are topic ids.
type Profile struct {
	Username        string   `codec:"username" json:"username"`
	DisplayName     string   `codec:"display_name" json:"display_name"`
	FirstName       string   `codec:"first_name" json:"first_name"`
	LastName        string   `codec:"last_name" json:"last_name"`
	Email           string   `codec:"email" json:"email"`
	Bio             string   `codec:"bio" json:"bio"`
	City            string   `codec:"city" json:"city"`
	StateOrProvince string   `codec:"state_or_province" json:"state_or_province"`
	Country         string   `codec:"country" json:"country"`
	Skills          []uint32 `codec:"skills" json:"skills"`
	Interests       []uint32 `codec:"interests" json:"interests"`
	Causes          []uint32 `codec:"causes" json:"causes"`
	CreatedOn       uint64   `codec:"created_on" json:"created_on"`
	UpdatedOn       uint64   `codec:"updated_on" json:"updated_on"`
}

// --------------------------------------------------------------------------
// Profile Filters
// --------------------------------------------------------------------------

type ProfileFilterKind string

const (
	ProfileFilterUsername        ProfileFilterKind = "username"
	ProfileFilterDisplayName     ProfileFilterKind = "display_name"
	ProfileFilterFirstName       ProfileFilterKind = "first_name"
	ProfileFilterLastName        ProfileFilterKind = "last_name"
	ProfileFilterEmail           ProfileFilterKind = "email"
	ProfileFilterCity            ProfileFilterKind = "city"
	ProfileFilterStateOrProvince ProfileFilterKind = "state_or_province"
	ProfileFilterCountry         ProfileFilterKind = "country"
	ProfileFilterSkill           ProfileFilterKind = "skill"
	ProfileFilterInterest        ProfileFilterKind = "interest"
	ProfileFilterCause           ProfileFilterKind = "cause"
	ProfileFilterUpdatedOn       ProfileFilterKind = "updated_on"
	ProfileFilterCreatedOn       ProfileFilterKind = "created_on"
)

// ProfileFilter is a tagged filter over profiles.
// Text kinds compare the whole field, ignoring case.
type ProfileFilter struct {
	Kind  ProfileFilterKind `codec:"kind" json:"kind"`
	Text  string            `codec:"text,omitempty" json:"text,omitempty"`
	Topic uint32            `codec:"topic,omitempty" json:"topic,omitempty"`
	Range store.DateRange   `codec:"range,omitempty" json:"range,omitempty"`
}

func ProfileByUsername(s string) ProfileFilter {
	return ProfileFilter{Kind: ProfileFilterUsername, Text: s}
}

func ProfileByDisplayName(s string) ProfileFilter {
	return ProfileFilter{Kind: ProfileFilterDisplayName, Text: s}
}

func ProfileByFirstName(s string) ProfileFilter {
	return ProfileFilter{Kind: ProfileFilterFirstName, Text: s}
}

func ProfileByLastName(s string) ProfileFilter {
	return ProfileFilter{Kind: ProfileFilterLastName, Text: s}
}

func ProfileByEmail(s string) ProfileFilter {
	return ProfileFilter{Kind: ProfileFilterEmail, Text: s}
}

func ProfileByCity(s string) ProfileFilter {
	return ProfileFilter{Kind: ProfileFilterCity, Text: s}
}

func ProfileByStateOrProvince(s string) ProfileFilter {
	return ProfileFilter{Kind: ProfileFilterStateOrProvince, Text: s}
}

func ProfileByCountry(s string) ProfileFilter {
	return ProfileFilter{Kind: ProfileFilterCountry, Text: s}
}

func ProfileBySkill(topic uint32) ProfileFilter {
	return ProfileFilter{Kind: ProfileFilterSkill, Topic: topic}
}

func ProfileByInterest(topic uint32) ProfileFilter {
	return ProfileFilter{Kind: ProfileFilterInterest, Topic: topic}
}

func ProfileByCause(topic uint32) ProfileFilter {
	return ProfileFilter{Kind: ProfileFilterCause, Topic: topic}
}

func ProfileUpdatedOn(r store.DateRange) ProfileFilter {
	return ProfileFilter{Kind: ProfileFilterUpdatedOn, Range: r}
}

func ProfileCreatedOn(r store.DateRange) ProfileFilter {
	return ProfileFilter{Kind: ProfileFilterCreatedOn, Range: r}
}

// Matches implements store.Filter. Unknown kinds match nothing.
func (f ProfileFilter) Matches(_ string, p Profile) bool {
	switch f.Kind {
	case ProfileFilterUsername:
		return store.EqualFold(p.Username, f.Text)
	case ProfileFilterDisplayName:
		return store.EqualFold(p.DisplayName, f.Text)
	case ProfileFilterFirstName:
		return store.EqualFold(p.FirstName, f.Text)
	case ProfileFilterLastName:
		return store.EqualFold(p.LastName, f.Text)
	case ProfileFilterEmail:
		return store.EqualFold(p.Email, f.Text)
	case ProfileFilterCity:
		return store.EqualFold(p.City, f.Text)
	case ProfileFilterStateOrProvince:
		return store.EqualFold(p.StateOrProvince, f.Text)
	case ProfileFilterCountry:
		return store.EqualFold(p.Country, f.Text)
	case ProfileFilterSkill:
		return slices.Contains(p.Skills, f.Topic)
	case ProfileFilterInterest:
		return slices.Contains(p.Interests, f.Topic)
	case ProfileFilterCause:
		return slices.Contains(p.Causes, f.Topic)
	case ProfileFilterUpdatedOn:
		return f.Range.Matches(p.UpdatedOn)
	case ProfileFilterCreatedOn:
		return f.Range.Matches(p.CreatedOn)
	default:
		return false
	}
}

// --------------------------------------------------------------------------
// Profile Sorting
// --------------------------------------------------------------------------

type ProfileSortField string

const (
	ProfileSortCreatedOn ProfileSortField = "created_on"
	ProfileSortUpdatedOn ProfileSortField = "updated_on"
)

// ProfileSort orders profiles. The zero value sorts by creation time, ascending.
type ProfileSort struct {
	Field     ProfileSortField    `codec:"field" json:"field"`
	Direction store.SortDirection `codec:"direction" json:"direction"`
}

func (s ProfileSort) Sort(entries []store.Entry[string, Profile]) []store.Entry[string, Profile] {
	if s.Field == ProfileSortUpdatedOn {
		return store.SortStable(entries, s.Direction, func(_ string, p Profile) uint64 { return p.UpdatedOn })
	}
	return store.SortStable(entries, s.Direction, func(_ string, p Profile) uint64 { return p.CreatedOn })
}
