package store

import (
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/ValentinKolb/typedkv/lib/db"
	"github.com/ValentinKolb/typedkv/lib/db/engines/maple"
)

func TestErrorBuilder(t *testing.T) {
	base := NotFound()
	enriched := base.WithMessage("key 7 not found").WithInfo("groups").WithMethod("get")

	if base.Message != "" || base.Info != "" || base.Method != "" {
		t.Errorf("With* must not modify the receiver, got %+v", base)
	}
	if enriched.Kind != KindNotFound || enriched.Message != "key 7 not found" || enriched.Info != "groups" || enriched.Method != "get" {
		t.Errorf("unexpected enriched error %+v", enriched)
	}
	if got, want := enriched.Error(), "NotFound in get: key 7 not found (groups)"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestErrorIs(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", Duplicate().WithInfo("profiles"))

	if !errors.Is(err, ErrDuplicate) {
		t.Errorf("expected wrapped Duplicate to match ErrDuplicate")
	}
	if errors.Is(err, ErrNotFound) {
		t.Errorf("Duplicate must not match ErrNotFound")
	}
	if KindOf(err) != KindDuplicate {
		t.Errorf("KindOf = %s, want Duplicate", KindOf(err))
	}
	if KindOf(errors.New("plain")) != KindUnexpected {
		t.Errorf("plain errors should be Unexpected")
	}
	if KindOf(nil) != "" {
		t.Errorf("nil has no kind")
	}
	if e := AsError(errors.New("boom")); e.Kind != KindUnexpected || e.Message != "boom" {
		t.Errorf("AsError = %+v", e)
	}
	if NewError("bogus").Kind != KindUnexpected {
		t.Errorf("unknown kinds should become Unexpected")
	}
}

type person struct {
	Name string
	Age  uint64
}

type nameFilter string

func (f nameFilter) Matches(_ uint64, p person) bool {
	return ContainsFold(p.Name, string(f))
}

func TestMatchAll(t *testing.T) {
	alice := person{Name: "Alice", Age: 30}
	bob := person{Name: "bob", Age: 40}

	if !MatchAll[uint64, person]([]nameFilter{}).Matches(1, alice) {
		t.Errorf("empty filter list must match everything")
	}

	both := MatchAll[uint64, person]([]nameFilter{"a", "l"})
	if !both.Matches(1, alice) {
		t.Errorf("Alice contains a and l")
	}
	if both.Matches(2, bob) {
		t.Errorf("filters must be combined with AND")
	}
}

func TestFoldHelpers(t *testing.T) {
	names := []string{"Alice", "bob", "Charlie"}
	var matched []string
	for _, n := range names {
		if ContainsFold(n, "ali") {
			matched = append(matched, n)
		}
	}
	if len(matched) != 1 || matched[0] != "Alice" {
		t.Errorf("ContainsFold(\"ali\") matched %v, want [Alice]", matched)
	}

	if !EqualFold("Berlin", "BERLIN") || EqualFold("Berlin", "Berlin ") {
		t.Errorf("EqualFold compares lower-cased full strings")
	}
}

func TestDateRange(t *testing.T) {
	closed := DateRange{Start: 10, End: 20}
	open := DateRange{Start: 10}

	tests := []struct {
		r    DateRange
		t    uint64
		want bool
	}{
		{closed, 9, false},
		{closed, 10, true},
		{closed, 20, true},
		{closed, 21, false},
		{open, 9, false},
		{open, 10, true},
		{open, 1 << 60, true},
	}
	for _, tt := range tests {
		if got := tt.r.Matches(tt.t); got != tt.want {
			t.Errorf("%+v.Matches(%d) = %v, want %v", tt.r, tt.t, got, tt.want)
		}
	}
}

func TestSortStable(t *testing.T) {
	entries := []Entry[uint64, person]{
		{1, person{"c", 30}},
		{2, person{"a", 40}},
		{3, person{"b", 30}},
	}

	byAge := func(_ uint64, p person) uint64 { return p.Age }

	asc := SortStable(append([]Entry[uint64, person]{}, entries...), Asc, byAge)
	if asc[0].Key != 1 || asc[1].Key != 3 || asc[2].Key != 2 {
		t.Errorf("ascending stable sort wrong: %v", asc)
	}

	desc := SortStable(append([]Entry[uint64, person]{}, entries...), Desc, byAge)
	if desc[0].Key != 2 || desc[1].Key != 1 || desc[2].Key != 3 {
		t.Errorf("descending stable sort wrong: %v", desc)
	}
}

func TestPaginate(t *testing.T) {
	items := []int{0, 1, 2, 3, 4, 5, 6}

	tests := []struct {
		name        string
		limit, page uint64
		data        []int
		pages       uint64
		more        bool
	}{
		{"first page", 3, 0, []int{0, 1, 2}, 3, true},
		{"middle page", 3, 1, []int{3, 4, 5}, 3, true},
		{"last page", 3, 2, []int{6}, 3, false},
		{"past the end", 3, 5, []int{}, 3, false},
		{"limit zero", 0, 0, items, 1, false},
		{"limit zero later page", 0, 1, []int{}, 1, false},
		{"huge page", 3, 1 << 63, []int{}, 3, false},
		{"huge limit", math.MaxUint64, 0, items, 1, false},
		{"huge limit second page", math.MaxUint64, 1, []int{}, 1, false},
		{"limit equals total", 7, 0, items, 1, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Paginate(items, tt.limit, tt.page)
			if fmt.Sprint(p.Data) != fmt.Sprint(tt.data) {
				t.Errorf("data = %v, want %v", p.Data, tt.data)
			}
			if p.Total != 7 || p.NumberOfPages != tt.pages || p.HasMore != tt.more || p.Page != tt.page {
				t.Errorf("unexpected envelope %+v", p)
			}
		})
	}
}

func TestRegistry(t *testing.T) {
	r := NewRegistry(maple.NewFactory(nil))

	if _, err := r.Bind(100, "groups"); err != nil {
		t.Fatalf("Bind failed: %v", err)
	}
	if _, err := r.Bind(100, "profiles"); err == nil {
		t.Errorf("binding a segment twice must fail")
	}
	if _, err := r.Bind(255, "reserved"); err == nil {
		t.Errorf("binding the reserved segment must fail")
	}
	r.MustBind(3, "ids")

	if got := r.Segments(); len(got) != 2 || got[0] != 3 || got[1] != 100 {
		t.Errorf("Segments = %v", got)
	}
	if name, ok := r.Name(100); !ok || name != "groups" {
		t.Errorf("Name(100) = %q, %v", name, ok)
	}

	defer func() {
		if recover() == nil {
			t.Errorf("MustBind must panic on a second binding")
		}
	}()
	r.MustBind(db.SegmentID(3), "again")
}
