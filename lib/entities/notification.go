package entities

import (
	"slices"

	"github.com/ValentinKolb/typedkv/lib/store"
)

// --------------------------------------------------------------------------
// Notification
// --------------------------------------------------------------------------

// Notification is an auto-keyed entity addressed to one receiver.
// An actionable notification is open until ProcessedBy is set.
type Notification struct {
	Type        string `codec:"type" json:"type"`
	Sender      string `codec:"sender" json:"sender"`
	Receiver    string `codec:"receiver" json:"receiver"`
	Content     string `codec:"content" json:"content"`
	Actionable  bool   `codec:"actionable" json:"actionable"`
	ProcessedBy string `codec:"processed_by" json:"processed_by"`
	CreatedOn   uint64 `codec:"created_on" json:"created_on"`
	UpdatedOn   uint64 `codec:"updated_on" json:"updated_on"`
}

// --------------------------------------------------------------------------
// Notification Filters
// --------------------------------------------------------------------------

type NotificationFilterKind string

const (
	NotificationFilterIDs         NotificationFilterKind = "ids"
	NotificationFilterType        NotificationFilterKind = "type"
	NotificationFilterActionable  NotificationFilterKind = "actionable"
	NotificationFilterProcessedBy NotificationFilterKind = "processed_by"
	NotificationFilterSender      NotificationFilterKind = "sender"
)

// NotificationFilter is a tagged filter over notifications.
type NotificationFilter struct {
	Kind NotificationFilterKind `codec:"kind" json:"kind"`
	Text string                 `codec:"text,omitempty" json:"text,omitempty"`
	IDs  []uint64               `codec:"ids,omitempty" json:"ids,omitempty"`
	Flag bool                   `codec:"flag,omitempty" json:"flag,omitempty"`
}

func NotificationByIDs(ids ...uint64) NotificationFilter {
	return NotificationFilter{Kind: NotificationFilterIDs, IDs: ids}
}

func NotificationByType(t string) NotificationFilter {
	return NotificationFilter{Kind: NotificationFilterType, Text: t}
}

func NotificationActionable(actionable bool) NotificationFilter {
	return NotificationFilter{Kind: NotificationFilterActionable, Flag: actionable}
}

// NotificationProcessedBy matches notifications processed by principal.
// An empty principal matches the unprocessed ones.
func NotificationProcessedBy(principal string) NotificationFilter {
	return NotificationFilter{Kind: NotificationFilterProcessedBy, Text: principal}
}

func NotificationBySender(sender string) NotificationFilter {
	return NotificationFilter{Kind: NotificationFilterSender, Text: sender}
}

func (f NotificationFilter) Matches(id uint64, n Notification) bool {
	switch f.Kind {
	case NotificationFilterIDs:
		return slices.Contains(f.IDs, id)
	case NotificationFilterType:
		return store.EqualFold(n.Type, f.Text)
	case NotificationFilterActionable:
		return n.Actionable == f.Flag
	case NotificationFilterProcessedBy:
		return n.ProcessedBy == f.Text
	case NotificationFilterSender:
		return n.Sender == f.Text
	default:
		return false
	}
}

// --------------------------------------------------------------------------
// Notification Sorting
// --------------------------------------------------------------------------

type NotificationSortField string

const (
	NotificationSortCreatedOn NotificationSortField = "created_on"
	NotificationSortUpdatedOn NotificationSortField = "updated_on"
)

type NotificationSort struct {
	Field     NotificationSortField `codec:"field" json:"field"`
	Direction store.SortDirection   `codec:"direction" json:"direction"`
}

func (s NotificationSort) Sort(entries []store.Entry[uint64, Notification]) []store.Entry[uint64, Notification] {
	if s.Field == NotificationSortUpdatedOn {
		return store.SortStable(entries, s.Direction, func(_ uint64, n Notification) uint64 { return n.UpdatedOn })
	}
	return store.SortStable(entries, s.Direction, func(_ uint64, n Notification) uint64 { return n.CreatedOn })
}
