package entities

import (
	"fmt"

	"github.com/ValentinKolb/typedkv/lib/db"
	"github.com/ValentinKolb/typedkv/lib/store"
	"github.com/ValentinKolb/typedkv/lib/store/codec"
	"github.com/ValentinKolb/typedkv/lib/store/idalloc"
	"github.com/ValentinKolb/typedkv/lib/store/lstore"
)

// Store names, they double as allocator kinds
const (
	KindGroups        = "groups"
	KindProfiles      = "profiles"
	KindNotifications = "notifications"
)

// Layout assigns an engine segment to every store
type Layout struct {
	IDs           db.SegmentID
	Groups        db.SegmentID
	Profiles      db.SegmentID
	Notifications db.SegmentID
}

// DefaultLayout keeps the id counters in segment 0
func DefaultLayout() Layout {
	return Layout{
		IDs:           0,
		Groups:        1,
		Profiles:      2,
		Notifications: 3,
	}
}

// Stores holds the entity stores of one process
type Stores struct {
	IDs           *idalloc.Allocator
	Groups        *lstore.AutoStore[Group]
	Profiles      *lstore.KeyedStore[string, Profile]
	Notifications *lstore.AutoStore[Notification]
}

// Open binds every store of layout in registry and registers the auto-keyed
// stores as allocator sources.
func Open(registry *store.Registry, layout Layout) (*Stores, error) {
	idsDB, err := registry.Bind(layout.IDs, "id_allocator")
	if err != nil {
		return nil, err
	}
	groupsDB, err := registry.Bind(layout.Groups, KindGroups)
	if err != nil {
		return nil, err
	}
	profilesDB, err := registry.Bind(layout.Profiles, KindProfiles)
	if err != nil {
		return nil, err
	}
	notificationsDB, err := registry.Bind(layout.Notifications, KindNotifications)
	if err != nil {
		return nil, err
	}

	ids := idalloc.New(idsDB)
	ids.Register(KindGroups, groupsDB)
	ids.Register(KindNotifications, notificationsDB)

	return &Stores{
		IDs:           ids,
		Groups:        lstore.NewAutoStore[Group](KindGroups, groupsDB, codec.Msgpack[Group]{}),
		Profiles:      lstore.NewKeyedStore[string, Profile](KindProfiles, profilesDB, codec.StringKey{}, codec.Msgpack[Profile]{}),
		Notifications: lstore.NewAutoStore[Notification](KindNotifications, notificationsDB, codec.Msgpack[Notification]{}),
	}, nil
}

// MustOpen is Open for process start-up
func MustOpen(registry *store.Registry, layout Layout) *Stores {
	s, err := Open(registry, layout)
	if err != nil {
		panic(fmt.Sprintf("failed to open entity stores: %v", err))
	}
	return s
}
