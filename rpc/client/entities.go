package client

import (
	"github.com/ValentinKolb/typedkv/lib/entities"
	"github.com/ValentinKolb/typedkv/rpc/serializer"
	"github.com/ValentinKolb/typedkv/rpc/transport"
)

type (
	GroupClient        = AutoClient[entities.Group, entities.GroupFilter, entities.GroupSort]
	ProfileClient      = KeyedClient[string, entities.Profile, entities.ProfileFilter, entities.ProfileSort]
	NotificationClient = AutoClient[entities.Notification, entities.NotificationFilter, entities.NotificationSort]
)

func NewGroupClient(peer PeerSource, t transport.IRPCClientTransport, s serializer.IRPCSerializer) *GroupClient {
	return NewAutoClient[entities.Group, entities.GroupFilter, entities.GroupSort](peer, t, s)
}

func NewProfileClient(peer PeerSource, t transport.IRPCClientTransport, s serializer.IRPCSerializer) *ProfileClient {
	return NewKeyedClient[string, entities.Profile, entities.ProfileFilter, entities.ProfileSort](peer, t, s)
}

func NewNotificationClient(peer PeerSource, t transport.IRPCClientTransport, s serializer.IRPCSerializer) *NotificationClient {
	return NewAutoClient[entities.Notification, entities.NotificationFilter, entities.NotificationSort](peer, t, s)
}
