package server

import (
	"fmt"

	"github.com/ValentinKolb/typedkv/lib/entities"
	"github.com/ValentinKolb/typedkv/rpc/common"
)

// RegisterEntityShards serves the entity stores named in shards
func RegisterEntityShards(s *RPCServer, stores *entities.Stores, shards []common.ServerShard) error {
	for _, shard := range shards {
		var err error
		switch shard.Store {
		case entities.KindGroups:
			err = RegisterAutoStore[entities.Group, entities.GroupFilter, entities.GroupSort](
				s, shard.ShardID, shard.Store, stores.Groups, stores.IDs.Next)
		case entities.KindProfiles:
			err = RegisterKeyedStore[string, entities.Profile, entities.ProfileFilter, entities.ProfileSort](
				s, shard.ShardID, shard.Store, stores.Profiles)
		case entities.KindNotifications:
			err = RegisterAutoStore[entities.Notification, entities.NotificationFilter, entities.NotificationSort](
				s, shard.ShardID, shard.Store, stores.Notifications, stores.IDs.Next)
		default:
			err = fmt.Errorf("unknown store %q for shard %d", shard.Store, shard.ShardID)
		}
		if err != nil {
			return err
		}
	}
	return nil
}
