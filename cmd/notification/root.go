package notification

import (
	"github.com/ValentinKolb/typedkv/cmd/util"
	"github.com/ValentinKolb/typedkv/lib/entities"
	"github.com/ValentinKolb/typedkv/lib/store"
	"github.com/ValentinKolb/typedkv/rpc/client"
	"github.com/spf13/cobra"
)

var (
	session       *util.Session
	notifications *client.NotificationClient

	// NotificationCommands represents the notification command group
	NotificationCommands = &cobra.Command{
		Use:                "notification",
		Short:              "Perform operations on the remote notification store",
		PersistentPreRunE:  setupNotificationClient,
		PersistentPostRunE: closeNotificationClient,
	}
)

func init() {
	cobra.OnInitialize(util.InitConfig)
	util.SetupRPCClientFlags(NotificationCommands)

	shared := util.StoreCommands[uint64, entities.Notification, entities.NotificationFilter, entities.NotificationSort]{
		Client: func() *client.Client[uint64, entities.Notification, entities.NotificationFilter, entities.NotificationSort] {
			return &notifications.Client
		},
		Session:     func() *util.Session { return session },
		ParseKey:    util.ParseUint64Key,
		FilterFlags: addFilterFlags,
		Filters:     parseFilters,
		Sort: func(field string, dir store.SortDirection) entities.NotificationSort {
			return entities.NotificationSort{Field: entities.NotificationSortField(field), Direction: dir}
		},
		SortFields: "created_on, updated_on",
	}

	NotificationCommands.AddCommand(shared.Commands()...)
	NotificationCommands.AddCommand(createCmd)
	NotificationCommands.AddCommand(processCmd)
}

func setupNotificationClient(cmd *cobra.Command, _ []string) error {
	if err := util.BindCommandFlags(cmd); err != nil {
		return err
	}

	var err error
	if session, err = util.OpenSession(entities.KindNotifications); err != nil {
		return err
	}
	notifications = client.NewNotificationClient(session.Peer, session.Transport, session.Serializer)
	return nil
}

func closeNotificationClient(_ *cobra.Command, _ []string) error {
	return session.Close()
}
