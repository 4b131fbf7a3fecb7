package profile

import (
	"github.com/ValentinKolb/typedkv/cmd/util"
	"github.com/ValentinKolb/typedkv/lib/entities"
	"github.com/ValentinKolb/typedkv/lib/store"
	"github.com/ValentinKolb/typedkv/rpc/client"
	"github.com/spf13/cobra"
)

var (
	session  *util.Session
	profiles *client.ProfileClient

	// ProfileCommands represents the profile command group
	ProfileCommands = &cobra.Command{
		Use:                "profile",
		Short:              "Perform operations on the remote profile store",
		PersistentPreRunE:  setupProfileClient,
		PersistentPostRunE: closeProfileClient,
	}
)

func init() {
	cobra.OnInitialize(util.InitConfig)
	util.SetupRPCClientFlags(ProfileCommands)

	shared := util.StoreCommands[string, entities.Profile, entities.ProfileFilter, entities.ProfileSort]{
		Client:      func() *client.Client[string, entities.Profile, entities.ProfileFilter, entities.ProfileSort] { return &profiles.Client },
		Session:     func() *util.Session { return session },
		ParseKey:    util.ParseStringKey,
		FilterFlags: addFilterFlags,
		Filters:     parseFilters,
		Sort: func(field string, dir store.SortDirection) entities.ProfileSort {
			return entities.ProfileSort{Field: entities.ProfileSortField(field), Direction: dir}
		},
		SortFields: "created_on, updated_on",
	}

	ProfileCommands.AddCommand(shared.Commands()...)
	ProfileCommands.AddCommand(createCmd)
	ProfileCommands.AddCommand(updateCmd)
}

func setupProfileClient(cmd *cobra.Command, _ []string) error {
	if err := util.BindCommandFlags(cmd); err != nil {
		return err
	}

	var err error
	if session, err = util.OpenSession(entities.KindProfiles); err != nil {
		return err
	}
	profiles = client.NewProfileClient(session.Peer, session.Transport, session.Serializer)
	return nil
}

func closeProfileClient(_ *cobra.Command, _ []string) error {
	return session.Close()
}
