package group

import (
	"github.com/ValentinKolb/typedkv/cmd/util"
	"github.com/ValentinKolb/typedkv/lib/entities"
	"github.com/ValentinKolb/typedkv/lib/store"
	"github.com/ValentinKolb/typedkv/rpc/client"
	"github.com/spf13/cobra"
)

var (
	session *util.Session
	groups  *client.GroupClient

	// GroupCommands represents the group command group
	GroupCommands = &cobra.Command{
		Use:                "group",
		Short:              "Perform operations on the remote group store",
		PersistentPreRunE:  setupGroupClient,
		PersistentPostRunE: closeGroupClient,
	}
)

func init() {
	// Initialize viper
	cobra.OnInitialize(util.InitConfig)

	// Add common RPC flags to the group command
	util.SetupRPCClientFlags(GroupCommands)

	shared := util.StoreCommands[uint64, entities.Group, entities.GroupFilter, entities.GroupSort]{
		Client:      func() *client.Client[uint64, entities.Group, entities.GroupFilter, entities.GroupSort] { return &groups.Client },
		Session:     func() *util.Session { return session },
		ParseKey:    util.ParseUint64Key,
		FilterFlags: addFilterFlags,
		Filters:     parseFilters,
		Sort: func(field string, dir store.SortDirection) entities.GroupSort {
			return entities.GroupSort{Field: entities.GroupSortField(field), Direction: dir}
		},
		SortFields: "name, created_on, updated_on, member_count",
	}

	// Add subcommands
	GroupCommands.AddCommand(shared.Commands()...)
	GroupCommands.AddCommand(createCmd)
	GroupCommands.AddCommand(updateCmd)
	GroupCommands.AddCommand(perfTestCmd)
}

// setupGroupClient initializes the RPC group client
func setupGroupClient(cmd *cobra.Command, _ []string) error {
	// Bind command flags to viper
	if err := util.BindCommandFlags(cmd); err != nil {
		return err
	}

	var err error
	if session, err = util.OpenSession(entities.KindGroups); err != nil {
		return err
	}
	groups = client.NewGroupClient(session.Peer, session.Transport, session.Serializer)
	return nil
}

func closeGroupClient(_ *cobra.Command, _ []string) error {
	return session.Close()
}
