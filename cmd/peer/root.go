package peer

import (
	"fmt"

	"github.com/ValentinKolb/typedkv/cmd/util"
	"github.com/ValentinKolb/typedkv/rpc/common"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	state *util.State

	// PeerCommands represents the peer command group
	PeerCommands = &cobra.Command{
		Use:   "peer",
		Short: "Manage the peer address of every store",
		Long: `Manage the cached peer address of a store (groups, profiles or
notifications). The address has the form <endpoint>#<shard>, e.g.
localhost:8080#100. Client commands fail with NotFound until it is set.`,
		PersistentPreRunE: openState,
		PersistentPostRunE: func(_ *cobra.Command, _ []string) error {
			return state.Close()
		},
	}
	setCmd = &cobra.Command{
		Use:   "set [store] [endpoint#shard]",
		Short: "Sets the peer address of a store",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			addr, err := common.ParsePeerAddress(args[1])
			if err != nil {
				return err
			}
			c, err := state.Peer(args[0])
			if err != nil {
				return err
			}
			if err := c.Set(addr); err != nil {
				return err
			}
			fmt.Printf("%s -> %s\n", args[0], addr)
			return nil
		},
	}
	getCmd = &cobra.Command{
		Use:   "get [store]",
		Short: "Prints the peer address of a store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := state.Peer(args[0])
			if err != nil {
				return err
			}
			addr, err := c.Get()
			if err != nil {
				return err
			}
			fmt.Println(addr)
			return nil
		},
	}
	clearCmd = &cobra.Command{
		Use:   "clear [store]",
		Short: "Removes the peer address of a store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := state.Peer(args[0])
			if err != nil {
				return err
			}
			if err := c.Clear(); err != nil {
				return err
			}
			fmt.Println("cleared successfully")
			return nil
		},
	}
)

func init() {
	cobra.OnInitialize(util.InitConfig)

	PeerCommands.PersistentFlags().String("state-dir", util.DefaultStateDir(), util.WrapString("Directory of the local state (the cached peer addresses)"))

	PeerCommands.AddCommand(setCmd)
	PeerCommands.AddCommand(getCmd)
	PeerCommands.AddCommand(clearCmd)
}

func openState(cmd *cobra.Command, _ []string) error {
	if err := util.BindCommandFlags(cmd); err != nil {
		return err
	}
	var err error
	state, err = util.OpenState(viper.GetString("state-dir"))
	return err
}
