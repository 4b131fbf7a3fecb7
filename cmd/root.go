package cmd

import (
	"fmt"
	"os"

	"github.com/ValentinKolb/typedkv/cmd/group"
	"github.com/ValentinKolb/typedkv/cmd/notification"
	"github.com/ValentinKolb/typedkv/cmd/peer"
	"github.com/ValentinKolb/typedkv/cmd/profile"
	"github.com/ValentinKolb/typedkv/cmd/serve"
	"github.com/ValentinKolb/typedkv/cmd/util"
	"github.com/spf13/cobra"
)

const (
	Version = "0.3.0"
)

var (

	// RootCmd represents the base command when called without any subcommands
	RootCmd = &cobra.Command{
		Use:   "tkv",
		Short: "typed entity store",
		Long: fmt.Sprintf(`typedkv (v%s)

A generic, typed entity store written in Go. Entities live in ordered maps
(in memory, on disk with badger or replicated with RAFT) and are accessed
locally or through a storage peer over RPC.`, Version),
		SilenceUsage: true,
	}
	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of typedkv",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("typedkv v%s\n", Version)
		},
	}
)

func init() {
	// Add Commands
	RootCmd.AddCommand(serve.ServeCmd)
	RootCmd.AddCommand(peer.PeerCommands)
	RootCmd.AddCommand(group.GroupCommands)
	RootCmd.AddCommand(profile.ProfileCommands)
	RootCmd.AddCommand(notification.NotificationCommands)
	RootCmd.AddCommand(versionCmd)

	// Add Flags
	key := "serializer"
	RootCmd.PersistentFlags().String(key, "binary", util.WrapString("serializer to use (binary, msgpack, json, gob)"))
	key = "transport"
	RootCmd.PersistentFlags().String(key, "tcp", util.WrapString("transport to use (tcp, unix, http)"))
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the RootCmd.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
