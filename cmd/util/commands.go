package util

import (
	"context"
	"fmt"
	"strconv"

	"github.com/ValentinKolb/typedkv/lib/store"
	"github.com/ValentinKolb/typedkv/rpc/client"
	"github.com/spf13/cobra"
)

// StoreCommands describes an entity store for the shared commands
type StoreCommands[K, V any, F store.Filter[K, V], S store.Sorter[K, V]] struct {
	// Client returns the remote client, it is called when a command runs
	Client func() *client.Client[K, V, F, S]
	// Session returns the session opened for the command
	Session func() *Session
	// ParseKey parses a key argument
	ParseKey func(s string) (K, error)
	// FilterFlags adds the filter flags to the filter command
	FilterFlags func(cmd *cobra.Command)
	// Filters builds the filters from the flags of the filter command
	Filters func(cmd *cobra.Command) ([]F, error)
	// Sort builds the sorter for a sort field and direction
	Sort func(field string, dir store.SortDirection) S
	// SortFields is the help text of the sort flag
	SortFields string
}

// ParseUint64Key parses the id of an auto-keyed store
func ParseUint64Key(s string) (uint64, error) {
	id, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid id %q: %w", s, err)
	}
	return id, nil
}

// ParseStringKey accepts every key
func ParseStringKey(s string) (string, error) {
	return s, nil
}

func (sc StoreCommands[K, V, F, S]) parseKeys(args []string) ([]K, error) {
	keys := make([]K, 0, len(args))
	for _, arg := range args {
		k, err := sc.ParseKey(arg)
		if err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, nil
}

func (sc StoreCommands[K, V, F, S]) ctx() (context.Context, context.CancelFunc) {
	return sc.Session().Context()
}

func addPageFlags(cmd *cobra.Command, sortFields string) {
	cmd.Flags().Uint64("limit", 20, WrapString("Entries per page (0 returns all entries)"))
	cmd.Flags().Uint64("page", 0, WrapString("Page to return, starting at 0"))
	cmd.Flags().String("sort", "", WrapString("Field to sort by ("+sortFields+", default created_on)"))
	cmd.Flags().Bool("desc", false, WrapString("Sort in descending order"))
}

func (sc StoreCommands[K, V, F, S]) pageFlags(cmd *cobra.Command) (limit, page uint64, sort S) {
	limit, _ = cmd.Flags().GetUint64("limit")
	page, _ = cmd.Flags().GetUint64("page")
	field, _ := cmd.Flags().GetString("sort")
	dir := store.Asc
	if desc, _ := cmd.Flags().GetBool("desc"); desc {
		dir = store.Desc
	}
	return limit, page, sc.Sort(field, dir)
}

// Commands returns the size, get, list, filter and remove commands
func (sc StoreCommands[K, V, F, S]) Commands() []*cobra.Command {
	sizeCmd := &cobra.Command{
		Use:   "size",
		Short: "Prints the number of entries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := sc.ctx()
			defer cancel()
			n, err := sc.Client().Size(ctx)
			if err != nil {
				return err
			}
			fmt.Println(n)
			return nil
		},
	}

	getCmd := &cobra.Command{
		Use:   "get [key...]",
		Short: "Reads one or more entries (absent keys are skipped if more than one key is given)",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			keys, err := sc.parseKeys(args)
			if err != nil {
				return err
			}
			ctx, cancel := sc.ctx()
			defer cancel()
			if len(keys) == 1 {
				entry, err := sc.Client().Get(ctx, keys[0])
				if err != nil {
					return err
				}
				return PrintJSON(entry)
			}
			entries, err := sc.Client().GetMany(ctx, keys)
			if err != nil {
				return err
			}
			return PrintJSON(entries)
		},
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "Lists one page of all entries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			limit, page, sort := sc.pageFlags(cmd)
			ctx, cancel := sc.ctx()
			defer cancel()
			p, err := sc.Client().GetPaginated(ctx, limit, page, sort)
			if err != nil {
				return err
			}
			return PrintJSON(p)
		},
	}
	addPageFlags(listCmd, sc.SortFields)

	filterCmd := &cobra.Command{
		Use:   "filter",
		Short: "Lists one page of the entries matching all filter flags",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			filters, err := sc.Filters(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := sc.ctx()
			defer cancel()

			if first, _ := cmd.Flags().GetBool("first"); first {
				entry, ok, err := sc.Client().Find(ctx, filters...)
				if err != nil {
					return err
				}
				if !ok {
					return store.NotFound().WithMethod("find").WithMessage("no entry matches the filters")
				}
				return PrintJSON(entry)
			}

			limit, page, sort := sc.pageFlags(cmd)
			p, err := sc.Client().FilterPaginated(ctx, limit, page, sort, filters...)
			if err != nil {
				return err
			}
			return PrintJSON(p)
		},
	}
	addPageFlags(filterCmd, sc.SortFields)
	filterCmd.Flags().Bool("first", false, WrapString("Only print the first match in key order"))
	sc.FilterFlags(filterCmd)

	removeCmd := &cobra.Command{
		Use:   "remove [key...]",
		Short: "Removes one or more entries (absent keys are skipped if more than one key is given)",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			keys, err := sc.parseKeys(args)
			if err != nil {
				return err
			}
			ctx, cancel := sc.ctx()
			defer cancel()
			if len(keys) == 1 {
				err = sc.Client().Remove(ctx, keys[0])
			} else {
				err = sc.Client().RemoveMany(ctx, keys)
			}
			if err != nil {
				return err
			}
			fmt.Println("removed successfully")
			return nil
		},
	}

	return []*cobra.Command{sizeCmd, getCmd, listCmd, filterCmd, removeCmd}
}
