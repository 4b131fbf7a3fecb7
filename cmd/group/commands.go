package group

import (
	"github.com/ValentinKolb/typedkv/cmd/util"
	"github.com/ValentinKolb/typedkv/lib/entities"
	"github.com/ValentinKolb/typedkv/lib/store"
	"github.com/spf13/cobra"
)

func addFilterFlags(cmd *cobra.Command) {
	cmd.Flags().String("name", "", util.WrapString("Name contains (ignores case)"))
	cmd.Flags().String("owner", "", util.WrapString("Owner principal"))
	cmd.Flags().String("tag", "", util.WrapString("Tag (ignores case)"))
	cmd.Flags().UintSlice("ids", nil, util.WrapString("Comma separated list of ids"))
	cmd.Flags().Uint64("created-from", 0, util.WrapString("Created at or after (unix nanoseconds)"))
	cmd.Flags().Uint64("created-to", 0, util.WrapString("Created at or before (unix nanoseconds, 0 is open)"))
	cmd.Flags().Uint64("updated-from", 0, util.WrapString("Updated at or after (unix nanoseconds)"))
	cmd.Flags().Uint64("updated-to", 0, util.WrapString("Updated at or before (unix nanoseconds, 0 is open)"))
}

func parseFilters(cmd *cobra.Command) ([]entities.GroupFilter, error) {
	var filters []entities.GroupFilter
	if v, _ := cmd.Flags().GetString("name"); v != "" {
		filters = append(filters, entities.GroupByName(v))
	}
	if v, _ := cmd.Flags().GetString("owner"); v != "" {
		filters = append(filters, entities.GroupByOwner(v))
	}
	if v, _ := cmd.Flags().GetString("tag"); v != "" {
		filters = append(filters, entities.GroupByTag(v))
	}
	if raw, _ := cmd.Flags().GetUintSlice("ids"); len(raw) > 0 {
		ids := make([]uint64, len(raw))
		for i, id := range raw {
			ids[i] = uint64(id)
		}
		filters = append(filters, entities.GroupByIDs(ids...))
	}
	if cmd.Flags().Changed("created-from") || cmd.Flags().Changed("created-to") {
		filters = append(filters, entities.GroupCreatedOn(dateRange(cmd, "created")))
	}
	if cmd.Flags().Changed("updated-from") || cmd.Flags().Changed("updated-to") {
		filters = append(filters, entities.GroupUpdatedOn(dateRange(cmd, "updated")))
	}
	return filters, nil
}

func dateRange(cmd *cobra.Command, prefix string) store.DateRange {
	start, _ := cmd.Flags().GetUint64(prefix + "-from")
	end, _ := cmd.Flags().GetUint64(prefix + "-to")
	return store.DateRange{Start: start, End: end}
}

func addValueFlags(cmd *cobra.Command) {
	cmd.Flags().String("description", "", util.WrapString("Description of the group"))
	cmd.Flags().String("owner", "", util.WrapString("Owner principal"))
	cmd.Flags().StringSlice("tags", nil, util.WrapString("Comma separated list of tags"))
	cmd.Flags().StringSlice("members", nil, util.WrapString("Comma separated list of member principals"))
}

// applyValueFlags copies the changed flags into g
func applyValueFlags(cmd *cobra.Command, g *entities.Group) {
	if cmd.Flags().Changed("name") {
		g.Name, _ = cmd.Flags().GetString("name")
	}
	if cmd.Flags().Changed("description") {
		g.Description, _ = cmd.Flags().GetString("description")
	}
	if cmd.Flags().Changed("owner") {
		g.Owner, _ = cmd.Flags().GetString("owner")
	}
	if cmd.Flags().Changed("tags") {
		g.Tags, _ = cmd.Flags().GetStringSlice("tags")
	}
	if cmd.Flags().Changed("members") {
		g.Members, _ = cmd.Flags().GetStringSlice("members")
	}
}

var (
	createCmd = &cobra.Command{
		Use:   "create [name]",
		Short: "Creates a group, the peer allocates its id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			now := util.Now()
			g := entities.Group{Name: args[0], CreatedOn: now, UpdatedOn: now}
			applyValueFlags(cmd, &g)

			ctx, cancel := session.Context()
			defer cancel()
			entry, err := groups.Insert(ctx, g)
			if err != nil {
				return err
			}
			return util.PrintJSON(entry)
		},
	}
	updateCmd = &cobra.Command{
		Use:   "update [id]",
		Short: "Changes the fields given as flags of an existing group",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := util.ParseUint64Key(args[0])
			if err != nil {
				return err
			}

			ctx, cancel := session.Context()
			defer cancel()
			entry, err := groups.Get(ctx, id)
			if err != nil {
				return err
			}

			g := entry.Value
			applyValueFlags(cmd, &g)
			g.UpdatedOn = util.Now()

			if entry, err = groups.Update(ctx, id, g); err != nil {
				return err
			}
			return util.PrintJSON(entry)
		},
	}
)

func init() {
	addValueFlags(createCmd)
	addValueFlags(updateCmd)
	updateCmd.Flags().String("name", "", util.WrapString("New name of the group"))
}
