package notification

import (
	"fmt"

	"github.com/ValentinKolb/typedkv/cmd/util"
	"github.com/ValentinKolb/typedkv/lib/entities"
	"github.com/ValentinKolb/typedkv/lib/store"
	"github.com/spf13/cobra"
)

func addFilterFlags(cmd *cobra.Command) {
	cmd.Flags().String("type", "", util.WrapString("Notification type (ignores case)"))
	cmd.Flags().String("sender", "", util.WrapString("Sender principal"))
	cmd.Flags().String("processed-by", "", util.WrapString("Principal that processed the notification"))
	cmd.Flags().Bool("unprocessed", false, util.WrapString("Only notifications nobody processed yet"))
	cmd.Flags().Bool("actionable", false, util.WrapString("Actionable or not (only applied if set)"))
	cmd.Flags().UintSlice("ids", nil, util.WrapString("Comma separated list of ids"))
}

func parseFilters(cmd *cobra.Command) ([]entities.NotificationFilter, error) {
	var filters []entities.NotificationFilter
	if v, _ := cmd.Flags().GetString("type"); v != "" {
		filters = append(filters, entities.NotificationByType(v))
	}
	if v, _ := cmd.Flags().GetString("sender"); v != "" {
		filters = append(filters, entities.NotificationBySender(v))
	}

	processedBy, _ := cmd.Flags().GetString("processed-by")
	unprocessed, _ := cmd.Flags().GetBool("unprocessed")
	switch {
	case processedBy != "" && unprocessed:
		return nil, fmt.Errorf("--processed-by and --unprocessed exclude each other")
	case processedBy != "":
		filters = append(filters, entities.NotificationProcessedBy(processedBy))
	case unprocessed:
		filters = append(filters, entities.NotificationProcessedBy(""))
	}

	if cmd.Flags().Changed("actionable") {
		v, _ := cmd.Flags().GetBool("actionable")
		filters = append(filters, entities.NotificationActionable(v))
	}
	if raw, _ := cmd.Flags().GetUintSlice("ids"); len(raw) > 0 {
		ids := make([]uint64, len(raw))
		for i, id := range raw {
			ids[i] = uint64(id)
		}
		filters = append(filters, entities.NotificationByIDs(ids...))
	}
	return filters, nil
}

var (
	createCmd = &cobra.Command{
		Use:   "create [type] [receiver]",
		Short: "Creates a notification, the peer allocates its id",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			now := util.Now()
			n := entities.Notification{Type: args[0], Receiver: args[1], CreatedOn: now, UpdatedOn: now}
			n.Sender, _ = cmd.Flags().GetString("sender")
			n.Content, _ = cmd.Flags().GetString("content")
			n.Actionable, _ = cmd.Flags().GetBool("actionable")

			ctx, cancel := session.Context()
			defer cancel()
			entry, err := notifications.Insert(ctx, n)
			if err != nil {
				return err
			}
			return util.PrintJSON(entry)
		},
	}
	processCmd = &cobra.Command{
		Use:   "process [principal] [id...]",
		Short: "Marks notifications as processed by principal (all or none are updated)",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			principal := args[0]
			ids := make([]uint64, 0, len(args)-1)
			for _, arg := range args[1:] {
				id, err := util.ParseUint64Key(arg)
				if err != nil {
					return err
				}
				ids = append(ids, id)
			}

			ctx, cancel := session.Context()
			defer cancel()
			entries, err := notifications.GetMany(ctx, ids)
			if err != nil {
				return err
			}
			if len(entries) != len(ids) {
				return store.NotFound().WithMethod("process").
					WithMessagef("found %d of %d notifications", len(entries), len(ids))
			}

			now := util.Now()
			for i := range entries {
				entries[i].Value.ProcessedBy = principal
				entries[i].Value.UpdatedOn = now
			}
			updated, err := notifications.UpdateMany(ctx, entries)
			if err != nil {
				return err
			}
			return util.PrintJSON(updated)
		},
	}
)

func init() {
	createCmd.Flags().String("sender", "", util.WrapString("Sender principal"))
	createCmd.Flags().String("content", "", util.WrapString("Content of the notification"))
	createCmd.Flags().Bool("actionable", false, util.WrapString("Whether the receiver has to act on the notification"))
}
