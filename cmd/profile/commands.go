package profile

import (
	"github.com/ValentinKolb/typedkv/cmd/util"
	"github.com/ValentinKolb/typedkv/lib/entities"
	"github.com/ValentinKolb/typedkv/lib/store"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

// textFilters maps the text filter flags to their constructors
var textFilters = []struct {
	flag string
	help string
	fn   func(string) entities.ProfileFilter
}{
	{"username", "Username (ignores case)", entities.ProfileByUsername},
	{"display-name", "Display name (ignores case)", entities.ProfileByDisplayName},
	{"first-name", "First name (ignores case)", entities.ProfileByFirstName},
	{"last-name", "Last name (ignores case)", entities.ProfileByLastName},
	{"email", "Email (ignores case)", entities.ProfileByEmail},
	{"city", "City (ignores case)", entities.ProfileByCity},
	{"state-or-province", "State or province (ignores case)", entities.ProfileByStateOrProvince},
	{"country", "Country (ignores case)", entities.ProfileByCountry},
}

// topicFilters maps the topic id filter flags to their constructors
var topicFilters = []struct {
	flag string
	help string
	fn   func(uint32) entities.ProfileFilter
}{
	{"skill", "Has the skill topic id", entities.ProfileBySkill},
	{"interest", "Has the interest topic id", entities.ProfileByInterest},
	{"cause", "Has the cause topic id", entities.ProfileByCause},
}

func addFilterFlags(cmd *cobra.Command) {
	for _, f := range textFilters {
		cmd.Flags().String(f.flag, "", util.WrapString(f.help))
	}
	for _, f := range topicFilters {
		cmd.Flags().Uint32(f.flag, 0, util.WrapString(f.help))
	}
	cmd.Flags().Uint64("created-from", 0, util.WrapString("Created at or after (unix nanoseconds)"))
	cmd.Flags().Uint64("created-to", 0, util.WrapString("Created at or before (unix nanoseconds, 0 is open)"))
	cmd.Flags().Uint64("updated-from", 0, util.WrapString("Updated at or after (unix nanoseconds)"))
	cmd.Flags().Uint64("updated-to", 0, util.WrapString("Updated at or before (unix nanoseconds, 0 is open)"))
}

func parseFilters(cmd *cobra.Command) ([]entities.ProfileFilter, error) {
	var filters []entities.ProfileFilter
	for _, f := range textFilters {
		if v, _ := cmd.Flags().GetString(f.flag); v != "" {
			filters = append(filters, f.fn(v))
		}
	}
	for _, f := range topicFilters {
		if cmd.Flags().Changed(f.flag) {
			v, _ := cmd.Flags().GetUint32(f.flag)
			filters = append(filters, f.fn(v))
		}
	}
	if cmd.Flags().Changed("created-from") || cmd.Flags().Changed("created-to") {
		filters = append(filters, entities.ProfileCreatedOn(dateRange(cmd, "created")))
	}
	if cmd.Flags().Changed("updated-from") || cmd.Flags().Changed("updated-to") {
		filters = append(filters, entities.ProfileUpdatedOn(dateRange(cmd, "updated")))
	}
	return filters, nil
}

func dateRange(cmd *cobra.Command, prefix string) store.DateRange {
	start, _ := cmd.Flags().GetUint64(prefix + "-from")
	end, _ := cmd.Flags().GetUint64(prefix + "-to")
	return store.DateRange{Start: start, End: end}
}

func addValueFlags(cmd *cobra.Command) {
	cmd.Flags().String("display-name", "", util.WrapString("Display name"))
	cmd.Flags().String("first-name", "", util.WrapString("First name"))
	cmd.Flags().String("last-name", "", util.WrapString("Last name"))
	cmd.Flags().String("email", "", util.WrapString("Email address"))
	cmd.Flags().String("bio", "", util.WrapString("Short biography"))
	cmd.Flags().String("city", "", util.WrapString("City"))
	cmd.Flags().String("state-or-province", "", util.WrapString("State or province"))
	cmd.Flags().String("country", "", util.WrapString("Country"))
	cmd.Flags().UintSlice("skills", nil, util.WrapString("Comma separated list of skill topic ids"))
	cmd.Flags().UintSlice("interests", nil, util.WrapString("Comma separated list of interest topic ids"))
	cmd.Flags().UintSlice("causes", nil, util.WrapString("Comma separated list of cause topic ids"))
}

// topicIDs reads a topic id list flag
func topicIDs(cmd *cobra.Command, flag string) []uint32 {
	raw, _ := cmd.Flags().GetUintSlice(flag)
	ids := make([]uint32, len(raw))
	for i, id := range raw {
		ids[i] = uint32(id)
	}
	return ids
}

// applyValueFlags copies the changed flags into p
func applyValueFlags(cmd *cobra.Command, p *entities.Profile) {
	fields := map[string]*string{
		"username":          &p.Username,
		"display-name":      &p.DisplayName,
		"first-name":        &p.FirstName,
		"last-name":         &p.LastName,
		"email":             &p.Email,
		"bio":               &p.Bio,
		"city":              &p.City,
		"state-or-province": &p.StateOrProvince,
		"country":           &p.Country,
	}
	for flag, dst := range fields {
		if cmd.Flags().Changed(flag) {
			*dst, _ = cmd.Flags().GetString(flag)
		}
	}
	topics := map[string]*[]uint32{
		"skills":    &p.Skills,
		"interests": &p.Interests,
		"causes":    &p.Causes,
	}
	for flag, dst := range topics {
		if cmd.Flags().Changed(flag) {
			*dst = topicIDs(cmd, flag)
		}
	}
}

var (
	createCmd = &cobra.Command{
		Use:   "create [username]",
		Short: "Creates a profile under a principal (a random one unless --principal is set)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			principal, _ := cmd.Flags().GetString("principal")
			if principal == "" {
				principal = uuid.NewString()
			}

			now := util.Now()
			p := entities.Profile{Username: args[0], CreatedOn: now, UpdatedOn: now}
			applyValueFlags(cmd, &p)

			ctx, cancel := session.Context()
			defer cancel()
			entry, err := profiles.InsertByKey(ctx, principal, p)
			if err != nil {
				return err
			}
			return util.PrintJSON(entry)
		},
	}
	updateCmd = &cobra.Command{
		Use:   "update [principal]",
		Short: "Changes the fields given as flags of an existing profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := session.Context()
			defer cancel()
			entry, err := profiles.Get(ctx, args[0])
			if err != nil {
				return err
			}

			p := entry.Value
			applyValueFlags(cmd, &p)
			p.UpdatedOn = util.Now()

			if entry, err = profiles.Update(ctx, args[0], p); err != nil {
				return err
			}
			return util.PrintJSON(entry)
		},
	}
)

func init() {
	addValueFlags(createCmd)
	createCmd.Flags().String("principal", "", util.WrapString("Principal that owns the profile"))
	addValueFlags(updateCmd)
	updateCmd.Flags().String("username", "", util.WrapString("New username"))
}
