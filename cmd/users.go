package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/s0up4200/pagerduty/filter"
	"github.com/s0up4200/pagerduty/pagerduty"
)

var (
	filterExpr string
	preset     string
	allUsers   bool
	usersLimit int
)

// usersCmd represents the users command
var usersCmd = &cobra.Command{
	Use:   "users",
	Short: "List users as name and email",
	Long: `List the users of your PagerDuty account, one "name: email" per line.

Results can be narrowed with a filter expression or a preset from the config:
  pagerduty users --filter 'email endsWith "@example.com"'
  pagerduty users --preset admins --all`,
	PreRunE: initializeApp,
	RunE:    runUsers,
}

func init() {
	rootCmd.AddCommand(usersCmd)

	usersCmd.Flags().StringVarP(&filterExpr, "filter", "f", "", "filter expression")
	usersCmd.Flags().StringVarP(&preset, "preset", "p", "", "use a preset filter from config")
	usersCmd.Flags().BoolVar(&allUsers, "all", false, "fetch every page instead of the first")
	usersCmd.Flags().IntVar(&usersLimit, "limit", pagerduty.DefaultLimit, "page size")
}

func runUsers(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	opts := pagerduty.Options{"limit": usersLimit}

	var users pagerduty.Array
	if allUsers {
		var err error
		users, err = client.GetAll(ctx, "users", "users", opts)
		if err != nil {
			return err
		}
	} else {
		doc, err := client.Get(ctx, "users", opts)
		if err != nil {
			return err
		}
		users, _ = doc.GetArray("users")
	}

	users, err := filterUsers(users)
	if err != nil {
		return err
	}

	return printUsers(cmd.OutOrStdout(), users)
}

// filterUsers applies the command line expression, or else the named preset
func filterUsers(users pagerduty.Array) (pagerduty.Array, error) {
	switch {
	case filterExpr != "":
		f, err := filters.Compile(filterExpr)
		if err != nil {
			return nil, fmt.Errorf("invalid filter expression: %w", err)
		}
		logger.Info().Str("filter", f.Expression()).Int("users", len(users)).Msg("Filtering users")
		return filter.Apply(f, users)
	case preset != "":
		logger.Info().Str("preset", preset).Int("users", len(users)).Msg("Filtering users")
		matched, err := filters.EvaluateFilter(preset, users)
		if err != nil {
			return nil, fmt.Errorf("preset from config: %w", err)
		}
		return matched, nil
	}
	return users, nil
}

func printUsers(w io.Writer, users pagerduty.Array) error {
	for _, element := range users {
		user, ok := element.(pagerduty.Object)
		if !ok {
			continue
		}
		name, _ := user.GetString("name")
		email, _ := user.GetString("email")
		if _, err := fmt.Fprintf(w, "%s: %s\n", name, email); err != nil {
			return err
		}
	}
	return nil
}
