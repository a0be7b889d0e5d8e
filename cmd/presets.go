package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// presetsCmd represents the presets command
var presetsCmd = &cobra.Command{
	Use:   "presets",
	Short: "List the filter presets from the config",
	Long: `List every preset under filter.presets as "name: expression", sorted by name.
Use one with: pagerduty users --preset NAME`,
	PreRunE: initializeApp,
	RunE:    runPresets,
}

func init() {
	rootCmd.AddCommand(presetsCmd)
}

func runPresets(cmd *cobra.Command, args []string) error {
	names := filters.ListFilters()
	if len(names) == 0 {
		_, err := fmt.Fprintln(cmd.OutOrStdout(), "No presets configured")
		return err
	}

	for _, name := range names {
		f, ok := filters.GetFilter(name)
		if !ok {
			continue
		}
		if _, err := fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", name, f.Expression()); err != nil {
			return err
		}
	}
	return nil
}
