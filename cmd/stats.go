package main

import (
	"github.com/spf13/cobra"
)

var statsJSON bool

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show statistics for the loaded zones",
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, _, cleanup, err := loadEngine(cmd.Context(), cfg)
		defer cleanup()
		if err != nil {
			return err
		}

		stats := eng.Stats()
		if statsJSON {
			return printJSON(cmd.OutOrStdout(), stats)
		}
		newPrinter(cmd.OutOrStdout()).stats(stats)
		return nil
	},
}

func init() {
	statsCmd.Flags().BoolVar(&statsJSON, "json", false, "Print statistics as JSON")
}
