package main

import (
	"github.com/spf13/cobra"
)

var (
	checkLat  float64
	checkLon  float64
	checkJSON bool
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check whether a coordinate lies inside a buffered zone",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		eng, _, cleanup, err := loadEngine(ctx, cfg)
		defer cleanup()
		if err != nil {
			return err
		}

		res, err := eng.Check(ctx, checkLat, checkLon)
		if err != nil {
			return err
		}

		if checkJSON {
			return printJSON(cmd.OutOrStdout(), res)
		}
		newPrinter(cmd.OutOrStdout()).containment(res)
		return nil
	},
}

func init() {
	checkCmd.Flags().Float64Var(&checkLat, "lat", 0, "Latitude in degrees")
	checkCmd.Flags().Float64Var(&checkLon, "lon", 0, "Longitude in degrees")
	checkCmd.Flags().BoolVar(&checkJSON, "json", false, "Print the result as JSON")
	_ = checkCmd.MarkFlagRequired("lat")
	_ = checkCmd.MarkFlagRequired("lon")
}
