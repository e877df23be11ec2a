package main

import (
	"github.com/spf13/cobra"
)

var (
	nearestLat  float64
	nearestLon  float64
	nearestMax  float64
	nearestJSON bool
)

var nearestCmd = &cobra.Command{
	Use:   "nearest",
	Short: "Find the closest buffered zone to a coordinate",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		eng, _, cleanup, err := loadEngine(ctx, cfg)
		defer cleanup()
		if err != nil {
			return err
		}

		maxMeters := cfg.Nearest.MaxDistanceMeters
		if cmd.Flags().Changed("max") {
			maxMeters = nearestMax
		}

		res, err := eng.Nearest(ctx, nearestLat, nearestLon, maxMeters)
		if err != nil {
			return err
		}

		if nearestJSON {
			return printJSON(cmd.OutOrStdout(), res)
		}
		newPrinter(cmd.OutOrStdout()).nearest(res, maxMeters)
		return nil
	},
}

func init() {
	nearestCmd.Flags().Float64Var(&nearestLat, "lat", 0, "Latitude in degrees")
	nearestCmd.Flags().Float64Var(&nearestLon, "lon", 0, "Longitude in degrees")
	nearestCmd.Flags().Float64Var(&nearestMax, "max", 0, "Maximum distance in meters (default from config)")
	nearestCmd.Flags().BoolVar(&nearestJSON, "json", false, "Print the result as JSON")
	_ = nearestCmd.MarkFlagRequired("lat")
	_ = nearestCmd.MarkFlagRequired("lon")
}
