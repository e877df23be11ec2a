package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kass/go-geofence/internal/config"
)

var (
	cfg *config.Config

	sourceFlag string
	pathFlag   string
	bufferFlag float64
)

var rootCmd = &cobra.Command{
	Use:   "geofence",
	Short: "Correctional facility geofencing",
	Long:  `Checks coordinates against buffered correctional facility zones using an R-Tree index.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Optional .env in the working directory
		_ = godotenv.Load(".env")

		c, err := config.Load()
		if err != nil {
			return eris.Wrap(err, "load config")
		}
		applyFlags(cmd, c)
		if err := c.Validate(); err != nil {
			return err
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return eris.Wrap(err, "init logger")
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&sourceFlag, "source", "s", "", "Zone source: geojson, shapefile, gob, postgis")
	rootCmd.PersistentFlags().StringVarP(&pathFlag, "path", "p", "", "Zone file path")
	rootCmd.PersistentFlags().Float64VarP(&bufferFlag, "buffer", "b", 0, "Buffer distance in meters")

	rootCmd.AddCommand(checkCmd, batchCmd, nearestCmd, statsCmd, importCmd, exportCmd, watchCmd, benchCmd)
}

// applyFlags lets explicitly set flags override file and environment config
func applyFlags(cmd *cobra.Command, c *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("source") {
		c.Zones.Source = sourceFlag
	}
	if flags.Changed("path") {
		c.Zones.Path = pathFlag
	}
	if flags.Changed("buffer") {
		c.Zones.BufferMeters = bufferFlag
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
