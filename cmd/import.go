package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kass/go-geofence/pkg/postgis"
	"github.com/kass/go-geofence/pkg/source"
	"github.com/kass/go-geofence/pkg/zones"
)

var (
	importOut       string
	importToPostGIS bool
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Validate the configured zones and save them as gob or into PostGIS",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		src, cleanup, err := buildSource(ctx, cfg)
		defer cleanup()
		if err != nil {
			return err
		}

		records, err := src.Load(ctx)
		if err != nil {
			return eris.Wrap(err, "load zones")
		}

		snap, err := zones.BuildSnapshot(records, cfg.Zones.BufferMeters)
		if err != nil {
			return err
		}
		for _, rej := range snap.Rejected() {
			zap.L().Warn("skipping invalid zone", zap.String("id", rej.ID), zap.Error(rej.Err))
		}
		valid := snap.Records()

		p := newPrinter(cmd.OutOrStdout())
		p.field("records", len(records))
		p.field("valid", len(valid))
		p.field("rejected", len(snap.Rejected()))

		if importOut != "" {
			if err := source.SaveGob(importOut, valid); err != nil {
				return err
			}
			p.field("saved", importOut)
		}

		if importToPostGIS {
			if cfg.PostGIS.DatabaseURL == "" {
				return eris.New("postgis.database_url is not set")
			}
			store, err := postgis.Connect(ctx, cfg.PostGIS.DatabaseURL, cfg.PostGIS.Table)
			if err != nil {
				return err
			}
			defer store.Close()

			if err := store.InitSchema(ctx); err != nil {
				return err
			}
			n, err := store.Upsert(ctx, valid)
			if err != nil {
				return err
			}
			p.field("upserted", fmt.Sprintf("%d into %s", n, cfg.PostGIS.Table))
		}
		return nil
	},
}

func init() {
	importCmd.Flags().StringVarP(&importOut, "out", "o", "zones.gob", "Gob output file, empty to skip")
	importCmd.Flags().BoolVar(&importToPostGIS, "to-postgis", false, "Also upsert zones into the PostGIS table")
}
