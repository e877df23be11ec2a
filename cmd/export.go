package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/kass/go-geofence/pkg/models"
	"github.com/kass/go-geofence/pkg/source"
	"github.com/kass/go-geofence/pkg/zones"
)

var (
	exportOut      string
	exportOriginal bool
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write the buffered zones as a GeoJSON FeatureCollection",
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, _, cleanup, err := loadEngine(cmd.Context(), cfg)
		defer cleanup()
		if err != nil {
			return err
		}

		records := exportRecords(eng.Registry().Snapshot(), !exportOriginal)

		if exportOut == "-" {
			return source.WriteGeoJSON(cmd.OutOrStdout(), records)
		}

		f, err := os.Create(exportOut)
		if err != nil {
			return eris.Wrapf(err, "create %s", exportOut)
		}
		if err := source.WriteGeoJSON(f, records); err != nil {
			_ = f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return eris.Wrapf(err, "close %s", exportOut)
		}

		newPrinter(cmd.OutOrStdout()).field("exported", len(records))
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "-", "Output file, - for stdout")
	exportCmd.Flags().BoolVar(&exportOriginal, "original", false, "Export the unbuffered boundaries")
}

// exportRecords returns one record per zone, with the buffered boundary
// when buffered is set.
func exportRecords(snap *zones.Snapshot, buffered bool) []models.ZoneRecord {
	records := make([]models.ZoneRecord, 0, snap.Len())
	for _, z := range snap.Zones() {
		rec := z.Record()
		if buffered {
			rec.Boundary = z.Buffered().Rings()
		}
		records = append(records, rec)
	}
	return records
}
