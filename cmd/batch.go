package main

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/kass/go-geofence/pkg/models"
)

var (
	batchFile string
	batchJSON bool
)

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Check many coordinates read as lat,lon CSV",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		in := cmd.InOrStdin()
		if batchFile != "-" {
			f, err := os.Open(batchFile)
			if err != nil {
				return eris.Wrapf(err, "open %s", batchFile)
			}
			defer func() { _ = f.Close() }()
			in = f
		}

		locs, err := parseLocations(in)
		if err != nil {
			return err
		}

		eng, _, cleanup, err := loadEngine(ctx, cfg)
		defer cleanup()
		if err != nil {
			return err
		}

		items, err := eng.BatchCheck(ctx, locs)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if batchJSON {
			type row struct {
				Index  int                       `json:"index"`
				Result *models.ContainmentResult `json:"result,omitempty"`
				Error  string                    `json:"error,omitempty"`
			}
			rows := make([]row, len(items))
			for i, item := range items {
				rows[i] = row{Index: item.Index, Result: item.Result}
				if item.Err != nil {
					rows[i].Error = item.Err.Error()
				}
			}
			return printJSON(out, rows)
		}

		p := newPrinter(out)
		blocked := 0
		for _, item := range items {
			if item.Err != nil {
				fmt.Fprintf(out, "#%d %s\n", item.Index, p.render(blockStyle, "error: "+item.Err.Error()))
				continue
			}
			if item.Result.Contained {
				blocked++
			}
			fmt.Fprintf(out, "#%d ", item.Index)
			p.containment(item.Result)
		}
		p.field("checked", len(items))
		p.field("blocked", blocked)
		return nil
	},
}

func init() {
	batchCmd.Flags().StringVarP(&batchFile, "file", "f", "-", "CSV file with lat,lon rows, - for stdin")
	batchCmd.Flags().BoolVar(&batchJSON, "json", false, "Print results as JSON")
}

// parseLocations reads lat,lon rows. A first row that does not parse as
// numbers is treated as a header.
func parseLocations(r io.Reader) ([]models.Location, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	reader.Comment = '#'

	var locs []models.Location
	for line := 1; ; line++ {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, eris.Wrapf(err, "read line %d", line)
		}
		if len(row) < 2 {
			return nil, eris.Errorf("line %d: expected lat,lon", line)
		}

		lat, latErr := strconv.ParseFloat(strings.TrimSpace(row[0]), 64)
		lon, lonErr := strconv.ParseFloat(strings.TrimSpace(row[1]), 64)
		if latErr != nil || lonErr != nil {
			if line == 1 {
				continue
			}
			return nil, eris.Errorf("line %d: invalid coordinate %q,%q", line, row[0], row[1])
		}
		locs = append(locs, models.Location{Lat: lat, Lon: lon})
	}
	return locs, nil
}
