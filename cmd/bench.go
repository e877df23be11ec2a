package main

import (
	"context"
	"math/rand"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/kass/go-geofence/pkg/engine"
	"github.com/kass/go-geofence/pkg/models"
)

// benchResult summarises one benchmark run
type benchResult struct {
	QueryType     string
	TotalQueries  int
	Failed        int64
	TotalDuration time.Duration
	AvgDuration   time.Duration
	QueriesPerSec float64
	MinDuration   time.Duration
	MaxDuration   time.Duration
	Hits          int64
}

// benchArea bounds the random query points. Defaults cover roughly the USA.
type benchArea struct {
	minLat, maxLat, minLon, maxLon float64
}

func (a benchArea) random(r *rand.Rand) models.Location {
	return models.Location{
		Lat: a.minLat + r.Float64()*(a.maxLat-a.minLat),
		Lon: a.minLon + r.Float64()*(a.maxLon-a.minLon),
	}
}

// queryFunc runs one query and reports whether it hit a zone
type queryFunc func(ctx context.Context, loc models.Location) (bool, error)

var (
	benchQueries int
	benchWorkers int
	benchType    string
	benchMaxDist float64
	benchBounds  benchArea
)

var benchCmd = &cobra.Command{
	Use:   "bench",
	Short: "Measure check and nearest throughput with random coordinates",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		eng, _, cleanup, err := loadEngine(ctx, cfg)
		defer cleanup()
		if err != nil {
			return err
		}
		if benchWorkers < 1 {
			benchWorkers = 1
		}

		p := newPrinter(cmd.OutOrStdout())
		p.title("Benchmark")
		p.field("zones", eng.Stats().TotalZones)
		p.field("workers", benchWorkers)
		p.field("cpu cores", runtime.NumCPU())

		var types []string
		switch benchType {
		case "check", "nearest":
			types = []string{benchType}
		case "mixed":
			types = []string{"check", "nearest"}
		default:
			return eris.Errorf("unknown query type %q", benchType)
		}

		for _, t := range types {
			res := runBench(ctx, t, benchQuery(eng, t, benchMaxDist), benchQueries, benchWorkers, benchBounds)
			printBench(p, res)
		}
		return nil
	},
}

func init() {
	benchCmd.Flags().IntVarP(&benchQueries, "queries", "q", 10000, "Number of queries to run")
	benchCmd.Flags().IntVarP(&benchWorkers, "workers", "w", runtime.NumCPU(), "Number of concurrent workers")
	benchCmd.Flags().StringVarP(&benchType, "type", "t", "check", "Query type: check, nearest, mixed")
	benchCmd.Flags().Float64Var(&benchMaxDist, "max", 5000, "Maximum distance in meters for nearest queries")
	benchCmd.Flags().Float64Var(&benchBounds.minLat, "min-lat", 25.0, "Minimum latitude for random queries")
	benchCmd.Flags().Float64Var(&benchBounds.maxLat, "max-lat", 49.0, "Maximum latitude for random queries")
	benchCmd.Flags().Float64Var(&benchBounds.minLon, "min-lon", -125.0, "Minimum longitude for random queries")
	benchCmd.Flags().Float64Var(&benchBounds.maxLon, "max-lon", -66.0, "Maximum longitude for random queries")
}

func benchQuery(eng *engine.Engine, queryType string, maxMeters float64) queryFunc {
	if queryType == "nearest" {
		return func(ctx context.Context, loc models.Location) (bool, error) {
			res, err := eng.Nearest(ctx, loc.Lat, loc.Lon, maxMeters)
			return res != nil, err
		}
	}
	return func(ctx context.Context, loc models.Location) (bool, error) {
		res, err := eng.Check(ctx, loc.Lat, loc.Lon)
		if err != nil {
			return false, err
		}
		return res.Contained, nil
	}
}

func runBench(ctx context.Context, queryType string, query queryFunc, numQueries, workers int, area benchArea) benchResult {
	var (
		hits        atomic.Int64
		failed      atomic.Int64
		minDuration = time.Hour
		maxDuration time.Duration
		totalDur    time.Duration
		completed   int
		mu          sync.Mutex
	)

	startTime := time.Now()

	// Worker pool
	queryCh := make(chan struct{}, numQueries)
	var wg sync.WaitGroup

	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func(seed int64) {
			defer wg.Done()
			r := rand.New(rand.NewSource(seed))

			for range queryCh {
				loc := area.random(r)

				queryStart := time.Now()
				hit, err := query(ctx, loc)
				queryDuration := time.Since(queryStart)

				if err != nil {
					failed.Add(1)
					continue
				}
				if hit {
					hits.Add(1)
				}

				mu.Lock()
				completed++
				totalDur += queryDuration
				if queryDuration < minDuration {
					minDuration = queryDuration
				}
				if queryDuration > maxDuration {
					maxDuration = queryDuration
				}
				mu.Unlock()
			}
		}(time.Now().UnixNano() + int64(w))
	}

	for i := 0; i < numQueries; i++ {
		queryCh <- struct{}{}
	}
	close(queryCh)

	wg.Wait()
	totalDuration := time.Since(startTime)

	res := benchResult{
		QueryType:     queryType,
		TotalQueries:  numQueries,
		Failed:        failed.Load(),
		TotalDuration: totalDuration,
		QueriesPerSec: float64(numQueries) / totalDuration.Seconds(),
		MinDuration:   minDuration,
		MaxDuration:   maxDuration,
		Hits:          hits.Load(),
	}
	if completed > 0 {
		res.AvgDuration = totalDur / time.Duration(completed)
	} else {
		res.MinDuration = 0
	}
	return res
}

func printBench(p *printer, res benchResult) {
	p.title("=== " + res.QueryType + " ===")
	p.field("queries", res.TotalQueries)
	p.field("failed", res.Failed)
	p.field("hits", res.Hits)
	p.field("total", res.TotalDuration)
	p.field("average", res.AvgDuration)
	p.field("min", res.MinDuration)
	p.field("max", res.MaxDuration)
	p.field("queries/sec", int64(res.QueriesPerSec))
}
