package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kass/go-geofence/internal/metrics"
	"github.com/kass/go-geofence/internal/reload"
)

var watchInterval time.Duration

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Keep zones loaded and reload them on change or on a Redis trigger",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		eng, src, cleanup, err := loadEngine(ctx, cfg)
		defer cleanup()
		if err != nil {
			return err
		}

		interval := time.Duration(cfg.Zones.ReloadIntervalSecs) * time.Second
		if cmd.Flags().Changed("interval") {
			interval = watchInterval
		}

		opts := []reload.Option{reload.WithInterval(interval)}
		if cfg.Zones.Source != "postgis" {
			opts = append(opts, reload.WithFile(cfg.Zones.Path))
		}
		w := reload.New(src, eng, cfg.Zones.BufferMeters, opts...)

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error { return w.Run(gctx) })

		if cfg.Redis.Addr != "" {
			g.Go(func() error {
				return reload.Subscribe(gctx, reload.RedisConfig{
					Addr:     cfg.Redis.Addr,
					Password: cfg.Redis.Password,
					DB:       cfg.Redis.DB,
					Channel:  cfg.Redis.Channel,
				}, w)
			})
		}

		if cfg.Metrics.Addr != "" {
			g.Go(func() error { return serveMetrics(gctx, cfg.Metrics.Addr) })
		}

		if interval == 0 && cfg.Redis.Addr == "" {
			zap.L().Warn("watch: no reload interval or redis trigger configured")
		}

		p := newPrinter(cmd.OutOrStdout())
		p.stats(eng.Stats())

		err = g.Wait()
		reloads, fails := w.Counts()
		p.field("reloads", reloads)
		p.field("failed reloads", fails)
		return err
	},
}

func init() {
	watchCmd.Flags().DurationVar(&watchInterval, "interval", 0, "Reload interval (default from config)")
}

// serveMetrics serves /metrics until ctx is done
func serveMetrics(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	zap.L().Info("watch: serving metrics", zap.String("addr", addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return eris.Wrapf(err, "watch: metrics server %s", addr)
	}
	return nil
}
