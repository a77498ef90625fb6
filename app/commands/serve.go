package commands

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/amirphl/demo-sequences/app/bootstrap"
	"github.com/amirphl/demo-sequences/metrics"
	"github.com/spf13/cobra"
)

var errMetricsDisabled = errors.New("metrics are disabled, set METRICS_ENABLED=true to serve them")

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve prometheus metrics until interrupted.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRuntime(cmd, func(ctx context.Context, rt *bootstrap.Runtime) error {
			cfg := rt.Config.Metrics
			if !cfg.Enabled {
				return errMetricsDisabled
			}
			srv, err := metrics.NewServer(fmt.Sprintf(":%d", cfg.Port), cfg.Path)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if rt.Redis != nil {
				stopMonitor := bootstrap.StartCacheHealthMonitor(ctx, rt.Redis, 30*time.Second, rt.Logger)
				defer stopMonitor()
			}

			rt.Logger.WithField("address", srv.Addr()).Info("Metrics server starting")
			errc := srv.Start()

			select {
			case err := <-errc:
				return err
			case <-ctx.Done():
			}
			rt.Logger.Info("Shutting down gracefully...")

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
