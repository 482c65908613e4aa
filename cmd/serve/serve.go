package serve

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"github.com/tphakala/foodscan/internal/app"
	"github.com/tphakala/foodscan/internal/logger"
)

const shutdownTimeout = 10 * time.Second

// Command creates the serve command, which runs the HTTP API until interrupted.
func Command(rt *app.Runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server",
		Long:  "Serve the scan, history and preferences API with a live event stream until interrupted.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), rt)
		},
	}

	if err := setupFlags(cmd); err != nil {
		panic(err)
	}

	return cmd
}

// setupFlags configures flags specific to the serve command.
func setupFlags(cmd *cobra.Command) error {
	cmd.Flags().String("listen", "", "Listen address of the HTTP server (default from webserver.listen)")
	cmd.Flags().Bool("metrics", false, "Expose Prometheus metrics")

	if err := viper.BindPFlag("webserver.listen", cmd.Flags().Lookup("listen")); err != nil {
		return fmt.Errorf("error binding flags: %w", err)
	}
	if err := viper.BindPFlag("metrics.enabled", cmd.Flags().Lookup("metrics")); err != nil {
		return fmt.Errorf("error binding flags: %w", err)
	}
	return nil
}

func run(ctx context.Context, rt *app.Runtime) error {
	a := rt.App
	log := a.Logger.Module("serve")

	// MQTT is an optional side channel, the API runs without it
	if err := a.ConnectMQTT(ctx); err != nil {
		log.Warn("MQTT publishing disabled", logger.Error(err))
	}

	server := a.APIServer()
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return server.Start(a.Settings.WebServer.Listen)
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
