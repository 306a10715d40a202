package website

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"time"

	"github.com/atelierhq/assetgate/src/billing"
	"github.com/atelierhq/assetgate/src/config"
	"github.com/atelierhq/assetgate/src/devstore"
	"github.com/atelierhq/assetgate/src/jobs"
	"github.com/atelierhq/assetgate/src/logging"
	"github.com/atelierhq/assetgate/src/metastore"
	"github.com/atelierhq/assetgate/src/objectstore"
	"github.com/spf13/cobra"
)

var WebsiteCommand = &cobra.Command{
	Short: "Run the asset gateway",
	Run: func(cmd *cobra.Command, args []string) {
		defer logging.LogPanics(nil)
		logging.Info().Msg("Hello, assetgate!")

		var wg sync.WaitGroup

		// Start background jobs
		wg.Add(1)
		backgroundJobs := jobs.Jobs{}
		if config.Config.Env == config.Dev {
			// In dev the object store endpoint points at our own
			// filesystem-backed stand-in.
			backgroundJobs = append(backgroundJobs,
				devstore.StartServer(config.Config.DevStore.Addr, config.Config.DevStore.Folder),
			)
		}

		meta := metastore.NewClient(config.Config.Metadata)
		objects, err := objectstore.NewS3(context.Background(), config.Config.ObjectStore)
		if err != nil {
			logging.Fatal().Err(err).Msg("Failed to create object store client")
		}
		bill := &billing.Billing{
			Stripe: billing.NewClient(config.Config.Stripe.SecretKey),
			Meta:   meta,
			Cfg:    config.Config.Stripe,
		}

		// Create HTTP server
		wg.Add(1)
		server := http.Server{
			Addr:    config.Config.Addr,
			Handler: NewWebsiteRoutes(meta, objects, bill),
		}
		go func() {
			logging.Info().Str("addr", config.Config.Addr).Msg("Serving the asset gateway")
			serverErr := server.ListenAndServe()
			if !errors.Is(serverErr, http.ErrServerClosed) {
				logging.Error().Err(serverErr).Msg("Server shut down unexpectedly")
			}
			// The wg.Done() happens in the shutdown logic below.
		}()

		// Wait for SIGINT in the background and trigger graceful shutdown
		signals := make(chan os.Signal, 1)
		signal.Notify(signals, os.Interrupt)
		go func() {
			<-signals // First SIGINT (start shutdown)
			logging.Info().Msg("Shutting down the asset gateway")

			const timeout = 10 * time.Second

			go func() {
				logging.Info().Msg("Shutting down background jobs...")
				unfinished := backgroundJobs.CancelAndWait(timeout)
				if len(unfinished) == 0 {
					logging.Info().Msg("Background jobs closed gracefully")
				} else {
					logging.Warn().Strs("Unfinished", unfinished).Msg("Background jobs did not finish by the deadline")
				}
				wg.Done()
			}()

			// Gracefully shut down the HTTP server
			go func() {
				timeoutCtx, cancel := context.WithTimeout(context.Background(), timeout)
				defer cancel()
				err := server.Shutdown(timeoutCtx)
				if err != nil {
					logging.Warn().Err(err).Msg("Server did not shut down gracefully")
				}
				wg.Done()
			}()

			<-signals // Second SIGINT (force quit)
			logging.Warn().Strs("Unfinished background jobs", backgroundJobs.ListUnfinished()).Msg("Forcibly killed the asset gateway")
			os.Exit(1)
		}()

		// Wait for all of the above to finish, then exit
		wg.Wait()
	},
}
