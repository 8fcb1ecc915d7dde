package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/adlens/adlens/internal/httpx"
	"github.com/adlens/adlens/internal/models"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var cfgFile string
	root := &cobra.Command{
		Use:           "adlens",
		Short:         "Ad performance report cache service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&cfgFile, "config", "", "path to a YAML config file")
	root.AddCommand(newServeCmd(&cfgFile), newRefreshCmd(&cfgFile), newSnapshotCmd(&cfgFile))
	return root
}

func newServeCmd(cfgFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the health gauge poller",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildApp(*cfgFile)
			if err != nil {
				return err
			}
			defer a.close()

			srv := &http.Server{
				Addr:              ":" + a.cfg.Port,
				Handler:           httpx.NewRouter(a.log, a.svc, a.metrics.Handler()),
				ReadHeaderTimeout: 10 * time.Second,
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			// Keeps the Prometheus freshness gauges current. The poll
			// interval is a consumer concern, distinct from the much
			// coarser staleness threshold.
			go func() {
				ticker := time.NewTicker(a.cfg.MonitorInterval)
				defer ticker.Stop()
				for {
					select {
					case <-ctx.Done():
						return
					case <-ticker.C:
						if _, err := a.svc.MonitoringSnapshot(); err != nil {
							a.log.Error("monitoring poll failed", "err", err.Error())
						}
					}
				}
			}()

			go func() {
				<-ctx.Done()
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				srv.Shutdown(shutdownCtx)
			}()

			a.log.Info("starting server", "port", a.cfg.Port)
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				return err
			}
			return nil
		},
	}
}

func newRefreshCmd(cfgFile *string) *cobra.Command {
	var staleOnly bool
	cmd := &cobra.Command{
		Use:   "refresh",
		Short: "Run one bulk refresh over all known cache keys and print the summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildApp(*cfgFile)
			if err != nil {
				return err
			}
			defer a.close()

			var keys []models.CacheKey
			if staleOnly {
				keys, err = a.svc.StaleKeys()
				if err != nil {
					return err
				}
			}
			summary, err := a.svc.RefreshAll(cmd.Context(), keys)
			if err != nil {
				return err
			}
			printJSON(cmd, summary)
			if summary.Failed > 0 {
				return fmt.Errorf("%d of %d refresh jobs failed", summary.Failed, summary.Total)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&staleOnly, "stale", false, "refresh only entries past the staleness threshold")
	return cmd
}

func newSnapshotCmd(cfgFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "snapshot",
		Short: "Print the cache monitoring snapshot as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildApp(*cfgFile)
			if err != nil {
				return err
			}
			defer a.close()

			snap, err := a.svc.MonitoringSnapshot()
			if err != nil {
				return err
			}
			printJSON(cmd, snap)
			return nil
		},
	}
}

func printJSON(cmd *cobra.Command, v any) {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	enc.Encode(v)
}
