package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/aretw0/topoedit"
	httpAdapter "github.com/aretw0/topoedit/pkg/adapters/http"
	"github.com/aretw0/topoedit/pkg/observability"
	"github.com/aretw0/topoedit/pkg/session"
)

const shutdownTimeout = 5 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve shared workspaces over HTTP",
	Long: `Starts the JSON API on the configured address. Workspaces are persisted in the
configured snapshot store; with the redis driver and store.lock set, several
servers can share the same workspaces.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		addr := cfg.HTTPAddr
		if cmd.Flags().Changed("addr") {
			addr, _ = cmd.Flags().GetString("addr")
		}

		b, err := openStore(cfg.Store)
		if err != nil {
			return err
		}
		defer b.close()

		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		metrics := observability.NewMetrics(reg)
		hooks := observability.Combine(metrics.Hooks(), observability.LogHooks(logger))

		opts := []session.Option{
			session.WithLogger(logger),
			session.WithWorkspaceOptions(workspaceOptions(topoedit.WithLifecycleHooks(hooks))...),
		}
		if b.locker != nil {
			opts = append(opts, session.WithLocker(b.locker))
		}
		manager := session.NewManager(b.store, opts...)

		srv := &http.Server{
			Addr:              addr,
			Handler:           httpAdapter.NewHandler(manager, httpAdapter.WithGatherer(reg), httpAdapter.WithLogger(logger)),
			ReadHeaderTimeout: 10 * time.Second,
		}

		serverErrors := make(chan error, 1)
		go func() {
			logger.Info("starting server", "addr", addr, "driver", cfg.Store.Driver)
			serverErrors <- srv.ListenAndServe()
		}()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		select {
		case err := <-serverErrors:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return err
		case <-ctx.Done():
			logger.Info("shutting down", "timeout", shutdownTimeout)
			sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(sctx); err != nil {
				logger.Warn("graceful shutdown did not complete", "error", err)
				return srv.Close()
			}
			logger.Info("server stopped")
			return nil
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("addr", "", "Listen address (overrides http_addr)")
}
