package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/CtrlAltQ/jobseek-sub001/internal/activity"
	"github.com/CtrlAltQ/jobseek-sub001/internal/config"
	"github.com/CtrlAltQ/jobseek-sub001/internal/logger"
	"github.com/CtrlAltQ/jobseek-sub001/internal/metrics"
	"github.com/CtrlAltQ/jobseek-sub001/internal/server"
	storefactory "github.com/CtrlAltQ/jobseek-sub001/internal/store/factory"
	"github.com/CtrlAltQ/jobseek-sub001/internal/stream"
)

func createServeCommand(gf *GlobalFlags, sf *ServeFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the dashboard API server",
		RunE: func(_ *cobra.Command, _ []string) error {
			return runServe(gf, sf)
		},
	}
	cmd.Flags().StringVar(&sf.Listen, "listen", "", "listen address (overrides config)")
	cmd.Flags().StringVar(&sf.StoreDSN, "store", "", "store DSN (overrides config)")
	cmd.Flags().StringVar(&sf.APIKey, "api-key", "", "agent ingestion API key (overrides config)")
	return cmd
}

func runServe(gf *GlobalFlags, sf *ServeFlags) error {
	fc, err := config.Load(gf.ConfigPath)
	if err != nil {
		return err
	}
	if sf.Listen != "" {
		fc.Server.Listen = sf.Listen
	}
	if sf.StoreDSN != "" {
		fc.Store.DSN = sf.StoreDSN
	}
	if sf.APIKey != "" {
		fc.Auth.APIKey = sf.APIKey
	}
	if fc.Auth.APIKey == "" {
		fc.Auth.APIKey = os.Getenv("JOBSEEK_API_KEY")
	}

	log, closer := logger.New(fc.Log)
	if closer != nil {
		defer func() { _ = closer.Close() }()
	}
	slog.SetDefault(log)

	if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
		return fmt.Errorf("register metrics: %w", err)
	}

	st, err := storefactory.NewFromDSN(fc.Store.DSN)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer func() { _ = st.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	err = st.EnsureSchema(ctx)
	cancel()
	if err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}

	var sink activity.Sink
	if fc.Activity.DSN != "" {
		sink, err = activity.NewSinkFromDSN(fc.Activity.DSN)
		if err != nil {
			return fmt.Errorf("open activity sink: %w", err)
		}
		defer func() { _ = sink.Close() }()
	}

	registry := stream.NewRegistry()
	bcast := stream.NewBroadcaster(registry, fc.Stream.HeartbeatInterval, log)
	bcast.EnsureStarted()
	defer bcast.Stop()

	router := server.NewRouter(server.Options{
		Store:        st,
		Registry:     registry,
		Broadcaster:  bcast,
		Activity:     sink,
		APIKey:       fc.Auth.APIKey,
		Logger:       log,
		BasePath:     fc.Server.BasePath,
		CORSOrigin:   fc.Server.CORSOrigin,
		ClientBuffer: fc.Stream.ClientBuffer,
	})
	srv := server.NewServer(fc.Server.Listen, router)
	log.Info("jobseek serving", "listen", fc.Server.Listen, "store", fc.Store.DSN)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
