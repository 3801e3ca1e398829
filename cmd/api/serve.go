package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/xelth-com/ecklinen/internal/audit"
	"github.com/xelth-com/ecklinen/internal/cache"
	"github.com/xelth-com/ecklinen/internal/database"
	"github.com/xelth-com/ecklinen/internal/handlers"
	"github.com/xelth-com/ecklinen/internal/metrics"
	"github.com/xelth-com/ecklinen/internal/projection"
	"github.com/xelth-com/ecklinen/internal/repository"
	"github.com/xelth-com/ecklinen/internal/rfid"
	"github.com/xelth-com/ecklinen/internal/scan"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	log, err := newLogger(cfg.Logging)
	if err != nil {
		return err
	}
	defer log.Sync() //nolint:errcheck

	db, err := database.Connect(cfg.Database, log)
	if err != nil {
		return err
	}
	if err := db.Migrate(); err != nil {
		_ = db.Close()
		return err
	}

	snapshots, closeCache, err := cache.New(cfg.Cache, cfg.Redis)
	if err != nil {
		_ = db.Close()
		return err
	}
	log.Infow("snapshot cache ready", "backend", cfg.Cache.Backend, "ttl", cfg.Cache.TTL)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	store := repository.NewStore(db.DB)
	matcher := rfid.NewMatcher(snapshots, log)
	auditWriter := audit.NewWriter(store.Audit(), cfg.Scan.AuditBuffer, log)
	svc := scan.NewService(
		store,
		matcher,
		projection.NewProjector(matcher, log),
		auditWriter,
		metrics.NewScan(reg),
		scan.OptionsFrom(cfg.Scan),
		log,
	)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handlers.NewRouter(svc, cfg.JWTSecret, reg, log),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	serverErr := make(chan error, 1)
	go func() {
		log.Infow("server starting", "port", cfg.Port, "env", cfg.NodeEnv)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case sig := <-shutdown:
		log.Infow("shutting down", "signal", sig.String())
	case err := <-serverErr:
		if err != nil {
			log.Errorw("server failed", "error", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Warnw("http server shutdown", "error", err)
	}

	// Flush queued audit entries before the database goes away
	auditWriter.Close()

	if err := closeCache(); err != nil {
		log.Warnw("snapshot cache close", "error", err)
	}
	if err := db.Close(); err != nil {
		log.Warnw("database close", "error", err)
	}
	log.Info("shutdown complete")
	return nil
}
