package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/claude/fitarch/internal/config"
	"github.com/claude/fitarch/internal/logging"
	"github.com/claude/fitarch/internal/metrics"
	"github.com/claude/fitarch/internal/plans"
	"github.com/claude/fitarch/internal/plans/alpha"
	"github.com/claude/fitarch/internal/pose"
	"github.com/claude/fitarch/internal/server"
	"github.com/claude/fitarch/internal/storage"
	"github.com/claude/fitarch/internal/stores"
	"github.com/claude/fitarch/internal/workout"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/multierr"
	"tailscale.com/tsnet"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	migrationsPath := flag.String("migrations", "migrations", "path to PostgreSQL migrations")
	migrateOnly := flag.Bool("migrate-only", false, "run migrations and exit")
	flag.Parse()

	bootLog := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	bootLog.Info("fitarch starting", "version", Version)

	cfg, err := config.Load(*configPath)
	if err != nil {
		bootLog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	log, logCloser, err := logging.New(logging.Params{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		File:   cfg.Logging.File,
		Stdout: true,
	})
	if err != nil {
		bootLog.Error("failed to set up logging", "error", err)
		os.Exit(1)
	}

	if *migrateOnly {
		if cfg.Database.Driver != config.DriverPostgres {
			log.Info("migrate-only: nothing to do", "driver", cfg.Database.Driver)
			return
		}
		if err := storage.RunMigrations(cfg.Database.DSN(), *migrationsPath); err != nil {
			log.Error("migration failed", "error", err)
			os.Exit(1)
		}
		log.Info("migrate-only: exiting")
		return
	}

	ctx := context.Background()
	store, err := stores.Open(ctx, cfg.Database, *migrationsPath, log)
	if err != nil {
		log.Error("failed to open store", "error", err)
		os.Exit(1)
	}

	planSource, err := newPlanSource(cfg.Session)
	if err != nil {
		log.Error("failed to load plan", "error", err)
		os.Exit(1)
	}

	var poolStats []prometheus.Collector
	if pg, ok := store.(*storage.DB); ok {
		poolStats = append(poolStats, pg.Collector(cfg.Database.Name))
	}
	reg := metrics.SetupPrometheus(poolStats...)
	m := metrics.NewManager("fitarch", "server", reg)

	poses := pose.NewMockSource(time.Now().UnixNano())
	sessions := workout.NewRegistry(func(userID string) *workout.Runner {
		return workout.NewRunner(log.With("user", userID),
			workout.WithObserver(m),
			workout.WithPoseSource(poses),
		)
	})

	srv := server.New(sessions, planSource, store, cfg.Auth.APIKey, log)
	srv.SetMetrics(m, reg)

	// Start server: tsnet or plain HTTP
	var listener net.Listener
	var tsServer *tsnet.Server

	if cfg.Tailscale.Enabled {
		tsServer = &tsnet.Server{
			Hostname: cfg.Tailscale.Hostname,
			Dir:      cfg.Tailscale.StateDir,
		}
		if err := tsServer.Start(); err != nil {
			log.Error("tsnet start failed", "error", err)
			os.Exit(1)
		}

		lc, err := tsServer.LocalClient()
		if err != nil {
			log.Error("tsnet local client failed", "error", err)
			os.Exit(1)
		}
		srv.SetTailscale(lc)

		listener, err = tsServer.Listen("tcp", ":80")
		if err != nil {
			log.Error("tsnet listen failed", "error", err)
			os.Exit(1)
		}
		log.Info("tsnet server starting", "hostname", cfg.Tailscale.Hostname)
	} else {
		addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		listener, err = net.Listen("tcp", addr)
		if err != nil {
			log.Error("listen failed", "addr", addr, "error", err)
			os.Exit(1)
		}
		log.Info("server starting", "addr", addr, "mode", "dev (no tailscale)")
	}

	httpSrv := &http.Server{Handler: srv, ReadHeaderTimeout: 10 * time.Second}

	go func() {
		if err := httpSrv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	log.Info("shutting down", "signal", sig)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	err = httpSrv.Shutdown(shutdownCtx)
	// Ends open sessions without saving and closes WebSocket streams.
	sessions.Close()
	err = multierr.Append(err, store.Close())
	if tsServer != nil {
		err = multierr.Append(err, tsServer.Close())
	}
	if err != nil {
		log.Error("shutdown error", "error", err)
	}
	log.Info("server stopped")
	_ = logCloser.Close()
}

func newPlanSource(cfg config.SessionConfig) (plans.Source, error) {
	switch {
	case cfg.PlanFormat == config.PlanFormatAlpha:
		return alpha.NewFileSource(cfg.PlanFile, cfg.RestSeconds()), nil
	case cfg.PlanFile != "":
		plan, err := plans.LoadYAML(cfg.PlanFile)
		if err != nil {
			return nil, err
		}
		return plans.NewStatic(plan)
	default:
		return plans.NewStatic(plans.Default())
	}
}
