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

	"github.com/claude/fitlog/internal/config"
	"github.com/claude/fitlog/internal/events"
	"github.com/claude/fitlog/internal/exercisedb"
	"github.com/claude/fitlog/internal/ingest/alpha"
	"github.com/claude/fitlog/internal/ingest/hae"
	"github.com/claude/fitlog/internal/lookup"
	"github.com/claude/fitlog/internal/mcp"
	"github.com/claude/fitlog/internal/metrics"
	"github.com/claude/fitlog/internal/server"
	"github.com/claude/fitlog/internal/storage"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"tailscale.com/tsnet"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	migrateOnly := flag.Bool("migrate-only", false, "run migrations and exit")
	flag.Parse()

	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	log.Info("fitlog starting", "version", Version)

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	dsn := cfg.Database.DSN()
	if err := storage.RunMigrations(dsn, "migrations"); err != nil {
		log.Error("migration failed", "error", err)
		os.Exit(1)
	}
	log.Info("migrations applied")

	if *migrateOnly {
		log.Info("migrate-only: exiting")
		return
	}

	ctx := context.Background()
	db, err := storage.New(ctx, dsn)
	if err != nil {
		log.Error("failed to connect database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	log.Info("database connected")

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.NewManager(metrics.Namespace, metrics.Subsystem, reg)

	var external lookup.External
	if cfg.ExerciseDB.BaseURL != "" {
		external = exercisedb.New(cfg.ExerciseDB, m, log)
	}
	lookupSvc := lookup.New(db, external, m, log)

	haeProvider := hae.NewProvider(db, m, log)
	alphaProvider := alpha.NewProvider(db, m, log)

	srv := server.New(db, lookupSvc, haeProvider, alphaProvider, m, cfg.Auth.APIKey, log)
	if cfg.Metrics.Enabled {
		srv.SetMetrics(cfg.Metrics.Path, reg)
	}
	srv.SetMCP(mcp.New(srv.Reports(), Version, log))

	// Outbox delivery runs until shutdown.
	dispatchCtx, stopDispatch := context.WithCancel(ctx)
	var dispatcher *events.Dispatcher
	var producer *events.KafkaProducer
	if cfg.Events.Enabled() {
		producer = events.NewKafkaProducer(cfg.Events.Kafka.Brokers)
		dispatcher = events.NewDispatcher(db, producer, cfg.Events.Kafka.Topic,
			cfg.Events.PollInterval, cfg.Events.BatchSize, m, log)
		go dispatcher.Start(dispatchCtx)
		log.Info("event dispatcher started", "brokers", cfg.Events.Kafka.Brokers, "topic", cfg.Events.Kafka.Topic)
	}

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
		defer tsServer.Close() //nolint:errcheck

		lc, err := tsServer.LocalClient()
		if err != nil {
			log.Error("tsnet local client failed", "error", err)
			os.Exit(1)
		}
		srv.SetTailscale(lc, db)

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

	httpSrv := &http.Server{
		Handler:           srv,
		ConnState:         srv.ConnState,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := httpSrv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	log.Info("shutting down", "signal", sig)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown error", "error", err)
	}

	stopDispatch()
	if dispatcher != nil {
		dispatcher.Wait()
		if err := producer.Close(); err != nil {
			log.Error("closing kafka producer", "error", err)
		}
	}
	log.Info("server stopped")
}
