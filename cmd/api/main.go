package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"finsync/internal/infrastructure/postgres/listener"
	"finsync/internal/interfaces/scheduler"
	"finsync/internal/shared/config"
	"finsync/internal/shared/logger"
	"finsync/internal/shared/telemetry"
)

const shutdownTimeout = 30 * time.Second

func main() {
	if err := run(); err != nil {
		logger.L.Error("application error", slog.Any("error", err))
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger.Init(cfg.Log.Level)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Telemetry.Enabled {
		shutdownTelemetry, err := telemetry.Init(ctx, telemetry.Config{
			ServiceName:  cfg.Telemetry.ServiceName,
			Environment:  cfg.Telemetry.Environment,
			OTLPEndpoint: cfg.Telemetry.OTLPEndpoint,
			MetricsPort:  cfg.Telemetry.MetricsPort,
		})
		if err != nil {
			return err
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdownTelemetry(ctx); err != nil {
				logger.L.Error("telemetry shutdown failed", slog.Any("error", err))
			}
		}()
	}

	deps, err := NewDependencies(cfg)
	if err != nil {
		return err
	}
	defer deps.Close()

	var sched *scheduler.Scheduler
	if cfg.Scheduler.Enabled {
		sched, err = scheduler.New(scheduler.Config{
			ScheduleTimes: cfg.Scheduler.ScheduleTimes,
			WorkerCount:   cfg.Scheduler.WorkerCount,
			JobDelay:      cfg.Scheduler.JobDelay,
			JobTimeout:    cfg.Scheduler.JobTimeout,
			QueueSize:     cfg.Scheduler.QueueSize,
			RunOnStartup:  cfg.Scheduler.RunOnStartup,
			JobProvider:   scheduler.ItemSyncJobs(deps.ItemRepo, deps.ItemSyncService),
		})
		if err != nil {
			return err
		}
		sched.Start()

		// Newly linked items get their first sync right away, whichever process linked them.
		itemListener := listener.NewItemListener(cfg.Database.ConnectionString(), func(ctx context.Context, ev listener.ItemLinked) {
			job := scheduler.NewItemSyncJob(ev.ItemID, ev.UserID, deps.ItemSyncService)
			if err := sched.Submit(job); err != nil {
				logger.L.Warn("could not queue initial item sync", slog.String("item_id", ev.ItemID), slog.Any("error", err))
			}
		})
		itemListener.Start(ctx)
		defer itemListener.Stop()
	} else {
		logger.L.Info("scheduler is disabled")
	}

	handler := SetupRoutes(deps, cfg)
	srv, redirectSrv, serverErr := StartServers(NewServerConfigFromConfig(handler, cfg))

	select {
	case <-ctx.Done():
		GracefulShutdown(srv, redirectSrv, sched, shutdownTimeout)
		return nil
	case err := <-serverErr:
		GracefulShutdown(srv, redirectSrv, sched, shutdownTimeout)
		return err
	}
}
