package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/prismo-finance/prismo-ingest/internal/awsx"
	"github.com/prismo-finance/prismo-ingest/internal/config"
	"github.com/prismo-finance/prismo-ingest/internal/logger"
	"github.com/prismo-finance/prismo-ingest/internal/metrics"
	"github.com/prismo-finance/prismo-ingest/internal/processor"
	"github.com/prismo-finance/prismo-ingest/internal/proclog"
	"github.com/prismo-finance/prismo-ingest/internal/rawstore"
	"github.com/prismo-finance/prismo-ingest/internal/writer"
)

func main() {
	log := logger.New()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	clients, err := awsx.NewClients(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to init aws clients")
	}

	db, err := writer.Open(cfg.PostgresDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to postgres")
	}
	if err := writer.Migrate(db); err != nil {
		log.Fatal().Err(err).Msg("failed to migrate relational schema")
	}

	var recorder processor.PassRecorder
	if cfg.MetricsEnabled {
		recorder = metrics.NewPublisher(clients.CloudWatch, log)
	}

	proc := processor.New(processor.Options{
		RawStore:     rawstore.NewStore(clients.DynamoDB, cfg.RawRecordsTable),
		AuditLog:     proclog.NewStore(clients.DynamoDB, cfg.ProcessingLogTable),
		Writer:       writer.NewPostgresWriter(db),
		Metrics:      recorder,
		Logger:       log,
		BatchSize:    cfg.BatchSize,
		WriteTimeout: cfg.WriteTimeout,
	})

	sched := processor.NewScheduler(proc, cfg.PollInterval, log)
	sched.Start(ctx)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down")
	sched.Stop()
}
