package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/joho/godotenv"

	"github.com/wolfman30/carehub/cmd/mainconfig"
	"github.com/wolfman30/carehub/internal/app/bootstrap"
	"github.com/wolfman30/carehub/internal/config"
	"github.com/wolfman30/carehub/internal/events"
	"github.com/wolfman30/carehub/pkg/logging"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	logger := logging.NewWithOptions(logging.Options{Level: cfg.LogLevel, Format: cfg.LogFormat})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.DatabaseURL == "" {
		logger.Error("outbox worker requires DATABASE_URL")
		os.Exit(1)
	}

	pool, err := bootstrap.ConnectPostgres(ctx, cfg.DatabaseURL, logger)
	if err != nil {
		logger.Error("failed to connect postgres", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	var awsCfg *aws.Config
	var sqsClient *sqs.Client
	if mainconfig.NeedsAWS(cfg) {
		loaded, err := mainconfig.LoadAWSConfig(ctx, cfg)
		if err != nil {
			logger.Error("failed to load AWS config", "error", err)
			os.Exit(1)
		}
		awsCfg = &loaded
		sqsClient = sqs.NewFromConfig(loaded)
	}

	sender := bootstrap.BuildEmailSender(cfg, awsCfg, logger)
	processed := events.NewProcessedStore(pool)
	handler := bootstrap.BuildEventHandler(cfg, sqsClient, sender, processed, logger)
	logger.Info("outbox worker starting",
		"handlers", len(handler),
		"email_provider", cfg.EmailProvider,
		"interval", cfg.OutboxInterval,
	)

	deliverer := events.NewDeliverer(events.NewOutboxStore(pool), handler, logger).
		WithBatchSize(int32(cfg.OutboxBatchSize)).
		WithInterval(cfg.OutboxInterval).
		WithMaxAttempts(cfg.OutboxMaxAttempts)

	supervisor := bootstrap.NewSupervisor(ctx, logger)
	supervisor.Go("outbox-deliverer", deliverer.Start)
	supervisor.Go("processed-events-pruner", func(ctx context.Context) {
		pruneProcessed(ctx, processed, cfg.ProcessedRetention, logger)
	})

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	logger.Info("outbox worker shutting down")
	supervisor.Stop(10 * time.Second)
}

func pruneProcessed(ctx context.Context, store *events.ProcessedStore, retention time.Duration, logger *logging.Logger) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := store.Prune(ctx, retention)
			if err != nil {
				logger.Error("processed events prune failed", "error", err)
				continue
			}
			if n > 0 {
				logger.Info("pruned processed events", "deleted", n)
			}
		}
	}
}
