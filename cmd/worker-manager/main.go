// cmd/worker-manager/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"go.uber.org/zap"

	"business-matching-workers/internal/common/aws"
	"business-matching-workers/internal/common/camunda"
	"business-matching-workers/internal/common/config"
	"business-matching-workers/internal/common/database"
	"business-matching-workers/internal/common/logger"
	"business-matching-workers/internal/common/observability"
	"business-matching-workers/internal/matching/ranking"
	"business-matching-workers/internal/matching/scoring"
	"business-matching-workers/internal/repository"

	cms "business-matching-workers/internal/workers/matching/calculate-match-score"
	nmp "business-matching-workers/internal/workers/matching/notify-match-partner"
	rpm "business-matching-workers/internal/workers/matching/rank-partner-matches"
	rmd "business-matching-workers/internal/workers/matching/record-match-decision"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting worker manager...",
		zap.String("environment", cfg.App.Environment),
		zap.String("candidateSource", cfg.Matching.CandidateSource),
	)

	obs := observability.New(cfg.App.Name)
	defer obs.Shutdown()

	ctx := context.Background()
	ready := map[string]database.Pinger{}

	// --- Zeebe ---
	zb, err := camunda.Connect(ctx, &camunda.ClientConfig{
		GatewayAddress:         cfg.Camunda.BrokerAddress,
		UsePlaintextConnection: true,
		ConnectionTimeout:      10 * time.Second,
		RetryConfig:            camunda.DefaultRetryConfig,
	}, zapLog)
	if err != nil {
		zapLog.Fatal("zeebe client failed after retries", zap.Error(err))
	}
	defer zb.Close()
	ready["zeebe"] = zb

	// --- PostgreSQL ---
	var pg *database.PostgresClient
	err = retryWithBackoff(func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		return pg.Ping(ctx)
	}, 15, 2*time.Second, zapLog, "PostgreSQL connection")
	if err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}
	defer pg.Close()
	ready["postgres"] = pg
	zapLog.Info("PostgreSQL connected successfully")

	// --- Redis ---
	rdb := database.NewRedis(cfg.Database.Redis)
	err = retryWithBackoff(func() error {
		return rdb.Ping(ctx)
	}, 10, 2*time.Second, zapLog, "Redis connection")
	if err != nil {
		zapLog.Fatal("redis failed after retries", zap.Error(err))
	}
	defer rdb.Close()
	ready["redis"] = rdb
	zapLog.Info("Redis connected successfully")

	// --- Candidate source ---
	profiles := repository.NewProfileStore(pg.DB)
	var candidates repository.CandidateSource = profiles
	if cfg.Matching.CandidateSource == config.CandidateSourceElasticsearch {
		var es *database.ElasticsearchClient
		err = retryWithBackoff(func() error {
			var err error
			es, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
			if err != nil {
				return err
			}
			return es.Ping(ctx)
		}, 15, 2*time.Second, zapLog, "Elasticsearch connection")
		if err != nil {
			zapLog.Fatal("elasticsearch failed after retries", zap.Error(err))
		}
		ready["elasticsearch"] = es
		candidates = repository.NewPartnerSearch(es.Client, cfg.Matching.PartnerIndex)
		zapLog.Info("Elasticsearch connected successfully")
	}

	// --- Scoring engine and ranker ---
	tables, err := cfg.Matching.LoadTables()
	if err != nil {
		zapLog.Fatal("failed to load scoring tables", zap.Error(err))
	}
	engine, err := scoring.NewEngine(cfg.Matching.Weights, tables)
	if err != nil {
		zapLog.Fatal("failed to build scoring engine", zap.Error(err))
	}
	ranker := ranking.NewRanker(engine, ranking.Config{
		Concurrency:   cfg.Matching.Concurrency,
		SlowThreshold: config.GetDuration(cfg.Matching.SlowRankingMs),
	}, log)
	matches := repository.NewMatchStore(pg.DB)

	// --- Workers ---
	client := zb.GetClient()
	var workers []worker.JobWorker
	start := func(taskType string, handler camunda.HandlerFunc) {
		if jw := camunda.StartWorker(client, taskType, config.GetWorkerConfig(cfg, taskType), handler, obs, zapLog); jw != nil {
			workers = append(workers, jw)
		}
	}
	timeout := func(taskType string) time.Duration {
		return config.GetDuration(config.GetWorkerConfig(cfg, taskType).Timeout)
	}

	start(cms.TaskType, cms.NewHandler(&cms.Config{
		Timeout: timeout(cms.TaskType),
	}, engine, log).Handle)

	start(rpm.TaskType, rpm.NewHandler(rpm.HandlerOptions{
		Config: &rpm.Config{
			Timeout:     timeout(rpm.TaskType),
			CacheTTL:    config.GetDuration(cfg.Matching.CacheTTL),
			DefaultTopN: cfg.Matching.DefaultTopN,
			MaxTopN:     cfg.Matching.MaxTopN,
		},
		Ranker:        ranker,
		Requesters:    profiles,
		Candidates:    candidates,
		Suggestions:   matches,
		Redis:         rdb.Client,
		Observability: obs,
		Logger:        log,
	}).Handle)

	start(rmd.TaskType, rmd.NewHandler(&rmd.Config{
		Timeout: timeout(rmd.TaskType),
	}, matches, log).Handle)

	if config.IsWorkerEnabled(cfg, nmp.TaskType) {
		sesClient, snsClient := notificationClients(ctx, cfg, zapLog)
		start(nmp.TaskType, nmp.NewHandler(&nmp.Config{
			Timeout:      timeout(nmp.TaskType),
			EmailEnabled: cfg.Notifications.Email.Enabled,
			SMSEnabled:   cfg.Notifications.SMS.Enabled,
			FromEmail:    cfg.Notifications.Email.FromEmail,
			PlatformURL:  cfg.Notifications.PlatformURL,
		}, profiles, sesClient, snsClient, log).Handle)
	}
	zapLog.Info("Matching workers registered", zap.Int("count", len(workers)))

	// --- Health & Metrics Server ---
	srv := &http.Server{
		Addr:              cfg.Server.Address,
		Handler:           newServerMux(ready),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		zapLog.Info("Health/Metrics server listening", zap.String("address", cfg.Server.Address))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLog.Error("Health/Metrics server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, stopping workers...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	for _, jw := range workers {
		jw.Close()
		jw.AwaitClose()
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("Error stopping health server", zap.Error(err))
	}

	zapLog.Info("Worker manager stopped gracefully")
}

// notificationClients returns nil clients for disabled channels so the
// handler reports them as disabled.
func notificationClients(ctx context.Context, cfg *config.Config, log *zap.Logger) (aws.SESService, aws.SNSService) {
	if !cfg.Notifications.Email.Enabled && !cfg.Notifications.SMS.Enabled {
		return nil, nil
	}
	awsCfg, err := aws.LoadConfig(ctx, cfg.Notifications.AWS.Region)
	if err != nil {
		log.Fatal("failed to load AWS config", zap.Error(err))
	}

	var (
		sesClient aws.SESService
		snsClient aws.SNSService
	)
	if cfg.Notifications.Email.Enabled {
		sesClient = aws.NewSESClient(awsCfg)
	}
	if cfg.Notifications.SMS.Enabled {
		snsClient = aws.NewSNSClient(awsCfg)
	}
	return sesClient, snsClient
}
