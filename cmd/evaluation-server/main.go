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

	"social-evaluation/internal/api"
	"social-evaluation/internal/app"
	"social-evaluation/internal/common/aws"
	"social-evaluation/internal/common/camunda"
	"social-evaluation/internal/common/config"
	"social-evaluation/internal/common/database"
	"social-evaluation/internal/common/logger"
	"social-evaluation/internal/common/observability"
	evaluateapplication "social-evaluation/internal/workers/evaluation/evaluate-application"
	recordevaluation "social-evaluation/internal/workers/evaluation/record-evaluation"

	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			if i > 0 {
				log.Info(fmt.Sprintf("%s succeeded after %d attempts", operationName, i+1))
			}
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
				zap.Error(err))
			time.Sleep(delay)
			delay *= 2
			if delay > 30*time.Second {
				delay = 30 * time.Second
			}
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting evaluation server",
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Environment))

	obs := observability.New(cfg.App.Name)
	defer obs.Shutdown()

	// --- Postgres ---
	var pg *database.PostgresClient
	err = retryWithBackoff(func() error {
		var connErr error
		pg, connErr = database.NewPostgres(cfg.Database.Postgres)
		if connErr != nil {
			return connErr
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if pingErr := pg.Ping(ctx); pingErr != nil {
			pg.Close()
			return pingErr
		}
		return nil
	}, 10, 2*time.Second, zapLog, "PostgreSQL connection")
	if err != nil {
		zapLog.Fatal("Failed to connect to PostgreSQL", zap.Error(err))
	}
	defer pg.Close()

	schemaCtx, schemaCancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := pg.EnsureSchema(schemaCtx); err != nil {
		schemaCancel()
		zapLog.Fatal("Failed to ensure schema", zap.Error(err))
	}
	schemaCancel()
	zapLog.Info("PostgreSQL ready")

	// --- Elasticsearch ---
	es, err := database.NewElasticsearch(cfg.Database.Elasticsearch)
	if err != nil {
		zapLog.Fatal("Failed to create Elasticsearch client", zap.Error(err))
	}
	err = retryWithBackoff(func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return es.Ping(ctx)
	}, 5, 2*time.Second, zapLog, "Elasticsearch ping")
	if err != nil {
		zapLog.Warn("Elasticsearch unreachable, retrieval will fail until it recovers", zap.Error(err))
	}

	// --- Redis ---
	var rdb *database.RedisClient
	err = retryWithBackoff(func() error {
		var connErr error
		rdb, connErr = database.NewRedis(cfg.Database.Redis)
		if connErr != nil {
			return connErr
		}
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if pingErr := rdb.Ping(ctx); pingErr != nil {
			rdb.Close()
			return pingErr
		}
		return nil
	}, 5, time.Second, zapLog, "Redis connection")
	if err != nil {
		zapLog.Warn("Redis unavailable, running without lease and summary cache", zap.Error(err))
		rdb = nil
	}

	// --- Camunda ---
	var zeebe *camunda.Client
	if cfg.Camunda.Enabled {
		err = retryWithBackoff(func() error {
			var connErr error
			zeebe, connErr = camunda.NewClient(cfg.Camunda.BrokerAddress, config.GetDuration(cfg.Camunda.RequestTimeout))
			return connErr
		}, 5, 2*time.Second, zapLog, "Zeebe connection")
		if err != nil {
			zapLog.Fatal("Failed to connect to Zeebe", zap.Error(err))
		}
		defer zeebe.Close()
	}

	// --- Evaluation pipeline ---
	deps := app.Deps{
		DB:            pg.DB,
		Elasticsearch: es,
		Observability: obs,
		Checks: map[string]api.Check{
			"postgres":      pg.Ping,
			"elasticsearch": es.Ping,
		},
	}
	if rdb != nil {
		deps.Redis = rdb.Client
		deps.Checks["redis"] = rdb.Ping
	}
	if zeebe != nil {
		deps.Zeebe = zeebe
		deps.Checks["zeebe"] = zeebe.HealthCheck
	}
	if err := attachAWS(cfg, &deps); err != nil {
		zapLog.Fatal("Failed to create AWS clients", zap.Error(err))
	}

	pipeline, err := app.Build(cfg, deps, log)
	if err != nil {
		zapLog.Fatal("Failed to build evaluation service", zap.Error(err))
	}
	svc, store := pipeline.Service, pipeline.Store
	defer svc.Close()
	zapLog.Info("Evaluation pipeline ready",
		zap.String("definitions", pipeline.Registry.Version),
		zap.Any("tracks", svc.Tracks()))

	go func() {
		for fe := range svc.FollowupErrors() {
			zapLog.Error("Decision follow-up failed",
				zap.String("task", fe.Task),
				zap.String("evaluationId", fe.EvaluationID),
				zap.Error(fe.Err))
		}
	}()

	// --- Workers ---
	var workers []worker.JobWorker
	if zeebe != nil {
		if config.IsWorkerEnabled(cfg, evaluateapplication.TaskType) {
			handler := evaluateapplication.NewHandler(evaluateapplication.LoadConfig(cfg), svc, log)
			wcfg := config.GetWorkerConfig(cfg, evaluateapplication.TaskType)
			workers = append(workers, camunda.StartWorker(zeebe.GetClient(), evaluateapplication.TaskType, wcfg, handler, log))
		}
		if config.IsWorkerEnabled(cfg, recordevaluation.TaskType) {
			handler := recordevaluation.NewHandler(recordevaluation.LoadConfig(), store, log)
			wcfg := config.GetWorkerConfig(cfg, recordevaluation.TaskType)
			workers = append(workers, camunda.StartWorker(zeebe.GetClient(), recordevaluation.TaskType, wcfg, handler, log))
		}
		zapLog.Info("Workers registered", zap.Int("count", len(workers)))
	}

	// --- HTTP ---
	if cfg.Server.Mode != "" {
		gin.SetMode(cfg.Server.Mode)
	}
	httpServer := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           pipeline.Server.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		zapLog.Info("HTTP server listening", zap.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLog.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, draining...")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		zapLog.Error("HTTP shutdown failed", zap.Error(err))
	}
	for _, w := range workers {
		w.Close()
		w.AwaitClose()
	}

	zapLog.Info("Evaluation server stopped")
}

// attachAWS creates the SES and SNS clients for the enabled channels.
func attachAWS(cfg *config.Config, deps *app.Deps) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if cfg.Notifications.SES.Enabled {
		c, err := aws.NewSESClient(ctx, cfg.Notifications.AWS.Region)
		if err != nil {
			return fmt.Errorf("ses client: %w", err)
		}
		deps.SES = c
	}
	if cfg.Notifications.SNS.Enabled {
		c, err := aws.NewSNSClient(ctx, cfg.Notifications.AWS.Region)
		if err != nil {
			return fmt.Errorf("sns client: %w", err)
		}
		deps.SNS = c
	}
	return nil
}
