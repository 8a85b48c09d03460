package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/Tributary-ai-services/aether-insights/internal/auth"
	"github.com/Tributary-ai-services/aether-insights/internal/classifier"
	"github.com/Tributary-ai-services/aether-insights/internal/config"
	"github.com/Tributary-ai-services/aether-insights/internal/database"
	"github.com/Tributary-ai-services/aether-insights/internal/handlers"
	"github.com/Tributary-ai-services/aether-insights/internal/logger"
	"github.com/Tributary-ai-services/aether-insights/internal/metrics"
	"github.com/Tributary-ai-services/aether-insights/internal/middleware"
	"github.com/Tributary-ai-services/aether-insights/internal/pipeline"
	"github.com/Tributary-ai-services/aether-insights/internal/services"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	appLogger, err := logger.New(logger.Config{
		Level:   cfg.Logger.Level,
		Format:  cfg.Logger.Format,
		Service: "aether-insights",
	})
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() {
		if err := appLogger.Sync(); err != nil {
			// Ignore broken pipe errors on sync, common during shutdown
			log.Printf("Logger sync warning: %v", err)
		}
	}()

	appLogger.Info("Starting Aether Insights Server",
		zap.String("version", cfg.Server.Version),
		zap.String("environment", cfg.Server.Environment),
		zap.String("port", cfg.Server.Port),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize metrics
	metricsInstance := metrics.NewMetrics(appLogger)
	healthChecks := make(map[string]metrics.HealthChecker)

	memory := pipeline.NewMemoryStore()
	var (
		datasetStore pipeline.DatasetStore = memory
		resultStore  pipeline.ResultStore  = memory
		statusStore  pipeline.StatusStore  = memory
		events       pipeline.EventPublisher
	)

	// Initialize databases
	if cfg.Neo4j.Enabled {
		neo4jClient, err := database.NewNeo4jClient(cfg.Neo4j, metricsInstance, appLogger)
		if err != nil {
			appLogger.Fatal("Failed to initialize Neo4j client", zap.Error(err))
		}
		defer neo4jClient.Close(context.Background())

		if err := neo4jClient.CreateConstraints(ctx); err != nil {
			appLogger.Warn("Failed to create Neo4j constraints", zap.Error(err))
		}
		if err := neo4jClient.CreateIndexes(ctx); err != nil {
			appLogger.Warn("Failed to create Neo4j indexes", zap.Error(err))
		}
		resultStore = neo4jClient
		healthChecks["neo4j"] = neo4jClient
	} else {
		appLogger.Info("Neo4j disabled, keeping results in memory")
	}

	if cfg.Redis.Enabled {
		redisClient, err := database.NewRedisClient(cfg.Redis, metricsInstance, appLogger)
		if err != nil {
			appLogger.Fatal("Failed to initialize Redis client", zap.Error(err))
		}
		defer redisClient.Close()
		statusStore = redisClient
		healthChecks["redis"] = redisClient
	} else {
		appLogger.Info("Redis disabled, keeping run statuses in memory")
	}

	// Initialize dataset storage
	switch cfg.Storage.Provider {
	case config.StorageS3:
		s3Store, err := services.NewS3DatasetStore(ctx, cfg.Storage, metricsInstance, appLogger)
		if err != nil {
			appLogger.Fatal("Failed to initialize S3 storage", zap.Error(err))
		}
		datasetStore = s3Store
		healthChecks["storage"] = s3Store
	case config.StorageMinio:
		minioStore, err := services.NewMinioDatasetStore(ctx, cfg.Storage, metricsInstance, appLogger)
		if err != nil {
			appLogger.Fatal("Failed to initialize MinIO storage", zap.Error(err))
		}
		datasetStore = minioStore
		healthChecks["storage"] = minioStore
	default:
		appLogger.Info("Keeping uploaded datasets in memory")
	}

	var kafkaService *services.KafkaService
	if cfg.Kafka.Enabled {
		kafkaService, err = services.NewKafkaService(cfg.Kafka, appLogger)
		if err != nil {
			// Don't fail startup, runs still complete without events
			appLogger.Error("Failed to initialize Kafka service", zap.Error(err))
		} else {
			events = kafkaService
			healthChecks["kafka"] = kafkaService
			appLogger.Info("Kafka service initialized successfully", zap.String("topic", kafkaService.Topic()))
		}
	}

	var verifier middleware.TokenVerifier
	if cfg.OIDC.Enabled {
		oidcVerifier, err := auth.NewOIDCVerifier(ctx, cfg.OIDC, appLogger)
		if err != nil {
			appLogger.Fatal("Failed to initialize OIDC verifier", zap.Error(err))
		}
		verifier = oidcVerifier
	}

	// Initialize the analysis engine and run pool
	cls, err := classifier.New(classifier.Config{
		Mode:         cfg.Classifier.Mode,
		Command:      cfg.Classifier.Command,
		Args:         cfg.Classifier.Args,
		URL:          cfg.Classifier.URL,
		Timeout:      cfg.Classifier.Timeout,
		ClientID:     cfg.Classifier.ClientID,
		ClientSecret: cfg.Classifier.ClientSecret,
		TokenURL:     cfg.Classifier.TokenURL,
		Scopes:       cfg.Classifier.Scopes,
	}, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to initialize classifier", zap.Error(err))
	}

	engine := pipeline.NewEngine(datasetStore, resultStore, cls, engineOptions(cfg.Analysis), metricsInstance, appLogger)
	runner := pipeline.NewRunner(engine, statusStore, events, pipeline.RunnerOptions{
		Workers:   cfg.Analysis.RunWorkers,
		QueueSize: cfg.Analysis.QueueSize,
	}, metricsInstance, appLogger)
	runner.Start()

	metricsCollector := metrics.NewMetricsCollector(metricsInstance, runner, healthChecks, appLogger)
	go metricsCollector.Start(ctx)

	// Initialize API server
	apiServer := handlers.NewAPIServer(handlers.Dependencies{
		Datasets: datasetStore,
		Results:  resultStore,
		Statuses: statusStore,
		Runs:     runner,
		Verifier: verifier,
		Health:   healthChecks,
		Metrics:  metricsInstance,
	}, handlers.ServerOptions{
		Version:         cfg.Server.Version,
		MaxUploadBytes:  cfg.Storage.MaxUploadBytes,
		PreviewLimit:    cfg.Analysis.PreviewLimit,
		TopCorrelations: cfg.Analysis.MaxCorrelationInsights,
		AdminRole:       cfg.OIDC.AdminRole,
	}, appLogger)

	server := &http.Server{
		Addr:         cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:      apiServer.Router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	go func() {
		appLogger.Info("Starting HTTP server", zap.String("address", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Fatal("Failed to start HTTP server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server...")

	cancel()
	metricsCollector.Stop()

	// Give outstanding requests and runs 30 seconds to complete
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		appLogger.Error("Server forced to shutdown", zap.Error(err))
	}
	if err := runner.Shutdown(shutdownCtx); err != nil {
		appLogger.Error("Runs still executing at shutdown", zap.Error(err))
	}
	if kafkaService != nil {
		if err := kafkaService.Close(); err != nil {
			appLogger.Error("Error closing Kafka service", zap.Error(err))
		}
	}

	appLogger.Info("Server exited")
}

// engineOptions applies the analysis settings to the engine defaults
func engineOptions(a config.AnalysisConfig) pipeline.EngineOptions {
	opt := pipeline.DefaultEngineOptions()
	opt.Workers = a.Workers
	opt.Infer.SampleSize = a.SampleSize
	opt.Infer.Threshold = a.TypeThreshold
	opt.Infer.CategoricalLimit = a.CategoricalLimit
	opt.Miner.Workers = a.Workers
	opt.Miner.MaxCorrelationInsights = a.MaxCorrelationInsights
	opt.Charts.MaxCharts = a.MaxCharts
	return opt
}

func init() {
	// Set timezone to UTC
	os.Setenv("TZ", "UTC")

	fmt.Println("Aether Insights - Dataset Analysis & Dashboard Synthesis")
}
