package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/jittakal/eventtabstore/internal/batch"
	"github.com/jittakal/eventtabstore/internal/config"
	"github.com/jittakal/eventtabstore/internal/config/dto"
	"github.com/jittakal/eventtabstore/internal/decode"
	"github.com/jittakal/eventtabstore/internal/encoder"
	apperrors "github.com/jittakal/eventtabstore/internal/errors"
	"github.com/jittakal/eventtabstore/internal/kafka"
	"github.com/jittakal/eventtabstore/internal/observability"
	"github.com/jittakal/eventtabstore/internal/pipeline"
	"github.com/jittakal/eventtabstore/internal/route"
	"github.com/jittakal/eventtabstore/internal/server"
	sinkimpl "github.com/jittakal/eventtabstore/internal/sink"
	"github.com/jittakal/eventtabstore/pkg/message"
	"github.com/jittakal/eventtabstore/pkg/sink"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("application error: %v", err)
	}
}

func run() error {
	// Parse command-line flags
	configPath := flag.String("config", "", "path to configuration file")
	flag.Parse()

	// Load configuration
	// Priority: CLI flag > CONFIG_PATH env var > default path
	var cfgPath string
	if *configPath != "" {
		cfgPath = *configPath
	} else if envPath := os.Getenv("CONFIG_PATH"); envPath != "" {
		cfgPath = envPath
	} else {
		cfgPath = "config/application.yaml"
	}

	loader := config.NewLoader()
	cfg, err := loader.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// Initialize observability
	logger := observability.NewLogger(observability.LoggingConfig{
		Level:  cfg.Observability.Logging.Level,
		Format: cfg.Observability.Logging.Format,
		Output: cfg.Observability.Logging.Output,
	})
	logger.Info("starting event tabular store",
		"version", cfg.Application.Version,
		"environment", cfg.Application.Environment,
	)

	registry := prometheus.NewRegistry()
	metrics := observability.NewMetrics(registry)

	// Track cleanup functions
	var cleanupFuncs []func() error
	addCleanup := func(name string, fn func() error) {
		cleanupFuncs = append(cleanupFuncs, fn)
		logger.Debug("registered cleanup", "component", name)
	}
	defer func() {
		for i := len(cleanupFuncs) - 1; i >= 0; i-- {
			if err := cleanupFuncs[i](); err != nil {
				logger.Error("cleanup failed", "error", err)
			}
		}
	}()

	// Initialize pipeline stages
	decoder := decode.NewDecoder(observability.Component(logger, "decode"), metrics)
	router := route.NewRouter(cfg.Pipeline.FallbackFolder)

	format := message.FormatParquet
	if cfg.Pipeline.Format == "avro" {
		format = message.FormatAvro
	}
	enc, err := encoder.NewFactory(format, cfg.Pipeline.Compression).CreateEncoder()
	if err != nil {
		return fmt.Errorf("failed to create encoder: %w", err)
	}

	// Create sink based on backend
	artifactSink, err := newSink(cfg, observability.Component(logger, "sink"), metrics)
	if err != nil {
		return fmt.Errorf("failed to create sink: %w", err)
	}
	addCleanup("sink", artifactSink.Close)

	writer, err := batch.NewWriter(
		batch.Config{
			MaxRows:    cfg.Pipeline.MaxBatchRows,
			PathPrefix: cfg.Pipeline.PathPrefix,
			Backend:    cfg.Sink.Backend,
		},
		enc,
		artifactSink,
		observability.Component(logger, "batch"),
		metrics,
	)
	if err != nil {
		return fmt.Errorf("failed to create batch writer: %w", err)
	}

	pl := pipeline.New(decoder, router, writer, observability.Component(logger, "pipeline"), metrics)

	// Initialize infrastructure
	consumerConfig := kafka.ConsumerConfig{
		BootstrapServers:    cfg.Kafka.BootstrapServers,
		GroupID:             cfg.Kafka.Consumer.GroupID,
		SecurityProtocol:    cfg.Kafka.SecurityProtocol,
		SASLMechanism:       cfg.Kafka.SASLMechanism,
		SASLUsername:        cfg.Kafka.SASLUsername,
		SASLPassword:        cfg.Kafka.SASLPassword,
		AWSRegion:           cfg.Kafka.AWSRegion,
		AutoOffsetReset:     cfg.Kafka.Consumer.AutoOffsetReset,
		EnableAutoCommit:    cfg.Kafka.Consumer.EnableAutoCommit,
		MaxPollIntervalMS:   cfg.Kafka.Consumer.MaxPollIntervalMS,
		SessionTimeoutMS:    cfg.Kafka.Consumer.SessionTimeoutMS,
		HeartbeatIntervalMS: cfg.Kafka.Consumer.HeartbeatIntervalMS,
	}
	consumer, err := kafka.NewSaramaConsumer(consumerConfig, observability.Component(logger, "kafka"), metrics)
	if err != nil {
		return fmt.Errorf("failed to create consumer: %w", err)
	}
	addCleanup("kafka-consumer", consumer.Close)

	dlqConfig := kafka.DLQConfig{
		Enabled:     cfg.Kafka.DLQ.Enabled,
		TopicSuffix: cfg.Kafka.DLQ.TopicSuffix,
		MaxRetries:  cfg.Kafka.DLQ.MaxRetries,
	}
	dlqPublisher, err := kafka.NewDLQPublisher(cfg.Kafka.BootstrapServers, consumerConfig, dlqConfig, observability.Component(logger, "dlq"), cfg.Application.Name)
	if err != nil {
		return fmt.Errorf("failed to create DLQ publisher: %w", err)
	}
	addCleanup("dlq-publisher", dlqPublisher.Close)

	// Start HTTP server
	health := server.NewPipelineHealth()
	httpServer := server.NewServer(
		server.Config{
			Port:           cfg.Observability.Health.Port,
			LivenessPath:   cfg.Observability.Health.LivenessPath,
			ReadinessPath:  cfg.Observability.Health.ReadinessPath,
			MetricsEnabled: cfg.Observability.Metrics.Enabled,
			MetricsPath:    cfg.Observability.Metrics.Path,
		},
		health,
		registry,
		observability.Component(logger, "server"),
	)
	if err := httpServer.Start(); err != nil {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}
	addCleanup("http-server", func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpServer.Shutdown(ctx)
	})

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Prepare the destination before consuming anything
	ensureCtx, ensureCancel := context.WithTimeout(ctx, 30*time.Second)
	if err := artifactSink.EnsureDestination(ensureCtx); err != nil {
		ensureCancel()
		return fmt.Errorf("failed to ensure sink destination: %w", err)
	}
	ensureCancel()
	health.SetSinkReady(true)

	// Subscribe to topics
	if err := consumer.Subscribe(ctx, cfg.Kafka.Consumer.Topics); err != nil {
		return fmt.Errorf("failed to subscribe to topics: %w", err)
	}

	// Start consuming
	batchChan, errorChan, err := consumer.Consume(ctx)
	if err != nil {
		return fmt.Errorf("failed to start consuming: %w", err)
	}
	health.SetConsumerReady(true)

	logger.Info("application started successfully")

	// Start processing loop in background
	processErrChan := make(chan error, 1)
	go func() {
		processErrChan <- processBatches(ctx, batchChan, errorChan, pl, dlqPublisher, logger)
	}()

	// Wait for termination signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigChan:
		logger.Info("received termination signal")
	case err := <-processErrChan:
		if err != nil {
			logger.Error("processing error", "error", err)
			return err
		}
	}

	// Graceful shutdown
	logger.Info("initiating graceful shutdown")
	health.SetConsumerReady(false)
	cancel()

	// Allow time for in-flight operations to complete
	shutdownTimeout := time.Duration(cfg.Shutdown.GracePeriodSeconds) * time.Second
	select {
	case <-processErrChan:
	case <-time.After(shutdownTimeout):
		logger.Warn("processing loop did not stop within grace period")
	}

	logger.Info("application stopped successfully")
	return nil
}

// processBatches drains the consumer and runs every batch through the
// pipeline. A batch whose groups all fail to write is dead-lettered; the
// offset is committed either way so a poison batch cannot wedge the
// partition.
func processBatches(
	ctx context.Context,
	batchChan <-chan *kafka.ConsumedBatch,
	errorChan <-chan error,
	pl *pipeline.Pipeline,
	dlq *kafka.DLQPublisher,
	logger *slog.Logger,
) error {
	for {
		select {
		case <-ctx.Done():
			logger.Info("context cancelled, stopping processing")
			return nil
		case err := <-errorChan:
			if err == nil {
				continue
			}
			if apperrors.IsRetryable(err) {
				logger.Warn("retryable consumer error, continuing", "error", err)
				continue
			}
			logger.Error("consumer error", "error", err)
			return err
		case consumed, ok := <-batchChan:
			if !ok {
				logger.Info("batch channel closed")
				return nil
			}

			result, err := pl.Process(ctx, consumed.Body)
			if err != nil {
				logger.Error("batch processing had failures",
					"topic", consumed.Topic,
					"partition", consumed.Partition,
					"offset", consumed.Offset,
					"failed_groups", len(result.Failed),
					"error", err,
				)
				if dlq != nil {
					if dlqErr := dlq.Publish(ctx, consumed, "segment_write_failed"); dlqErr != nil {
						logger.Error("failed to dead-letter batch", "error", dlqErr)
					}
				}
			}

			if consumed.Commit != nil {
				if err := consumed.Commit(); err != nil {
					logger.Error("failed to commit offset",
						"topic", consumed.Topic,
						"partition", consumed.Partition,
						"offset", consumed.Offset,
						"error", err,
					)
				}
			}
		}
	}
}

// newSink constructs the configured sink backend.
func newSink(cfg *dto.ApplicationConfig, logger *slog.Logger, metrics *observability.Metrics) (sink.Sink, error) {
	switch cfg.Sink.Backend {
	case "file":
		return sinkimpl.NewFileSink(sinkimpl.FileConfig{
			BasePath: cfg.Sink.File.BasePath,
		}, logger, metrics)
	case "s3":
		return sinkimpl.NewS3Sink(sinkimpl.S3Config{
			Bucket:       cfg.Sink.S3.Bucket,
			Region:       cfg.Sink.S3.Region,
			Endpoint:     cfg.Sink.S3.Endpoint,
			UsePathStyle: cfg.Sink.S3.UsePathStyle,
			SSEEnabled:   cfg.Sink.S3.SSEEnabled,
			SSEKMSKeyID:  cfg.Sink.S3.SSEKMSKeyID,
		}, logger, metrics)
	case "azure":
		accountKey := cfg.Sink.Azure.AccountKey
		if accountKey == "" {
			accountKey = os.Getenv("AZURE_STORAGE_ACCOUNT_KEY")
		}
		return sinkimpl.NewAzureSink(sinkimpl.AzureConfig{
			ConnectionString: cfg.Sink.Azure.ConnectionString,
			AccountName:      cfg.Sink.Azure.AccountName,
			AccountKey:       accountKey,
			Container:        cfg.Sink.Azure.Container,
			Endpoint:         cfg.Sink.Azure.Endpoint,
		}, logger, metrics)
	case "gcs":
		credentialsJSON := cfg.Sink.GCS.CredentialsJSON
		if credentialsJSON == "" {
			credentialsJSON = os.Getenv("GCP_CREDENTIALS_JSON")
		}
		return sinkimpl.NewGCSSink(sinkimpl.GCSConfig{
			Bucket:               cfg.Sink.GCS.Bucket,
			ProjectID:            cfg.Sink.GCS.ProjectID,
			CredentialsFile:      cfg.Sink.GCS.CredentialsFile,
			CredentialsJSON:      credentialsJSON,
			Endpoint:             cfg.Sink.GCS.Endpoint,
			UseDefaultCredential: cfg.Sink.GCS.UseDefaultCredential,
		}, logger, metrics)
	default:
		return nil, fmt.Errorf("unsupported sink backend: %s (supported: file, s3, azure, gcs)", cfg.Sink.Backend)
	}
}
