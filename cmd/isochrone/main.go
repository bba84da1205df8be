package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/Joesum98/Isochrones/internal/config"
	"github.com/Joesum98/Isochrones/internal/isochrone"
	"github.com/Joesum98/Isochrones/internal/logging"
	"github.com/Joesum98/Isochrones/internal/metrics"
	"github.com/Joesum98/Isochrones/internal/postgres"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const usage = `usage: isochrone <command> [flags] <file>

commands:
  describe <file>           print the columns, metallicities and ages of a table
  plot [flags] <file>       render a colour-magnitude diagram
  export [flags] <file>     write a table to an Arrow IPC file or a Postgres table
  health                    check the configured object store and database

<file> is a local path or s3://bucket/key.
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	if os.Args[1] == "health" {
		os.Exit(healthCheck())
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := newLogger(cfg)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)

	a := &app{
		cfg:     cfg,
		logger:  logger,
		metrics: metrics.NewRecorder(),
		stdout:  os.Stdout,
	}
	code := a.run(ctx, os.Args[1], os.Args[2:])
	stop()

	if path := cfg.GetString("ISOCHRONE_METRICS_TEXTFILE", ""); path != "" {
		if err := a.metrics.WriteTextfile(path); err != nil {
			logger.Error("Failed to write metrics", zap.String("path", path), zap.Error(err))
		}
	}

	_ = logger.Sync()
	os.Exit(code)
}

func newLogger(cfg *config.Config) (*logging.Logger, error) {
	logger, err := logging.NewLogger(logging.Config{
		Level:      cfg.GetString("ISOCHRONE_LOG_LEVEL", "info"),
		Format:     cfg.GetString("ISOCHRONE_LOG_FORMAT", "console"),
		OutputPath: cfg.GetString("ISOCHRONE_LOG_OUTPUT", ""),
		Fields: map[string]string{
			"service": "isochrone",
		},
	})
	if err != nil {
		return nil, err
	}
	return logger.WithField("run_id", uuid.NewString()), nil
}

func healthCheck() int {
	logger, err := zap.NewProduction()
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		return 1
	}
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Error("Failed to load configuration", zap.Error(err))
		return 1
	}

	ctx := context.Background()

	s3cfg := cfg.GetS3Config()
	if bucket := s3cfg["bucket"]; bucket != "" {
		store, err := isochrone.NewClient(s3cfg, logger)
		if err != nil {
			logger.Error("Failed to create S3 client", zap.Error(err))
			return 1
		}
		if err := store.Ping(ctx, bucket); err != nil {
			logger.Error("Health check failed", zap.String("bucket", bucket), zap.Error(err))
			return 1
		}
	}

	pgcfg := cfg.GetPostgresConfig()
	if pgcfg["database"] != "" {
		client, err := postgres.NewClient(pgcfg, logger)
		if err != nil {
			logger.Error("Failed to create Postgres client", zap.Error(err))
			return 1
		}
		defer client.Close()

		if err := client.Ping(ctx); err != nil {
			logger.Error("Health check failed", zap.String("database", pgcfg["database"]), zap.Error(err))
			return 1
		}
	}

	return 0
}
