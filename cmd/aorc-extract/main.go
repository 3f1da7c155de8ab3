package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/hydroclim/aorc-extract/internal/adapter/s3"
	"github.com/hydroclim/aorc-extract/internal/adapter/zarr"
	"github.com/hydroclim/aorc-extract/internal/config"
	"github.com/hydroclim/aorc-extract/internal/observability"
	"github.com/hydroclim/aorc-extract/internal/pipeline"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	store, err := openStore(cfg, metrics, logger)
	if err != nil {
		logger.Error("failed to open store", "error", err)
		os.Exit(1)
	}
	if cfg.ChunkCacheSize > 0 {
		store = zarr.NewLRUStore(store, cfg.ChunkCacheSize, metrics)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("starting extraction",
		"uri", cfg.ZarrURI,
		"variable", cfg.Variable,
		"window_start", cfg.TimeStart,
		"window_end", cfg.TimeEnd,
	)

	res, err := pipeline.New(store, cfg, logger, metrics).Run(ctx)

	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	metrics.RunsCompleted.WithLabelValues(outcome).Inc()
	if cfg.PushgatewayURL != "" {
		if perr := metrics.Push(cfg.PushgatewayURL, "aorc-extract"); perr != nil {
			logger.Error("metrics push failed", "error", perr)
		}
	}

	if err != nil {
		logger.Error("extraction failed", "error", err)
		os.Exit(1)
	}
	logger.Info("extraction succeeded",
		"steps", res.Steps,
		"missing_hours", res.MissingHours,
		"max_area_mean", res.MaxValue,
		"max_at", res.MaxTime,
		"subset", res.SubsetPath,
		"area_mean", res.AreaMeanPath,
	)
}

// openStore picks the chunk store from the URI scheme: s3:// opens the bucket
// anonymously, file:// or a bare path is a local directory.
func openStore(cfg *config.Config, metrics *observability.Metrics, logger *slog.Logger) (zarr.Store, error) {
	if strings.HasPrefix(cfg.ZarrURI, "s3://") {
		return s3.NewStore(cfg.ZarrURI, cfg.S3Endpoint, cfg.S3Region, metrics, logger)
	}
	return zarr.NewDirStore(strings.TrimPrefix(cfg.ZarrURI, "file://")), nil
}
