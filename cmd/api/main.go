package main

// @title Geo Drill-Down API
// @version 1.0.0
// @description Session-based drill-down over Philippine administrative areas.
// @description Each session walks regions, provinces and municipalities and returns
// @description choropleth frames (colors, legend, breadcrumbs) for the active metric.

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8080
// @BasePath /
// @schemes http https

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	_ "github.com/geo-drilldown/docs"
	"github.com/geo-drilldown/internal/config"
	httpDelivery "github.com/geo-drilldown/internal/delivery/http"
	"github.com/geo-drilldown/internal/delivery/http/handler"
	"github.com/geo-drilldown/internal/domain"
	"github.com/geo-drilldown/internal/domain/repository"
	"github.com/geo-drilldown/internal/drilldown"
	"github.com/geo-drilldown/internal/infrastructure/geoapi"
	"github.com/geo-drilldown/internal/infrastructure/s3dataset"
	"github.com/geo-drilldown/internal/pkg/logger"
	"github.com/geo-drilldown/internal/repository/cache"
	"github.com/geo-drilldown/internal/repository/postgres"
	redisRepo "github.com/geo-drilldown/internal/repository/redis"
	"github.com/geo-drilldown/internal/repository/static"
	"github.com/geo-drilldown/internal/synthetic"
	"github.com/geo-drilldown/internal/usecase"
)

func main() {
	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	// 2. Initialize logger
	log, err := logger.New(cfg.Log.Level)
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer log.Sync()

	log.Info("Starting Geo Drill-Down API")
	log.Info("Configuration loaded",
		zap.String("env", cfg.Server.Env),
		zap.String("server_addr", cfg.GetServerAddr()),
		zap.String("geo_source", cfg.GeoSource.Kind),
		zap.Bool("redis_enabled", cfg.Redis.Enabled),
	)

	var closers []io.Closer

	// 3. Authoritative geodata source
	source, closer, err := buildSource(cfg, log)
	if err != nil {
		log.Fatal("Failed to initialize geodata source", zap.Error(err))
	}
	if closer != nil {
		closers = append(closers, closer)
	}

	// 4. Redis: scope cache and event streams
	var sink drilldown.EventSink
	if cfg.Redis.Enabled {
		redisClient, err := cache.NewRedis(&cfg.Redis, log)
		if err != nil {
			log.Fatal("Failed to connect to Redis", zap.Error(err))
		}
		closers = append(closers, redisClient)

		cacheRepo := cache.NewCacheRepository(redisClient)
		source = cache.NewCachedSource(source, cacheRepo, cfg.Cache.GeoDataTTL, log)

		if cfg.DrillDown.PublishEvents {
			streamRepo := redisRepo.NewStreamRepository(redisClient.Client(), log)
			sink = redisRepo.NewStreamEventSink(streamRepo, cfg.Stream.EventsStream, cfg.Stream.LeafStream, log)
		}
		log.Info("Redis connected", zap.Bool("publish_events", sink != nil))
	}

	// 5. Use case
	synth := synthetic.New(synthetic.DefaultNameTables(), synthetic.Config{
		MinChildren: cfg.Synthetic.MinChildren,
		MaxChildren: cfg.Synthetic.MaxChildren,
	}, log)

	drillDownUC := usecase.NewDrillDownUseCase(source, synth, sink, usecase.Config{
		FetchTimeout:   cfg.DrillDown.FetchTimeout,
		SessionIdleTTL: cfg.DrillDown.SessionIdleTTL,
		DefaultMetric:  domain.Metric(cfg.DrillDown.DefaultMetric),
		LegendSteps:    cfg.DrillDown.LegendSteps,
		RootLabel:      cfg.DrillDown.RootLabel,
	}, log)

	janitorCtx, stopJanitor := context.WithCancel(context.Background())
	defer stopJanitor()
	go drillDownUC.RunJanitor(janitorCtx, cfg.DrillDown.JanitorInterval)

	// 6. HTTP
	server := httpDelivery.NewServer(
		cfg,
		log,
		handler.NewSessionHandler(drillDownUC, log),
		handler.NewGeoDataHandler(drillDownUC, log),
	)

	go func() {
		if err := server.Start(); err != nil {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	log.Info("Server started successfully",
		zap.String("address", cfg.GetServerAddr()),
		zap.String("env", cfg.Server.Env),
	)

	// 7. Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server gracefully...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error("Server shutdown error", zap.Error(err))
	}

	stopJanitor()
	drillDownUC.Shutdown()

	for i := len(closers) - 1; i >= 0; i-- {
		if err := closers[i].Close(); err != nil {
			log.Error("Failed to close resource", zap.Error(err))
		}
	}

	log.Info("Server stopped successfully")
}

// buildSource returns the configured geodata source and, when it holds a
// connection, the closer for it.
func buildSource(cfg *config.Config, log *zap.Logger) (repository.GeoSourceRepository, io.Closer, error) {
	switch cfg.GeoSource.Kind {
	case "postgres":
		db, err := postgres.New(cfg, log)
		if err != nil {
			return nil, nil, err
		}
		return postgres.NewGeoFeatureRepository(db), db, nil

	case "http":
		return geoapi.NewClient(&cfg.GeoSource, log), nil, nil

	case "s3":
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		src, err := s3dataset.New(ctx, &cfg.GeoSource, log)
		if err != nil {
			return nil, nil, err
		}
		return src, nil, nil

	default:
		ds, err := static.LoadDataset()
		if err != nil {
			return nil, nil, err
		}
		log.Info("Using bundled dataset",
			zap.String("country", ds.Country),
			zap.Int("features", len(ds.Features)))
		return static.NewSource(ds, log), nil, nil
	}
}
