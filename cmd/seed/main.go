// Command seed loads a dataset into the SQL store and optionally mirrors it to S3.
//
//	SEED_DATASET_FILE  dataset JSON to load instead of the bundled one
//	SEED_TARGETS       comma-separated: db, s3 (default "db")
package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/geo-drilldown/internal/config"
	"github.com/geo-drilldown/internal/infrastructure/s3dataset"
	"github.com/geo-drilldown/internal/pkg/logger"
	"github.com/geo-drilldown/internal/repository/postgres"
	"github.com/geo-drilldown/internal/repository/static"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	log, err := logger.New(cfg.Log.Level)
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer log.Sync()

	ds, err := loadDataset(os.Getenv("SEED_DATASET_FILE"))
	if err != nil {
		log.Fatal("Failed to load dataset", zap.Error(err))
	}
	log.Info("Dataset loaded",
		zap.String("country", ds.Country),
		zap.Int("features", len(ds.Features)))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	targets := os.Getenv("SEED_TARGETS")
	if targets == "" {
		targets = "db"
	}
	for _, target := range strings.Split(targets, ",") {
		switch strings.TrimSpace(target) {
		case "db":
			err = seedDatabase(ctx, cfg, ds, log)
		case "s3":
			err = seedS3(ctx, cfg, ds, log)
		default:
			err = fmt.Errorf("unknown seed target %q", target)
		}
		if err != nil {
			log.Error("Seed failed", zap.String("target", target), zap.Error(err))
			os.Exit(1)
		}
	}

	log.Info("Seed complete")
}

func loadDataset(path string) (*static.Dataset, error) {
	if path == "" {
		return static.LoadDataset()
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return static.ReadDataset(f)
}

func seedDatabase(ctx context.Context, cfg *config.Config, ds *static.Dataset, log *zap.Logger) error {
	db, err := postgres.New(cfg, log)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.Migrate(ctx); err != nil {
		return err
	}

	repo := postgres.NewGeoFeatureRepository(db)
	if err := repo.UpsertFeatures(ctx, ds.Features); err != nil {
		return err
	}

	counts, err := repo.Count(ctx)
	if err != nil {
		return err
	}
	for level, n := range counts {
		log.Info("Features stored", zap.Stringer("level", level), zap.Int("count", n))
	}
	return nil
}

func seedS3(ctx context.Context, cfg *config.Config, ds *static.Dataset, log *zap.Logger) error {
	if cfg.GeoSource.S3Bucket == "" {
		return fmt.Errorf("GEOSOURCE_S3_BUCKET is not set")
	}
	src, err := s3dataset.New(ctx, &cfg.GeoSource, log)
	if err != nil {
		return err
	}

	scopes := ds.Scopes()
	for _, key := range ds.ScopeKeys() {
		if err := src.PutScope(ctx, key.Level, key.ParentCode, scopes[key]); err != nil {
			return err
		}
		log.Debug("Scope exported", zap.String("key", src.ObjectKey(key.Level, key.ParentCode)))
	}
	log.Info("Dataset exported to S3",
		zap.String("bucket", cfg.GeoSource.S3Bucket),
		zap.Int("scopes", len(scopes)))
	return nil
}
