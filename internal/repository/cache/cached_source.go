package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/geo-drilldown/internal/domain"
	"github.com/geo-drilldown/internal/domain/repository"
	apperrors "github.com/geo-drilldown/internal/pkg/errors"
)

const (
	GeoDataKeyPrefix = "geodata:"

	maxNegativeTTL = time.Minute
)

// notLoadedMarker is stored for scopes the inner source reported as missing.
var notLoadedMarker = []byte("!")

// CachedSource wraps a GeoSourceRepository with a Redis-backed scope cache.
// Cache failures are logged and the inner source is queried directly.
type CachedSource struct {
	inner  repository.GeoSourceRepository
	cache  repository.CacheRepository
	ttl    time.Duration
	logger *zap.Logger
}

var _ repository.GeoSourceRepository = (*CachedSource)(nil)

func NewCachedSource(inner repository.GeoSourceRepository, cache repository.CacheRepository, ttl time.Duration, logger *zap.Logger) *CachedSource {
	return &CachedSource{
		inner:  inner,
		cache:  cache,
		ttl:    ttl,
		logger: logger.With(zap.String("component", "cached_source")),
	}
}

// ScopeCacheKey is the key a scope is cached under.
func ScopeCacheKey(level domain.AdminLevel, parentCode string) string {
	if parentCode == "" {
		parentCode = "_root"
	}
	return fmt.Sprintf("%s%s:%s", GeoDataKeyPrefix, level.Plural(), parentCode)
}

func (s *CachedSource) FetchFeatures(ctx context.Context, level domain.AdminLevel, parentCode string) ([]domain.GeoFeature, error) {
	key := ScopeCacheKey(level, parentCode)

	cached, err := s.cache.Get(ctx, key)
	switch {
	case err != nil:
		s.logger.Warn("Cache unavailable, querying source", zap.String("key", key), zap.Error(err))
		return s.inner.FetchFeatures(ctx, level, parentCode)
	case cached != nil:
		if string(cached) == string(notLoadedMarker) {
			return nil, apperrors.ErrNotLoaded.WithReason(fmt.Sprintf("%s under %q (cached)", level, parentCode))
		}
		var features []domain.GeoFeature
		if err := json.Unmarshal(cached, &features); err == nil {
			return features, nil
		}
		s.logger.Warn("Dropping undecodable cache entry", zap.String("key", key))
		_ = s.cache.Delete(ctx, key)
	}

	features, err := s.inner.FetchFeatures(ctx, level, parentCode)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotLoaded) {
			s.store(ctx, key, notLoadedMarker, s.negativeTTL())
		}
		return nil, err
	}

	data, err := json.Marshal(features)
	if err != nil {
		s.logger.Error("Failed to encode features for cache", zap.String("key", key), zap.Error(err))
		return features, nil
	}
	s.store(ctx, key, data, s.ttl)
	return features, nil
}

// Invalidate drops every cached scope.
func (s *CachedSource) Invalidate(ctx context.Context) (int64, error) {
	n, err := s.cache.DeletePrefix(ctx, GeoDataKeyPrefix)
	if err != nil {
		return n, apperrors.ErrCacheError.Wrap(err)
	}
	s.logger.Info("Geodata cache invalidated", zap.Int64("keys", n))
	return n, nil
}

func (s *CachedSource) store(ctx context.Context, key string, value []byte, ttl time.Duration) {
	if err := s.cache.Set(ctx, key, value, ttl); err != nil {
		s.logger.Warn("Failed to populate cache", zap.String("key", key), zap.Error(err))
	}
}

func (s *CachedSource) negativeTTL() time.Duration {
	if s.ttl <= 0 || s.ttl > maxNegativeTTL {
		return maxNegativeTTL
	}
	return s.ttl
}
