// Package geostore holds the per-session feature sets, keyed by scope.
package geostore

import (
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/geo-drilldown/internal/domain"
	apperrors "github.com/geo-drilldown/internal/pkg/errors"
)

// InvalidationListener is called after a scope's feature set was replaced.
type InvalidationListener func(scope domain.ScopeKey)

type location struct {
	scope domain.ScopeKey
	pos   int
}

// Store caches features by (level, parent) scope. All mutations are atomic
// under the store lock; listeners run after the lock is released.
type Store struct {
	mu        sync.RWMutex
	scopes    map[domain.ScopeKey][]domain.GeoFeature
	order     map[domain.AdminLevel][]domain.ScopeKey
	index     map[domain.AdminLevel]map[string]location
	listeners []InvalidationListener
	logger    *zap.Logger
}

func New(logger *zap.Logger) *Store {
	return &Store{
		scopes: make(map[domain.ScopeKey][]domain.GeoFeature),
		order:  make(map[domain.AdminLevel][]domain.ScopeKey),
		index:  make(map[domain.AdminLevel]map[string]location),
		logger: logger.With(zap.String("component", "geostore")),
	}
}

// OnInvalidate registers fn to be notified when a scope is replaced.
func (s *Store) OnInvalidate(fn InvalidationListener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// GetFeatures returns the features of a scope. Without a parent it returns
// every feature resident at level in scope insertion order.
func (s *Store) GetFeatures(level domain.AdminLevel, parentCode string) ([]domain.GeoFeature, error) {
	if !level.Valid() {
		return nil, apperrors.ErrInvalidLevel.WithReason(fmt.Sprintf("level %d", int(level)))
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if parentCode != "" {
		features, ok := s.scopes[domain.ScopeKey{Level: level, ParentCode: parentCode}]
		if !ok {
			return nil, apperrors.ErrNotLoaded.WithReason(fmt.Sprintf("%s under %s", level, parentCode))
		}
		return cloneFeatures(features), nil
	}

	keys := s.order[level]
	if len(keys) == 0 {
		return nil, apperrors.ErrNotLoaded.WithReason(level.String())
	}
	var out []domain.GeoFeature
	for _, key := range keys {
		out = append(out, s.scopes[key]...)
	}
	return cloneFeatures(out), nil
}

// Lookup probes the cache for a scope without failing.
func (s *Store) Lookup(level domain.AdminLevel, parentCode string) ([]domain.GeoFeature, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	features, ok := s.scopes[domain.ScopeKey{Level: level, ParentCode: parentCode}]
	if !ok {
		return nil, false
	}
	return cloneFeatures(features), true
}

// GetFeature returns the feature with code at level.
func (s *Store) GetFeature(level domain.AdminLevel, code string) (domain.GeoFeature, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.getFeatureLocked(level, code)
}

func (s *Store) getFeatureLocked(level domain.AdminLevel, code string) (domain.GeoFeature, error) {
	loc, ok := s.index[level][code]
	if !ok {
		return domain.GeoFeature{}, apperrors.ErrNotFound.WithReason(fmt.Sprintf("%s %q", level, code))
	}
	return s.scopes[loc.scope][loc.pos], nil
}

// PutFeatures replaces the cached set for the scope. Every feature is
// validated and stamped with the scope's level and parent. Codes must be
// unique within the level.
func (s *Store) PutFeatures(level domain.AdminLevel, parentCode string, features []domain.GeoFeature) error {
	if !level.Valid() {
		return apperrors.ErrInvalidLevel.WithReason(fmt.Sprintf("level %d", int(level)))
	}
	if level == domain.LevelRegion && parentCode != "" {
		return apperrors.ErrInvalidFeature.WithReason("region scope has no parent")
	}
	if level != domain.LevelRegion && parentCode == "" {
		return apperrors.ErrInvalidFeature.WithReason(fmt.Sprintf("%s scope requires a parent", level))
	}

	key := domain.ScopeKey{Level: level, ParentCode: parentCode}
	stamped := make([]domain.GeoFeature, len(features))
	seen := make(map[string]struct{}, len(features))

	s.mu.Lock()

	if coarser, ok := level.Coarser(); ok {
		if _, err := s.getFeatureLocked(coarser, parentCode); err != nil {
			s.mu.Unlock()
			return apperrors.ErrInvalidFeature.WithReason(fmt.Sprintf("parent %s %q is not resident", coarser, parentCode))
		}
	}

	for i, f := range features {
		f.Level = level
		f.ParentCode = parentCode
		if err := f.Validate(); err != nil {
			s.mu.Unlock()
			return apperrors.ErrInvalidFeature.Wrap(err)
		}
		if _, dup := seen[f.Code]; dup {
			s.mu.Unlock()
			return apperrors.ErrInvalidFeature.WithReason(fmt.Sprintf("duplicate code %q", f.Code))
		}
		if loc, exists := s.index[level][f.Code]; exists && loc.scope != key {
			s.mu.Unlock()
			return apperrors.ErrInvalidFeature.WithReason(fmt.Sprintf("code %q already resident under %q", f.Code, loc.scope.ParentCode))
		}
		seen[f.Code] = struct{}{}
		stamped[i] = f
	}

	if old, ok := s.scopes[key]; ok {
		for _, f := range old {
			delete(s.index[level], f.Code)
		}
	} else {
		s.order[level] = append(s.order[level], key)
	}

	if s.index[level] == nil {
		s.index[level] = make(map[string]location)
	}
	for i, f := range stamped {
		s.index[level][f.Code] = location{scope: key, pos: i}
	}
	s.scopes[key] = stamped
	listeners := append([]InvalidationListener(nil), s.listeners...)

	s.mu.Unlock()

	s.logger.Debug("Scope stored",
		zap.String("scope", key.String()),
		zap.Int("features", len(stamped)))

	for _, fn := range listeners {
		fn(key)
	}
	return nil
}

// Levels returns the levels with resident data, coarsest first.
func (s *Store) Levels() []domain.AdminLevel {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.AdminLevel
	for _, l := range domain.AllLevels {
		if len(s.order[l]) > 0 {
			out = append(out, l)
		}
	}
	return out
}

// Walk visits every feature resident at level in insertion order until fn
// returns false. fn must not call back into the store.
func (s *Store) Walk(level domain.AdminLevel, fn func(domain.GeoFeature) bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, key := range s.order[level] {
		for _, f := range s.scopes[key] {
			if !fn(f) {
				return
			}
		}
	}
}

// Len returns the number of resident features at level.
func (s *Store) Len(level domain.AdminLevel) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.index[level])
}

func cloneFeatures(in []domain.GeoFeature) []domain.GeoFeature {
	if in == nil {
		return []domain.GeoFeature{}
	}
	out := make([]domain.GeoFeature, len(in))
	copy(out, in)
	return out
}
