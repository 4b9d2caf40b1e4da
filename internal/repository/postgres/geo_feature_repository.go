package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/geo-drilldown/internal/domain"
	"github.com/geo-drilldown/internal/domain/repository"
	"github.com/geo-drilldown/internal/pkg/errors"
)

type featureRow struct {
	Level      string         `db:"level"`
	Code       string         `db:"code"`
	Name       string         `db:"name"`
	ParentCode string         `db:"parent_code"`
	Position   int            `db:"position"`
	Geometry   sql.NullString `db:"geometry"`
	domain.Metrics
}

func (r featureRow) toDomain() (domain.GeoFeature, error) {
	level, err := domain.ParseAdminLevel(r.Level)
	if err != nil {
		return domain.GeoFeature{}, err
	}
	f := domain.GeoFeature{
		Code:       r.Code,
		Name:       r.Name,
		ParentCode: r.ParentCode,
		Level:      level,
		Metrics:    r.Metrics,
	}
	if r.Geometry.Valid && r.Geometry.String != "" {
		f.Geometry = json.RawMessage(r.Geometry.String)
	}
	return f, nil
}

// GeoFeatureRepository is the SQL-backed geodata source.
type GeoFeatureRepository struct {
	db     *sqlx.DB
	logger *zap.Logger
}

var _ repository.GeoSourceRepository = (*GeoFeatureRepository)(nil)

func NewGeoFeatureRepository(db *DB) *GeoFeatureRepository {
	return &GeoFeatureRepository{
		db:     db.DB,
		logger: db.logger.With(zap.String("component", "geo_feature_repository")),
	}
}

// FetchFeatures returns one scope ordered by position.
func (r *GeoFeatureRepository) FetchFeatures(ctx context.Context, level domain.AdminLevel, parentCode string) ([]domain.GeoFeature, error) {
	query := r.db.Rebind(`
		SELECT level, code, name, parent_code, position,
			sales, stores, transactions, growth, geometry
		FROM geo_features
		WHERE level = ? AND parent_code = ?
		ORDER BY position, code
	`)

	var rows []featureRow
	if err := r.db.SelectContext(ctx, &rows, query, level.String(), parentCode); err != nil {
		r.logger.Error("Failed to fetch features",
			zap.String("level", level.String()),
			zap.String("parent", parentCode),
			zap.Error(err))
		return nil, errors.ErrDatabaseError.Wrap(err)
	}
	if len(rows) == 0 {
		return nil, errors.ErrNotLoaded.WithReason(fmt.Sprintf("%s under %q", level, parentCode))
	}

	features := make([]domain.GeoFeature, 0, len(rows))
	for _, row := range rows {
		f, err := row.toDomain()
		if err != nil {
			r.logger.Warn("Skipping row with bad level", zap.String("code", row.Code), zap.Error(err))
			continue
		}
		features = append(features, f)
	}
	return features, nil
}

// GetByCodes returns features at level matching codes, in no particular order.
func (r *GeoFeatureRepository) GetByCodes(ctx context.Context, level domain.AdminLevel, codes []string) ([]domain.GeoFeature, error) {
	if len(codes) == 0 {
		return []domain.GeoFeature{}, nil
	}

	query, args, err := sqlx.In(`
		SELECT level, code, name, parent_code, position,
			sales, stores, transactions, growth, geometry
		FROM geo_features
		WHERE level = ? AND code IN (?)
	`, level.String(), codes)
	if err != nil {
		return nil, errors.ErrDatabaseError.Wrap(err)
	}

	var rows []featureRow
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(query), args...); err != nil {
		r.logger.Error("Failed to get features by codes", zap.Int("count", len(codes)), zap.Error(err))
		return nil, errors.ErrDatabaseError.Wrap(err)
	}

	features := make([]domain.GeoFeature, 0, len(rows))
	for _, row := range rows {
		f, err := row.toDomain()
		if err != nil {
			continue
		}
		features = append(features, f)
	}
	return features, nil
}

// UpsertFeatures writes one scope in a transaction. Slice order becomes position.
func (r *GeoFeatureRepository) UpsertFeatures(ctx context.Context, features []domain.GeoFeature) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.ErrDatabaseError.Wrap(err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PreparexContext(ctx, tx.Rebind(`
		INSERT INTO geo_features (level, code, name, parent_code, position,
			sales, stores, transactions, growth, geometry)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (level, code) DO UPDATE SET
			name = excluded.name,
			parent_code = excluded.parent_code,
			position = excluded.position,
			sales = excluded.sales,
			stores = excluded.stores,
			transactions = excluded.transactions,
			growth = excluded.growth,
			geometry = excluded.geometry
	`))
	if err != nil {
		return errors.ErrDatabaseError.Wrap(err)
	}
	defer stmt.Close()

	positions := make(map[domain.ScopeKey]int)
	for _, f := range features {
		if err := f.Validate(); err != nil {
			return errors.ErrInvalidFeature.WithReason(err.Error())
		}
		key := domain.ScopeKey{Level: f.Level, ParentCode: f.ParentCode}
		pos := positions[key]
		positions[key] = pos + 1

		var geometry sql.NullString
		if len(f.Geometry) > 0 {
			geometry = sql.NullString{String: string(f.Geometry), Valid: true}
		}

		_, err := stmt.ExecContext(ctx,
			f.Level.String(), f.Code, f.Name, f.ParentCode, pos,
			f.Metrics.Sales, f.Metrics.Stores, f.Metrics.Transactions, f.Metrics.Growth,
			geometry,
		)
		if err != nil {
			r.logger.Error("Failed to upsert feature", zap.String("code", f.Code), zap.Error(err))
			return errors.ErrDatabaseError.Wrap(err)
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.ErrDatabaseError.Wrap(err)
	}
	r.logger.Debug("Upserted features", zap.Int("count", len(features)))
	return nil
}

// Count returns the number of stored features per level.
func (r *GeoFeatureRepository) Count(ctx context.Context) (map[domain.AdminLevel]int, error) {
	var rows []struct {
		Level string `db:"level"`
		N     int    `db:"n"`
	}
	if err := r.db.SelectContext(ctx, &rows, `SELECT level, COUNT(*) AS n FROM geo_features GROUP BY level`); err != nil {
		return nil, errors.ErrDatabaseError.Wrap(err)
	}

	out := make(map[domain.AdminLevel]int, len(rows))
	for _, row := range rows {
		level, err := domain.ParseAdminLevel(row.Level)
		if err != nil {
			continue
		}
		out[level] = row.N
	}
	return out, nil
}
