package postgres

import (
	"context"
	"fmt"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS geo_features (
		level        TEXT NOT NULL,
		code         TEXT NOT NULL,
		name         TEXT NOT NULL,
		parent_code  TEXT NOT NULL DEFAULT '',
		position     INTEGER NOT NULL DEFAULT 0,
		sales        DOUBLE PRECISION NOT NULL DEFAULT 0,
		stores       DOUBLE PRECISION NOT NULL DEFAULT 0,
		transactions DOUBLE PRECISION NOT NULL DEFAULT 0,
		growth       DOUBLE PRECISION NOT NULL DEFAULT 0,
		geometry     TEXT,
		PRIMARY KEY (level, code)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_geo_features_scope ON geo_features (level, parent_code, position)`,
}

// Migrate creates the geodata table. Safe to run repeatedly.
func (db *DB) Migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	db.logger.Info("Geodata schema ready")
	return nil
}
