package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "static", cfg.GeoSource.Kind)
	assert.Equal(t, 2, cfg.Synthetic.MinChildren)
	assert.Equal(t, 8, cfg.Synthetic.MaxChildren)
	assert.Equal(t, 10*time.Second, cfg.DrillDown.FetchTimeout)
	assert.Equal(t, "Philippines", cfg.DrillDown.RootLabel)
	assert.Equal(t, "stream:drilldown:leaf", cfg.Stream.LeafStream)
	assert.Equal(t, "0.0.0.0:8080", cfg.GetServerAddr())
}

func TestLoad_FromEnv(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	t.Setenv("GEOSOURCE_KIND", "HTTP")
	t.Setenv("GEOSOURCE_HTTP_BASE_URL", "http://geodata:8080")
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("DB_PATH", ":memory:")
	t.Setenv("REDIS_PORT", "6380")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "http", cfg.GeoSource.Kind)
	assert.Equal(t, "http://geodata:8080", cfg.GeoSource.HTTPBaseURL)
	assert.Equal(t, ":memory:", cfg.GetDatabaseDSN())
	assert.Equal(t, "localhost:6380", cfg.GetRedisAddr())
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{
			GeoSource: GeoSourceConfig{Kind: "static"},
			Database:  DatabaseConfig{Driver: "pgx"},
			Synthetic: SyntheticConfig{MinChildren: 2, MaxChildren: 8},
		}
	}

	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{name: "unknown source", mutate: func(c *Config) { c.GeoSource.Kind = "ftp" }},
		{name: "http without url", mutate: func(c *Config) { c.GeoSource.Kind = "http" }},
		{name: "s3 without bucket", mutate: func(c *Config) { c.GeoSource.Kind = "s3" }},
		{name: "unknown driver", mutate: func(c *Config) { c.Database.Driver = "mysql" }},
		{name: "inverted bounds", mutate: func(c *Config) { c.Synthetic.MinChildren = 9 }},
	}

	assert.NoError(t, base().Validate())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := base()
			tt.mutate(c)
			assert.Error(t, c.Validate())
		})
	}
}

func TestGetDatabaseDSN_Postgres(t *testing.T) {
	c := &Config{Database: DatabaseConfig{
		Driver: "pgx", Host: "db", Port: 5432, User: "u", Password: "p", DBName: "geo", SSLMode: "disable",
	}}
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=geo sslmode=disable", c.GetDatabaseDSN())
}
