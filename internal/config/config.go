package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Cache     CacheConfig
	Log       LogConfig
	GeoSource GeoSourceConfig
	Synthetic SyntheticConfig
	DrillDown DrillDownConfig
	Stream    StreamConfig
	Worker    WorkerConfig
}

type ServerConfig struct {
	Host string
	Port int
	Env  string
}

type DatabaseConfig struct {
	Driver          string
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	Path            string // sqlite file or ":memory:"
	MaxConns        int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

type CacheConfig struct {
	GeoDataTTL time.Duration
}

type LogConfig struct {
	Level string
}

// GeoSourceConfig selects where authoritative geodata comes from.
type GeoSourceConfig struct {
	Kind           string // static | postgres | http | s3
	HTTPBaseURL    string
	HTTPTimeout    time.Duration
	S3Bucket       string
	S3Prefix       string
	S3Region       string
	S3Endpoint     string
	S3UsePathStyle bool
}

type SyntheticConfig struct {
	MinChildren int
	MaxChildren int
}

type DrillDownConfig struct {
	FetchTimeout    time.Duration
	SessionIdleTTL  time.Duration
	JanitorInterval time.Duration
	DefaultMetric   string
	LegendSteps     int
	RootLabel       string
	PublishEvents   bool
}

type StreamConfig struct {
	EventsStream     string
	LeafStream       string
	LeafReportStream string
}

type WorkerConfig struct {
	Enabled       bool
	ConsumerGroup string
	BatchSize     int
	MaxRetries    int
}

func setDefaults() {
	viper.SetDefault("API_HOST", "0.0.0.0")
	viper.SetDefault("API_PORT", 8080)
	viper.SetDefault("API_ENV", "development")

	viper.SetDefault("DB_DRIVER", "pgx")
	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", 5432)
	viper.SetDefault("DB_USER", "postgres")
	viper.SetDefault("DB_NAME", "geodrilldown")
	viper.SetDefault("DB_SSLMODE", "disable")
	viper.SetDefault("DB_PATH", "geodrilldown.db")
	viper.SetDefault("DB_MAX_CONNS", 10)
	viper.SetDefault("DB_MAX_IDLE_CONNS", 5)
	viper.SetDefault("DB_CONN_MAX_LIFETIME", 3600)
	viper.SetDefault("DB_CONN_MAX_IDLE_TIME", 600)

	viper.SetDefault("REDIS_ENABLED", false)
	viper.SetDefault("REDIS_HOST", "localhost")
	viper.SetDefault("REDIS_PORT", 6379)
	viper.SetDefault("REDIS_DB", 0)

	viper.SetDefault("GEODATA_CACHE_TTL", 3600)
	viper.SetDefault("LOG_LEVEL", "info")

	viper.SetDefault("GEOSOURCE_KIND", "static")
	viper.SetDefault("GEOSOURCE_HTTP_TIMEOUT", 5000)
	viper.SetDefault("GEOSOURCE_S3_PREFIX", "geodata")
	viper.SetDefault("GEOSOURCE_S3_REGION", "ap-southeast-1")

	viper.SetDefault("SYNTHETIC_MIN_CHILDREN", 2)
	viper.SetDefault("SYNTHETIC_MAX_CHILDREN", 8)

	viper.SetDefault("DRILLDOWN_FETCH_TIMEOUT", 10000)
	viper.SetDefault("DRILLDOWN_SESSION_IDLE_TTL", 1800)
	viper.SetDefault("DRILLDOWN_JANITOR_INTERVAL", 60)
	viper.SetDefault("DRILLDOWN_DEFAULT_METRIC", "sales")
	viper.SetDefault("DRILLDOWN_LEGEND_STEPS", 5)
	viper.SetDefault("DRILLDOWN_ROOT_LABEL", "Philippines")
	viper.SetDefault("DRILLDOWN_PUBLISH_EVENTS", true)

	viper.SetDefault("STREAM_EVENTS", "stream:drilldown:events")
	viper.SetDefault("STREAM_LEAF", "stream:drilldown:leaf")
	viper.SetDefault("STREAM_LEAF_REPORT", "stream:drilldown:leaf:report")

	viper.SetDefault("WORKER_ENABLED", true)
	viper.SetDefault("WORKER_CONSUMER_GROUP", "drilldown-leaf-workers")
	viper.SetDefault("WORKER_BATCH_SIZE", 10)
	viper.SetDefault("WORKER_MAX_RETRIES", 3)
}

// Load reads .env if present, then the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	viper.AutomaticEnv()
	setDefaults()

	cfg := &Config{
		Server: ServerConfig{
			Host: viper.GetString("API_HOST"),
			Port: viper.GetInt("API_PORT"),
			Env:  viper.GetString("API_ENV"),
		},
		Database: DatabaseConfig{
			Driver:          strings.ToLower(viper.GetString("DB_DRIVER")),
			Host:            viper.GetString("DB_HOST"),
			Port:            viper.GetInt("DB_PORT"),
			User:            viper.GetString("DB_USER"),
			Password:        viper.GetString("DB_PASSWORD"),
			DBName:          viper.GetString("DB_NAME"),
			SSLMode:         viper.GetString("DB_SSLMODE"),
			Path:            viper.GetString("DB_PATH"),
			MaxConns:        viper.GetInt("DB_MAX_CONNS"),
			MaxIdleConns:    viper.GetInt("DB_MAX_IDLE_CONNS"),
			ConnMaxLifetime: time.Duration(viper.GetInt("DB_CONN_MAX_LIFETIME")) * time.Second,
			ConnMaxIdleTime: time.Duration(viper.GetInt("DB_CONN_MAX_IDLE_TIME")) * time.Second,
		},
		Redis: RedisConfig{
			Enabled:  viper.GetBool("REDIS_ENABLED"),
			Host:     viper.GetString("REDIS_HOST"),
			Port:     viper.GetInt("REDIS_PORT"),
			Password: viper.GetString("REDIS_PASSWORD"),
			DB:       viper.GetInt("REDIS_DB"),
		},
		Cache: CacheConfig{
			GeoDataTTL: time.Duration(viper.GetInt("GEODATA_CACHE_TTL")) * time.Second,
		},
		Log: LogConfig{
			Level: viper.GetString("LOG_LEVEL"),
		},
		GeoSource: GeoSourceConfig{
			Kind:           strings.ToLower(viper.GetString("GEOSOURCE_KIND")),
			HTTPBaseURL:    viper.GetString("GEOSOURCE_HTTP_BASE_URL"),
			HTTPTimeout:    time.Duration(viper.GetInt("GEOSOURCE_HTTP_TIMEOUT")) * time.Millisecond,
			S3Bucket:       viper.GetString("GEOSOURCE_S3_BUCKET"),
			S3Prefix:       viper.GetString("GEOSOURCE_S3_PREFIX"),
			S3Region:       viper.GetString("GEOSOURCE_S3_REGION"),
			S3Endpoint:     viper.GetString("GEOSOURCE_S3_ENDPOINT"),
			S3UsePathStyle: viper.GetBool("GEOSOURCE_S3_USE_PATH_STYLE"),
		},
		Synthetic: SyntheticConfig{
			MinChildren: viper.GetInt("SYNTHETIC_MIN_CHILDREN"),
			MaxChildren: viper.GetInt("SYNTHETIC_MAX_CHILDREN"),
		},
		DrillDown: DrillDownConfig{
			FetchTimeout:    time.Duration(viper.GetInt("DRILLDOWN_FETCH_TIMEOUT")) * time.Millisecond,
			SessionIdleTTL:  time.Duration(viper.GetInt("DRILLDOWN_SESSION_IDLE_TTL")) * time.Second,
			JanitorInterval: time.Duration(viper.GetInt("DRILLDOWN_JANITOR_INTERVAL")) * time.Second,
			DefaultMetric:   viper.GetString("DRILLDOWN_DEFAULT_METRIC"),
			LegendSteps:     viper.GetInt("DRILLDOWN_LEGEND_STEPS"),
			RootLabel:       viper.GetString("DRILLDOWN_ROOT_LABEL"),
			PublishEvents:   viper.GetBool("DRILLDOWN_PUBLISH_EVENTS"),
		},
		Stream: StreamConfig{
			EventsStream:     viper.GetString("STREAM_EVENTS"),
			LeafStream:       viper.GetString("STREAM_LEAF"),
			LeafReportStream: viper.GetString("STREAM_LEAF_REPORT"),
		},
		Worker: WorkerConfig{
			Enabled:       viper.GetBool("WORKER_ENABLED"),
			ConsumerGroup: viper.GetString("WORKER_CONSUMER_GROUP"),
			BatchSize:     viper.GetInt("WORKER_BATCH_SIZE"),
			MaxRetries:    viper.GetInt("WORKER_MAX_RETRIES"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects combinations that cannot start.
func (c *Config) Validate() error {
	switch c.GeoSource.Kind {
	case "static", "postgres":
	case "http":
		if c.GeoSource.HTTPBaseURL == "" {
			return fmt.Errorf("GEOSOURCE_HTTP_BASE_URL is required for the http geodata source")
		}
	case "s3":
		if c.GeoSource.S3Bucket == "" {
			return fmt.Errorf("GEOSOURCE_S3_BUCKET is required for the s3 geodata source")
		}
	default:
		return fmt.Errorf("unknown GEOSOURCE_KIND %q", c.GeoSource.Kind)
	}

	switch c.Database.Driver {
	case "pgx", "postgres", "sqlite":
	default:
		return fmt.Errorf("unknown DB_DRIVER %q", c.Database.Driver)
	}

	if c.Synthetic.MinChildren <= 0 || c.Synthetic.MaxChildren < c.Synthetic.MinChildren {
		return fmt.Errorf("invalid synthetic child bounds [%d, %d]", c.Synthetic.MinChildren, c.Synthetic.MaxChildren)
	}
	return nil
}

func (c *Config) GetServerAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// GetDatabaseDSN returns a DSN for the configured driver.
func (c *Config) GetDatabaseDSN() string {
	if c.Database.Driver == "sqlite" {
		return c.Database.Path
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.DBName,
		c.Database.SSLMode,
	)
}

func (c *Config) GetRedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Redis.Host, c.Redis.Port)
}
