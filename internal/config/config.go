package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds application configuration loaded from environment variables.
type Config struct {
	Env             string
	HTTPPort        int
	DiagnosticsPort int
	ShutdownTimeout time.Duration

	CatalogPath string

	RefreshInterval time.Duration
	RefreshWall     time.Duration
	CacheTTL        time.Duration
	LookbackDays    int
	MaxPerSource    int

	NewsAPIKey     string
	NewsAPIBaseURL string
	TrendsBaseURL  string
	MarketsBaseURL string
	MobilityURL    string

	StoreBackend string
	SQLitePath   string

	QueueBackend string
	KafkaBrokers string

	InfluxURL    string
	InfluxToken  string
	InfluxOrg    string
	InfluxBucket string

	OTLPEndpoint string

	AdminToken string
}

const (
	defaultEnv             = "development"
	defaultHTTPPort        = 8080
	defaultDiagnosticsPort = 9090
	defaultShutdownTimeout = 10 * time.Second

	defaultRefreshInterval = 10 * time.Minute
	defaultRefreshWall     = 20 * time.Second
	defaultCacheTTL        = 10 * time.Minute
	defaultLookbackDays    = 3
	defaultMaxPerSource    = 80

	defaultMarketsBaseURL = "https://stooq.com"
	defaultMobilityURL    = "https://www.tsa.gov/sites/default/files/throughput.csv"

	defaultStoreBackend = "memory"
	defaultSQLitePath   = "intel-hub.db"

	defaultQueueBackend = "memory"

	defaultOTLPEndpoint = "localhost:4317"
)

// Load reads configuration from the environment, applying defaults
// where necessary.
func Load() (Config, error) {
	cfg := Config{
		Env:             getEnv("APP_ENV", defaultEnv),
		HTTPPort:        getInt("HTTP_PORT", defaultHTTPPort),
		DiagnosticsPort: getInt("DIAGNOSTICS_PORT", defaultDiagnosticsPort),
		ShutdownTimeout: getDuration("SHUTDOWN_TIMEOUT", defaultShutdownTimeout),

		CatalogPath: os.Getenv("CATALOG_PATH"),

		RefreshInterval: getDuration("REFRESH_INTERVAL", defaultRefreshInterval),
		RefreshWall:     getDuration("REFRESH_WALL", defaultRefreshWall),
		CacheTTL:        getDuration("CACHE_TTL", defaultCacheTTL),
		LookbackDays:    getInt("LOOKBACK_DAYS", defaultLookbackDays),
		MaxPerSource:    getInt("MAX_PER_SOURCE", defaultMaxPerSource),

		NewsAPIKey:     os.Getenv("NEWSAPI_KEY"),
		NewsAPIBaseURL: getEnv("NEWSAPI_BASE_URL", "https://newsapi.org"),
		TrendsBaseURL:  os.Getenv("TRENDS_BASE_URL"),
		MarketsBaseURL: getEnv("MARKETS_BASE_URL", defaultMarketsBaseURL),
		MobilityURL:    getEnv("MOBILITY_URL", defaultMobilityURL),

		StoreBackend: getEnv("STORE_BACKEND", defaultStoreBackend),
		SQLitePath:   getEnv("SQLITE_PATH", defaultSQLitePath),

		QueueBackend: getEnv("QUEUE_BACKEND", defaultQueueBackend),
		KafkaBrokers: os.Getenv("KAFKA_BROKERS"),

		InfluxURL:    os.Getenv("INFLUX_URL"),
		InfluxToken:  os.Getenv("INFLUX_TOKEN"),
		InfluxOrg:    os.Getenv("INFLUX_ORG"),
		InfluxBucket: os.Getenv("INFLUX_BUCKET"),

		OTLPEndpoint: getEnv("OTLP_ENDPOINT", defaultOTLPEndpoint),

		AdminToken: os.Getenv("ADMIN_TOKEN"),
	}

	switch cfg.StoreBackend {
	case "memory":
		// no-op
	case "sqlite":
		if cfg.SQLitePath == "" {
			return Config{}, fmt.Errorf("SQLITE_PATH is required when STORE_BACKEND=sqlite")
		}
	default:
		return Config{}, fmt.Errorf("unknown STORE_BACKEND value: %s", cfg.StoreBackend)
	}

	switch cfg.QueueBackend {
	case "memory":
		// no-op
	case "kafka":
		if cfg.KafkaBrokers == "" {
			return Config{}, fmt.Errorf("KAFKA_BROKERS is required when QUEUE_BACKEND=kafka")
		}
	default:
		return Config{}, fmt.Errorf("unknown QUEUE_BACKEND value: %s", cfg.QueueBackend)
	}

	if cfg.LookbackDays < 1 {
		return Config{}, fmt.Errorf("LOOKBACK_DAYS must be at least 1")
	}

	return cfg, nil
}

// InfluxEnabled reports whether the time-series sink is configured.
func (c Config) InfluxEnabled() bool {
	return c.InfluxURL != "" && c.InfluxToken != ""
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
