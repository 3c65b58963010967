package config

import (
	"flag"
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig
	Schedule ScheduleConfig
	Feed     FeedConfig
	Ranking  RankingConfig
	Cache    CacheConfig
	Database DatabaseConfig
	Logging  LoggingConfig
	Auth     AuthConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	HTTPAddr     string
	RateLimitDur time.Duration
	// CronSecret guards /cron and /ingest. Empty disables both endpoints.
	CronSecret string
	// IngestOnceMode runs every worker once and exits instead of serving.
	IngestOnceMode bool
	// MCPMode serves MCP tools over stdio instead of HTTP.
	MCPMode bool
	// TriggerCooldown spaces out manual full runs from /cron and /ingest.
	TriggerCooldown time.Duration
	// UseDatabase selects Postgres; false keeps all state in memory.
	UseDatabase bool
}

// ScheduleConfig holds background ingestion settings
type ScheduleConfig struct {
	Enabled       bool
	Interval      time.Duration
	NewsTimeout   time.Duration
	PaperTimeout  time.Duration
	ModelTimeout  time.Duration
	SourcesConfig string
}

// FeedConfig holds merge limits for the unified feed
type FeedConfig struct {
	PerKindLimit int
	TotalLimit   int
	CacheTTL     time.Duration
}

// RankingConfig holds the hot score decay constants
type RankingConfig struct {
	Offset   float64
	Exponent float64
}

// CacheConfig holds cache configuration
type CacheConfig struct {
	Backend   string // "memory" or "redis"
	TTL       time.Duration
	RedisAddr string
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string
}

// AuthConfig holds settings for verifying tokens issued by the hosted auth backend
type AuthConfig struct {
	JWTSecret   string
	JWTAudience string
}

// Load parses flags and environment variables to build configuration
func Load() *Config {
	cfg := &Config{}

	httpAddr := flag.String("http", ":8080", "HTTP server address")
	rateLimitDur := flag.Duration("rate-limit", time.Second, "Minimum delay between requests to same host")
	ingestOnce := flag.Bool("ingest-once", false, "Run all ingestion workers once and exit")
	mcpMode := flag.Bool("mcp", false, "Run in MCP stdio mode")
	scheduleInterval := flag.Duration("schedule-interval", 5*time.Minute, "Interval between scheduled ingestion runs")
	sourcesConfig := flag.String("sources-config", "", "Path to a YAML or JSON sources file")
	cacheTTL := flag.Duration("cache-ttl", 5*time.Minute, "Default cache TTL")
	cacheBackend := flag.String("cache-backend", "memory", "Cache backend: memory or redis")
	redisAddr := flag.String("redis-addr", "localhost:6379", "Redis server address")
	logLevel := flag.String("log-level", "info", "Log level (debug, info, warn, error)")
	dbHost := flag.String("db-host", "localhost", "PostgreSQL host")
	dbPort := flag.Int("db-port", 5432, "PostgreSQL port")
	dbUser := flag.String("db-user", "postgres", "PostgreSQL user")
	dbPassword := flag.String("db-password", "postgres", "PostgreSQL password")
	dbName := flag.String("db-name", "griva", "PostgreSQL database name")
	dbSSLMode := flag.String("db-sslmode", "disable", "PostgreSQL SSL mode")

	flag.Parse()

	applyEnvOverrides(httpAddr, rateLimitDur, ingestOnce, scheduleInterval, sourcesConfig, cacheTTL, cacheBackend, redisAddr, logLevel, dbHost, dbPort, dbUser, dbPassword, dbName, dbSSLMode)

	cfg.Server = ServerConfig{
		HTTPAddr:        *httpAddr,
		RateLimitDur:    *rateLimitDur,
		CronSecret:      os.Getenv("CRON_SECRET"),
		IngestOnceMode:  *ingestOnce,
		MCPMode:         *mcpMode || os.Getenv("MCP_MODE") == "true" || os.Getenv("MCP_MODE") == "1",
		TriggerCooldown: getDurationOrDefault("TRIGGER_COOLDOWN", 30*time.Second),
		UseDatabase:     os.Getenv("USE_DATABASE") != "false" && os.Getenv("USE_DATABASE") != "0",
	}

	cfg.Schedule = loadScheduleConfig(*scheduleInterval, *sourcesConfig)
	cfg.Feed = loadFeedConfig()
	cfg.Ranking = loadRankingConfig()

	cfg.Cache = CacheConfig{
		Backend:   *cacheBackend,
		TTL:       *cacheTTL,
		RedisAddr: *redisAddr,
	}

	cfg.Database = DatabaseConfig{
		Host:     *dbHost,
		Port:     *dbPort,
		User:     *dbUser,
		Password: *dbPassword,
		Database: *dbName,
		SSLMode:  *dbSSLMode,
	}

	cfg.Logging = LoggingConfig{
		Level: *logLevel,
	}

	cfg.Auth = AuthConfig{
		JWTSecret:   os.Getenv("AUTH_JWT_SECRET"),
		JWTAudience: getEnvOrDefault("AUTH_JWT_AUDIENCE", "authenticated"),
	}

	return cfg
}

func loadScheduleConfig(interval time.Duration, sourcesConfig string) ScheduleConfig {
	enabled := true
	if v := os.Getenv("SCHEDULE_ENABLED"); v == "false" || v == "0" {
		enabled = false
	}

	return ScheduleConfig{
		Enabled:       enabled,
		Interval:      interval,
		NewsTimeout:   getDurationOrDefault("NEWS_FETCH_TIMEOUT", 15*time.Second),
		PaperTimeout:  getDurationOrDefault("PAPER_FETCH_TIMEOUT", 20*time.Second),
		ModelTimeout:  getDurationOrDefault("MODEL_FETCH_TIMEOUT", 20*time.Second),
		SourcesConfig: sourcesConfig,
	}
}

func loadFeedConfig() FeedConfig {
	return FeedConfig{
		PerKindLimit: getPositiveIntOrDefault("FEED_PER_KIND_LIMIT", 30),
		TotalLimit:   getPositiveIntOrDefault("FEED_TOTAL_LIMIT", 90),
		CacheTTL:     getDurationOrDefault("FEED_CACHE_TTL", 30*time.Second),
	}
}

func loadRankingConfig() RankingConfig {
	offset := 2.0
	if v := os.Getenv("RANKING_OFFSET"); v != "" {
		if parsed, err := strconv.ParseFloat(v, 64); err == nil && parsed > 0 {
			offset = parsed
		}
	}

	exponent := 1.5
	if v := os.Getenv("RANKING_EXPONENT"); v != "" {
		if parsed, err := strconv.ParseFloat(v, 64); err == nil && parsed > 0 {
			exponent = parsed
		}
	}

	return RankingConfig{Offset: offset, Exponent: exponent}
}

func getEnvOrDefault(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			return d
		}
	}
	return defaultValue
}

func getPositiveIntOrDefault(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return defaultValue
}

func applyEnvOverrides(
	httpAddr *string,
	rateLimitDur *time.Duration,
	ingestOnce *bool,
	scheduleInterval *time.Duration,
	sourcesConfig *string,
	cacheTTL *time.Duration,
	cacheBackend *string,
	redisAddr *string,
	logLevel *string,
	dbHost *string,
	dbPort *int,
	dbUser *string,
	dbPassword *string,
	dbName *string,
	dbSSLMode *string,
) {
	if v := os.Getenv("HTTP_ADDR"); v != "" {
		*httpAddr = v
	}
	if v := os.Getenv("RATE_LIMIT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*rateLimitDur = d
		}
	}
	if v := os.Getenv("INGEST_ONCE_MODE"); v == "true" || v == "1" {
		*ingestOnce = true
	}
	if v := os.Getenv("SCHEDULE_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			*scheduleInterval = d
		}
	}
	if v := os.Getenv("SOURCES_CONFIG_PATH"); v != "" {
		*sourcesConfig = v
	}
	if v := os.Getenv("CACHE_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*cacheTTL = d
		}
	}
	if v := os.Getenv("CACHE_BACKEND"); v != "" {
		*cacheBackend = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		*redisAddr = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		*logLevel = v
	}
	if v := os.Getenv("DB_HOST"); v != "" {
		*dbHost = v
	}
	if v := os.Getenv("DB_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			*dbPort = p
		}
	}
	if v := os.Getenv("DB_USER"); v != "" {
		*dbUser = v
	}
	if v := os.Getenv("DB_PASSWORD"); v != "" {
		*dbPassword = v
	}
	if v := os.Getenv("DB_NAME"); v != "" {
		*dbName = v
	}
	if v := os.Getenv("DB_SSLMODE"); v != "" {
		*dbSSLMode = v
	}
}
