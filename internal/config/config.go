package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// API settings
	APIAddr string
	APIKey  string
	DevMode bool
	ZapRate int // zap and quote requests per second per client

	// Redis settings
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// ClickHouse settings
	ClickHouseAddr     string
	ClickHouseDatabase string
	ClickHouseUsername string
	ClickHousePassword string

	// Postgres settings
	PostgresDSN string

	// InfluxDB settings, optional
	InfluxURL    string
	InfluxToken  string
	InfluxOrg    string
	InfluxBucket string

	// AI agent
	OpenRouterAPIKey string
	AIModel          string
	AIMaxRows        int
	AITimeout        time.Duration

	// Zap engine
	PoolConfigPath     string
	ProgramID          string
	Strategy           string
	DefaultSlippageBps uint16
	MaxSlippageBps     uint16
	MaxPriceImpactBps  uint16
	FeeNumerator       uint64
	FeeDenominator     uint64
	PublishTimeout     time.Duration

	// Indexer
	IndexerBatchSize     int
	IndexerFlushInterval time.Duration
}

func Load() *Config {
	return &Config{
		// API
		APIAddr: getEnv("API_ADDR", ":8080"),
		APIKey:  getEnv("API_KEY", ""),
		DevMode: getBoolEnv("DEV_MODE", false),
		ZapRate: getIntEnv("ZAP_RATE", 20),

		// Redis
		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getIntEnv("REDIS_DB", 0),

		// ClickHouse
		ClickHouseAddr:     getEnv("CLICKHOUSE_ADDR", "localhost:9000"),
		ClickHouseDatabase: getEnv("CLICKHOUSE_DATABASE", "zap"),
		ClickHouseUsername: getEnv("CLICKHOUSE_USERNAME", "default"),
		ClickHousePassword: getEnv("CLICKHOUSE_PASSWORD", ""),

		// Postgres
		PostgresDSN: getEnv("POSTGRES_DSN", ""),

		// InfluxDB
		InfluxURL:    getEnv("INFLUX_URL", ""),
		InfluxToken:  getEnv("INFLUX_TOKEN", ""),
		InfluxOrg:    getEnv("INFLUX_ORG", ""),
		InfluxBucket: getEnv("INFLUX_BUCKET", "zaps"),

		// AI
		OpenRouterAPIKey: getEnv("OPENROUTER_API_KEY", ""),
		AIModel:          getEnv("AI_MODEL", "openai/gpt-4o-mini"),
		AIMaxRows:        getIntEnv("AI_MAX_ROWS", 200),
		AITimeout:        getDurationEnv("AI_TIMEOUT", 30*time.Second),

		// Zap
		PoolConfigPath:     getEnv("ZAP_POOL_CONFIG_PATH", "internal/config/pools.json"),
		ProgramID:          getEnv("ZAP_PROGRAM_ID", ""),
		Strategy:           getEnv("ZAP_STRATEGY", "optimal"),
		DefaultSlippageBps: getUint16Env("ZAP_DEFAULT_SLIPPAGE_BPS", 50),
		MaxSlippageBps:     getUint16Env("ZAP_MAX_SLIPPAGE_BPS", 1000),
		MaxPriceImpactBps:  getUint16Env("ZAP_MAX_PRICE_IMPACT_BPS", 0),
		FeeNumerator:       uint64(getIntEnv("ZAP_FEE_NUMERATOR", 3)),
		FeeDenominator:     uint64(getIntEnv("ZAP_FEE_DENOMINATOR", 1000)),
		PublishTimeout:     getDurationEnv("ZAP_PUBLISH_TIMEOUT", 3*time.Second),

		// Indexer
		IndexerBatchSize:     getIntEnv("INDEXER_BATCH_SIZE", 100),
		IndexerFlushInterval: getDurationEnv("INDEXER_FLUSH_INTERVAL", 2*time.Second),
	}
}

// Validate checks the settings every binary relies on.
func (c *Config) Validate() error {
	var errs []error

	if strings.TrimSpace(c.APIAddr) == "" {
		errs = append(errs, errors.New("API_ADDR is required"))
	}
	if strings.TrimSpace(c.RedisAddr) == "" {
		errs = append(errs, errors.New("REDIS_ADDR is required"))
	}
	if !c.DevMode && c.APIKey == "" {
		errs = append(errs, errors.New("API_KEY is required outside dev mode"))
	}
	if c.MaxSlippageBps == 0 || c.MaxSlippageBps > 10_000 {
		errs = append(errs, fmt.Errorf("ZAP_MAX_SLIPPAGE_BPS must be in 1..10000, got %d", c.MaxSlippageBps))
	}
	if c.DefaultSlippageBps > c.MaxSlippageBps {
		errs = append(errs, fmt.Errorf("ZAP_DEFAULT_SLIPPAGE_BPS %d exceeds ZAP_MAX_SLIPPAGE_BPS %d", c.DefaultSlippageBps, c.MaxSlippageBps))
	}
	if c.MaxPriceImpactBps > 10_000 {
		errs = append(errs, fmt.Errorf("ZAP_MAX_PRICE_IMPACT_BPS must be at most 10000, got %d", c.MaxPriceImpactBps))
	}
	if c.FeeDenominator == 0 || c.FeeNumerator >= c.FeeDenominator {
		errs = append(errs, fmt.Errorf("zap fee %d/%d is invalid", c.FeeNumerator, c.FeeDenominator))
	}
	switch strings.ToLower(c.Strategy) {
	case "optimal", "half":
	default:
		errs = append(errs, fmt.Errorf("ZAP_STRATEGY must be optimal or half, got %q", c.Strategy))
	}
	if c.IndexerBatchSize <= 0 {
		errs = append(errs, errors.New("INDEXER_BATCH_SIZE must be positive"))
	}

	return errors.Join(errs...)
}

// InfluxEnabled reports whether metrics should be written.
func (c *Config) InfluxEnabled() bool {
	return c.InfluxURL != "" && c.InfluxOrg != ""
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getIntEnv(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getUint16Env(key string, defaultVal uint16) uint16 {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.ParseUint(val, 10, 16); err == nil {
			return uint16(i)
		}
	}
	return defaultVal
}

func getBoolEnv(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultVal
}

func getDurationEnv(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}
