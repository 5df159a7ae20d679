package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	StoreDriverPostgres = "postgres"
	StoreDriverMemory   = "memory"
)

type Config struct {
	AppHost   string
	HTTPPort  string
	AppEnv    string
	LogLevel  string
	LogFormat string

	// StoreDriver selects the record store backend: postgres or memory.
	StoreDriver string

	// SearchServiceURL, when set, receives applications and tickets for indexing.
	SearchServiceURL string

	// InferenceURL is the base URL of the suggestion service (POST /compare).
	InferenceURL     string
	InferenceTimeout time.Duration

	// ScreeningCriteriaID is the ScreeningCriteria record used by suggestions.
	ScreeningCriteriaID string

	// Timezone is the zone used for calendar-day visit filters.
	Timezone string

	// AuthJWTSecret enables bearer-token auth. Empty means the X-Caller-ID
	// header identifies the agent (development only).
	AuthJWTSecret string

	KafkaBrokers       []string
	KafkaTopicCasework string

	DB struct {
		Host     string
		Port     string
		User     string
		Password string
		Database string
		SSLMode  string
	}

	Redis struct {
		Addr          string
		Password      string
		DB            int
		ChannelPrefix string
	}

	timeoutRaw string
	redisDBRaw string
}

func Load() (*Config, error) {
	_ = godotenv.Load(".env")
	_ = godotenv.Load("../.env")

	cfg := &Config{
		AppHost:             getEnv("APP_HOST", "0.0.0.0"),
		HTTPPort:            firstEnv("APP_PORT", "HTTP_PORT", "8098"),
		AppEnv:              getEnv("APP_ENV", "development"),
		LogLevel:            getEnv("LOG_LEVEL", "info"),
		LogFormat:           getEnv("LOG_FORMAT", "json"),
		StoreDriver:         getEnv("STORE_DRIVER", StoreDriverPostgres),
		SearchServiceURL:    getEnv("SEARCH_SERVICE_URL", ""),
		InferenceURL:        getEnv("INFERENCE_URL", ""),
		ScreeningCriteriaID: getEnv("SCREENING_CRITERIA_ID", "misn"),
		Timezone:            getEnv("TIMEZONE", "Local"),
		AuthJWTSecret:       getEnv("AUTH_JWT_SECRET", ""),
		KafkaBrokers:        parseList(getEnv("KAFKA_BROKERS", "")),
		KafkaTopicCasework:  getEnv("KAFKA_TOPIC_CASEWORK", "casework.events"),
		timeoutRaw:          getEnv("INFERENCE_TIMEOUT", "30s"),
		redisDBRaw:          getEnv("REDIS_DB", "0"),
	}
	cfg.DB.Host = getEnv("DB_HOST", "localhost")
	cfg.DB.Port = getEnv("DB_PORT", "5432")
	cfg.DB.User = getEnv("DB_USER", "postgres")
	cfg.DB.Password = getEnv("DB_PASSWORD", "postgres")
	cfg.DB.Database = getEnv("DB_DATABASE", "casework_service")
	cfg.DB.SSLMode = getEnv("DB_SSLMODE", "disable")
	cfg.Redis.Addr = getEnv("REDIS_ADDR", "")
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", "")
	cfg.Redis.ChannelPrefix = getEnv("REDIS_CHANNEL_PREFIX", "casework")

	if d, err := time.ParseDuration(cfg.timeoutRaw); err == nil {
		cfg.InferenceTimeout = d
	}
	if n, err := strconv.Atoi(cfg.redisDBRaw); err == nil {
		cfg.Redis.DB = n
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	switch c.StoreDriver {
	case StoreDriverPostgres:
		if c.DB.Host == "" || c.DB.Database == "" {
			return errors.New("config: DB_HOST and DB_DATABASE are required")
		}
	case StoreDriverMemory:
	default:
		return fmt.Errorf("config: unknown STORE_DRIVER %q", c.StoreDriver)
	}
	if c.AppEnv == "production" {
		if c.StoreDriver == StoreDriverPostgres && c.DB.Password == "" {
			return errors.New("config: in production DB_PASSWORD is required")
		}
		if c.AuthJWTSecret == "" {
			return errors.New("config: in production AUTH_JWT_SECRET is required")
		}
	}
	if c.timeoutRaw != "" {
		if d, err := time.ParseDuration(c.timeoutRaw); err != nil || d <= 0 {
			return fmt.Errorf("config: invalid INFERENCE_TIMEOUT %q", c.timeoutRaw)
		}
	}
	if c.redisDBRaw != "" {
		if _, err := strconv.Atoi(c.redisDBRaw); err != nil {
			return fmt.Errorf("config: invalid REDIS_DB %q", c.redisDBRaw)
		}
	}
	if _, err := c.Location(); err != nil {
		return fmt.Errorf("config: invalid TIMEZONE %q: %w", c.Timezone, err)
	}
	return nil
}

// Location resolves Timezone.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" || c.Timezone == "Local" {
		return time.Local, nil
	}
	return time.LoadLocation(c.Timezone)
}

func (c *Config) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.DB.Host, c.DB.Port, c.DB.User, c.DB.Password, c.DB.Database, c.DB.SSLMode)
}

func (c *Config) DatabaseURL() string {
	pass := url.QueryEscape(c.DB.Password)
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.DB.User, pass, c.DB.Host, c.DB.Port, c.DB.Database, c.DB.SSLMode)
}

func (c *Config) Addr() string {
	return c.AppHost + ":" + c.HTTPPort
}

func firstEnv(keysAndDef ...string) string {
	if len(keysAndDef) == 0 {
		return ""
	}
	def := keysAndDef[len(keysAndDef)-1]
	for _, k := range keysAndDef[:len(keysAndDef)-1] {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return def
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// parseList разбивает строку "host1:9092,host2:9092" на слайс.
func parseList(s string) []string {
	var out []string
	for _, t := range strings.Split(s, ",") {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}
