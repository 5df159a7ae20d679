package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("STORE_DRIVER", "")
	t.Setenv("APP_PORT", "")
	t.Setenv("HTTP_PORT", "9100")
	t.Setenv("SCREENING_CRITERIA_ID", "")
	t.Setenv("INFERENCE_TIMEOUT", "")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,,")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, StoreDriverPostgres, cfg.StoreDriver)
	assert.Equal(t, "9100", cfg.HTTPPort)
	assert.Equal(t, "misn", cfg.ScreeningCriteriaID)
	assert.Equal(t, 30*time.Second, cfg.InferenceTimeout)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		cfg := &Config{StoreDriver: StoreDriverPostgres, AppEnv: "development", Timezone: "UTC", timeoutRaw: "5s", redisDBRaw: "0"}
		cfg.DB.Host = "localhost"
		cfg.DB.Database = "casework_service"
		return cfg
	}
	require.NoError(t, base().Validate())

	cfg := base()
	cfg.StoreDriver = "sqlite"
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.DB.Host = ""
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.StoreDriver = StoreDriverMemory
	cfg.DB.Host = ""
	assert.NoError(t, cfg.Validate())

	cfg = base()
	cfg.AppEnv = "production"
	cfg.DB.Password = "secret"
	assert.Error(t, cfg.Validate(), "production needs a jwt secret")
	cfg.AuthJWTSecret = "k"
	assert.NoError(t, cfg.Validate())

	cfg = base()
	cfg.Timezone = "Mars/Olympus"
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.timeoutRaw = "soon"
	assert.Error(t, cfg.Validate())
}

func TestDatabaseURL_EscapesPassword(t *testing.T) {
	cfg := &Config{}
	cfg.DB.User = "app"
	cfg.DB.Password = "p@ss word"
	cfg.DB.Host = "db"
	cfg.DB.Port = "5432"
	cfg.DB.Database = "casework_service"
	cfg.DB.SSLMode = "disable"
	assert.Equal(t, "postgres://app:p%40ss+word@db:5432/casework_service?sslmode=disable", cfg.DatabaseURL())
}
