package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromViper_ValoresPorDefecto(t *testing.T) {
	cfg := fromViper(viper.New())

	assert.Equal(t, "development", cfg.App.Env)
	assert.Equal(t, DriverPostgres, cfg.DB.Driver)
	assert.Equal(t, 5432, cfg.DB.Port)
	assert.True(t, cfg.DB.AutoMigrate)
	assert.Equal(t, 60, cfg.JWT.Expiration)
	assert.Equal(t, 24*time.Hour, cfg.Redis.IdempotencyTTL)
	assert.Empty(t, cfg.Kafka.Brokers)
	assert.Equal(t, "0.0.0.0:8080", cfg.HTTP.Addr())
}

func TestFromViper_LeeVariables(t *testing.T) {
	v := viper.New()
	v.Set("DB_PORT", "6543")
	v.Set("KAFKA_BROKERS", "k1:9092, k2:9092,")
	v.Set("IDEMPOTENCY_TTL_MINUTES", "5")
	v.Set("DB_DRIVER", "memory")

	cfg := fromViper(v)
	assert.Equal(t, 6543, cfg.DB.Port)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, 5*time.Minute, cfg.Redis.IdempotencyTTL)
	assert.Equal(t, DriverMemory, cfg.DB.Driver)
}

func TestValidate_SecretVacio(t *testing.T) {
	cfg := fromViper(viper.New())
	require.Error(t, cfg.Validate())

	cfg.JWT.Secret = "s3cr3t"
	require.NoError(t, cfg.Validate())

	cfg.DB.Driver = "sqlite"
	assert.Error(t, cfg.Validate())
}

func TestDSN_EscapaPassword(t *testing.T) {
	c := DBConfig{Host: "db", Port: 5432, User: "app", Password: "p@ss/word", DBName: "ledger", SSLMode: "disable"}
	assert.Equal(t, "postgres://app:p%40ss%2Fword@db:5432/ledger?sslmode=disable", c.ConnectionString())

	c.DatabaseURL = "postgres://x@y/z"
	assert.Equal(t, "postgres://x@y/z", c.ConnectionString())
}
